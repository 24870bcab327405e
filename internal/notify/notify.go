// Package notify records per-user notifications and pushes lightweight live
// alerts to a user's personal room.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sujalkunwar22/backend/internal/apperr"
	"github.com/sujalkunwar22/backend/internal/models"
	"github.com/sujalkunwar22/backend/internal/paging"
	"gorm.io/gorm"
)

// Event is the live event name for pushed notifications.
const Event = "notification"

// Related entity kinds.
const (
	RelatedAppointment  = "Appointment"
	RelatedConversation = "Conversation"
	RelatedDocument     = "Document"
	RelatedUser         = "User"
)

// Default listing page size.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Pusher delivers a live event to every connection of one user.
type Pusher interface {
	ToUser(userID, event string, data any) int
}

// Notice is one notification to record.
type Notice struct {
	UserID      string
	Type        models.NotificationType
	Title       string
	Message     string
	RelatedID   string
	RelatedType string
}

// LivePayload is the body of a pushed notification event.
type LivePayload struct {
	Type    models.NotificationType `json:"type"`
	Message string                  `json:"message"`
}

// Sink writes notifications. Failures are logged and never returned to the
// acting flow.
type Sink struct {
	db   *gorm.DB
	push Pusher
}

// NewSink returns a Sink over db. push may be nil.
func NewSink(db *gorm.DB, push Pusher) *Sink {
	return &Sink{db: db, push: push}
}

// Record persists n. It never fails the caller.
func (s *Sink) Record(ctx context.Context, n Notice) {
	if s == nil || n.UserID == "" {
		return
	}
	row := models.Notification{
		UserID:  n.UserID,
		Type:    n.Type,
		Title:   n.Title,
		Message: n.Message,
	}
	if n.RelatedID != "" {
		id, kind := n.RelatedID, n.RelatedType
		row.RelatedID = &id
		row.RelatedType = &kind
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		log.Printf("notify: record %s for %s: %v", n.Type, n.UserID, err)
	}
}

// Push sends a notification event to userID's live connections.
func (s *Sink) Push(userID string, kind models.NotificationType, message string) {
	if s == nil || s.push == nil {
		return
	}
	s.push.ToUser(userID, Event, LivePayload{Type: kind, Message: message})
}

// Filter narrows a listing.
type Filter struct {
	IsRead *bool
}

// Page is one page of a user's notifications.
type Page struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int64                 `json:"unreadCount"`
	Pagination    paging.Pagination     `json:"pagination"`
}

// List returns userID's notifications, newest first.
func (s *Sink) List(ctx context.Context, userID string, f Filter, page, limit int) (*Page, error) {
	page, limit = paging.Normalize(page, limit, DefaultLimit, MaxLimit)
	q := s.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if f.IsRead != nil {
		q = q.Where("is_read = ?", *f.IsRead)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("notify: count: %w", err)
	}
	out := &Page{Notifications: []models.Notification{}}
	if err := q.Session(&gorm.Session{}).Order("created_at DESC").Order("id DESC").
		Offset(paging.Offset(page, limit)).Limit(limit).
		Find(&out.Notifications).Error; err != nil {
		return nil, fmt.Errorf("notify: list: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&out.UnreadCount).Error; err != nil {
		return nil, fmt.Errorf("notify: unread count: %w", err)
	}
	out.Pagination = paging.New(page, limit, total)
	return out, nil
}

// MarkRead marks one notification read on behalf of its owner.
func (s *Sink) MarkRead(ctx context.Context, id uint, userID string) (*models.Notification, error) {
	var n models.Notification
	err := s.db.WithContext(ctx).First(&n, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("Notification not found")
	}
	if err != nil {
		return nil, fmt.Errorf("notify: get %d: %w", id, err)
	}
	if n.UserID != userID {
		return nil, apperr.Forbiddenf("Access denied")
	}
	if n.IsRead {
		return &n, nil
	}
	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&n).Updates(map[string]interface{}{
		"is_read": true,
		"read_at": now,
	}).Error; err != nil {
		return nil, fmt.Errorf("notify: mark %d read: %w", id, err)
	}
	n.IsRead = true
	n.ReadAt = &now
	return &n, nil
}

// MarkAllRead marks every unread notification of userID read.
func (s *Sink) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
	if res.Error != nil {
		return 0, fmt.Errorf("notify: mark all read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ClearAll deletes every notification of userID.
func (s *Sink) ClearAll(ctx context.Context, userID string) (int64, error) {
	res := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Notification{})
	if res.Error != nil {
		return 0, fmt.Errorf("notify: clear all: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// PurgeRead deletes read notifications created before cutoff.
func (s *Sink) PurgeRead(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("is_read = ? AND created_at < ?", true, cutoff).
		Delete(&models.Notification{})
	if res.Error != nil {
		return 0, fmt.Errorf("notify: purge read: %w", res.Error)
	}
	return res.RowsAffected, nil
}
