package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sujalkunwar22/backend/internal/account"
	"github.com/sujalkunwar22/backend/internal/apperr"
	"github.com/sujalkunwar22/backend/internal/conversation"
	"github.com/sujalkunwar22/backend/internal/models"
	"github.com/sujalkunwar22/backend/internal/notify"
	"github.com/sujalkunwar22/backend/internal/opsfeed"
	"github.com/sujalkunwar22/backend/internal/paging"
	"gorm.io/gorm"
)

// Listing page sizes.
const (
	DefaultMineLimit    = 10
	DefaultHistoryLimit = 20
	MaxLimit            = 100
)

// Options wires the collaborators of a Service. Nil fields are skipped.
type Options struct {
	Directory *conversation.Directory
	Sink      *notify.Sink
	Events    notify.Pusher
	Feed      opsfeed.Feed
	Now       func() time.Time
}

// Service runs appointment operations against the store.
type Service struct {
	db     *gorm.DB
	dir    *conversation.Directory
	sink   *notify.Sink
	events notify.Pusher
	feed   opsfeed.Feed
	now    func() time.Time
}

// NewService returns a Service over db.
func NewService(db *gorm.DB, opts Options) *Service {
	s := &Service{
		db:     db,
		dir:    opts.Directory,
		sink:   opts.Sink,
		events: opts.Events,
		feed:   opts.Feed,
		now:    opts.Now,
	}
	if s.dir == nil {
		s.dir = conversation.NewDirectory(db)
	}
	if s.feed == nil {
		s.feed = opsfeed.Nop{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Service) load(ctx context.Context, id string) (*models.Appointment, error) {
	var appt models.Appointment
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&appt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("Appointment not found")
	}
	if err != nil {
		return nil, fmt.Errorf("appointment: load %s: %w", id, err)
	}
	return &appt, nil
}

// loadParties loads id with both parties populated.
func (s *Service) loadParties(ctx context.Context, id string) (*models.Appointment, error) {
	var appt models.Appointment
	err := s.db.WithContext(ctx).Preload("Client").Preload("Lawyer").
		Where("id = ?", id).First(&appt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("Appointment not found")
	}
	if err != nil {
		return nil, fmt.Errorf("appointment: load %s: %w", id, err)
	}
	return &appt, nil
}

// Create records a client's request with a lawyer. The pair's conversation
// is resolved first and then attached to the new appointment atomically.
func (s *Service) Create(ctx context.Context, client *models.User, in CreateInput) (*models.Appointment, error) {
	if client.Role != models.RoleClient {
		return nil, apperr.Forbiddenf("Only clients can create appointment requests")
	}
	date, clock, err := in.validate()
	if err != nil {
		return nil, err
	}
	lawyer, err := account.FindActiveLawyer(ctx, s.db, in.LawyerID)
	if apperr.Is(err, apperr.NotFound) {
		return nil, apperr.NotFoundf("Lawyer not found or inactive")
	}
	if err != nil {
		return nil, err
	}

	conv, err := s.dir.GetOrCreate(ctx, client.ID, lawyer.ID)
	if err != nil {
		return nil, err
	}

	convID := conv.ID
	appt := &models.Appointment{
		ClientID:       client.ID,
		LawyerID:       lawyer.ID,
		Status:         models.StatusPending,
		ProposedDate:   date,
		ProposedTime:   clock,
		Reason:         in.Reason,
		Notes:          in.Notes,
		ConversationID: &convID,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(appt).Error; err != nil {
			return fmt.Errorf("appointment: create: %w", err)
		}
		return s.dir.Attach(ctx, tx, conv.ID, appt.ID)
	})
	if err != nil {
		return nil, err
	}

	out, err := s.loadParties(ctx, appt.ID)
	if err != nil {
		return nil, err
	}
	s.announce(ctx, out, client, change{
		recipient: lawyer.ID,
		kind:      models.NotifyAppointmentRequest,
		event:     "APPOINTMENT_REQUEST",
		title:     "New Appointment Request",
		message:   fmt.Sprintf("%s requested an appointment", client.FullName()),
		color:     opsfeed.ColorInfo,
	})
	return out, nil
}

// Page is one page of appointments.
type Page struct {
	Appointments []models.Appointment `json:"appointments"`
	Pagination   paging.Pagination    `json:"pagination"`
}

// scopeFor restricts q to the appointments user may list. Admins see all.
func scopeFor(q *gorm.DB, user *models.User) *gorm.DB {
	switch user.Role {
	case models.RoleClient:
		return q.Where("client_id = ?", user.ID)
	case models.RoleLawyer:
		return q.Where("lawyer_id = ?", user.ID)
	}
	return q
}

func (s *Service) list(ctx context.Context, q *gorm.DB, order string, page, limit int) (*Page, error) {
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("appointment: count: %w", err)
	}
	out := &Page{Appointments: []models.Appointment{}}
	err := q.Session(&gorm.Session{}).Preload("Client").Preload("Lawyer").
		Order(order).Offset(paging.Offset(page, limit)).Limit(limit).
		Find(&out.Appointments).Error
	if err != nil {
		return nil, fmt.Errorf("appointment: list: %w", err)
	}
	out.Pagination = paging.New(page, limit, total)
	return out, nil
}

// Mine lists user's appointments, newest first, optionally by status.
func (s *Service) Mine(ctx context.Context, user *models.User, status string, page, limit int) (*Page, error) {
	page, limit = paging.Normalize(page, limit, DefaultMineLimit, MaxLimit)
	q := scopeFor(s.db.WithContext(ctx).Model(&models.Appointment{}), user)
	if status != "" {
		st := models.AppointmentStatus(status)
		if _, ok := ValidTransitions[st]; !ok && !st.Terminal() {
			return nil, apperr.Validationf("Invalid status %q", status)
		}
		q = q.Where("status = ?", st)
	}
	return s.list(ctx, q, "created_at DESC", page, limit)
}

// History lists user's completed and cancelled appointments, most recently
// updated first.
func (s *Service) History(ctx context.Context, user *models.User, page, limit int) (*Page, error) {
	page, limit = paging.Normalize(page, limit, DefaultHistoryLimit, MaxLimit)
	q := scopeFor(s.db.WithContext(ctx).Model(&models.Appointment{}), user).
		Where("status IN ?", terminal)
	return s.list(ctx, q, "updated_at DESC", page, limit)
}

// Get returns one appointment to a party or an admin.
func (s *Service) Get(ctx context.Context, id string, user *models.User) (*models.Appointment, error) {
	appt, err := s.loadParties(ctx, id)
	if err != nil {
		return nil, err
	}
	if !appt.IsParty(user.ID) && user.Role != models.RoleAdmin {
		return nil, apperr.Forbiddenf("Access denied")
	}
	return appt, nil
}
