// Package review records clients' ratings of lawyers and keeps each
// lawyer's profile rating in step with them.
package review

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/sujalkunwar22/backend/internal/account"
	"github.com/sujalkunwar22/backend/internal/apperr"
	"github.com/sujalkunwar22/backend/internal/db"
	"github.com/sujalkunwar22/backend/internal/models"
	"github.com/sujalkunwar22/backend/internal/paging"
	"gorm.io/gorm"
)

// Listing page sizes.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// MaxCommentLength bounds a review comment.
const MaxCommentLength = 1000

// Service runs review operations against the store.
type Service struct {
	db *gorm.DB
}

// NewService returns a Service over db.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CreateInput is a client's review.
type CreateInput struct {
	LawyerID      string `json:"lawyerId"`
	Rating        int    `json:"rating"`
	Comment       string `json:"comment"`
	AppointmentID string `json:"appointmentId"`
}

func (in *CreateInput) validate() error {
	var errs []string
	if strings.TrimSpace(in.LawyerID) == "" {
		errs = append(errs, "Valid lawyer ID is required")
	}
	if in.Rating < models.MinRating || in.Rating > models.MaxRating {
		errs = append(errs, fmt.Sprintf("Rating must be between %d and %d", models.MinRating, models.MaxRating))
	}
	if utf8.RuneCountInString(in.Comment) > MaxCommentLength {
		errs = append(errs, fmt.Sprintf("Comment must be less than %d characters", MaxCommentLength))
	}
	if len(errs) > 0 {
		return apperr.Validationf("Validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

const duplicateMessage = "You have already reviewed this lawyer for this appointment"

// Create records client's review of a lawyer. A client reviews a lawyer at
// most once per appointment, and at most once without one. The lawyer's
// rating and review count are recomputed in the same transaction.
func (s *Service) Create(ctx context.Context, client *models.User, in CreateInput) (*View, error) {
	if client.Role != models.RoleClient {
		return nil, apperr.Forbiddenf("Only clients can create reviews")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	lawyer, err := account.Get(ctx, s.db, in.LawyerID)
	if apperr.Is(err, apperr.NotFound) || (err == nil && lawyer.Role != models.RoleLawyer) {
		return nil, apperr.NotFoundf("Lawyer not found")
	}
	if err != nil {
		return nil, err
	}

	r := &models.Review{
		LawyerID: lawyer.ID,
		ClientID: client.ID,
		Rating:   in.Rating,
		Comment:  strings.TrimSpace(in.Comment),
	}
	if in.AppointmentID != "" {
		if err := s.checkAppointment(ctx, in.AppointmentID, client.ID, lawyer.ID); err != nil {
			return nil, err
		}
		id := in.AppointmentID
		r.AppointmentID = &id
		r.AppointmentKey = id
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Review{}).
			Where("lawyer_id = ? AND client_id = ? AND appointment_key = ?", r.LawyerID, r.ClientID, r.AppointmentKey).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflictf(duplicateMessage)
		}
		if err := tx.Create(r).Error; err != nil {
			return err
		}
		return recompute(tx, lawyer.ID)
	})
	if db.IsDuplicateKey(err) {
		return nil, apperr.Conflictf(duplicateMessage)
	}
	if err != nil {
		if _, ok := apperr.As(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("review: create: %w", err)
	}
	r.Client, r.Lawyer = client, lawyer
	v := newView(r)
	return &v, nil
}

func (s *Service) checkAppointment(ctx context.Context, id, clientID, lawyerID string) error {
	var appt models.Appointment
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&appt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFoundf("Appointment not found")
	}
	if err != nil {
		return fmt.Errorf("review: load appointment %s: %w", id, err)
	}
	if appt.ClientID != clientID || appt.LawyerID != lawyerID {
		return apperr.Forbiddenf("Appointment does not belong to this client-lawyer pair")
	}
	return nil
}

// recompute sets the lawyer's rating to the mean of their visible reviews,
// rounded to one decimal, and the review count to their number. A lawyer
// without a profile has nothing to update.
func recompute(tx *gorm.DB, lawyerID string) error {
	var agg struct {
		Mean  float64
		Total int
	}
	err := tx.Model(&models.Review{}).
		Select("COALESCE(AVG(rating), 0) AS mean, COUNT(*) AS total").
		Where("lawyer_id = ? AND is_visible = ?", lawyerID, true).
		Scan(&agg).Error
	if err != nil {
		return err
	}
	return tx.Model(&models.LawyerProfile{}).Where("user_id = ?", lawyerID).
		Updates(map[string]interface{}{
			"rating":        roundRating(agg.Mean),
			"total_reviews": agg.Total,
		}).Error
}

func roundRating(avg float64) float64 {
	return math.Round(avg*10) / 10
}

// View is a review with the public profiles of both parties.
type View struct {
	models.Review
	Client *models.PublicProfile `json:"client,omitempty"`
	Lawyer *models.PublicProfile `json:"lawyer,omitempty"`
}

func newView(r *models.Review) View {
	v := View{Review: *r}
	if r.Client != nil {
		p := r.Client.Public()
		v.Client = &p
	}
	if r.Lawyer != nil {
		p := r.Lawyer.Public()
		v.Lawyer = &p
	}
	return v
}

// Page is one page of reviews.
type Page struct {
	Reviews    []View            `json:"reviews"`
	Pagination paging.Pagination `json:"pagination"`
}

func (s *Service) list(ctx context.Context, q *gorm.DB, page, limit int) (*Page, error) {
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("review: count: %w", err)
	}
	var rows []models.Review
	err := q.Session(&gorm.Session{}).Preload("Client").Preload("Lawyer").
		Order("created_at DESC").Order("id DESC").
		Offset(paging.Offset(page, limit)).Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("review: list: %w", err)
	}
	out := &Page{Reviews: make([]View, len(rows))}
	for i := range rows {
		out.Reviews[i] = newView(&rows[i])
	}
	out.Pagination = paging.New(page, limit, total)
	return out, nil
}

// ForLawyer lists a lawyer's visible reviews, newest first.
func (s *Service) ForLawyer(ctx context.Context, lawyerID string, page, limit int) (*Page, error) {
	page, limit = paging.Normalize(page, limit, DefaultLimit, MaxLimit)
	q := s.db.WithContext(ctx).Model(&models.Review{}).
		Where("lawyer_id = ? AND is_visible = ?", lawyerID, true)
	return s.list(ctx, q, page, limit)
}

// Mine lists the reviews a client wrote or a lawyer received.
func (s *Service) Mine(ctx context.Context, user *models.User, page, limit int) (*Page, error) {
	page, limit = paging.Normalize(page, limit, DefaultLimit, MaxLimit)
	q := s.db.WithContext(ctx).Model(&models.Review{})
	switch user.Role {
	case models.RoleClient:
		q = q.Where("client_id = ?", user.ID)
	case models.RoleLawyer:
		q = q.Where("lawyer_id = ?", user.ID)
	default:
		return nil, apperr.Forbiddenf("Only clients and lawyers have reviews")
	}
	return s.list(ctx, q, page, limit)
}
