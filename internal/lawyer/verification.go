package lawyer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sujalkunwar22/backend/internal/apperr"
	"github.com/sujalkunwar22/backend/internal/db"
	"github.com/sujalkunwar22/backend/internal/models"
	"github.com/sujalkunwar22/backend/internal/notify"
	"github.com/sujalkunwar22/backend/internal/opsfeed"
	"gorm.io/gorm"
)

// Rejection reason bounds and defaults.
const (
	MaxRejectionReasonLength = 500
	defaultRejectionReason   = "Verification request rejected"
)

// Submit files a verification request for lawyer. The lawyer needs a
// profile that is not yet verified and no request already pending.
func (s *Service) Submit(ctx context.Context, lawyer *models.User) (*models.VerificationRequest, error) {
	if lawyer.Role != models.RoleLawyer {
		return nil, apperr.Forbiddenf("Only lawyers can submit verification requests")
	}
	profile, err := s.profile(ctx, s.db, lawyer.ID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, apperr.Validationf("Please complete your lawyer profile before requesting verification")
	}
	if profile.IsVerified {
		return nil, apperr.Validationf("Your profile is already verified")
	}

	key := lawyer.ID
	req := &models.VerificationRequest{
		LawyerID:    lawyer.ID,
		Status:      models.VerificationPending,
		PendingKey:  &key,
		SubmittedAt: s.now(),
	}
	err = s.db.WithContext(ctx).Create(req).Error
	if db.IsDuplicateKey(err) {
		return nil, apperr.Conflictf("You already have a pending verification request")
	}
	if err != nil {
		return nil, fmt.Errorf("lawyer: submit verification: %w", err)
	}

	var admins []models.User
	if err := s.db.WithContext(ctx).
		Where("role = ? AND is_active = ?", models.RoleAdmin, true).
		Find(&admins).Error; err != nil {
		return nil, fmt.Errorf("lawyer: load admins: %w", err)
	}
	msg := fmt.Sprintf("%s has submitted a verification request", lawyer.FullName())
	for _, a := range admins {
		s.sink.Record(ctx, notify.Notice{
			UserID:      a.ID,
			Type:        models.NotifyVerificationRequest,
			Title:       "New Verification Request",
			Message:     msg,
			RelatedID:   req.ID,
			RelatedType: notify.RelatedUser,
		})
	}
	s.post(ctx, opsfeed.Entry{
		Title: "New Verification Request",
		Body:  msg,
		Color: opsfeed.ColorWarning,
		Fields: []opsfeed.Field{
			{Name: "Lawyer", Value: lawyer.ID, Short: true},
			{Name: "Bar license", Value: profile.BarLicenseNumber, Short: true},
		},
	})
	return req, nil
}

func (s *Service) post(ctx context.Context, e opsfeed.Entry) {
	go func() {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), feedTimeout)
		defer cancel()
		s.feed.Post(fctx, e)
	}()
}

// Status is a lawyer's view of their verification.
type Status struct {
	IsVerified          bool                        `json:"isVerified"`
	VerificationRequest *models.VerificationRequest `json:"verificationRequest"`
	ProfileComplete     bool                        `json:"profileComplete"`
}

// Status reports lawyer's verification state and latest request.
func (s *Service) Status(ctx context.Context, lawyer *models.User) (*Status, error) {
	if lawyer.Role != models.RoleLawyer {
		return nil, apperr.Forbiddenf("Only lawyers can check verification status")
	}
	profile, err := s.profile(ctx, s.db, lawyer.ID)
	if err != nil {
		return nil, err
	}
	out := &Status{ProfileComplete: profile != nil, IsVerified: profile != nil && profile.IsVerified}
	var req models.VerificationRequest
	err = s.db.WithContext(ctx).Where("lawyer_id = ?", lawyer.ID).
		Order("submitted_at DESC").Order("created_at DESC").First(&req).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
	case err != nil:
		return nil, fmt.Errorf("lawyer: latest verification: %w", err)
	default:
		out.VerificationRequest = &req
	}
	return out, nil
}

// RequestView is a verification request with the lawyer's profile.
type RequestView struct {
	models.VerificationRequest
	LawyerProfile *models.LawyerProfile `json:"lawyerProfile"`
}

// Requests lists verification requests, newest first. An empty status
// lists all of them.
func (s *Service) Requests(ctx context.Context, status string) ([]RequestView, error) {
	q := s.db.WithContext(ctx).Preload("Lawyer")
	if status != "" {
		st := models.VerificationStatus(status)
		if !st.Valid() {
			return nil, apperr.Validationf("Invalid status %q", status)
		}
		q = q.Where("status = ?", st)
	}
	var reqs []models.VerificationRequest
	if err := q.Order("submitted_at DESC").Find(&reqs).Error; err != nil {
		return nil, fmt.Errorf("lawyer: list verification requests: %w", err)
	}
	users := make([]models.User, len(reqs))
	for i := range reqs {
		users[i] = models.User{ID: reqs[i].LawyerID}
	}
	profiles, err := s.profilesFor(ctx, users)
	if err != nil {
		return nil, err
	}
	out := make([]RequestView, len(reqs))
	for i := range reqs {
		out[i] = RequestView{VerificationRequest: reqs[i], LawyerProfile: profiles[reqs[i].LawyerID]}
	}
	return out, nil
}

// Approve marks lawyerID's profile verified, optionally setting the hourly
// rate, and closes the pending request if there is one.
func (s *Service) Approve(ctx context.Context, admin *models.User, lawyerID string, hourlyRate *float64) (*models.LawyerProfile, error) {
	if hourlyRate != nil && *hourlyRate < 0 {
		return nil, apperr.Validationf("Hourly rate must be a positive number")
	}
	var (
		profile *models.LawyerProfile
		closed  *models.VerificationRequest
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.profile(ctx, tx, lawyerID)
		if err != nil {
			return err
		}
		if p == nil {
			return apperr.NotFoundf("Lawyer profile not found")
		}
		p.IsVerified = true
		if hourlyRate != nil {
			p.HourlyRate = *hourlyRate
		}
		if err := tx.Save(p).Error; err != nil {
			return err
		}
		profile = p

		var req models.VerificationRequest
		err = tx.Where("lawyer_id = ? AND status = ?", lawyerID, models.VerificationPending).First(&req).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := s.close(tx, &req, admin, models.VerificationApproved, nil); err != nil {
			return err
		}
		closed = &req
		return nil
	})
	if err != nil {
		if _, ok := apperr.As(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("lawyer: approve %s: %w", lawyerID, err)
	}
	if closed != nil {
		s.sink.Record(ctx, notify.Notice{
			UserID:      lawyerID,
			Type:        models.NotifyVerificationApproved,
			Title:       "Account Verified!",
			Message:     "Congratulations! Your account has been verified. You can now edit your hourly rate and your profile will show a verification badge.",
			RelatedID:   closed.ID,
			RelatedType: notify.RelatedUser,
		})
	}
	return profile, nil
}

// Reject closes a pending verification request with reason. An empty
// reason is replaced with a generic one.
func (s *Service) Reject(ctx context.Context, admin *models.User, requestID, reason string) (*models.VerificationRequest, error) {
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) > MaxRejectionReasonLength {
		return nil, apperr.Validationf("rejectionReason must be at most %d characters", MaxRejectionReasonLength)
	}
	stored := reason
	if stored == "" {
		stored = defaultRejectionReason
	}

	var req models.VerificationRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ?", requestID).First(&req).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("Verification request not found")
		}
		if err != nil {
			return err
		}
		if req.Status != models.VerificationPending {
			return apperr.Conflictf("Verification request is already %s", strings.ToLower(string(req.Status)))
		}
		return s.close(tx, &req, admin, models.VerificationRejected, &stored)
	})
	if err != nil {
		if _, ok := apperr.As(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("lawyer: reject %s: %w", requestID, err)
	}

	tail := reason
	if tail == "" {
		tail = "Please review your profile and try again."
	}
	s.sink.Record(ctx, notify.Notice{
		UserID:      req.LawyerID,
		Type:        models.NotifyVerificationRejected,
		Title:       "Verification Request Rejected",
		Message:     "Your verification request has been rejected. " + tail,
		RelatedID:   req.ID,
		RelatedType: notify.RelatedUser,
	})
	return &req, nil
}

// close moves a pending request to status and frees the lawyer's pending
// slot.
func (s *Service) close(tx *gorm.DB, req *models.VerificationRequest, admin *models.User, status models.VerificationStatus, reason *string) error {
	now := s.now()
	reviewer := admin.ID
	req.Status = status
	req.ReviewedAt = &now
	req.ReviewedBy = &reviewer
	req.RejectionReason = reason
	req.PendingKey = nil
	return tx.Model(req).Select("status", "reviewed_at", "reviewed_by", "rejection_reason", "pending_key").
		Updates(req).Error
}
