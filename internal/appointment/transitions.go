package appointment

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sujalkunwar22/backend/internal/apperr"
	"github.com/sujalkunwar22/backend/internal/models"
	"github.com/sujalkunwar22/backend/internal/opsfeed"
	"gorm.io/gorm"
)

// apply updates id only while its status is one of from, and reports
// whether the row was eligible. MySQL counts unchanged rows as unaffected,
// so a miss is confirmed by re-reading before it is reported.
func (s *Service) apply(ctx context.Context, id string, from []models.AppointmentStatus, updates map[string]interface{}) (bool, error) {
	updates["updated_at"] = s.now()
	res := s.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("appointment: update %s: %w", id, res.Error)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	cur, err := s.load(ctx, id)
	if err != nil {
		return false, err
	}
	return hasStatus(from, cur.Status), nil
}

func hasStatus(set []models.AppointmentStatus, s models.AppointmentStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// stale reports a transition that lost a race with another one.
func (s *Service) stale(ctx context.Context, id, action string) error {
	cur, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	return statusError(action, cur.Status)
}

// loadOwned loads id and checks actor holds role and is that appointment's
// party in that role. Identity is compared, not just role.
func (s *Service) loadOwned(ctx context.Context, id string, actor *models.User, role models.Role, roleMsg, ownMsg string) (*models.Appointment, error) {
	if actor.Role != role {
		return nil, apperr.Forbiddenf("%s", roleMsg)
	}
	appt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	owner := appt.ClientID
	if role == models.RoleLawyer {
		owner = appt.LawyerID
	}
	if owner != actor.ID {
		return nil, apperr.Forbiddenf("%s", ownMsg)
	}
	return appt, nil
}

// Propose puts a new slot on the table and clears both confirmations.
func (s *Service) Propose(ctx context.Context, actor *models.User, id string, in ProposeInput) (*models.Appointment, error) {
	appt, err := s.loadOwned(ctx, id, actor, models.RoleLawyer,
		"Only lawyers can propose appointment times",
		"You can only propose times for your own appointments")
	if err != nil {
		return nil, err
	}
	date, clock, err := parseSlot(in.ProposedDate, in.ProposedTime)
	if err != nil {
		return nil, err
	}
	const action = "propose time for"
	if !CanTransition(appt.Status, models.StatusProposed) {
		return nil, statusError(action, appt.Status)
	}
	ok, err := s.apply(ctx, id, sourcesOf(models.StatusProposed), map[string]interface{}{
		"status":              models.StatusProposed,
		"proposed_date":       date,
		"proposed_time":       clock,
		"client_confirmation": false,
		"lawyer_confirmation": false,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.stale(ctx, id, action)
	}

	out, err := s.loadParties(ctx, id)
	if err != nil {
		return nil, err
	}
	s.announce(ctx, out, actor, change{
		recipient: out.ClientID,
		kind:      models.NotifyAppointmentProposed,
		event:     "APPOINTMENT_PROPOSED",
		title:     "Appointment Time Proposed",
		message: fmt.Sprintf("%s proposed a new time for your appointment: %s at %s",
			actor.FullName(), date.Format(dateLayout), clock),
		color: opsfeed.ColorInfo,
	})
	return out, nil
}

// Confirm records the actor's agreement to the slot on the table. The
// confirmation that completes the pair promotes the appointment to
// CONFIRMED. Each party writes only its own flag and promotion is one
// conditional update: of two concurrent confirms exactly one promotes.
func (s *Service) Confirm(ctx context.Context, actor *models.User, id string) (*models.Appointment, error) {
	appt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	var flag string
	switch actor.ID {
	case appt.ClientID:
		flag = "client_confirmation"
	case appt.LawyerID:
		flag = "lawyer_confirmation"
	default:
		return nil, apperr.Forbiddenf("You are not authorized to confirm this appointment")
	}
	const action = "confirm"
	if appt.Status.Terminal() {
		return nil, statusError(action, appt.Status)
	}

	open := append(append([]models.AppointmentStatus{}, negotiable...), models.StatusConfirmed)
	res := s.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("id = ? AND status IN ? AND "+flag+" = ?", id, open, false).
		Updates(map[string]interface{}{flag: true, "updated_at": s.now()})
	if res.Error != nil {
		return nil, fmt.Errorf("appointment: confirm %s: %w", id, res.Error)
	}
	flagged := res.RowsAffected > 0
	if !flagged {
		cur, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if cur.Status.Terminal() {
			return nil, statusError(action, cur.Status)
		}
	}

	res = s.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("id = ? AND status IN ? AND client_confirmation = ? AND lawyer_confirmation = ?", id, negotiable, true, true).
		Updates(map[string]interface{}{
			"status":         models.StatusConfirmed,
			"confirmed_date": gorm.Expr("proposed_date"),
			"confirmed_time": gorm.Expr("proposed_time"),
			"updated_at":     s.now(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("appointment: promote %s: %w", id, res.Error)
	}
	promoted := res.RowsAffected > 0

	out, err := s.loadParties(ctx, id)
	if err != nil {
		return nil, err
	}
	if !flagged && !promoted {
		return out, nil
	}

	c := change{
		recipient: out.OtherParty(actor.ID),
		kind:      models.NotifyAppointmentUpdate,
		event:     "APPOINTMENT_UPDATE",
		title:     "Appointment Confirmation Update",
		message:   fmt.Sprintf("%s confirmed the appointment", actor.FullName()),
		color:     opsfeed.ColorInfo,
	}
	if promoted {
		c.kind = models.NotifyAppointmentConfirmed
		c.event = "APPOINTMENT_CONFIRMED"
		c.title = "Appointment Confirmed"
		c.message = fmt.Sprintf("Your appointment with %s is confirmed", actor.FullName())
		c.color = opsfeed.ColorSuccess
	}
	s.announce(ctx, out, actor, c)
	return out, nil
}

// Accept confirms the appointment on the lawyer's word alone. Both flags are
// set so every CONFIRMED appointment carries both confirmations.
func (s *Service) Accept(ctx context.Context, actor *models.User, id string) (*models.Appointment, error) {
	appt, err := s.loadOwned(ctx, id, actor, models.RoleLawyer,
		"Only lawyers can accept appointments",
		"You can only accept your own appointments")
	if err != nil {
		return nil, err
	}
	const action = "accept"
	if !CanTransition(appt.Status, models.StatusConfirmed) {
		return nil, statusError(action, appt.Status)
	}
	ok, err := s.apply(ctx, id, negotiable, map[string]interface{}{
		"status":              models.StatusConfirmed,
		"lawyer_confirmation": true,
		"client_confirmation": true,
		"confirmed_date":      gorm.Expr("proposed_date"),
		"confirmed_time":      gorm.Expr("proposed_time"),
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.stale(ctx, id, action)
	}

	out, err := s.loadParties(ctx, id)
	if err != nil {
		return nil, err
	}
	s.announce(ctx, out, actor, change{
		recipient: out.ClientID,
		kind:      models.NotifyAppointmentConfirmed,
		event:     "APPOINTMENT_CONFIRMED",
		title:     "Appointment Accepted",
		message:   fmt.Sprintf("%s accepted your appointment request", actor.FullName()),
		color:     opsfeed.ColorSuccess,
	})
	return out, nil
}

// Reject cancels the appointment from any non-terminal status.
func (s *Service) Reject(ctx context.Context, actor *models.User, id, reason string) (*models.Appointment, error) {
	appt, err := s.loadOwned(ctx, id, actor, models.RoleLawyer,
		"Only lawyers can reject appointments",
		"You can only reject your own appointments")
	if err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) > MaxReasonLength {
		return nil, apperr.Validationf("rejectionReason must be at most %d characters", MaxReasonLength)
	}
	const action = "reject"
	if !CanTransition(appt.Status, models.StatusCancelled) {
		return nil, statusError(action, appt.Status)
	}
	ok, err := s.apply(ctx, id, sourcesOf(models.StatusCancelled), map[string]interface{}{
		"status": models.StatusCancelled,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.stale(ctx, id, action)
	}

	out, err := s.loadParties(ctx, id)
	if err != nil {
		return nil, err
	}
	msg := fmt.Sprintf("%s rejected your appointment request", actor.FullName())
	if reason != "" {
		msg += ": " + reason
	}
	s.announce(ctx, out, actor, change{
		recipient: out.ClientID,
		kind:      models.NotifyAppointmentCancelled,
		event:     "APPOINTMENT_REJECTED",
		title:     "Appointment Rejected",
		message:   msg,
		color:     opsfeed.ColorDanger,
	})
	return out, nil
}

// Cancel lets the client withdraw a request that is still being negotiated.
func (s *Service) Cancel(ctx context.Context, actor *models.User, id string) (*models.Appointment, error) {
	appt, err := s.loadOwned(ctx, id, actor, models.RoleClient,
		"Only clients can cancel appointment requests",
		"You can only cancel your own appointments")
	if err != nil {
		return nil, err
	}
	const action = "cancel"
	if !hasStatus(negotiable, appt.Status) {
		return nil, statusError(action, appt.Status)
	}
	ok, err := s.apply(ctx, id, negotiable, map[string]interface{}{
		"status": models.StatusCancelled,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.stale(ctx, id, action)
	}

	out, err := s.loadParties(ctx, id)
	if err != nil {
		return nil, err
	}
	s.announce(ctx, out, actor, change{
		recipient: out.LawyerID,
		kind:      models.NotifyAppointmentCancelled,
		event:     "APPOINTMENT_CANCELLED",
		title:     "Appointment Cancelled",
		message:   fmt.Sprintf("%s cancelled the appointment request", actor.FullName()),
		color:     opsfeed.ColorWarning,
	})
	return out, nil
}

// Complete closes a confirmed consultation.
func (s *Service) Complete(ctx context.Context, actor *models.User, id string) (*models.Appointment, error) {
	appt, err := s.loadOwned(ctx, id, actor, models.RoleLawyer,
		"Only lawyers can complete consultations",
		"You can only complete your own consultations")
	if err != nil {
		return nil, err
	}
	if appt.Status != models.StatusConfirmed {
		return nil, apperr.Validationf("Only confirmed appointments can be completed")
	}
	ok, err := s.apply(ctx, id, sourcesOf(models.StatusCompleted), map[string]interface{}{
		"status": models.StatusCompleted,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Validationf("Only confirmed appointments can be completed")
	}

	out, err := s.loadParties(ctx, id)
	if err != nil {
		return nil, err
	}
	s.announce(ctx, out, actor, change{
		recipient: out.ClientID,
		kind:      models.NotifyAppointmentCompleted,
		event:     "APPOINTMENT_COMPLETED",
		title:     "Consultation Completed",
		message:   fmt.Sprintf("%s marked your consultation as completed", actor.FullName()),
		color:     opsfeed.ColorSuccess,
	})
	return out, nil
}
