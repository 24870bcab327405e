// Package appointment implements the appointment lifecycle: the two-party
// confirmation protocol and the chat gate derived from it.
package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sujalkunwar22/backend/internal/apperr"
	"github.com/sujalkunwar22/backend/internal/models"
	"gorm.io/gorm"
)

// ValidTransitions defines the allowed status transitions.
// CANCELLED and COMPLETED have no outgoing edges.
var ValidTransitions = map[models.AppointmentStatus][]models.AppointmentStatus{
	models.StatusPending:   {models.StatusProposed, models.StatusConfirmed, models.StatusCancelled},
	models.StatusProposed:  {models.StatusProposed, models.StatusConfirmed, models.StatusCancelled},
	models.StatusConfirmed: {models.StatusCompleted, models.StatusCancelled},
}

// CanTransition reports whether from -> to is an edge of the state machine.
func CanTransition(from, to models.AppointmentStatus) bool {
	for _, s := range ValidTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// sourcesOf returns every status with an edge into to.
func sourcesOf(to models.AppointmentStatus) []models.AppointmentStatus {
	var out []models.AppointmentStatus
	for _, from := range []models.AppointmentStatus{models.StatusPending, models.StatusProposed, models.StatusConfirmed} {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

// negotiable are the statuses in which a slot is still on the table.
var negotiable = []models.AppointmentStatus{models.StatusPending, models.StatusProposed}

var terminal = []models.AppointmentStatus{models.StatusCancelled, models.StatusCompleted}

// PermitsChat reports whether a conversation attached to an appointment in
// status may carry messages. The same rule serves history and live sends.
func PermitsChat(status models.AppointmentStatus) bool {
	return status == models.StatusConfirmed || status == models.StatusCompleted
}

// CheckChat applies the chat gate to conv. Conversations without an
// appointment, or whose appointment no longer exists, are open.
func (s *Service) CheckChat(ctx context.Context, conv *models.Conversation) error {
	if conv.AppointmentID == nil || *conv.AppointmentID == "" {
		return nil
	}
	var appt models.Appointment
	err := s.db.WithContext(ctx).Select("id", "status").
		Where("id = ?", *conv.AppointmentID).First(&appt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("appointment: chat gate %s: %w", *conv.AppointmentID, err)
	}
	if PermitsChat(appt.Status) {
		return nil
	}
	return apperr.Forbiddenf("Chat is only available after the appointment is confirmed").
		WithCode(apperr.CodeAppointmentNotConfirmed).
		WithField("appointmentStatus", appt.Status)
}

// statusError reports an operation attempted from a status that forbids it.
func statusError(action string, status models.AppointmentStatus) error {
	return apperr.Validationf("Cannot %s %s appointment", action, strings.ToLower(string(status)))
}
