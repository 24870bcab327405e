package appointment

import (
	"context"
	"time"

	"github.com/sujalkunwar22/backend/internal/models"
	"github.com/sujalkunwar22/backend/internal/notify"
	"github.com/sujalkunwar22/backend/internal/opsfeed"
)

// EventUpdate is the live event pushed to the non-acting party.
const EventUpdate = "appointmentUpdate"

// feedTimeout bounds one ops feed post.
const feedTimeout = 10 * time.Second

// UpdatePayload is the body of an appointmentUpdate event.
type UpdatePayload struct {
	Type        string              `json:"type"`
	Appointment *models.Appointment `json:"appointment"`
}

// change describes the side effects of one transition.
type change struct {
	recipient string
	kind      models.NotificationType
	event     string
	title     string
	message   string
	color     string
}

// announce notifies the other party, pushes the live update and posts to the
// ops feed. All three are best-effort.
func (s *Service) announce(ctx context.Context, appt *models.Appointment, actor *models.User, c change) {
	s.sink.Record(ctx, notify.Notice{
		UserID:      c.recipient,
		Type:        c.kind,
		Title:       c.title,
		Message:     c.message,
		RelatedID:   appt.ID,
		RelatedType: notify.RelatedAppointment,
	})
	if s.events != nil {
		s.events.ToUser(c.recipient, EventUpdate, UpdatePayload{Type: c.event, Appointment: appt})
	}

	entry := opsfeed.Entry{
		Title: c.title,
		Body:  c.message,
		Color: c.color,
		Fields: []opsfeed.Field{
			{Name: "Appointment", Value: appt.ID, Short: true},
			{Name: "Status", Value: string(appt.Status), Short: true},
			{Name: "By", Value: actor.FullName() + " (" + string(actor.Role) + ")", Short: true},
		},
	}
	go func() {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), feedTimeout)
		defer cancel()
		s.feed.Post(fctx, entry)
	}()
}
