package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// Review is a client's rating of a lawyer, optionally tied to one
// appointment. AppointmentKey is the appointment id or "" so the unique
// index also covers reviews without an appointment.
type Review struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	LawyerID       string    `gorm:"size:36;not null;uniqueIndex:idx_review_pair_appt;index:idx_review_lawyer_created" json:"lawyerId"`
	ClientID       string    `gorm:"size:36;not null;uniqueIndex:idx_review_pair_appt;index" json:"clientId"`
	AppointmentKey string    `gorm:"size:36;not null;default:'';uniqueIndex:idx_review_pair_appt" json:"-"`
	AppointmentID  *string   `gorm:"size:36" json:"appointmentId"`
	Rating         int       `gorm:"not null" json:"rating"`
	Comment        string    `gorm:"size:1000" json:"comment,omitempty"`
	IsVisible      bool      `gorm:"default:true;index" json:"isVisible"`
	CreatedAt      time.Time `gorm:"index:idx_review_lawyer_created" json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`

	Client *User `gorm:"foreignKey:ClientID" json:"-"`
	Lawyer *User `gorm:"foreignKey:LawyerID" json:"-"`
}

// BeforeCreate assigns a UUID and derives AppointmentKey.
func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.AppointmentID != nil {
		r.AppointmentKey = *r.AppointmentID
	}
	return nil
}
