package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AppointmentStatus is a state of the appointment lifecycle.
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "PENDING"
	StatusProposed  AppointmentStatus = "PROPOSED"
	StatusConfirmed AppointmentStatus = "CONFIRMED"
	StatusCancelled AppointmentStatus = "CANCELLED"
	StatusCompleted AppointmentStatus = "COMPLETED"
)

// Terminal reports whether no further transition can leave s.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// Appointment is one scheduling negotiation between a client and a lawyer.
type Appointment struct {
	ID                 string            `gorm:"primaryKey;size:36" json:"id"`
	ClientID           string            `gorm:"size:36;not null;index:idx_appt_client_created" json:"clientId"`
	LawyerID           string            `gorm:"size:36;not null;index:idx_appt_lawyer_created" json:"lawyerId"`
	Status             AppointmentStatus `gorm:"size:16;not null;default:PENDING;index" json:"status"`
	ProposedDate       time.Time         `gorm:"not null" json:"proposedDate"`
	ProposedTime       string            `gorm:"size:16;not null" json:"proposedTime"`
	ConfirmedDate      *time.Time        `gorm:"index" json:"confirmedDate"`
	ConfirmedTime      *string           `gorm:"size:16" json:"confirmedTime"`
	Reason             string            `gorm:"size:500;not null" json:"reason"`
	Notes              string            `gorm:"size:1000" json:"notes,omitempty"`
	ClientConfirmation bool              `gorm:"default:false" json:"clientConfirmation"`
	LawyerConfirmation bool              `gorm:"default:false" json:"lawyerConfirmation"`
	MeetingLink        *string           `gorm:"size:512" json:"meetingLink"`
	ConversationID     *string           `gorm:"size:36" json:"conversationId"`
	CreatedAt          time.Time         `gorm:"index:idx_appt_client_created;index:idx_appt_lawyer_created" json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`

	Client *User `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Lawyer *User `gorm:"foreignKey:LawyerID" json:"lawyer,omitempty"`
}

// BeforeCreate assigns a UUID when the caller did not supply one.
func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// IsParty reports whether userID is the client or the lawyer of a.
func (a *Appointment) IsParty(userID string) bool {
	return userID != "" && (a.ClientID == userID || a.LawyerID == userID)
}

// OtherParty returns the participant opposite userID.
func (a *Appointment) OtherParty(userID string) string {
	if a.ClientID == userID {
		return a.LawyerID
	}
	return a.ClientID
}
