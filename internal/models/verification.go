package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VerificationStatus is the state of a lawyer's verification request.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "PENDING"
	VerificationApproved VerificationStatus = "APPROVED"
	VerificationRejected VerificationStatus = "REJECTED"
)

// Valid reports whether s is a known status.
func (s VerificationStatus) Valid() bool {
	switch s {
	case VerificationPending, VerificationApproved, VerificationRejected:
		return true
	}
	return false
}

// VerificationRequest asks an admin to verify a lawyer's credentials.
// PendingKey holds the lawyer id while the request is PENDING and is nil
// afterwards, so the unique index admits one open request per lawyer.
type VerificationRequest struct {
	ID              string             `gorm:"primaryKey;size:36" json:"id"`
	LawyerID        string             `gorm:"size:36;not null;index" json:"lawyerId"`
	Status          VerificationStatus `gorm:"size:16;not null;default:PENDING;index" json:"status"`
	PendingKey      *string            `gorm:"size:36;uniqueIndex" json:"-"`
	SubmittedAt     time.Time          `gorm:"not null;index" json:"submittedAt"`
	ReviewedAt      *time.Time         `json:"reviewedAt"`
	ReviewedBy      *string            `gorm:"size:36" json:"reviewedBy"`
	RejectionReason *string            `gorm:"size:500" json:"rejectionReason"`
	Notes           string             `gorm:"size:1000" json:"notes,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`

	Lawyer *User `gorm:"foreignKey:LawyerID" json:"lawyer,omitempty"`
}

// BeforeCreate assigns a UUID when the caller did not supply one.
func (v *VerificationRequest) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}
