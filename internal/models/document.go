package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DocumentCategory classifies an uploaded document.
type DocumentCategory string

const (
	CategoryContract      DocumentCategory = "contract"
	CategoryLegalDocument DocumentCategory = "legal_document"
	CategoryEvidence      DocumentCategory = "evidence"
	CategoryOther         DocumentCategory = "other"
)

// Valid reports whether c is a known category.
func (c DocumentCategory) Valid() bool {
	switch c {
	case CategoryContract, CategoryLegalDocument, CategoryEvidence, CategoryOther:
		return true
	}
	return false
}

// Document is one uploaded file record. Several records may point at the
// same stored blob when an owner uploads identical content twice.
type Document struct {
	ID            string           `gorm:"primaryKey;size:36" json:"id"`
	OwnerID       string           `gorm:"size:36;not null;index:idx_doc_owner_size;index:idx_doc_owner_created" json:"ownerId"`
	AppointmentID *string          `gorm:"size:36;index" json:"appointmentId"`
	FileName      string           `gorm:"size:255;not null" json:"fileName"`
	OriginalName  string           `gorm:"size:255;not null" json:"originalName"`
	FilePath      string           `gorm:"size:512;not null;index" json:"-"`
	FileSize      int64            `gorm:"not null;index:idx_doc_owner_size" json:"fileSize"`
	ContentHash   string           `gorm:"size:32;not null" json:"-"`
	MimeType      string           `gorm:"size:128" json:"mimeType"`
	Description   string           `gorm:"size:500" json:"description"`
	Category      DocumentCategory `gorm:"size:32;not null;default:other" json:"category"`
	IsShared      bool             `gorm:"default:false" json:"isShared"`
	SharedWithID  *string          `gorm:"size:36;index" json:"sharedWithId"`
	CreatedAt     time.Time        `gorm:"index:idx_doc_owner_created" json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`

	Owner *User `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
}

// BeforeCreate assigns a UUID when the caller did not supply one.
func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// VisibleTo reports whether userID owns d or it was shared with them.
func (d *Document) VisibleTo(userID string) bool {
	if d.OwnerID == userID {
		return true
	}
	return d.IsShared && d.SharedWithID != nil && *d.SharedWithID == userID
}
