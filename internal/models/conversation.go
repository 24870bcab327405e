package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation binds exactly two participants. ParticipantA sorts before
// ParticipantB, and PairKey is unique so a pair owns at most one row.
type Conversation struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	ParticipantA  string    `gorm:"size:36;not null;index" json:"-"`
	ParticipantB  string    `gorm:"size:36;not null;index" json:"-"`
	PairKey       string    `gorm:"size:80;not null;uniqueIndex" json:"-"`
	AppointmentID *string   `gorm:"size:36;index" json:"appointmentId"`
	LastMessageID *uint     `json:"lastMessageId"`
	LastMessageAt time.Time `gorm:"index" json:"lastMessageAt"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// BeforeCreate assigns a UUID when the caller did not supply one.
func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// PairKey returns the order-insensitive key for a participant pair.
func PairKey(a, b string) string {
	p := []string{a, b}
	sort.Strings(p)
	return p[0] + ":" + p[1]
}

// SortedPair returns a and b in ascending order.
func SortedPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// Participants returns both participant ids.
func (c *Conversation) Participants() []string {
	return []string{c.ParticipantA, c.ParticipantB}
}

// Has reports whether userID participates in c.
func (c *Conversation) Has(userID string) bool {
	return userID != "" && (c.ParticipantA == userID || c.ParticipantB == userID)
}

// Other returns the participant that is not userID.
func (c *Conversation) Other(userID string) string {
	if c.ParticipantA == userID {
		return c.ParticipantB
	}
	return c.ParticipantA
}
