// Package models holds the GORM models persisted by the consultation service.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the account type of a user.
type Role string

const (
	RoleClient Role = "CLIENT"
	RoleLawyer Role = "LAWYER"
	RoleAdmin  Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleLawyer, RoleAdmin:
		return true
	}
	return false
}

// User is an account on the marketplace. PasswordHash never leaves the server.
type User struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	Email          string    `gorm:"size:190;uniqueIndex;not null" json:"email"`
	PasswordHash   string    `gorm:"size:255;not null" json:"-"`
	Role           Role      `gorm:"size:16;not null;index" json:"role"`
	FirstName      string    `gorm:"size:64;not null" json:"firstName"`
	LastName       string    `gorm:"size:64;not null" json:"lastName"`
	Phone          string    `gorm:"size:32" json:"phone,omitempty"`
	ProfilePicture string    `gorm:"size:512" json:"profilePicture,omitempty"`
	IsActive       bool      `gorm:"default:true;index" json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`

	LawyerProfile *LawyerProfile `gorm:"foreignKey:UserID" json:"lawyerProfile,omitempty"`
}

// BeforeCreate assigns a UUID when the caller did not supply one.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// Public returns the fields safe to show to other participants.
func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:             u.ID,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		ProfilePicture: u.ProfilePicture,
	}
}

// PublicProfile is the view of a user inlined into chat payloads.
type PublicProfile struct {
	ID             string `json:"id"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

// LawyerProfile carries the professional details of a LAWYER account.
type LawyerProfile struct {
	ID               uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID           string    `gorm:"size:36;uniqueIndex;not null" json:"userId"`
	BarLicenseNumber string    `gorm:"size:64;uniqueIndex;not null" json:"barLicenseNumber"`
	Specialization   []string  `gorm:"serializer:json" json:"specialization"`
	Experience       int       `json:"experience"`
	HourlyRate       float64   `json:"hourlyRate"`
	Bio              string    `gorm:"size:1000" json:"bio,omitempty"`
	Languages        []string  `gorm:"serializer:json" json:"languages,omitempty"`
	Rating           float64   `gorm:"default:0;index" json:"rating"`
	TotalReviews     int       `gorm:"default:0" json:"totalReviews"`
	IsVerified       bool      `gorm:"default:false" json:"isVerified"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
