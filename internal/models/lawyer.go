package models

import "time"

// LawyerView is a LAWYER account merged with its professional profile, as
// shown in the public lawyer directory. The profile fields are zero and
// HasProfile is false when the lawyer never completed one.
type LawyerView struct {
	ID               string    `json:"id"`
	FirstName        string    `json:"firstName"`
	LastName         string    `json:"lastName"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone,omitempty"`
	ProfilePicture   string    `json:"profilePicture,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	HasProfile       bool      `json:"hasProfile"`
	BarLicenseNumber string    `json:"barLicenseNumber,omitempty"`
	Specialization   []string  `json:"specialization"`
	Experience       int       `json:"experience"`
	HourlyRate       float64   `json:"hourlyRate"`
	Bio              string    `json:"bio,omitempty"`
	Languages        []string  `json:"languages,omitempty"`
	Rating           float64   `json:"rating"`
	TotalReviews     int       `json:"totalReviews"`
	IsVerified       bool      `json:"isVerified"`
}

// NewLawyerView merges u with p. p may be nil.
func NewLawyerView(u *User, p *LawyerProfile) LawyerView {
	v := LawyerView{
		ID:             u.ID,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Email:          u.Email,
		Phone:          u.Phone,
		ProfilePicture: u.ProfilePicture,
		CreatedAt:      u.CreatedAt,
		Specialization: []string{},
	}
	if p == nil {
		return v
	}
	v.HasProfile = true
	v.BarLicenseNumber = p.BarLicenseNumber
	if p.Specialization != nil {
		v.Specialization = p.Specialization
	}
	v.Experience = p.Experience
	v.HourlyRate = p.HourlyRate
	v.Bio = p.Bio
	v.Languages = p.Languages
	v.Rating = p.Rating
	v.TotalReviews = p.TotalReviews
	v.IsVerified = p.IsVerified
	return v
}
