// Package account manages user records: registration, login and lookups.
package account

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/sujalkunwar22/backend/internal/apperr"
	"github.com/sujalkunwar22/backend/internal/auth"
	"github.com/sujalkunwar22/backend/internal/db"
	"github.com/sujalkunwar22/backend/internal/models"
	"gorm.io/gorm"
)

// LawyerDetails is the optional professional profile supplied at signup.
type LawyerDetails struct {
	BarLicenseNumber string   `json:"barLicenseNumber"`
	Specialization   []string `json:"specialization"`
	Experience       *int     `json:"experience"`
	HourlyRate       *float64 `json:"hourlyRate"`
	Bio              string   `json:"bio"`
	Languages        []string `json:"languages"`
}

// complete reports whether enough was supplied to create a profile.
func (d *LawyerDetails) complete() bool {
	return d != nil && d.BarLicenseNumber != "" && len(d.Specialization) > 0 &&
		d.Experience != nil && d.HourlyRate != nil
}

// RegisterInput is the signup request.
type RegisterInput struct {
	Email           string         `json:"email"`
	Password        string         `json:"password"`
	Role            models.Role    `json:"role"`
	FirstName       string         `json:"firstName"`
	LastName        string         `json:"lastName"`
	Phone           string         `json:"phone"`
	AcceptedTerms   bool           `json:"acceptedTerms"`
	AcceptedPrivacy bool           `json:"acceptedPrivacy"`
	LawyerData      *LawyerDetails `json:"lawyerData"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (in *RegisterInput) validate() error {
	var errs []string
	if _, err := mail.ParseAddress(in.Email); err != nil {
		errs = append(errs, "valid email is required")
	}
	if len(in.Password) < auth.MinPasswordLength {
		errs = append(errs, fmt.Sprintf("password must be at least %d characters", auth.MinPasswordLength))
	}
	if strings.TrimSpace(in.FirstName) == "" {
		errs = append(errs, "firstName is required")
	}
	if strings.TrimSpace(in.LastName) == "" {
		errs = append(errs, "lastName is required")
	}
	if len(errs) > 0 {
		return apperr.Validationf("Validation errors: %s", strings.Join(errs, "; "))
	}
	if !in.AcceptedTerms || !in.AcceptedPrivacy {
		return apperr.Validationf("You must accept both the Terms of Service and Privacy Policy to register")
	}
	if in.Role != models.RoleClient && in.Role != models.RoleLawyer {
		return apperr.Validationf("Invalid role. Must be CLIENT or LAWYER")
	}
	return nil
}

// Register creates a CLIENT or LAWYER account. A lawyer profile is created
// only when the lawyer details are complete.
func Register(ctx context.Context, gormDB *gorm.DB, in RegisterInput) (*models.User, error) {
	in.Email = normalizeEmail(in.Email)
	if err := in.validate(); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Wrap(err, "account: register")
	}
	user := &models.User{
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Phone:        in.Phone,
	}

	err = gormDB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			if db.IsDuplicateKey(err) {
				return apperr.Conflictf("User with this email already exists")
			}
			return fmt.Errorf("account: create user: %w", err)
		}
		if in.Role != models.RoleLawyer || !in.LawyerData.complete() {
			return nil
		}
		d := in.LawyerData
		profile := &models.LawyerProfile{
			UserID:           user.ID,
			BarLicenseNumber: d.BarLicenseNumber,
			Specialization:   d.Specialization,
			Experience:       *d.Experience,
			HourlyRate:       *d.HourlyRate,
			Bio:              d.Bio,
			Languages:        d.Languages,
		}
		if err := tx.Create(profile).Error; err != nil {
			if db.IsDuplicateKey(err) {
				return apperr.Conflictf("Bar license number is already registered")
			}
			return fmt.Errorf("account: create lawyer profile: %w", err)
		}
		user.LawyerProfile = profile
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Login checks credentials and returns the matching active user.
func Login(ctx context.Context, gormDB *gorm.DB, email, password string) (*models.User, error) {
	var user models.User
	err := gormDB.WithContext(ctx).Preload("LawyerProfile").
		Where("email = ?", normalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unauthenticatedf("Invalid email or password")
	}
	if err != nil {
		return nil, fmt.Errorf("account: login: %w", err)
	}
	if !user.IsActive {
		return nil, apperr.Unauthenticatedf("Account is inactive. Please contact support.")
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, apperr.Unauthenticatedf("Invalid email or password")
	}
	return &user, nil
}

// Get loads a user with their lawyer profile, if any.
func Get(ctx context.Context, gormDB *gorm.DB, id string) (*models.User, error) {
	var user models.User
	err := gormDB.WithContext(ctx).Preload("LawyerProfile").Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("account: get %s: %w", id, err)
	}
	return &user, nil
}

// FindActiveLawyer loads id and requires it to be an active LAWYER account.
func FindActiveLawyer(ctx context.Context, gormDB *gorm.DB, id string) (*models.User, error) {
	var user models.User
	err := gormDB.WithContext(ctx).
		Where("id = ? AND role = ? AND is_active = ?", id, models.RoleLawyer, true).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("Lawyer not found")
	}
	if err != nil {
		return nil, fmt.Errorf("account: find lawyer %s: %w", id, err)
	}
	return &user, nil
}

// CreateAdmin creates an ADMIN account, or promotes and resets the password
// of an existing account with the same email.
func CreateAdmin(ctx context.Context, gormDB *gorm.DB, email, password, firstName, lastName string) (*models.User, bool, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, false, apperr.Validationf("valid email is required")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, false, apperr.Validationf("password must be at least %d characters", auth.MinPasswordLength)
	}

	var user models.User
	created := false
	err = gormDB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("email = ?", email).First(&user).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			user = models.User{
				Email:        email,
				PasswordHash: hash,
				Role:         models.RoleAdmin,
				FirstName:    firstName,
				LastName:     lastName,
			}
			created = true
			return tx.Create(&user).Error
		case err != nil:
			return err
		}
		user.Role = models.RoleAdmin
		user.PasswordHash = hash
		user.IsActive = true
		return tx.Model(&user).Updates(map[string]interface{}{
			"role":          models.RoleAdmin,
			"password_hash": hash,
			"is_active":     true,
		}).Error
	})
	if err != nil {
		return nil, false, fmt.Errorf("account: create admin: %w", err)
	}
	return &user, created, nil
}
