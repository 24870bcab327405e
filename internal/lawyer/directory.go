// Package lawyer serves the public lawyer directory, lawyers' upkeep of
// their own profile and the admin verification workflow.
package lawyer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sujalkunwar22/backend/internal/account"
	"github.com/sujalkunwar22/backend/internal/apperr"
	"github.com/sujalkunwar22/backend/internal/db"
	"github.com/sujalkunwar22/backend/internal/models"
	"github.com/sujalkunwar22/backend/internal/notify"
	"github.com/sujalkunwar22/backend/internal/opsfeed"
	"github.com/sujalkunwar22/backend/internal/paging"
	"gorm.io/gorm"
)

// Directory page sizes.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// MaxBioLength bounds a profile bio.
const MaxBioLength = 1000

// feedTimeout bounds one ops feed post.
const feedTimeout = 10 * time.Second

// Specializations are the practice areas a profile may list.
var Specializations = []string{
	"Criminal Law",
	"Civil Law",
	"Corporate Law",
	"Family Law",
	"Property Law",
	"Tax Law",
	"Immigration Law",
	"Labor Law",
	"Intellectual Property",
	"Constitutional Law",
	"Other",
}

func knownSpecialization(s string) bool {
	for _, v := range Specializations {
		if v == s {
			return true
		}
	}
	return false
}

// Options wires the collaborators of a Service. Nil fields are skipped.
type Options struct {
	Sink *notify.Sink
	Feed opsfeed.Feed
	Now  func() time.Time
}

// Service runs lawyer directory and verification operations.
type Service struct {
	db   *gorm.DB
	sink *notify.Sink
	feed opsfeed.Feed
	now  func() time.Time
}

// NewService returns a Service over db.
func NewService(db *gorm.DB, opts Options) *Service {
	s := &Service{db: db, sink: opts.Sink, feed: opts.Feed, now: opts.Now}
	if s.feed == nil {
		s.feed = opsfeed.Nop{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// ListFilter narrows the directory.
type ListFilter struct {
	Search         string
	Specialization string
	MinRating      float64
}

// Page is one page of the directory.
type Page struct {
	Lawyers    []models.LawyerView `json:"lawyers"`
	Pagination paging.Pagination   `json:"pagination"`
}

// escapeLike escapes s for a LIKE pattern using '!' as the escape byte.
func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}

// List returns active lawyers, newest accounts first. Search matches first
// name, last name or email. The profile filters drop lawyers without a
// profile.
func (s *Service) List(ctx context.Context, f ListFilter, page, limit int) (*Page, error) {
	page, limit = paging.Normalize(page, limit, DefaultLimit, MaxLimit)
	q := s.db.WithContext(ctx).Model(&models.User{}).
		Where("users.role = ? AND users.is_active = ?", models.RoleLawyer, true)
	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		like := "%" + escapeLike(search) + "%"
		q = q.Where("(LOWER(users.first_name) LIKE ? ESCAPE '!' OR LOWER(users.last_name) LIKE ? ESCAPE '!' OR LOWER(users.email) LIKE ? ESCAPE '!')",
			like, like, like)
	}
	if f.Specialization != "" || f.MinRating > 0 {
		q = q.Joins("JOIN lawyer_profiles ON lawyer_profiles.user_id = users.id")
		if f.Specialization != "" {
			quoted, err := json.Marshal(f.Specialization)
			if err != nil {
				return nil, fmt.Errorf("lawyer: encode specialization: %w", err)
			}
			q = q.Where("lawyer_profiles.specialization LIKE ? ESCAPE '!'", "%"+escapeLike(string(quoted))+"%")
		}
		if f.MinRating > 0 {
			q = q.Where("lawyer_profiles.rating >= ?", f.MinRating)
		}
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("lawyer: count: %w", err)
	}
	var users []models.User
	err := q.Session(&gorm.Session{}).Select("users.*").
		Order("users.created_at DESC").Order("users.id DESC").
		Offset(paging.Offset(page, limit)).Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("lawyer: list: %w", err)
	}
	profiles, err := s.profilesFor(ctx, users)
	if err != nil {
		return nil, err
	}

	out := &Page{Lawyers: make([]models.LawyerView, 0, len(users))}
	for i := range users {
		out.Lawyers = append(out.Lawyers, models.NewLawyerView(&users[i], profiles[users[i].ID]))
	}
	out.Pagination = paging.New(page, limit, total)
	return out, nil
}

// profilesFor loads the profiles of users in one query, keyed by user id.
func (s *Service) profilesFor(ctx context.Context, users []models.User) (map[string]*models.LawyerProfile, error) {
	out := make(map[string]*models.LawyerProfile, len(users))
	if len(users) == 0 {
		return out, nil
	}
	ids := make([]string, len(users))
	for i := range users {
		ids[i] = users[i].ID
	}
	var profiles []models.LawyerProfile
	if err := s.db.WithContext(ctx).Where("user_id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("lawyer: load profiles: %w", err)
	}
	for i := range profiles {
		out[profiles[i].UserID] = &profiles[i]
	}
	return out, nil
}

// Get returns one active lawyer who has completed a profile.
func (s *Service) Get(ctx context.Context, id string) (*models.LawyerView, error) {
	user, err := account.FindActiveLawyer(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	profile, err := s.profile(ctx, s.db, user.ID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, apperr.NotFoundf("Lawyer not found")
	}
	v := models.NewLawyerView(user, profile)
	return &v, nil
}

// profile returns userID's profile, or nil when there is none.
func (s *Service) profile(ctx context.Context, tx *gorm.DB, userID string) (*models.LawyerProfile, error) {
	var p models.LawyerProfile
	err := tx.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lawyer: load profile %s: %w", userID, err)
	}
	return &p, nil
}

// ProfileInput is a lawyer's profile edit. Nil fields are left unchanged.
type ProfileInput struct {
	BarLicenseNumber *string  `json:"barLicenseNumber"`
	Specialization   []string `json:"specialization"`
	Experience       *int     `json:"experience"`
	HourlyRate       *float64 `json:"hourlyRate"`
	Bio              *string  `json:"bio"`
	Languages        []string `json:"languages"`
}

func (in *ProfileInput) validate() error {
	for _, sp := range in.Specialization {
		if !knownSpecialization(sp) {
			return apperr.Validationf("Unknown specialization %q", sp)
		}
	}
	if in.Experience != nil && *in.Experience < 0 {
		return apperr.Validationf("Years of experience must not be negative")
	}
	if in.HourlyRate != nil && *in.HourlyRate < 0 {
		return apperr.Validationf("Hourly rate must be a positive number")
	}
	if in.Bio != nil && utf8.RuneCountInString(*in.Bio) > MaxBioLength {
		return apperr.Validationf("bio must be at most %d characters", MaxBioLength)
	}
	if in.BarLicenseNumber != nil && strings.TrimSpace(*in.BarLicenseNumber) == "" {
		return apperr.Validationf("Bar license number is required")
	}
	return nil
}

// newProfile checks in carries everything a first profile needs.
func (in *ProfileInput) newProfile(userID string) (*models.LawyerProfile, error) {
	switch {
	case len(in.Specialization) == 0:
		return nil, apperr.Validationf("At least one specialization is required")
	case in.Experience == nil:
		return nil, apperr.Validationf("Years of experience is required")
	case in.HourlyRate == nil:
		return nil, apperr.Validationf("Hourly rate is required")
	case in.BarLicenseNumber == nil:
		return nil, apperr.Validationf("Bar license number is required")
	}
	p := &models.LawyerProfile{
		UserID:           userID,
		BarLicenseNumber: strings.TrimSpace(*in.BarLicenseNumber),
		Specialization:   in.Specialization,
		Experience:       *in.Experience,
		HourlyRate:       *in.HourlyRate,
		Languages:        in.Languages,
	}
	if in.Bio != nil {
		p.Bio = *in.Bio
	}
	return p, nil
}

// UpdateProfile creates lawyer's profile on first use and edits it after.
// An unverified lawyer may set the hourly rate only when creating it.
func (s *Service) UpdateProfile(ctx context.Context, lawyer *models.User, in ProfileInput) (*models.LawyerView, error) {
	if lawyer.Role != models.RoleLawyer {
		return nil, apperr.Forbiddenf("Only lawyers can update their profile")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	var saved *models.LawyerProfile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.profile(ctx, tx, lawyer.ID)
		if err != nil {
			return err
		}
		if p == nil {
			p, err = in.newProfile(lawyer.ID)
			if err != nil {
				return err
			}
			saved = p
			return tx.Create(p).Error
		}
		if in.HourlyRate != nil && !p.IsVerified {
			return apperr.Forbiddenf("You cannot update your hourly rate until your profile is verified by an admin")
		}
		if in.BarLicenseNumber != nil {
			p.BarLicenseNumber = strings.TrimSpace(*in.BarLicenseNumber)
		}
		if in.Specialization != nil {
			p.Specialization = in.Specialization
		}
		if in.Experience != nil {
			p.Experience = *in.Experience
		}
		if in.HourlyRate != nil {
			p.HourlyRate = *in.HourlyRate
		}
		if in.Bio != nil {
			p.Bio = *in.Bio
		}
		if in.Languages != nil {
			p.Languages = in.Languages
		}
		saved = p
		return tx.Save(p).Error
	})
	if db.IsDuplicateKey(err) {
		return nil, apperr.Conflictf("Bar license number is already registered")
	}
	if err != nil {
		if _, ok := apperr.As(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("lawyer: update profile: %w", err)
	}
	v := models.NewLawyerView(lawyer, saved)
	return &v, nil
}

// ClientSummary is one client of a lawyer with appointment counts.
// Cancelled appointments are not counted.
type ClientSummary struct {
	Client                *models.User `json:"client"`
	TotalAppointments     int          `json:"totalAppointments"`
	PendingAppointments   int          `json:"pendingAppointments"`
	ConfirmedAppointments int          `json:"confirmedAppointments"`
	CompletedAppointments int          `json:"completedAppointments"`
	LastAppointmentDate   time.Time    `json:"lastAppointmentDate"`
}

// Clients lists the lawyer's clients who have at least one appointment that
// was not cancelled, most recent first.
func (s *Service) Clients(ctx context.Context, lawyer *models.User) ([]ClientSummary, error) {
	if lawyer.Role != models.RoleLawyer {
		return nil, apperr.Forbiddenf("Only lawyers can access their clients")
	}
	var appts []models.Appointment
	err := s.db.WithContext(ctx).Preload("Client").
		Where("lawyer_id = ? AND status <> ?", lawyer.ID, models.StatusCancelled).
		Order("created_at DESC").Find(&appts).Error
	if err != nil {
		return nil, fmt.Errorf("lawyer: load clients: %w", err)
	}
	out := []ClientSummary{}
	index := map[string]int{}
	for i := range appts {
		a := &appts[i]
		at, ok := index[a.ClientID]
		if !ok {
			at = len(out)
			index[a.ClientID] = at
			out = append(out, ClientSummary{Client: a.Client, LastAppointmentDate: a.CreatedAt})
		}
		sum := &out[at]
		sum.TotalAppointments++
		switch a.Status {
		case models.StatusPending, models.StatusProposed:
			sum.PendingAppointments++
		case models.StatusConfirmed:
			sum.ConfirmedAppointments++
		case models.StatusCompleted:
			sum.CompletedAppointments++
		}
	}
	return out, nil
}
