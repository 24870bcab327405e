package appointment

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sujalkunwar22/backend/internal/apperr"
)

// Field limits.
const (
	MinReasonLength = 10
	MaxReasonLength = 500
	MaxNotesLength  = 1000
	maxTimeLength   = 16
)

// dateLayout is the calendar-date form accepted besides RFC 3339.
const dateLayout = "2006-01-02"

// CreateInput is a client's appointment request.
type CreateInput struct {
	LawyerID     string `json:"lawyerId"`
	ProposedDate string `json:"proposedDate"`
	ProposedTime string `json:"proposedTime"`
	Reason       string `json:"reason"`
	Notes        string `json:"notes"`
}

// ProposeInput is a lawyer's counter-proposal.
type ProposeInput struct {
	ProposedDate string `json:"proposedDate"`
	ProposedTime string `json:"proposedTime"`
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, apperr.Validationf("proposedDate must be YYYY-MM-DD or RFC 3339")
	}
	return t.UTC(), nil
}

func parseSlot(date, clock string) (time.Time, string, error) {
	var errs []string
	d, err := ParseDate(date)
	if err != nil {
		errs = append(errs, "proposedDate must be YYYY-MM-DD or RFC 3339")
	}
	clock = strings.TrimSpace(clock)
	if clock == "" {
		errs = append(errs, "proposedTime is required")
	} else if len(clock) > maxTimeLength {
		errs = append(errs, "proposedTime is too long")
	}
	if len(errs) > 0 {
		return time.Time{}, "", apperr.Validationf("Validation errors: %s", strings.Join(errs, "; "))
	}
	return d, clock, nil
}

func (in *CreateInput) validate() (time.Time, string, error) {
	var errs []string
	if strings.TrimSpace(in.LawyerID) == "" {
		errs = append(errs, "lawyerId is required")
	}
	in.Reason = strings.TrimSpace(in.Reason)
	if n := utf8.RuneCountInString(in.Reason); n < MinReasonLength || n > MaxReasonLength {
		errs = append(errs, "reason must be between 10 and 500 characters")
	}
	if utf8.RuneCountInString(in.Notes) > MaxNotesLength {
		errs = append(errs, "notes must be at most 1000 characters")
	}
	d, clock, err := parseSlot(in.ProposedDate, in.ProposedTime)
	if err != nil {
		e, _ := apperr.As(err)
		errs = append(errs, strings.TrimPrefix(e.Message, "Validation errors: "))
	}
	if len(errs) > 0 {
		return time.Time{}, "", apperr.Validationf("Validation errors: %s", strings.Join(errs, "; "))
	}
	return d, clock, nil
}
