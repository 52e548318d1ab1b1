// Package validation checks request input before it reaches the services: account and
// organization fields, calendar dates and times of day, and uploaded certificate
// attachments. Validators return errors whose text is safe to show to the caller.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/outstaff/outstaff/internal/db/models"
)

// Field limits shared by the request payloads
const (
	MaxEmailLength    = 255
	MaxNameLength     = 120
	MaxSlugLength     = 255
	MaxTimezoneLength = 80
	MaxCommentLength  = 500
	MaxNotesLength    = 1000
)

// ClockLayout is the wire format for a time of day
const ClockLayout = "15:04"

// localDateTimeLayout is what an HTML datetime-local input submits
const localDateTimeLayout = "2006-01-02T15:04"

var validate = validator.New()

// ValidateEmail checks that email is a plausible address within the column limit
func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("Email is required.")
	}
	if err := validate.Var(email, fmt.Sprintf("email,max=%d", MaxEmailLength)); err != nil {
		return errors.New("Invalid email address.")
	}
	return nil
}

// ValidateSlug normalizes slug and checks it is usable in a URL
func ValidateSlug(slug string) (string, error) {
	slug = models.NormalizeSlug(slug)
	if slug == "" {
		return "", errors.New("Slug is required.")
	}
	if len(slug) > MaxSlugLength {
		return "", fmt.Errorf("Slug must be at most %d characters.", MaxSlugLength)
	}
	for _, r := range slug {
		if unicode.IsSpace(r) || r == '/' || r == '?' || r == '#' {
			return "", errors.New("Slug may not contain spaces or URL separators.")
		}
	}
	return slug, nil
}

// ValidateTimezone checks tz against the IANA database. An empty value is allowed and
// later replaced by the default.
func ValidateTimezone(tz string) error {
	if tz == "" {
		return nil
	}
	if len(tz) > MaxTimezoneLength {
		return fmt.Errorf("Timezone must be at most %d characters.", MaxTimezoneLength)
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("Unknown timezone %q.", tz)
	}
	return nil
}

// MaxLength rejects values longer than n characters
func MaxLength(field, value string, n int) error {
	if len([]rune(value)) > n {
		return fmt.Errorf("%s must be at most %d characters.", field, n)
	}
	return nil
}

// ParseDate parses a calendar date in YYYY-MM-DD form
func ParseDate(field, s string) (time.Time, error) {
	d, err := time.Parse(models.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a date in YYYY-MM-DD format.", field)
	}
	return d, nil
}

// ParseOptionalDate is ParseDate for fields that may be left empty
func ParseOptionalDate(field string, s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	d, err := ParseDate(field, *s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ParseEntryTime resolves a start or end value of a time entry. The value may be a time
// of day (HH:MM) on date, a local date-time (YYYY-MM-DDTHH:MM), or an RFC 3339 timestamp.
func ParseEntryTime(field string, date time.Time, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%s is required.", field)
	}
	if t, err := time.Parse(ClockLayout, value); err == nil {
		y, m, d := date.Date()
		return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, time.UTC), nil
	}
	if t, err := time.Parse(localDateTimeLayout, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%s must be HH:MM or an RFC 3339 timestamp.", field)
}
