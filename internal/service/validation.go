package service

import (
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/spec-kit/matchmaking-service/internal/domain"
)

const (
	maxNameLength    = 100
	maxAboutLength   = 1000
	maxAddressLength = 255
	minPasswordLen   = 8
	maxPasswordLen   = 100
)

var (
	registrationPhone = regexp.MustCompile(`^(\+94|94|0)?[1-9][0-9]{8,9}$`)
	phoneSeparators   = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
)

// fieldErrors accumulates per-field validation messages.
type fieldErrors map[string]any

func (f fieldErrors) add(field, msg string) {
	if _, exists := f[field]; !exists {
		f[field] = msg
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return invalid(f)
}

func (f fieldErrors) name(field, v string) {
	switch n := utf8.RuneCountInString(strings.TrimSpace(v)); {
	case n == 0:
		f.add(field, "is required")
	case n > maxNameLength:
		f.add(field, "must be at most 100 characters")
	}
}

func (f fieldErrors) maxLen(field, v string, max int) {
	if utf8.RuneCountInString(v) > max {
		f.add(field, "is too long")
	}
}

func (f fieldErrors) oneOf(field, v string, allowed []string) {
	if v != "" && !domain.Contains(allowed, v) {
		f.add(field, "must be one of "+strings.Join(allowed, ", "))
	}
}

func (f fieldErrors) birthDate(field string, birth, now time.Time) {
	if birth.IsZero() {
		f.add(field, "is required")
		return
	}
	age := domain.AgeAt(birth, now)
	if age < minMemberAge || age > maxMemberAge {
		f.add(field, "age must be between 18 and 70")
	}
}

func (f fieldErrors) phone(field, v string) string {
	normalized := phoneSeparators.Replace(strings.TrimSpace(v))
	if normalized != "" && !registrationPhone.MatchString(normalized) {
		f.add(field, "must be a valid phone number")
	}
	return normalized
}

func (f fieldErrors) password(field, v string) {
	n := utf8.RuneCountInString(v)
	if n < minPasswordLen || n > maxPasswordLen {
		f.add(field, "must be 8 to 100 characters")
		return
	}
	var letter, digit bool
	for _, r := range v {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		f.add(field, "must contain at least one letter and one number")
	}
}

func (f fieldErrors) email(field, v string) string {
	normalized := strings.ToLower(strings.TrimSpace(v))
	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Address != normalized || !strings.Contains(normalized[strings.LastIndex(normalized, "@")+1:], ".") {
		f.add(field, "must be a valid email address")
	}
	return normalized
}
