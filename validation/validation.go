package validation

import (
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

// Violations maps a field name to a violation code (e.g. "required", "too_long").
// Codes are translated for display by the i18n package.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Merge copies violations from other, keeping the first code recorded per field.
func (v Violations) Merge(other Violations) {
	for field, code := range other {
		if _, exists := v[field]; !exists {
			v[field] = code
		}
	}
}

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func RequiredTime(field string, value time.Time, v Violations) {
	if value.IsZero() {
		v[field] = "required"
	}
}

func MaxLen(field, value string, max int, v Violations) {
	if utf8.RuneCountInString(value) > max {
		v[field] = "too_long"
	}
}

func Email(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
		return
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != strings.TrimSpace(value) {
		v[field] = "invalid_email"
	}
}

// OneOf records "invalid_choice" when value is not one of choices.
// An empty value is left to Required.
func OneOf(field, value string, choices []string, v Violations) {
	if value == "" {
		return
	}
	for _, c := range choices {
		if value == c {
			return
		}
	}
	v[field] = "invalid_choice"
}

// NonNegativeInt records "must_not_be_negative" for values below zero.
func NonNegativeInt(field string, val int, v Violations) {
	if val < 0 {
		v[field] = "must_not_be_negative"
	}
}
