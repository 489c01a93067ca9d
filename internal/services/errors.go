package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/diewo77/pipoca/validation"
	"gorm.io/gorm"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrUniquenessViolation = errors.New("uniqueness violation")
	// ErrDuplicateEmail is the uniqueness violation raised for users.email.
	ErrDuplicateEmail     = fmt.Errorf("email already registered: %w", ErrUniquenessViolation)
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError reports rejected input, keyed by field name.
type ValidationError struct {
	Violations validation.Violations
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Violations))
	for field, code := range e.Violations {
		fields = append(fields, field+": "+code)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

func newValidationError(field, code string) *ValidationError {
	return &ValidationError{Violations: validation.Violations{field: code}}
}

// TransportFailure wraps an error returned by the mail transport.
type TransportFailure struct {
	Err error
}

func (e *TransportFailure) Error() string { return "mail transport: " + e.Err.Error() }

func (e *TransportFailure) Unwrap() error { return e.Err }

// isUniqueViolation recognizes unique-constraint failures, translated or not.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
