package services

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	// ErrNotFound covers both absent entities and entities hidden from the
	// caller, so callers cannot tell the two apart.
	ErrNotFound              = errors.New("not found")
	ErrForbidden             = errors.New("forbidden")
	ErrUnauthenticated       = errors.New("unauthenticated")
	ErrNotAThreadParticipant = errors.New("only a thread participant can send a thread message")
	ErrInactiveParticipant   = errors.New("user is inactive")
	ErrUnknownUser           = errors.New("user does not exist")
	ErrDuplicateUser         = errors.New("username or email already taken")
	ErrInvalidCredentials    = errors.New("invalid credentials")
)

// ValidationError rejects a request with per-field detail.
type ValidationError struct {
	Fields map[string]string
	cause  error
}

func newValidationError(field string, cause error) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: cause.Error()}, cause: cause}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return e.cause
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return errors.Wrap(err, msg)
}
