package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies failures surfaced to callers.
type ErrorKind string

const (
	ErrorKindValidation              ErrorKind = "validation"
	ErrorKindPrimaryQuotaExhausted   ErrorKind = "primary_quota_exhausted"
	ErrorKindSecondaryQuotaExhausted ErrorKind = "secondary_quota_exhausted"
	ErrorKindInsufficientQuota       ErrorKind = "insufficient_quota"
	ErrorKindNotFound                ErrorKind = "not_found"
	ErrorKindUpstream                ErrorKind = "upstream"
)

// Error is a failure carrying a kind and a user-facing message.
type Error struct {
	Kind    ErrorKind
	Message string
	// ResetAt is set on quota errors when the reset time is known.
	ResetAt *time.Time
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NewValidationError reports bad caller input.
func NewValidationError(format string, args ...any) *Error {
	return &Error{Kind: ErrorKindValidation, Message: fmt.Sprintf(format, args...)}
}

// NewNotFoundError reports that GitHub does not know the requested item.
func NewNotFoundError(message string, err error) *Error {
	return &Error{Kind: ErrorKindNotFound, Message: message, Err: err}
}

// NewQuotaExhaustedError reports that retries were spent against a quota signal.
func NewQuotaExhaustedError(kind ErrorKind, attempts int, resetAt *time.Time, err error) *Error {
	label := "primary"
	if kind == ErrorKindSecondaryQuotaExhausted {
		label = "secondary"
	}
	msg := fmt.Sprintf("%s quota exhausted after %d attempts", label, attempts)
	if resetAt != nil && !resetAt.IsZero() {
		msg += fmt.Sprintf("; resets at %s", resetAt.UTC().Format(time.RFC3339))
	}
	return &Error{Kind: kind, Message: msg, ResetAt: resetAt, Err: err}
}

// NewInsufficientQuotaError reports that a batch was refused before it started.
func NewInsufficientQuotaError(op Operation, cost int, status QuotaStatus) *Error {
	reset := status.ResetAt
	e := &Error{
		Kind: ErrorKindInsufficientQuota,
		Message: fmt.Sprintf("insufficient %s quota for %s: %d remaining, %d required",
			status.Resource, op, status.Remaining, cost),
	}
	if !reset.IsZero() {
		e.ResetAt = &reset
		e.Message += fmt.Sprintf("; resets at %s", reset.UTC().Format(time.RFC3339))
	}
	return e
}

// NewSearchWindowExceededError reports a single day holding more results than search can page through.
func NewSearchWindowExceededError(username string, day Date, total, window int) *Error {
	return &Error{
		Kind: ErrorKindUpstream,
		Message: fmt.Sprintf("%s has %d pull requests created on %s, more than the %d search can return",
			username, total, day, window),
	}
}

// KindOf returns the kind of err, or ErrorKindUpstream for unclassified errors.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ErrorKindUpstream
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == kind
}
