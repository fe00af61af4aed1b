package service

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrNotFound           = errors.New("not found")
)

// ValidationError is a malformed or missing request field.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// DataQualityError means the input parsed but yielded no usable records, or
// records that break the debit/credit rules.
type DataQualityError struct {
	Message     string
	Diagnostics []string
}

func (e *DataQualityError) Error() string {
	if len(e.Diagnostics) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Diagnostics, "; ")
}

// UpstreamServiceError is a non-2xx answer from the inference backend.
type UpstreamServiceError struct {
	Operation  string
	StatusCode int
	Details    string
	Suggestion string
}

func (e *UpstreamServiceError) Error() string {
	return fmt.Sprintf("%s failed with upstream status %d", e.Operation, e.StatusCode)
}

func newUpstreamError(operation string, status int, details string) *UpstreamServiceError {
	return &UpstreamServiceError{
		Operation:  operation,
		StatusCode: status,
		Details:    details,
		Suggestion: suggestionFor(status),
	}
}

func suggestionFor(status int) string {
	switch status {
	case http.StatusPaymentRequired:
		return "The AI provider balance is exhausted. Top up the account and try again."
	case http.StatusTooManyRequests:
		return "The AI provider is rate limiting requests. Wait a minute and try again."
	case http.StatusUnauthorized, http.StatusForbidden:
		return "The AI provider rejected the API key. Check the configured key."
	default:
		return "The AI service is temporarily unavailable. Try again later."
	}
}

// PersistenceError wraps a failed store operation. The message is passed
// through to the caller.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ErrPushDisabled is returned when no VAPID keys are configured.
var ErrPushDisabled = errors.New("push notifications are not configured")
