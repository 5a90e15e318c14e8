package common

import (
	"errors"
	"fmt"
)

type APIError struct {
	Status  int            `json:"-"`
	Message string         `json:"error"`
	Fields  map[string]any `json:"fields,omitempty"`
}

func (e APIError) Error() string {
	return e.Message
}

func Errf(status int, format string, args ...any) APIError {
	return APIError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// NewAPIError creates an APIError with status, message, and optional fields
func NewAPIError(status int, message string, fields map[string]any) APIError {
	return APIError{
		Status:  status,
		Message: message,
		Fields:  fields,
	}
}

// Pipeline error taxonomy. Workers classify stage failures against these
// sentinels to decide between retry and terminal failure.
var (
	ErrInvalidQueue       = errors.New("invalid queue")
	ErrValidationFailed   = errors.New("validation failed")
	ErrQuotaExceeded      = errors.New("quota exceeded")
	ErrModerationRejected = errors.New("moderation rejected")
	ErrTimeout            = errors.New("timeout")
	ErrReplaySuspected    = errors.New("replay suspected")
	ErrPartialUpload      = errors.New("partial upload")
)

// Fatal marks an error as non-retryable: the dispatcher moves the job
// straight to failed instead of scheduling another attempt.
type Fatal struct {
	Cause error
}

func (e *Fatal) Error() string { return e.Cause.Error() }
func (e *Fatal) Unwrap() error { return e.Cause }

func Fatalf(format string, args ...any) error {
	return &Fatal{Cause: fmt.Errorf(format, args...)}
}

// IsFatal reports whether err (or anything it wraps) must not be retried.
func IsFatal(err error) bool {
	var f *Fatal
	if errors.As(err, &f) {
		return true
	}
	return errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrQuotaExceeded) ||
		errors.Is(err, ErrModerationRejected)
}
