package domain

import (
	"errors"
	"fmt"
)

// ErrJobNotFound is returned for lookups against a missing or expired job.
var ErrJobNotFound = errors.New("job not found")

// ValidationError reports a malformed submission. No job is created.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a ValidationError with a formatted message.
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// FetchError wraps a failure reported by the fetch backend for one URL.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch failed for %s", e.URL)
	}
	return e.Err.Error()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// HousekeepingError reports a failed artifact removal during a cleanup sweep.
type HousekeepingError struct {
	Op   string
	Path string
	Err  error
}

func (e *HousekeepingError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *HousekeepingError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
