package contracts

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is checks
var (
	ErrValidation          = errors.New("validation failed")
	ErrDataUnavailable     = errors.New("data unavailable")
	ErrProviderUnavailable = errors.New("provider unavailable")
)

// ValidationError 입력 검증 실패 (fetch 이전에 반환)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// DataUnavailableError the provider answered but has no usable data
type DataUnavailableError struct {
	Symbol string
	Reason string
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("data unavailable for %s: %s", e.Symbol, e.Reason)
}

func (e *DataUnavailableError) Is(target error) bool {
	return target == ErrDataUnavailable
}

// ProviderUnavailableError retries exhausted or circuit open
type ProviderUnavailableError struct {
	Symbol   string
	Attempts int
	Err      error
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("provider unavailable for %s after %d attempt(s): %v", e.Symbol, e.Attempts, e.Err)
}

func (e *ProviderUnavailableError) Unwrap() error {
	return e.Err
}

func (e *ProviderUnavailableError) Is(target error) bool {
	return target == ErrProviderUnavailable
}

// transientError marks a failure worth retrying (network, 5xx, 429)
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient wraps err so IsTransient reports true
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err (or anything it wraps) was marked transient
func IsTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}
