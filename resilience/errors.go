package resilience

import (
	"errors"
	"fmt"
)

// Sentinel errors for resilience operations.
var (
	ErrCircuitOpen        = errors.New("resilience: circuit breaker is open")
	ErrMaxRetriesExceeded = errors.New("resilience: max retries exceeded")
	ErrRateLimitExceeded  = errors.New("resilience: rate limit exceeded")
	ErrBulkheadFull       = errors.New("resilience: bulkhead at capacity")
	ErrTimeout            = errors.New("resilience: operation timed out")
	ErrPanic              = errors.New("resilience: operation panicked")
)

// permanentError marks an error that must not be retried.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so that Retry returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// PanicError carries a recovered panic value.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string { return fmt.Sprintf("%v: %v", ErrPanic, e.Value) }
func (e *PanicError) Unwrap() error { return ErrPanic }
