package classify

import (
	"errors"
	"fmt"
)

// Sentinels matched with errors.Is against the typed errors below.
var (
	ErrUnrecognizedClassification = errors.New("unrecognized classification")
	ErrClassificationFailed       = errors.New("classification failed")
	ErrCircuitOpen                = errors.New("circuit open")
)

// UnrecognizedError is returned when a model answer does not map to a
// severity tier.
type UnrecognizedError struct {
	Label string
}

func (e *UnrecognizedError) Error() string {
	label := e.Label
	if r := []rune(label); len(r) > 80 {
		label = string(r[:80]) + "..."
	}
	return fmt.Sprintf("classify: unrecognized classification %q", label)
}

func (e *UnrecognizedError) Is(target error) bool { return target == ErrUnrecognizedClassification }

// FailedError is returned when a clause could not be classified after
// every permitted attempt.
type FailedError struct {
	Clause   int
	Provider string
	Attempts int
	Err      error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("classify: clause %d failed after %d attempt(s) via %s: %v", e.Clause, e.Attempts, e.Provider, e.Err)
}

func (e *FailedError) Unwrap() error { return e.Err }

func (e *FailedError) Is(target error) bool { return target == ErrClassificationFailed }

// StatusError is a non-2xx answer from a provider.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("classify: %s returned HTTP %d: %s", e.Provider, e.Code, e.Body)
}

// Transient reports whether the status is worth retrying: 408, 429 and 5xx.
func (e *StatusError) Transient() bool {
	return e.Code == 408 || e.Code == 429 || e.Code >= 500
}

// CircuitOpenError is returned without calling the provider while its
// breaker is open.
type CircuitOpenError struct {
	Provider string
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("classify: circuit open: %s", e.Provider)
}

func (e *CircuitOpenError) Is(target error) bool { return target == ErrCircuitOpen }
