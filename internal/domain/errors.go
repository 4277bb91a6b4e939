package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput means the subject property failed pre-flight validation.
	ErrInvalidInput = errors.New("invalid subject property")
	// ErrPoolExhausted means no browser session became available in time.
	ErrPoolExhausted = errors.New("browser pool exhausted")
	// ErrNoAnalogs means even the region-only fallback rung returned nothing.
	ErrNoAnalogs = errors.New("no analogs found")
)

// FetchError is a single rung's failed fetch. The analog finder absorbs these
// and escalates; callers only ever see it wrapped in a terminal ErrNoAnalogs.
type FetchError struct {
	Rung string
	Err  error
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetch %s: %v", e.Rung, e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }
