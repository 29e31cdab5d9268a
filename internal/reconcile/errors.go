package reconcile

import (
	"errors"
	"fmt"
)

// Validation failures abort before any mutation.
var (
	ErrMissingSKU  = errors.New("payload has no sku")
	ErrMissingName = errors.New("payload has no name field and no term matched")
)

// StoreError wraps a term-store failure that could not be recovered.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// ConflictError is a uniqueness violation that survived re-resolution.
type ConflictError struct {
	Op  string
	Err error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict during %s: %v", e.Op, e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }
