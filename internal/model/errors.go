package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
)

// ConflictError reports a duplicate natural key, carrying the id of the
// row that already holds it so callers can surface it to clients.
type ConflictError struct {
	ExistingID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("invite code already in use by meeting %s", e.ExistingID)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }
