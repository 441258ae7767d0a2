package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by stores when no article has the given id.
	ErrNotFound = errors.New("entity not found")

	// ErrInvalid matches every *ValidationError via errors.Is.
	ErrInvalid = errors.New("invalid entity")
)

// ValidationError names the field that failed and why.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Unwrap lets callers test errors.Is(err, ErrInvalid).
func (e *ValidationError) Unwrap() error { return ErrInvalid }
