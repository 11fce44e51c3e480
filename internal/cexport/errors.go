package cexport

import (
	"errors"
	"fmt"
)

var (
	ErrNilCollection        = errors.New("collection is nil")
	ErrEmptyCollection      = errors.New("collection is empty")
	ErrNilElement           = errors.New("collection holds a nil element")
	ErrNotHomogeneous       = errors.New("collection mixes element kinds")
	ErrInvalidName          = errors.New("not a valid C identifier")
	ErrCountOutOfRange      = errors.New("count does not fit its field")
	ErrVertexNormalMismatch = errors.New("vertex and normal counts differ")
)

// ValidationError reports an entity that cannot be rendered as C.
type ValidationError struct {
	Entity string
	Field  string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("cexport: %s: %v", e.Entity, e.Err)
	}
	return fmt.Sprintf("cexport: %s.%s: %v", e.Entity, e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(entity, field string, err error) error {
	return &ValidationError{Entity: entity, Field: field, Err: err}
}
