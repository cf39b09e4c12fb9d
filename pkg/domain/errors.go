package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound reports a lookup of a record that does not exist.
type ErrNotFound struct {
	Entity EntityType
	Key    string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.Key)
}

// ErrConflict reports a write that collides with an existing record, such as
// a duplicate experiment identifier or a dangling reference.
type ErrConflict struct {
	Entity EntityType
	Key    string
	Reason string
}

func (e ErrConflict) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s %q conflicts with an existing record", e.Entity, e.Key)
	}
	return fmt.Sprintf("%s %q: %s", e.Entity, e.Key, e.Reason)
}

// ValidationError reports a field failing a presence, length or enum check.
type ValidationError struct {
	Entity EntityType
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s.%s: %s", e.Entity, e.Field, e.Reason)
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}

// IsConflict reports whether err wraps ErrConflict.
func IsConflict(err error) bool {
	var c ErrConflict
	return errors.As(err, &c)
}

// IsValidation reports whether err wraps a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
