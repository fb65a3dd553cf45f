package survey

import (
	"errors"
	"fmt"
)

// NotFoundError reports that a referenced entity does not exist.
// Propagates to callers unmodified.
type NotFoundError struct {
	Kind string // "survey", "question", "quota", "response"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// NewNotFound creates a NotFoundError for the given entity.
func NewNotFound(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// IsNotFound reports whether the error is a NotFoundError.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
