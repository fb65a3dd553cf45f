package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError rejects a submission before anything is persisted.
//
// Missing lists required questions that were visited while visible but not
// answered. Problems lists answers that do not fit their question (unknown
// question id, non-numeric value on a number question, an option value the
// question does not offer).
type ValidationError struct {
	Missing  []string
	Problems []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing required answers: %s", strings.Join(e.Missing, ", ")))
	}
	for _, p := range e.Problems {
		parts = append(parts, p)
	}
	return "invalid submission: " + strings.Join(parts, "; ")
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// UnknownTargetError means a fired SKIP_TO named a question that does not
// exist in the survey. Import validation should make this unreachable; at
// runtime it is an authoring error, not a respondent error.
type UnknownTargetError struct {
	RuleID   string
	TargetID string
}

func (e *UnknownTargetError) Error() string {
	return fmt.Sprintf("rule %s jumps to unknown question %s", e.RuleID, e.TargetID)
}
