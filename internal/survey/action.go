package survey

import (
	"encoding/json"
	"fmt"
)

// ActionType enumerates what a fired rule can do.
type ActionType string

const (
	// ActionSkipTo jumps navigation to the target question.
	ActionSkipTo ActionType = "SKIP_TO"
	// ActionShow reveals the target question.
	ActionShow ActionType = "SHOW"
	// ActionHide hides the target question (exempting it from
	// required-answer validation).
	ActionHide ActionType = "HIDE"
	// ActionEndSurvey ends the survey at this point.
	ActionEndSurvey ActionType = "END_SURVEY"
)

// ValidActionTypes defines the allowed action type strings.
var ValidActionTypes = map[ActionType]bool{
	ActionSkipTo:    true,
	ActionShow:      true,
	ActionHide:      true,
	ActionEndSurvey: true,
}

// Action is one effect applied when a rule's conditions all pass.
// SKIP_TO, SHOW, and HIDE address a target question; END_SURVEY does not.
type Action struct {
	Type             ActionType `json:"type"`
	TargetQuestionID string     `json:"target_question_id,omitempty"`
}

// UnmarshalJSON decodes and validates an action in one step.
func (a *Action) UnmarshalJSON(data []byte) error {
	type wire Action
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*a = Action(w)
	if errs := a.Validate(); len(errs) > 0 {
		return fmt.Errorf("action: %s", errs[0].Error())
	}
	return nil
}

// Validate checks the type/target pairing. Returns all errors.
func (a *Action) Validate() []ValidationError {
	var errs []ValidationError
	if !ValidActionTypes[a.Type] {
		errs = append(errs, ValidationError{
			Field:   "type",
			Message: fmt.Sprintf("invalid action type %q", a.Type),
		})
		return errs
	}
	switch a.Type {
	case ActionSkipTo, ActionShow, ActionHide:
		if a.TargetQuestionID == "" {
			errs = append(errs, ValidationError{
				Field:   "target_question_id",
				Message: fmt.Sprintf("%s requires a target question", a.Type),
			})
		}
	case ActionEndSurvey:
		if a.TargetQuestionID != "" {
			errs = append(errs, ValidationError{
				Field:   "target_question_id",
				Message: "END_SURVEY does not take a target question",
			})
		}
	}
	return errs
}
