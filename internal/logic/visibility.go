package logic

import (
	"github.com/roach88/canvass/internal/survey"
)

// VisibilityState tracks which questions are currently presented.
//
// Default state: a question that is the target of any SHOW action in the
// survey's rules starts hidden (it exists to be revealed); every other
// question starts visible. Hidden questions are exempt from required-answer
// validation at submission time.
type VisibilityState struct {
	hidden map[string]bool
}

// NewVisibilityState computes the initial visibility for a survey's rules.
func NewVisibilityState(rules []survey.Rule) *VisibilityState {
	hidden := make(map[string]bool)
	for i := range rules {
		for _, action := range rules[i].Actions {
			if action.Type == survey.ActionShow {
				hidden[action.TargetQuestionID] = true
			}
		}
	}
	return &VisibilityState{hidden: hidden}
}

// Apply folds a decision's visibility changes into the state, in order.
// Later changes override earlier ones on the same question.
func (v *VisibilityState) Apply(changes []VisibilityChange) {
	for _, ch := range changes {
		v.hidden[ch.QuestionID] = !ch.Visible
	}
}

// Visible reports whether the question is currently presented.
func (v *VisibilityState) Visible(questionID string) bool {
	return !v.hidden[questionID]
}
