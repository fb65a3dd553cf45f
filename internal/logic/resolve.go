package logic

import (
	"github.com/roach88/canvass/internal/survey"
)

// NavKind is the navigation outcome of one resolution.
type NavKind int

const (
	// NavContinue means no navigation rule fired: default linear
	// progression to the next ordered question.
	NavContinue NavKind = iota
	// NavJump means a SKIP_TO fired; Decision.JumpTo holds the target.
	NavJump
	// NavTerminate means an END_SURVEY fired.
	NavTerminate
)

func (k NavKind) String() string {
	switch k {
	case NavJump:
		return "jump"
	case NavTerminate:
		return "terminate"
	default:
		return "continue"
	}
}

// VisibilityChange toggles one question's visibility.
type VisibilityChange struct {
	QuestionID string `json:"question_id"`
	Visible    bool   `json:"visible"`
}

// Decision is the outcome of resolving the rules for one answered question.
//
// Navigation (jump/terminate) is exclusive: the first firing rule that
// carries one wins and later jump/terminate actions are ignored.
// Visibility changes are cumulative across all firing rules, in rule
// order, with later changes overriding earlier ones on the same target.
type Decision struct {
	Nav        NavKind
	JumpTo     string
	Visibility []VisibilityChange
	Fired      []string // ids of firing rules, in evaluation order
}

// Resolve decides what happens after answering sourceQuestionID.
//
// rules must be the survey's full rule set in evaluation order (ascending
// priority, ties by id) - the store returns them that way. Rules with a
// different source question are skipped, not consumed: resolution is one
// firing pass, and never chases its own output. An authored cycle between
// questions therefore degrades to "re-evaluated next step", not recursion.
func (e *Evaluator) Resolve(rules []survey.Rule, sourceQuestionID string, answers Answers) Decision {
	d := Decision{Nav: NavContinue}

	for i := range rules {
		rule := &rules[i]
		if rule.SourceQuestionID != sourceQuestionID {
			continue
		}
		if !e.EvaluateAll(rule.Conditions, answers) {
			continue
		}
		d.Fired = append(d.Fired, rule.ID)

		for _, action := range rule.Actions {
			switch action.Type {
			case survey.ActionSkipTo:
				if d.Nav == NavContinue {
					d.Nav = NavJump
					d.JumpTo = action.TargetQuestionID
				}
			case survey.ActionEndSurvey:
				if d.Nav == NavContinue {
					d.Nav = NavTerminate
				}
			case survey.ActionShow:
				d.Visibility = append(d.Visibility, VisibilityChange{
					QuestionID: action.TargetQuestionID,
					Visible:    true,
				})
			case survey.ActionHide:
				d.Visibility = append(d.Visibility, VisibilityChange{
					QuestionID: action.TargetQuestionID,
					Visible:    false,
				})
			}
		}
	}

	return d
}
