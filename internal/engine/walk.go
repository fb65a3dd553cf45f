package engine

import (
	"github.com/roach88/canvass/internal/logic"
	"github.com/roach88/canvass/internal/survey"
)

// stepBudget bounds the navigation walk.
//
// Each visited question costs one step. Linear surveys never come close to
// the default budget; only an authored jump cycle (SKIP_TO pointing backward
// at a question whose rule keeps firing) can exhaust it. Exhaustion is not
// an error: the walk reports a terminated outcome, same shape as an
// END_SURVEY action, so the submission still persists for analysis.
type stepBudget struct {
	max     int
	current int
}

func (b *stepBudget) spend() bool {
	b.current++
	return b.current <= b.max
}

// walkOutcome is what the navigation walk learned about one answer set.
type walkOutcome struct {
	// Visited holds the ids of questions visited while visible, in walk
	// order. Only answers to these questions survive into the response.
	Visited []string
	// Terminated is true when the walk ended early instead of running off
	// the end of the question list.
	Terminated bool
	// Reason is TerminalLogicEnd or TerminalStepBudget when Terminated.
	Reason survey.TerminalReason
}

func (w *walkOutcome) visited(id string) bool {
	for _, v := range w.Visited {
		if v == id {
			return true
		}
	}
	return false
}

// walk replays the respondent's path through the survey.
//
// Questions are taken in position order. Hidden questions are stepped over
// without costing budget or appearing in Visited. At each visible answered
// question the rules for that question resolve into a single decision:
// visibility changes apply immediately (they can hide or reveal questions
// further down the walk), and the first navigation action wins - a jump
// moves the cursor, END_SURVEY ends the walk.
//
// Unanswered visible questions just advance the cursor. Whether that is
// acceptable is the validator's call, not the walk's.
func (e *Engine) walk(sv *survey.Survey, rules []survey.Rule, answers logic.Answers) (*walkOutcome, error) {
	index := make(map[string]int, len(sv.Questions))
	for i, q := range sv.Questions {
		index[q.ID] = i
	}

	eval := logic.NewEvaluator(sv.Questions, e.log)
	vis := logic.NewVisibilityState(rules)
	budget := stepBudget{max: e.maxSteps}
	out := &walkOutcome{}

	i := 0
	for i < len(sv.Questions) {
		q := &sv.Questions[i]
		if !vis.Visible(q.ID) {
			i++
			continue
		}
		if !budget.spend() {
			out.Terminated = true
			out.Reason = survey.TerminalStepBudget
			e.log.Warn("navigation walk exceeded step budget",
				"survey_id", sv.ID,
				"question_id", q.ID,
				"max_steps", e.maxSteps,
			)
			return out, nil
		}
		out.Visited = append(out.Visited, q.ID)

		if _, answered := answers[q.ID]; !answered {
			i++
			continue
		}

		d := eval.Resolve(rules, q.ID, answers)
		vis.Apply(d.Visibility)

		switch d.Nav {
		case logic.NavTerminate:
			out.Terminated = true
			out.Reason = survey.TerminalLogicEnd
			return out, nil
		case logic.NavJump:
			target, ok := index[d.JumpTo]
			if !ok {
				return nil, &UnknownTargetError{RuleID: d.Fired[0], TargetID: d.JumpTo}
			}
			i = target
		default:
			i++
		}
	}
	return out, nil
}
