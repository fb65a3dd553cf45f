package logic

import (
	"log/slog"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/canvass/internal/survey"
)

// Answers is the current answer set for one submission, keyed by question
// id. An unanswered question is simply absent; null answers never exist
// (the survey package rejects them at decode time).
type Answers map[string]survey.Value

// Evaluator evaluates conditions against an answer set.
//
// It carries the survey's question kinds so EQUALS/NOT_EQUALS can compare
// numerically on numeric questions, and a logger for degradation events.
// It is stateless between calls and safe for concurrent use.
type Evaluator struct {
	kinds map[string]survey.QuestionKind
	log   *slog.Logger
}

// NewEvaluator builds an evaluator for one survey's questions.
// A nil logger falls back to slog.Default().
func NewEvaluator(questions []survey.Question, log *slog.Logger) *Evaluator {
	if log == nil {
		log = slog.Default()
	}
	kinds := make(map[string]survey.QuestionKind, len(questions))
	for _, q := range questions {
		kinds[q.ID] = q.Kind
	}
	return &Evaluator{kinds: kinds, log: log}
}

// EvaluateAll reports whether every condition passes (AND combination).
// An empty condition list passes: a rule or quota with no conditions
// matches every response.
func (e *Evaluator) EvaluateAll(conds []survey.Condition, answers Answers) bool {
	for i := range conds {
		if !e.Evaluate(conds[i], answers) {
			return false
		}
	}
	return true
}

// Evaluate reports whether a single condition passes.
//
// An unanswered question evaluates to false under every operator: a
// condition can never spuriously match a skipped question. Incompatible
// operator/answer pairings also evaluate to false (degradation, logged).
func (e *Evaluator) Evaluate(cond survey.Condition, answers Answers) bool {
	answer, ok := answers[cond.QuestionID]
	if !ok {
		return false
	}

	switch cond.Operator {
	case survey.OpEquals:
		eq, ok := e.scalarEquals(cond, answer)
		return ok && eq

	case survey.OpNotEquals:
		eq, ok := e.scalarEquals(cond, answer)
		return ok && !eq

	case survey.OpIn:
		return e.intersects(cond, answer)

	case survey.OpNotIn:
		// Still requires an answer: unanswered was handled above, and a
		// degraded membership test reads as "not in".
		return !e.intersects(cond, answer)

	case survey.OpLessThan:
		n, ok := survey.NumberOf(answer)
		if !ok {
			e.degrade(cond, answer, "non-numeric answer")
			return false
		}
		bound := float64(cond.Value.(survey.Number))
		return n < bound

	case survey.OpGreaterThan:
		n, ok := survey.NumberOf(answer)
		if !ok {
			e.degrade(cond, answer, "non-numeric answer")
			return false
		}
		bound := float64(cond.Value.(survey.Number))
		return n > bound

	case survey.OpBetween:
		n, ok := survey.NumberOf(answer)
		if !ok {
			e.degrade(cond, answer, "non-numeric answer")
			return false
		}
		rng := cond.Value.(survey.Range)
		return n >= rng[0] && n <= rng[1]

	case survey.OpContains:
		set, ok := answer.(survey.Set)
		if !ok {
			e.degrade(cond, answer, "CONTAINS requires a multi-select answer")
			return false
		}
		want, ok := survey.TextOf(cond.Value)
		if !ok {
			e.degrade(cond, answer, "non-scalar operand")
			return false
		}
		for _, elem := range set {
			if stringEqual(elem, want) {
				return true
			}
		}
		return false

	default:
		// Unreachable for conditions that passed validation.
		e.degrade(cond, answer, "unknown operator")
		return false
	}
}

// scalarEquals implements EQUALS identity with type coercion: numeric
// comparison when the question kind is numeric, NFC-normalized string
// comparison otherwise. The second return is false on degradation
// (multi-select answer, or numeric kind with a non-numeric side).
func (e *Evaluator) scalarEquals(cond survey.Condition, answer survey.Value) (equal, ok bool) {
	if _, isSet := answer.(survey.Set); isSet {
		e.degrade(cond, answer, "scalar comparison against multi-select answer")
		return false, false
	}

	if e.kinds[cond.QuestionID].Numeric() {
		an, aok := survey.NumberOf(answer)
		cn, cok := survey.NumberOf(cond.Value)
		if !aok || !cok {
			e.degrade(cond, answer, "numeric question with non-numeric comparison")
			return false, false
		}
		return an == cn, true
	}

	as, aok := survey.TextOf(answer)
	cs, cok := survey.TextOf(cond.Value)
	if !aok || !cok {
		e.degrade(cond, answer, "non-scalar comparison value")
		return false, false
	}
	return stringEqual(as, cs), true
}

// intersects implements IN membership: true when the answer (or, for
// multi-select answers, any selected value) matches any list element.
func (e *Evaluator) intersects(cond survey.Condition, answer survey.Value) bool {
	list, ok := cond.Value.(survey.List)
	if !ok {
		e.degrade(cond, answer, "membership operand is not a list")
		return false
	}

	if set, isSet := answer.(survey.Set); isSet {
		for _, selected := range set {
			for _, elem := range list {
				if looseEqual(survey.Text(selected), elem) {
					return true
				}
			}
		}
		return false
	}

	for _, elem := range list {
		if looseEqual(answer, elem) {
			return true
		}
	}
	return false
}

// looseEqual compares two scalar values: numerically when both sides
// coerce to numbers, by NFC-normalized string otherwise.
func looseEqual(a, b survey.Value) bool {
	an, aok := survey.NumberOf(a)
	bn, bok := survey.NumberOf(b)
	if aok && bok {
		return an == bn
	}
	as, aok := survey.TextOf(a)
	bs, bok := survey.TextOf(b)
	if !aok || !bok {
		return false
	}
	return stringEqual(as, bs)
}

// stringEqual compares after NFC normalization so user-entered text with
// different Unicode compositions compares equal.
func stringEqual(a, b string) bool {
	if a == b {
		return true
	}
	return norm.NFC.String(a) == norm.NFC.String(b)
}

func (e *Evaluator) degrade(cond survey.Condition, answer survey.Value, reason string) {
	e.log.Warn("condition evaluation degraded",
		"question_id", cond.QuestionID,
		"operator", string(cond.Operator),
		"answer_type", typeName(answer),
		"reason", reason,
	)
}

func typeName(v survey.Value) string {
	switch v.(type) {
	case survey.Text:
		return "text"
	case survey.Number:
		return "number"
	case survey.Set:
		return "set"
	case survey.List:
		return "list"
	case survey.Range:
		return "range"
	default:
		return "nil"
	}
}
