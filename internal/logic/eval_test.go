package logic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/canvass/internal/survey"
)

func testEvaluator(t *testing.T, questions ...survey.Question) *Evaluator {
	t.Helper()
	return NewEvaluator(questions, nil)
}

func numberQuestion(id string) survey.Question {
	return survey.Question{ID: id, Kind: survey.KindNumber}
}

func choiceQuestion(id string, values ...string) survey.Question {
	opts := make([]survey.Option, len(values))
	for i, v := range values {
		opts[i] = survey.Option{ID: v, Text: v, Value: v}
	}
	return survey.Question{ID: id, Kind: survey.KindChoice, Options: opts}
}

func TestEvaluate_UnansweredIsAlwaysFalse(t *testing.T) {
	e := testEvaluator(t, numberQuestion("q1"))

	// Every operator must evaluate false against a skipped question,
	// including the negated ones.
	conds := []survey.Condition{
		{QuestionID: "q1", Operator: survey.OpEquals, Value: survey.Number(1)},
		{QuestionID: "q1", Operator: survey.OpNotEquals, Value: survey.Number(1)},
		{QuestionID: "q1", Operator: survey.OpIn, Value: survey.List{survey.Number(1)}},
		{QuestionID: "q1", Operator: survey.OpNotIn, Value: survey.List{survey.Number(1)}},
		{QuestionID: "q1", Operator: survey.OpLessThan, Value: survey.Number(10)},
		{QuestionID: "q1", Operator: survey.OpGreaterThan, Value: survey.Number(0)},
		{QuestionID: "q1", Operator: survey.OpBetween, Value: survey.Range{0, 10}},
		{QuestionID: "q1", Operator: survey.OpContains, Value: survey.Text("x")},
	}
	for _, c := range conds {
		assert.False(t, e.Evaluate(c, Answers{}), "operator %s", c.Operator)
	}
}

func TestEvaluate_EqualsNumericCoercion(t *testing.T) {
	e := testEvaluator(t, numberQuestion("age"), choiceQuestion("color", "red", "blue"))

	cond := survey.Condition{QuestionID: "age", Operator: survey.OpEquals, Value: survey.Number(30)}

	// Numeric question: numeric strings compare numerically.
	assert.True(t, e.Evaluate(cond, Answers{"age": survey.Number(30)}))
	assert.True(t, e.Evaluate(cond, Answers{"age": survey.Text("30")}))
	assert.True(t, e.Evaluate(cond, Answers{"age": survey.Text("30.0")}))
	assert.False(t, e.Evaluate(cond, Answers{"age": survey.Number(31)}))

	// Non-numeric question: plain string comparison.
	strCond := survey.Condition{QuestionID: "color", Operator: survey.OpEquals, Value: survey.Text("red")}
	assert.True(t, e.Evaluate(strCond, Answers{"color": survey.Text("red")}))
	assert.False(t, e.Evaluate(strCond, Answers{"color": survey.Text("blue")}))
}

func TestEvaluate_EqualsNormalizesUnicode(t *testing.T) {
	e := testEvaluator(t, survey.Question{ID: "name", Kind: survey.KindShortText})

	// "é" precomposed vs combining sequence.
	cond := survey.Condition{QuestionID: "name", Operator: survey.OpEquals, Value: survey.Text("café")}
	assert.True(t, e.Evaluate(cond, Answers{"name": survey.Text("café")}))
}

func TestEvaluate_NotEquals(t *testing.T) {
	e := testEvaluator(t, choiceQuestion("q1", "a", "b"))
	cond := survey.Condition{QuestionID: "q1", Operator: survey.OpNotEquals, Value: survey.Text("a")}

	assert.False(t, e.Evaluate(cond, Answers{"q1": survey.Text("a")}))
	assert.True(t, e.Evaluate(cond, Answers{"q1": survey.Text("b")}))
	// Degraded comparison (set answer) is false, not "not equal".
	assert.False(t, e.Evaluate(cond, Answers{"q1": survey.Set{"a", "b"}}))
}

func TestEvaluate_Membership(t *testing.T) {
	e := testEvaluator(t, choiceQuestion("q1", "a", "b", "c"))
	in := survey.Condition{
		QuestionID: "q1",
		Operator:   survey.OpIn,
		Value:      survey.List{survey.Text("a"), survey.Text("b")},
	}

	assert.True(t, e.Evaluate(in, Answers{"q1": survey.Text("a")}))
	assert.False(t, e.Evaluate(in, Answers{"q1": survey.Text("c")}))

	// Multi-select answers intersect.
	assert.True(t, e.Evaluate(in, Answers{"q1": survey.Set{"c", "b"}}))
	assert.False(t, e.Evaluate(in, Answers{"q1": survey.Set{"c"}}))

	notIn := in
	notIn.Operator = survey.OpNotIn
	assert.False(t, e.Evaluate(notIn, Answers{"q1": survey.Text("a")}))
	assert.True(t, e.Evaluate(notIn, Answers{"q1": survey.Text("c")}))
}

func TestEvaluate_MembershipNumericElements(t *testing.T) {
	e := testEvaluator(t, numberQuestion("rating"))
	cond := survey.Condition{
		QuestionID: "rating",
		Operator:   survey.OpIn,
		Value:      survey.List{survey.Number(4), survey.Number(5)},
	}
	assert.True(t, e.Evaluate(cond, Answers{"rating": survey.Number(5)}))
	assert.True(t, e.Evaluate(cond, Answers{"rating": survey.Text("4")}))
	assert.False(t, e.Evaluate(cond, Answers{"rating": survey.Number(3)}))
}

func TestEvaluate_Ordering(t *testing.T) {
	e := testEvaluator(t, numberQuestion("q1"))

	lt := survey.Condition{QuestionID: "q1", Operator: survey.OpLessThan, Value: survey.Number(3)}
	assert.True(t, e.Evaluate(lt, Answers{"q1": survey.Number(2)}))
	assert.False(t, e.Evaluate(lt, Answers{"q1": survey.Number(3)}))
	// Non-numeric answers evaluate false, not error.
	assert.False(t, e.Evaluate(lt, Answers{"q1": survey.Text("many")}))

	gt := survey.Condition{QuestionID: "q1", Operator: survey.OpGreaterThan, Value: survey.Number(3)}
	assert.True(t, e.Evaluate(gt, Answers{"q1": survey.Number(4)}))
	assert.False(t, e.Evaluate(gt, Answers{"q1": survey.Number(3)}))
}

func TestEvaluate_BetweenInclusive(t *testing.T) {
	e := testEvaluator(t, numberQuestion("salary"))
	cond := survey.Condition{QuestionID: "salary", Operator: survey.OpBetween, Value: survey.Range{30000, 70000}}

	assert.True(t, e.Evaluate(cond, Answers{"salary": survey.Number(50000)}))
	assert.False(t, e.Evaluate(cond, Answers{"salary": survey.Number(90000)}))

	// Inclusive bounds.
	assert.True(t, e.Evaluate(cond, Answers{"salary": survey.Number(30000)}))
	assert.True(t, e.Evaluate(cond, Answers{"salary": survey.Number(70000)}))
	assert.False(t, e.Evaluate(cond, Answers{"salary": survey.Number(29999.99)}))
}

func TestEvaluate_Contains(t *testing.T) {
	e := testEvaluator(t, survey.Question{ID: "q1", Kind: survey.KindCheckbox,
		Options: []survey.Option{{Value: "a"}, {Value: "b"}}})
	cond := survey.Condition{QuestionID: "q1", Operator: survey.OpContains, Value: survey.Text("a")}

	assert.True(t, e.Evaluate(cond, Answers{"q1": survey.Set{"b", "a"}}))
	assert.False(t, e.Evaluate(cond, Answers{"q1": survey.Set{"b"}}))
	// Scalar answers are an incompatible pairing: degrade to false.
	assert.False(t, e.Evaluate(cond, Answers{"q1": survey.Text("a")}))
}

func TestEvaluateAll_AndCombination(t *testing.T) {
	e := testEvaluator(t, numberQuestion("q1"), choiceQuestion("q2", "x", "y"))
	conds := []survey.Condition{
		{QuestionID: "q1", Operator: survey.OpGreaterThan, Value: survey.Number(10)},
		{QuestionID: "q2", Operator: survey.OpEquals, Value: survey.Text("x")},
	}

	assert.True(t, e.EvaluateAll(conds, Answers{"q1": survey.Number(11), "q2": survey.Text("x")}))
	assert.False(t, e.EvaluateAll(conds, Answers{"q1": survey.Number(11), "q2": survey.Text("y")}))
	assert.False(t, e.EvaluateAll(conds, Answers{"q1": survey.Number(9), "q2": survey.Text("x")}))

	// No conditions: matches everything.
	assert.True(t, e.EvaluateAll(nil, Answers{}))
}

func TestEvaluate_ConditionOnUnknownQuestion(t *testing.T) {
	// A condition referencing a question the survey doesn't know about
	// degrades to string comparison when answered, false when not.
	e := testEvaluator(t)
	cond := survey.Condition{QuestionID: "ghost", Operator: survey.OpEquals, Value: survey.Text("x")}

	require.False(t, e.Evaluate(cond, Answers{}))
	assert.True(t, e.Evaluate(cond, Answers{"ghost": survey.Text("x")}))
}
