package survey

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCondition_UnmarshalScalarOperators(t *testing.T) {
	var c Condition
	err := json.Unmarshal([]byte(`{"question_id": "q1", "operator": "EQUALS", "value": "Option A"}`), &c)
	require.NoError(t, err)
	assert.Equal(t, "q1", c.QuestionID)
	assert.Equal(t, OpEquals, c.Operator)
	assert.Equal(t, Text("Option A"), c.Value)

	err = json.Unmarshal([]byte(`{"question_id": "q1", "operator": "LESS_THAN", "value": 3}`), &c)
	require.NoError(t, err)
	assert.Equal(t, Number(3), c.Value)
}

func TestCondition_UnmarshalMembership(t *testing.T) {
	var c Condition
	err := json.Unmarshal([]byte(`{"question_id": "q2", "operator": "IN", "value": ["a", "b", 3]}`), &c)
	require.NoError(t, err)
	list, ok := c.Value.(List)
	require.True(t, ok)
	require.Len(t, list, 3)
	assert.Equal(t, Text("a"), list[0])
	assert.Equal(t, Number(3), list[2])
}

func TestCondition_UnmarshalBetween(t *testing.T) {
	var c Condition
	err := json.Unmarshal([]byte(`{"question_id": "q3", "operator": "BETWEEN", "value": [30000, 70000]}`), &c)
	require.NoError(t, err)
	assert.Equal(t, Range{30000, 70000}, c.Value)
}

func TestCondition_UnmarshalRejectsBadOperands(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"missing question_id", `{"operator": "EQUALS", "value": "x"}`},
		{"unknown operator", `{"question_id": "q1", "operator": "LIKE", "value": "x"}`},
		{"missing value", `{"question_id": "q1", "operator": "EQUALS"}`},
		{"EQUALS with array", `{"question_id": "q1", "operator": "EQUALS", "value": ["a"]}`},
		{"LESS_THAN with string", `{"question_id": "q1", "operator": "LESS_THAN", "value": "3"}`},
		{"IN with scalar", `{"question_id": "q1", "operator": "IN", "value": "a"}`},
		{"IN with empty list", `{"question_id": "q1", "operator": "IN", "value": []}`},
		{"BETWEEN with 3 bounds", `{"question_id": "q1", "operator": "BETWEEN", "value": [1, 2, 3]}`},
		{"BETWEEN inverted", `{"question_id": "q1", "operator": "BETWEEN", "value": [10, 1]}`},
		{"BETWEEN non-numeric", `{"question_id": "q1", "operator": "BETWEEN", "value": ["a", "b"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Condition
			err := json.Unmarshal([]byte(tt.json), &c)
			assert.Error(t, err)
		})
	}
}

func TestCondition_MarshalRoundTrip(t *testing.T) {
	orig := Condition{
		QuestionID: "q1",
		Operator:   OpBetween,
		Value:      Range{30000, 70000},
	}
	data, err := json.Marshal(orig)
	require.NoError(t, err)

	var decoded Condition
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, orig, decoded)
}

func TestCondition_ValidateCatchesPairing(t *testing.T) {
	c := Condition{QuestionID: "q1", Operator: OpIn, Value: Text("not a list")}
	errs := c.Validate()
	require.NotEmpty(t, errs)
	assert.Equal(t, "value", errs[0].Field)

	c = Condition{QuestionID: "q1", Operator: OpEquals, Value: Text("ok")}
	assert.Empty(t, c.Validate())
}

func TestAction_Validate(t *testing.T) {
	a := Action{Type: ActionSkipTo}
	errs := a.Validate()
	require.NotEmpty(t, errs)
	assert.Equal(t, "target_question_id", errs[0].Field)

	a = Action{Type: ActionEndSurvey, TargetQuestionID: "q9"}
	assert.NotEmpty(t, a.Validate())

	a = Action{Type: ActionShow, TargetQuestionID: "q2"}
	assert.Empty(t, a.Validate())
}

func TestQuota_Validate(t *testing.T) {
	q := Quota{ID: "qt1", SurveyID: "s1", Name: "Option A cap", Limit: 1, Action: QuotaEndSurvey}
	assert.Empty(t, q.Validate())

	q.Limit = 0
	assert.NotEmpty(t, q.Validate())

	q = Quota{ID: "qt1", SurveyID: "s1", Name: "redirect", Limit: 5, Action: QuotaRedirect}
	errs := q.Validate()
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Message, "action_url")

	q.ActionURL = "https://example.com/full"
	assert.Empty(t, q.Validate())
}

func TestRule_Validate(t *testing.T) {
	r := Rule{
		ID:               "r1",
		SurveyID:         "s1",
		SourceQuestionID: "q1",
		Kind:             RuleDisplayLogic,
		Conditions: []Condition{
			{QuestionID: "q1", Operator: OpLessThan, Value: Number(3)},
		},
		Actions: []Action{{Type: ActionShow, TargetQuestionID: "q2"}},
	}
	assert.Empty(t, r.Validate())

	r.Actions = nil
	assert.NotEmpty(t, r.Validate())

	r.Actions = []Action{{Type: ActionType("EXPLODE")}}
	errs := r.Validate()
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Field, "actions[0]")
}
