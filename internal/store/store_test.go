package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/canvass/internal/survey"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedSurvey(t *testing.T, s *Store) *survey.Survey {
	t.Helper()
	sv := &survey.Survey{
		ID:    "s1",
		Title: "Customer feedback",
		Questions: []survey.Question{
			{
				ID: "q1", SurveyID: "s1", Kind: survey.KindChoice,
				Prompt: "Which option?", Position: 1, Required: true,
				Options: []survey.Option{
					{ID: "o1", Text: "Option A", Value: "Option A"},
					{ID: "o2", Text: "Option B", Value: "Option B"},
				},
			},
			{ID: "q2", SurveyID: "s1", Kind: survey.KindNumber, Prompt: "Salary?", Position: 2},
			{ID: "q3", SurveyID: "s1", Kind: survey.KindShortText, Prompt: "Comments?", Position: 3},
		},
	}
	require.NoError(t, s.CreateSurvey(context.Background(), sv))
	return sv
}

func TestOpen_Idempotent(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/canvass.db"

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestGetSurvey_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	seedSurvey(t, s)

	sv, err := s.GetSurvey(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "Customer feedback", sv.Title)
	require.Len(t, sv.Questions, 3)
	assert.Equal(t, "q1", sv.Questions[0].ID)
	assert.True(t, sv.Questions[0].Required)
	require.Len(t, sv.Questions[0].Options, 2)
	assert.Equal(t, "Option A", sv.Questions[0].Options[0].Value)
	assert.Nil(t, sv.Questions[1].Options)
}

func TestGetSurvey_NotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetSurvey(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, survey.IsNotFound(err))
}

func TestListRules_EvaluationOrder(t *testing.T) {
	s := openTestStore(t)
	seedSurvey(t, s)
	ctx := context.Background()

	cond := survey.Condition{QuestionID: "q1", Operator: survey.OpEquals, Value: survey.Text("Option A")}
	// Inserted out of priority order on purpose.
	require.NoError(t, s.CreateRule(ctx, &survey.Rule{
		ID: "r2", SurveyID: "s1", SourceQuestionID: "q1", Kind: survey.RuleSkipLogic,
		Priority:   2,
		Conditions: []survey.Condition{cond},
		Actions:    []survey.Action{{Type: survey.ActionSkipTo, TargetQuestionID: "q3"}},
		TargetQuestionID: "q3",
	}))
	require.NoError(t, s.CreateRule(ctx, &survey.Rule{
		ID: "r1", SurveyID: "s1", SourceQuestionID: "q1", Kind: survey.RuleBranching,
		Priority:   1,
		Conditions: []survey.Condition{cond},
		Actions:    []survey.Action{{Type: survey.ActionEndSurvey}},
	}))

	rules, err := s.ListRules(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "r1", rules[0].ID, "lower priority evaluates first")
	assert.Equal(t, "r2", rules[1].ID)

	// Conditions survive the JSON boundary typed.
	require.Len(t, rules[0].Conditions, 1)
	assert.Equal(t, survey.Text("Option A"), rules[0].Conditions[0].Value)
}

func TestQuota_CRUDRoundTrip(t *testing.T) {
	s := openTestStore(t)
	seedSurvey(t, s)
	ctx := context.Background()

	q := &survey.Quota{
		ID: "qt1", SurveyID: "s1", Name: "Option A cap",
		Limit: 10, Action: survey.QuotaEndSurvey, Active: true,
		Conditions: []survey.Condition{
			{QuestionID: "q1", Operator: survey.OpEquals, Value: survey.Text("Option A")},
		},
	}
	require.NoError(t, s.CreateQuota(ctx, q))

	got, err := s.GetQuota(ctx, "qt1")
	require.NoError(t, err)
	assert.Equal(t, 10, got.Limit)
	assert.Equal(t, 0, got.CurrentCount)
	assert.True(t, got.Active)
	require.Len(t, got.Conditions, 1)
	assert.Equal(t, survey.OpEquals, got.Conditions[0].Operator)

	got.Name = "renamed"
	got.Limit = 20
	require.NoError(t, s.UpdateQuota(ctx, got))
	got, err = s.GetQuota(ctx, "qt1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.Equal(t, 20, got.Limit)

	require.NoError(t, s.SetQuotaActive(ctx, "qt1", false))
	active, err := s.ListActiveQuotas(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := s.ListQuotas(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, s.DeleteQuota(ctx, "qt1"))
	_, err = s.GetQuota(ctx, "qt1")
	assert.True(t, survey.IsNotFound(err))
}

func TestUpdateQuota_CannotTouchCounter(t *testing.T) {
	s := openTestStore(t)
	seedSurvey(t, s)
	ctx := context.Background()

	q := &survey.Quota{
		ID: "qt1", SurveyID: "s1", Name: "cap", Limit: 5,
		Action: survey.QuotaContinue, Active: true,
	}
	require.NoError(t, s.CreateQuota(ctx, q))
	seedResponse(t, s, "resp-1")
	_, err := s.IncrementQuota(ctx, "qt1", "resp-1")
	require.NoError(t, err)

	// A stale or hostile struct cannot reset the count through UpdateQuota.
	q.CurrentCount = 0
	require.NoError(t, s.UpdateQuota(ctx, q))
	got, err := s.GetQuota(ctx, "qt1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentCount)
}

func seedResponse(t *testing.T, s *Store, id string) {
	t.Helper()
	require.NoError(t, s.CreateResponse(context.Background(), &survey.Response{
		ID: id, SurveyID: "s1", Complete: true,
		Answers:   []survey.Answer{{QuestionID: "q1", Value: survey.Text("Option A")}},
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}))
}

func TestIncrementQuota_Idempotent(t *testing.T) {
	s := openTestStore(t)
	seedSurvey(t, s)
	ctx := context.Background()

	require.NoError(t, s.CreateQuota(ctx, &survey.Quota{
		ID: "qt1", SurveyID: "s1", Name: "cap", Limit: 3,
		Action: survey.QuotaEndSurvey, Active: true,
	}))
	seedResponse(t, s, "resp-1")

	inserted, err := s.IncrementQuota(ctx, "qt1", "resp-1")
	require.NoError(t, err)
	assert.True(t, inserted)

	// Retry with the same response: no-op, not a double count.
	inserted, err = s.IncrementQuota(ctx, "qt1", "resp-1")
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := s.GetQuota(ctx, "qt1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentCount)

	n, err := s.CountQuotaResponses(ctx, "qt1")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "counter and join rows stay in lockstep")
}

func TestIncrementQuota_UnknownQuota(t *testing.T) {
	s := openTestStore(t)
	seedSurvey(t, s)
	seedResponse(t, s, "resp-1")

	_, err := s.IncrementQuota(context.Background(), "ghost", "resp-1")
	require.Error(t, err)
}

func TestCreateResponse_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	seedSurvey(t, s)
	ctx := context.Background()

	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	resp := &survey.Response{
		ID: "resp-1", SurveyID: "s1", Complete: false,
		TerminalReason: survey.TerminalQuota,
		TerminalQuota:  "qt1",
		TerminalAction: survey.QuotaRedirect,
		RedirectURL:    "https://example.com/full",
		Answers: []survey.Answer{
			{QuestionID: "q1", Value: survey.Text("Option B")},
			{QuestionID: "q2", Value: survey.Number(52500)},
			{QuestionID: "q3", Value: survey.Set{"a", "b"}},
		},
		CreatedAt: created,
	}
	require.NoError(t, s.CreateResponse(ctx, resp))

	got, err := s.GetResponse(ctx, "resp-1")
	require.NoError(t, err)
	assert.False(t, got.Complete)
	assert.Equal(t, survey.TerminalQuota, got.TerminalReason)
	assert.Equal(t, "https://example.com/full", got.RedirectURL)
	assert.True(t, got.CreatedAt.Equal(created))
	require.Len(t, got.Answers, 3)
	assert.Equal(t, survey.Number(52500), got.Answers[1].Value)
	assert.Equal(t, survey.Set{"a", "b"}, got.Answers[2].Value)
}
