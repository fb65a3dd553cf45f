package quota

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/canvass/internal/ident"
	"github.com/roach88/canvass/internal/logic"
	"github.com/roach88/canvass/internal/store"
	"github.com/roach88/canvass/internal/survey"
)

func testTracker(t *testing.T) (*Tracker, *store.Store) {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	sv := &survey.Survey{
		ID:    "s1",
		Title: "Screening",
		Questions: []survey.Question{
			{
				ID: "q1", SurveyID: "s1", Kind: survey.KindChoice, Prompt: "Pick one", Position: 1,
				Options: []survey.Option{{ID: "a", Text: "Option A", Value: "Option A"}, {ID: "b", Text: "Option B", Value: "Option B"}},
			},
			{ID: "q2", SurveyID: "s1", Kind: survey.KindNumber, Prompt: "Age", Position: 2},
		},
	}
	require.NoError(t, s.CreateSurvey(context.Background(), sv))
	return NewTracker(s, ident.NewFixedGenerator("gen-1", "gen-2", "gen-3"), nil), s
}

func optionACondition() survey.Condition {
	return survey.Condition{QuestionID: "q1", Operator: survey.OpEquals, Value: survey.Text("Option A")}
}

func createQuota(t *testing.T, tr *Tracker, q survey.Quota) *survey.Quota {
	t.Helper()
	require.NoError(t, tr.Create(context.Background(), &q))
	return &q
}

func seedResponse(t *testing.T, s *store.Store, id string) {
	t.Helper()
	require.NoError(t, s.CreateResponse(context.Background(), &survey.Response{
		ID: id, SurveyID: "s1", Complete: true,
		Answers:   []survey.Answer{{QuestionID: "q1", Value: survey.Text("Option A")}},
		CreatedAt: time.Now().UTC(),
	}))
}

func TestCheck_MatchesAndReached(t *testing.T) {
	tr, s := testTracker(t)
	ctx := context.Background()

	q := createQuota(t, tr, survey.Quota{
		SurveyID: "s1", Name: "Option A cap", Limit: 1,
		Action: survey.QuotaEndSurvey, Active: true,
		Conditions: []survey.Condition{optionACondition()},
	})

	res, err := tr.Check(ctx, "s1", logic.Answers{"q1": survey.Text("Option A")})
	require.NoError(t, err)
	require.Len(t, res.Matching, 1)
	assert.False(t, res.QuotaReached, "empty quota is matched but not reached")

	// Non-matching answers: no match at all.
	res, err = tr.Check(ctx, "s1", logic.Answers{"q1": survey.Text("Option B")})
	require.NoError(t, err)
	assert.Empty(t, res.Matching)
	assert.False(t, res.QuotaReached)

	// Fill the quota; the same answers now report reached.
	seedResponse(t, s, "resp-1")
	require.NoError(t, tr.Increment(ctx, "resp-1", []string{q.ID}))

	res, err = tr.Check(ctx, "s1", logic.Answers{"q1": survey.Text("Option A")})
	require.NoError(t, err)
	require.Len(t, res.Matching, 1)
	assert.True(t, res.QuotaReached)
}

func TestCheck_InactiveQuotasInvisible(t *testing.T) {
	tr, s := testTracker(t)
	ctx := context.Background()

	q := createQuota(t, tr, survey.Quota{
		SurveyID: "s1", Name: "cap", Limit: 1,
		Action: survey.QuotaEndSurvey, Active: true,
		Conditions: []survey.Condition{optionACondition()},
	})
	seedResponse(t, s, "resp-1")
	require.NoError(t, tr.Increment(ctx, "resp-1", []string{q.ID}))

	// Even a full quota disappears from checks once toggled off.
	require.NoError(t, tr.Toggle(ctx, q.ID, false))
	res, err := tr.Check(ctx, "s1", logic.Answers{"q1": survey.Text("Option A")})
	require.NoError(t, err)
	assert.Empty(t, res.Matching)
	assert.False(t, res.QuotaReached)

	// The count survives the toggle.
	got, err := s.GetQuota(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentCount)
}

func TestCheck_ConditionlessQuotaMatchesEverything(t *testing.T) {
	tr, _ := testTracker(t)

	createQuota(t, tr, survey.Quota{
		SurveyID: "s1", Name: "total responses", Limit: 100,
		Action: survey.QuotaContinue, Active: true,
	})

	res, err := tr.Check(context.Background(), "s1", logic.Answers{})
	require.NoError(t, err)
	assert.Len(t, res.Matching, 1)
}

func TestIncrement_IdempotentPerResponse(t *testing.T) {
	tr, s := testTracker(t)
	ctx := context.Background()

	q := createQuota(t, tr, survey.Quota{
		SurveyID: "s1", Name: "cap", Limit: 5,
		Action: survey.QuotaContinue, Active: true,
	})
	seedResponse(t, s, "resp-1")

	require.NoError(t, tr.Increment(ctx, "resp-1", []string{q.ID}))
	require.NoError(t, tr.Increment(ctx, "resp-1", []string{q.ID}))

	got, err := s.GetQuota(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentCount)
}

func TestIncrement_OneFailureDoesNotStopOthers(t *testing.T) {
	tr, s := testTracker(t)
	ctx := context.Background()

	q := createQuota(t, tr, survey.Quota{
		SurveyID: "s1", Name: "cap", Limit: 5,
		Action: survey.QuotaContinue, Active: true,
	})
	seedResponse(t, s, "resp-1")

	// "ghost" fails its increment; the real quota still accrues.
	err := tr.Increment(ctx, "resp-1", []string{"ghost", q.ID})
	require.Error(t, err)

	got, err := s.GetQuota(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentCount)
}

func TestStatus_Percentage(t *testing.T) {
	tr, s := testTracker(t)
	ctx := context.Background()

	q := createQuota(t, tr, survey.Quota{
		SurveyID: "s1", Name: "cap", Limit: 10,
		Action: survey.QuotaContinue, Active: true,
	})
	for i, id := range []string{"r1", "r2", "r3", "r4", "r5"} {
		seedResponse(t, s, id)
		require.NoError(t, tr.Increment(ctx, id, []string{q.ID}), "increment %d", i)
	}

	statuses, err := tr.Status(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, 5, statuses[0].CurrentCount)
	assert.Equal(t, 10, statuses[0].Limit)
	assert.Equal(t, 50, statuses[0].Percentage)
}

func TestCreate_ValidatesAndAssignsID(t *testing.T) {
	tr, _ := testTracker(t)
	ctx := context.Background()

	q := survey.Quota{SurveyID: "s1", Name: "cap", Limit: 0, Action: survey.QuotaEndSurvey}
	err := tr.Create(ctx, &q)
	require.Error(t, err, "limit < 1 is rejected")

	q.Limit = 3
	q.CurrentCount = 99 // ignored on create
	require.NoError(t, tr.Create(ctx, &q))
	assert.Equal(t, "gen-1", q.ID, "id assigned from the generator")
	assert.Equal(t, 0, q.CurrentCount)
}

func TestUpdate_PartialMutation(t *testing.T) {
	tr, s := testTracker(t)
	ctx := context.Background()

	q := createQuota(t, tr, survey.Quota{
		SurveyID: "s1", Name: "cap", Limit: 3,
		Action: survey.QuotaEndSurvey, Active: true,
	})

	newLimit := 7
	redirect := survey.QuotaRedirect
	url := "https://example.com/full"
	updated, err := tr.Update(ctx, q.ID, UpdateParams{
		Limit:     &newLimit,
		Action:    &redirect,
		ActionURL: &url,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Limit)
	assert.Equal(t, survey.QuotaRedirect, updated.Action)
	assert.Equal(t, "cap", updated.Name, "unset fields unchanged")

	// REDIRECT without a URL is invalid.
	endSurvey := survey.QuotaEndSurvey
	_, err = tr.Update(ctx, q.ID, UpdateParams{Action: &redirect, ActionURL: new(string)})
	require.Error(t, err)

	// Switching away from REDIRECT drops the stale URL.
	updated, err = tr.Update(ctx, q.ID, UpdateParams{Action: &endSurvey})
	require.NoError(t, err)
	assert.Empty(t, updated.ActionURL)

	_, err = tr.Update(ctx, "ghost", UpdateParams{Limit: &newLimit})
	assert.True(t, survey.IsNotFound(err))

	_ = s
}
