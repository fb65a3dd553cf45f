package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/canvass/internal/engine"
	"github.com/roach88/canvass/internal/ident"
	"github.com/roach88/canvass/internal/loader"
	"github.com/roach88/canvass/internal/logic"
	"github.com/roach88/canvass/internal/quota"
	"github.com/roach88/canvass/internal/store"
	"github.com/roach88/canvass/internal/survey"
)

// Result is the deterministic snapshot of a scenario run. Its JSON
// rendering is what golden files store.
type Result struct {
	Scenario string       `json:"scenario"`
	SurveyID string       `json:"survey_id"`
	Steps    []StepResult `json:"steps"`
	Quotas   []QuotaFill  `json:"quotas,omitempty"`
}

// StepResult is the outcome of one submission.
type StepResult struct {
	Status         string   `json:"status"` // completed | terminated | rejected
	ResponseID     string   `json:"response_id,omitempty"`
	Visited        []string `json:"visited,omitempty"`
	AnswersKept    []string `json:"answers_kept,omitempty"`
	TerminalReason string   `json:"terminal_reason,omitempty"`
	TerminalQuota  string   `json:"terminal_quota,omitempty"`
	RedirectURL    string   `json:"redirect_url,omitempty"`
	Error          string   `json:"error,omitempty"` // rejected submissions only
}

// QuotaFill is one quota's final count after the run.
type QuotaFill struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
	Limit int    `json:"limit"`
}

// runClock is the pinned submission timestamp. Timestamps never appear in
// snapshots, but a fixed clock keeps stored rows reproducible too.
var runClock = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// Run executes a scenario against a fresh in-memory store.
//
// Response ids come from a sequence generator ("resp-001", ...), so
// snapshots are stable across runs. An error is returned for harness
// problems (bad definition, store failure); rejected submissions are not
// errors - they become steps with status "rejected".
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	def, err := loader.Load(scenario.Definition, ident.NewSequenceGenerator("def"))
	if err != nil {
		return nil, fmt.Errorf("load definition: %w", err)
	}
	if err := loader.Import(ctx, st, def); err != nil {
		return nil, fmt.Errorf("import definition: %w", err)
	}

	idgen := ident.NewSequenceGenerator("resp")
	tracker := quota.NewTracker(st, idgen, nil)
	eng := engine.New(st, st, tracker, idgen, nil,
		engine.WithNow(func() time.Time { return runClock }),
	)

	result := &Result{
		Scenario: scenario.Name,
		SurveyID: def.Survey.ID,
	}

	for i, step := range scenario.Submissions {
		answers := make(logic.Answers, len(step.Answers))
		for qid, raw := range step.Answers {
			v, err := survey.AnswerValueFrom(raw)
			if err != nil {
				return nil, fmt.Errorf("submissions[%d] answer %s: %w", i, qid, err)
			}
			answers[qid] = v
		}

		res, err := eng.SubmitResponse(ctx, def.Survey.ID, answers)
		if err != nil {
			if !engine.IsValidationError(err) {
				return nil, fmt.Errorf("submissions[%d]: %w", i, err)
			}
			result.Steps = append(result.Steps, StepResult{
				Status: ExpectRejected,
				Error:  err.Error(),
			})
			continue
		}

		sr := StepResult{
			Status:         string(res.Status),
			ResponseID:     res.Response.ID,
			Visited:        res.Visited,
			TerminalReason: string(res.Response.TerminalReason),
			TerminalQuota:  res.Response.TerminalQuota,
			RedirectURL:    res.Response.RedirectURL,
		}
		for _, a := range res.Response.Answers {
			sr.AnswersKept = append(sr.AnswersKept, a.QuestionID)
		}
		result.Steps = append(result.Steps, sr)
	}

	statuses, err := tracker.Status(ctx, def.Survey.ID)
	if err != nil {
		return nil, fmt.Errorf("quota status: %w", err)
	}
	for _, s := range statuses {
		result.Quotas = append(result.Quotas, QuotaFill{
			ID:    s.ID,
			Name:  s.Name,
			Count: s.CurrentCount,
			Limit: s.Limit,
		})
	}

	return result, nil
}
