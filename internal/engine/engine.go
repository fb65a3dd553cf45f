package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/roach88/canvass/internal/ident"
	"github.com/roach88/canvass/internal/logic"
	"github.com/roach88/canvass/internal/quota"
	"github.com/roach88/canvass/internal/survey"
)

// DefaultMaxSteps is the navigation walk's default step budget.
// Generous for any real survey; only an authored rule cycle can hit it.
const DefaultMaxSteps = 1000

// SurveyReader is the read side of the persistence port.
// *store.Store satisfies it.
type SurveyReader interface {
	GetSurvey(ctx context.Context, id string) (*survey.Survey, error)
	ListRules(ctx context.Context, surveyID string) ([]survey.Rule, error)
}

// ResponseWriter is the write side of the persistence port.
// *store.Store satisfies it.
type ResponseWriter interface {
	CreateResponse(ctx context.Context, r *survey.Response) error
}

// Status is the terminal state of a submission.
type Status string

const (
	// StatusCompleted means the walk reached the end of the survey and the
	// response was committed and counted.
	StatusCompleted Status = "completed"
	// StatusTerminated means logic, a quota, or the step budget ended the
	// submission early. The response is stored but never counted.
	StatusTerminated Status = "terminated"
)

// SubmitResult is the outcome of one submission.
type SubmitResult struct {
	Status Status
	// Response is the persisted record, terminal metadata included.
	Response *survey.Response
	// Visited lists the questions visited while visible, in walk order.
	Visited []string
}

// Engine runs submissions through the walk/validate/gate/commit/count
// pipeline. Construct with New; safe for concurrent use.
type Engine struct {
	surveys   SurveyReader
	responses ResponseWriter
	quotas    *quota.Tracker
	idgen     ident.Generator
	log       *slog.Logger
	now       func() time.Time
	maxSteps  int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxSteps overrides the walk's step budget.
// Use a small value to exercise budget exhaustion in tests.
func WithMaxSteps(n int) Option {
	return func(e *Engine) { e.maxSteps = n }
}

// WithNow overrides the engine's clock. Tests pin it for stable timestamps.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New constructs an Engine.
// A nil generator defaults to UUIDv7; a nil logger to slog.Default().
func New(surveys SurveyReader, responses ResponseWriter, quotas *quota.Tracker, idgen ident.Generator, log *slog.Logger, opts ...Option) *Engine {
	if idgen == nil {
		idgen = ident.UUIDv7Generator{}
	}
	if log == nil {
		log = slog.Default()
	}
	e := &Engine{
		surveys:   surveys,
		responses: responses,
		quotas:    quotas,
		idgen:     idgen,
		log:       log,
		now:       time.Now,
		maxSteps:  DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SubmitResponse runs one submission end to end.
//
// The answer set is matched against the survey's rules to reconstruct the
// respondent's path; answers to questions outside that path are dropped.
// Required questions on the path must be answered or the whole submission
// is rejected with a ValidationError and nothing persists.
//
// A terminated submission - logic END_SURVEY, full quota, or step budget -
// still persists its response (Complete=false, terminal metadata set) but
// never increments any quota. Only a completed response counts, and
// counting is idempotent per response id.
func (e *Engine) SubmitResponse(ctx context.Context, surveyID string, answers logic.Answers) (*SubmitResult, error) {
	sv, err := e.surveys.GetSurvey(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	rules, err := e.surveys.ListRules(ctx, surveyID)
	if err != nil {
		return nil, err
	}

	out, err := e.walk(sv, rules, answers)
	if err != nil {
		return nil, err
	}

	if verr := e.validate(sv, out, answers); verr != nil {
		return nil, verr
	}

	kept := keepVisited(out, answers)
	resp := &survey.Response{
		ID:        e.idgen.NewID(),
		SurveyID:  surveyID,
		Answers:   answerList(kept),
		CreatedAt: e.now().UTC(),
	}

	if out.Terminated {
		resp.TerminalReason = out.Reason
		if err := e.responses.CreateResponse(ctx, resp); err != nil {
			return nil, fmt.Errorf("commit response: %w", err)
		}
		e.log.Info("response terminated",
			"survey_id", surveyID,
			"response_id", resp.ID,
			"reason", resp.TerminalReason,
		)
		return &SubmitResult{Status: StatusTerminated, Response: resp, Visited: out.Visited}, nil
	}

	check, err := e.quotas.Check(ctx, surveyID, kept)
	if err != nil {
		return nil, err
	}
	if blocked := blockingQuota(check); blocked != nil {
		resp.TerminalReason = survey.TerminalQuota
		resp.TerminalQuota = blocked.ID
		resp.TerminalAction = blocked.Action
		if blocked.Action == survey.QuotaRedirect {
			resp.RedirectURL = blocked.ActionURL
		}
		if err := e.responses.CreateResponse(ctx, resp); err != nil {
			return nil, fmt.Errorf("commit response: %w", err)
		}
		e.log.Info("response blocked by quota",
			"survey_id", surveyID,
			"response_id", resp.ID,
			"quota_id", blocked.ID,
			"action", blocked.Action,
		)
		return &SubmitResult{Status: StatusTerminated, Response: resp, Visited: out.Visited}, nil
	}

	resp.Complete = true
	if err := e.responses.CreateResponse(ctx, resp); err != nil {
		return nil, fmt.Errorf("commit response: %w", err)
	}

	quotaIDs := make([]string, 0, len(check.Matching))
	for _, q := range check.Matching {
		quotaIDs = append(quotaIDs, q.ID)
	}
	if err := e.quotas.Increment(ctx, resp.ID, quotaIDs); err != nil {
		// The response is already committed; accrual failures are surfaced
		// but do not undo the submission.
		return nil, fmt.Errorf("count response %s: %w", resp.ID, err)
	}

	e.log.Info("response completed",
		"survey_id", surveyID,
		"response_id", resp.ID,
		"answers", len(resp.Answers),
		"quotas_counted", len(quotaIDs),
	)
	return &SubmitResult{Status: StatusCompleted, Response: resp, Visited: out.Visited}, nil
}

// validate checks the answer set against the walked path.
func (e *Engine) validate(sv *survey.Survey, out *walkOutcome, answers logic.Answers) error {
	verr := &ValidationError{}

	for _, id := range out.Visited {
		q := sv.QuestionByID(id)
		if q == nil {
			continue
		}
		v, answered := answers[id]
		if !answered {
			if q.Required && !out.Terminated {
				verr.Missing = append(verr.Missing, id)
			}
			continue
		}
		if p := checkAnswerFits(q, v); p != "" {
			verr.Problems = append(verr.Problems, p)
		}
	}

	for id := range answers {
		if sv.QuestionByID(id) == nil {
			verr.Problems = append(verr.Problems, fmt.Sprintf("answer for unknown question %s", id))
		}
	}

	if len(verr.Missing) > 0 || len(verr.Problems) > 0 {
		sort.Strings(verr.Missing)
		sort.Strings(verr.Problems)
		return verr
	}
	return nil
}

// checkAnswerFits returns a problem description, or "" when the answer
// fits the question's kind and options.
func checkAnswerFits(q *survey.Question, v survey.Value) string {
	if q.Kind.Numeric() {
		if _, ok := survey.NumberOf(v); !ok {
			return fmt.Sprintf("question %s expects a number", q.ID)
		}
		return ""
	}

	if len(q.Options) == 0 {
		return ""
	}
	allowed := make(map[string]bool, len(q.Options))
	for _, o := range q.Options {
		allowed[o.Value] = true
	}
	switch val := v.(type) {
	case survey.Set:
		for _, s := range val {
			if !allowed[s] {
				return fmt.Sprintf("question %s has no option %q", q.ID, s)
			}
		}
	default:
		if s, ok := survey.TextOf(v); ok && !allowed[s] {
			return fmt.Sprintf("question %s has no option %q", q.ID, s)
		}
	}
	return ""
}

// blockingQuota returns the first matching full quota whose action blocks,
// in store order (UUIDv7 ids: creation order). CONTINUE quotas never block.
func blockingQuota(check *quota.CheckResult) *survey.Quota {
	for i := range check.Matching {
		q := &check.Matching[i]
		if q.Reached() && q.Action != survey.QuotaContinue {
			return q
		}
	}
	return nil
}

// keepVisited drops answers to questions outside the walked path.
func keepVisited(out *walkOutcome, answers logic.Answers) logic.Answers {
	kept := make(logic.Answers, len(out.Visited))
	for _, id := range out.Visited {
		if v, ok := answers[id]; ok {
			kept[id] = v
		}
	}
	return kept
}

// answerList converts the kept map into deterministic question-id order.
func answerList(kept logic.Answers) []survey.Answer {
	ids := make([]string, 0, len(kept))
	for id := range kept {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	answers := make([]survey.Answer, 0, len(ids))
	for _, id := range ids {
		answers = append(answers, survey.Answer{QuestionID: id, Value: kept[id]})
	}
	return answers
}
