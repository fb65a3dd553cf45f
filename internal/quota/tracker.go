// Package quota gates and counts responses against configured caps.
//
// The tracker itself never decides a submission's fate: Check is advisory
// (read-only), Increment counts, and the orchestrator resolves what a full
// quota means for the response. The window between an admission check and
// the later increment is deliberate - overshoot is bounded by the storage
// layer's conditional increment, not eliminated by serializing submissions.
package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/roach88/canvass/internal/ident"
	"github.com/roach88/canvass/internal/logic"
	"github.com/roach88/canvass/internal/survey"
)

// Store is the narrow persistence port the tracker depends on.
// *store.Store satisfies it; tests substitute sqlite :memory: or fakes.
type Store interface {
	ListQuestions(ctx context.Context, surveyID string) ([]survey.Question, error)
	ListQuotas(ctx context.Context, surveyID string) ([]survey.Quota, error)
	ListActiveQuotas(ctx context.Context, surveyID string) ([]survey.Quota, error)
	GetQuota(ctx context.Context, id string) (*survey.Quota, error)
	CreateQuota(ctx context.Context, q *survey.Quota) error
	UpdateQuota(ctx context.Context, q *survey.Quota) error
	DeleteQuota(ctx context.Context, id string) error
	SetQuotaActive(ctx context.Context, id string, active bool) error

	// IncrementQuota atomically records (quotaID, responseID) and bumps the
	// counter in one transaction. Returns false when the pair already
	// exists - the idempotent no-op case.
	IncrementQuota(ctx context.Context, quotaID, responseID string) (bool, error)
}

// CheckResult is the advisory outcome of matching a response's answers
// against a survey's active quotas.
type CheckResult struct {
	// QuotaReached is true iff at least one matching quota is at or over
	// its limit, regardless of that quota's action.
	QuotaReached bool
	// Matching holds every active quota whose conditions all passed, in
	// store order, independent of whether it has reached its limit.
	Matching []survey.Quota
}

// Status is one quota's fill level for reporting.
type Status struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	CurrentCount int    `json:"current_count"`
	Limit        int    `json:"limit"`
	Percentage   int    `json:"percentage"`
	Active       bool   `json:"active"`
}

// UpdateParams carries a partial quota mutation. Nil fields are unchanged.
type UpdateParams struct {
	Name      *string
	Limit     *int
	Action    *survey.QuotaAction
	ActionURL *string
}

// Tracker matches responses against quotas and enforces counts.
type Tracker struct {
	store Store
	idgen ident.Generator
	log   *slog.Logger
}

// NewTracker constructs a tracker over the given store.
// A nil generator defaults to UUIDv7; a nil logger to slog.Default().
func NewTracker(store Store, idgen ident.Generator, log *slog.Logger) *Tracker {
	if idgen == nil {
		idgen = ident.UUIDv7Generator{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Tracker{store: store, idgen: idgen, log: log}
}

// Check matches the answer set against the survey's active quotas.
//
// Inactive quotas are fully excluded: never matched, never counted, even
// when their counter already sits at or over the limit. Check mutates
// nothing; the caller decides whether a reached quota blocks admission.
func (t *Tracker) Check(ctx context.Context, surveyID string, answers logic.Answers) (*CheckResult, error) {
	questions, err := t.store.ListQuestions(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("check quotas: %w", err)
	}
	quotas, err := t.store.ListActiveQuotas(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("check quotas: %w", err)
	}

	eval := logic.NewEvaluator(questions, t.log)

	result := &CheckResult{}
	for _, q := range quotas {
		if !eval.EvaluateAll(q.Conditions, answers) {
			continue
		}
		result.Matching = append(result.Matching, q)
		if q.Reached() {
			result.QuotaReached = true
		}
	}
	return result, nil
}

// Increment counts a completed response against each matched quota.
//
// Each quota increments in its own storage transaction: counter bump and
// (quota_id, response_id) join row commit together or not at all. The join
// row's unique constraint makes re-invocation with the same response id a
// no-op, never a double count.
//
// One quota's failure does not stop the others - the response commit this
// accrual follows has already succeeded. Failures are logged and returned
// joined for observability.
func (t *Tracker) Increment(ctx context.Context, responseID string, quotaIDs []string) error {
	var errs []error
	for _, quotaID := range quotaIDs {
		inserted, err := t.store.IncrementQuota(ctx, quotaID, responseID)
		if err != nil {
			t.log.Error("quota increment failed",
				"quota_id", quotaID,
				"response_id", responseID,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("quota %s: %w", quotaID, err))
			continue
		}
		if !inserted {
			t.log.Info("quota increment skipped: already counted",
				"quota_id", quotaID,
				"response_id", responseID,
			)
		}
	}
	return errors.Join(errs...)
}

// Status reports fill levels for all of a survey's quotas, active or not.
func (t *Tracker) Status(ctx context.Context, surveyID string) ([]Status, error) {
	quotas, err := t.store.ListQuotas(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("quota status: %w", err)
	}

	statuses := make([]Status, 0, len(quotas))
	for _, q := range quotas {
		statuses = append(statuses, Status{
			ID:           q.ID,
			Name:         q.Name,
			CurrentCount: q.CurrentCount,
			Limit:        q.Limit,
			Percentage:   percentage(q.CurrentCount, q.Limit),
			Active:       q.Active,
		})
	}
	return statuses, nil
}

// Create validates and persists a new quota. Assigns an id when absent.
// New quotas start with a zero count; CurrentCount on the input is ignored.
func (t *Tracker) Create(ctx context.Context, q *survey.Quota) error {
	if q.ID == "" {
		q.ID = t.idgen.NewID()
	}
	q.CurrentCount = 0
	if errs := q.Validate(); len(errs) > 0 {
		return fmt.Errorf("create quota: %w", errs[0])
	}
	return t.store.CreateQuota(ctx, q)
}

// Update applies a partial mutation to name/limit/action fields.
// The counter is never touched here.
func (t *Tracker) Update(ctx context.Context, id string, params UpdateParams) (*survey.Quota, error) {
	q, err := t.store.GetQuota(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.Name != nil {
		q.Name = *params.Name
	}
	if params.Limit != nil {
		q.Limit = *params.Limit
	}
	if params.Action != nil {
		q.Action = *params.Action
		if q.Action != survey.QuotaRedirect {
			q.ActionURL = ""
		}
	}
	if params.ActionURL != nil {
		q.ActionURL = *params.ActionURL
	}

	if errs := q.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("update quota %s: %w", id, errs[0])
	}
	if err := t.store.UpdateQuota(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// Toggle flips a quota's active flag. Deactivating removes the quota from
// Check consideration immediately; the accumulated count is retained, not
// reset, so re-activation resumes where it left off.
func (t *Tracker) Toggle(ctx context.Context, id string, active bool) error {
	return t.store.SetQuotaActive(ctx, id, active)
}

// Delete removes a quota and its join rows.
func (t *Tracker) Delete(ctx context.Context, id string) error {
	return t.store.DeleteQuota(ctx, id)
}

// percentage is round(current/limit*100). Limit >= 1 is a model invariant.
func percentage(current, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int(math.Round(float64(current) / float64(limit) * 100))
}
