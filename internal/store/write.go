package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/canvass/internal/survey"
)

const timeFormat = time.RFC3339Nano

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeFormat, s)
}

// CreateSurvey inserts a survey with its questions in one transaction.
// Used by the definition importer; response collection never writes here.
func (s *Store) CreateSurvey(ctx context.Context, sv *survey.Survey) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO surveys (id, title) VALUES (?, ?)`,
			sv.ID, sv.Title,
		); err != nil {
			return fmt.Errorf("insert survey: %w", err)
		}
		for i := range sv.Questions {
			q := &sv.Questions[i]
			optionsJSON, err := marshalOptions(q.Options)
			if err != nil {
				return fmt.Errorf("question %s: %w", q.ID, err)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO questions (id, survey_id, kind, prompt, position, required, options)
				VALUES (?, ?, ?, ?, ?, ?, NULLIF(?, ''))
			`, q.ID, sv.ID, string(q.Kind), q.Prompt, q.Position, boolInt(q.Required), optionsJSON); err != nil {
				return fmt.Errorf("insert question %s: %w", q.ID, err)
			}
		}
		return nil
	})
}

// CreateRule inserts one logic rule.
func (s *Store) CreateRule(ctx context.Context, r *survey.Rule) error {
	condJSON, err := marshalConditions(r.Conditions)
	if err != nil {
		return fmt.Errorf("rule %s: %w", r.ID, err)
	}
	actJSON, err := marshalActions(r.Actions)
	if err != nil {
		return fmt.Errorf("rule %s: %w", r.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO survey_rules
		(id, survey_id, source_question_id, target_question_id, kind, priority, conditions, actions)
		VALUES (?, ?, ?, NULLIF(?, ''), ?, ?, ?, ?)
	`, r.ID, r.SurveyID, r.SourceQuestionID, r.TargetQuestionID,
		string(r.Kind), r.Priority, condJSON, actJSON)
	if err != nil {
		return fmt.Errorf("insert rule %s: %w", r.ID, err)
	}
	return nil
}

// CreateQuota inserts one quota. New quotas always start at count zero.
func (s *Store) CreateQuota(ctx context.Context, q *survey.Quota) error {
	condJSON, err := marshalConditions(q.Conditions)
	if err != nil {
		return fmt.Errorf("quota %s: %w", q.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO quotas
		(id, survey_id, name, max_responses, current_count, action, action_url, active, conditions)
		VALUES (?, ?, ?, ?, 0, ?, ?, ?, ?)
	`, q.ID, q.SurveyID, q.Name, q.Limit,
		string(q.Action), q.ActionURL, boolInt(q.Active), condJSON)
	if err != nil {
		return fmt.Errorf("insert quota %s: %w", q.ID, err)
	}
	return nil
}

// UpdateQuota rewrites a quota's configuration fields.
// current_count is deliberately NOT in the SET list: the counter only
// moves through IncrementQuota, whatever the in-memory struct says.
func (s *Store) UpdateQuota(ctx context.Context, q *survey.Quota) error {
	condJSON, err := marshalConditions(q.Conditions)
	if err != nil {
		return fmt.Errorf("quota %s: %w", q.ID, err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE quotas
		SET name = ?, max_responses = ?, action = ?, action_url = ?, conditions = ?
		WHERE id = ?
	`, q.Name, q.Limit, string(q.Action), q.ActionURL, condJSON, q.ID)
	if err != nil {
		return fmt.Errorf("update quota %s: %w", q.ID, err)
	}
	return requireRow(res, "quota", q.ID)
}

// SetQuotaActive toggles the active flag. The count survives toggling.
func (s *Store) SetQuotaActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE quotas SET active = ? WHERE id = ?`, boolInt(active), id)
	if err != nil {
		return fmt.Errorf("toggle quota %s: %w", id, err)
	}
	return requireRow(res, "quota", id)
}

// DeleteQuota removes a quota; join rows cascade.
func (s *Store) DeleteQuota(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM quotas WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete quota %s: %w", id, err)
	}
	return requireRow(res, "quota", id)
}

// CreateResponse inserts a finalized response with its answers in one
// transaction. Responses are write-once: the engine finalizes exactly one
// row per submission and never updates it afterward.
func (s *Store) CreateResponse(ctx context.Context, r *survey.Response) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO responses
			(id, survey_id, complete, terminal_reason, terminal_quota, terminal_action, redirect_url, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, r.ID, r.SurveyID, boolInt(r.Complete), string(r.TerminalReason),
			r.TerminalQuota, string(r.TerminalAction), r.RedirectURL,
			r.CreatedAt.UTC().Format(timeFormat)); err != nil {
			return fmt.Errorf("insert response %s: %w", r.ID, err)
		}

		for _, a := range r.Answers {
			valueJSON, err := marshalAnswerValue(a.Value)
			if err != nil {
				return fmt.Errorf("answer %s/%s: %w", r.ID, a.QuestionID, err)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO answers (response_id, question_id, value)
				VALUES (?, ?, ?)
			`, r.ID, a.QuestionID, valueJSON); err != nil {
				return fmt.Errorf("insert answer %s/%s: %w", r.ID, a.QuestionID, err)
			}
		}
		return nil
	})
}

// IncrementQuota counts one response against one quota, atomically.
//
// The two statements commit as a unit:
//
//  1. INSERT the (quota_id, response_id) join row with ON CONFLICT DO
//     NOTHING. Zero rows affected means this response was already counted
//     - the idempotent retry case - and the counter must not move.
//  2. UPDATE quotas SET current_count = current_count + 1: a single
//     conditional increment at the storage layer, never a read-modify-write
//     pair in Go. Concurrent submissions serialize on the row write, so
//     overshoot is bounded by the admission-check window, not by racing
//     increments.
//
// Returns (false, nil) for the already-counted no-op.
func (s *Store) IncrementQuota(ctx context.Context, quotaID, responseID string) (bool, error) {
	var inserted bool
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO quota_responses (quota_id, response_id)
			VALUES (?, ?)
			ON CONFLICT (quota_id, response_id) DO NOTHING
		`, quotaID, responseID)
		if err != nil {
			return fmt.Errorf("insert quota response: %w", err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			// Already counted - leave the counter alone.
			return nil
		}
		inserted = true

		upd, err := tx.ExecContext(ctx,
			`UPDATE quotas SET current_count = current_count + 1 WHERE id = ?`, quotaID)
		if err != nil {
			return fmt.Errorf("increment counter: %w", err)
		}
		return requireRow(upd, "quota", quotaID)
	})
	if err != nil {
		return false, fmt.Errorf("increment quota %s: %w", quotaID, err)
	}
	return inserted, nil
}

func requireRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return survey.NewNotFound(kind, id)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
