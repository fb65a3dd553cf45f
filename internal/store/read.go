package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/canvass/internal/survey"
)

// GetSurvey loads a survey with its questions in position order.
// Returns survey.NotFoundError when the id does not exist.
func (s *Store) GetSurvey(ctx context.Context, id string) (*survey.Survey, error) {
	var sv survey.Survey
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title FROM surveys WHERE id = ?`, id,
	).Scan(&sv.ID, &sv.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, survey.NewNotFound("survey", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get survey: %w", err)
	}

	questions, err := s.ListQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	sv.Questions = questions
	return &sv, nil
}

// ListQuestions returns a survey's questions sorted by position.
func (s *Store) ListQuestions(ctx context.Context, surveyID string) ([]survey.Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, survey_id, kind, prompt, position, required, COALESCE(options, '')
		FROM questions
		WHERE survey_id = ?
		ORDER BY position, id
	`, surveyID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var questions []survey.Question
	for rows.Next() {
		var q survey.Question
		var required int
		var optionsJSON string
		if err := rows.Scan(&q.ID, &q.SurveyID, &q.Kind, &q.Prompt, &q.Position, &required, &optionsJSON); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.Required = required != 0
		if q.Options, err = unmarshalOptions(optionsJSON); err != nil {
			return nil, fmt.Errorf("question %s: %w", q.ID, err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ListRules returns a survey's logic rules in evaluation order:
// ascending priority, ties broken by id. This ordering IS the rule
// semantics (first firing navigation action wins), so it lives in the
// query, not in callers.
func (s *Store) ListRules(ctx context.Context, surveyID string) ([]survey.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, survey_id, source_question_id, COALESCE(target_question_id, ''),
		       kind, priority, conditions, actions
		FROM survey_rules
		WHERE survey_id = ?
		ORDER BY priority, id
	`, surveyID)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var rules []survey.Rule
	for rows.Next() {
		var r survey.Rule
		var condJSON, actJSON string
		if err := rows.Scan(&r.ID, &r.SurveyID, &r.SourceQuestionID, &r.TargetQuestionID,
			&r.Kind, &r.Priority, &condJSON, &actJSON); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		if r.Conditions, err = unmarshalConditions(condJSON); err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.ID, err)
		}
		if r.Actions, err = unmarshalActions(actJSON); err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.ID, err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

const quotaColumns = `id, survey_id, name, max_responses, current_count,
	action, action_url, active, conditions`

func scanQuota(scan func(...any) error) (*survey.Quota, error) {
	var q survey.Quota
	var active int
	var condJSON string
	if err := scan(&q.ID, &q.SurveyID, &q.Name, &q.Limit, &q.CurrentCount,
		&q.Action, &q.ActionURL, &active, &condJSON); err != nil {
		return nil, err
	}
	q.Active = active != 0
	conds, err := unmarshalConditions(condJSON)
	if err != nil {
		return nil, fmt.Errorf("quota %s: %w", q.ID, err)
	}
	q.Conditions = conds
	return &q, nil
}

// ListQuotas returns all of a survey's quotas, active or not, in id order
// (UUIDv7 ids sort by creation time).
func (s *Store) ListQuotas(ctx context.Context, surveyID string) ([]survey.Quota, error) {
	return s.listQuotas(ctx, surveyID, false)
}

// ListActiveQuotas returns only quotas with active=1. Inactive quotas are
// invisible to admission checks by construction.
func (s *Store) ListActiveQuotas(ctx context.Context, surveyID string) ([]survey.Quota, error) {
	return s.listQuotas(ctx, surveyID, true)
}

func (s *Store) listQuotas(ctx context.Context, surveyID string, activeOnly bool) ([]survey.Quota, error) {
	query := `SELECT ` + quotaColumns + ` FROM quotas WHERE survey_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, surveyID)
	if err != nil {
		return nil, fmt.Errorf("list quotas: %w", err)
	}
	defer rows.Close()

	var quotas []survey.Quota
	for rows.Next() {
		q, err := scanQuota(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan quota: %w", err)
		}
		quotas = append(quotas, *q)
	}
	return quotas, rows.Err()
}

// GetQuota loads one quota by id.
// Returns survey.NotFoundError when the id does not exist.
func (s *Store) GetQuota(ctx context.Context, id string) (*survey.Quota, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+quotaColumns+` FROM quotas WHERE id = ?`, id)
	q, err := scanQuota(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, survey.NewNotFound("quota", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get quota: %w", err)
	}
	return q, nil
}

// GetResponse loads a response with its answers.
// Returns survey.NotFoundError when the id does not exist.
func (s *Store) GetResponse(ctx context.Context, id string) (*survey.Response, error) {
	var r survey.Response
	var complete int
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, survey_id, complete, terminal_reason, terminal_quota,
		       terminal_action, redirect_url, created_at
		FROM responses WHERE id = ?
	`, id).Scan(&r.ID, &r.SurveyID, &complete, &r.TerminalReason,
		&r.TerminalQuota, &r.TerminalAction, &r.RedirectURL, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, survey.NewNotFound("response", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get response: %w", err)
	}
	r.Complete = complete != 0
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("response %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT question_id, value FROM answers
		WHERE response_id = ?
		ORDER BY question_id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a survey.Answer
		var valueJSON string
		if err := rows.Scan(&a.QuestionID, &valueJSON); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		if a.Value, err = unmarshalAnswerValue(valueJSON); err != nil {
			return nil, fmt.Errorf("answer %s/%s: %w", id, a.QuestionID, err)
		}
		r.Answers = append(r.Answers, a)
	}
	return &r, rows.Err()
}

// CountQuotaResponses returns how many join rows a quota has.
// Diagnostic: in a healthy store this always equals current_count.
func (s *Store) CountQuotaResponses(ctx context.Context, quotaID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM quota_responses WHERE quota_id = ?`, quotaID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count quota responses: %w", err)
	}
	return n, nil
}
