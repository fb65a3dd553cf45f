package survey

import (
	"fmt"
	"time"
)

// QuestionKind enumerates the supported question types.
type QuestionKind string

const (
	KindShortText QuestionKind = "short_text"
	KindLongText  QuestionKind = "long_text"
	KindChoice    QuestionKind = "choice"
	KindCheckbox  QuestionKind = "checkbox"
	KindNumber    QuestionKind = "number"
	KindRating    QuestionKind = "rating"
	KindDate      QuestionKind = "date"
)

// ValidQuestionKinds defines the allowed question kind strings.
var ValidQuestionKinds = map[QuestionKind]bool{
	KindShortText: true,
	KindLongText:  true,
	KindChoice:    true,
	KindCheckbox:  true,
	KindNumber:    true,
	KindRating:    true,
	KindDate:      true,
}

// Numeric reports whether answers to this kind compare numerically.
// EQUALS/NOT_EQUALS against numeric kinds coerce numeric strings.
func (k QuestionKind) Numeric() bool {
	return k == KindNumber || k == KindRating
}

// MultiSelect reports whether answers to this kind are value sets.
func (k QuestionKind) MultiSelect() bool {
	return k == KindCheckbox
}

// Option is one selectable choice on a choice/checkbox question.
type Option struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Value string `json:"value"`
}

// Question is a single survey question. Immutable during response
// collection; edit operations live outside this engine.
type Question struct {
	ID       string       `json:"id"`
	SurveyID string       `json:"survey_id"`
	Kind     QuestionKind `json:"kind"`
	Prompt   string       `json:"prompt"`
	Position int          `json:"position"` // linear order within the survey
	Required bool         `json:"required"`
	Options  []Option     `json:"options,omitempty"`
}

// Validate checks structural rules on a question.
// Returns all errors, not fail-fast.
func (q *Question) Validate() []ValidationError {
	var errs []ValidationError
	if q.ID == "" {
		errs = append(errs, ValidationError{Field: "id", Message: "question id is required"})
	}
	if !ValidQuestionKinds[q.Kind] {
		errs = append(errs, ValidationError{
			Field:   "kind",
			Message: fmt.Sprintf("invalid question kind %q", q.Kind),
		})
	}
	if (q.Kind == KindChoice || q.Kind == KindCheckbox) && len(q.Options) == 0 {
		errs = append(errs, ValidationError{
			Field:   "options",
			Message: fmt.Sprintf("%s questions require at least one option", q.Kind),
		})
	}
	seen := make(map[string]bool, len(q.Options))
	for i, opt := range q.Options {
		if seen[opt.Value] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("options[%d].value", i),
				Message: fmt.Sprintf("duplicate option value %q", opt.Value),
			})
		}
		seen[opt.Value] = true
	}
	return errs
}

// Survey is the aggregate root: ordered questions plus identity.
// Rules and quotas are owned by the survey but fetched separately
// through the read ports.
type Survey struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"` // sorted by Position
}

// QuestionByID returns the question with the given id, or nil.
func (s *Survey) QuestionByID(id string) *Question {
	for i := range s.Questions {
		if s.Questions[i].ID == id {
			return &s.Questions[i]
		}
	}
	return nil
}

// RuleKind labels why a rule exists. Informational only: evaluation
// semantics are identical for all three (conditions AND'd, actions applied).
type RuleKind string

const (
	RuleSkipLogic    RuleKind = "SKIP_LOGIC"
	RuleBranching    RuleKind = "BRANCHING"
	RuleDisplayLogic RuleKind = "DISPLAY_LOGIC"
)

// ValidRuleKinds defines the allowed rule kind strings.
var ValidRuleKinds = map[RuleKind]bool{
	RuleSkipLogic:    true,
	RuleBranching:    true,
	RuleDisplayLogic: true,
}

// Rule is one authored logic rule: when the source question is answered and
// every condition passes, the actions fire.
//
// Priority is the explicit total evaluation order within a survey (lowest
// first, ties broken by id). The original system relied on storage iteration
// order; here the order is a documented part of the model.
type Rule struct {
	ID               string      `json:"id"`
	SurveyID         string      `json:"survey_id"`
	SourceQuestionID string      `json:"source_question_id"`
	TargetQuestionID string      `json:"target_question_id,omitempty"`
	Kind             RuleKind    `json:"kind"`
	Priority         int         `json:"priority"`
	Conditions       []Condition `json:"conditions"`
	Actions          []Action    `json:"actions"`
}

// Validate checks structural rules on a rule.
// Referential integrity (conditions referencing this survey's questions) is
// an authoring-time invariant and is not re-checked here.
func (r *Rule) Validate() []ValidationError {
	var errs []ValidationError
	if r.ID == "" {
		errs = append(errs, ValidationError{Field: "id", Message: "rule id is required"})
	}
	if r.SourceQuestionID == "" {
		errs = append(errs, ValidationError{Field: "source_question_id", Message: "source question is required"})
	}
	if !ValidRuleKinds[r.Kind] {
		errs = append(errs, ValidationError{
			Field:   "kind",
			Message: fmt.Sprintf("invalid rule kind %q", r.Kind),
		})
	}
	if len(r.Actions) == 0 {
		errs = append(errs, ValidationError{Field: "actions", Message: "at least one action is required"})
	}
	for i := range r.Conditions {
		for _, e := range r.Conditions[i].Validate() {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("conditions[%d].%s", i, e.Field),
				Message: e.Message,
			})
		}
	}
	for i := range r.Actions {
		for _, e := range r.Actions[i].Validate() {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("actions[%d].%s", i, e.Field),
				Message: e.Message,
			})
		}
	}
	return errs
}

// QuotaAction is what happens to a submission when a matched quota is full.
type QuotaAction string

const (
	// QuotaEndSurvey rejects the submission outright.
	QuotaEndSurvey QuotaAction = "END_SURVEY"
	// QuotaRedirect terminates the submission with a redirect URL.
	QuotaRedirect QuotaAction = "REDIRECT"
	// QuotaContinue never blocks; the quota is reporting-only.
	QuotaContinue QuotaAction = "CONTINUE"
)

// ValidQuotaActions defines the allowed quota action strings.
var ValidQuotaActions = map[QuotaAction]bool{
	QuotaEndSurvey: true,
	QuotaRedirect:  true,
	QuotaContinue:  true,
}

// Quota caps how many completed responses may match an answer pattern.
//
// CurrentCount only moves through the tracker's increment path (a single
// conditional UPDATE at the storage layer); it is monotonically
// non-decreasing and bounded by Limit plus the concurrency overshoot
// the check/commit window permits.
type Quota struct {
	ID           string      `json:"id"`
	SurveyID     string      `json:"survey_id"`
	Name         string      `json:"name"`
	Limit        int         `json:"limit"`
	CurrentCount int         `json:"current_count"`
	Action       QuotaAction `json:"action"`
	ActionURL    string      `json:"action_url,omitempty"`
	Active       bool        `json:"active"`
	Conditions   []Condition `json:"conditions"`
}

// Reached reports whether the quota is at or over its limit.
func (q *Quota) Reached() bool {
	return q.CurrentCount >= q.Limit
}

// Validate checks structural rules on a quota.
func (q *Quota) Validate() []ValidationError {
	var errs []ValidationError
	if q.ID == "" {
		errs = append(errs, ValidationError{Field: "id", Message: "quota id is required"})
	}
	if q.Name == "" {
		errs = append(errs, ValidationError{Field: "name", Message: "quota name is required"})
	}
	if q.Limit < 1 {
		errs = append(errs, ValidationError{
			Field:   "limit",
			Message: fmt.Sprintf("limit must be >= 1, got %d", q.Limit),
		})
	}
	if !ValidQuotaActions[q.Action] {
		errs = append(errs, ValidationError{
			Field:   "action",
			Message: fmt.Sprintf("invalid quota action %q", q.Action),
		})
	}
	if q.Action == QuotaRedirect && q.ActionURL == "" {
		errs = append(errs, ValidationError{Field: "action_url", Message: "action_url is required for REDIRECT quotas"})
	}
	if q.Action != QuotaRedirect && q.ActionURL != "" {
		errs = append(errs, ValidationError{
			Field:   "action_url",
			Message: fmt.Sprintf("action_url is only valid for REDIRECT quotas, not %s", q.Action),
		})
	}
	for i := range q.Conditions {
		for _, e := range q.Conditions[i].Validate() {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("conditions[%d].%s", i, e.Field),
				Message: e.Message,
			})
		}
	}
	return errs
}

// TerminalReason records why a response ended the way it did.
type TerminalReason string

const (
	// TerminalLogicEnd means an END_SURVEY logic action fired mid-walk.
	// The response is stored for analysis but is not a completion.
	TerminalLogicEnd TerminalReason = "logic_end"
	// TerminalQuota means a full quota blocked the submission.
	TerminalQuota TerminalReason = "quota"
	// TerminalStepBudget means the navigation walk hit its step budget
	// (an authored skip cycle). Treated like an END_SURVEY firing.
	TerminalStepBudget TerminalReason = "step_budget"
)

// Answer is one answered question within a response.
type Answer struct {
	QuestionID string `json:"question_id"`
	Value      Value  `json:"value"`
}

// Response is a single submission. Created at submission start, finalized
// exactly once; the engine never mutates it after finalization.
type Response struct {
	ID       string   `json:"id"`
	SurveyID string   `json:"survey_id"`
	Complete bool     `json:"complete"`
	Answers  []Answer `json:"answers"`

	// Terminal metadata: why the response ended early, if it did.
	TerminalReason TerminalReason `json:"terminal_reason,omitempty"`
	TerminalQuota  string         `json:"terminal_quota,omitempty"`
	TerminalAction QuotaAction    `json:"terminal_action,omitempty"`
	RedirectURL    string         `json:"redirect_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ValidationError represents a validation error with field path and message.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
