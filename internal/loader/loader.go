// Package loader imports authored survey definitions.
//
// Definitions are YAML documents validated in two passes: a CUE schema
// (schema.cue) checks shape - enums, operator/operand pairing, required
// fields - and a Go pass checks referential integrity, which CUE cannot
// see (rules jumping to questions that exist, conditions naming real
// questions). Only a definition that survives both passes reaches the
// store.
package loader

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/canvass/internal/ident"
	"github.com/roach88/canvass/internal/survey"
)

//go:embed schema.cue
var schemaSource string

// Definition is one fully parsed survey definition.
type Definition struct {
	Survey survey.Survey  `json:"survey"`
	Rules  []survey.Rule  `json:"rules,omitempty"`
	Quotas []survey.Quota `json:"quotas,omitempty"`
}

// Store is the write port the importer needs. *store.Store satisfies it.
type Store interface {
	CreateSurvey(ctx context.Context, sv *survey.Survey) error
	CreateRule(ctx context.Context, r *survey.Rule) error
	CreateQuota(ctx context.Context, q *survey.Quota) error
}

// SchemaError means the document failed CUE validation. Details carries
// the full multi-line CUE error report with positions.
type SchemaError struct {
	Details string
}

func (e *SchemaError) Error() string {
	return "definition does not match schema:\n" + e.Details
}

// DefinitionError collects every referential-integrity problem found in a
// structurally valid document.
type DefinitionError struct {
	Problems []survey.ValidationError
}

func (e *DefinitionError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	return fmt.Sprintf("invalid definition (%d problems): %s", len(e.Problems), strings.Join(msgs, "; "))
}

// Load reads and parses a definition file.
func Load(path string, idgen ident.Generator) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}
	def, err := Parse(data, idgen)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Parse validates YAML against the schema and decodes it into a typed,
// normalized Definition. A nil generator defaults to UUIDv7.
func Parse(data []byte, idgen ident.Generator) (*Definition, error) {
	if idgen == nil {
		idgen = ident.UUIDv7Generator{}
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	defSchema := schema.LookupPath(cue.ParsePath("#Definition"))

	doc := ctx.Encode(raw)
	if err := doc.Err(); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}

	unified := defSchema.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, &SchemaError{Details: cueerrors.Details(err, nil)}
	}

	// Marshal the unified value, not the raw document, so CUE defaults
	// (rule kind, quota active) materialize before the typed decode.
	resolved, err := unified.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("resolve document: %w", err)
	}

	var def Definition
	if err := json.Unmarshal(resolved, &def); err != nil {
		return nil, fmt.Errorf("decode definition: %w", err)
	}

	normalize(&def, idgen)
	if problems := def.Validate(); len(problems) > 0 {
		return nil, &DefinitionError{Problems: problems}
	}
	return &def, nil
}

// normalize assigns missing ids and stamps ownership.
func normalize(def *Definition, idgen ident.Generator) {
	if def.Survey.ID == "" {
		def.Survey.ID = idgen.NewID()
	}
	for i := range def.Survey.Questions {
		def.Survey.Questions[i].SurveyID = def.Survey.ID
	}
	for i := range def.Rules {
		if def.Rules[i].ID == "" {
			def.Rules[i].ID = idgen.NewID()
		}
		def.Rules[i].SurveyID = def.Survey.ID
	}
	for i := range def.Quotas {
		if def.Quotas[i].ID == "" {
			def.Quotas[i].ID = idgen.NewID()
		}
		def.Quotas[i].SurveyID = def.Survey.ID
	}
}

// Validate checks referential integrity across the definition.
// Returns all problems, not fail-fast.
func (d *Definition) Validate() []survey.ValidationError {
	var errs []survey.ValidationError

	known := make(map[string]bool, len(d.Survey.Questions))
	positions := make(map[int]string, len(d.Survey.Questions))
	for i := range d.Survey.Questions {
		q := &d.Survey.Questions[i]
		prefix := fmt.Sprintf("survey.questions[%d]", i)
		if known[q.ID] {
			errs = append(errs, survey.ValidationError{
				Field:   prefix + ".id",
				Message: fmt.Sprintf("duplicate question id %q", q.ID),
			})
		}
		known[q.ID] = true
		if other, taken := positions[q.Position]; taken {
			errs = append(errs, survey.ValidationError{
				Field:   prefix + ".position",
				Message: fmt.Sprintf("position %d already used by question %q", q.Position, other),
			})
		}
		positions[q.Position] = q.ID
		for _, e := range q.Validate() {
			errs = append(errs, survey.ValidationError{Field: prefix + "." + e.Field, Message: e.Message})
		}
	}

	checkConditions := func(prefix string, conds []survey.Condition) {
		for i := range conds {
			if !known[conds[i].QuestionID] {
				errs = append(errs, survey.ValidationError{
					Field:   fmt.Sprintf("%s.conditions[%d].question_id", prefix, i),
					Message: fmt.Sprintf("unknown question %q", conds[i].QuestionID),
				})
			}
		}
	}

	for i := range d.Rules {
		r := &d.Rules[i]
		prefix := fmt.Sprintf("rules[%d]", i)
		for _, e := range r.Validate() {
			errs = append(errs, survey.ValidationError{Field: prefix + "." + e.Field, Message: e.Message})
		}
		if r.SourceQuestionID != "" && !known[r.SourceQuestionID] {
			errs = append(errs, survey.ValidationError{
				Field:   prefix + ".source_question_id",
				Message: fmt.Sprintf("unknown question %q", r.SourceQuestionID),
			})
		}
		for j := range r.Actions {
			a := &r.Actions[j]
			if a.TargetQuestionID != "" && !known[a.TargetQuestionID] {
				errs = append(errs, survey.ValidationError{
					Field:   fmt.Sprintf("%s.actions[%d].target_question_id", prefix, j),
					Message: fmt.Sprintf("unknown question %q", a.TargetQuestionID),
				})
			}
		}
		checkConditions(prefix, r.Conditions)
	}

	for i := range d.Quotas {
		q := &d.Quotas[i]
		prefix := fmt.Sprintf("quotas[%d]", i)
		for _, e := range q.Validate() {
			errs = append(errs, survey.ValidationError{Field: prefix + "." + e.Field, Message: e.Message})
		}
		checkConditions(prefix, q.Conditions)
	}

	return errs
}

// Import persists a parsed definition: survey with questions, then rules,
// then quotas. Not transactional across the three groups; import into a
// fresh database, not a live one.
func Import(ctx context.Context, st Store, def *Definition) error {
	if err := st.CreateSurvey(ctx, &def.Survey); err != nil {
		return fmt.Errorf("import survey %s: %w", def.Survey.ID, err)
	}
	for i := range def.Rules {
		if err := st.CreateRule(ctx, &def.Rules[i]); err != nil {
			return fmt.Errorf("import rule %s: %w", def.Rules[i].ID, err)
		}
	}
	for i := range def.Quotas {
		if err := st.CreateQuota(ctx, &def.Quotas[i]); err != nil {
			return fmt.Errorf("import quota %s: %w", def.Quotas[i].ID, err)
		}
	}
	return nil
}
