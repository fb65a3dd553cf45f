package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/canvass/internal/loader"
)

// ValidationResult is the JSON payload for validate output.
type ValidationResult struct {
	Valid     bool     `json:"valid"`
	SurveyID  string   `json:"survey_id,omitempty"`
	Questions int      `json:"questions,omitempty"`
	Rules     int      `json:"rules,omitempty"`
	Quotas    int      `json:"quotas,omitempty"`
	Problems  []string `json:"problems,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <definition.yaml>",
		Short: "Validate a survey definition without importing it",
		Long: `Validate a survey definition file.

The definition is checked against the schema (question kinds, operators,
operand shapes, quota actions) and for referential integrity (rules and
conditions referencing questions that exist). Nothing is written.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	def, err := loader.Load(path, nil)
	if err != nil {
		return outputDefinitionError(formatter, err)
	}

	result := ValidationResult{
		Valid:     true,
		SurveyID:  def.Survey.ID,
		Questions: len(def.Survey.Questions),
		Rules:     len(def.Rules),
		Quotas:    len(def.Quotas),
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ %s valid: %d questions, %d rules, %d quotas\n",
		def.Survey.ID, result.Questions, result.Rules, result.Quotas)
	return nil
}

// outputDefinitionError reports loader failures with their problem lists
// and translates them into exit codes: validation problems exit 1, file
// and syntax problems exit 2.
func outputDefinitionError(formatter *OutputFormatter, err error) error {
	var derr *loader.DefinitionError
	if errors.As(err, &derr) {
		problems := make([]string, len(derr.Problems))
		for i, p := range derr.Problems {
			problems[i] = p.Error()
		}
		if formatter.Format == "json" {
			_ = formatter.Success(ValidationResult{Valid: false, Problems: problems})
		} else {
			fmt.Fprintln(formatter.Writer, "✗ Validation failed")
			for _, p := range problems {
				fmt.Fprintf(formatter.Writer, "  %s\n", p)
			}
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d problem(s)", len(problems)))
	}

	var serr *loader.SchemaError
	if errors.As(err, &serr) {
		_ = formatter.Error("definition does not match schema", serr.Details)
		return NewExitError(ExitFailure, "schema validation failed")
	}

	_ = formatter.Error(err.Error(), nil)
	return WrapExitError(ExitCommandError, "cannot load definition", err)
}
