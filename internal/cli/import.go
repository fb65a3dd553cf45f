package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/canvass/internal/loader"
	"github.com/roach88/canvass/internal/store"
)

// ImportResult is the JSON payload for import output.
type ImportResult struct {
	SurveyID  string `json:"survey_id"`
	Questions int    `json:"questions"`
	Rules     int    `json:"rules"`
	Quotas    int    `json:"quotas"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <definition.yaml>",
		Short: "Validate and import a survey definition into the database",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, args[0], cmd)
		},
	}
}

func runImport(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	def, err := loader.Load(path, nil)
	if err != nil {
		return outputDefinitionError(formatter, err)
	}

	st, err := store.Open(opts.DBPath)
	if err != nil {
		_ = formatter.Error(err.Error(), nil)
		return WrapExitError(ExitCommandError, "cannot open database", err)
	}
	defer st.Close()

	if err := loader.Import(cmd.Context(), st, def); err != nil {
		_ = formatter.Error(err.Error(), nil)
		return WrapExitError(ExitCommandError, "import failed", err)
	}

	formatter.VerboseLog("imported survey %s into %s", def.Survey.ID, opts.DBPath)
	result := ImportResult{
		SurveyID:  def.Survey.ID,
		Questions: len(def.Survey.Questions),
		Rules:     len(def.Rules),
		Quotas:    len(def.Quotas),
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ imported %s: %d questions, %d rules, %d quotas\n",
		result.SurveyID, result.Questions, result.Rules, result.Quotas)
	return nil
}
