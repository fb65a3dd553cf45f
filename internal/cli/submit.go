package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/canvass/internal/engine"
	"github.com/roach88/canvass/internal/logic"
	"github.com/roach88/canvass/internal/quota"
	"github.com/roach88/canvass/internal/store"
	"github.com/roach88/canvass/internal/survey"
)

// submissionFile is the YAML shape accepted by submit:
//
//	survey_id: s1
//	answers:
//	  q1: Option A
//	  q2: 52500
//	  q3: [a, b]
type submissionFile struct {
	SurveyID string         `yaml:"survey_id"`
	Answers  map[string]any `yaml:"answers"`
}

// SubmitResult is the JSON payload for submit output.
type SubmitResult struct {
	Status         string `json:"status"`
	ResponseID     string `json:"response_id"`
	AnswersKept    int    `json:"answers_kept"`
	TerminalReason string `json:"terminal_reason,omitempty"`
	TerminalQuota  string `json:"terminal_quota,omitempty"`
	RedirectURL    string `json:"redirect_url,omitempty"`
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <submission.yaml>",
		Short: "Submit a response through logic rules and quota gates",
		Long: `Submit a response to an imported survey.

The answer set is replayed through the survey's skip logic, branching, and
display rules; answers to skipped or hidden questions are dropped. A full
quota terminates the submission with the quota's configured action.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(rootOpts, args[0], cmd)
		},
	}
}

func runSubmit(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	data, err := os.ReadFile(path)
	if err != nil {
		_ = formatter.Error(err.Error(), nil)
		return WrapExitError(ExitCommandError, "cannot read submission", err)
	}
	var sub submissionFile
	if err := yaml.Unmarshal(data, &sub); err != nil {
		_ = formatter.Error(err.Error(), nil)
		return WrapExitError(ExitCommandError, "cannot parse submission", err)
	}
	if sub.SurveyID == "" {
		_ = formatter.Error("submission is missing survey_id", nil)
		return NewExitError(ExitCommandError, "submission is missing survey_id")
	}

	answers := make(logic.Answers, len(sub.Answers))
	for qid, raw := range sub.Answers {
		v, err := survey.AnswerValueFrom(raw)
		if err != nil {
			_ = formatter.Error(fmt.Sprintf("answer %s: %v", qid, err), nil)
			return NewExitError(ExitFailure, fmt.Sprintf("answer %s: %v", qid, err))
		}
		answers[qid] = v
	}

	st, err := store.Open(opts.DBPath)
	if err != nil {
		_ = formatter.Error(err.Error(), nil)
		return WrapExitError(ExitCommandError, "cannot open database", err)
	}
	defer st.Close()

	eng := engine.New(st, st, quota.NewTracker(st, nil, nil), nil, nil)
	res, err := eng.SubmitResponse(cmd.Context(), sub.SurveyID, answers)
	if err != nil {
		_ = formatter.Error(err.Error(), nil)
		if engine.IsValidationError(err) {
			return WrapExitError(ExitFailure, "submission rejected", err)
		}
		if survey.IsNotFound(err) {
			return WrapExitError(ExitCommandError, "unknown survey", err)
		}
		return WrapExitError(ExitCommandError, "submission failed", err)
	}

	out := SubmitResult{
		Status:         string(res.Status),
		ResponseID:     res.Response.ID,
		AnswersKept:    len(res.Response.Answers),
		TerminalReason: string(res.Response.TerminalReason),
		TerminalQuota:  res.Response.TerminalQuota,
		RedirectURL:    res.Response.RedirectURL,
	}
	if formatter.Format == "json" {
		return formatter.Success(out)
	}

	switch res.Status {
	case engine.StatusCompleted:
		fmt.Fprintf(formatter.Writer, "✓ completed: response %s (%d answers)\n",
			out.ResponseID, out.AnswersKept)
	case engine.StatusTerminated:
		fmt.Fprintf(formatter.Writer, "✗ terminated (%s): response %s\n",
			out.TerminalReason, out.ResponseID)
		if out.RedirectURL != "" {
			fmt.Fprintf(formatter.Writer, "  redirect: %s\n", out.RedirectURL)
		}
	}
	return nil
}
