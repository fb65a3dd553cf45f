package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/canvass/internal/quota"
	"github.com/roach88/canvass/internal/store"
	"github.com/roach88/canvass/internal/survey"
)

// NewQuotasCommand creates the quotas command group.
func NewQuotasCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quotas",
		Short: "Inspect and manage response quotas",
	}
	cmd.AddCommand(newQuotasStatusCommand(rootOpts))
	cmd.AddCommand(newQuotasCreateCommand(rootOpts))
	cmd.AddCommand(newQuotasUpdateCommand(rootOpts))
	cmd.AddCommand(newQuotasToggleCommand(rootOpts))

	return cmd
}

// withTracker opens the store and hands a tracker to fn, closing afterward.
func withTracker(opts *RootOptions, formatter *OutputFormatter, fn func(*store.Store, *quota.Tracker) error) error {
	st, err := store.Open(opts.DBPath)
	if err != nil {
		_ = formatter.Error(err.Error(), nil)
		return WrapExitError(ExitCommandError, "cannot open database", err)
	}
	defer st.Close()
	return fn(st, quota.NewTracker(st, nil, nil))
}

func newQuotasStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "status <survey-id>",
		Short:         "Show fill levels for a survey's quotas",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			return withTracker(rootOpts, formatter, func(_ *store.Store, tr *quota.Tracker) error {
				statuses, err := tr.Status(cmd.Context(), args[0])
				if err != nil {
					_ = formatter.Error(err.Error(), nil)
					return WrapExitError(ExitCommandError, "quota status failed", err)
				}
				if formatter.Format == "json" {
					return formatter.Success(statuses)
				}
				if len(statuses) == 0 {
					fmt.Fprintf(formatter.Writer, "no quotas for survey %s\n", args[0])
					return nil
				}
				for _, s := range statuses {
					state := "active"
					if !s.Active {
						state = "inactive"
					}
					fmt.Fprintf(formatter.Writer, "%-36s  %-24s  %4d/%-4d  %3d%%  %s\n",
						s.ID, s.Name, s.CurrentCount, s.Limit, s.Percentage, state)
				}
				return nil
			})
		},
	}
}

func newQuotasCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		name      string
		limit     int
		action    string
		actionURL string
	)
	cmd := &cobra.Command{
		Use:           "create <survey-id>",
		Short:         "Create a quota (condition-less; matches every response)",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			return withTracker(rootOpts, formatter, func(_ *store.Store, tr *quota.Tracker) error {
				q := survey.Quota{
					SurveyID:  args[0],
					Name:      name,
					Limit:     limit,
					Action:    survey.QuotaAction(strings.ToUpper(action)),
					ActionURL: actionURL,
					Active:    true,
				}
				if err := tr.Create(cmd.Context(), &q); err != nil {
					_ = formatter.Error(err.Error(), nil)
					return WrapExitError(ExitFailure, "create quota failed", err)
				}
				if formatter.Format == "json" {
					return formatter.Success(q)
				}
				fmt.Fprintf(formatter.Writer, "✓ created quota %s (%s, limit %d)\n", q.ID, q.Name, q.Limit)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "quota name (required)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum completed responses (required)")
	cmd.Flags().StringVar(&action, "action", "END_SURVEY", "action when full (END_SURVEY|REDIRECT|CONTINUE)")
	cmd.Flags().StringVar(&actionURL, "url", "", "redirect URL (REDIRECT only)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("limit")
	return cmd
}

func newQuotasUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		name      string
		limit     int
		action    string
		actionURL string
	)
	cmd := &cobra.Command{
		Use:           "update <quota-id>",
		Short:         "Update a quota's name, limit, or action",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			return withTracker(rootOpts, formatter, func(_ *store.Store, tr *quota.Tracker) error {
				params := quota.UpdateParams{}
				if cmd.Flags().Changed("name") {
					params.Name = &name
				}
				if cmd.Flags().Changed("limit") {
					params.Limit = &limit
				}
				if cmd.Flags().Changed("action") {
					a := survey.QuotaAction(strings.ToUpper(action))
					params.Action = &a
				}
				if cmd.Flags().Changed("url") {
					params.ActionURL = &actionURL
				}

				q, err := tr.Update(cmd.Context(), args[0], params)
				if err != nil {
					_ = formatter.Error(err.Error(), nil)
					if survey.IsNotFound(err) {
						return WrapExitError(ExitCommandError, "unknown quota", err)
					}
					return WrapExitError(ExitFailure, "update quota failed", err)
				}
				if formatter.Format == "json" {
					return formatter.Success(q)
				}
				fmt.Fprintf(formatter.Writer, "✓ updated quota %s (%s, limit %d, %s)\n",
					q.ID, q.Name, q.Limit, q.Action)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new quota name")
	cmd.Flags().IntVar(&limit, "limit", 0, "new response limit")
	cmd.Flags().StringVar(&action, "action", "", "new action (END_SURVEY|REDIRECT|CONTINUE)")
	cmd.Flags().StringVar(&actionURL, "url", "", "new redirect URL")
	return cmd
}

func newQuotasToggleCommand(rootOpts *RootOptions) *cobra.Command {
	var active bool
	cmd := &cobra.Command{
		Use:           "toggle <quota-id>",
		Short:         "Activate or deactivate a quota (the count is retained)",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			return withTracker(rootOpts, formatter, func(_ *store.Store, tr *quota.Tracker) error {
				if err := tr.Toggle(cmd.Context(), args[0], active); err != nil {
					_ = formatter.Error(err.Error(), nil)
					if survey.IsNotFound(err) {
						return WrapExitError(ExitCommandError, "unknown quota", err)
					}
					return WrapExitError(ExitFailure, "toggle quota failed", err)
				}
				state := "deactivated"
				if active {
					state = "activated"
				}
				if formatter.Format == "json" {
					return formatter.Success(map[string]any{"id": args[0], "active": active})
				}
				fmt.Fprintf(formatter.Writer, "✓ %s quota %s\n", state, args[0])
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&active, "active", true, "desired active state")
	return cmd
}
