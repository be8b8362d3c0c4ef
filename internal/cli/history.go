package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/clicheck/internal/harness"
	"github.com/roach88/clicheck/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
	Scenario string
	Run      string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List runs recorded in a run ledger",
		Long: `List runs recorded with "clicheck run --record", newest first.

With --scenario, list the recorded outcomes of one scenario instead, which
shows when a regression first appeared. With --run, show every scenario
and channel outcome of one recorded run.

Example:
  clicheck history --db runs.db
  clicheck history --db runs.db --scenario update-config --limit 5
  clicheck history --db runs.db --run 01920c4e-7b1a-7c3e-9f00-5a1d2e3f4b6c`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run ledger (required)")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "maximum number of entries (0 for all)")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "show the history of one scenario")
	cmd.Flags().StringVar(&opts.Run, "run", "", "show the outcomes of one recorded run")
	cmd.MarkFlagsMutuallyExclusive("scenario", "run")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return reportUsage(formatter, ErrCodeStore, "failed to open run ledger", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Run != "" {
		summary, err := st.ReadRun(ctx, opts.Run)
		if errors.Is(err, store.ErrRunNotFound) {
			return reportUsage(formatter, ErrCodeNotFound, "unknown run", err)
		}
		if err != nil {
			return reportError(formatter, ExitFailure, ErrCodeStore, "failed to read run ledger", err)
		}
		if opts.Format == "json" {
			return formatter.Success(summary)
		}
		outputRun(formatter.Writer, summary)
		return nil
	}

	if opts.Scenario != "" {
		history, err := st.ScenarioHistory(ctx, opts.Scenario, opts.Limit)
		if err != nil {
			return reportError(formatter, ExitFailure, ErrCodeStore, "failed to read run ledger", err)
		}
		if opts.Format == "json" {
			return formatter.Success(history)
		}
		outputScenarioHistory(formatter.Writer, opts.Scenario, history)
		return nil
	}

	runs, err := st.ListRuns(ctx, opts.Limit)
	if err != nil {
		return reportError(formatter, ExitFailure, ErrCodeStore, "failed to read run ledger", err)
	}
	if opts.Format == "json" {
		return formatter.Success(runs)
	}
	outputRuns(formatter.Writer, runs)
	return nil
}

func outputRuns(w io.Writer, runs []store.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s %s  %s  %d/%d passed  %s\n",
			passMark(r.AllPassed), r.StartedAt.Format(time.RFC3339), r.ID, r.Passed, r.Total, r.Catalogue)
	}
}

func outputScenarioHistory(w io.Writer, scenario string, history []store.ScenarioRecord) {
	if len(history) == 0 {
		fmt.Fprintf(w, "No runs recorded for %s.\n", scenario)
		return
	}
	for _, h := range history {
		fmt.Fprintf(w, "%s %s  %s  exit=%d\n", passMark(h.Pass), h.StartedAt.Format(time.RFC3339), h.RunID, h.ExitCode)
		for _, e := range h.Errors {
			fmt.Fprintf(w, "    %s\n", e)
		}
	}
}

func outputRun(w io.Writer, summary *harness.Summary) {
	fmt.Fprintf(w, "%s %s  %s  %d/%d passed  %s\n",
		passMark(summary.AllPassed), summary.StartedAt.Format(time.RFC3339),
		summary.RunID, summary.Passed, summary.Total, summary.Catalogue)
	for _, r := range summary.Results {
		fmt.Fprintf(w, "  %s %s  exit=%d\n", passMark(r.Pass), r.Scenario, r.ExitCode)
		for _, ch := range r.Channels {
			state := "match"
			switch {
			case ch.Applied:
				state = "applied"
			case !ch.Match:
				state = "mismatch"
			}
			fmt.Fprintf(w, "      %-9s %-8s %s\n", ch.Channel, state, ch.ExpectedPath)
		}
		for _, e := range r.Errors {
			fmt.Fprintf(w, "      %s\n", e)
		}
	}
}

func passMark(pass bool) string {
	if pass {
		return "✓"
	}
	return "✗"
}
