package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/clicheck/internal/harness"
	"github.com/roach88/clicheck/internal/store"
	"github.com/roach88/clicheck/internal/workdir"
)

// DefaultCatalogue is the catalogue path used when --catalogue is not given.
const DefaultCatalogue = "clicheck.yaml"

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Catalogue  string
	Diff       bool
	Apply      bool
	InputFile  string
	Bins       []string
	Results    string
	BuildCache string
	BuildType  string
	Record     string
	Filter     string

	// IDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDs harness.IDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scenario catalogue against the tool",
		Long: `Run every scenario in the catalogue against the tool under test and
compare its output with the baselines.

All scenarios run even when some fail. With --apply, the first configured
channel of each scenario (stdout, then stderr, then generated) has its
baseline rewritten on mismatch instead of failing.

Exit codes:
  0  - All scenarios passed
  64 - Command-line, catalogue or setup error
  70 - One or more scenarios failed

Examples:
  clicheck run
  clicheck run --catalogue tests/cli/clicheck.yaml --diff
  clicheck run --bin build/uncrustify --bin build/Release/uncrustify
  clicheck run --apply --filter "L-*"
  clicheck run --record runs.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Catalogue, "catalogue", "c", DefaultCatalogue, "path to the scenario catalogue (.yaml, .yml or .cue)")
	cmd.Flags().BoolVar(&opts.Diff, "diff", false, "show a line diff for every mismatch")
	cmd.Flags().BoolVar(&opts.Apply, "apply", false, "rewrite baselines with the actual output on mismatch")
	cmd.Flags().StringVar(&opts.InputFile, "input-file", "", "file whose content is echoed before each stdout/stderr comparison")
	cmd.Flags().StringArrayVar(&opts.Bins, "bin", nil, "candidate path of the tool under test (repeatable, first existing wins)")
	cmd.Flags().StringVar(&opts.Results, "results", "", "results directory (overrides the catalogue)")
	cmd.Flags().StringVar(&opts.BuildCache, "build-cache", "", "CMake cache file to check build provenance against")
	cmd.Flags().StringVar(&opts.BuildType, "build-type", "", "required CMAKE_BUILD_TYPE (with --build-cache)")
	cmd.Flags().StringVar(&opts.Record, "record", "", "record the run in this SQLite ledger")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "run only scenarios whose name matches this glob")

	return cmd
}

// RunReport is the JSON payload of the run command.
type RunReport struct {
	*harness.Summary
	Verdict string `json:"verdict"`
}

func runScenarios(opts *RunOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	console := formatter.ConsoleWriter()
	logger := newLogger(opts.Verbose, cmd.ErrOrStderr())

	cat, err := loadCatalogue(opts)
	if err != nil {
		var cfgErr *harness.ConfigError
		switch {
		case errors.As(err, &cfgErr):
			return reportUsage(formatter, ErrCodeConfig, "invalid catalogue", err)
		case errors.Is(err, fs.ErrNotExist):
			return reportUsage(formatter, ErrCodeNotFound, "invalid catalogue", err)
		}
		return reportUsage(formatter, ErrCodeGeneric, "invalid flags", err)
	}
	logger.Info("catalogue loaded", "path", cat.Path, "scenarios", len(cat.Scenarios))

	bins, err := absPaths(opts.Bins)
	if err != nil {
		return reportUsage(formatter, ErrCodeGeneric, "invalid flags", err)
	}

	scenarios, err := cat.Filter(opts.Filter)
	if err != nil {
		return reportUsage(formatter, ErrCodeGeneric, "invalid flags", err)
	}

	// Open the ledger before running so a bad path fails fast.
	var st *store.Store
	if opts.Record != "" {
		st, err = store.Open(opts.Record)
		if err != nil {
			return reportUsage(formatter, ErrCodeStore, "failed to open run ledger", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing run ledger", "error", closeErr)
			}
		}()
	}

	r, err := harness.Prepare(cat, bins, console)
	if err != nil {
		return reportUsage(formatter, ErrCodeSetup, "setup failed", err)
	}

	h := harness.New(r, harness.Config{
		Options: harness.Options{
			Diff:      opts.Diff,
			Apply:     opts.Apply,
			InputFile: opts.InputFile,
		},
		Out:    console,
		Logger: logger,
		IDs:    opts.IDs,
	})

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := h.Run(ctx, scenarios)
	if err != nil {
		return reportUsage(formatter, ErrCodeConfig, "invalid scenario", err)
	}
	summary.Catalogue = cat.Path

	if left, err := workdir.Entries(cat.Results); err != nil {
		logger.Warn("failed to list results dir", "error", err)
	} else if len(left) > 0 {
		formatter.VerboseLog("left in %s: %v", cat.Results, left)
	}

	if st != nil {
		if _, err := st.RecordRun(ctx, summary); err != nil {
			logger.Error("failed to record run", "run_id", summary.RunID, "error", err)
			return reportError(formatter, ExitFailure, ErrCodeStore, "failed to record run", err)
		}
		logger.Info("run recorded", "run_id", summary.RunID, "ledger", opts.Record)
	}

	if opts.Format == "json" {
		return outputRunJSON(formatter.Writer, summary)
	}
	return outputRunText(formatter.Writer, summary)
}

// loadCatalogue decodes the catalogue and folds command-line overrides into
// it. --results replaces the catalogue's results directory before
// placeholders are expanded; the build check replaces the catalogue's.
// Flag paths are relative to the working directory.
func loadCatalogue(opts *RunOptions) (*harness.Catalogue, error) {
	if opts.BuildCache != "" && opts.BuildType == "" || opts.BuildCache == "" && opts.BuildType != "" {
		return nil, errors.New("--build-cache and --build-type must be used together")
	}
	if opts.InputFile != "" {
		if info, err := os.Stat(opts.InputFile); err != nil || info.IsDir() {
			return nil, fmt.Errorf("is not a file: %s", opts.InputFile)
		}
	}

	cat, err := harness.DecodeCatalogue(opts.Catalogue)
	if err != nil {
		return nil, err
	}

	if opts.Results != "" {
		abs, err := filepath.Abs(opts.Results)
		if err != nil {
			return nil, fmt.Errorf("resolve --results: %w", err)
		}
		cat.Results = abs
	}
	if err := cat.Resolve(); err != nil {
		return nil, err
	}

	if opts.BuildCache != "" {
		abs, err := filepath.Abs(opts.BuildCache)
		if err != nil {
			return nil, fmt.Errorf("resolve --build-cache: %w", err)
		}
		cat.Build = &harness.BuildCheck{Cache: abs, Type: opts.BuildType}
	}

	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return cat, nil
}

// absPaths resolves --bin candidates against the working directory; the
// tool itself runs from the catalogue directory.
func absPaths(paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve --bin %s: %w", p, err)
		}
		out = append(out, abs)
	}
	return out, nil
}

func reportUsage(f *OutputFormatter, code, message string, err error) error {
	return reportError(f, ExitUsage, code, message, err)
}

// reportError prints err in the configured format and returns an ExitError
// that main will not print again.
func reportError(f *OutputFormatter, exit int, code, message string, err error) error {
	var details interface{}
	var cfgErr *harness.ConfigError
	var setupErr *harness.SetupError
	switch {
	case errors.As(err, &cfgErr):
		details = map[string]string{"scenario": cfgErr.Scenario, "field": cfgErr.Field}
	case errors.As(err, &setupErr):
		details = map[string]string{"stage": setupErr.Stage}
	}

	if f.Format == "json" {
		_ = f.Error(code, fmt.Sprintf("%s: %v", message, err), details)
	} else {
		ef := &OutputFormatter{Format: f.Format, Writer: f.GetErrWriter(), Verbose: f.Verbose}
		_ = ef.Error(code, fmt.Sprintf("%s: %v", message, err), details)
	}
	return WrapExitError(exit, message, err).MarkReported()
}

func outputRunJSON(w io.Writer, summary *harness.Summary) error {
	response := CLIResponse{
		Status: "ok",
		Data:   RunReport{Summary: summary, Verdict: summary.Verdict()},
		RunID:  summary.RunID,
	}
	if !summary.AllPassed {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeTestFailed,
			Message: fmt.Sprintf("%d scenario(s) failed", summary.Failed),
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !summary.AllPassed {
		return NewExitError(ExitFailure, summary.Verdict()).MarkReported()
	}
	return nil
}

func outputRunText(w io.Writer, summary *harness.Summary) error {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", summary.Passed, summary.Failed, summary.Total)
	fmt.Fprintln(w, summary.Verdict())

	if !summary.AllPassed {
		return NewExitError(ExitFailure, summary.Verdict()).MarkReported()
	}
	return nil
}
