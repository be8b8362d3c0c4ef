package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/roach88/clicheck/internal/harness"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool     `json:"valid"`
	Catalogue string   `json:"catalogue"`
	Scenarios []string `json:"scenarios"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var catalogue string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the scenario catalogue without running it",
		Long: `Load and validate the scenario catalogue without invoking the tool.

Checks syntax, unknown keys, channel combinations, transform patterns and
scenario name uniqueness after matrix expansion.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, catalogue, cmd)
		},
	}

	cmd.Flags().StringVarP(&catalogue, "catalogue", "c", DefaultCatalogue, "path to the scenario catalogue (.yaml, .yml or .cue)")

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cat, err := harness.LoadCatalogue(path)
	if err != nil {
		var cfgErr *harness.ConfigError
		switch {
		case errors.As(err, &cfgErr):
			return reportUsage(formatter, ErrCodeConfig, "invalid catalogue", err)
		case errors.Is(err, fs.ErrNotExist):
			return reportUsage(formatter, ErrCodeNotFound, "invalid catalogue", err)
		default:
			return reportUsage(formatter, ErrCodeGeneric, "invalid catalogue", err)
		}
	}

	names := make([]string, len(cat.Scenarios))
	for i, s := range cat.Scenarios {
		names[i] = s.Name
		formatter.VerboseLog("  %s %v", s.Name, s.Channels())
	}

	if opts.Format == "json" {
		return formatter.Success(ValidationResult{
			Valid:     true,
			Catalogue: cat.Path,
			Scenarios: names,
		})
	}

	fmt.Fprintf(formatter.Writer, "✓ %s: %d scenario(s)\n", cat.Path, len(names))
	return nil
}
