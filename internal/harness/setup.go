package harness

import (
	"io"
	"runtime"

	"github.com/roach88/clicheck/internal/preflight"
	"github.com/roach88/clicheck/internal/runner"
	"github.com/roach88/clicheck/internal/workdir"
)

// Prepare runs the setup phase: it locates the tool among candidates
// (falling back to the catalogue's binary list), checks build provenance
// when configured, and clears the results directory. Any failure is a
// *SetupError and no scenario may run.
func Prepare(cat *Catalogue, candidates []string, out io.Writer) (*runner.Runner, error) {
	if len(candidates) == 0 {
		candidates = cat.Binary
	}
	bin, err := preflight.FindBinary(out, candidates)
	if err != nil {
		return nil, &SetupError{Stage: "binary", Err: err}
	}

	// Windows builds are multi-config; the Release directory is the check.
	if cat.Build != nil && runtime.GOOS != "windows" {
		if err := preflight.CheckBuildType(cat.Build.Cache, cat.Build.Type); err != nil {
			return nil, &SetupError{Stage: "build", Err: err}
		}
	}

	if err := workdir.Clear(cat.Results); err != nil {
		return nil, &SetupError{Stage: "results", Err: err}
	}

	r, err := runner.New(bin, runner.WithDir(cat.Dir), runner.WithEnv(cat.Env...))
	if err != nil {
		return nil, &SetupError{Stage: "binary", Err: err}
	}
	return r, nil
}
