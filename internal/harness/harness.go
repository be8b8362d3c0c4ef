package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/clicheck/internal/runner"
)

// ProcessRunner invokes the tool under test once with args.
type ProcessRunner interface {
	Run(ctx context.Context, args ...string) (*runner.Output, error)
}

// Config configures a Harness.
type Config struct {
	Options

	// Out receives operator-facing output: problem pointers, diffs and
	// one line per scenario.
	Out io.Writer

	// Logger receives structured diagnostics. Defaults to a discard logger.
	Logger *slog.Logger

	// IDs generates run identifiers. Defaults to UUIDv7.
	IDs IDGenerator

	// Now stamps the start of a run. Defaults to time.Now.
	Now func() time.Time
}

// Harness executes scenarios sequentially and folds their outcomes.
type Harness struct {
	runner ProcessRunner
	cmp    *Comparator
	opts   Options
	out    io.Writer
	logger *slog.Logger
	ids    IDGenerator
	now    func() time.Time
}

// New creates a Harness driving r.
func New(r ProcessRunner, cfg Config) *Harness {
	if cfg.Out == nil {
		cfg.Out = io.Discard
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.IDs == nil {
		cfg.IDs = UUIDv7Generator{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Harness{
		runner: r,
		cmp:    NewComparator(cfg.Options, cfg.Out, cfg.Logger),
		opts:   cfg.Options,
		out:    cfg.Out,
		logger: cfg.Logger,
		ids:    cfg.IDs,
		now:    cfg.Now,
	}
}

// Run validates every scenario, then executes them all in order. A
// mismatch never stops the run; the returned summary carries the
// AND of all scenario outcomes. Only a *ConfigError aborts, and it does so
// before the first scenario executes.
func (h *Harness) Run(ctx context.Context, scenarios []Scenario) (*Summary, error) {
	for i := range scenarios {
		if err := ValidateScenario(&scenarios[i]); err != nil {
			return nil, err
		}
	}

	summary := &Summary{
		RunID:     h.ids.Generate(),
		StartedAt: h.now(),
		AllPassed: true,
		Results:   make([]*RunResult, 0, len(scenarios)),
	}
	h.logger.Info("run started", "run_id", summary.RunID, "scenarios", len(scenarios))

	for i := range scenarios {
		result, err := h.RunScenario(ctx, &scenarios[i])
		if err != nil {
			return nil, err
		}
		summary.Fold(result)
	}

	h.logger.Info("run finished",
		"run_id", summary.RunID,
		"passed", summary.Passed,
		"failed", summary.Failed,
	)
	return summary, nil
}

// RunScenario invokes the tool once and compares every configured channel.
//
// A spawn or decode failure fails the scenario but is not returned as an
// error; the caller keeps going. The only error is a *ConfigError for a
// malformed scenario.
func (h *Harness) RunScenario(ctx context.Context, s *Scenario) (*RunResult, error) {
	if err := ValidateScenario(s); err != nil {
		return nil, err
	}
	result := NewRunResult(s.Name)

	// A generated file kept from an earlier mismatch must not be read as
	// this run's output.
	if s.Generated != nil {
		h.cmp.removeResult(s.Generated.Result)
	}

	out, err := h.runner.Run(ctx, s.Args...)
	if err != nil {
		result.AddError(fmt.Sprintf("child process: %v", err))
		h.logger.Error("child process failed", "scenario", s.Name, "error", err)
		h.printOutcome(result)
		return result, nil
	}
	result.ExitCode = out.ExitCode
	h.logger.Info("tool exited", "scenario", s.Name, "exit_code", out.ExitCode, "success", out.Success())

	target, _ := ApplyTarget(s)
	for _, ch := range s.Channels() {
		spec := s.Spec(ch)
		isTarget := ch == target

		var cr ChannelResult
		switch ch {
		case ChannelStdout:
			cr = h.cmp.CompareText(ch, spec, out.Stdout, isTarget, s.EchoInput)
		case ChannelStderr:
			cr = h.cmp.CompareText(ch, spec, out.Stderr, isTarget, s.EchoInput)
		case ChannelGenerated:
			cr = h.cmp.CompareGenerated(spec, isTarget)
		}
		result.AddChannel(cr)

		h.logger.Info("channel compared",
			"scenario", s.Name,
			"channel", ch,
			"match", cr.Match,
			"applied", cr.Applied,
			"apply_target", isTarget,
		)
	}

	h.printOutcome(result)
	return result, nil
}

func (h *Harness) printOutcome(r *RunResult) {
	if r.Pass {
		fmt.Fprintf(h.out, "✓ %s\n", r.Scenario)
		return
	}
	fmt.Fprintf(h.out, "✗ %s\n", r.Scenario)
	for _, e := range r.Errors {
		fmt.Fprintf(h.out, "  %s\n", e)
	}
}
