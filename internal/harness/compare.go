package harness

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/roach88/clicheck/internal/diff"
	"github.com/roach88/clicheck/internal/runner"
)

// Options are the operator controls consumed by the comparator.
type Options struct {
	// Diff renders a full line diff on mismatch instead of a pointer.
	Diff bool

	// Apply rewrites the scenario's apply-target baseline on mismatch
	// instead of failing.
	Apply bool

	// InputFile, when set, is printed before each stdout/stderr
	// comparison. A scenario's echo_input takes precedence.
	InputFile string
}

const banner = "************************************"

// Comparator checks actual channel values against baselines and reports
// mismatches on out.
type Comparator struct {
	opts   Options
	out    io.Writer
	logger *slog.Logger
}

// NewComparator creates a comparator writing operator output to out.
func NewComparator(opts Options, out io.Writer, logger *slog.Logger) *Comparator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Comparator{opts: opts, out: out, logger: logger}
}

// CompareText compares captured stdout or stderr text. The transform chain
// is applied to actual only. On mismatch the transformed actual text is
// written to spec.Result, unless this channel is the apply target and
// apply mode is on, in which case the baseline is rewritten instead.
func (c *Comparator) CompareText(ch Channel, spec *ChannelSpec, actual string, applyTarget bool, echo string) ChannelResult {
	cr := ChannelResult{Channel: ch, ExpectedPath: spec.Expected, ResultPath: spec.Result}
	apply := c.opts.Apply && applyTarget

	expected, missing, err := readBaseline(spec.Expected, apply)
	if err != nil {
		cr.Error = err.Error()
		return cr
	}
	cr.Expected = expected

	actual, err = spec.Transform.Apply(actual)
	if err != nil {
		cr.Error = err.Error()
		return cr
	}
	cr.Actual = actual

	c.echoInput(echo)

	if actual == expected && !missing {
		cr.Match = true
		return cr
	}

	if apply {
		return c.applyMismatch(cr)
	}

	if err := os.WriteFile(spec.Result, []byte(actual), 0o644); err != nil {
		cr.Error = fmt.Sprintf("write result: %v", err)
	}
	c.report(spec.Result, spec.Expected, actual, expected)
	return cr
}

// CompareGenerated compares the file the tool wrote at spec.Result. The file
// is read byte for byte, line endings included. On match the file is
// deleted. On mismatch it is overwritten in place with the transformed
// content and left for inspection.
func (c *Comparator) CompareGenerated(spec *ChannelSpec, applyTarget bool) ChannelResult {
	cr := ChannelResult{Channel: ChannelGenerated, ExpectedPath: spec.Expected, ResultPath: spec.Result}
	apply := c.opts.Apply && applyTarget

	expected, missing, err := readBaseline(spec.Expected, apply)
	if err != nil {
		cr.Error = err.Error()
		return cr
	}
	cr.Expected = expected

	data, err := os.ReadFile(spec.Result)
	if err != nil {
		cr.Error = fmt.Sprintf("is not a file: %s", spec.Result)
		return cr
	}
	actual, err := runner.ValidateUTF8(string(ChannelGenerated), data)
	if err != nil {
		cr.Error = err.Error()
		return cr
	}
	actual, err = spec.Transform.Apply(actual)
	if err != nil {
		cr.Error = err.Error()
		return cr
	}
	cr.Actual = actual

	if actual == expected && !missing {
		cr.Match = true
		c.removeResult(spec.Result)
		return cr
	}

	if err := os.WriteFile(spec.Result, []byte(actual), 0o644); err != nil {
		cr.Error = fmt.Sprintf("write result: %v", err)
		return cr
	}

	if apply {
		cr = c.applyMismatch(cr)
		if cr.Applied {
			c.removeResult(spec.Result)
		}
		return cr
	}

	c.report(spec.Result, spec.Expected, actual, expected)
	return cr
}

func (c *Comparator) applyMismatch(cr ChannelResult) ChannelResult {
	fmt.Fprintf(c.out, "Auto appending differences to: %s\n", cr.ExpectedPath)
	content := cr.Actual
	if cr.Channel != ChannelGenerated {
		content = runner.NormalizeNewlines(content)
	}
	if err := rewriteBaseline(cr.ExpectedPath, content); err != nil {
		cr.Error = err.Error()
		return cr
	}
	c.logger.Info("baseline rewritten", "channel", cr.Channel, "baseline", cr.ExpectedPath)
	cr.Match = true
	cr.Applied = true
	return cr
}

func (c *Comparator) report(resultPath, expectedPath, actual, expected string) {
	if c.opts.Diff {
		fmt.Fprintf(c.out, "\n%s\nProblem with %s\n%s\n", banner, resultPath, banner)
		io.WriteString(c.out, diff.Render(actual, expected))
		return
	}
	fmt.Fprintf(c.out, "\nProblem with %s\n", resultPath)
	fmt.Fprintf(c.out, "use: '--diff' to find out why %s %s are different\n", resultPath, expectedPath)
}

func (c *Comparator) echoInput(scenarioEcho string) {
	path := scenarioEcho
	if path == "" {
		path = c.opts.InputFile
	}
	if path == "" {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		c.logger.Warn("input file unreadable", "path", path, "error", err)
		return
	}
	fmt.Fprintf(c.out, "Input file is:\n\n%q\n", string(data))
}

func (c *Comparator) removeResult(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		c.logger.Warn("failed to remove result file", "path", path, "error", err)
	}
}

// readBaseline loads a baseline verbatim. A missing baseline is an error
// unless apply mode is about to create it, in which case missing is true.
func readBaseline(path string, apply bool) (text string, missing bool, err error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return string(data), false, nil
	}
	if apply && errors.Is(err, fs.ErrNotExist) {
		return "", true, nil
	}
	return "", false, fmt.Errorf("is not a file: %s", path)
}
