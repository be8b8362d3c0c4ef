package harness

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/clicheck/internal/runner"
	"github.com/roach88/clicheck/internal/testutil"
)

// fakeRunner returns canned output and records every invocation.
type fakeRunner struct {
	calls [][]string
	run   func(args []string) (*runner.Output, error)
}

func (f *fakeRunner) Run(_ context.Context, args ...string) (*runner.Output, error) {
	f.calls = append(f.calls, args)
	return f.run(args)
}

func stdoutRunner(stdout string) *fakeRunner {
	return &fakeRunner{run: func([]string) (*runner.Output, error) {
		return &runner.Output{Stdout: stdout}, nil
	}}
}

func failingRunner() *fakeRunner {
	return &fakeRunner{run: func([]string) (*runner.Output, error) {
		return nil, errors.New("exec: permission denied")
	}}
}

func newTestHarness(t *testing.T, r ProcessRunner, opts Options) (*Harness, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	h := New(r, Config{
		Options: opts,
		Out:     out,
		IDs:     testutil.NewSequentialIDGenerator("run"),
		Now:     testutil.NewDeterministicClock(time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC), time.Second).Now,
	})
	return h, out
}

// fixture is a scratch baseline tree: dir/Output holds baselines and
// dir/Results holds result files.
type fixture struct {
	dir     string
	results string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	results := filepath.Join(dir, "Results")
	if err := os.MkdirAll(results, 0o755); err != nil {
		t.Fatalf("mkdir results: %v", err)
	}
	return &fixture{dir: dir, results: results}
}

func (f *fixture) baseline(t *testing.T, name, content string) string {
	t.Helper()
	return testutil.WriteFile(t, f.dir, filepath.Join("Output", name), content)
}

func (f *fixture) result(name string) string {
	return filepath.Join(f.results, name)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
