package harness

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/clicheck/internal/runner"
	"github.com/roach88/clicheck/internal/testutil"
)

func TestApplyTarget_Priority(t *testing.T) {
	out := &ChannelSpec{Expected: "out.txt"}
	err := &ChannelSpec{Expected: "err.txt"}
	gen := &ChannelSpec{Expected: "gen.txt", Result: "gen.res"}

	testCases := []struct {
		name     string
		scenario Scenario
		want     Channel
		ok       bool
	}{
		{"all three", Scenario{Stdout: out, Stderr: err, Generated: gen}, ChannelStdout, true},
		{"stderr and generated", Scenario{Stderr: err, Generated: gen}, ChannelStderr, true},
		{"stdout and generated", Scenario{Stdout: out, Generated: gen}, ChannelStdout, true},
		{"generated only", Scenario{Generated: gen}, ChannelGenerated, true},
		{"stderr only", Scenario{Stderr: err}, ChannelStderr, true},
		{"empty stdout skipped", Scenario{Stdout: &ChannelSpec{}, Stderr: err}, ChannelStderr, true},
		{"none", Scenario{}, "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ApplyTarget(&tc.scenario)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestApply_RewritesBaselineAndPasses(t *testing.T) {
	f := newFixture(t)
	baseline := f.baseline(t, "help.txt", "old\n")
	s := Scenario{
		Name:   "help",
		Stdout: &ChannelSpec{Expected: baseline, Result: f.result("help.txt")},
	}

	h, out := newTestHarness(t, stdoutRunner("new\n"), Options{Apply: true})
	result, err := h.RunScenario(context.Background(), &s)
	require.NoError(t, err)

	assert.True(t, result.Pass)
	require.Len(t, result.Channels, 1)
	assert.True(t, result.Channels[0].Applied)
	assert.Equal(t, "new\n", testutil.ReadFile(t, baseline))
	assert.False(t, fileExists(f.result("help.txt")))
	assert.Contains(t, out.String(), "Auto appending differences to: "+baseline)
}

func TestApply_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	baseline := f.baseline(t, "help.txt", "old\n")
	s := Scenario{
		Name:   "help",
		Stdout: &ChannelSpec{Expected: baseline, Result: f.result("help.txt")},
	}
	tool := stdoutRunner("new\n")

	h, _ := newTestHarness(t, tool, Options{Apply: true})
	first, err := h.RunScenario(context.Background(), &s)
	require.NoError(t, err)
	require.True(t, first.Channels[0].Applied)

	verify, out := newTestHarness(t, tool, Options{})
	second, err := verify.RunScenario(context.Background(), &s)
	require.NoError(t, err)
	assert.True(t, second.Pass)
	assert.False(t, second.Channels[0].Applied)
	assert.NotContains(t, out.String(), "Problem with")
}

func TestApply_NormalizesLineEndings(t *testing.T) {
	f := newFixture(t)
	baseline := f.baseline(t, "crlf.txt", "x\n")
	s := Scenario{
		Name:   "crlf",
		Stdout: &ChannelSpec{Expected: baseline, Result: f.result("crlf.txt")},
	}

	h, _ := newTestHarness(t, stdoutRunner("a\r\nb\rc\n"), Options{Apply: true})
	result, err := h.RunScenario(context.Background(), &s)
	require.NoError(t, err)
	assert.True(t, result.Pass)
	assert.Equal(t, "a\nb\nc\n", testutil.ReadFile(t, baseline))
}

func TestApply_OnlyNominatedChannel(t *testing.T) {
	f := newFixture(t)
	outBaseline := f.baseline(t, "out.txt", "old out\n")
	genBaseline := f.baseline(t, "gen.txt", "old gen\n")
	genResult := f.result("gen.txt")

	tool := &fakeRunner{run: func([]string) (*runner.Output, error) {
		testutil.WriteFile(t, f.results, "gen.txt", "new gen\n")
		return &runner.Output{Stdout: "new out\n"}, nil
	}}
	s := Scenario{
		Name:      "both",
		Stdout:    &ChannelSpec{Expected: outBaseline, Result: f.result("out.txt")},
		Generated: &ChannelSpec{Expected: genBaseline, Result: genResult},
	}

	h, out := newTestHarness(t, tool, Options{Apply: true})
	result, err := h.RunScenario(context.Background(), &s)
	require.NoError(t, err)

	assert.False(t, result.Pass, "generated mismatch still fails")
	require.Len(t, result.Channels, 2)
	assert.True(t, result.Channels[0].Applied)
	assert.True(t, result.Channels[0].Match)
	assert.False(t, result.Channels[1].Applied)
	assert.False(t, result.Channels[1].Match)

	assert.Equal(t, "new out\n", testutil.ReadFile(t, outBaseline))
	assert.Equal(t, "old gen\n", testutil.ReadFile(t, genBaseline))
	assert.Equal(t, "new gen\n", testutil.ReadFile(t, genResult), "generated actual left for inspection")
	assert.Contains(t, out.String(), "Problem with "+genResult)
}

func TestApply_StderrWhenNoStdout(t *testing.T) {
	f := newFixture(t)
	errBaseline := f.baseline(t, "err.txt", "old\n")
	tool := &fakeRunner{run: func([]string) (*runner.Output, error) {
		return &runner.Output{Stderr: "new\n", ExitCode: 1}, nil
	}}
	s := Scenario{
		Name:   "err",
		Stderr: &ChannelSpec{Expected: errBaseline, Result: f.result("err.txt")},
	}

	h, _ := newTestHarness(t, tool, Options{Apply: true})
	result, err := h.RunScenario(context.Background(), &s)
	require.NoError(t, err)
	assert.True(t, result.Pass)
	assert.Equal(t, 1, result.ExitCode)
	assert.Equal(t, "new\n", testutil.ReadFile(t, errBaseline))
}

func TestApply_GeneratedTargetRemovesActual(t *testing.T) {
	f := newFixture(t)
	genBaseline := f.baseline(t, "p.txt", "old\n")
	genResult := f.result("p.txt")
	tool := &fakeRunner{run: func([]string) (*runner.Output, error) {
		testutil.WriteFile(t, f.results, "p.txt", "new\n")
		return &runner.Output{}, nil
	}}
	s := Scenario{
		Name:      "p",
		Generated: &ChannelSpec{Expected: genBaseline, Result: genResult},
	}

	h, _ := newTestHarness(t, tool, Options{Apply: true})
	result, err := h.RunScenario(context.Background(), &s)
	require.NoError(t, err)
	assert.True(t, result.Pass)
	assert.Equal(t, "new\n", testutil.ReadFile(t, genBaseline))
	assert.False(t, fileExists(genResult))
}

func TestApply_GeneratedKeepsLineEndings(t *testing.T) {
	f := newFixture(t)
	genBaseline := f.baseline(t, "p.txt", "a\n")
	tool := &fakeRunner{run: func([]string) (*runner.Output, error) {
		testutil.WriteFile(t, f.results, "p.txt", "a\r\n")
		return &runner.Output{}, nil
	}}
	s := Scenario{
		Name:      "p",
		Generated: &ChannelSpec{Expected: genBaseline, Result: f.result("p.txt")},
	}

	h, _ := newTestHarness(t, tool, Options{Apply: true})
	result, err := h.RunScenario(context.Background(), &s)
	require.NoError(t, err)
	assert.True(t, result.Pass)
	assert.Equal(t, "a\r\n", testutil.ReadFile(t, genBaseline))
}

func TestApply_CreatesMissingBaseline(t *testing.T) {
	f := newFixture(t)
	baseline := filepath.Join(f.dir, "Output", "new", "help.txt")
	s := Scenario{
		Name:   "help",
		Stdout: &ChannelSpec{Expected: baseline, Result: f.result("help.txt")},
	}

	h, _ := newTestHarness(t, stdoutRunner(""), Options{Apply: true})
	result, err := h.RunScenario(context.Background(), &s)
	require.NoError(t, err)
	assert.True(t, result.Pass)
	assert.True(t, fileExists(baseline))
	assert.Equal(t, "", testutil.ReadFile(t, baseline))
}

func TestApply_DisabledDoesNotTouchBaseline(t *testing.T) {
	f := newFixture(t)
	baseline := f.baseline(t, "help.txt", "old\n")
	s := Scenario{
		Name:   "help",
		Stdout: &ChannelSpec{Expected: baseline, Result: f.result("help.txt")},
	}

	out := &bytes.Buffer{}
	h := New(stdoutRunner("new\n"), Config{Out: out})
	result, err := h.RunScenario(context.Background(), &s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, "old\n", testutil.ReadFile(t, baseline))
	assert.NotContains(t, out.String(), "Auto appending")
}
