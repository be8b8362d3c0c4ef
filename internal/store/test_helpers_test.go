package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/clicheck/internal/harness"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var testStart = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

// createTestSummary builds a summary with one passing and one failing scenario.
func createTestSummary(runID string, offset time.Duration) *harness.Summary {
	s := &harness.Summary{
		RunID:     runID,
		StartedAt: testStart.Add(offset),
		Catalogue: "/src/tests/cli/clicheck.yaml",
		AllPassed: true,
	}

	help := harness.NewRunResult("help")
	help.AddChannel(harness.ChannelResult{
		Channel:      harness.ChannelStdout,
		Match:        true,
		ExpectedPath: "/src/tests/cli/Output/help.txt",
		ResultPath:   "/src/tests/cli/Results/help.txt",
	})
	s.Fold(help)

	uc := harness.NewRunResult("update-config")
	uc.ExitCode = 1
	uc.AddChannel(harness.ChannelResult{
		Channel:      harness.ChannelStdout,
		Match:        true,
		Applied:      true,
		ExpectedPath: "/src/tests/cli/Output/mini_d_uc.txt",
		ResultPath:   "/src/tests/cli/Results/mini_d_uc.txt",
	})
	uc.AddChannel(harness.ChannelResult{
		Channel:      harness.ChannelStderr,
		ExpectedPath: "/src/tests/cli/Output/mini_d_error.txt",
		ResultPath:   "/src/tests/cli/Results/mini_d_error0.txt",
		Error:        "is not a file: <missing>",
	})
	s.Fold(uc)

	return s
}
