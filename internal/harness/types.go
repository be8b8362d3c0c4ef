package harness

import (
	"time"

	"github.com/roach88/clicheck/internal/transform"
)

// Channel names one observable output of the tool under test.
type Channel string

const (
	ChannelStdout    Channel = "stdout"
	ChannelStderr    Channel = "stderr"
	ChannelGenerated Channel = "generated"
)

// channelOrder is both the comparison order and the apply-target priority.
var channelOrder = []Channel{ChannelStdout, ChannelStderr, ChannelGenerated}

// ChannelSpec configures the comparison of one channel.
type ChannelSpec struct {
	// Expected is the baseline file path.
	Expected string `yaml:"expected" json:"expected"`

	// Result is the scratch path. For stdout/stderr the actual text is
	// written here on mismatch; when empty it defaults to
	// <results>/<scenario>.<channel>.txt. For the generated channel it is
	// the file the tool writes and must be set together with Expected.
	Result string `yaml:"result,omitempty" json:"result,omitempty"`

	// Transform rewrites the actual value before comparison. The baseline
	// is never transformed.
	Transform transform.Chain `yaml:"transform,omitempty" json:"transform,omitempty"`
}

// ChannelResult is the outcome of comparing one channel. Match is true on
// equality and also when a mismatch was applied to the baseline.
type ChannelResult struct {
	Channel      Channel `json:"channel"`
	Match        bool    `json:"match"`
	Applied      bool    `json:"applied,omitempty"`
	Actual       string  `json:"-"`
	Expected     string  `json:"-"`
	ExpectedPath string  `json:"expected_path"`
	ResultPath   string  `json:"result_path,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// RunResult aggregates the channel results of one scenario execution.
type RunResult struct {
	Scenario string          `json:"scenario"`
	Pass     bool            `json:"pass"`
	ExitCode int             `json:"exit_code"`
	Channels []ChannelResult `json:"channels"`
	Errors   []string        `json:"errors,omitempty"`
}

// NewRunResult creates a passing result for scenario.
func NewRunResult(scenario string) *RunResult {
	return &RunResult{
		Scenario: scenario,
		Pass:     true,
		Channels: []ChannelResult{},
		Errors:   []string{},
	}
}

// AddChannel records a channel outcome and folds it into Pass.
func (r *RunResult) AddChannel(cr ChannelResult) {
	r.Channels = append(r.Channels, cr)
	if !cr.Match {
		r.Pass = false
	}
	if cr.Error != "" {
		r.Errors = append(r.Errors, string(cr.Channel)+": "+cr.Error)
	}
}

// AddError records a scenario-level failure.
func (r *RunResult) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Summary is the process-wide aggregate of one run.
type Summary struct {
	RunID     string       `json:"run_id"`
	StartedAt time.Time    `json:"started_at"`
	Catalogue string       `json:"catalogue,omitempty"`
	AllPassed bool         `json:"all_passed"`
	Passed    int          `json:"passed"`
	Failed    int          `json:"failed"`
	Total     int          `json:"total"`
	Results   []*RunResult `json:"scenarios"`
}

// Fold adds one scenario outcome. AllPassed only ever goes from true to false.
func (s *Summary) Fold(r *RunResult) {
	s.Results = append(s.Results, r)
	s.Total++
	if r.Pass {
		s.Passed++
	} else {
		s.Failed++
	}
	s.AllPassed = s.AllPassed && r.Pass
}

// Verdict is the final single-line report.
func (s *Summary) Verdict() string {
	if s.AllPassed {
		return "all tests are OK"
	}
	return "some problem(s) are still present"
}
