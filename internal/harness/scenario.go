package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// Scenario is one invocation of the tool under test plus the baselines its
// outputs are compared against.
type Scenario struct {
	// Name uniquely identifies the scenario. It also keys the default
	// result file names, so it must not contain path separators.
	Name string `yaml:"name" json:"name"`

	// Description explains what the scenario covers.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Args is the argument vector passed to the tool.
	Args []string `yaml:"args,omitempty" json:"args,omitempty"`

	Stdout    *ChannelSpec `yaml:"stdout,omitempty" json:"stdout,omitempty"`
	Stderr    *ChannelSpec `yaml:"stderr,omitempty" json:"stderr,omitempty"`
	Generated *ChannelSpec `yaml:"generated,omitempty" json:"generated,omitempty"`

	// EchoInput names a file printed before the stdout/stderr comparison
	// for debugging context. It overrides the operator's --input-file.
	EchoInput string `yaml:"echo_input,omitempty" json:"echo_input,omitempty"`

	// Each expands the scenario once per value: the copies are named
	// <name>-<value> and ${each} is substituted in args and paths.
	Each []string `yaml:"each,omitempty" json:"each,omitempty"`
}

// Spec returns the channel spec for c, or nil if the channel is not configured.
func (s *Scenario) Spec(c Channel) *ChannelSpec {
	switch c {
	case ChannelStdout:
		return s.Stdout
	case ChannelStderr:
		return s.Stderr
	case ChannelGenerated:
		return s.Generated
	default:
		return nil
	}
}

// Channels lists the configured channels in comparison order.
func (s *Scenario) Channels() []Channel {
	var out []Channel
	for _, c := range channelOrder {
		if s.Spec(c) != nil {
			out = append(out, c)
		}
	}
	return out
}

// BuildCheck configures the build provenance precondition.
type BuildCheck struct {
	Cache string `yaml:"cache" json:"cache"`
	Type  string `yaml:"type" json:"type"`
}

// Catalogue is the full set of scenarios for one run.
type Catalogue struct {
	// Binary lists candidate paths of the tool under test; the first
	// invocable one is used.
	Binary []string `yaml:"binary,omitempty" json:"binary,omitempty"`

	// Build is the optional provenance check.
	Build *BuildCheck `yaml:"build,omitempty" json:"build,omitempty"`

	// Env lists "KEY=value" entries added to the tool's inherited
	// environment for every scenario.
	Env []string `yaml:"env,omitempty" json:"env,omitempty"`

	// Results is the scratch directory, cleared at the start of every run.
	// Defaults to "Results" next to the catalogue.
	Results string `yaml:"results,omitempty" json:"results,omitempty"`

	Scenarios []Scenario `yaml:"scenarios" json:"scenarios"`

	// Path and Dir locate the catalogue file; relative paths resolve against Dir.
	Path string `yaml:"-" json:"-"`
	Dir  string `yaml:"-" json:"-"`
}

const defaultResultsDir = "Results"

// LoadCatalogue reads a .yaml, .yml or .cue catalogue, expands matrix
// scenarios and placeholders, resolves relative paths and validates the
// result. Any defect is returned as a *ConfigError.
func LoadCatalogue(path string) (*Catalogue, error) {
	cat, err := DecodeCatalogue(path)
	if err != nil {
		return nil, err
	}
	if err := cat.Resolve(); err != nil {
		return nil, err
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return cat, nil
}

// DecodeCatalogue parses a catalogue file and locates it, without resolving
// placeholders or validating. Callers that override catalogue settings
// apply them before Resolve.
func DecodeCatalogue(path string) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalogue: %w", err)
	}

	var cat *Catalogue
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		cat, err = decodeYAML(data)
	case ".cue":
		cat, err = decodeCUE(data, path)
	default:
		return nil, &ConfigError{Field: "catalogue", Message: fmt.Sprintf("unsupported catalogue format %q", ext)}
	}
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve catalogue path: %w", err)
	}
	cat.Path = abs
	cat.Dir = filepath.Dir(abs)
	return cat, nil
}

// decodeYAML parses with strict field validation so typos such as
// "stdot:" are rejected instead of silently dropping a channel.
func decodeYAML(data []byte) (*Catalogue, error) {
	var cat Catalogue
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cat); err != nil {
		return nil, &ConfigError{Field: "catalogue", Message: fmt.Sprintf("failed to parse YAML: %v", err)}
	}
	return &cat, nil
}

func decodeCUE(data []byte, filename string) (*Catalogue, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, &ConfigError{Field: "catalogue", Message: fmt.Sprintf("failed to compile CUE: %v", err)}
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, &ConfigError{Field: "catalogue", Message: fmt.Sprintf("CUE catalogue is not concrete: %v", err)}
	}
	var cat Catalogue
	if err := value.Decode(&cat); err != nil {
		return nil, &ConfigError{Field: "catalogue", Message: fmt.Sprintf("failed to decode CUE: %v", err)}
	}
	return &cat, nil
}

var placeholderRE = regexp.MustCompile(`\$\{(\w+)\}`)

// expand substitutes ${name} placeholders. Unknown names are left as is.
func expand(s string, vars map[string]string) string {
	return placeholderRE.ReplaceAllStringFunc(s, func(m string) string {
		if v, ok := vars[m[2:len(m)-1]]; ok {
			return v
		}
		return m
	})
}

// Resolve expands matrix scenarios and ${dir}, ${results}, ${null} and
// ${each} placeholders, and makes every path absolute. Env values get the
// same placeholders but are not treated as paths. It is applied once
// by LoadCatalogue; catalogues built in code may call it directly.
func (c *Catalogue) Resolve() error {
	vars := map[string]string{"dir": c.Dir, "null": os.DevNull}

	if c.Results == "" {
		c.Results = defaultResultsDir
	}
	c.Results = c.path(expand(c.Results, vars))
	vars["results"] = c.Results

	for i, bin := range c.Binary {
		c.Binary[i] = c.path(expand(bin, vars))
	}
	if c.Build != nil {
		c.Build.Cache = c.path(expand(c.Build.Cache, vars))
	}
	for i, kv := range c.Env {
		c.Env[i] = expand(kv, vars)
	}

	var scenarios []Scenario
	for _, s := range c.Scenarios {
		if len(s.Each) == 0 {
			scenarios = append(scenarios, c.resolveScenario(s, "", vars))
			continue
		}
		for _, value := range s.Each {
			scenarios = append(scenarios, c.resolveScenario(s, value, vars))
		}
	}
	c.Scenarios = scenarios
	return nil
}

func (c *Catalogue) resolveScenario(s Scenario, each string, vars map[string]string) Scenario {
	local := make(map[string]string, len(vars)+1)
	for k, v := range vars {
		local[k] = v
	}

	out := Scenario{
		Name:        s.Name,
		Description: s.Description,
	}
	if len(s.Each) > 0 {
		local["each"] = each
		out.Name = s.Name + "-" + each
	}

	if s.Args != nil {
		out.Args = make([]string, len(s.Args))
		for i, arg := range s.Args {
			out.Args[i] = expand(arg, local)
		}
	}
	if s.EchoInput != "" {
		out.EchoInput = c.path(expand(s.EchoInput, local))
	}

	out.Stdout = c.resolveChannel(s.Stdout, out.Name, ChannelStdout, local)
	out.Stderr = c.resolveChannel(s.Stderr, out.Name, ChannelStderr, local)
	out.Generated = c.resolveChannel(s.Generated, out.Name, ChannelGenerated, local)
	return out
}

func (c *Catalogue) resolveChannel(spec *ChannelSpec, name string, ch Channel, vars map[string]string) *ChannelSpec {
	if spec == nil {
		return nil
	}
	out := &ChannelSpec{
		Expected:  c.path(expand(spec.Expected, vars)),
		Result:    c.path(expand(spec.Result, vars)),
		Transform: append(spec.Transform[:0:0], spec.Transform...),
	}
	if out.Result == "" && ch != ChannelGenerated {
		out.Result = filepath.Join(c.Results, name+"."+string(ch)+".txt")
	}
	return out
}

func (c *Catalogue) path(p string) string {
	if p == "" || filepath.IsAbs(p) || p == os.DevNull {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// Validate checks every scenario and rejects duplicate names.
func (c *Catalogue) Validate() error {
	if len(c.Scenarios) == 0 {
		return &ConfigError{Field: "scenarios", Message: "scenarios list is required and must be non-empty"}
	}
	if c.Build != nil && (c.Build.Cache == "" || c.Build.Type == "") {
		return &ConfigError{Field: "build", Message: "cache and type are both required"}
	}
	for i, kv := range c.Env {
		if key, _, ok := strings.Cut(kv, "="); !ok || key == "" {
			return &ConfigError{Field: fmt.Sprintf("env[%d]", i), Message: fmt.Sprintf("%q is not KEY=value", kv)}
		}
	}

	seen := make(map[string]bool, len(c.Scenarios))
	for i := range c.Scenarios {
		s := &c.Scenarios[i]
		if s.Name == "" {
			return &ConfigError{Field: fmt.Sprintf("scenarios[%d]", i), Message: "name is required"}
		}
		if seen[s.Name] {
			return &ConfigError{Scenario: s.Name, Message: "duplicate scenario name"}
		}
		seen[s.Name] = true
		if err := ValidateScenario(s); err != nil {
			return err
		}
	}
	return nil
}

// Filter returns the scenarios whose name matches the glob pattern.
// An empty pattern matches everything.
func (c *Catalogue) Filter(pattern string) ([]Scenario, error) {
	if pattern == "" {
		return c.Scenarios, nil
	}
	var out []Scenario
	for _, s := range c.Scenarios {
		matched, err := filepath.Match(pattern, s.Name)
		if err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
		if matched {
			out = append(out, s)
		}
	}
	return out, nil
}

// ValidateScenario checks the channel configuration of a single scenario.
func ValidateScenario(s *Scenario) error {
	if strings.ContainsAny(s.Name, `/\`) {
		return &ConfigError{Scenario: s.Name, Field: "name", Message: "must not contain path separators"}
	}

	channels := s.Channels()
	if len(channels) == 0 {
		return &ConfigError{Scenario: s.Name, Message: "no expected comparison file provided"}
	}
	for _, ch := range channels {
		spec := s.Spec(ch)
		field := string(ch)
		if ch == ChannelGenerated && (spec.Expected == "") != (spec.Result == "") {
			return &ConfigError{Scenario: s.Name, Field: field, Message: "'expected' and 'result' must be used in combination"}
		}
		if spec.Expected == "" {
			return &ConfigError{Scenario: s.Name, Field: field, Message: "expected is required"}
		}
		if err := spec.Transform.Validate(); err != nil {
			return &ConfigError{Scenario: s.Name, Field: field, Message: err.Error()}
		}
	}

	for i, v := range s.Each {
		if v == "" {
			return &ConfigError{Scenario: s.Name, Field: fmt.Sprintf("each[%d]", i), Message: "value must be non-empty"}
		}
	}
	return nil
}
