// Package transform rewrites captured tool output before it is compared
// against a baseline.
//
// A Chain is an ordered list of Steps. Each Step is exactly one of:
//
//   - a regex substitution: every match of Regex is replaced with Replace
//     (Go RE2 syntax, $1 / ${name} expand in Replace)
//   - a literal substitution: every occurrence of Literal is replaced with Replace
//
// Steps are applied strictly in list order, once. Chains are plain data so
// they can be decoded from a catalogue, logged and tested on their own.
//
//	transform:
//	  - regex: '\# Uncrustify.+'
//	    replace: ''
//	  - literal: '\'
//	    replace: '/'
package transform

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Kind identifies which substitution a Step performs.
type Kind string

const (
	KindRegex   Kind = "regex"
	KindLiteral Kind = "literal"
)

// Step is a single text rewrite.
type Step struct {
	Regex   string `yaml:"regex,omitempty" json:"regex,omitempty"`
	Literal string `yaml:"literal,omitempty" json:"literal,omitempty"`
	Replace string `yaml:"replace" json:"replace"`
}

// Regex returns a step replacing all matches of pattern.
func Regex(pattern, replace string) Step {
	return Step{Regex: pattern, Replace: replace}
}

// Literal returns a step replacing all occurrences of target.
func Literal(target, replace string) Step {
	return Step{Literal: target, Replace: replace}
}

// Kind reports the substitution kind. A step with both or neither of
// Regex and Literal set has no kind and fails Validate.
func (s Step) Kind() Kind {
	switch {
	case s.Regex != "" && s.Literal == "":
		return KindRegex
	case s.Literal != "" && s.Regex == "":
		return KindLiteral
	default:
		return ""
	}
}

// Validate checks that the step is exactly one variant and, for regex
// steps, that the pattern compiles.
func (s Step) Validate() error {
	switch s.Kind() {
	case KindRegex:
		_, err := compile(s.Regex)
		return err
	case KindLiteral:
		return nil
	default:
		if s.Regex != "" {
			return fmt.Errorf("step sets both regex %q and literal %q", s.Regex, s.Literal)
		}
		return fmt.Errorf("step must set one of regex or literal")
	}
}

// Apply rewrites text. It is pure.
func (s Step) Apply(text string) (string, error) {
	switch s.Kind() {
	case KindRegex:
		re, err := compile(s.Regex)
		if err != nil {
			return "", err
		}
		return re.ReplaceAllString(text, s.Replace), nil
	case KindLiteral:
		return strings.ReplaceAll(text, s.Literal, s.Replace), nil
	default:
		return "", s.Validate()
	}
}

func (s Step) String() string {
	switch s.Kind() {
	case KindRegex:
		return fmt.Sprintf("regex(%q -> %q)", s.Regex, s.Replace)
	case KindLiteral:
		return fmt.Sprintf("literal(%q -> %q)", s.Literal, s.Replace)
	default:
		return "invalid()"
	}
}

// compiled holds every pattern compiled so far, keyed by its source.
var compiled sync.Map // pattern -> *regexp.Regexp

func compile(pattern string) (*regexp.Regexp, error) {
	if re, ok := compiled.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex %q: %w", pattern, err)
	}
	actual, _ := compiled.LoadOrStore(pattern, re)
	return actual.(*regexp.Regexp), nil
}

// Chain is an ordered list of steps. The zero value is the identity.
type Chain []Step

// Validate reports the first invalid step.
func (c Chain) Validate() error {
	for i, step := range c {
		if err := step.Validate(); err != nil {
			return fmt.Errorf("transform[%d]: %w", i, err)
		}
	}
	return nil
}

// Apply runs every step over text in order.
func (c Chain) Apply(text string) (string, error) {
	for i, step := range c {
		out, err := step.Apply(text)
		if err != nil {
			return "", fmt.Errorf("transform[%d]: %w", i, err)
		}
		text = out
	}
	return text, nil
}

func (c Chain) String() string {
	if len(c) == 0 {
		return "[]"
	}
	parts := make([]string, len(c))
	for i, step := range c {
		parts[i] = step.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
