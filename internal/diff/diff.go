// Package diff renders line-oriented differences between a tool's actual
// output and its expected baseline.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Line markers. Actual-only lines are removals, baseline-only lines are
// additions: reading the diff top to bottom turns actual into expected.
const (
	markerEqual  = "  "
	markerDelete = "- "
	markerInsert = "+ "
)

// Op is the kind of a diff line.
type Op int

const (
	OpEqual Op = iota
	OpDelete
	OpInsert
)

// Line is one line of a diff, including its line terminator if any.
type Line struct {
	Op   Op
	Text string
}

// Compute returns the line diff from actual to expected.
func Compute(actual, expected string) []Line {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToRunes(actual, expected)
	diffs := dmp.DiffMainRunes(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	var out []Line
	for _, d := range diffs {
		op := OpEqual
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			op = OpDelete
		case diffmatchpatch.DiffInsert:
			op = OpInsert
		}
		for _, text := range SplitLines(d.Text) {
			out = append(out, Line{Op: op, Text: text})
		}
	}
	return out
}

// Render formats a line diff, one quoted line per entry, so that
// whitespace, line endings and control bytes stay visible.
func Render(actual, expected string) string {
	var b strings.Builder
	for _, line := range Compute(actual, expected) {
		fmt.Fprintf(&b, "%q\n", marker(line.Op)+line.Text)
	}
	return b.String()
}

func marker(op Op) string {
	switch op {
	case OpDelete:
		return markerDelete
	case OpInsert:
		return markerInsert
	default:
		return markerEqual
	}
}

// SplitLines splits text after every "\n", keeping the terminator.
// A trailing fragment without a terminator is its own line.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
