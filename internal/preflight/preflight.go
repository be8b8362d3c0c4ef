// Package preflight checks the preconditions of a run: that the tool under
// test can be found and that it came from the expected build configuration.
package preflight

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/roach88/clicheck/internal/runner"
)

// ErrNoBinary is returned when none of the candidate paths is an executable.
var ErrNoBinary = errors.New("no binary found")

// FindBinary returns the first candidate that is an invocable file.
// Every rejected candidate and the chosen one are reported on w.
func FindBinary(w io.Writer, candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates configured", ErrNoBinary)
	}
	for _, path := range candidates {
		if err := runner.CheckExecutable(path); err != nil {
			fmt.Fprintf(w, "is not a file: %s\n", path)
			continue
		}
		fmt.Fprintf(w, "binary found: %s\n", path)
		return path, nil
	}
	return "", fmt.Errorf("%w among %d candidate(s)", ErrNoBinary, len(candidates))
}

// BuildTypeKey is the CMake cache entry recording a single-config build type.
const BuildTypeKey = "CMAKE_BUILD_TYPE:STRING="

// CheckBuildType verifies that the CMake cache at cachePath records
// buildType. The match is case-insensitive.
func CheckBuildType(cachePath, buildType string) error {
	data, err := os.ReadFile(cachePath)
	if err != nil {
		return fmt.Errorf("read build cache: %w", err)
	}
	want := strings.ToLower(BuildTypeKey + buildType)
	if !strings.Contains(strings.ToLower(string(data)), want) {
		return fmt.Errorf("CMAKE_BUILD_TYPE must be '%s'", buildType)
	}
	return nil
}
