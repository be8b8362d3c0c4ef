package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// toolScript echoes the interesting arguments of a formatter-like tool.
const toolScript = `#!/bin/sh
case "$1" in
  --help) echo "usage: tool [options]" ;;
  --version) echo "tool 0.80.0" ;;
  --fail) echo "bad option" >&2; exit 1 ;;
esac
`

const projectCatalogue = `binary: [tool.sh]
scenarios:
  - name: help
    args: [--help]
    stdout: {expected: Output/help.txt}
  - name: version
    args: [--version]
    stdout:
      expected: Output/version.txt
      transform:
        - regex: '[0-9]+\.[0-9]+\.[0-9]+'
          replace: X.Y.Z
  - name: fail
    args: [--fail]
    stderr: {expected: Output/fail.txt}
`

// writeProject lays out files under a fresh directory. Files ending in .sh
// are made executable.
func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		mode := os.FileMode(0o644)
		if strings.HasSuffix(name, ".sh") {
			mode = 0o755
		}
		require.NoError(t, os.WriteFile(path, []byte(content), mode))
	}
	return dir
}

// newProject is a three-scenario project where "fail" mismatches.
func newProject(t *testing.T) string {
	t.Helper()
	return writeProject(t, map[string]string{
		"tool.sh":            toolScript,
		"clicheck.yaml":      projectCatalogue,
		"Output/help.txt":    "usage: tool [options]\n",
		"Output/version.txt": "tool X.Y.Z\n",
		"Output/fail.txt":    "unknown option\n",
	})
}

// execute runs the root command with args and returns what it wrote.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	outBuf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

// scrub replaces the project directory so output can be compared verbatim.
func scrub(s, dir string) string {
	return strings.ReplaceAll(s, dir, "$DIR")
}
