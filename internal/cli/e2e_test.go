package cli

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/tools/txtar"
)

// TestEndToEnd runs every archive in testdata/e2e. The archive comment
// holds directives:
//
//	args: <command line, $DIR is the extracted archive>
//	exit: <expected exit code>
//
// Files named want/stdout and want/stderr hold the expected output after
// $DIR substitution; want/stdout is compared exactly and each line of
// want/stderr must appear in stderr. Files named want/<path> other than
// those are compared with the file at <path> after the run. Every other
// file is extracted into $DIR; names ending in .sh are made executable.
func TestEndToEnd(t *testing.T) {
	archives, err := filepath.Glob("testdata/e2e/*.txtar")
	if err != nil {
		t.Fatalf("failed to find txtar files: %v", err)
	}
	if len(archives) == 0 {
		t.Fatal("no txtar files found in testdata/e2e")
	}

	for _, path := range archives {
		t.Run(strings.TrimSuffix(filepath.Base(path), ".txtar"), func(t *testing.T) {
			runArchive(t, path)
		})
	}
}

type directives struct {
	args []string
	exit int
}

func parseDirectives(t *testing.T, comment, dir string) directives {
	t.Helper()
	var d directives
	for _, line := range strings.Split(comment, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch key {
		case "args":
			for _, f := range strings.Fields(value) {
				d.args = append(d.args, strings.ReplaceAll(f, "$DIR", dir))
			}
		case "exit":
			code, err := strconv.Atoi(value)
			if err != nil {
				t.Fatalf("bad exit directive %q: %v", value, err)
			}
			d.exit = code
		}
	}
	if len(d.args) == 0 {
		t.Fatal("archive has no args directive")
	}
	return d
}

func runArchive(t *testing.T, path string) {
	archive, err := txtar.ParseFile(path)
	if err != nil {
		t.Fatalf("failed to parse %s: %v", path, err)
	}

	dir := t.TempDir()
	want := map[string]string{}
	for _, f := range archive.Files {
		if name, ok := strings.CutPrefix(f.Name, "want/"); ok {
			want[name] = string(f.Data)
			continue
		}
		target := filepath.Join(dir, filepath.FromSlash(f.Name))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		mode := os.FileMode(0o644)
		if strings.HasSuffix(f.Name, ".sh") {
			mode = 0o755
		}
		if err := os.WriteFile(target, f.Data, mode); err != nil {
			t.Fatalf("write %s: %v", f.Name, err)
		}
	}

	d := parseDirectives(t, string(archive.Comment), dir)
	stdout, stderr, runErr := execute(t, d.args...)

	if got := GetExitCode(runErr); got != d.exit {
		t.Errorf("exit code = %d, want %d (err: %v)\nstdout:\n%s\nstderr:\n%s", got, d.exit, runErr, stdout, stderr)
	}

	if w, ok := want["stdout"]; ok {
		if diff := cmp.Diff(w, scrub(stdout, dir)); diff != "" {
			t.Errorf("stdout mismatch (-want +got):\n%s", diff)
		}
	}
	if w, ok := want["stderr"]; ok {
		got := scrub(stderr, dir)
		for _, line := range strings.Split(strings.TrimSpace(w), "\n") {
			if !strings.Contains(got, line) {
				t.Errorf("stderr missing %q\nstderr:\n%s", line, got)
			}
		}
	}

	for name, content := range want {
		if name == "stdout" || name == "stderr" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
		if err != nil {
			t.Errorf("read %s: %v", name, err)
			continue
		}
		if diff := cmp.Diff(content, string(data)); diff != "" {
			t.Errorf("%s mismatch (-want +got):\n%s", name, diff)
		}
	}
}
