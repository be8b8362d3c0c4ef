// Package runner invokes the executable under test and captures its output.
//
// Each invocation runs to completion with no stdin. Both output channels are
// buffered in full, validated as UTF-8 and newline-translated the way a
// text-mode pipe would be, so that comparisons see one canonical form
// regardless of platform.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// ErrNotExecutable is returned when the executable path does not resolve to
// an invocable file.
var ErrNotExecutable = errors.New("not an executable file")

// DecodeError reports output that is not valid UTF-8.
type DecodeError struct {
	Channel string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Channel, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Output is the captured result of one invocation.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Success reports whether the process exited with status 0.
func (o *Output) Success() bool {
	return o.ExitCode == 0
}

// Runner spawns a single executable.
type Runner struct {
	bin string
	dir string
	env []string
}

// Option configures a Runner.
type Option func(*Runner)

// WithDir sets the working directory of the child process.
func WithDir(dir string) Option {
	return func(r *Runner) { r.dir = dir }
}

// WithEnv appends environment entries ("KEY=value") to the inherited environment.
func WithEnv(env ...string) Option {
	return func(r *Runner) { r.env = append(r.env, env...) }
}

// New returns a Runner for bin after checking that it is invocable.
func New(bin string, opts ...Option) (*Runner, error) {
	if err := CheckExecutable(bin); err != nil {
		return nil, err
	}
	r := &Runner{bin: bin}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Bin returns the executable path.
func (r *Runner) Bin() string {
	return r.bin
}

// Run invokes the executable with args and blocks until it exits.
//
// A non-zero exit status is not an error: it is reported in Output.ExitCode.
// Errors are returned only when the process cannot be started or its
// output cannot be decoded.
func (r *Runner) Run(ctx context.Context, args ...string) (*Output, error) {
	cmd := exec.CommandContext(ctx, r.bin, args...)
	cmd.Dir = r.dir
	if len(r.env) > 0 {
		cmd.Env = append(os.Environ(), r.env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	out := &Output{}
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("run %s: %w", r.bin, err)
		}
		out.ExitCode = exitErr.ExitCode()
	}

	var err error
	if out.Stdout, err = Decode("stdout", stdout.Bytes()); err != nil {
		return nil, err
	}
	if out.Stderr, err = Decode("stderr", stderr.Bytes()); err != nil {
		return nil, err
	}
	return out, nil
}

// Decode validates data as UTF-8 and translates "\r\n" and lone "\r" to "\n",
// the way a text-mode pipe reads captured output.
func Decode(channel string, data []byte) (string, error) {
	text, err := ValidateUTF8(channel, data)
	if err != nil {
		return "", err
	}
	return NormalizeNewlines(text), nil
}

// ValidateUTF8 checks that data is valid UTF-8 and returns it unchanged.
// Files written by the tool are read this way: their line endings are
// part of what is compared.
func ValidateUTF8(channel string, data []byte) (string, error) {
	text, _, err := transform.String(encoding.UTF8Validator, string(data))
	if err != nil {
		return "", &DecodeError{Channel: channel, Err: err}
	}
	return text, nil
}

// NormalizeNewlines rewrites every line ending to "\n".
func NormalizeNewlines(text string) string {
	if !strings.Contains(text, "\r") {
		return text
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

// CheckExecutable reports whether path names a regular file that can be run.
func CheckExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s does not exist", ErrNotExecutable, path)
		}
		return fmt.Errorf("%w: %v", ErrNotExecutable, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", ErrNotExecutable, path)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("%w: %s has no execute permission", ErrNotExecutable, path)
	}
	return nil
}
