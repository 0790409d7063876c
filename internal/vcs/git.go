// Package vcs asks git about the history and state of the content tree.
package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/chrono/internal/caldate"
)

// Git runs git commands with a fixed binary and per-call timeout.
type Git struct {
	binary  string
	timeout time.Duration
}

// New returns a Git using binary (default "git"). A zero timeout means no limit
// beyond the caller's context.
func New(binary string, timeout time.Duration) *Git {
	if binary == "" {
		binary = "git"
	}
	return &Git{binary: binary, timeout: timeout}
}

// output runs git in dir and returns stdout. A non-zero exit status or any
// output on stderr is an error.
func (g *Git) output(ctx context.Context, dir string, args ...string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, g.binary, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil || stderr.Len() > 0 {
		return "", &CommandError{
			Args:   args,
			Err:    err,
			Stdout: stdout.String(),
			Stderr: strings.TrimSpace(stderr.String()),
		}
	}
	return stdout.String(), nil
}

// LastEditDate returns the committer date of the most recent commit touching
// path, or None when the file has never been committed.
func (g *Git) LastEditDate(ctx context.Context, path string) (caldate.NullDate, error) {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	out, err := g.output(ctx, dir, "log", "-1", "--format=%cs", "--", name)
	if err != nil {
		return caldate.None, err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return caldate.None, nil
	}
	d, err := caldate.Parse(out)
	if err != nil {
		return caldate.None, fmt.Errorf("vcs: unexpected git date %q for %s: %w", out, path, err)
	}
	return caldate.Some(d), nil
}

// CommandError describes a failed git invocation.
type CommandError struct {
	Args   []string
	Err    error
	Stdout string
	Stderr string
}

func (e *CommandError) Error() string {
	status := "ok"
	if e.Err != nil {
		status = e.Err.Error()
	}
	return fmt.Sprintf("vcs: git %s failed: status: %s stdout: %q stderr: %q",
		strings.Join(e.Args, " "), status, strings.TrimSpace(e.Stdout), e.Stderr)
}

func (e *CommandError) Unwrap() error { return e.Err }

// NoHistory reports that no file has ever been committed. It stands in for
// Git when the content root is outside version control or has no commits.
type NoHistory struct{}

// LastEditDate always returns None.
func (NoHistory) LastEditDate(context.Context, string) (caldate.NullDate, error) {
	return caldate.None, nil
}
