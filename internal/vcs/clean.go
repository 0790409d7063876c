package vcs

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNoVCS is returned when the content root is not inside a git work tree.
var ErrNoVCS = errors.New("vcs: no git work tree found")

// CleanOptions relaxes the clean work tree check.
type CleanOptions struct {
	// AllowDirty accepts any uncommitted change, staged or not.
	AllowDirty bool
	// AllowStaged accepts changes that are staged but not committed.
	AllowStaged bool
	// AllowNoVCS accepts a root that is not under version control.
	AllowNoVCS bool
}

// NotAllowedFilesError lists the files that keep the work tree from being clean.
type NotAllowedFilesError struct {
	Dirty  []string
	Staged []string
}

func (e *NotAllowedFilesError) Error() string {
	var sb strings.Builder
	sb.WriteString("vcs: work tree has uncommitted changes; commit or stash them, or use --allow-dirty")
	for _, f := range e.Dirty {
		sb.WriteString("\n  ")
		sb.WriteString(f)
		sb.WriteString(" (dirty)")
	}
	for _, f := range e.Staged {
		sb.WriteString("\n  ")
		sb.WriteString(f)
		sb.WriteString(" (staged)")
	}
	return sb.String()
}

// RepoState describes what git knows about a directory.
type RepoState int

const (
	// RepoNone means the directory is not inside a git work tree.
	RepoNone RepoState = iota
	// RepoEmpty means the work tree exists but has no commits yet.
	RepoEmpty
	// RepoReady means the work tree has at least one commit.
	RepoReady
)

func (s RepoState) String() string {
	switch s {
	case RepoEmpty:
		return "empty"
	case RepoReady:
		return "ready"
	default:
		return "none"
	}
}

// Probe reports the repository state of dir.
func (g *Git) Probe(ctx context.Context, dir string) RepoState {
	out, err := g.output(ctx, dir, "rev-parse", "--is-inside-work-tree")
	if err != nil || strings.TrimSpace(out) != "true" {
		return RepoNone
	}
	if _, err := g.output(ctx, dir, "rev-parse", "--verify", "--quiet", "HEAD"); err != nil {
		return RepoEmpty
	}
	return RepoReady
}

// CheckClean verifies that root is inside a git work tree without uncommitted
// changes, so that every edit made by a run can be reviewed and reverted.
func (g *Git) CheckClean(ctx context.Context, root string, opts CleanOptions) error {
	if g.Probe(ctx, root) == RepoNone {
		if opts.AllowNoVCS {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrNoVCS, root)
	}
	if opts.AllowDirty {
		return nil
	}

	out, err := g.output(ctx, root, "status", "--porcelain=v1", "--untracked-files=all")
	if err != nil {
		return err
	}
	dirty, staged := parseStatus(out)
	if opts.AllowStaged {
		staged = nil
	}
	if len(dirty) == 0 && len(staged) == 0 {
		return nil
	}
	return &NotAllowedFilesError{Dirty: dirty, Staged: staged}
}

// parseStatus splits `git status --porcelain=v1` output into files with
// unstaged (or untracked) changes and files with staged changes. A file can
// be in both.
func parseStatus(out string) (dirty, staged []string) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if len(line) < 4 {
			continue
		}
		x, y, path := line[0], line[1], line[3:]
		if i := strings.Index(path, " -> "); i >= 0 {
			path = path[i+len(" -> "):]
		}
		path = strings.Trim(path, `"`)

		if x == '?' && y == '?' {
			dirty = append(dirty, path)
			continue
		}
		if x == '!' {
			continue
		}
		if x != ' ' {
			staged = append(staged, path)
		}
		if y != ' ' {
			dirty = append(dirty, path)
		}
	}
	return dirty, staged
}
