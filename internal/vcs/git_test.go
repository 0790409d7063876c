package vcs

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/starford/chrono/internal/caldate"
	"github.com/starford/chrono/internal/testutil"
)

func TestLastEditDate_Committed(t *testing.T) {
	repo := testutil.NewRepo(t)
	p := repo.Write("posts/a.md", "---\n---\n")
	repo.Commit("add a")

	got, err := New("", 10*time.Second).LastEditDate(context.Background(), p)
	if err != nil {
		t.Fatalf("LastEditDate: %v", err)
	}
	if !got.Equal(caldate.Some(caldate.New(2002, 1, 1))) {
		t.Errorf("date = %s, want 2002-01-01", got)
	}
}

func TestLastEditDate_NeverCommitted(t *testing.T) {
	repo := testutil.NewRepo(t)
	repo.Write("a.md", "x")
	repo.Commit("add a")
	p := repo.Write("b.md", "y")

	got, err := New("git", 0).LastEditDate(context.Background(), p)
	if err != nil {
		t.Fatalf("LastEditDate: %v", err)
	}
	if got.Valid {
		t.Errorf("date = %s, want none", got)
	}
}

func TestLastEditDate_OutsideRepo(t *testing.T) {
	testutil.RequireGit(t)
	p := testutil.WriteFile(t, t.TempDir(), "a.md", "x")

	_, err := New("git", 0).LastEditDate(context.Background(), p)
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("err = %v, want *CommandError", err)
	}
}

func TestLastEditDate_MissingBinary(t *testing.T) {
	_, err := New("chrono-no-such-git-binary", 0).LastEditDate(context.Background(), filepath.Join(t.TempDir(), "a.md"))
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestNoHistory(t *testing.T) {
	got, err := NoHistory{}.LastEditDate(context.Background(), "whatever.md")
	if err != nil || got.Valid {
		t.Errorf("NoHistory = %s, %v", got, err)
	}
}

func TestProbe(t *testing.T) {
	testutil.RequireGit(t)
	g := New("", 0)
	ctx := context.Background()

	if s := g.Probe(ctx, t.TempDir()); s != RepoNone {
		t.Errorf("plain dir = %s, want none", s)
	}
	repo := testutil.NewRepo(t)
	if s := g.Probe(ctx, repo.Dir); s != RepoEmpty {
		t.Errorf("fresh repo = %s, want empty", s)
	}
	repo.Write("a.md", "x")
	repo.Commit("first")
	if s := g.Probe(ctx, repo.Dir); s != RepoReady {
		t.Errorf("committed repo = %s, want ready", s)
	}
}

func TestCheckClean(t *testing.T) {
	ctx := context.Background()
	g := New("", 0)

	clean := testutil.NewRepo(t)
	clean.Write("a.md", "a")
	clean.Write("b.md", "b")
	clean.Commit("initial")

	staged := testutil.NewRepo(t)
	staged.Write("a.md", "a")
	staged.Commit("initial")
	staged.Write("a.md", "changed")
	staged.Git("add", "a.md")

	dirty := testutil.NewRepo(t)
	dirty.Write("a.md", "a")
	dirty.Commit("initial")
	dirty.Write("a.md", "changed")
	dirty.Write("new.md", "untracked")

	noVCS := t.TempDir()

	tests := []struct {
		name    string
		dir     string
		opts    CleanOptions
		wantErr bool
	}{
		{"clean", clean.Dir, CleanOptions{}, false},
		{"staged rejected", staged.Dir, CleanOptions{}, true},
		{"staged allowed", staged.Dir, CleanOptions{AllowStaged: true}, false},
		{"staged allowed by dirty", staged.Dir, CleanOptions{AllowDirty: true}, false},
		{"dirty rejected", dirty.Dir, CleanOptions{}, true},
		{"dirty not covered by staged", dirty.Dir, CleanOptions{AllowStaged: true}, true},
		{"dirty allowed", dirty.Dir, CleanOptions{AllowDirty: true}, false},
		{"no vcs rejected", noVCS, CleanOptions{AllowDirty: true}, true},
		{"no vcs allowed", noVCS, CleanOptions{AllowNoVCS: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.CheckClean(ctx, tt.dir, tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	err := g.CheckClean(ctx, noVCS, CleanOptions{})
	if !errors.Is(err, ErrNoVCS) {
		t.Errorf("no vcs err = %v, want ErrNoVCS", err)
	}

	err = g.CheckClean(ctx, dirty.Dir, CleanOptions{})
	var files *NotAllowedFilesError
	if !errors.As(err, &files) {
		t.Fatalf("dirty err = %v, want *NotAllowedFilesError", err)
	}
	if !slices.Contains(files.Dirty, "a.md") || !slices.Contains(files.Dirty, "new.md") {
		t.Errorf("dirty files = %v", files.Dirty)
	}
	if len(files.Staged) != 0 {
		t.Errorf("staged files = %v", files.Staged)
	}
}

func TestParseStatus(t *testing.T) {
	out := "M  staged.md\n M dirty.md\nMM both.md\n?? new.md\nR  old.md -> renamed.md\n!! ignored.md\n"
	dirty, staged := parseStatus(out)

	wantDirty := []string{"dirty.md", "both.md", "new.md"}
	wantStaged := []string{"staged.md", "both.md", "renamed.md"}
	if !slices.Equal(dirty, wantDirty) {
		t.Errorf("dirty = %v, want %v", dirty, wantDirty)
	}
	if !slices.Equal(staged, wantStaged) {
		t.Errorf("staged = %v, want %v", staged, wantStaged)
	}
}
