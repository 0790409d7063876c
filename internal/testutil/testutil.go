// Package testutil provides shared test helpers for content trees, git
// repositories and ledgers.
package testutil

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/starford/chrono/internal/ledger"
)

// CommitDate is the committer date used by Repo.Commit.
const CommitDate = "2002-01-01T12:00:00+00:00"

// TestLedger creates a temporary SQLite ledger that is automatically cleaned up.
func TestLedger(t *testing.T) *ledger.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "chrono-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := ledger.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// WriteFile writes content to rel under dir, creating parent directories.
func WriteFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	p := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

// ReadFile returns the content of rel under dir.
func ReadFile(t *testing.T, dir, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, rel))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(data)
}

// RequireGit skips the test when no git binary is available.
func RequireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

// Repo is a throwaway git repository.
type Repo struct {
	t   *testing.T
	Dir string
}

// NewRepo initialises a repository in a temporary directory.
func NewRepo(t *testing.T) *Repo {
	t.Helper()
	RequireGit(t)
	r := &Repo{t: t, Dir: t.TempDir()}
	r.Git("init", "--quiet")
	r.Git("config", "user.email", "test@example.com")
	r.Git("config", "user.name", "tester")
	r.Git("config", "commit.gpgsign", "false")
	return r
}

// Git runs a git command in the repository and fails the test on error.
func (r *Repo) Git(args ...string) string {
	r.t.Helper()
	cmd := exec.CommandContext(context.Background(), "git", args...)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_DATE="+CommitDate,
		"GIT_COMMITTER_DATE="+CommitDate,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		r.t.Fatalf("git %v failed: %v output: %s", args, err, string(out))
	}
	return string(out)
}

// Write writes a file inside the repository.
func (r *Repo) Write(rel, content string) string {
	r.t.Helper()
	return WriteFile(r.t, r.Dir, rel, content)
}

// Commit stages everything and commits it at CommitDate.
func (r *Repo) Commit(msg string) {
	r.t.Helper()
	r.Git("add", "--all")
	r.Git("commit", "--quiet", "-m", msg)
}
