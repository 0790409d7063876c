package internal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/chrono/internal/apperr"
	"github.com/starford/chrono/internal/ledger"
	"github.com/starford/chrono/internal/testutil"
	"github.com/starford/chrono/internal/vcs"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func testConfig(root string) *Config {
	cfg := NewDefaultConfig()
	cfg.Content.Root = root
	cfg.Run.Unattended = true
	return cfg
}

func runApp(t *testing.T, cfg *Config, stdin string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := Run(context.Background(),
		WithConfig(cfg),
		WithStdin(strings.NewReader(stdin)),
		WithStdout(&out),
		WithStderr(io.Discard),
		WithClock(func() time.Time { return testNow }),
	)
	return out.String(), err
}

func TestRun_UpdatesCommittedDocuments(t *testing.T) {
	repo := testutil.NewRepo(t)
	repo.Write("content/post.md", "---\ntitle: Post\n---\n\nBody\n")
	repo.Write("content/_index.md", "---\ntitle: Home\n---\n")
	repo.Commit("initial")

	out, err := runApp(t, testConfig(filepath.Join(repo.Dir, "content")), "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out, "File Stats: Changed: 1, Not Changed: 0, Skipped: 1, Errors: 0") {
		t.Errorf("summary = %q", out)
	}
	got := testutil.ReadFile(t, repo.Dir, "content/post.md")
	if got != "---\ntitle: Post\ndate: 2002-01-01\nupdated: 2024-06-15\n---\n\nBody\n" {
		t.Errorf("post.md = %q", got)
	}
}

func TestRun_SecondRunIsNoop(t *testing.T) {
	repo := testutil.NewRepo(t)
	repo.Write("post.md", "---\ntitle: Post\n---\n")
	repo.Commit("initial")

	cfg := testConfig(repo.Dir)
	if _, err := runApp(t, cfg, ""); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	cfg.VCS.AllowDirty = true
	out, err := runApp(t, cfg, "")
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if !strings.Contains(out, "Changed: 0, Not Changed: 1") {
		t.Errorf("second summary = %q", out)
	}
}

func TestRun_DirtyTreeRefused(t *testing.T) {
	repo := testutil.NewRepo(t)
	repo.Write("post.md", "---\ntitle: Post\n---\n")
	repo.Commit("initial")
	repo.Write("draft.md", "---\ntitle: Draft\n---\n")

	_, err := runApp(t, testConfig(repo.Dir), "")
	var notAllowed *vcs.NotAllowedFilesError
	if !errors.As(err, &notAllowed) {
		t.Fatalf("err = %v, want NotAllowedFilesError", err)
	}
	if len(notAllowed.Dirty) != 1 || notAllowed.Dirty[0] != "draft.md" {
		t.Errorf("dirty = %v", notAllowed.Dirty)
	}
	if got := testutil.ReadFile(t, repo.Dir, "post.md"); got != "---\ntitle: Post\n---\n" {
		t.Errorf("file written despite dirty tree: %q", got)
	}
}

func TestRun_NoVCS(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "post.md", "---\ntitle: Post\n---\n")

	if _, err := runApp(t, testConfig(dir), ""); !errors.Is(err, vcs.ErrNoVCS) {
		t.Fatalf("err = %v, want ErrNoVCS", err)
	}

	cfg := testConfig(dir)
	cfg.VCS.AllowNoVCS = true
	if _, err := runApp(t, cfg, ""); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := testutil.ReadFile(t, dir, "post.md"); got != "---\ntitle: Post\ndate: 2024-06-15\n---\n" {
		t.Errorf("post.md = %q", got)
	}
}

func TestRun_CheckOnly(t *testing.T) {
	dir := t.TempDir()
	const src = "---\ntitle: Post\n---\n"
	testutil.WriteFile(t, dir, "post.md", src)

	cfg := testConfig(dir)
	cfg.Run.CheckOnly = true
	cfg.Run.Unattended = false

	out, err := runApp(t, cfg, "")
	if !errors.Is(err, ErrPendingChanges) {
		t.Fatalf("err = %v, want ErrPendingChanges", err)
	}
	if strings.Contains(out, "Continue?") {
		t.Error("check-only must not prompt")
	}
	if got := testutil.ReadFile(t, dir, "post.md"); got != src {
		t.Errorf("check-only wrote: %q", got)
	}
}

func TestRun_Confirmation(t *testing.T) {
	dir := t.TempDir()
	const src = "---\ntitle: Post\n---\n"
	testutil.WriteFile(t, dir, "post.md", src)

	cfg := testConfig(dir)
	cfg.VCS.AllowNoVCS = true
	cfg.Run.Unattended = false

	out, err := runApp(t, cfg, "n\n")
	if !errors.Is(err, apperr.ErrAborted) {
		t.Fatalf("err = %v, want ErrAborted", err)
	}
	if !strings.Contains(out, "Continue? [y/N]") {
		t.Errorf("prompt = %q", out)
	}
	if got := testutil.ReadFile(t, dir, "post.md"); got != src {
		t.Errorf("declined run wrote: %q", got)
	}

	if _, err := runApp(t, cfg, "yes\n"); err != nil {
		t.Fatalf("confirmed Run: %v", err)
	}
	if got := testutil.ReadFile(t, dir, "post.md"); got == src {
		t.Error("confirmed run did not write")
	}
}

func TestRun_FileErrorsFail(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "broken.md", "no front matter\n")

	cfg := testConfig(dir)
	cfg.VCS.AllowNoVCS = true
	out, err := runApp(t, cfg, "")
	if !errors.Is(err, ErrFileErrors) {
		t.Fatalf("err = %v, want ErrFileErrors", err)
	}
	if !strings.Contains(out, "Errors: 1") {
		t.Errorf("summary = %q", out)
	}
}

func TestRun_SingleFileRoot(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "one.md", "---\ntitle: One\n---\n")
	testutil.WriteFile(t, dir, "two.md", "---\ntitle: Two\n---\n")

	cfg := testConfig(filepath.Join(dir, "one.md"))
	cfg.VCS.AllowNoVCS = true
	out, err := runApp(t, cfg, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out, "Changed: 1, Not Changed: 0, Skipped: 0, Errors: 0") {
		t.Errorf("summary = %q", out)
	}
	if got := testutil.ReadFile(t, dir, "two.md"); got != "---\ntitle: Two\n---\n" {
		t.Errorf("sibling file touched: %q", got)
	}
}

func TestRun_RecordsLedgerAndHistory(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "post.md", "---\ntitle: Post\n---\n")
	testutil.WriteFile(t, dir, "logo.png", "png")

	cfg := testConfig(dir)
	cfg.VCS.AllowNoVCS = true
	cfg.Ledger.Path = filepath.Join(t.TempDir(), "chrono.db")
	if _, err := runApp(t, cfg, ""); err != nil {
		t.Fatalf("Run: %v", err)
	}

	db, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	runs, err := db.ListRuns(10)
	if err != nil || len(runs) != 1 {
		t.Fatalf("runs = %+v err = %v", runs, err)
	}
	r := runs[0]
	if r.FinishedAt == nil || r.Changed != 1 || r.Skipped != 1 || r.Today != "2024-06-15" {
		t.Errorf("run = %+v", r)
	}
	files, err := db.RunFiles(r.ID)
	if err != nil || len(files) != 1 {
		t.Fatalf("files = %+v err = %v", files, err)
	}
	if files[0].DateBefore != "absent" || files[0].DateAfter != "2024-06-15" || files[0].Checksum == "" {
		t.Errorf("file = %+v", files[0])
	}
	db.Close()

	var out bytes.Buffer
	if err := History(context.Background(), 5, WithConfig(cfg), WithStdout(&out), WithStderr(io.Discard)); err != nil {
		t.Fatalf("History: %v", err)
	}
	if !strings.Contains(out.String(), r.ID) || !strings.Contains(out.String(), "write") {
		t.Errorf("history = %q", out.String())
	}
}

func TestHistory_LedgerDisabled(t *testing.T) {
	cfg := testConfig(t.TempDir())
	if err := History(context.Background(), 5, WithConfig(cfg), WithStderr(io.Discard)); err == nil {
		t.Error("expected error without ledger path")
	}
}

func TestDailyChecker_UsesCurrentDate(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "post.md", "---\ntitle: Post\n---\n")

	now := testNow
	cfg := testConfig(dir)
	app := newApplication([]Option{WithConfig(cfg), WithStderr(io.Discard), WithClock(func() time.Time { return now })})
	_, logger, _ := app.setup()
	_, checker, err := app.checker(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("checker: %v", err)
	}

	out, err := checker.Check(context.Background(), "post.md")
	if err != nil || out.After.Date.String() != "2024-06-15" {
		t.Fatalf("first check = %+v err = %v", out, err)
	}
	now = now.Add(48 * time.Hour)
	out, err = checker.Check(context.Background(), "post.md")
	if err != nil || out.After.Date.String() != "2024-06-17" {
		t.Fatalf("second check = %+v err = %v", out, err)
	}
}
