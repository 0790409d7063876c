// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/chrono/internal/apperr"
	"github.com/starford/chrono/internal/caldate"
	"github.com/starford/chrono/internal/ledger"
	"github.com/starford/chrono/internal/processing"
	"github.com/starford/chrono/internal/storage"
	"github.com/starford/chrono/internal/vcs"
)

var (
	// ErrPendingChanges is returned by a check-only run that found files to change.
	ErrPendingChanges = errors.New("some files would change")
	// ErrFileErrors is returned when at least one file could not be processed.
	ErrFileErrors = errors.New("some files could not be processed")
)

// content is the resolved content root. When the configured root is a single
// file, dir is its parent and files holds its name.
type content struct {
	dir   string
	files []string
	store *storage.FS
}

func resolveContent(root string) (*content, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve content root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("content root: %w", err)
	}
	c := &content{dir: abs}
	if !info.IsDir() {
		c.dir = filepath.Dir(abs)
		c.files = []string{filepath.Base(abs)}
	}
	c.store, err = storage.NewFS(c.dir)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	return c, nil
}

func newLogger(cfg ApplicationConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == LogFormatText {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func (a *application) setup() (*Config, *slog.Logger, error) {
	if a.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	logger := newLogger(a.config.App, a.stderr)
	slog.SetDefault(logger)
	return a.config, logger, nil
}

// history picks the git collaborator for dir. Without commits there is no
// history to ask, so every file is treated as never committed.
func history(ctx context.Context, git *vcs.Git, dir string, logger *slog.Logger) processing.History {
	state := git.Probe(ctx, dir)
	if state != vcs.RepoReady {
		logger.Info("no git history, files are treated as never committed",
			slog.String("root", dir), slog.String("repo", state.String()))
		return vcs.NoHistory{}
	}
	return git
}

// Run reconciles the dates of every document under the content root and
// prints the run summary.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	cfg, logger, err := app.setup()
	if err != nil {
		return err
	}

	logger.Debug("Configuration loaded",
		slog.String("root", cfg.Content.Root),
		slog.Int("workers", cfg.Run.Workers),
		slog.Bool("check_only", cfg.Run.CheckOnly),
		slog.String("ledger", cfg.Ledger.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	c, err := resolveContent(cfg.Content.Root)
	if err != nil {
		return err
	}
	git := vcs.New(cfg.VCS.Binary, cfg.VCS.Timeout)

	if !cfg.Run.CheckOnly {
		if err := git.CheckClean(ctx, c.dir, cfg.VCS.CleanOptions()); err != nil {
			return err
		}
		if !cfg.Run.Unattended {
			if err := app.confirm(c.dir); err != nil {
				return err
			}
		}
	}

	today := caldate.Today(app.now)
	rec, err := openRecorder(cfg.Ledger, ledger.Run{
		StartedAt: app.now(),
		Today:     today.String(),
		Root:      c.dir,
		CheckOnly: cfg.Run.CheckOnly,
	}, logger)
	if err != nil {
		return err
	}
	defer rec.close()

	p := processing.New(c.store, history(ctx, git, c.dir, logger), logger, processing.Options{
		Rules:     cfg.Content.SkipRules(),
		Workers:   cfg.Run.Workers,
		CheckOnly: cfg.Run.CheckOnly,
		Today:     today,
	}, rec.observe)

	var stats processing.Stats
	if c.files != nil {
		stats, err = p.RunPaths(ctx, c.files)
	} else {
		stats, err = p.Run(ctx)
	}
	rec.finish(stats, app.now())

	fmt.Fprintf(app.stdout, "File Stats: %s\n", stats)

	switch {
	case err != nil:
		return fmt.Errorf("run aborted: %w", err)
	case stats.Errors > 0:
		return fmt.Errorf("%w: %d", ErrFileErrors, stats.Errors)
	case cfg.Run.CheckOnly && stats.Changed > 0:
		return fmt.Errorf("%w: %d", ErrPendingChanges, stats.Changed)
	}
	return nil
}

// confirm asks on the terminal before any file is touched.
func (a *application) confirm(root string) error {
	fmt.Fprintf(a.stdout, "This updates the front matter of the documents in %s.\nContinue? [y/N] ", root)
	answer, err := bufio.NewReader(a.stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return nil
	default:
		return apperr.ErrAborted
	}
}

// recorder mirrors run outcomes into the ledger. Ledger failures are logged
// and never fail the run.
type recorder struct {
	db     *ledger.DB
	runID  string
	logger *slog.Logger
}

func openRecorder(cfg LedgerConfig, run ledger.Run, logger *slog.Logger) (*recorder, error) {
	rec := &recorder{logger: logger}
	if !cfg.Enabled() {
		return rec, nil
	}
	db, err := ledger.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("init ledger: %w", err)
	}
	id, err := db.BeginRun(run)
	if err != nil {
		db.Close()
		return nil, err
	}
	rec.db, rec.runID = db, id
	logger.Debug("run recorded", slog.String("run_id", id))
	return rec, nil
}

func (r *recorder) observe(out processing.Outcome) {
	if r.db == nil || out.Status == processing.StatusSkipped {
		return
	}
	if err := r.db.RecordFile(r.runID, fileRecord(out)); err != nil {
		r.logger.Warn("ledger: record file failed", slog.String("path", out.Path), slog.String("error", err.Error()))
	}
}

func (r *recorder) finish(s processing.Stats, at time.Time) {
	if r.db == nil {
		return
	}
	counts := ledger.Counts{Changed: s.Changed, NotChanged: s.NotChanged, Skipped: s.Skipped, Errors: s.Errors}
	if err := r.db.FinishRun(r.runID, counts, at); err != nil {
		r.logger.Warn("ledger: finish run failed", slog.String("error", err.Error()))
	}
}

func (r *recorder) close() {
	if r.db != nil {
		r.db.Close()
	}
}

func fileRecord(o processing.Outcome) ledger.FileRecord {
	f := ledger.FileRecord{
		Path:     o.Path,
		Status:   string(o.Status),
		Checksum: o.Checksum,
	}
	switch o.Status {
	case processing.StatusChanged, processing.StatusUnchanged:
		f.DateBefore, f.UpdatedBefore = o.Before.Date.String(), o.Before.Updated.String()
		f.DateAfter, f.UpdatedAfter = o.After.Date.String(), o.After.Updated.String()
	case processing.StatusError:
		f.Error = o.Err.Error()
	}
	return f
}
