// Package watcher re-checks documents of the content tree as they change.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/chrono/internal/checksum"
	"github.com/starford/chrono/internal/processing"
)

// Debounce is how long a path has to stay quiet before it is checked.
const Debounce = 200 * time.Millisecond

// Checker dry-runs the reconciliation of one file relative to the root.
type Checker interface {
	Check(ctx context.Context, rel string) (processing.Outcome, error)
}

// Callback receives the outcome of every check that did not skip the file.
// A file whose content did not change since its last report is not reported again.
type Callback func(processing.Outcome)

// Watch starts an fsnotify watcher on root and checks created or written
// files until ctx is cancelled. New directories are added to the watch list;
// .git directories are never watched.
func Watch(ctx context.Context, root string, checker Checker, logger *slog.Logger, cb Callback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", root))

	seen := checksum.NewTracker()
	pending := map[string]struct{}{}
	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func(rel string) {
		pending[rel] = struct{}{}
		if timer == nil {
			timer = time.NewTimer(Debounce)
			timerCh = timer.C
		} else {
			timer.Reset(Debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			clear(pending)
			slices.Sort(paths)
			for _, rel := range paths {
				check(ctx, checker, rel, seen, logger, cb)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil || inGitDir(rel) {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
						continue
					}
					logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
					scheduleDir(root, ev.Name, schedule)
					continue
				}
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				schedule(filepath.ToSlash(rel))
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				seen.Forget(filepath.ToSlash(rel))
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func check(ctx context.Context, checker Checker, rel string, seen *checksum.Tracker, logger *slog.Logger, cb Callback) {
	out, err := checker.Check(ctx, rel)
	if err != nil {
		logger.Error("watcher: check failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if out.Checksum != "" && !seen.Observe(rel, out.Checksum) {
		return
	}
	switch out.Status {
	case processing.StatusSkipped:
		return
	case processing.StatusError:
		logger.Warn("watcher: check failed", slog.String("path", rel), slog.String("error", out.Err.Error()))
	default:
		logger.Debug("watcher: checked", slog.String("path", rel), slog.String("status", string(out.Status)))
	}
	if cb != nil {
		cb(out)
	}
}

// scheduleDir queues the files already present in a newly created directory.
func scheduleDir(root, dir string, schedule func(string)) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if rel, relErr := filepath.Rel(root, path); relErr == nil {
			schedule(filepath.ToSlash(rel))
		}
		return nil
	})
}

func inGitDir(rel string) bool {
	return slices.Contains(strings.Split(filepath.ToSlash(rel), "/"), ".git")
}

// addDirsRecursive adds root and all its subdirectories except .git to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == ".git" {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
