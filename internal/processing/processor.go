// Package processing walks the content tree and reconciles the date keys of
// every document in it.
package processing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/starford/chrono/internal/caldate"
	"github.com/starford/chrono/internal/checksum"
	"github.com/starford/chrono/internal/document"
	"github.com/starford/chrono/internal/reconcile"
	"github.com/starford/chrono/internal/storage"
)

// History returns the date of the last recorded edit of a file.
type History interface {
	LastEditDate(ctx context.Context, path string) (caldate.NullDate, error)
}

// Status is the result class of one file.
type Status string

const (
	StatusChanged   Status = "changed"
	StatusUnchanged Status = "unchanged"
	StatusSkipped   Status = "skipped"
	StatusError     Status = "error"
)

// Outcome is what happened to one file.
type Outcome struct {
	Path     string           `json:"path"`
	Status   Status           `json:"status"`
	Before   document.Fields  `json:"-"`
	After    document.Fields  `json:"-"`
	LastEdit caldate.NullDate `json:"-"`
	Warnings []string         `json:"warnings,omitempty"`
	Checksum string           `json:"checksum,omitempty"`
	Err      error            `json:"-"`
}

// Observer receives every outcome of a run. Calls are serialised.
type Observer func(Outcome)

// Options configures a Processor.
type Options struct {
	Rules SkipRules
	// Workers bounds how many files are processed at once. Values below 1 mean 1.
	Workers int
	// CheckOnly reports files that would change without writing them.
	CheckOnly bool
	// Today is the date every document of the run is judged against.
	Today caldate.Date
}

// Processor reconciles documents of one content tree.
type Processor struct {
	store    storage.Provider
	history  History
	logger   *slog.Logger
	opts     Options
	observer Observer

	mu    sync.Mutex
	stats Stats
}

// New creates a Processor. observer may be nil.
func New(store storage.Provider, history History, logger *slog.Logger, opts Options, observer Observer) *Processor {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		store:    store,
		history:  history,
		logger:   logger,
		opts:     opts,
		observer: observer,
	}
}

// Today returns the date the run judges documents against.
func (p *Processor) Today() caldate.Date { return p.opts.Today }

// Run processes every file under the content root.
func (p *Processor) Run(ctx context.Context) (Stats, error) {
	files, err := p.store.List("")
	if err != nil {
		return Stats{}, fmt.Errorf("processing: %w", err)
	}
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return p.RunPaths(ctx, paths)
}

// RunPaths processes the given files (relative to the content root). Errors
// in one file are logged and counted; only a future last edit date, which
// means the history itself cannot be trusted, stops the run.
func (p *Processor) RunPaths(ctx context.Context, paths []string) (Stats, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)

	for _, rel := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			out, err := p.processFile(gctx, rel, !p.opts.CheckOnly)
			if err != nil {
				return err
			}
			p.record(out)
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return p.Stats(), err
}

// Stats returns the counters accumulated so far.
func (p *Processor) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Check reports what a run would do to a single file without writing it.
func (p *Processor) Check(ctx context.Context, rel string) (Outcome, error) {
	return p.processFile(ctx, rel, false)
}

func (p *Processor) record(out Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.Add(out.Status)
	switch out.Status {
	case StatusError:
		p.logger.Error("processing failed", slog.String("path", out.Path), slog.String("error", out.Err.Error()))
	case StatusChanged:
		if p.opts.CheckOnly {
			p.logger.Info("would change", slog.String("path", out.Path),
				slog.String("date", out.After.Date.String()), slog.String("updated", out.After.Updated.String()))
		} else {
			p.logger.Debug("changed", slog.String("path", out.Path))
		}
	case StatusUnchanged:
		p.logger.Debug("not changed", slog.String("path", out.Path))
	case StatusSkipped:
		p.logger.Debug("skipped", slog.String("path", out.Path))
	}
	if p.observer != nil {
		p.observer(out)
	}
}

// processFile handles one file. The returned error is fatal to the run;
// everything else is reported through the Outcome.
func (p *Processor) processFile(ctx context.Context, rel string, write bool) (Outcome, error) {
	out := Outcome{Path: rel}
	if p.opts.Rules.ShouldSkip(rel) {
		out.Status = StatusSkipped
		return out, nil
	}

	fail := func(err error) (Outcome, error) {
		out.Status = StatusError
		out.Err = err
		return out, nil
	}

	data, err := p.store.Read(rel)
	if err != nil {
		return fail(err)
	}
	doc, err := document.Load(rel, data)
	if err != nil {
		return fail(err)
	}

	abs, err := p.store.Abs(rel)
	if err != nil {
		return fail(err)
	}
	lastEdit, err := p.history.LastEditDate(ctx, abs)
	if err != nil {
		return fail(fmt.Errorf("get last edit date: %w", err))
	}
	out.LastEdit = lastEdit
	p.logger.Debug("last edit date", slog.String("path", rel), slog.String("date", lastEdit.String()))

	res, err := doc.UpdateDates(lastEdit, p.opts.Today, p.logger)
	if errors.Is(err, reconcile.ErrFutureLastEdit) {
		return out, err
	}
	if err != nil {
		return fail(fmt.Errorf("update front matter: %w", err))
	}
	out.Before, out.After = doc.Before(), doc.After()
	for _, w := range res.Warnings {
		out.Warnings = append(out.Warnings, w.Message)
	}

	if !doc.Changed() {
		out.Status = StatusUnchanged
		out.Checksum = checksum.Sum(data)
		return out, nil
	}

	rendered, err := doc.Render()
	if err != nil {
		return fail(err)
	}
	out.Status = StatusChanged
	if !write {
		out.Checksum = checksum.Sum(data)
		return out, nil
	}
	if err := p.store.Write(rel, rendered); err != nil {
		return fail(fmt.Errorf("write file: %w", err))
	}
	if err := doc.MarkWritten(); err != nil {
		return fail(err)
	}
	out.Checksum = checksum.Sum(rendered)
	return out, nil
}
