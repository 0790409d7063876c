package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/chrono/internal/api"
	"github.com/starford/chrono/internal/caldate"
	"github.com/starford/chrono/internal/ledger"
	"github.com/starford/chrono/internal/mcpserver"
	"github.com/starford/chrono/internal/processing"
	"github.com/starford/chrono/internal/storage"
	"github.com/starford/chrono/internal/vcs"
	"github.com/starford/chrono/internal/watcher"
)

// dailyChecker dry-runs single files against the current date. Long running
// modes outlive a day, so Today is read on every check.
type dailyChecker struct {
	store   storage.Provider
	history processing.History
	rules   processing.SkipRules
	logger  *slog.Logger
	now     func() time.Time
}

func (d *dailyChecker) Check(ctx context.Context, rel string) (processing.Outcome, error) {
	p := processing.New(d.store, d.history, d.logger, processing.Options{
		Rules: d.rules,
		Today: caldate.Today(d.now),
	}, nil)
	return p.Check(ctx, rel)
}

func (a *application) checker(ctx context.Context, cfg *Config, logger *slog.Logger) (*storage.FS, *dailyChecker, error) {
	c, err := resolveContent(cfg.Content.Root)
	if err != nil {
		return nil, nil, err
	}
	if c.files != nil {
		return nil, nil, fmt.Errorf("content root must be a directory: %s", cfg.Content.Root)
	}
	git := vcs.New(cfg.VCS.Binary, cfg.VCS.Timeout)
	return c.store, &dailyChecker{
		store:   c.store,
		history: history(ctx, git, c.dir, logger),
		rules:   cfg.Content.SkipRules(),
		logger:  logger,
		now:     a.now,
	}, nil
}

func openLedger(cfg LedgerConfig) (*ledger.DB, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	db, err := ledger.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("init ledger: %w", err)
	}
	return db, nil
}

// waitForSignal blocks until SIGINT, SIGTERM or ctx is done.
func waitForSignal(ctx context.Context, logger *slog.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, initiating shutdown")
	}
}

// Serve starts the HTTP API over the run ledger together with a watcher that
// logs dry-run outcomes as documents change.
func Serve(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	cfg, logger, err := app.setup()
	if err != nil {
		return err
	}

	store, checker, err := app.checker(ctx, cfg, logger)
	if err != nil {
		return err
	}
	db, err := openLedger(cfg.Ledger)
	if err != nil {
		return err
	}
	var runs api.Ledger
	if db != nil {
		defer db.Close()
		runs = db
	} else {
		logger.Warn("ledger disabled, run history endpoints are not served")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", api.Health)
	r.Get("/health/ready", api.Health)

	r.Mount("/api", api.NewRouter(runs, checker, cfg.Auth.AuthEnabled(), cfg.Auth.Token))

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return watcher.Watch(gCtx, store.Root(), checker, logger, logOutcome(logger))
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		waitForSignal(gCtx, logger)
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

func logOutcome(logger *slog.Logger) watcher.Callback {
	return func(o processing.Outcome) {
		switch o.Status {
		case processing.StatusChanged:
			logger.Info("would change",
				slog.String("path", o.Path),
				slog.String("date", o.After.Date.String()),
				slog.String("updated", o.After.Updated.String()))
		case processing.StatusUnchanged:
			logger.Info("up to date", slog.String("path", o.Path))
		}
	}
}

// Watch logs dry-run outcomes as documents under the content root change.
func Watch(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	cfg, logger, err := app.setup()
	if err != nil {
		return err
	}
	store, checker, err := app.checker(ctx, cfg, logger)
	if err != nil {
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return watcher.Watch(gCtx, store.Root(), checker, logger, logOutcome(logger))
	})
	g.Go(func() error {
		waitForSignal(gCtx, logger)
		return context.Canceled
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// ServeMCP serves the MCP tools on stdin/stdout. Logs go to stderr only.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	cfg, logger, err := app.setup()
	if err != nil {
		return err
	}
	store, checker, err := app.checker(ctx, cfg, logger)
	if err != nil {
		return err
	}
	db, err := openLedger(cfg.Ledger)
	if err != nil {
		return err
	}
	var runs mcpserver.RunLister
	if db != nil {
		defer db.Close()
		runs = db
	}

	logger.Info("MCP server starting on stdio", slog.String("root", store.Root()))
	return mcpserver.New(store, cfg.Content.SkipRules(), checker, runs).ServeStdio()
}

// History prints the most recent runs recorded in the ledger.
func History(_ context.Context, limit int, opts ...Option) error {
	app := newApplication(opts)
	cfg, _, err := app.setup()
	if err != nil {
		return err
	}
	if !cfg.Ledger.Enabled() {
		return errors.New("history: ledger.path is not configured")
	}
	db, err := openLedger(cfg.Ledger)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.ListRuns(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(app.stdout, "no runs recorded")
		return nil
	}

	tw := tabwriter.NewWriter(app.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tTODAY\tMODE\tCHANGED\tNOT CHANGED\tSKIPPED\tERRORS\tROOT")
	for _, r := range runs {
		mode := "write"
		if r.CheckOnly {
			mode = "check"
		}
		if r.FinishedAt == nil {
			mode += " (unfinished)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Today, mode,
			r.Changed, r.NotChanged, r.Skipped, r.Errors, r.Root)
	}
	return tw.Flush()
}
