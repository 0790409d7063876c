package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/chrono/internal/ledger"
	"github.com/starford/chrono/internal/processing"
)

// Ledger is the read side of the run ledger.
type Ledger interface {
	ListRuns(limit int) ([]ledger.Run, error)
	GetRun(id string) (*ledger.Run, error)
	RunFiles(runID string) ([]ledger.FileRecord, error)
}

// Checker dry-runs the reconciliation of one file relative to the content root.
type Checker interface {
	Check(ctx context.Context, rel string) (processing.Outcome, error)
}

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// The /runs routes are only mounted when runs is non-nil.
func NewRouter(runs Ledger, checker Checker, authEnabled bool, token string) chi.Router {
	h := NewHandler(runs, checker)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	if runs != nil {
		r.Get("/runs", h.ListRuns)
		r.Get("/runs/{id}", h.GetRun)
		r.Get("/runs/{id}/files", h.RunFiles)
	}
	r.Post("/check", h.Check)

	return r
}

// Health answers liveness probes.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
