package api

import (
	"errors"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/chrono/internal/apperr"
	"github.com/starford/chrono/internal/ledger"
)

// Handler holds API route handlers.
type Handler struct {
	runs    Ledger
	checker Checker
}

// NewHandler creates a new Handler.
func NewHandler(runs Ledger, checker Checker) *Handler {
	return &Handler{runs: runs, checker: checker}
}

// ListRuns handles GET /api/runs.
//
//	@Summary		List recent runs, newest first
//	@Tags			runs
//	@Produce		json
//	@Param			limit	query		int	false	"Max runs"
//	@Success		200		{object}	RunListResponse
//	@Security		BearerAuth
//	@Router			/runs [get]
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.runs.ListRuns(limit)
	if err != nil {
		slog.Error("list runs failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if runs == nil {
		runs = []ledger.Run{}
	}
	writeJSON(w, http.StatusOK, RunListResponse{Runs: runs})
}

// GetRun handles GET /api/runs/{id}.
//
//	@Summary		Get a single run
//	@Tags			runs
//	@Produce		json
//	@Param			id	path		string	true	"Run ID"
//	@Success		200	{object}	ledger.Run
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/runs/{id} [get]
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := h.runs.GetRun(id)
	if err != nil {
		h.lookupFailed(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// RunFiles handles GET /api/runs/{id}/files.
//
//	@Summary		List the file outcomes of a run
//	@Tags			runs
//	@Produce		json
//	@Param			id	path		string	true	"Run ID"
//	@Success		200	{object}	RunFilesResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/runs/{id}/files [get]
func (h *Handler) RunFiles(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.runs.GetRun(id); err != nil {
		h.lookupFailed(w, id, err)
		return
	}
	files, err := h.runs.RunFiles(id)
	if err != nil {
		h.lookupFailed(w, id, err)
		return
	}
	if files == nil {
		files = []ledger.FileRecord{}
	}
	writeJSON(w, http.StatusOK, RunFilesResponse{Files: files})
}

func (h *Handler) lookupFailed(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, apperr.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	slog.Error("get run failed", slog.String("id", id), slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
}

// Check handles POST /api/check.
//
//	@Summary		Report what a run would do to one file without writing it
//	@Tags			check
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CheckRequest	true	"File to check"
//	@Success		200		{object}	CheckResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/check [post]
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	rel, ok := cleanRel(req.Path)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("path must be relative to the content root"))
		return
	}

	out, err := h.checker.Check(r.Context(), rel)
	if err != nil {
		// Only a last edit date after today is fatal to a check.
		slog.Error("check failed", slog.String("path", rel), slog.String("error", err.Error()))
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, NewCheckResponse(out))
}

func cleanRel(p string) (string, bool) {
	if p == "" || strings.HasPrefix(p, "/") {
		return "", false
	}
	p = path.Clean(p)
	if p == "." || p == ".." || strings.HasPrefix(p, "../") {
		return "", false
	}
	return p, true
}
