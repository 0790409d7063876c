package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/starford/chrono/internal/apperr"
)

// Counts are the per-status totals of a run.
type Counts struct {
	Changed    int `json:"changed"`
	NotChanged int `json:"not_changed"`
	Skipped    int `json:"skipped"`
	Errors     int `json:"errors"`
}

// Run is a row in the runs table.
type Run struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Today      string     `json:"today"`
	Root       string     `json:"root"`
	CheckOnly  bool       `json:"check_only"`
	Counts
}

// FileRecord is the outcome of one file within a run.
type FileRecord struct {
	Path          string `json:"path"`
	Status        string `json:"status"`
	DateBefore    string `json:"date_before,omitempty"`
	UpdatedBefore string `json:"updated_before,omitempty"`
	DateAfter     string `json:"date_after,omitempty"`
	UpdatedAfter  string `json:"updated_after,omitempty"`
	Checksum      string `json:"checksum,omitempty"`
	Error         string `json:"error,omitempty"`
}

// BeginRun inserts a new run and returns its ID. A UUID is generated when
// r.ID is empty.
func (db *DB) BeginRun(r Run) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	_, err := db.conn.Exec(`
		INSERT INTO runs (id, started_at, today, root, check_only)
		VALUES (?, ?, ?, ?, ?)
	`, r.ID, r.StartedAt.UTC(), r.Today, r.Root, r.CheckOnly)
	if err != nil {
		return "", fmt.Errorf("ledger: begin run: %w", err)
	}
	return r.ID, nil
}

// RecordFile stores the outcome of one file. Recording the same path twice in
// a run keeps the last outcome.
func (db *DB) RecordFile(runID string, f FileRecord) error {
	_, err := db.conn.Exec(`
		INSERT INTO run_files (run_id, path, status, date_before, updated_before, date_after, updated_after, checksum, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, path) DO UPDATE SET
			status         = excluded.status,
			date_before    = excluded.date_before,
			updated_before = excluded.updated_before,
			date_after     = excluded.date_after,
			updated_after  = excluded.updated_after,
			checksum       = excluded.checksum,
			error          = excluded.error
	`, runID, f.Path, f.Status, f.DateBefore, f.UpdatedBefore, f.DateAfter, f.UpdatedAfter, f.Checksum, f.Error)
	if err != nil {
		return fmt.Errorf("ledger: record file: %w", err)
	}
	return nil
}

// FinishRun stores the final counts of a run.
func (db *DB) FinishRun(runID string, c Counts, finishedAt time.Time) error {
	res, err := db.conn.Exec(`
		UPDATE runs
		SET finished_at = ?, changed = ?, not_changed = ?, skipped = ?, errors = ?
		WHERE id = ?
	`, finishedAt.UTC(), c.Changed, c.NotChanged, c.Skipped, c.Errors, runID)
	if err != nil {
		return fmt.Errorf("ledger: finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("ledger: finish run %s: %w", runID, apperr.ErrNotFound)
	}
	return nil
}

const runColumns = `id, started_at, finished_at, today, root, check_only, changed, not_changed, skipped, errors`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		r        Run
		finished sql.NullTime
	)
	if err := s.Scan(&r.ID, &r.StartedAt, &finished, &r.Today, &r.Root, &r.CheckOnly,
		&r.Changed, &r.NotChanged, &r.Skipped, &r.Errors); err != nil {
		return Run{}, err
	}
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return r, nil
}

// ListRuns returns the most recent runs first.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("ledger: scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRun returns a single run or apperr.ErrNotFound.
func (db *DB) GetRun(id string) (*Run, error) {
	r, err := scanRun(db.conn.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: get run: %w", err)
	}
	return &r, nil
}

// RunFiles returns the file outcomes of a run ordered by path.
func (db *DB) RunFiles(runID string) ([]FileRecord, error) {
	rows, err := db.conn.Query(`
		SELECT path, status, date_before, updated_before, date_after, updated_after, checksum, error
		FROM run_files
		WHERE run_id = ?
		ORDER BY path
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("ledger: run files: %w", err)
	}
	defer rows.Close()

	var out []FileRecord
	for rows.Next() {
		var f FileRecord
		if err := rows.Scan(&f.Path, &f.Status, &f.DateBefore, &f.UpdatedBefore, &f.DateAfter, &f.UpdatedAfter, &f.Checksum, &f.Error); err != nil {
			return nil, fmt.Errorf("ledger: scan file: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
