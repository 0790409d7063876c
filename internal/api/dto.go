package api

import (
	"github.com/starford/chrono/internal/document"
	"github.com/starford/chrono/internal/ledger"
	"github.com/starford/chrono/internal/processing"
)

// CheckRequest is the request body for a dry-run check.
type CheckRequest struct {
	Path string `json:"path" example:"blog/hello.md" validate:"required"`
}

// DateFields shows the `date` and `updated` keys of a document. Each value is
// a date, "absent" or "invalid".
type DateFields struct {
	Date    string `json:"date" example:"2002-01-01"`
	Updated string `json:"updated" example:"absent"`
}

func dateFields(f document.Fields) DateFields {
	return DateFields{Date: f.Date.String(), Updated: f.Updated.String()}
}

// CheckResponse describes what a run would do to one file.
type CheckResponse struct {
	Path     string      `json:"path" example:"blog/hello.md" validate:"required"`
	Status   string      `json:"status" example:"changed" validate:"required"`
	LastEdit string      `json:"last_edit,omitempty" example:"2002-01-01"`
	Before   *DateFields `json:"before,omitempty"`
	After    *DateFields `json:"after,omitempty"`
	Warnings []string    `json:"warnings"`
	Error    string      `json:"error,omitempty"`
}

// NewCheckResponse converts a processing outcome.
func NewCheckResponse(o processing.Outcome) CheckResponse {
	resp := CheckResponse{
		Path:     o.Path,
		Status:   string(o.Status),
		Warnings: o.Warnings,
	}
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}
	if o.LastEdit.Valid {
		resp.LastEdit = o.LastEdit.String()
	}
	switch o.Status {
	case processing.StatusChanged, processing.StatusUnchanged:
		before, after := dateFields(o.Before), dateFields(o.After)
		resp.Before, resp.After = &before, &after
	case processing.StatusError:
		resp.Error = o.Err.Error()
	}
	return resp
}

// RunListResponse wraps run listings.
type RunListResponse struct {
	Runs []ledger.Run `json:"runs" validate:"required"`
}

// RunFilesResponse wraps the file outcomes of a run.
type RunFilesResponse struct {
	Files []ledger.FileRecord `json:"files" validate:"required"`
}
