// Package document holds one Markdown document while its date keys are reconciled.
package document

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/chrono/internal/caldate"
	"github.com/starford/chrono/internal/frontmatter"
	"github.com/starford/chrono/internal/reconcile"
)

// Front matter keys maintained by the document.
const (
	KeyDate    = "date"
	KeyUpdated = "updated"
)

// ErrNotChanged is returned when rendering a document whose dates were already
// correct. Callers must check Changed first; writing identical bytes is a bug.
var ErrNotChanged = errors.New("document: no change detected, write aborted")

// State is the lifecycle position of a Document.
type State int

const (
	StateLoaded State = iota
	StateUnchanged
	StateChangeComputed
	StateWritten
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateUnchanged:
		return "unchanged"
	case StateChangeComputed:
		return "change_computed"
	case StateWritten:
		return "written"
	default:
		return "unknown"
	}
}

// Fields is the pair of date keys as found in (or written to) the front matter.
type Fields struct {
	Date    reconcile.Field
	Updated reconcile.Field
}

// Document is the front matter and body of one file.
type Document struct {
	path   string
	meta   string
	body   string
	state  State
	before Fields
	after  Fields
}

// Load splits data into front matter and body. path is only used for messages.
func Load(path string, data []byte) (*Document, error) {
	meta, body, err := frontmatter.Split(string(data))
	if err != nil {
		return nil, err
	}
	return &Document{path: path, meta: meta, body: body}, nil
}

// Path returns the path the document was loaded from.
func (d *Document) Path() string { return d.path }

// State returns the lifecycle state.
func (d *Document) State() State { return d.state }

// Changed reports whether the front matter was rewritten and must be saved.
func (d *Document) Changed() bool { return d.state == StateChangeComputed }

// Before returns the date keys as they were read.
func (d *Document) Before() Fields { return d.before }

// After returns the date keys after reconciliation.
func (d *Document) After() Fields { return d.after }

// Meta returns the current metadata text.
func (d *Document) Meta() string { return d.meta }

// Body returns the body text.
func (d *Document) Body() string { return d.body }

// UpdateDates reconciles `date` and `updated` against lastEdit and today and
// rewrites the front matter when they differ. It may be called once.
func (d *Document) UpdateDates(lastEdit caldate.NullDate, today caldate.Date, logger *slog.Logger) (reconcile.Result, error) {
	if d.state != StateLoaded {
		return reconcile.Result{}, fmt.Errorf("document: dates already reconciled (state %s): %s", d.state, d.path)
	}

	block, err := frontmatter.Parse(d.meta)
	if err != nil {
		return reconcile.Result{}, err
	}

	d.before = Fields{
		Date:    fieldOf(block, KeyDate),
		Updated: fieldOf(block, KeyUpdated),
	}

	res, err := reconcile.Reconcile(reconcile.Input{
		LastEdit: lastEdit,
		Date:     d.before.Date,
		Updated:  d.before.Updated,
		Today:    today,
	})
	if err != nil {
		return reconcile.Result{}, fmt.Errorf("%s: %w", d.path, err)
	}

	if logger != nil {
		for _, w := range res.Warnings {
			logger.Warn(w.Message, slog.String("path", d.path))
		}
	}

	d.after = Fields{Date: reconcile.DateField(res.Date), Updated: reconcile.FromNull(res.Updated)}
	if !res.Changed {
		d.state = StateUnchanged
		return res, nil
	}

	block.SetDate(KeyDate, res.Date)
	if res.Updated.Valid {
		block.SetDate(KeyUpdated, res.Updated.Date)
	} else {
		block.Delete(KeyUpdated)
	}
	meta, err := block.Render()
	if err != nil {
		return reconcile.Result{}, err
	}
	d.meta = meta
	d.state = StateChangeComputed
	return res, nil
}

// Render returns the bytes to write. It fails with ErrNotChanged unless the
// front matter was rewritten.
func (d *Document) Render() ([]byte, error) {
	if d.state != StateChangeComputed {
		return nil, fmt.Errorf("%w: %s", ErrNotChanged, d.path)
	}
	return frontmatter.Join(d.meta, d.body), nil
}

// MarkWritten records that the rendered bytes reached the disk.
func (d *Document) MarkWritten() error {
	if d.state != StateChangeComputed {
		return fmt.Errorf("%w: %s", ErrNotChanged, d.path)
	}
	d.state = StateWritten
	return nil
}

func fieldOf(b *frontmatter.Block, key string) reconcile.Field {
	n := b.Lookup(key)
	if n == nil {
		return reconcile.Absent()
	}
	if date, ok := frontmatter.NodeDate(n); ok {
		return reconcile.DateField(date)
	}
	return reconcile.Invalid()
}
