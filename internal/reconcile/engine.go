// Package reconcile computes the `date` and `updated` front matter values of a
// document from its current values, its last recorded edit and today's date.
//
// Rules:
//   - `date` is the original publish date: the existing value if usable, else the
//     last recorded edit, else today. It is never in the future.
//   - `updated` is only present when the document changed on a later day than
//     `date`. It does not have to match the edit day exactly; it marks the page
//     as revised and stays put until a newer edit moves it.
//
// Reconcile is pure: "today" is an input, nothing is read from the clock.
package reconcile

import (
	"errors"
	"fmt"

	"github.com/starford/chrono/internal/caldate"
)

// ErrFutureLastEdit is returned when the version history reports an edit after
// today. The history and the clock disagree, so no document can be judged.
var ErrFutureLastEdit = errors.New("reconcile: last edit date is in the future")

// WarningKind identifies a sanitization step that altered an input.
type WarningKind int

const (
	WarnDateNotDate WarningKind = iota + 1
	WarnUpdatedNotDate
	WarnUpdatedBeforeDate
	WarnDateInFuture
	WarnUpdatedInFuture
)

// Warning describes an input that was sanitized before reconciliation.
type Warning struct {
	Kind    WarningKind
	Message string
}

func (w Warning) String() string { return w.Message }

// Input holds everything the engine needs for one document.
type Input struct {
	LastEdit caldate.NullDate
	Date     Field
	Updated  Field
	Today    caldate.Date
}

// Result is the reconciled pair plus whether it differs from the input.
type Result struct {
	Date     caldate.Date
	Updated  caldate.NullDate
	Changed  bool
	Warnings []Warning
}

// DateChanged reports whether the `date` key must be rewritten.
func (r Result) DateChanged(original Field) bool {
	return original.Kind != KindDate || !original.Date.Equal(r.Date)
}

// UpdatedChanged reports whether the `updated` key must be rewritten or removed.
func (r Result) UpdatedChanged(original Field) bool {
	switch original.Kind {
	case KindAbsent:
		return r.Updated.Valid
	case KindDate:
		return !r.Updated.Valid || !original.Date.Equal(r.Updated.Date)
	default:
		return true
	}
}

// Reconcile applies sanitization and the decision table to in.
func Reconcile(in Input) (Result, error) {
	today := in.Today
	last := in.LastEdit
	if last.Valid && last.Date.After(today) {
		return Result{}, fmt.Errorf("%w: %s is after %s", ErrFutureLastEdit, last.Date, today)
	}

	date, updated, warnings := sanitize(in.Date, in.Updated, today)

	res := Result{Warnings: warnings}
	res.Date, res.Updated = decide(last, date, updated, today)
	res.Changed = res.DateChanged(in.Date) || res.UpdatedChanged(in.Updated)
	return res, nil
}

// sanitize turns the raw fields into working optionals. Each step is applied
// independently, in order.
func sanitize(dateField, updatedField Field, today caldate.Date) (date, updated caldate.NullDate, warnings []Warning) {
	warn := func(kind WarningKind, format string, args ...any) {
		warnings = append(warnings, Warning{Kind: kind, Message: fmt.Sprintf(format, args...)})
	}

	switch dateField.Kind {
	case KindDate:
		date = caldate.Some(dateField.Date)
	case KindInvalid:
		warn(WarnDateNotDate, "non date value found for `date`, ignoring it")
	}

	// An unreadable `updated` still means somebody touched it; keep a marker.
	switch updatedField.Kind {
	case KindDate:
		updated = caldate.Some(updatedField.Date)
	case KindInvalid:
		warn(WarnUpdatedNotDate, "non date value found for `updated`, using today")
		updated = caldate.Some(today)
	}

	if date.Valid && updated.Valid && updated.Date.Before(date.Date) {
		warn(WarnUpdatedBeforeDate, "`updated` (%s) is before `date` (%s), using today", updated.Date, date.Date)
		updated = caldate.Some(today)
	}

	if date.Valid && date.Date.After(today) {
		warn(WarnDateInFuture, "`date` (%s) is in the future, ignoring it", date.Date)
		date = caldate.None
	}

	if updated.Valid && updated.Date.After(today) {
		warn(WarnUpdatedInFuture, "`updated` (%s) is in the future, using today", updated.Date)
		updated = caldate.Some(today)
	}

	return date, updated, warnings
}

// decide is the decision table over (last, date, updated).
func decide(last, date, updated caldate.NullDate, today caldate.Date) (caldate.Date, caldate.NullDate) {
	markIfNot := func(d caldate.Date) caldate.NullDate {
		if d.Equal(today) {
			return caldate.None
		}
		return caldate.Some(today)
	}

	switch {
	case !last.Valid && !date.Valid:
		return today, caldate.None

	case !last.Valid:
		return date.Date, markIfNot(date.Date)

	case !date.Valid:
		return last.Date, markIfNot(last.Date)

	case !updated.Valid:
		if last.Date.After(date.Date) {
			return date.Date, caldate.Some(today)
		}
		return date.Date, caldate.None

	default:
		switch {
		case date.Date.Equal(today):
			return date.Date, caldate.None
		case !last.Date.After(updated.Date):
			return date.Date, updated
		default:
			return date.Date, caldate.Some(today)
		}
	}
}
