package reconcile

import "github.com/starford/chrono/internal/caldate"

// FieldKind tags the variant held by a Field.
type FieldKind int

const (
	// KindAbsent means the key is not in the front matter.
	KindAbsent FieldKind = iota
	// KindInvalid means the key is present but does not hold a date.
	KindInvalid
	// KindDate means the key holds a calendar date.
	KindDate
)

func (k FieldKind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindInvalid:
		return "invalid"
	case KindDate:
		return "date"
	default:
		return "unknown"
	}
}

// Field is the value of one front matter key as seen by the engine.
type Field struct {
	Kind FieldKind
	Date caldate.Date
}

// Absent returns a Field for a missing key.
func Absent() Field { return Field{Kind: KindAbsent} }

// Invalid returns a Field for a key holding something other than a date.
func Invalid() Field { return Field{Kind: KindInvalid} }

// DateField returns a Field holding d.
func DateField(d caldate.Date) Field { return Field{Kind: KindDate, Date: d} }

// FromNull converts an optional date into an Absent or Date field.
func FromNull(n caldate.NullDate) Field {
	if !n.Valid {
		return Absent()
	}
	return DateField(n.Date)
}

func (f Field) String() string {
	if f.Kind == KindDate {
		return f.Date.String()
	}
	return f.Kind.String()
}
