package processing

import "fmt"

// Stats counts file outcomes of a run.
type Stats struct {
	Changed    int
	NotChanged int
	Skipped    int
	Errors     int
}

// Add folds the outcome status s into the counters.
func (s *Stats) Add(status Status) {
	switch status {
	case StatusChanged:
		s.Changed++
	case StatusUnchanged:
		s.NotChanged++
	case StatusSkipped:
		s.Skipped++
	case StatusError:
		s.Errors++
	}
}

// Merge adds other's counters to s.
func (s *Stats) Merge(other Stats) {
	s.Changed += other.Changed
	s.NotChanged += other.NotChanged
	s.Skipped += other.Skipped
	s.Errors += other.Errors
}

// Total returns the number of files seen.
func (s Stats) Total() int {
	return s.Changed + s.NotChanged + s.Skipped + s.Errors
}

func (s Stats) String() string {
	return fmt.Sprintf("Changed: %d, Not Changed: %d, Skipped: %d, Errors: %d",
		s.Changed, s.NotChanged, s.Skipped, s.Errors)
}
