package processing

import (
	"path"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// SkipRules decides which files of the content tree are documents.
type SkipRules struct {
	// Extensions lists the processed file extensions, dot included.
	Extensions []string
	// SkipNames lists base names that are never processed (section indexes).
	SkipNames []string
	// Ignore lists doublestar globs matched against slash separated relative paths.
	Ignore []string
}

// DefaultSkipRules processes Markdown files except section index pages.
func DefaultSkipRules() SkipRules {
	return SkipRules{
		Extensions: []string{".md"},
		SkipNames:  []string{"_index.md"},
	}
}

// ShouldSkip reports whether rel is not a document to process.
func (r SkipRules) ShouldSkip(rel string) bool {
	base := path.Base(rel)
	if !slices.Contains(r.Extensions, path.Ext(base)) {
		return true
	}
	if slices.Contains(r.SkipNames, base) {
		return true
	}
	for _, g := range r.Ignore {
		if g == "" {
			continue
		}
		ok, err := doublestar.Match(g, rel)
		if err == nil && ok {
			return true
		}
	}
	return false
}
