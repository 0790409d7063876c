// Package frontmatter splits Markdown documents into their YAML front matter
// and body, and edits date keys in the front matter without disturbing the rest.
package frontmatter

import (
	"errors"
	"regexp"
	"strings"
)

// Marker opens and closes the front matter block.
const Marker = "---"

var (
	// ErrNoFrontmatter is returned when a document does not start with a
	// complete front matter block.
	ErrNoFrontmatter = errors.New("frontmatter: no front matter block found")
	// ErrMalformedFrontmatter is returned when the block is not a YAML mapping.
	ErrMalformedFrontmatter = errors.New("frontmatter: malformed front matter")
)

// blockRe matches, after optional leading whitespace, an opening marker, the
// metadata text (starting with its line break), a closing marker at the start
// of a line and the body after the closing marker line.
//
//	group 1: metadata text, group 2: body
var blockRe = regexp.MustCompile(
	`\A[[:space:]]*---(\r?\n(?s:.*?)\r?\n|\r?\n)---[[:space:]]*(?:\z|\r?\n((?s:.*))\z)`,
)

// Split returns the metadata text and body of a document.
func Split(text string) (meta, body string, err error) {
	m := blockRe.FindStringSubmatchIndex(text)
	if m == nil {
		return "", "", ErrNoFrontmatter
	}
	meta = text[m[2]:m[3]]
	if m[4] >= 0 {
		body = text[m[4]:m[5]]
	}
	return meta, body, nil
}

// Join is the inverse of Split. A blank line separates the closing marker
// from a non-empty body.
func Join(meta, body string) []byte {
	var sb strings.Builder
	sb.Grow(len(meta) + len(body) + 2*len(Marker) + 2)
	sb.WriteString(Marker)
	sb.WriteString(meta)
	sb.WriteString(Marker)
	sb.WriteString("\n")
	if body != "" {
		sb.WriteString("\n")
	}
	sb.WriteString(body)
	return []byte(sb.String())
}
