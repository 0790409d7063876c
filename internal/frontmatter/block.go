package frontmatter

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/chrono/internal/caldate"
)

const timestampTag = "!!timestamp"

// Block is a parsed front matter mapping. Keys that are not touched keep
// their order and comments when the block is written back.
type Block struct {
	doc       *yaml.Node
	lineBreak string
}

// Parse parses metadata text as returned by Split.
func Parse(meta string) (*Block, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(meta), &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedFrontmatter, err)
	}

	if doc.Kind == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode}
	}
	if len(doc.Content) == 0 {
		doc.Content = append(doc.Content, &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"})
	}
	if doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: expected a mapping of keys", ErrMalformedFrontmatter)
	}

	lb := "\n"
	if strings.HasPrefix(meta, "\r\n") {
		lb = "\r\n"
	}
	return &Block{doc: &doc, lineBreak: lb}, nil
}

func (b *Block) mapping() *yaml.Node { return b.doc.Content[0] }

// index returns the position of key's key node in the mapping, or -1.
func (b *Block) index(key string) int {
	m := b.mapping()
	for i := 0; i+1 < len(m.Content); i += 2 {
		if k := m.Content[i]; k.Kind == yaml.ScalarNode && k.Value == key {
			return i
		}
	}
	return -1
}

// Lookup returns the value node for key, or nil when the key is absent.
func (b *Block) Lookup(key string) *yaml.Node {
	i := b.index(key)
	if i < 0 {
		return nil
	}
	return b.mapping().Content[i+1]
}

// Keys returns the top-level keys in document order.
func (b *Block) Keys() []string {
	m := b.mapping()
	keys := make([]string, 0, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		keys = append(keys, m.Content[i].Value)
	}
	return keys
}

// NodeDate returns the calendar date held by a YAML timestamp scalar.
// Quoted strings, numbers, nulls and collections are not dates.
func NodeDate(n *yaml.Node) (caldate.Date, bool) {
	if n == nil || n.Kind != yaml.ScalarNode || n.ShortTag() != timestampTag {
		return caldate.Date{}, false
	}
	var t time.Time
	if err := n.Decode(&t); err != nil {
		return caldate.Date{}, false
	}
	return caldate.FromTime(t), true
}

// SetDate stores d under key. An existing timestamp for the same calendar day
// is left as written, time and offset included.
func (b *Block) SetDate(key string, d caldate.Date) {
	if n := b.Lookup(key); n != nil {
		if cur, ok := NodeDate(n); ok && cur.Equal(d) {
			return
		}
		*n = yaml.Node{
			Kind:        yaml.ScalarNode,
			Tag:         timestampTag,
			Value:       d.String(),
			HeadComment: n.HeadComment,
			LineComment: n.LineComment,
			FootComment: n.FootComment,
		}
		return
	}

	m := b.mapping()
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: timestampTag, Value: d.String()},
	)
}

// Delete removes key. It reports whether the key was present.
func (b *Block) Delete(key string) bool {
	i := b.index(key)
	if i < 0 {
		return false
	}
	m := b.mapping()
	m.Content = append(m.Content[:i], m.Content[i+2:]...)
	return true
}

// Render returns the block as metadata text suitable for Join, keeping the
// line break style of the parsed text.
func (b *Block) Render() (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(b.doc); err != nil {
		return "", fmt.Errorf("frontmatter: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("frontmatter: encode: %w", err)
	}

	out := "\n" + buf.String()
	if b.lineBreak != "\n" {
		out = strings.ReplaceAll(out, "\n", b.lineBreak)
	}
	return out, nil
}
