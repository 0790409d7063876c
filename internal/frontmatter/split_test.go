package frontmatter

import (
	"errors"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantMeta string
		wantBody string
	}{
		{
			name:     "meta and body",
			input:    "---\ntitle: Hello\n---\n# Hello\nBody text.\n",
			wantMeta: "\ntitle: Hello\n",
			wantBody: "# Hello\nBody text.\n",
		},
		{
			name:     "blank line before body is dropped",
			input:    "---\ntitle: Hello\n---\n\nBody",
			wantMeta: "\ntitle: Hello\n",
			wantBody: "Body",
		},
		{
			name:     "no body",
			input:    "---\ntitle: Hello\n---\n",
			wantMeta: "\ntitle: Hello\n",
			wantBody: "",
		},
		{
			name:     "no trailing newline",
			input:    "---\ntitle: Hello\n---",
			wantMeta: "\ntitle: Hello\n",
			wantBody: "",
		},
		{
			name:     "empty block",
			input:    "---\n---\nBody",
			wantMeta: "\n",
			wantBody: "Body",
		},
		{
			name:     "leading whitespace",
			input:    "\n  \n---\ntitle: Hello\n---\nBody",
			wantMeta: "\ntitle: Hello\n",
			wantBody: "Body",
		},
		{
			name:     "marker inside a value does not close",
			input:    "---\ntitle: a---b\n---\nBody",
			wantMeta: "\ntitle: a---b\n",
			wantBody: "Body",
		},
		{
			name:     "indented body keeps its indentation",
			input:    "---\na: 1\n---\n\n    code\n",
			wantMeta: "\na: 1\n",
			wantBody: "    code\n",
		},
		{
			name:     "crlf",
			input:    "---\r\ntitle: Hello\r\n---\r\nBody\r\n",
			wantMeta: "\r\ntitle: Hello\r\n",
			wantBody: "Body\r\n",
		},
		{
			name:     "later markers belong to the body",
			input:    "---\na: 1\n---\nBody\n---\nmore\n",
			wantMeta: "\na: 1\n",
			wantBody: "Body\n---\nmore\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, body, err := Split(tt.input)
			if err != nil {
				t.Fatalf("Split: %v", err)
			}
			if meta != tt.wantMeta {
				t.Errorf("meta = %q, want %q", meta, tt.wantMeta)
			}
			if body != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
		})
	}
}

func TestSplit_NoFrontmatter(t *testing.T) {
	cases := []string{
		"",
		"# Just a heading\nSome text.\n",
		"---\ntitle: Broken\n# No closing marker\n",
		"text before\n---\na: 1\n---\n",
		"+++\ntitle = \"toml\"\n+++\n",
	}
	for _, input := range cases {
		if _, _, err := Split(input); !errors.Is(err, ErrNoFrontmatter) {
			t.Errorf("Split(%q) err = %v, want ErrNoFrontmatter", input, err)
		}
	}
}

func TestJoin(t *testing.T) {
	if got := string(Join("\ntitle: a\n", "Body\n")); got != "---\ntitle: a\n---\n\nBody\n" {
		t.Errorf("Join with body = %q", got)
	}
	if got := string(Join("\ntitle: a\n", "")); got != "---\ntitle: a\n---\n" {
		t.Errorf("Join without body = %q", got)
	}
}

func TestSplitJoinRoundTrip(t *testing.T) {
	for _, doc := range []string{
		"---\ntitle: a\ndate: 2002-01-01\n---\n\nBody\n",
		"---\ntitle: a\n---\n",
		"---\n# comment\nlist:\n  - x\n---\n\n# Heading\n\ntext\n",
	} {
		meta, body, err := Split(doc)
		if err != nil {
			t.Fatalf("Split(%q): %v", doc, err)
		}
		if got := string(Join(meta, body)); got != doc {
			t.Errorf("round trip = %q, want %q", got, doc)
		}
	}
}
