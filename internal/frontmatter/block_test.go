package frontmatter

import (
	"errors"
	"strings"
	"testing"

	"github.com/starford/chrono/internal/caldate"
)

func mustParse(t *testing.T, meta string) *Block {
	t.Helper()
	b, err := Parse(meta)
	if err != nil {
		t.Fatalf("Parse(%q): %v", meta, err)
	}
	return b
}

func mustRender(t *testing.T, b *Block) string {
	t.Helper()
	out, err := b.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	return out
}

func TestParse_Malformed(t *testing.T) {
	for _, meta := range []string{
		"\n: invalid: yaml: {{{\n",
		"\n- a\n- b\n",
		"\njust a string\n",
	} {
		if _, err := Parse(meta); !errors.Is(err, ErrMalformedFrontmatter) {
			t.Errorf("Parse(%q) err = %v, want ErrMalformedFrontmatter", meta, err)
		}
	}
}

func TestParse_Empty(t *testing.T) {
	b := mustParse(t, "\n")
	if len(b.Keys()) != 0 {
		t.Errorf("keys = %v, want none", b.Keys())
	}
	b.SetDate("date", caldate.New(2002, 1, 1))
	if got := mustRender(t, b); got != "\ndate: 2002-01-01\n" {
		t.Errorf("render = %q", got)
	}
}

func TestNodeDate(t *testing.T) {
	b := mustParse(t, "\n"+strings.Join([]string{
		"plain: 2002-01-01",
		"stamp: 2002-01-02T10:30:00Z",
		"offset: 2002-01-03T23:30:00-05:00",
		"spaced: 2002-01-04 08:00:00",
		`quoted: "2002-01-05"`,
		"word: yesterday",
		"number: 20020101",
		"empty:",
		"list: [2002-01-01]",
	}, "\n")+"\n")

	dates := map[string]caldate.Date{
		"plain":  caldate.New(2002, 1, 1),
		"stamp":  caldate.New(2002, 1, 2),
		"offset": caldate.New(2002, 1, 3),
		"spaced": caldate.New(2002, 1, 4),
	}
	for key, want := range dates {
		got, ok := NodeDate(b.Lookup(key))
		if !ok {
			t.Errorf("%s: not a date", key)
			continue
		}
		if got != want {
			t.Errorf("%s = %s, want %s", key, got, want)
		}
	}
	for _, key := range []string{"quoted", "word", "number", "empty", "list", "missing"} {
		if _, ok := NodeDate(b.Lookup(key)); ok {
			t.Errorf("%s: should not be a date", key)
		}
	}
}

func TestSetDate_ReplacesAndAppends(t *testing.T) {
	b := mustParse(t, "\ntitle: Hello\ndate: 2001-01-01\ntags:\n  - go\n")
	b.SetDate("date", caldate.New(2002, 1, 1))
	b.SetDate("updated", caldate.New(2024, 6, 15))

	want := "\ntitle: Hello\ndate: 2002-01-01\ntags:\n  - go\nupdated: 2024-06-15\n"
	if got := mustRender(t, b); got != want {
		t.Errorf("render = %q, want %q", got, want)
	}
}

func TestSetDate_ReplacesNonDate(t *testing.T) {
	b := mustParse(t, "\ndate: \"not a date\"\n")
	b.SetDate("date", caldate.New(2002, 1, 1))
	if got := mustRender(t, b); got != "\ndate: 2002-01-01\n" {
		t.Errorf("render = %q", got)
	}
}

func TestSetDate_KeepsSameDay(t *testing.T) {
	b := mustParse(t, "\ndate: 2002-01-01T10:30:00Z\n")
	b.SetDate("date", caldate.New(2002, 1, 1))
	if got := mustRender(t, b); got != "\ndate: 2002-01-01T10:30:00Z\n" {
		t.Errorf("render = %q", got)
	}
}

func TestDelete(t *testing.T) {
	b := mustParse(t, "\ntitle: Hello\nupdated: 2002-01-01\nauthor: me\n")
	if !b.Delete("updated") {
		t.Fatal("Delete should report the key was present")
	}
	if b.Delete("updated") {
		t.Error("second Delete should report absence")
	}
	if got := mustRender(t, b); got != "\ntitle: Hello\nauthor: me\n" {
		t.Errorf("render = %q", got)
	}
	if got := b.Keys(); len(got) != 2 || got[0] != "title" || got[1] != "author" {
		t.Errorf("keys = %v", got)
	}
}

func TestRender_KeepsComments(t *testing.T) {
	b := mustParse(t, "\ntitle: Hello # the title\ndate: 2001-01-01\n")
	b.SetDate("date", caldate.New(2002, 1, 1))
	got := mustRender(t, b)
	if !strings.Contains(got, "# the title") {
		t.Errorf("comment lost: %q", got)
	}
}

func TestRender_KeepsCRLF(t *testing.T) {
	b := mustParse(t, "\r\ntitle: Hello\r\n")
	b.SetDate("date", caldate.New(2002, 1, 1))
	if got := mustRender(t, b); got != "\r\ntitle: Hello\r\ndate: 2002-01-01\r\n" {
		t.Errorf("render = %q", got)
	}
}
