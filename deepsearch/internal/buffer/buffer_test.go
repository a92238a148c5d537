package buffer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// WHAT: an archived HTML page lands as one .md file with frontmatter
// and a Markdown body, and no .tmp file is left behind.
// WHY: archive consumers list *.md and parse frontmatter; stray temp
// files or raw HTML would break them.
func TestWriteHTML(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	meta := Metadata{
		Query:      "go concurrency",
		SourceURL:  "https://example.com/post",
		Title:      "Channels: a primer",
		CapturedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	path, err := w.WriteHTML(context.Background(), meta,
		"<h1>Channels</h1><p>Use <em>channels</em> to share memory.</p>", "fallback")
	if err != nil {
		t.Fatalf("WriteHTML: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "---\n") {
		t.Error("missing frontmatter")
	}
	if !strings.Contains(content, "source_url: https://example.com/post") {
		t.Errorf("frontmatter missing source url:\n%s", content)
	}
	if !strings.Contains(content, `title: "Channels: a primer"`) {
		t.Errorf("title not YAML-escaped:\n%s", content)
	}
	if !strings.Contains(content, "# Channels") {
		t.Errorf("body not converted to markdown:\n%s", content)
	}

	entries, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if len(entries) != 0 {
		t.Errorf("leftover tmp files: %v", entries)
	}
}

// WHAT: empty or unconvertible HTML falls back to the provided text.
// WHY: a page that defeats the converter should still be archived with
// whatever text extraction recovered.
func TestWriteHTMLFallback(t *testing.T) {
	w := NewWriter(t.TempDir())
	path, err := w.WriteHTML(context.Background(), Metadata{
		SourceURL:  "https://example.com/",
		CapturedAt: time.Now(),
	}, "", "extracted text only")
	if err != nil {
		t.Fatalf("WriteHTML: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "extracted text only") {
		t.Errorf("fallback body missing:\n%s", data)
	}
}

// WHAT: generated file names are distinct and start with a UTC
// timestamp.
// WHY: the archive directory doubles as a chronological log.
func TestWriteNames(t *testing.T) {
	w := NewWriter(t.TempDir())
	p1, err := w.Write(context.Background(), Metadata{CapturedAt: time.Now()}, "a")
	if err != nil {
		t.Fatal(err)
	}
	p2, err := w.Write(context.Background(), Metadata{CapturedAt: time.Now()}, "b")
	if err != nil {
		t.Fatal(err)
	}
	if p1 == p2 {
		t.Fatalf("duplicate archive name %s", p1)
	}
	name := filepath.Base(p1)
	if len(name) < 16 || name[8] != 'T' || name[15] != 'Z' {
		t.Errorf("name %q lacks timestamp prefix", name)
	}
}
