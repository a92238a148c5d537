// Package buffer archives followed pages as .md files for later
// reading or indexing. Each file carries YAML frontmatter with the
// source URL and capture time, followed by the page converted to
// Markdown. Files are written atomically (write .tmp then rename) so
// consumers never see a partial file.
package buffer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/hazyhaar/fouille/idgen"
)

// Metadata describes one archived page.
type Metadata struct {
	ID         string
	Query      string
	SourceURL  string
	Title      string
	CapturedAt time.Time
}

// Writer deposits .md files into the archive directory.
type Writer struct {
	dir       string
	newID     func() string
	converter *converter.Converter
}

// NewWriter creates a Writer targeting dir. The directory is created
// on first write.
func NewWriter(dir string) *Writer {
	return &Writer{
		dir:   dir,
		newID: idgen.Timestamped(idgen.NanoID(8)),
		converter: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// WriteHTML converts an HTML page to Markdown and archives it. When
// conversion yields nothing, fallback text is archived instead.
// Returns the path of the written file.
func (w *Writer) WriteHTML(ctx context.Context, meta Metadata, html, fallback string) (string, error) {
	body := fallback
	if html != "" {
		if md, err := w.converter.ConvertString(html, converter.WithDomain(meta.SourceURL)); err == nil && strings.TrimSpace(md) != "" {
			body = strings.TrimSpace(md)
		}
	}
	return w.Write(ctx, meta, body)
}

// Write archives pre-rendered text under frontmatter.
func (w *Writer) Write(_ context.Context, meta Metadata, text string) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("buffer: mkdir %s: %w", w.dir, err)
	}
	if meta.ID == "" {
		meta.ID = w.newID()
	}

	target := filepath.Join(w.dir, meta.ID+".md")
	tmp := target + ".tmp"

	content := formatFrontmatter(meta) + text + "\n"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("buffer: write tmp: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("buffer: rename: %w", err)
	}
	return target, nil
}

func formatFrontmatter(m Metadata) string {
	return "---\n" +
		"id: " + m.ID + "\n" +
		"query: " + yamlEscape(m.Query) + "\n" +
		"source_url: " + m.SourceURL + "\n" +
		"title: " + yamlEscape(m.Title) + "\n" +
		"captured_at: " + m.CapturedAt.UTC().Format(time.RFC3339) + "\n" +
		"---\n\n"
}

// yamlEscape quotes a string when it contains characters YAML would
// otherwise interpret.
func yamlEscape(s string) string {
	if strings.ContainsAny(s, ":#'\"{}[],&*?|-<>=!%@`\n") {
		return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
	}
	return s
}
