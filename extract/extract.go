// Package extract pulls a title and readable text out of fetched pages.
//
// HTML pages go through a density pass that locates the most text-dense
// region of the document, then a fallback chain (meta description,
// og:description, first paragraph) covers pages where the density pass
// finds nothing usable. PDF documents go through a separate content
// stream pass. All outputs are plain text clipped to fixed budgets.
package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// Budgets for the text fields of a Content. A density extraction shorter
// than MinTextLen after whitespace collapse is treated as unusable.
const (
	MinTextLen      = 40
	MaxTextChars    = 500
	MaxSnippetChars = 300
)

// Content is the readable material recovered from one document.
type Content struct {
	// Title is the document title, empty when the page has none.
	Title string
	// Snippet is a short description: meta description, og:description,
	// or the first paragraph when the density pass also came up empty.
	Snippet string
	// Text is the body text from the densest region of the page,
	// empty when no region passed the minimum length.
	Text string
}

// Options tunes the extraction budgets. The zero value picks the
// package defaults.
type Options struct {
	MinTextLen      int
	MaxTextChars    int
	MaxSnippetChars int
}

func (o *Options) defaults() {
	if o.MinTextLen <= 0 {
		o.MinTextLen = MinTextLen
	}
	if o.MaxTextChars <= 0 {
		o.MaxTextChars = MaxTextChars
	}
	if o.MaxSnippetChars <= 0 {
		o.MaxSnippetChars = MaxSnippetChars
	}
}

// sanitizer strips every tag. Extraction output must be plain text even
// when a page nests markup inside meta content or paragraph nodes.
var sanitizer = bluemonday.StrictPolicy()

// FromHTML extracts content from an HTML document.
func FromHTML(htmlSrc string, opts Options) (Content, error) {
	opts.defaults()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlSrc))
	if err != nil {
		return Content{}, err
	}

	var c Content
	c.Title = CollapseWhitespace(doc.Find("title").First().Text())

	if root := doc.Get(0); root != nil {
		text := CollapseWhitespace(densestText(root))
		if utf8.RuneCountInString(text) > opts.MinTextLen {
			c.Text = Truncate(text, opts.MaxTextChars)
		}
	}

	c.Snippet = Truncate(metaDescription(doc), opts.MaxSnippetChars)
	if c.Snippet == "" && c.Text == "" {
		c.Snippet = Truncate(firstParagraph(doc), opts.MaxSnippetChars)
	}
	return c, nil
}

// metaDescription returns the page description from meta tags:
// meta[name=description] first, then meta[property=og:description].
func metaDescription(doc *goquery.Document) string {
	if v, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		if s := cleanInline(v); s != "" {
			return s
		}
	}
	if v, ok := doc.Find(`meta[property="og:description"]`).First().Attr("content"); ok {
		if s := cleanInline(v); s != "" {
			return s
		}
	}
	return ""
}

// firstParagraph returns the text of the first non-empty <p> element.
func firstParagraph(doc *goquery.Document) string {
	var out string
	doc.Find("p").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if s := cleanInline(sel.Text()); s != "" {
			out = s
			return false
		}
		return true
	})
	return out
}

// cleanInline strips any residual markup and collapses whitespace.
func cleanInline(s string) string {
	return CollapseWhitespace(sanitizer.Sanitize(s))
}

// CollapseWhitespace folds every run of whitespace into a single space
// and trims the ends.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate clips s to at most n runes, never splitting a rune.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
