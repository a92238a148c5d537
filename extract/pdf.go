package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrPDFNoText reports a PDF whose content streams carried no
// extractable text, typically a scanned document.
var ErrPDFNoText = errors.New("extract: no text content in pdf")

// FromPDF extracts content from a PDF document. The title is the first
// non-empty line of the first page with text; the body text is pages
// joined in order, subject to the same budgets as HTML extraction.
func FromPDF(data []byte, opts Options) (Content, error) {
	opts.defaults()

	conf := model.NewDefaultConfiguration()
	pctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return Content{}, fmt.Errorf("extract: pdfcpu read: %w", err)
	}

	var c Content
	var all strings.Builder
	for pageNr := 1; pageNr <= pctx.PageCount; pageNr++ {
		pageText := pageStreamText(pctx, pageNr)
		if pageText == "" {
			continue
		}
		if c.Title == "" {
			c.Title = Truncate(firstLine(pageText), 200)
		}
		if all.Len() > 0 {
			all.WriteByte(' ')
		}
		all.WriteString(pageText)
	}
	if all.Len() == 0 {
		return Content{}, ErrPDFNoText
	}

	text := CollapseWhitespace(all.String())
	c.Text = Truncate(text, opts.MaxTextChars)
	c.Snippet = Truncate(text, opts.MaxSnippetChars)
	return c, nil
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// pageStreamText pulls the content stream of one page and parses its
// text-showing operators.
func pageStreamText(pctx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(pctx, pageNr)
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return streamText(data)
}

// pdfLiteralRe matches PDF string literals: (text)
var pdfLiteralRe = regexp.MustCompile(`\(([^)]*)\)`)

// streamText walks a PDF content stream line by line and collects the
// arguments of the text-showing operators Tj, TJ and '. Positioning
// operators (Td, TD, T*) become whitespace so words do not run together.
func streamText(data []byte) string {
	var sb strings.Builder
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		switch {
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			for _, m := range pdfLiteralRe.FindAllSubmatch(line, -1) {
				sb.WriteString(decodePDFString(m[1]))
			}
		case bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")):
			for _, m := range pdfLiteralRe.FindAllSubmatch(line, -1) {
				sb.WriteByte('\n')
				sb.WriteString(decodePDFString(m[1]))
			}
		case bytes.HasSuffix(line, []byte("Td")), bytes.HasSuffix(line, []byte("TD")):
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
		case bytes.Equal(line, []byte("T*")):
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// decodePDFString resolves the escape sequences of a PDF string
// literal, including octal escapes like \040.
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '\\', '(', ')':
			sb.WriteByte(raw[i])
		default:
			if raw[i] >= '0' && raw[i] <= '7' {
				val := int(raw[i] - '0')
				for j := 0; j < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; j++ {
					i++
					val = val*8 + int(raw[i]-'0')
				}
				sb.WriteByte(byte(val))
			} else {
				sb.WriteByte(raw[i])
			}
		}
	}
	return sb.String()
}
