package extract

import (
	"math"
	"strings"

	"golang.org/x/net/html"
)

// Tags whose subtree never contributes readable text.
var skipTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"nav":      true,
	"header":   true,
	"footer":   true,
	"aside":    true,
	"form":     true,
	"iframe":   true,
	"svg":      true,
}

// Landmark tags that declare the main content region outright. When one
// is present the density scan is confined to it.
var landmarkTags = []string{"main", "article"}

// Candidate container tags for the density scan.
var candidateTags = map[string]bool{
	"div":     true,
	"section": true,
	"article": true,
	"main":    true,
	"td":      true,
	"body":    true,
}

// densestText returns the text of the highest-scoring content region of
// the document, or "" when nothing scores.
func densestText(root *html.Node) string {
	scope := findBody(root)
	if scope == nil {
		scope = root
	}
	for _, tag := range landmarkTags {
		if nodes := findAllByTag(scope, tag); len(nodes) > 0 {
			scope = nodes[0]
			break
		}
	}

	best := bestCandidate(scope)
	if best == nil {
		best = scope
	}
	return collectText(best)
}

// bestCandidate walks the scope and returns the candidate container
// with the highest content score, nil when none scores above zero.
func bestCandidate(scope *html.Node) *html.Node {
	var best *html.Node
	var bestScore float64
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skipTags[n.Data] {
				return
			}
			if candidateTags[n.Data] {
				if s := contentScore(n); s > bestScore {
					best, bestScore = n, s
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(scope)
	return best
}

// contentScore rates a container by how much of it is text rather than
// markup, discounted when most of that text sits inside links. Link
// farms (more than half the text inside <a>) score zero.
func contentScore(n *html.Node) float64 {
	textLen := len(collectText(n))
	if textLen == 0 {
		return 0
	}
	markup := countElements(n)
	if markup == 0 {
		markup = 1
	}
	linkLen := len(collectLinkText(n))
	linkDensity := float64(linkLen) / float64(textLen)
	if linkDensity > 0.5 {
		return 0
	}
	density := float64(textLen) / float64(markup)
	return density * logScale(textLen) * (1 - linkDensity)
}

// logScale damps raw text length so one giant wall of text does not
// drown out structure. Roughly log2 of len/MinTextLen, floored at 1.
func logScale(textLen int) float64 {
	v := float64(textLen) / float64(MinTextLen)
	if v < 2 {
		return 1
	}
	return math.Log2(v)
}

// countElements counts element nodes in the subtree, n included.
func countElements(n *html.Node) int {
	count := 0
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			count++
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return count
}

// collectText gathers the visible text of a subtree, skipping
// boilerplate tags, with single spaces between text nodes.
func collectText(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(t)
			}
		case html.ElementNode:
			if skipTags[n.Data] {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// collectLinkText gathers only the text that sits inside <a> elements.
func collectLinkText(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node, inLink bool)
	walk = func(n *html.Node, inLink bool) {
		switch n.Type {
		case html.TextNode:
			if inLink {
				sb.WriteString(strings.TrimSpace(n.Data))
			}
		case html.ElementNode:
			if skipTags[n.Data] {
				return
			}
			if n.Data == "a" {
				inLink = true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inLink)
		}
	}
	walk(n, false)
	return sb.String()
}

// findBody returns the <body> element, nil when the document has none.
func findBody(root *html.Node) *html.Node {
	nodes := findAllByTag(root, "body")
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// findAllByTag returns every element with the given tag name, in
// document order.
func findAllByTag(root *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}
