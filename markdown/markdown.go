// Package markdown derives a small markdown-lite display structure from
// streamed assistant text and renders it to ANSI-styled terminal output
// using lipgloss.
//
// Parsing is total and recomputed from the full text on every call, so a
// marker that is still unterminated renders as plain text until its closer
// arrives, and a code fence is excluded until it is closed.
package markdown

import (
	"strings"

	"github.com/fwojciec/parley"
)

// Parse derives display nodes from text. It never panics; if the structural
// pass fails, the whole text is returned as a single plain paragraph.
func Parse(text string) (nodes []parley.DisplayNode) {
	if text == "" {
		return nil
	}
	defer func() {
		if recover() != nil {
			nodes = []parley.DisplayNode{parley.Paragraph{Spans: []parley.Span{parley.Plain{Text: text}}}}
		}
	}()
	return parseBlocks(tokenizeLines(text))
}

// Render parses text and returns ANSI-styled terminal output.
// Paragraphs and list items are word-wrapped to width. Code blocks are
// rendered at full width without reflow.
func Render(text string, width int, theme parley.Theme) string {
	nodes := Parse(text)
	if len(nodes) == 0 {
		return ""
	}
	r := newRenderer(theme)
	return r.render(nodes, width)
}

// PlainText flattens nodes back to unstyled text, one block per paragraph.
func PlainText(nodes []parley.DisplayNode) string {
	var b strings.Builder
	for i, n := range nodes {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch n := n.(type) {
		case parley.Paragraph:
			writeSpans(&b, n.Spans)
		case parley.List:
			for j, item := range n.Items {
				if j > 0 {
					b.WriteString("\n")
				}
				b.WriteString("- ")
				writeSpans(&b, item)
			}
		case parley.CodeBlock:
			b.WriteString(n.Code)
		}
	}
	return b.String()
}

func writeSpans(b *strings.Builder, spans []parley.Span) {
	for _, s := range spans {
		b.WriteString(s.Value())
	}
}
