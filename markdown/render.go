package markdown

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/parley"
)

const minItemWidth = 10

type ansiRenderer struct {
	bold   lipgloss.Style
	italic lipgloss.Style
	accent lipgloss.Style
	muted  lipgloss.Style
	code   lipgloss.Style
}

func newRenderer(theme parley.Theme) *ansiRenderer {
	return &ansiRenderer{
		bold:   lipgloss.NewStyle().Bold(true),
		italic: lipgloss.NewStyle().Italic(true),
		accent: lipgloss.NewStyle().Foreground(ansiColor(theme.Accent)).Bold(true),
		muted:  lipgloss.NewStyle().Foreground(ansiColor(theme.Muted)).Faint(true),
		code:   lipgloss.NewStyle().Foreground(ansiColor(theme.Code)),
	}
}

func ansiColor(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}

func (r *ansiRenderer) render(nodes []parley.DisplayNode, width int) string {
	var buf bytes.Buffer
	for i, node := range nodes {
		if i > 0 {
			buf.WriteString("\n")
		}
		r.renderNode(node, width, &buf)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func (r *ansiRenderer) renderNode(node parley.DisplayNode, width int, buf *bytes.Buffer) {
	switch n := node.(type) {
	case parley.Paragraph:
		buf.WriteString(wrap(r.spans(n.Spans), width))
		buf.WriteString("\n")

	case parley.List:
		for _, item := range n.Items {
			r.writeListItem(buf, "- ", r.spans(item), width)
		}

	case parley.CodeBlock:
		if n.Language != "" {
			buf.WriteString(r.accent.Render(n.Language))
			buf.WriteString("\n")
		}
		gutter := r.muted.Render("│") + " "
		for _, line := range strings.Split(n.Code, "\n") {
			buf.WriteString(gutter + r.code.Render(line))
			buf.WriteString("\n")
		}
	}
}

// writeListItem writes a list item with continuation lines indented under
// the item text.
func (r *ansiRenderer) writeListItem(buf *bytes.Buffer, marker, content string, width int) {
	itemWidth := width - len(marker)
	if width > 0 && itemWidth < minItemWidth {
		itemWidth = minItemWidth
	}
	lines := strings.Split(wrap(content, itemWidth), "\n")
	continuation := strings.Repeat(" ", len(marker))
	for i, line := range lines {
		if i == 0 {
			buf.WriteString(r.accent.Render(strings.TrimRight(marker, " ")) + " " + line + "\n")
		} else {
			buf.WriteString(continuation + line + "\n")
		}
	}
}

func (r *ansiRenderer) spans(spans []parley.Span) string {
	var b strings.Builder
	for _, s := range spans {
		switch s := s.(type) {
		case parley.Bold:
			b.WriteString(r.bold.Render(s.Text))
		case parley.Italic:
			b.WriteString(r.italic.Render(s.Text))
		default:
			b.WriteString(s.Value())
		}
	}
	return b.String()
}

// wrap word-wraps s to width. A non-positive width disables wrapping.
func wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return lipgloss.NewStyle().Width(width).Render(s)
}
