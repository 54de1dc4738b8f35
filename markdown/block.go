package markdown

import (
	"strings"

	"github.com/fwojciec/parley"
)

type lineKind int

const (
	lineText lineKind = iota
	lineBlank
	lineBullet
	lineFence
)

// line is one classified source line. For bullets, text is the item content
// after the marker. For fences, ticks is the backtick count and info the
// text following it.
type line struct {
	kind  lineKind
	raw   string
	text  string
	ticks int
	info  string
}

func tokenizeLines(text string) []line {
	raw := strings.Split(text, "\n")
	lines := make([]line, len(raw))
	for i, s := range raw {
		lines[i] = classify(s)
	}
	return lines
}

func classify(s string) line {
	if strings.TrimSpace(s) == "" {
		return line{kind: lineBlank, raw: s}
	}
	trimmed := strings.TrimLeft(s, " \t")
	if ticks := countLeading(trimmed, '`'); ticks >= 3 {
		info := strings.TrimSpace(trimmed[ticks:])
		if !strings.Contains(info, "`") {
			return line{kind: lineFence, raw: s, ticks: ticks, info: info}
		}
	}
	if len(trimmed) >= 2 && (trimmed[0] == '-' || trimmed[0] == '*') && (trimmed[1] == ' ' || trimmed[1] == '\t') {
		return line{kind: lineBullet, raw: s, text: strings.TrimLeft(trimmed[2:], " \t")}
	}
	return line{kind: lineText, raw: s, text: s}
}

func countLeading(s string, c byte) int {
	n := 0
	for n < len(s) && s[n] == c {
		n++
	}
	return n
}

// closesFence reports whether l closes a fence opened with ticks backticks.
// A closer carries no info string, so a closing line that keeps growing
// ("```" then "```x") reopens the fence until the line is a closer again.
func (l line) closesFence(ticks int) bool {
	return l.kind == lineFence && l.ticks >= ticks && l.info == ""
}

// parseBlocks groups classified lines into display nodes. Blank lines end
// the current block; switching between bullet and non-bullet lines also
// ends it. An unclosed fence ends parsing: nothing from the fence onward is
// emitted.
func parseBlocks(lines []line) []parley.DisplayNode {
	var (
		nodes []parley.DisplayNode
		para  []string
		items [][]parley.Span
	)
	flush := func() {
		if len(para) > 0 {
			nodes = append(nodes, parley.Paragraph{Spans: parseInline(strings.Join(para, "\n"))})
			para = nil
		}
		if len(items) > 0 {
			nodes = append(nodes, parley.List{Items: items})
			items = nil
		}
	}

	for i := 0; i < len(lines); i++ {
		l := lines[i]
		switch l.kind {
		case lineBlank:
			flush()
		case lineFence:
			flush()
			end := -1
			for j := i + 1; j < len(lines); j++ {
				if lines[j].closesFence(l.ticks) {
					end = j
					break
				}
			}
			if end < 0 {
				return nodes
			}
			nodes = append(nodes, codeBlock(l.info, lines[i+1:end]))
			i = end
		case lineBullet:
			if len(para) > 0 {
				flush()
			}
			items = append(items, parseInline(l.text))
		default:
			if len(items) > 0 {
				flush()
			}
			para = append(para, l.text)
		}
	}
	flush()
	return nodes
}

func codeBlock(info string, body []line) parley.CodeBlock {
	if len(body) > 0 && body[0].kind == lineBlank {
		body = body[1:]
	}
	if len(body) > 0 && body[len(body)-1].kind == lineBlank {
		body = body[:len(body)-1]
	}
	raw := make([]string, len(body))
	for i, l := range body {
		raw[i] = l.raw
	}
	lang, _, _ := strings.Cut(info, " ")
	return parley.CodeBlock{Language: lang, Code: strings.Join(raw, "\n")}
}
