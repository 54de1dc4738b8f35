package markdown

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/fwojciec/parley"
)

// token is one inline unit: either literal text or a run of identical
// emphasis markers.
type token struct {
	text     string // literal text, or the raw markers of a delimiter run
	delim    byte   // '*' or '_' for delimiter runs, 0 for text
	canOpen  bool
	canClose bool
}

func (t token) isDelim() bool { return t.delim != 0 }

// key identifies which closers can match an opener.
func (t token) key() string { return t.text }

func isEscapable(c byte) bool {
	return c == '*' || c == '_' || c == '\\' || c == '`'
}

// tokenizeInline splits s into text runs, delimiter runs and escapes.
// Escaped characters become literal text.
func tokenizeInline(s string) []token {
	var (
		toks []token
		text strings.Builder
	)
	flushText := func() {
		if text.Len() > 0 {
			toks = append(toks, token{text: text.String()})
			text.Reset()
		}
	}

	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s) && isEscapable(s[i+1]):
			text.WriteByte(s[i+1])
			i += 2
		case c == '*' || c == '_':
			j := i
			for j < len(s) && s[j] == c {
				j++
			}
			flushText()
			toks = append(toks, delimiterRun(s, i, j))
			i = j
		default:
			text.WriteByte(c)
			i++
		}
	}
	flushText()
	return toks
}

// delimiterRun classifies the run s[start:end]. An opener must be followed by
// a non-space character and a closer preceded by one. Underscores inside a
// word neither open nor close. Runs longer than two markers are literal.
func delimiterRun(s string, start, end int) token {
	t := token{text: s[start:end], delim: s[start]}
	if end-start > 2 {
		return t
	}

	before, after := ' ', ' '
	if start > 0 {
		before, _ = utf8.DecodeLastRuneInString(s[:start])
	}
	if end < len(s) {
		after, _ = utf8.DecodeRuneInString(s[end:])
	}
	t.canOpen = !unicode.IsSpace(after)
	t.canClose = !unicode.IsSpace(before)

	if t.delim == '_' {
		if isWordRune(before) {
			t.canOpen = false
		}
		if isWordRune(after) {
			t.canClose = false
		}
	}
	return t
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// parseInline matches delimiter runs into spans. Each opener pairs with the
// nearest following closer of the same marker and length; everything between
// them is taken literally. The nearest closer for every position is
// precomputed in one right-to-left pass so matching stays linear.
func parseInline(s string) []parley.Span {
	toks := tokenizeInline(s)

	next := make([]int, len(toks))
	seen := make(map[string]int)
	for i := len(toks) - 1; i >= 0; i-- {
		next[i] = -1
		t := toks[i]
		if !t.isDelim() {
			continue
		}
		if j, ok := seen[t.key()]; ok {
			next[i] = j
		}
		if t.canClose {
			seen[t.key()] = i
		}
	}

	var spans []parley.Span
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.isDelim() && t.canOpen && next[i] > i+1 {
			end := next[i]
			var inner strings.Builder
			for _, it := range toks[i+1 : end] {
				inner.WriteString(it.text)
			}
			if len(t.text) == 2 {
				spans = appendSpan(spans, parley.Bold{Text: inner.String()})
			} else {
				spans = appendSpan(spans, parley.Italic{Text: inner.String()})
			}
			i = end
			continue
		}
		spans = appendSpan(spans, parley.Plain{Text: t.text})
	}
	return spans
}

// appendSpan appends s, merging it into a preceding Plain span.
func appendSpan(spans []parley.Span, s parley.Span) []parley.Span {
	p, ok := s.(parley.Plain)
	if !ok {
		return append(spans, s)
	}
	if p.Text == "" {
		return spans
	}
	if n := len(spans); n > 0 {
		if prev, ok := spans[n-1].(parley.Plain); ok {
			spans[n-1] = parley.Plain{Text: prev.Text + p.Text}
			return spans
		}
	}
	return append(spans, s)
}
