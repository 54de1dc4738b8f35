package markdown_test

import (
	"strings"
	"testing"

	"github.com/fwojciec/parley"
	"github.com/fwojciec/parley/markdown"
	"github.com/stretchr/testify/assert"
)

func para(spans ...parley.Span) parley.Paragraph {
	return parley.Paragraph{Spans: spans}
}

func plain(s string) parley.Plain { return parley.Plain{Text: s} }

func TestParse_Stability(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []parley.DisplayNode{para(plain("**bol"))}, markdown.Parse("**bol"))
	assert.Equal(t, []parley.DisplayNode{para(parley.Bold{Text: "bold"})}, markdown.Parse("**bold**"))
}

func TestParse_GrowingText(t *testing.T) {
	t.Parallel()

	// Every prefix of a streamed reply parses without panicking, and
	// unterminated markers never leak styling.
	full := "Here is **bold** and *it*:\n\n- one\n- two\n\n```go\nx := 1\n```\ndone"
	for i := 0; i <= len(full); i++ {
		nodes := markdown.Parse(full[:i])
		if i < len("Here is **bold") {
			for _, n := range nodes {
				p, ok := n.(parley.Paragraph)
				if !ok {
					continue
				}
				for _, s := range p.Spans {
					_, isPlain := s.(parley.Plain)
					assert.True(t, isPlain, "prefix %q", full[:i])
				}
			}
		}
	}
	assert.Equal(t, []parley.DisplayNode{
		para(plain("Here is "), parley.Bold{Text: "bold"}, plain(" and "), parley.Italic{Text: "it"}, plain(":")),
		parley.List{Items: [][]parley.Span{{plain("one")}, {plain("two")}}},
		parley.CodeBlock{Language: "go", Code: "x := 1"},
		para(plain("done")),
	}, markdown.Parse(full))
}

func TestParse_Inline(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []parley.Span
	}{
		{"plain", "hello world", []parley.Span{plain("hello world")}},
		{"bold underscores", "__b__", []parley.Span{parley.Bold{Text: "b"}}},
		{"italic star", "an *x* here", []parley.Span{plain("an "), parley.Italic{Text: "x"}, plain(" here")}},
		{"italic underscore", "_x_", []parley.Span{parley.Italic{Text: "x"}}},
		{"opener followed by space", "a ** b** c", []parley.Span{plain("a ** b** c")}},
		{"closer preceded by space", "**b **", []parley.Span{plain("**b **")}},
		{"intraword underscore", "snake_case_name", []parley.Span{plain("snake_case_name")}},
		{"intraword star", "a*b*c", []parley.Span{plain("a"), parley.Italic{Text: "b"}, plain("c")}},
		{"triple run is plain", "***x***", []parley.Span{plain("***x***")}},
		{"mismatched markers", "**x*", []parley.Span{plain("**x*")}},
		{"mixed markers do not pair", "*x_", []parley.Span{plain("*x_")}},
		{"escaped star", `\*not\*`, []parley.Span{plain("*not*")}},
		{"escaped backslash", `a\\b`, []parley.Span{plain(`a\b`)}},
		{"escaped backtick", "\\`", []parley.Span{plain("`")}},
		{"other backslash kept", `C:\path`, []parley.Span{plain(`C:\path`)}},
		{"escape inside bold", `**a\*b**`, []parley.Span{parley.Bold{Text: "a*b"}}},
		{"nested markers are literal", "*a **b** c*", []parley.Span{parley.Italic{Text: "a **b** c"}}},
		{"two bolds", "**a** **b**", []parley.Span{parley.Bold{Text: "a"}, plain(" "), parley.Bold{Text: "b"}}},
		{"lone star", "5 * 3", []parley.Span{plain("5 * 3")}},
		{"trailing backslash", `end\`, []parley.Span{plain(`end\`)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, []parley.DisplayNode{parley.Paragraph{Spans: tt.want}}, markdown.Parse(tt.input))
		})
	}
}

func TestParse_Blocks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []parley.DisplayNode
	}{
		{
			name:  "empty",
			input: "",
			want:  nil,
		},
		{
			name:  "paragraph lines joined",
			input: "line one\nline two",
			want:  []parley.DisplayNode{para(plain("line one\nline two"))},
		},
		{
			name:  "blank line separates paragraphs",
			input: "one\n\n\ntwo",
			want:  []parley.DisplayNode{para(plain("one")), para(plain("two"))},
		},
		{
			name:  "star and dash bullets",
			input: "* a\n- b\n  - c",
			want:  []parley.DisplayNode{parley.List{Items: [][]parley.Span{{plain("a")}, {plain("b")}, {plain("c")}}}},
		},
		{
			name:  "paragraph then list without blank line",
			input: "Steps:\n- first\n- second\nafter",
			want: []parley.DisplayNode{
				para(plain("Steps:")),
				parley.List{Items: [][]parley.Span{{plain("first")}, {plain("second")}}},
				para(plain("after")),
			},
		},
		{
			name:  "bold at line start is not a bullet",
			input: "**Note** this",
			want:  []parley.DisplayNode{para(parley.Bold{Text: "Note"}, plain(" this"))},
		},
		{
			name:  "dash without space is text",
			input: "-x",
			want:  []parley.DisplayNode{para(plain("-x"))},
		},
		{
			name:  "list items carry inline styling",
			input: "- **a** b",
			want:  []parley.DisplayNode{parley.List{Items: [][]parley.Span{{parley.Bold{Text: "a"}, plain(" b")}}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, markdown.Parse(tt.input))
		})
	}
}

func TestParse_CodeFences(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []parley.DisplayNode
	}{
		{
			name:  "closed fence with language",
			input: "```python\nprint('hi')\n```",
			want:  []parley.DisplayNode{parley.CodeBlock{Language: "python", Code: "print('hi')"}},
		},
		{
			name:  "no language",
			input: "```\nx\n```",
			want:  []parley.DisplayNode{parley.CodeBlock{Code: "x"}},
		},
		{
			name:  "content is verbatim",
			input: "```\n**not bold**\n- not a list\n  indented\n```",
			want:  []parley.DisplayNode{parley.CodeBlock{Code: "**not bold**\n- not a list\n  indented"}},
		},
		{
			name:  "one leading and trailing blank line collapsed",
			input: "```\n\n\nx\n\n\n```",
			want:  []parley.DisplayNode{parley.CodeBlock{Code: "\nx\n"}},
		},
		{
			name:  "longer closing fence",
			input: "```\nx\n`````",
			want:  []parley.DisplayNode{parley.CodeBlock{Code: "x"}},
		},
		{
			name:  "shorter fence inside longer",
			input: "````md\n```\ninner\n```\n````",
			want:  []parley.DisplayNode{parley.CodeBlock{Language: "md", Code: "```\ninner\n```"}},
		},
		{
			name:  "unclosed fence excluded",
			input: "Before\n\n```go\nfunc main() {",
			want:  []parley.DisplayNode{para(plain("Before"))},
		},
		{
			name:  "unclosed fence excludes later text",
			input: "a\n```\ncode\n\nmore text",
			want:  []parley.DisplayNode{para(plain("a"))},
		},
		{
			name:  "fence interrupts paragraph",
			input: "intro\n```\nx\n```\noutro",
			want: []parley.DisplayNode{
				para(plain("intro")),
				parley.CodeBlock{Code: "x"},
				para(plain("outro")),
			},
		},
		{
			name:  "closing line with info does not close",
			input: "```\nx\n```js",
			want:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, markdown.Parse(tt.input))
		})
	}
}

func TestParse_FenceAppearsOnlyWhenClosed(t *testing.T) {
	t.Parallel()

	text := "Look:\n```sh\nls -la\n"
	assert.Equal(t, []parley.DisplayNode{para(plain("Look:"))}, markdown.Parse(text))

	text += "```"
	assert.Equal(t, []parley.DisplayNode{
		para(plain("Look:")),
		parley.CodeBlock{Language: "sh", Code: "ls -la"},
	}, markdown.Parse(text))
}

func TestParse_CloserWithTrailingTextReopensFence(t *testing.T) {
	t.Parallel()

	closed := "```go\nx := 1\n```"
	assert.Equal(t, []parley.DisplayNode{
		parley.CodeBlock{Language: "go", Code: "x := 1"},
	}, markdown.Parse(closed))

	assert.Empty(t, markdown.Parse(closed+"x"))

	assert.Equal(t, []parley.DisplayNode{
		parley.CodeBlock{Language: "go", Code: "x := 1\n```x"},
	}, markdown.Parse(closed+"x\n```"))
}

func TestParse_LargeInput(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("*a _b_ **c ", 20000)
	nodes := markdown.Parse(text)
	assert.Len(t, nodes, 1)
}

func TestPlainText(t *testing.T) {
	t.Parallel()

	nodes := markdown.Parse("**Hi** there\n\n- a\n- b\n\n```\ncode\n```")
	assert.Equal(t, "Hi there\n\n- a\n- b\n\ncode", markdown.PlainText(nodes))
}
