package bubbletea_test

import (
	"testing"

	"github.com/fwojciec/parley"
	bt "github.com/fwojciec/parley/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text unchanged", "hello world", "hello world"},
		{"strips color codes", "\x1b[31mred\x1b[0m", "red"},
		{"strips cursor movement", "a\x1b[2Jb\x1b[Hc", "abc"},
		{"strips OSC title", "\x1b]0;pwned\x07text", "text"},
		{"keeps tabs and newlines", "a\tb\nc", "a\tb\nc"},
		{"normalizes CRLF", "a\r\nb", "a\nb"},
		{"drops bell and backspace", "a\x07b\x08c", "abc"},
		{"drops DEL", "a\x7fb", "ab"},
		{"keeps unicode", "zażółć 日本", "zażółć 日本"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, bt.Sanitize(tt.in))
		})
	}
}

func TestModel_SanitizesReply(t *testing.T) {
	t.Parallel()

	machine := newMachine(t, replyWith(
		parley.EventToken{Text: "safe\x1b[2J text"},
		parley.EventDone{},
	))
	m := runToDone(t, initModel(t, machine), "Hi")

	content := bt.RenderContent(m)
	assert.NotContains(t, content, "\x1b[2J")
	assert.Contains(t, stripANSI(content), "safe text")
}
