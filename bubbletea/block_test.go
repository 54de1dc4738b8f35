package bubbletea_test

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/parley"
	bt "github.com/fwojciec/parley/bubbletea"
	"github.com/fwojciec/parley/markdown"
	"github.com/stretchr/testify/assert"
)

var ansiRE = regexp.MustCompile("\x1b\\[[0-9;]*m")

func stripANSI(s string) string {
	return ansiRE.ReplaceAllString(s, "")
}

func TestAssistantTextBlock_View(t *testing.T) {
	t.Parallel()

	theme := parley.DefaultTheme()

	t.Run("renders markdown", func(t *testing.T) {
		t.Parallel()
		block := bt.NewAssistantTextBlock(theme)
		block.Append("hello **world**")
		view := stripANSI(block.View(80))
		assert.Contains(t, view, "hello world")
		assert.NotContains(t, view, "**")
	})

	t.Run("append accumulates tokens", func(t *testing.T) {
		t.Parallel()
		block := bt.NewAssistantTextBlock(theme)
		block.Append("hello ")
		block.Append("world")
		assert.Contains(t, stripANSI(block.View(80)), "hello world")
		assert.Equal(t, "hello world", block.Content())
	})

	t.Run("unterminated marker stays literal", func(t *testing.T) {
		t.Parallel()
		block := bt.NewAssistantTextBlock(theme)
		block.Append("**bol")
		assert.Contains(t, stripANSI(block.View(80)), "**bol")
		block.Append("d**")
		view := stripANSI(block.View(80))
		assert.Contains(t, view, "bold")
		assert.NotContains(t, view, "**")
	})

	t.Run("matches full render across paragraph boundary", func(t *testing.T) {
		t.Parallel()
		text := "first paragraph\n\n- one\n- two\n\ntrailing *text*"
		block := bt.NewAssistantTextBlock(theme)
		for _, r := range text {
			block.Append(string(r))
		}
		assert.Equal(t,
			strings.TrimRight(stripANSI(markdown.Render(text, 40, theme)), "\n"),
			strings.TrimRight(stripANSI(block.View(40)), "\n"))
	})

	t.Run("width change re-renders cached content", func(t *testing.T) {
		t.Parallel()
		block := bt.NewAssistantTextBlock(theme)
		block.Append("word1 word2 word3 word4 word5 word6\n\ntail")
		narrow := block.View(20)
		wide := block.View(80)
		assert.NotEqual(t, strings.Count(narrow, "\n"), strings.Count(wide, "\n"))
	})

	t.Run("unclosed fence is withheld", func(t *testing.T) {
		t.Parallel()
		block := bt.NewAssistantTextBlock(theme)
		block.Append("intro\n\n```go\nfmt.Println(1)\n\nmore")
		view := stripANSI(block.View(80))
		assert.Contains(t, view, "intro")
		assert.NotContains(t, view, "fmt.Println")
		block.Append("\n```")
		assert.Contains(t, stripANSI(block.View(80)), "fmt.Println")
	})

	t.Run("replaced content resets cache", func(t *testing.T) {
		t.Parallel()
		block := bt.NewAssistantTextBlock(theme)
		block.SetContent("old paragraph\n\ntail")
		_ = block.View(80)
		block.SetContent("new")
		view := stripANSI(block.View(80))
		assert.NotContains(t, view, "old")
		assert.Contains(t, view, "new")
	})

	t.Run("update returns self with no command", func(t *testing.T) {
		t.Parallel()
		block := bt.NewAssistantTextBlock(theme)
		updated, cmd := block.Update(tea.KeyMsg{})
		assert.Equal(t, block, updated)
		assert.Nil(t, cmd)
	})

	t.Run("empty content renders empty string", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, bt.NewAssistantTextBlock(theme).View(80))
	})

	t.Run("zero width renders gracefully", func(t *testing.T) {
		t.Parallel()
		block := bt.NewAssistantTextBlock(theme)
		block.Append("hello world")
		assert.NotPanics(t, func() { block.View(0) })
	})
}

func TestUserMessageBlock_View(t *testing.T) {
	t.Parallel()

	styles := bt.NewStyles(parley.DefaultTheme())

	t.Run("renders prompt prefix", func(t *testing.T) {
		t.Parallel()
		view := stripANSI(bt.NewUserMessageBlock("hello world", styles).View(80))
		assert.Contains(t, view, "> hello world")
	})

	t.Run("pads each line to full width", func(t *testing.T) {
		t.Parallel()
		view := bt.NewUserMessageBlock("test", styles).View(40)
		for _, line := range strings.Split(view, "\n") {
			assert.Equal(t, 40, lipgloss.Width(line))
		}
	})

	t.Run("continuation lines hang under text", func(t *testing.T) {
		t.Parallel()
		view := stripANSI(bt.NewUserMessageBlock("first\nsecond", styles).View(0))
		assert.Equal(t, "> first\n  second", view)
	})

	t.Run("wraps long text to width", func(t *testing.T) {
		t.Parallel()
		long := "short words that keep going and going beyond the viewport width easily"
		view := bt.NewUserMessageBlock(long, styles).View(30)
		assert.Contains(t, view, "easily")
		assert.Greater(t, len(strings.Split(view, "\n")), 1)
	})
}

func TestErrorBlock_View(t *testing.T) {
	t.Parallel()

	styles := bt.NewStyles(parley.DefaultTheme())
	view := bt.NewErrorBlock(errors.New("something broke"), styles).View(80)
	assert.Contains(t, stripANSI(view), "Reply failed: something broke")
}

func TestNewStyles(t *testing.T) {
	t.Parallel()

	styles := bt.NewStyles(parley.DefaultTheme())

	assert.Equal(t, lipgloss.Color("4"), styles.UserMsg.GetForeground())
	assert.True(t, styles.UserMsg.GetBold())
	assert.Equal(t, lipgloss.Color("1"), styles.Error.GetForeground())
	assert.Equal(t, lipgloss.Color("8"), styles.Muted.GetForeground())
	assert.True(t, styles.Muted.GetFaint())
	assert.Equal(t, lipgloss.Color("5"), styles.Accent.GetForeground())
	assert.True(t, styles.Accent.GetBold())
}

func TestNewStylesNegativeIndexYieldsNoColor(t *testing.T) {
	t.Parallel()

	styles := bt.NewStyles(parley.Theme{UserMsg: -1})
	assert.Equal(t, lipgloss.NoColor{}, styles.UserMsg.GetForeground())
}
