package bubbletea

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/parley"
	"github.com/fwojciec/parley/markdown"
)

var _ MessageBlock = (*AssistantTextBlock)(nil)

// AssistantTextBlock renders a streamed assistant reply with markdown
// formatting. Text up to the last blank line outside a code fence is
// rendered once per width and cached; only the tail is re-rendered as
// tokens arrive.
type AssistantTextBlock struct {
	content string
	theme   parley.Theme

	finalizedRaw     string
	finalizedByWidth map[int]string
}

// NewAssistantTextBlock creates a new block for streaming assistant text.
func NewAssistantTextBlock(theme parley.Theme) *AssistantTextBlock {
	return &AssistantTextBlock{
		theme:            theme,
		finalizedByWidth: make(map[int]string),
	}
}

// Append adds streamed text.
func (b *AssistantTextBlock) Append(text string) {
	b.SetContent(b.content + text)
}

// SetContent replaces the block text. Growing the existing text keeps the
// render cache.
func (b *AssistantTextBlock) SetContent(text string) {
	if text == b.content {
		return
	}
	if !strings.HasPrefix(text, b.content) {
		b.finalizedRaw = ""
		clear(b.finalizedByWidth)
	}
	b.content = text
	b.promoteFinalized()
}

// Content returns the raw block text.
func (b *AssistantTextBlock) Content() string {
	return b.content
}

func (b *AssistantTextBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *AssistantTextBlock) View(width int) string {
	finalized := b.renderFinalized(width)
	trailing := b.trailingRaw()
	if strings.TrimSpace(trailing) == "" {
		return finalized
	}
	rendered := markdown.Render(trailing, width, b.theme)
	if strings.TrimSpace(rendered) == "" {
		return finalized
	}
	if finalized == "" {
		return rendered
	}
	return strings.TrimRight(finalized, "\n") + "\n\n" + strings.TrimLeft(rendered, "\n")
}

// promoteFinalized moves the cached prefix to the last "\n\n" that is not
// inside an open code fence.
func (b *AssistantTextBlock) promoteFinalized() {
	raw := b.content
	for end := len(raw); ; {
		idx := strings.LastIndex(raw[:end], "\n\n")
		if idx <= 0 {
			return
		}
		candidate := raw[:idx]
		if !hasUnclosedFence(candidate) {
			if candidate != b.finalizedRaw {
				b.finalizedRaw = candidate
				clear(b.finalizedByWidth)
			}
			return
		}
		end = idx
	}
}

func (b *AssistantTextBlock) renderFinalized(width int) string {
	if b.finalizedRaw == "" {
		return ""
	}
	if cached, ok := b.finalizedByWidth[width]; ok {
		return cached
	}
	rendered := markdown.Render(b.finalizedRaw, width, b.theme)
	b.finalizedByWidth[width] = rendered
	return rendered
}

func (b *AssistantTextBlock) trailingRaw() string {
	if b.finalizedRaw == "" {
		return b.content
	}
	return strings.TrimPrefix(b.content, b.finalizedRaw+"\n\n")
}

// hasUnclosedFence reports whether s has an odd number of fence lines.
func hasUnclosedFence(s string) bool {
	open := false
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(strings.TrimLeft(line, " \t"), "```") {
			open = !open
		}
	}
	return open
}
