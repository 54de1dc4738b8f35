package bubbletea

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var _ MessageBlock = (*UserMessageBlock)(nil)

const userPrefix = "> "

// UserMessageBlock shows a prompt as sent. Continuation lines hang under the
// first line's text.
type UserMessageBlock struct {
	text   string
	styles Styles
}

// NewUserMessageBlock creates a UserMessageBlock.
func NewUserMessageBlock(text string, styles Styles) *UserMessageBlock {
	return &UserMessageBlock{text: text, styles: styles}
}

func (b *UserMessageBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *UserMessageBlock) View(width int) string {
	body := b.text
	inner := width - len(userPrefix)
	if width > 0 && inner > 0 {
		body = lipgloss.NewStyle().Width(inner).Render(body)
	}
	lines := strings.Split(body, "\n")
	indent := strings.Repeat(" ", len(userPrefix))
	for i := range lines {
		if i == 0 {
			lines[i] = b.styles.UserMsg.Render(userPrefix) + lines[i]
			continue
		}
		lines[i] = indent + lines[i]
	}
	return strings.Join(lines, "\n")
}
