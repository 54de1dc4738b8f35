package bubbletea

import tea "github.com/charmbracelet/bubbletea"

// MessageBlock is one transcript entry on screen. View receives the
// viewport width so blocks can be rendered and tested on their own.
type MessageBlock interface {
	Update(tea.Msg) (MessageBlock, tea.Cmd)
	View(width int) string
}
