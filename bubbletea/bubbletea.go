// Package bubbletea provides a Bubble Tea TUI for parley conversations.
package bubbletea

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/parley"
)

// Run creates and runs the Bubble Tea TUI program. It blocks until the program
// exits. When ctx is cancelled the program quits.
func Run(ctx context.Context, m Model) (Model, error) {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		m = fm
	}
	return m, err
}

// StreamEventMsg signals that the active exchange applied an event.
type StreamEventMsg struct {
	Event parley.Event
}

// ReplyDoneMsg signals that the active exchange has ended.
type ReplyDoneMsg struct {
	Err error
}
