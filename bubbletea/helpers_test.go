package bubbletea_test

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/parley"
	bt "github.com/fwojciec/parley/bubbletea"
	"github.com/fwojciec/parley/chat"
	"github.com/fwojciec/parley/mock"
	"github.com/stretchr/testify/require"
)

// newMachine returns a machine holding an empty conversation titled
// "Test chat" whose sends are served by send.
func newMachine(t *testing.T, send func(ctx context.Context, req parley.SendRequest) (parley.Stream, error)) *chat.Machine {
	t.Helper()
	return newMachineWith(t, send, nil)
}

func newMachineWith(t *testing.T, send func(ctx context.Context, req parley.SendRequest) (parley.Stream, error), history []parley.Message) *chat.Machine {
	t.Helper()
	svc := &mock.ConversationService{
		FindConversationFn: func(ctx context.Context, id, sessionID string) (*parley.Conversation, error) {
			return &parley.Conversation{ID: id, SessionID: sessionID, Title: "Test chat", Messages: history}, nil
		},
	}
	m := chat.New(&mock.Transport{SendFn: send}, svc, "s1")
	require.NoError(t, m.Load(context.Background(), "c1"))
	t.Cleanup(func() { m.Close() })
	return m
}

// replyWith serves every send with the given events.
func replyWith(events ...parley.Event) func(ctx context.Context, req parley.SendRequest) (parley.Stream, error) {
	return func(ctx context.Context, req parley.SendRequest) (parley.Stream, error) {
		return mock.Events(events...), nil
	}
}

// initModel creates a model and sends a WindowSizeMsg to initialize the viewport.
func initModel(t *testing.T, machine *chat.Machine) bt.Model {
	t.Helper()
	return initModelWithSize(t, machine, 80, 24)
}

// initModelWithSize creates a model with a custom terminal size.
func initModelWithSize(t *testing.T, machine *chat.Machine, width, height int) bt.Model {
	t.Helper()
	m := bt.New(machine, parley.DefaultTheme())
	return updateModel(t, m, tea.WindowSizeMsg{Width: width, Height: height})
}

// updateModel sends a message and returns the updated Model.
func updateModel(t *testing.T, m bt.Model, msg tea.Msg) bt.Model {
	t.Helper()
	updated, _ := m.Update(msg)
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model
}

// runToDone types text, presses Enter and pumps the returned commands until
// the exchange ends.
func runToDone(t *testing.T, m bt.Model, text string) bt.Model {
	t.Helper()
	m.Input.SetValue(text)
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(bt.Model)
	for cmd != nil {
		msg := cmd()
		updated, cmd = m.Update(msg)
		m = updated.(bt.Model)
		if _, done := msg.(bt.ReplyDoneMsg); done {
			break
		}
	}
	return m
}
