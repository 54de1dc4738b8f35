package bubbletea

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/parley"
	"github.com/fwojciec/parley/chat"
	"github.com/mattn/go-runewidth"
)

var _ tea.Model = Model{}

// Model is the Bubble Tea model for the parley TUI. The transcript shown is
// always the machine's transcript; stream events only trigger a redraw.
type Model struct {
	// Input is the text input component. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable output area. Exported for test access.
	Viewport viewport.Model

	machine *chat.Machine
	theme   parley.Theme
	styles  Styles

	blocks []MessageBlock
	failed map[int]error // transcript index of a failed reply -> its error

	tx      *chat.Transaction
	eventCh chan parley.Event
	width   int
	err     error
	ready   bool
}

// New creates a TUI Model driving machine. The machine must already hold a
// conversation.
func New(machine *chat.Machine, theme parley.Theme) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = parley.MaxPromptLength

	return Model{
		Input:   ti,
		machine: machine,
		theme:   theme,
		styles:  NewStyles(theme),
		failed:  make(map[int]error),
	}
}

// Running reports whether an exchange is in flight.
func (m Model) Running() bool { return m.tx != nil }

// Err returns the last error, if any.
func (m Model) Err() error { return m.err }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m = m.handleWindowSize(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StreamEventMsg:
		m = m.refresh()
		if m.tx != nil {
			return m, listenForEvent(m.eventCh, m.tx)
		}
		return m, nil

	case ReplyDoneMsg:
		if m.tx != nil && msg.Err != nil && !errors.Is(msg.Err, context.Canceled) {
			m.err = msg.Err
			m.failed[len(m.machine.Messages())-1] = msg.Err
		}
		m.tx = nil
		m.eventCh = nil
		m = m.refresh()
		return m, m.Input.Focus()
	}

	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)

	if m.tx == nil {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.Input.View())
	return b.String()
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	inputH := 1
	statusHeight := 1
	borderHeight := 2 // newlines between sections
	vpHeight := msg.Height - inputH - statusHeight - borderHeight
	if vpHeight < 1 {
		vpHeight = 1
	}

	m.width = msg.Width
	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}
	m.Input.Width = msg.Width
	return m.refresh()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.tx != nil {
			m.tx.Cancel()
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyEnter:
		if m.tx != nil {
			return m, nil
		}
		text := m.Input.Value()
		if strings.TrimSpace(text) == "" {
			return m, nil
		}
		return m.submit(text)
	}

	// Only non-character keys scroll the viewport so typing 'j'/'k' is not
	// swallowed.
	if m.tx == nil {
		var cmds []tea.Cmd
		var cmd tea.Cmd
		if msg.Type != tea.KeyRunes {
			m.Viewport, cmd = m.Viewport.Update(msg)
			cmds = append(cmds, cmd)
		}
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	before := len(m.machine.Messages())
	ch := make(chan parley.Event, 256)
	tx, err := m.machine.Submit(context.Background(), text, chat.WithEventHandler(func(e parley.Event) {
		select {
		case ch <- e:
		default:
		}
	}))
	if err != nil {
		m.err = err
		if n := len(m.machine.Messages()); n > before {
			m.failed[n-1] = err
		}
		return m.refresh(), nil
	}

	m.Input.SetValue("")
	m.Input.Blur()
	m.err = nil
	m.tx = tx
	m.eventCh = ch
	m = m.refresh()
	return m, listenForEvent(ch, tx)
}

// refresh brings the blocks in line with the machine transcript and redraws
// the viewport.
func (m Model) refresh() Model {
	msgs := m.machine.Messages()
	blocks := make([]MessageBlock, 0, len(msgs)+len(m.failed))
	prev := m.assistantBlocks()
	for i, msg := range msgs {
		switch msg.Role {
		case parley.RoleUser:
			blocks = append(blocks, NewUserMessageBlock(sanitize(msg.Content), m.styles))
		case parley.RoleAssistant:
			b, ok := prev[i]
			if !ok {
				b = NewAssistantTextBlock(m.theme)
			}
			b.SetContent(sanitize(msg.Content))
			blocks = append(blocks, &indexed{AssistantTextBlock: b, index: i})
		}
		if err, ok := m.failed[i]; ok {
			blocks = append(blocks, NewErrorBlock(err, m.styles))
		}
	}
	m.blocks = blocks
	if m.ready {
		m.Viewport.SetContent(m.renderContent())
		m.Viewport.GotoBottom()
	}
	return m
}

func (m Model) assistantBlocks() map[int]*AssistantTextBlock {
	out := make(map[int]*AssistantTextBlock)
	for _, b := range m.blocks {
		if ib, ok := b.(*indexed); ok {
			out[ib.index] = ib.AssistantTextBlock
		}
	}
	return out
}

// indexed ties a cached assistant block to its transcript position.
type indexed struct {
	*AssistantTextBlock
	index int
}

func (m Model) renderContent() string {
	var b strings.Builder
	for i, block := range m.blocks {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(block.View(m.Viewport.Width))
	}
	return b.String()
}

func (m Model) statusLine() string {
	if m.err != nil {
		return m.styles.Error.Render(runewidth.Truncate(fmt.Sprintf("Error: %v", m.err), m.width, "…"))
	}
	status := "Enter to send, Ctrl+C to quit"
	if m.tx != nil {
		status = "Receiving reply... Ctrl+C to stop"
	}
	if title := m.machine.Conversation().Title; title != "" {
		status = title + " · " + status
	}
	if m.width > 0 {
		status = runewidth.Truncate(status, m.width, "…")
	}
	return m.styles.Muted.Render(status)
}

// listenForEvent waits for the next event from the active exchange, or for
// the exchange to end.
func listenForEvent(ch <-chan parley.Event, tx *chat.Transaction) tea.Cmd {
	return func() tea.Msg {
		select {
		case evt := <-ch:
			return StreamEventMsg{Event: evt}
		default:
		}
		select {
		case evt := <-ch:
			return StreamEventMsg{Event: evt}
		case <-tx.Done():
			return ReplyDoneMsg{Err: tx.Err()}
		}
	}
}
