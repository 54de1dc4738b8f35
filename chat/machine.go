// Package chat implements the conversation state machine. A Machine owns
// the transcript of one conversation, folds streamed events into it and
// serializes submissions so that at most one exchange is in flight.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fwojciec/parley"
)

// State is the lifecycle state of a Machine.
type State int

const (
	StateIdle     State = iota // No conversation established.
	StateCreating              // Creating a conversation.
	StateReady                 // Accepting prompts.
	StateSending               // An exchange is in flight.
	StateClosed                // Terminal.
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCreating:
		return "creating"
	case StateReady:
		return "ready"
	case StateSending:
		return "sending"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Machine drives one conversation. All methods are safe for concurrent use;
// the transcript is written only by the goroutine consuming the active
// transaction, and readers get snapshots.
type Machine struct {
	transport parley.Transport
	service   parley.ConversationService
	sessionID string
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	state   State
	loading bool // a Load fetch is in flight; the state stays StateIdle
	conv    parley.Conversation
	active  *Transaction
}

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) { m.logger = l }
}

// WithClock sets the function used to timestamp new messages.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// New creates a Machine in StateIdle. Every request it makes is scoped to
// sessionID.
func New(transport parley.Transport, service parley.ConversationService, sessionID string, opts ...Option) *Machine {
	m := &Machine{
		transport: transport,
		service:   service,
		sessionID: sessionID,
		logger:    slog.New(slog.DiscardHandler),
		now:       time.Now,
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create creates a new remote conversation and moves to StateReady. On
// failure the machine returns to StateIdle.
func (m *Machine) Create(ctx context.Context, title string) error {
	return m.establish(ctx, "create", StateCreating, func() (*parley.Conversation, error) {
		return m.service.CreateConversation(ctx, m.sessionID, title)
	})
}

// Load fetches an existing conversation with its messages and moves
// directly from StateIdle to StateReady. The machine reports StateIdle
// while the fetch runs, but further Create or Load calls are rejected until
// it returns.
func (m *Machine) Load(ctx context.Context, id string) error {
	return m.establish(ctx, "load", StateIdle, func() (*parley.Conversation, error) {
		return m.service.FindConversation(ctx, id, m.sessionID)
	})
}

func (m *Machine) establish(ctx context.Context, op string, during State, fetch func() (*parley.Conversation, error)) error {
	m.mu.Lock()
	switch {
	case m.state == StateIdle && m.loading:
		m.mu.Unlock()
		return fmt.Errorf("chat: %s while loading: %w", op, parley.ErrInvalidTransition)
	case m.state == StateIdle:
	case m.state == StateClosed:
		m.mu.Unlock()
		return fmt.Errorf("chat: %s: %w", op, parley.ErrClosed)
	default:
		st := m.state
		m.mu.Unlock()
		return fmt.Errorf("chat: %s while %s: %w", op, st, parley.ErrInvalidTransition)
	}
	m.state = during
	m.loading = during == StateIdle
	m.mu.Unlock()

	conv, err := fetch()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = false
	if m.state == StateClosed {
		return fmt.Errorf("chat: %s: %w", op, parley.ErrClosed)
	}
	if err != nil {
		m.state = StateIdle
		return fmt.Errorf("chat: %s: %w", op, err)
	}
	m.conv = conv.Clone()
	m.state = StateReady
	m.logger.Info("conversation ready", "op", op, "conversation", m.conv.ID, "messages", len(m.conv.Messages))
	return nil
}

// SubmitOption configures a single Submit invocation.
type SubmitOption func(*submitConfig)

type submitConfig struct {
	onEvent func(parley.Event)
}

// WithEventHandler sets a callback that receives each event after it has
// been applied to the transcript. It is called from the transaction's
// goroutine, never for events that arrive after the transaction was
// cancelled, and must not call Cancel or Close. If nil or not set, events
// are silently discarded.
func WithEventHandler(h func(parley.Event)) SubmitOption {
	return func(c *submitConfig) {
		c.onEvent = h
	}
}

// Submit appends prompt and an empty assistant message to the transcript
// and opens the response stream. It fails with ErrConcurrentSend while
// another exchange is in flight and leaves the transcript untouched. If the
// transport refuses the request, the error is returned synchronously, the
// machine returns to StateReady and the empty assistant message is kept.
func (m *Machine) Submit(ctx context.Context, prompt string, opts ...SubmitOption) (*Transaction, error) {
	var cfg submitConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	m.mu.Lock()
	switch m.state {
	case StateReady:
	case StateSending:
		m.mu.Unlock()
		return nil, fmt.Errorf("chat: %w", parley.ErrConcurrentSend)
	case StateClosed:
		m.mu.Unlock()
		return nil, fmt.Errorf("chat: %w", parley.ErrClosed)
	default:
		m.mu.Unlock()
		return nil, fmt.Errorf("chat: %w", parley.ErrNotReady)
	}
	if err := parley.ValidatePrompt(prompt); err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("chat: %w", err)
	}

	now := m.now()
	m.conv.Messages = append(m.conv.Messages,
		parley.Message{Role: parley.RoleUser, Content: prompt, CreatedAt: now},
		parley.Message{Role: parley.RoleAssistant, CreatedAt: now},
	)
	txCtx, cancel := context.WithCancel(ctx)
	tx := &Transaction{
		m:              m,
		conversationID: m.conv.ID,
		index:          len(m.conv.Messages) - 1,
		cancel:         cancel,
		onEvent:        cfg.onEvent,
		done:           make(chan struct{}),
	}
	m.active = tx
	m.state = StateSending
	m.mu.Unlock()

	m.logger.Debug("sending prompt", "conversation", tx.conversationID, "length", len(prompt))
	stream, err := m.transport.Send(txCtx, parley.SendRequest{
		ConversationID: tx.conversationID,
		SessionID:      m.sessionID,
		Content:        prompt,
	})
	if err != nil {
		m.mu.Lock()
		m.detach(tx)
		m.mu.Unlock()
		cancel()
		m.logger.Warn("send failed", "conversation", tx.conversationID, "error", err)
		return nil, fmt.Errorf("chat: send: %w", err)
	}

	go tx.run(txCtx, stream)
	return tx, nil
}

// detach clears tx as the active transaction. It must be called with mu
// held and reports whether tx was still active.
func (m *Machine) detach(tx *Transaction) bool {
	if m.active != tx {
		return false
	}
	m.active = nil
	if m.state == StateSending {
		m.state = StateReady
	}
	return true
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Messages returns a snapshot of the transcript.
func (m *Machine) Messages() []parley.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]parley.Message(nil), m.conv.Messages...)
}

// Conversation returns a snapshot of the conversation.
func (m *Machine) Conversation() parley.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conv.Clone()
}

// Active returns the in-flight transaction, or nil.
func (m *Machine) Active() *Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Close moves the machine to StateClosed and cancels any in-flight
// exchange, waiting like Transaction.Cancel for a handler call in progress.
// It is safe to call more than once.
func (m *Machine) Close() error {
	m.mu.Lock()
	tx := m.active
	if tx != nil {
		tx.cancelled = true
	}
	m.active = nil
	m.state = StateClosed
	m.mu.Unlock()

	if tx != nil {
		tx.settle()
		tx.cancel()
	}
	return nil
}
