package parley

import "time"

// Conversation is an ordered, append-only transcript keyed by an opaque ID
// and the client-chosen session identifier that owns it.
type Conversation struct {
	ID        string
	SessionID string
	Title     string
	Messages  []Message
	CreatedAt time.Time
}

// Clone returns a copy whose message slice does not share a backing array
// with c.
func (c Conversation) Clone() Conversation {
	if c.Messages != nil {
		c.Messages = append([]Message(nil), c.Messages...)
	}
	return c
}

// Last returns the final message, if any.
func (c Conversation) Last() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}
