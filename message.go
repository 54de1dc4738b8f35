package parley

import "time"

// Message is one turn of a conversation. A message is immutable once the
// exchange that produced it completes; only the in-progress assistant
// message is ever appended to, and only by the conversation state machine.
type Message struct {
	Role      Role
	Content   string
	CreatedAt time.Time
}

// MessagePair is the result of a non-streaming send: the stored prompt and
// the full reply.
type MessagePair struct {
	User      Message
	Assistant Message
}
