package parley

import "context"

// SendRequest identifies one prompt submission.
type SendRequest struct {
	ConversationID string
	SessionID      string
	Content        string
}

// Transport opens a streamed response for a prompt. It fails synchronously
// with a *TransportError when the remote end rejects the request or returns
// no streamable body; in that case no events are produced.
type Transport interface {
	Send(ctx context.Context, req SendRequest) (Stream, error)
}

// ConversationService is the persistence and collaboration boundary as seen
// by a client. Every call is scoped by the client-chosen session identifier.
type ConversationService interface {
	CreateConversation(ctx context.Context, sessionID, title string) (*Conversation, error)
	FindConversation(ctx context.Context, id, sessionID string) (*Conversation, error)
	ListConversations(ctx context.Context, sessionID string) ([]*Conversation, error)
	DeleteConversation(ctx context.Context, id, sessionID string) error
	// SendMessage is the non-streaming variant: it returns only after the
	// full reply exists.
	SendMessage(ctx context.Context, req SendRequest) (MessagePair, error)
}

// ConversationStore is the storage a server keeps conversations in.
// Implementations return ErrNotFound for unknown (id, session) pairs.
type ConversationStore interface {
	CreateConversation(ctx context.Context, sessionID, title string) (*Conversation, error)
	FindConversation(ctx context.Context, id, sessionID string) (*Conversation, error)
	ListConversations(ctx context.Context, sessionID string) ([]*Conversation, error)
	DeleteConversation(ctx context.Context, id, sessionID string) error
	SetTitle(ctx context.Context, id, sessionID, title string) error
	AppendMessage(ctx context.Context, id, sessionID string, msg Message) error
}

// Responder produces assistant replies on the server side. Reply calls emit
// once per chunk of output, in order, and stops early if emit fails.
type Responder interface {
	Reply(ctx context.Context, history []Message, prompt string, emit func(chunk string) error) error
}
