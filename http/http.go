// Package http implements the chat wire protocol over HTTP: a client that
// provides [parley.Transport] and [parley.ConversationService], and a server
// that exposes a [parley.ConversationStore] and [parley.Responder] through the
// same routes.
//
// Replies stream as server-sent events: one "message" frame per chunk of
// assistant text, then a "done" frame whose data is "complete". Errors are
// JSON objects with a "detail" field and a non-2xx status.
package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fwojciec/parley"
)

// Protocol limits shared by client and server.
const (
	// MaxTitleLength is the number of characters of the first prompt used
	// as a conversation title.
	MaxTitleLength = 60

	// DefaultHistoryLimit is the number of most recent messages passed to
	// the responder as context.
	DefaultHistoryLimit = 10

	// DoneData is the payload of the terminal frame.
	DoneData = "complete"

	// EmptyReply is stored when a reply produced no text at all.
	EmptyReply = "[empty response]"

	// FailedReply is sent when the responder fails before producing text.
	FailedReply = "I couldn't generate a reply right now."
)

type createConversationRequest struct {
	SessionID string `json:"session_id"`
	Title     string `json:"title"`
}

type messageRequest struct {
	Content string `json:"content"`
}

type errorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

type conversationDTO struct {
	ID        flexID       `json:"id"`
	SessionID string       `json:"session_id"`
	Title     string       `json:"title"`
	CreatedAt wireTime     `json:"created_at"`
	Messages  []messageDTO `json:"messages,omitempty"`
}

type messageDTO struct {
	ConversationID flexID   `json:"conversation_id,omitempty"`
	Role           string   `json:"role"`
	Content        string   `json:"content"`
	CreatedAt      wireTime `json:"created_at"`
}

type messagePairDTO struct {
	UserMessage      messageDTO `json:"user_message"`
	AssistantMessage messageDTO `json:"assistant_message"`
}

func toConversationDTO(c *parley.Conversation) conversationDTO {
	dto := conversationDTO{
		ID:        flexID(c.ID),
		SessionID: c.SessionID,
		Title:     c.Title,
		CreatedAt: wireTime(c.CreatedAt),
	}
	for _, m := range c.Messages {
		dto.Messages = append(dto.Messages, toMessageDTO(c.ID, m))
	}
	return dto
}

func (d conversationDTO) conversation() *parley.Conversation {
	c := &parley.Conversation{
		ID:        string(d.ID),
		SessionID: d.SessionID,
		Title:     d.Title,
		CreatedAt: time.Time(d.CreatedAt),
	}
	for _, m := range d.Messages {
		c.Messages = append(c.Messages, m.message())
	}
	return c
}

func toMessageDTO(conversationID string, m parley.Message) messageDTO {
	return messageDTO{
		ConversationID: flexID(conversationID),
		Role:           string(m.Role),
		Content:        m.Content,
		CreatedAt:      wireTime(m.CreatedAt),
	}
}

func (d messageDTO) message() parley.Message {
	return parley.Message{
		Role:      parley.Role(d.Role),
		Content:   d.Content,
		CreatedAt: time.Time(d.CreatedAt),
	}
}

// flexID is an identifier that may be sent as a JSON string or number.
// It is always encoded as a string.
type flexID string

func (id *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = flexID(n.String())
	return nil
}

// wireTime accepts RFC 3339 timestamps and zone-less ISO 8601 timestamps,
// which are taken to be UTC.
type wireTime time.Time

const zonelessLayout = "2006-01-02T15:04:05.999999999"

func (t wireTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t))
}

func (t *wireTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*t = wireTime{}
		return nil
	}
	if v, err := time.Parse(time.RFC3339Nano, s); err == nil {
		*t = wireTime(v)
		return nil
	}
	v, err := time.Parse(zonelessLayout, s)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	*t = wireTime(v)
	return nil
}
