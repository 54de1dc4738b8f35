// Package json persists conversations as JSON files.
package json

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fwojciec/parley"
)

// envelope is the v1 wire format for a persisted conversation.
type envelope struct {
	Version   int          `json:"version"`
	ID        string       `json:"id"`
	SessionID string       `json:"session_id"`
	Title     string       `json:"title"`
	CreatedAt time.Time    `json:"created_at"`
	Messages  []messageDTO `json:"messages"`
}

type messageDTO struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// MarshalConversation serializes a Conversation to JSON in v1 envelope format.
func MarshalConversation(c parley.Conversation) ([]byte, error) {
	env := envelope{
		Version:   1,
		ID:        c.ID,
		SessionID: c.SessionID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		Messages:  make([]messageDTO, len(c.Messages)),
	}
	for i, msg := range c.Messages {
		if err := parley.ValidateMessage(msg); err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		env.Messages[i] = messageDTO{
			Role:      string(msg.Role),
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt,
		}
	}
	return json.MarshalIndent(env, "", "  ")
}

// UnmarshalConversation deserializes a Conversation from JSON in v1 envelope format.
func UnmarshalConversation(data []byte) (parley.Conversation, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return parley.Conversation{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Version != 1 {
		return parley.Conversation{}, fmt.Errorf("unsupported envelope version: %d", env.Version)
	}
	msgs := make([]parley.Message, len(env.Messages))
	for i, dto := range env.Messages {
		msg := parley.Message{
			Role:      parley.Role(dto.Role),
			Content:   dto.Content,
			CreatedAt: dto.CreatedAt,
		}
		if err := parley.ValidateMessage(msg); err != nil {
			return parley.Conversation{}, fmt.Errorf("message %d: %w", i, err)
		}
		msgs[i] = msg
	}
	return parley.Conversation{
		ID:        env.ID,
		SessionID: env.SessionID,
		Title:     env.Title,
		CreatedAt: env.CreatedAt,
		Messages:  msgs,
	}, nil
}

// Save writes a Conversation to a JSON file, creating parent directories as needed.
func Save(path string, c parley.Conversation) error {
	data, err := MarshalConversation(c)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Load reads a Conversation from a JSON file.
func Load(path string) (parley.Conversation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return parley.Conversation{}, fmt.Errorf("read file: %w", err)
	}
	return UnmarshalConversation(data)
}
