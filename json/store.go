package json

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/parley"
	"github.com/google/uuid"
)

// Interface compliance check.
var _ parley.ConversationStore = (*Store)(nil)

// Store is a ConversationStore keeping one JSON file per conversation in a
// directory. Conversation IDs are random UUIDs. A Store serializes its own
// access but does not coordinate with other processes using the same
// directory.
type Store struct {
	dir string
	now func() time.Time

	mu sync.Mutex
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock sets the function used to timestamp new conversations.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore returns a Store rooted at dir, creating it if needed.
func NewStore(dir string, opts ...StoreOption) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("json: create store directory: %w", err)
	}
	s := &Store{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// CreateConversation stores a new empty conversation owned by sessionID.
func (s *Store) CreateConversation(ctx context.Context, sessionID, title string) (*parley.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := parley.Conversation{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Title:     title,
		CreatedAt: s.now().UTC(),
		Messages:  []parley.Message{},
	}
	if err := Save(s.path(c.ID), c); err != nil {
		return nil, fmt.Errorf("json: create conversation: %w", err)
	}
	return &c, nil
}

// FindConversation returns the conversation with id if it belongs to
// sessionID, and ErrNotFound otherwise.
func (s *Store) FindConversation(ctx context.Context, id, sessionID string) (*parley.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.load(id, sessionID)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListConversations returns the session's conversations, newest first.
// Messages are not included.
func (s *Store) ListConversations(ctx context.Context, sessionID string) ([]*parley.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("json: list conversations: %w", err)
	}
	var out []*parley.Conversation
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		c, err := Load(filepath.Join(s.dir, name))
		if err != nil {
			return nil, fmt.Errorf("json: list conversations: %s: %w", name, err)
		}
		if c.SessionID != sessionID {
			continue
		}
		c.Messages = nil
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// DeleteConversation removes the conversation.
func (s *Store) DeleteConversation(ctx context.Context, id, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.load(id, sessionID); err != nil {
		return err
	}
	if err := os.Remove(s.path(id)); err != nil {
		return fmt.Errorf("json: delete conversation: %w", err)
	}
	return nil
}

// SetTitle replaces the conversation's title.
func (s *Store) SetTitle(ctx context.Context, id, sessionID, title string) error {
	return s.update(id, sessionID, func(c *parley.Conversation) error {
		c.Title = title
		return nil
	})
}

// AppendMessage appends msg to the conversation's transcript.
func (s *Store) AppendMessage(ctx context.Context, id, sessionID string, msg parley.Message) error {
	return s.update(id, sessionID, func(c *parley.Conversation) error {
		if err := parley.ValidateMessage(msg); err != nil {
			return err
		}
		c.Messages = append(c.Messages, msg)
		return nil
	})
}

func (s *Store) update(id, sessionID string, fn func(*parley.Conversation) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.load(id, sessionID)
	if err != nil {
		return err
	}
	if err := fn(&c); err != nil {
		return fmt.Errorf("json: update conversation: %w", err)
	}
	if err := Save(s.path(id), c); err != nil {
		return fmt.Errorf("json: update conversation: %w", err)
	}
	return nil
}

// load must be called with mu held. IDs that are not UUIDs are reported as
// not found so they never reach the filesystem.
func (s *Store) load(id, sessionID string) (parley.Conversation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return parley.Conversation{}, fmt.Errorf("json: %w", parley.ErrNotFound)
	}
	c, err := Load(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return parley.Conversation{}, fmt.Errorf("json: %w", parley.ErrNotFound)
	}
	if err != nil {
		return parley.Conversation{}, fmt.Errorf("json: load conversation: %w", err)
	}
	if c.SessionID != sessionID {
		return parley.Conversation{}, fmt.Errorf("json: %w", parley.ErrNotFound)
	}
	return c, nil
}
