// Package mock provides test doubles for parley interfaces using function fields.
package mock

import (
	"context"

	"github.com/fwojciec/parley"
)

// Interface compliance checks.
var (
	_ parley.Transport           = (*Transport)(nil)
	_ parley.ConversationService = (*ConversationService)(nil)
	_ parley.ConversationStore   = (*ConversationStore)(nil)
	_ parley.Responder           = (*Responder)(nil)
)

// Transport is a test double for parley.Transport.
// Set SendFn before calling Send.
type Transport struct {
	SendFn func(ctx context.Context, req parley.SendRequest) (parley.Stream, error)
}

// Send delegates to SendFn.
func (t *Transport) Send(ctx context.Context, req parley.SendRequest) (parley.Stream, error) {
	return t.SendFn(ctx, req)
}

// ConversationService is a test double for parley.ConversationService.
type ConversationService struct {
	CreateConversationFn func(ctx context.Context, sessionID, title string) (*parley.Conversation, error)
	FindConversationFn   func(ctx context.Context, id, sessionID string) (*parley.Conversation, error)
	ListConversationsFn  func(ctx context.Context, sessionID string) ([]*parley.Conversation, error)
	DeleteConversationFn func(ctx context.Context, id, sessionID string) error
	SendMessageFn        func(ctx context.Context, req parley.SendRequest) (parley.MessagePair, error)
}

func (s *ConversationService) CreateConversation(ctx context.Context, sessionID, title string) (*parley.Conversation, error) {
	return s.CreateConversationFn(ctx, sessionID, title)
}

func (s *ConversationService) FindConversation(ctx context.Context, id, sessionID string) (*parley.Conversation, error) {
	return s.FindConversationFn(ctx, id, sessionID)
}

func (s *ConversationService) ListConversations(ctx context.Context, sessionID string) ([]*parley.Conversation, error) {
	return s.ListConversationsFn(ctx, sessionID)
}

func (s *ConversationService) DeleteConversation(ctx context.Context, id, sessionID string) error {
	return s.DeleteConversationFn(ctx, id, sessionID)
}

func (s *ConversationService) SendMessage(ctx context.Context, req parley.SendRequest) (parley.MessagePair, error) {
	return s.SendMessageFn(ctx, req)
}

// ConversationStore is a test double for parley.ConversationStore.
type ConversationStore struct {
	CreateConversationFn func(ctx context.Context, sessionID, title string) (*parley.Conversation, error)
	FindConversationFn   func(ctx context.Context, id, sessionID string) (*parley.Conversation, error)
	ListConversationsFn  func(ctx context.Context, sessionID string) ([]*parley.Conversation, error)
	DeleteConversationFn func(ctx context.Context, id, sessionID string) error
	SetTitleFn           func(ctx context.Context, id, sessionID, title string) error
	AppendMessageFn      func(ctx context.Context, id, sessionID string, msg parley.Message) error
}

func (s *ConversationStore) CreateConversation(ctx context.Context, sessionID, title string) (*parley.Conversation, error) {
	return s.CreateConversationFn(ctx, sessionID, title)
}

func (s *ConversationStore) FindConversation(ctx context.Context, id, sessionID string) (*parley.Conversation, error) {
	return s.FindConversationFn(ctx, id, sessionID)
}

func (s *ConversationStore) ListConversations(ctx context.Context, sessionID string) ([]*parley.Conversation, error) {
	return s.ListConversationsFn(ctx, sessionID)
}

func (s *ConversationStore) DeleteConversation(ctx context.Context, id, sessionID string) error {
	return s.DeleteConversationFn(ctx, id, sessionID)
}

func (s *ConversationStore) SetTitle(ctx context.Context, id, sessionID, title string) error {
	return s.SetTitleFn(ctx, id, sessionID, title)
}

func (s *ConversationStore) AppendMessage(ctx context.Context, id, sessionID string, msg parley.Message) error {
	return s.AppendMessageFn(ctx, id, sessionID, msg)
}

// Responder is a test double for parley.Responder.
type Responder struct {
	ReplyFn func(ctx context.Context, history []parley.Message, prompt string, emit func(string) error) error
}

// Reply delegates to ReplyFn.
func (r *Responder) Reply(ctx context.Context, history []parley.Message, prompt string, emit func(string) error) error {
	return r.ReplyFn(ctx, history, prompt, emit)
}
