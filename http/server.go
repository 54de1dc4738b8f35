package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fwojciec/parley"
	"github.com/fwojciec/parley/sse"
	"github.com/rivo/uniseg"
)

// maxRequestBody bounds JSON request bodies.
const maxRequestBody = 1 << 20

// Server serves the chat API.
type Server struct {
	store        parley.ConversationStore
	responder    parley.Responder
	logger       *slog.Logger
	historyLimit int
	origins      []string
	token        string
	handler      http.Handler
}

// ServerOption configures a [Server].
type ServerOption func(*Server)

// WithServerLogger sets the logger for request and error logging.
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// WithHistoryLimit sets how many recent messages are passed to the responder.
func WithHistoryLimit(n int) ServerOption {
	return func(s *Server) {
		if n >= 0 {
			s.historyLimit = n
		}
	}
}

// WithAllowedOrigins enables CORS for the given origins.
func WithAllowedOrigins(origins ...string) ServerOption {
	return func(s *Server) { s.origins = origins }
}

// WithRequiredToken makes every route except /health require the bearer token.
func WithRequiredToken(token string) ServerOption {
	return func(s *Server) { s.token = token }
}

// NewServer returns a Server storing conversations in store and producing
// replies with responder.
func NewServer(store parley.ConversationStore, responder parley.Responder, opts ...ServerOption) *Server {
	s := &Server{
		store:        store,
		responder:    responder,
		logger:       slog.New(slog.DiscardHandler),
		historyLimit: DefaultHistoryLimit,
	}
	for _, o := range opts {
		o(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /conversations", s.handleCreateConversation)
	mux.HandleFunc("GET /conversations", s.handleListConversations)
	mux.HandleFunc("GET /conversations/{id}", s.handleGetConversation)
	mux.HandleFunc("DELETE /conversations/{id}", s.handleDeleteConversation)
	mux.HandleFunc("GET /conversations/{id}/messages", s.handleListMessages)
	mux.HandleFunc("POST /conversations/{id}/messages", s.handleSendMessage)
	mux.HandleFunc("POST /conversations/{id}/messages/stream", s.handleStreamMessage)
	mux.HandleFunc("GET /stream/test", s.handleStreamTest)

	mws := []middleware{recoverPanics(s.logger), logRequests(s.logger)}
	if len(s.origins) > 0 {
		mws = append(mws, allowOrigins(s.origins))
	}
	if s.token != "" {
		mws = append(mws, requireToken(s.token, s.logger))
	}
	s.handler = chain(mux, mws...)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	conv, err := s.store.CreateConversation(r.Context(), req.SessionID, req.Title)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toConversationDTO(conv))
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := requireSession(w, r)
	if !ok {
		return
	}
	convs, err := s.store.ListConversations(r.Context(), sessionID)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	out := make([]conversationDTO, len(convs))
	for i, c := range convs {
		out[i] = toConversationDTO(c)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.findConversation(w, r)
	if !ok {
		return
	}
	dto := toConversationDTO(conv)
	if dto.Messages == nil {
		dto.Messages = []messageDTO{}
	}
	writeJSON(w, http.StatusOK, dto)
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := requireSession(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteConversation(r.Context(), r.PathValue("id"), sessionID); err != nil {
		s.storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.findConversation(w, r)
	if !ok {
		return
	}
	out := make([]messageDTO, len(conv.Messages))
	for i, m := range conv.Messages {
		out[i] = toMessageDTO(conv.ID, m)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	ex, ok := s.beginExchange(w, r)
	if !ok {
		return
	}
	text, err := s.collectReply(r.Context(), ex.history, ex.prompt)
	if err != nil {
		s.logger.Warn("reply failed", "conversation", ex.conv.ID, "error", err)
		text = FailedReply
	}
	assistant, err := s.finishExchange(r.Context(), ex, text)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messagePairDTO{
		UserMessage:      toMessageDTO(ex.conv.ID, ex.user),
		AssistantMessage: toMessageDTO(ex.conv.ID, assistant),
	})
}

func (s *Server) handleStreamMessage(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}
	ex, ok := s.beginExchange(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	setStreamHeaders(w)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	var reply strings.Builder
	emit := func(chunk string) error {
		reply.WriteString(chunk)
		if err := sse.WriteFrame(w, parley.Frame{Event: parley.KindMessage, Data: chunk}); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	err := s.responder.Reply(ctx, ex.history, ex.prompt, emit)
	if ctx.Err() != nil {
		s.logger.Info("client disconnected mid-stream", "conversation", ex.conv.ID)
		return
	}
	if err != nil {
		s.logger.Warn("reply failed", "conversation", ex.conv.ID, "error", err)
		if reply.Len() == 0 {
			_ = emit(FailedReply)
		}
	}

	text := strings.TrimSpace(reply.String())
	if text == "" {
		// Nothing usable was streamed; fall back to one complete reply.
		fallback, err := s.collectReply(ctx, ex.history, ex.prompt)
		if err != nil {
			s.logger.Warn("fallback reply failed", "conversation", ex.conv.ID, "error", err)
		}
		text = strings.TrimSpace(fallback)
		if text != "" {
			_ = emit(text)
		}
	}

	if _, err := s.finishExchange(ctx, ex, text); err != nil {
		s.logger.Error("store reply", "conversation", ex.conv.ID, "error", err)
	}
	_ = sse.WriteFrame(w, parley.Frame{Event: parley.KindDone, Data: DoneData})
	flusher.Flush()
}

// handleStreamTest streams a fixed sentence one word at a time. It exercises
// the wire format without touching storage.
func (s *Server) handleStreamTest(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}
	setStreamHeaders(w)
	w.WriteHeader(http.StatusOK)
	for _, word := range strings.Fields("This is a fake streaming response from the server.") {
		if err := sse.WriteFrame(w, parley.Frame{Event: parley.KindMessage, Data: word + " "}); err != nil {
			return
		}
		flusher.Flush()
	}
	_ = sse.WriteFrame(w, parley.Frame{Event: parley.KindDone, Data: DoneData})
	flusher.Flush()
}

// exchange is a validated prompt whose user message has been stored.
type exchange struct {
	conv      *parley.Conversation
	sessionID string
	prompt    string
	user      parley.Message
	history   []parley.Message
}

// beginExchange validates the prompt, titles an untitled conversation and
// stores the user message. It writes an error response and returns false on
// failure.
func (s *Server) beginExchange(w http.ResponseWriter, r *http.Request) (*exchange, bool) {
	var req messageRequest
	if !decodeBody(w, r, &req) {
		return nil, false
	}
	if utf8.RuneCountInString(req.Content) > parley.MaxPromptLength {
		writeError(w, http.StatusBadRequest, "Message too long")
		return nil, false
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "Message must not be empty")
		return nil, false
	}
	conv, ok := s.findConversation(w, r)
	if !ok {
		return nil, false
	}
	ctx := r.Context()

	if conv.Title == "" {
		conv.Title = truncateTitle(req.Content, MaxTitleLength)
		if err := s.store.SetTitle(ctx, conv.ID, conv.SessionID, conv.Title); err != nil {
			s.storeError(w, r, err)
			return nil, false
		}
	}

	history := conv.Messages
	if len(history) > s.historyLimit {
		history = history[len(history)-s.historyLimit:]
	}

	user := parley.Message{Role: parley.RoleUser, Content: req.Content, CreatedAt: time.Now().UTC()}
	if err := s.store.AppendMessage(ctx, conv.ID, conv.SessionID, user); err != nil {
		s.storeError(w, r, err)
		return nil, false
	}
	return &exchange{
		conv:      conv,
		sessionID: conv.SessionID,
		prompt:    req.Content,
		user:      user,
		history:   append([]parley.Message(nil), history...),
	}, true
}

// finishExchange stores the assistant reply.
func (s *Server) finishExchange(ctx context.Context, ex *exchange, text string) (parley.Message, error) {
	if text == "" {
		text = EmptyReply
	}
	msg := parley.Message{Role: parley.RoleAssistant, Content: text, CreatedAt: time.Now().UTC()}
	if err := s.store.AppendMessage(ctx, ex.conv.ID, ex.sessionID, msg); err != nil {
		return parley.Message{}, err
	}
	return msg, nil
}

func (s *Server) collectReply(ctx context.Context, history []parley.Message, prompt string) (string, error) {
	var b strings.Builder
	err := s.responder.Reply(ctx, history, prompt, func(chunk string) error {
		b.WriteString(chunk)
		return nil
	})
	return b.String(), err
}

func (s *Server) findConversation(w http.ResponseWriter, r *http.Request) (*parley.Conversation, bool) {
	sessionID, ok := requireSession(w, r)
	if !ok {
		return nil, false
	}
	conv, err := s.store.FindConversation(r.Context(), r.PathValue("id"), sessionID)
	if err != nil {
		s.storeError(w, r, err)
		return nil, false
	}
	return conv, true
}

func (s *Server) storeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, parley.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	if errors.Is(err, parley.ErrValidation) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Error("store failure", "method", r.Method, "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func requireSession(w http.ResponseWriter, r *http.Request) (string, bool) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return "", false
	}
	return sessionID, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func setStreamHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// truncateTitle returns the first n user-perceived characters of s.
func truncateTitle(s string, n int) string {
	g := uniseg.NewGraphemes(s)
	count := 0
	for g.Next() {
		if count == n {
			from, _ := g.Positions()
			return s[:from]
		}
		count++
	}
	return s
}
