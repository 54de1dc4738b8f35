package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/fwojciec/parley"
	"github.com/fwojciec/parley/sse"
)

// Interface compliance checks.
var (
	_ parley.Transport           = (*Client)(nil)
	_ parley.ConversationService = (*Client)(nil)
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// Client talks to a chat server over HTTP.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the server base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sets a bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithLogger sets the logger used by the client and the streams it opens.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a new [Client] with the given options.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    parley.DefaultBaseURL,
		httpClient: http.DefaultClient,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Send posts a prompt to the streaming endpoint and returns a stream over
// the response. Non-2xx responses and responses without a body fail with a
// *parley.TransportError before any event is produced.
func (c *Client) Send(ctx context.Context, req parley.SendRequest) (parley.Stream, error) {
	body, err := json.Marshal(messageRequest{Content: req.Content})
	if err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	u := c.url(req.SessionID, "conversations", req.ConversationID, "messages", "stream")
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.requestError(ctx, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, parseHTTPError(resp, "stream request failed")
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		if resp.Body != nil {
			resp.Body.Close()
		}
		return nil, &parley.TransportError{StatusCode: resp.StatusCode, Message: "stream request failed"}
	}

	c.logger.Debug("stream opened", "conversation", req.ConversationID, "status", resp.StatusCode)
	return sse.NewStream(ctx, resp.Body, sse.WithLogger(c.logger)), nil
}

// CreateConversation creates a conversation owned by sessionID.
func (c *Client) CreateConversation(ctx context.Context, sessionID, title string) (*parley.Conversation, error) {
	var dto conversationDTO
	in := createConversationRequest{SessionID: sessionID, Title: title}
	if err := c.do(ctx, http.MethodPost, c.url("", "conversations"), in, &dto); err != nil {
		return nil, err
	}
	return dto.conversation(), nil
}

// FindConversation fetches a conversation with its messages.
func (c *Client) FindConversation(ctx context.Context, id, sessionID string) (*parley.Conversation, error) {
	var dto conversationDTO
	if err := c.do(ctx, http.MethodGet, c.url(sessionID, "conversations", id), nil, &dto); err != nil {
		return nil, err
	}
	return dto.conversation(), nil
}

// ListConversations lists the session's conversations, newest first.
func (c *Client) ListConversations(ctx context.Context, sessionID string) ([]*parley.Conversation, error) {
	var dtos []conversationDTO
	if err := c.do(ctx, http.MethodGet, c.url(sessionID, "conversations"), nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]*parley.Conversation, len(dtos))
	for i, d := range dtos {
		out[i] = d.conversation()
	}
	return out, nil
}

// DeleteConversation deletes a conversation.
func (c *Client) DeleteConversation(ctx context.Context, id, sessionID string) error {
	return c.do(ctx, http.MethodDelete, c.url(sessionID, "conversations", id), nil, nil)
}

// SendMessage posts a prompt to the non-streaming endpoint and returns the
// stored prompt and reply.
func (c *Client) SendMessage(ctx context.Context, req parley.SendRequest) (parley.MessagePair, error) {
	var dto messagePairDTO
	in := messageRequest{Content: req.Content}
	if err := c.do(ctx, http.MethodPost, c.url(req.SessionID, "conversations", req.ConversationID, "messages"), in, &dto); err != nil {
		return parley.MessagePair{}, err
	}
	return parley.MessagePair{
		User:      dto.UserMessage.message(),
		Assistant: dto.AssistantMessage.message(),
	}, nil
}

// url joins path segments onto the base URL and adds the session query
// parameter when sessionID is set.
func (c *Client) url(sessionID string, segments ...string) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	if sessionID != "" {
		b.WriteString("?session_id=")
		b.WriteString(url.QueryEscape(sessionID))
	}
	return b.String()
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// do sends a JSON request and decodes a JSON response into out, if non-nil.
func (c *Client) do(ctx context.Context, method, u string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("http: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("http: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.requestError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseHTTPError(resp, "request failed")
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("http: decode response: %w", err)
	}
	return nil
}

// requestError reports a request that never produced a response. A
// cancelled context is returned as such rather than as a transport failure.
func (c *Client) requestError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("http: %w", ctxErr)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	return &parley.TransportError{Message: err.Error()}
}

// parseHTTPError builds a TransportError from a non-2xx response, preferring
// the "detail" field of a JSON body, then the raw body, then fallback.
func parseHTTPError(resp *http.Response, fallback string) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return &parley.TransportError{StatusCode: resp.StatusCode, Message: fallback}
	}
	msg := strings.TrimSpace(string(body))
	var apiErr errorResponse
	if json.Unmarshal(body, &apiErr) == nil && len(apiErr.Detail) > 0 {
		var detail string
		if json.Unmarshal(apiErr.Detail, &detail) == nil {
			msg = detail
		} else {
			msg = string(apiErr.Detail)
		}
	}
	if msg == "" {
		msg = fallback
	}
	return &parley.TransportError{StatusCode: resp.StatusCode, Message: msg}
}
