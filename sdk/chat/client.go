// Package chat consumes the incremental generation stream of a local chat
// backend.
//
// The backend answers a chat request with a long-lived response body of
// "data: {json}" lines. The Controller reads that body chunk by chunk, decodes
// and frames it, parses each frame into an Event and dispatches it to the
// Session of the in-flight response. UI layers observe the session through
// Callbacks.
//
// Example usage:
//
//	client := chat.NewClient("http://localhost:8000")
//	ctrl := chat.NewController(client,
//	    chat.WithConversationStore(client),
//	    chat.WithCallbacks(chat.Callbacks{
//	        OnContentToken: func(tok string) { fmt.Print(tok) },
//	    }),
//	)
//
//	sess, err := ctrl.Send(ctx, "", &chat.SendRequest{Message: "Hello!"})
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// HeaderRequestID carries a per-request id for correlating server logs.
	HeaderRequestID = "X-Request-ID"
	// HeaderConversationID names the conversation a request belongs to.
	HeaderConversationID = "X-Conversation-ID"
)

// Transport opens event streams. *Client implements it.
type Transport interface {
	OpenStream(ctx context.Context, conversationID string, req *SendRequest) (io.ReadCloser, error)
	OpenRegenerate(ctx context.Context, conversationID, messageID string) (io.ReadCloser, error)
}

// ConversationStore performs the non-streaming conversation mutations that
// precede an edit or a fork. *Client implements it.
type ConversationStore interface {
	EditMessage(ctx context.Context, conversationID, messageID, content string) error
	ForkConversation(ctx context.Context, conversationID, messageID string) (string, error)
}

// Client talks to the chat backend over HTTP.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	streamClient *http.Client
	headers      http.Header
	logger       *Logger
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets the client used for non-streaming requests.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithStreamClient sets the client used for event streams. It should not
// carry a timeout, since a generation can run for minutes.
func WithStreamClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.streamClient = c
	}
}

// WithTimeout sets the timeout of non-streaming requests.
func WithTimeout(d time.Duration) ClientOption {
	return func(client *Client) {
		client.httpClient.Timeout = d
	}
}

// WithHeader adds a header to every request, e.g. an auth cookie.
func WithHeader(key, value string) ClientOption {
	return func(client *Client) {
		client.headers.Add(key, value)
	}
}

// WithLogger sets the client's logger.
func WithLogger(l *Logger) ClientOption {
	return func(client *Client) {
		client.logger = l
	}
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		streamClient: &http.Client{},
		headers:      make(http.Header),
		logger:       GetLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the backend address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) newRequest(ctx context.Context, method, path, conversationID string, body any) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(HeaderRequestID, uuid.NewString())
	if conversationID != "" {
		req.Header.Set(HeaderConversationID, conversationID)
	}
	return req, nil
}

// doRequest performs an HTTP request and decodes the JSON response.
func (c *Client) doRequest(ctx context.Context, method, path, conversationID string, body, result any) error {
	req, err := c.newRequest(ctx, method, path, conversationID, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("request", "method", method, "path", path, "request_id", req.Header.Get(HeaderRequestID))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(bodyBytes))}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

// openStream starts a streaming request and returns its body unread. The
// caller owns the body and must close it.
func (c *Client) openStream(ctx context.Context, path, conversationID string, body any) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, http.MethodPost, path, conversationID, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	c.logger.Debug("open stream", "path", path, "conversation", conversationID, "request_id", req.Header.Get(HeaderRequestID))

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode >= 400 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(bodyBytes))}
	}

	return resp.Body, nil
}

// =============================================================================
// Streams
// =============================================================================

// OpenStream sends a message and returns the event stream of the reply. An
// empty conversationID starts a new conversation.
func (c *Client) OpenStream(ctx context.Context, conversationID string, req *SendRequest) (io.ReadCloser, error) {
	if req.IsEmpty() {
		return nil, ErrEmptyMessage
	}
	return c.openStream(ctx, "/api/chat/stream", conversationID, req)
}

// OpenRegenerate replaces the reply anchored at messageID. messageID names
// either the assistant reply itself or the user message it answers.
func (c *Client) OpenRegenerate(ctx context.Context, conversationID, messageID string) (io.ReadCloser, error) {
	if messageID == "" {
		return nil, ErrNoMessageID
	}
	return c.openStream(ctx, "/api/chat/regenerate", conversationID, &RegenerateRequest{MessageID: messageID})
}

// =============================================================================
// Conversations
// =============================================================================

// GetConversation fetches a stored conversation.
func (c *Client) GetConversation(ctx context.Context, conversationID string) (*Conversation, error) {
	var result Conversation
	path := "/api/conversations/" + url.PathEscape(conversationID)
	if err := c.doRequest(ctx, http.MethodGet, path, conversationID, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// EditMessage replaces the content of a stored user message.
func (c *Client) EditMessage(ctx context.Context, conversationID, messageID, content string) error {
	if messageID == "" {
		return ErrNoMessageID
	}
	path := "/api/conversations/" + url.PathEscape(conversationID) + "/messages/" + url.PathEscape(messageID)
	return c.doRequest(ctx, http.MethodPatch, path, conversationID, &EditMessageRequest{Content: content}, nil)
}

// ForkConversation copies a conversation up to messageID and returns the id
// of the copy.
func (c *Client) ForkConversation(ctx context.Context, conversationID, messageID string) (string, error) {
	if messageID == "" {
		return "", ErrNoMessageID
	}
	var result ForkResponse
	path := "/api/conversations/" + url.PathEscape(conversationID) + "/fork"
	if err := c.doRequest(ctx, http.MethodPost, path, conversationID, &ForkRequest{MessageID: messageID}, &result); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", fmt.Errorf("fork response carried no conversation id")
	}
	return result.ID, nil
}

// =============================================================================
// Health
// =============================================================================

// Health checks the server health.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var result HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/health", "", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
