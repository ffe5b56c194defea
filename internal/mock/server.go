// Package mock serves a local chat backend that speaks the generation stream
// protocol. Replies are canned and chosen by keywords in the user message.
package mock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/laundryguy77/PeanutChat-sub001/sdk/chat"
)

// DefaultTokenRate is the default number of content tokens sent per second.
const DefaultTokenRate = 60

type conversation struct {
	id       string
	messages []chat.StoredMessage
}

type Server struct {
	tokenRate rate.Limit
	logger    *chat.Logger

	mu            sync.Mutex
	conversations map[string]*conversation
}

// Option configures the server.
type Option func(*Server)

// WithTokenRate sets how many content tokens are sent per second. Zero or a
// negative value disables pacing.
func WithTokenRate(perSecond float64) Option {
	return func(s *Server) {
		if perSecond <= 0 {
			s.tokenRate = rate.Inf
			return
		}
		s.tokenRate = rate.Limit(perSecond)
	}
}

// WithLogger sets the server's logger.
func WithLogger(l *chat.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

func NewServer(opts ...Option) *Server {
	s := &Server{
		tokenRate:     DefaultTokenRate,
		logger:        chat.GetLogger(),
		conversations: make(map[string]*conversation),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler of the backend.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/api/health", s.healthHandler)
	r.Post("/api/chat/stream", s.chatHandler)
	r.Post("/api/chat/regenerate", s.regenerateHandler)
	r.Route("/api/conversations/{id}", func(r chi.Router) {
		r.Get("/", s.conversationHandler)
		r.Patch("/messages/{message_id}", s.editHandler)
		r.Post("/fork", s.forkHandler)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"conversation", r.Header.Get(chat.HeaderConversationID),
			"request_id", middleware.GetReqID(r.Context()),
		)
		next.ServeHTTP(w, r)
	})
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("mock server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Messages returns a copy of a stored conversation.
func (s *Server) Messages(conversationID string) ([]chat.StoredMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, false
	}
	return append([]chat.StoredMessage(nil), conv.messages...), true
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, chat.HealthResponse{Status: "ok"})
}

func (s *Server) conversationHandler(w http.ResponseWriter, r *http.Request) {
	msgs, ok := s.Messages(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "conversation not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, chat.Conversation{ID: chi.URLParam(r, "id"), Messages: msgs})
}

func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil || !gjson.ValidBytes(body) {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	message := gjson.GetBytes(body, "message").String()
	think := gjson.GetBytes(body, "think").Bool()
	if strings.TrimSpace(message) == "" && !gjson.GetBytes(body, "images").IsArray() {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	convID := r.Header.Get(chat.HeaderConversationID)
	conv, created := s.conversation(convID)
	if conv == nil {
		http.Error(w, "conversation not found", http.StatusNotFound)
		return
	}
	s.appendMessage(conv, chat.StoredMessage{ID: uuid.NewString(), Role: "user", Content: message})

	st, ok := newStream(w, s.tokenRate)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	if created {
		st.send("conversation", map[string]any{"id": conv.id})
	}
	s.reply(r.Context(), st, conv, message, think)
}

func (s *Server) regenerateHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	messageID := gjson.GetBytes(body, "message_id").String()

	s.mu.Lock()
	conv := s.conversations[r.Header.Get(chat.HeaderConversationID)]
	var prompt string
	found := false
	if conv != nil {
		prompt, found = conv.truncateForRegenerate(messageID)
	}
	s.mu.Unlock()

	if !found {
		http.Error(w, "message not found", http.StatusNotFound)
		return
	}

	st, ok := newStream(w, s.tokenRate)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	s.reply(r.Context(), st, conv, prompt, gjson.GetBytes(body, "think").Bool())
}

func (s *Server) editHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.conversations[chi.URLParam(r, "id")]
	if conv == nil {
		http.Error(w, "conversation not found", http.StatusNotFound)
		return
	}
	idx := conv.index(chi.URLParam(r, "message_id"))
	if idx < 0 || conv.messages[idx].Role != "user" {
		http.Error(w, "user message not found", http.StatusNotFound)
		return
	}
	conv.messages[idx].Content = gjson.GetBytes(body, "content").String()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) forkHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	messageID := gjson.GetBytes(body, "message_id").String()

	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.conversations[chi.URLParam(r, "id")]
	if conv == nil {
		http.Error(w, "conversation not found", http.StatusNotFound)
		return
	}
	idx := conv.index(messageID)
	if idx < 0 {
		http.Error(w, "message not found", http.StatusNotFound)
		return
	}

	// The fork keeps the history before the branching message.
	fork := &conversation{
		id:       uuid.NewString(),
		messages: append([]chat.StoredMessage(nil), conv.messages[:idx]...),
	}
	s.conversations[fork.id] = fork
	s.logger.Info("conversation forked", "from", conv.id, "to", fork.id, "messages", len(fork.messages))
	writeJSON(w, http.StatusOK, chat.ForkResponse{ID: fork.id})
}

// conversation returns the conversation with id, creating one when id is
// empty.
func (s *Server) conversation(id string) (*conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		return s.conversations[id], false
	}
	conv := &conversation{id: uuid.NewString()}
	s.conversations[conv.id] = conv
	return conv, true
}

func (s *Server) appendMessage(conv *conversation, msg chat.StoredMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv.messages = append(conv.messages, msg)
}

func (c *conversation) index(messageID string) int {
	for i, m := range c.messages {
		if m.ID == messageID {
			return i
		}
	}
	return -1
}

// truncateForRegenerate drops the reply anchored at messageID and returns the
// user prompt it answered. messageID may name the assistant reply or the user
// message before it.
func (c *conversation) truncateForRegenerate(messageID string) (string, bool) {
	idx := c.index(messageID)
	if idx < 0 {
		return "", false
	}
	if c.messages[idx].Role == "assistant" {
		idx--
	}
	if idx < 0 || c.messages[idx].Role != "user" {
		return "", false
	}
	c.messages = c.messages[:idx+1]
	return c.messages[idx].Content, true
}

// reply streams a canned answer to prompt and stores it. A client that goes
// away mid-reply leaves the partial answer stored.
func (s *Server) reply(ctx context.Context, st *stream, conv *conversation, prompt string, think bool) {
	started := time.Now()
	script := scriptFor(prompt)
	var content strings.Builder

	defer func() {
		msgID := uuid.NewString()
		s.appendMessage(conv, chat.StoredMessage{ID: msgID, Role: "assistant", Content: content.String()})
		if ctx.Err() != nil {
			s.logger.Info("client went away", "conversation", conv.id, "duration_ms", time.Since(started).Milliseconds())
			return
		}
		st.send("message", map[string]any{"id": msgID, "role": "assistant"})
		st.send("done", map[string]any{"finish_reason": "stop"})
		s.logger.Debug("reply sent", "conversation", conv.id, "frames", st.frames, "duration_ms", time.Since(started).Milliseconds())
	}()

	if think {
		for _, tok := range tokenize(script.thinking) {
			if st.wait(ctx) != nil {
				return
			}
			st.send("thinking", map[string]any{"thinking": tok})
		}
		st.send("thinking", map[string]any{"thinking_done": true})
	}

	for _, tool := range script.tools {
		st.send("tool_call", map[string]any{"name": tool.name, "arguments": tool.arguments})
		if st.wait(ctx) != nil {
			return
		}
		st.send("tool_result", map[string]any{"result": tool.result})
	}

	for _, tok := range tokenize(script.content) {
		if st.wait(ctx) != nil {
			return
		}
		content.WriteString(tok)
		st.send("token", map[string]any{"content": tok})
	}

	if script.failure != "" {
		st.send("error", map[string]any{"message": script.failure})
	}
}

// stream writes frames to a streaming response.
type stream struct {
	w       http.ResponseWriter
	flusher http.Flusher
	limiter *rate.Limiter
	frames  int
}

func newStream(w http.ResponseWriter, limit rate.Limit) (*stream, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	return &stream{
		w:       w,
		flusher: flusher,
		limiter: rate.NewLimiter(limit, 1),
	}, true
}

func (st *stream) wait(ctx context.Context) error {
	return st.limiter.Wait(ctx)
}

func (st *stream) send(event string, data any) {
	jsonData, _ := json.Marshal(data)
	fmt.Fprintf(st.w, "event: %s\ndata: %s\n\n", event, jsonData)
	st.flusher.Flush()
	st.frames++
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
