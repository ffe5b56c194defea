package chat_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/laundryguy77/PeanutChat-sub001/sdk/chat"
)

// backend is a minimal chat server recording what it receives.
type backend struct {
	server *httptest.Server

	mu       sync.Mutex
	requests []recorded
	edits    map[string]string
	frames   []string
}

type recorded struct {
	method         string
	path           string
	body           string
	requestID      string
	conversationID string
	auth           string
}

func newBackend(t *testing.T) *backend {
	b := &backend{edits: make(map[string]string)}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat/stream", b.handleStream)
	mux.HandleFunc("POST /api/chat/regenerate", b.handleStream)
	mux.HandleFunc("PATCH /api/conversations/{id}/messages/{message_id}", b.handleEdit)
	mux.HandleFunc("POST /api/conversations/{id}/fork", b.handleFork)
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		b.record(r, "")
		fmt.Fprint(w, `{"status":"ok"}`)
	})

	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

func (b *backend) record(r *http.Request, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, recorded{
		method:         r.Method,
		path:           r.URL.Path,
		body:           body,
		requestID:      r.Header.Get(chat.HeaderRequestID),
		conversationID: r.Header.Get(chat.HeaderConversationID),
		auth:           r.Header.Get("Authorization"),
	})
}

func (b *backend) last() recorded {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests[len(b.requests)-1]
}

func (b *backend) handleStream(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	b.record(r, string(body))

	if gjson.GetBytes(body, "message").String() == "fail" {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	flusher := w.(http.Flusher)

	b.mu.Lock()
	frames := b.frames
	b.mu.Unlock()

	// Write every frame in two pieces to exercise framing across reads.
	for _, frame := range frames {
		line := "data: " + frame + "\n"
		half := len(line) / 2
		io.WriteString(w, line[:half])
		flusher.Flush()
		io.WriteString(w, line[half:])
		flusher.Flush()
	}
}

func (b *backend) handleEdit(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	b.record(r, string(body))

	if r.PathValue("message_id") == "missing" {
		http.Error(w, "message not found", http.StatusNotFound)
		return
	}
	b.mu.Lock()
	b.edits[r.PathValue("message_id")] = gjson.GetBytes(body, "content").String()
	b.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (b *backend) handleFork(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	b.record(r, string(body))
	fmt.Fprintf(w, `{"id":"%s-fork"}`, r.PathValue("id"))
}

func (b *backend) setFrames(frames ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames = frames
}

func TestSendRequestJSON(t *testing.T) {
	body, err := chat.SendRequest{Message: "hi"}.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"hi"}`, string(body))

	body, err = chat.SendRequest{
		Message: "look",
		Images:  []string{"aW1n"},
		Think:   chat.Bool(true),
		Files:   []chat.FileAttachment{{Name: "a.txt", Content: "YQ=="}},
	}.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"look","images":["aW1n"],"think":true,"files":[{"name":"a.txt","content":"YQ=="}]}`, string(body))
}

func TestClientStream(t *testing.T) {
	b := newBackend(t)
	b.setFrames(
		`{"id":"conv-42"}`,
		`{"thinking":"Considering…"}`,
		`{"thinking_done":true}`,
		`{"content":"Grüße"}`,
		`{"id":"msg-1","role":"assistant"}`,
		`{"finish_reason":"stop"}`,
	)

	client := chat.NewClient(b.server.URL+"/", chat.WithHeader("Authorization", "Bearer token"))
	ctrl := chat.NewController(client, chat.WithConversationStore(client))

	sess, err := ctrl.Send(context.Background(), "", &chat.SendRequest{Message: "hello", Think: chat.Bool(false)})
	require.NoError(t, err)

	snap := sess.Snapshot()
	assert.Equal(t, "Grüße", snap.Content)
	assert.Equal(t, "Considering…", snap.Thinking)
	assert.Equal(t, "conv-42", snap.ConversationID)
	assert.Equal(t, "msg-1", snap.MessageID)
	assert.Equal(t, "stop", snap.FinishReason)

	req := b.last()
	assert.Equal(t, "/api/chat/stream", req.path)
	assert.JSONEq(t, `{"message":"hello","think":false}`, req.body)
	assert.NotEmpty(t, req.requestID)
	assert.Empty(t, req.conversationID)
	assert.Equal(t, "Bearer token", req.auth)
}

func TestClientRequestIDs(t *testing.T) {
	b := newBackend(t)
	b.setFrames(`{"finish_reason":"stop"}`)
	client := chat.NewClient(b.server.URL)
	ctrl := chat.NewController(client)

	for i := 0; i < 2; i++ {
		_, err := ctrl.Send(context.Background(), "conv-1", &chat.SendRequest{Message: "hi"})
		require.NoError(t, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	require.Len(t, b.requests, 2)
	assert.NotEqual(t, b.requests[0].requestID, b.requests[1].requestID)
	assert.Equal(t, "conv-1", b.requests[0].conversationID)
}

func TestClientHTTPError(t *testing.T) {
	b := newBackend(t)
	client := chat.NewClient(b.server.URL)

	_, err := client.OpenStream(context.Background(), "conv-1", &chat.SendRequest{Message: "fail"})
	var httpErr *chat.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)
	assert.Equal(t, "model not loaded", httpErr.Body)

	_, err = client.OpenStream(context.Background(), "conv-1", &chat.SendRequest{})
	assert.ErrorIs(t, err, chat.ErrEmptyMessage)
}

func TestClientRegenerate(t *testing.T) {
	b := newBackend(t)
	b.setFrames(`{"content":"again"}`, `{"finish_reason":"stop"}`)
	client := chat.NewClient(b.server.URL)
	ctrl := chat.NewController(client)

	sess, err := ctrl.Regenerate(context.Background(), "conv-1", "msg-5")
	require.NoError(t, err)
	assert.Equal(t, "again", sess.Content())

	req := b.last()
	assert.Equal(t, "/api/chat/regenerate", req.path)
	assert.JSONEq(t, `{"message_id":"msg-5"}`, req.body)
	assert.Equal(t, "conv-1", req.conversationID)
}

func TestControllerEdit(t *testing.T) {
	b := newBackend(t)
	b.setFrames(`{"content":"Edited answer"}`, `{"finish_reason":"stop"}`)
	client := chat.NewClient(b.server.URL)
	ctrl := chat.NewController(client, chat.WithConversationStore(client))

	sess, err := ctrl.Edit(context.Background(), "conv-1", "msg-2", "what about cashews?")
	require.NoError(t, err)
	assert.Equal(t, "Edited answer", sess.Content())
	assert.Equal(t, "conv-1", sess.ConversationID())

	b.mu.Lock()
	assert.Equal(t, "what about cashews?", b.edits["msg-2"])
	require.Len(t, b.requests, 2)
	assert.Equal(t, http.MethodPatch, b.requests[0].method)
	assert.Equal(t, "/api/conversations/conv-1/messages/msg-2", b.requests[0].path)
	assert.Equal(t, "/api/chat/regenerate", b.requests[1].path)
	b.mu.Unlock()

	t.Run("rejected edit starts no stream", func(t *testing.T) {
		sess, err := ctrl.Edit(context.Background(), "conv-1", "missing", "x")
		var httpErr *chat.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
		assert.Nil(t, sess)
		assert.False(t, ctrl.IsStreaming())
	})
}

func TestControllerFork(t *testing.T) {
	b := newBackend(t)
	b.setFrames(`{"content":"On this branch"}`, `{"finish_reason":"stop"}`)
	client := chat.NewClient(b.server.URL)
	ctrl := chat.NewController(client, chat.WithConversationStore(client))

	sess, err := ctrl.Fork(context.Background(), "conv-1", "msg-2", &chat.SendRequest{Message: "alternative"})
	require.NoError(t, err)
	assert.Equal(t, "conv-1-fork", sess.ConversationID())
	assert.Equal(t, "On this branch", sess.Content())
	assert.Same(t, sess, ctrl.Session("conv-1-fork"))
	assert.Nil(t, ctrl.Session("conv-1"))

	req := b.last()
	assert.Equal(t, "/api/chat/stream", req.path)
	assert.Equal(t, "conv-1-fork", req.conversationID)
	assert.True(t, strings.Contains(req.body, "alternative"))
}

func TestClientHealth(t *testing.T) {
	b := newBackend(t)
	client := chat.NewClient(b.server.URL)

	health, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
}
