package chat_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laundryguy77/PeanutChat-sub001/sdk/chat"
)

// pipeTransport hands out one pipe per opened stream. Like an HTTP body, the
// read side fails once the request context is cancelled.
type pipeTransport struct {
	streams chan *io.PipeWriter

	mu          sync.Mutex
	sent        []string
	regenerated []string
	openErr     error
}

func newPipeTransport() *pipeTransport {
	return &pipeTransport{streams: make(chan *io.PipeWriter, 4)}
}

func (p *pipeTransport) open(ctx context.Context) (io.ReadCloser, error) {
	p.mu.Lock()
	err := p.openErr
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	go func() {
		<-ctx.Done()
		pr.CloseWithError(ctx.Err())
	}()
	p.streams <- pw
	return pr, nil
}

func (p *pipeTransport) OpenStream(ctx context.Context, conversationID string, req *chat.SendRequest) (io.ReadCloser, error) {
	p.mu.Lock()
	p.sent = append(p.sent, conversationID+":"+req.Message)
	p.mu.Unlock()
	return p.open(ctx)
}

func (p *pipeTransport) OpenRegenerate(ctx context.Context, conversationID, messageID string) (io.ReadCloser, error) {
	p.mu.Lock()
	p.regenerated = append(p.regenerated, conversationID+":"+messageID)
	p.mu.Unlock()
	return p.open(ctx)
}

func (p *pipeTransport) next(t *testing.T) *io.PipeWriter {
	t.Helper()
	select {
	case pw := <-p.streams:
		return pw
	case <-time.After(2 * time.Second):
		t.Fatal("no stream was opened")
		return nil
	}
}

func writeLines(t *testing.T, pw *io.PipeWriter, lines ...string) {
	t.Helper()
	for _, line := range lines {
		_, err := pw.Write([]byte(line + "\n"))
		require.NoError(t, err)
	}
}

type result struct {
	sess *chat.Session
	err  error
}

func sendAsync(ctrl *chat.Controller, conversationID, message string) <-chan result {
	done := make(chan result, 1)
	go func() {
		sess, err := ctrl.Send(context.Background(), conversationID, &chat.SendRequest{Message: message})
		done <- result{sess, err}
	}()
	return done
}

func wait(t *testing.T, done <-chan result) result {
	t.Helper()
	select {
	case r := <-done:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not finish")
		return result{}
	}
}

func waitForContent(t *testing.T, ctrl *chat.Controller, want string) {
	t.Helper()
	require.Eventually(t, func() bool {
		sess := ctrl.Active()
		return sess != nil && sess.Content() == want
	}, 2*time.Second, 5*time.Millisecond)
}

func TestControllerSend(t *testing.T) {
	tr := newPipeTransport()
	var tokens []string
	ctrl := chat.NewController(tr, chat.WithCallbacks(chat.Callbacks{
		OnContentToken: func(tok string) { tokens = append(tokens, tok) },
	}))

	done := sendAsync(ctrl, "", "hello")
	pw := tr.next(t)
	assert.True(t, ctrl.IsStreaming())

	writeLines(t, pw,
		`data: {"id":"conv-new"}`,
		`event: message`,
		`data: {"content":"Hi "}`,
		`data: {broken`,
		``,
		`data: {"content":"there"}`,
		`data: {"id":"msg-1","role":"assistant"}`,
		`data: {"finish_reason":"stop"}`,
	)
	pw.Close()

	r := wait(t, done)
	require.NoError(t, r.err)
	snap := r.sess.Snapshot()
	assert.Equal(t, "Hi there", snap.Content)
	assert.Equal(t, "conv-new", snap.ConversationID)
	assert.Equal(t, "msg-1", snap.MessageID)
	assert.Equal(t, chat.OutcomeCompleted, snap.Outcome)
	assert.Equal(t, []string{"Hi ", "there"}, tokens)

	assert.False(t, ctrl.IsStreaming())
	assert.Nil(t, ctrl.Active())
	assert.Same(t, r.sess, ctrl.Session("conv-new"))
}

func TestControllerRejectsConcurrentRequests(t *testing.T) {
	tr := newPipeTransport()
	ctrl := chat.NewController(tr)

	done := sendAsync(ctrl, "conv-1", "first")
	pw := tr.next(t)
	writeLines(t, pw, `data: {"content":"Hel"}`)
	waitForContent(t, ctrl, "Hel")

	before := ctrl.Active().Snapshot()

	_, err := ctrl.Send(context.Background(), "conv-1", &chat.SendRequest{Message: "second"})
	assert.ErrorIs(t, err, chat.ErrStreamInProgress)
	_, err = ctrl.Regenerate(context.Background(), "conv-1", "msg-1")
	assert.ErrorIs(t, err, chat.ErrStreamInProgress)

	assert.Equal(t, before, ctrl.Active().Snapshot())
	tr.mu.Lock()
	assert.Equal(t, []string{"conv-1:first"}, tr.sent)
	assert.Empty(t, tr.regenerated)
	tr.mu.Unlock()

	writeLines(t, pw, `data: {"content":"lo","finish_reason":"stop"}`)
	pw.Close()

	r := wait(t, done)
	require.NoError(t, r.err)
	assert.Equal(t, "Hello", r.sess.Content())
	assert.False(t, ctrl.IsStreaming())
}

func TestControllerCancelActive(t *testing.T) {
	tr := newPipeTransport()
	ctrl := chat.NewController(tr)
	assert.False(t, ctrl.CancelActive())

	done := sendAsync(ctrl, "conv-1", "tell me a story")
	pw := tr.next(t)
	writeLines(t, pw, `data: {"content":"Once upon"}`)
	waitForContent(t, ctrl, "Once upon")

	assert.True(t, ctrl.CancelActive())

	r := wait(t, done)
	require.NoError(t, r.err)
	assert.Equal(t, "Once upon"+chat.StoppedAnnotation, r.sess.Content())
	assert.Equal(t, chat.OutcomeCancelled, r.sess.Outcome())
	assert.Equal(t, chat.StatusIdle, r.sess.Status())
	assert.False(t, ctrl.IsStreaming())
	assert.False(t, ctrl.CancelActive())

	// A chunk arriving after the cancel is never dispatched.
	_, err := pw.Write([]byte(`data: {"content":" a time"}` + "\n"))
	assert.Error(t, err)
	assert.Equal(t, "Once upon"+chat.StoppedAnnotation, r.sess.Content())
}

func TestControllerCancelBeforeContent(t *testing.T) {
	tr := newPipeTransport()
	ctrl := chat.NewController(tr)

	done := sendAsync(ctrl, "conv-1", "hi")
	tr.next(t)
	require.Eventually(t, func() bool { return ctrl.Active() != nil }, 2*time.Second, 5*time.Millisecond)

	assert.True(t, ctrl.CancelActive())
	r := wait(t, done)
	require.NoError(t, r.err)
	assert.Empty(t, r.sess.Content())
	assert.True(t, r.sess.Cancelled())
}

func TestControllerTransportFailure(t *testing.T) {
	tr := newPipeTransport()
	ctrl := chat.NewController(tr)

	done := sendAsync(ctrl, "conv-1", "hi")
	pw := tr.next(t)
	writeLines(t, pw, `data: {"content":"Hel"}`)
	waitForContent(t, ctrl, "Hel")
	pw.CloseWithError(errors.New("connection reset by peer"))

	r := wait(t, done)
	require.Error(t, r.err)
	assert.ErrorIs(t, r.err, chat.ErrTransport)
	assert.False(t, errors.Is(r.err, context.Canceled))

	snap := r.sess.Snapshot()
	assert.Equal(t, chat.StatusError, snap.Status)
	assert.Equal(t, chat.OutcomeFailed, snap.Outcome)
	assert.Equal(t, "Hel"+chat.TransportAnnotationPrefix+"connection reset by peer", snap.Content)
	assert.False(t, snap.Cancelled)
	assert.False(t, ctrl.IsStreaming())

	// The user can retry at once.
	done = sendAsync(ctrl, "conv-1", "hi")
	pw = tr.next(t)
	writeLines(t, pw, `data: {"content":"Hello","finish_reason":"stop"}`)
	pw.Close()
	r = wait(t, done)
	require.NoError(t, r.err)
	assert.Equal(t, "Hello", r.sess.Content())
}

func TestControllerOpenFailure(t *testing.T) {
	tr := newPipeTransport()
	tr.openErr = &chat.HTTPError{StatusCode: 503, Body: "model not loaded"}
	ctrl := chat.NewController(tr)

	sess, err := ctrl.Send(context.Background(), "conv-1", &chat.SendRequest{Message: "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, chat.ErrTransport)
	var httpErr *chat.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 503, httpErr.StatusCode)

	require.NotNil(t, sess)
	assert.Equal(t, chat.StatusError, sess.Status())
	assert.Contains(t, sess.Content(), "model not loaded")
	assert.False(t, ctrl.IsStreaming())
}

func TestControllerEndOfStreamWithoutFinish(t *testing.T) {
	tr := newPipeTransport()
	ctrl := chat.NewController(tr)

	done := sendAsync(ctrl, "conv-1", "hi")
	pw := tr.next(t)
	writeLines(t, pw, `data: {"content":"abrupt"}`)
	_, err := pw.Write([]byte(`data: {"content":"lost"}`))
	require.NoError(t, err)
	pw.Close()

	r := wait(t, done)
	require.NoError(t, r.err)
	assert.Equal(t, "abrupt", r.sess.Content())
	assert.Equal(t, chat.OutcomeCompleted, r.sess.Outcome())
	assert.Empty(t, r.sess.FinishReason())
}

func TestControllerRegenerate(t *testing.T) {
	tr := newPipeTransport()
	ctrl := chat.NewController(tr)

	_, err := ctrl.Regenerate(context.Background(), "conv-1", "")
	assert.ErrorIs(t, err, chat.ErrNoMessageID)

	done := make(chan result, 1)
	go func() {
		sess, err := ctrl.Regenerate(context.Background(), "conv-1", "msg-3")
		done <- result{sess, err}
	}()
	pw := tr.next(t)
	writeLines(t, pw,
		`data: {"content":"Take two"}`,
		`data: {"id":"msg-4","role":"assistant"}`,
		`data: {"finish_reason":"stop"}`,
	)
	pw.Close()

	r := wait(t, done)
	require.NoError(t, r.err)
	assert.Equal(t, "Take two", r.sess.Content())
	assert.Equal(t, "msg-4", r.sess.MessageID())
	assert.Equal(t, []string{"conv-1:msg-3"}, tr.regenerated)
}

func TestControllerValidation(t *testing.T) {
	ctrl := chat.NewController(newPipeTransport())

	_, err := ctrl.Send(context.Background(), "", &chat.SendRequest{})
	assert.ErrorIs(t, err, chat.ErrEmptyMessage)
	_, err = ctrl.Send(context.Background(), "", nil)
	assert.ErrorIs(t, err, chat.ErrEmptyMessage)

	_, err = ctrl.Edit(context.Background(), "conv-1", "msg-1", "new text")
	assert.ErrorIs(t, err, chat.ErrNoStore)
	_, err = ctrl.Fork(context.Background(), "conv-1", "msg-1", &chat.SendRequest{Message: "x"})
	assert.ErrorIs(t, err, chat.ErrNoStore)
	assert.False(t, ctrl.IsStreaming())
}

func TestControllerReadBufferSize(t *testing.T) {
	tr := newPipeTransport()
	ctrl := chat.NewController(tr, chat.WithReadBufferSize(1))
	assert.Equal(t, 1, ctrl.ReadBufferSize())

	done := sendAsync(ctrl, "conv-1", "hi")
	pw := tr.next(t)
	writeLines(t, pw,
		`data: {"content":"日本"}`,
		`data: {"content":"語 🥜","finish_reason":"stop"}`,
	)
	pw.Close()

	r := wait(t, done)
	require.NoError(t, r.err)
	assert.Equal(t, "日本語 🥜", r.sess.Content())
}

// blockingStore holds every call until its context is done.
type blockingStore struct {
	entered chan struct{}
}

func (b *blockingStore) EditMessage(ctx context.Context, conversationID, messageID, content string) error {
	b.entered <- struct{}{}
	<-ctx.Done()
	return ctx.Err()
}

func (b *blockingStore) ForkConversation(ctx context.Context, conversationID, messageID string) (string, error) {
	b.entered <- struct{}{}
	<-ctx.Done()
	return "", ctx.Err()
}

func TestControllerCancelDuringStoreCall(t *testing.T) {
	ops := map[string]func(*chat.Controller) (*chat.Session, error){
		"edit": func(ctrl *chat.Controller) (*chat.Session, error) {
			return ctrl.Edit(context.Background(), "conv-1", "msg-1", "new text")
		},
		"fork": func(ctrl *chat.Controller) (*chat.Session, error) {
			return ctrl.Fork(context.Background(), "conv-1", "msg-1", &chat.SendRequest{Message: "new text"})
		},
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			tr := newPipeTransport()
			store := &blockingStore{entered: make(chan struct{}, 1)}
			ctrl := chat.NewController(tr, chat.WithConversationStore(store))

			done := make(chan result, 1)
			go func() {
				sess, err := op(ctrl)
				done <- result{sess, err}
			}()

			select {
			case <-store.entered:
			case <-time.After(2 * time.Second):
				t.Fatal("store was not called")
			}
			assert.True(t, ctrl.IsStreaming())
			assert.True(t, ctrl.CancelActive())

			r := wait(t, done)
			assert.NoError(t, r.err)
			assert.Nil(t, r.sess)
			assert.False(t, ctrl.IsStreaming())
			assert.Nil(t, ctrl.Session("conv-1"))

			tr.mu.Lock()
			defer tr.mu.Unlock()
			assert.Empty(t, tr.sent)
			assert.Empty(t, tr.regenerated)
		})
	}
}
