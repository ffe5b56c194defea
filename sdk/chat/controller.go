package chat

import (
	"context"
	"errors"
	"io"
	"sync"
)

// DefaultReadBufferSize is the size of a single read from the stream body.
const DefaultReadBufferSize = 4096

// Controller owns the single in-flight generation. At most one session
// streams at a time; a request made while one is streaming is rejected with
// ErrStreamInProgress and never queued.
type Controller struct {
	transport Transport
	store     ConversationStore
	callbacks Callbacks
	logger    *Logger
	readSize  int

	mu        sync.Mutex
	streaming bool
	active    *Session
	cancel    context.CancelFunc
	sessions  map[string]*Session
}

// ControllerOption configures the controller.
type ControllerOption func(*Controller)

// WithConversationStore sets the store used by Edit and Fork.
func WithConversationStore(store ConversationStore) ControllerOption {
	return func(c *Controller) {
		c.store = store
	}
}

// WithCallbacks sets the render callbacks every new session reports to.
func WithCallbacks(cb Callbacks) ControllerOption {
	return func(c *Controller) {
		c.callbacks = cb
	}
}

// WithReadBufferSize sets the size of each read from the stream body.
func WithReadBufferSize(n int) ControllerOption {
	return func(c *Controller) {
		if n > 0 {
			c.readSize = n
		}
	}
}

// WithControllerLogger sets the controller's logger.
func WithControllerLogger(l *Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = l
	}
}

// NewController creates a controller opening streams through transport.
func NewController(transport Transport, opts ...ControllerOption) *Controller {
	c := &Controller{
		transport: transport,
		logger:    GetLogger(),
		readSize:  DefaultReadBufferSize,
		sessions:  make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsStreaming reports whether a generation is in flight.
func (c *Controller) IsStreaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streaming
}

// Active returns the in-flight session, or nil.
func (c *Controller) Active() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// ReadBufferSize returns the size of each read from the stream body.
func (c *Controller) ReadBufferSize() int {
	return c.readSize
}

// Session returns the latest session of a conversation, or nil.
func (c *Controller) Session(conversationID string) *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions[conversationID]
}

// Forget drops the registered session of a conversation.
func (c *Controller) Forget(conversationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, conversationID)
}

// Send posts a message and consumes the reply. An empty conversationID
// starts a new conversation; the session learns its id from the stream.
//
// The returned session is terminal when Send returns. The error is non-nil
// when the request was rejected or the transport failed; a user cancellation
// is not an error.
func (c *Controller) Send(ctx context.Context, conversationID string, req *SendRequest) (*Session, error) {
	if req.IsEmpty() {
		return nil, ErrEmptyMessage
	}
	ctx, err := c.reserve(ctx, "send")
	if err != nil {
		return nil, err
	}
	defer c.release()

	sess := c.start(conversationID)
	return sess, c.consume(ctx, sess, "send", func(ctx context.Context) (io.ReadCloser, error) {
		return c.transport.OpenStream(ctx, conversationID, req)
	})
}

// Regenerate replaces the reply anchored at messageID with a new one.
func (c *Controller) Regenerate(ctx context.Context, conversationID, messageID string) (*Session, error) {
	if messageID == "" {
		return nil, ErrNoMessageID
	}
	ctx, err := c.reserve(ctx, "regenerate")
	if err != nil {
		return nil, err
	}
	defer c.release()

	sess := c.start(conversationID)
	return sess, c.consume(ctx, sess, "regenerate", func(ctx context.Context) (io.ReadCloser, error) {
		return c.transport.OpenRegenerate(ctx, conversationID, messageID)
	})
}

// Edit replaces the text of a user message in place and regenerates the
// reply to it. When the store rejects the edit no session is started. A
// cancellation while the store call is in flight returns a nil session and
// a nil error.
func (c *Controller) Edit(ctx context.Context, conversationID, messageID, text string) (*Session, error) {
	if messageID == "" {
		return nil, ErrNoMessageID
	}
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if c.store == nil {
		return nil, ErrNoStore
	}
	ctx, err := c.reserve(ctx, "edit")
	if err != nil {
		return nil, err
	}
	defer c.release()

	log := c.logger.With("conversation", conversationID, "message", messageID)
	if err := c.store.EditMessage(ctx, conversationID, messageID, text); err != nil {
		if ctx.Err() != nil {
			log.Info("edit cancelled before the reply started")
			return nil, nil
		}
		log.Error("edit message failed", "error", err)
		return nil, err
	}

	sess := c.start(conversationID)
	return sess, c.consume(ctx, sess, "edit", func(ctx context.Context) (io.ReadCloser, error) {
		return c.transport.OpenRegenerate(ctx, conversationID, messageID)
	})
}

// Fork branches the conversation at messageID into a new conversation and
// sends req there. The returned session carries the new conversation id.
// Like Edit, a cancellation during the store call yields (nil, nil).
func (c *Controller) Fork(ctx context.Context, conversationID, messageID string, req *SendRequest) (*Session, error) {
	if messageID == "" {
		return nil, ErrNoMessageID
	}
	if req.IsEmpty() {
		return nil, ErrEmptyMessage
	}
	if c.store == nil {
		return nil, ErrNoStore
	}
	ctx, err := c.reserve(ctx, "fork")
	if err != nil {
		return nil, err
	}
	defer c.release()

	log := c.logger.With("conversation", conversationID, "message", messageID)
	forkedID, err := c.store.ForkConversation(ctx, conversationID, messageID)
	if err != nil {
		if ctx.Err() != nil {
			log.Info("fork cancelled before the reply started")
			return nil, nil
		}
		log.Error("fork conversation failed", "error", err)
		return nil, err
	}
	log.Info("conversation forked", "to", forkedID)

	sess := c.start(forkedID)
	return sess, c.consume(ctx, sess, "send", func(ctx context.Context) (io.ReadCloser, error) {
		return c.transport.OpenStream(ctx, forkedID, req)
	})
}

// CancelActive stops the in-flight generation, including an Edit or Fork
// still waiting on the store. It reports whether there was one to stop.
// Calling it again, or after the stream ended, is a no-op.
func (c *Controller) CancelActive() bool {
	c.mu.Lock()
	cancel, sess := c.cancel, c.active
	c.mu.Unlock()

	if cancel == nil {
		return false
	}
	if sess != nil {
		sess.Cancel()
	}
	cancel()
	return true
}

// reserve claims the streaming guard and derives the context that
// CancelActive cancels.
func (c *Controller) reserve(parent context.Context, kind string) (context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.streaming {
		c.logger.Warn("request rejected, a response is already streaming", "kind", kind)
		return nil, ErrStreamInProgress
	}
	c.streaming = true
	ctx, cancel := context.WithCancel(parent)
	c.cancel = cancel
	return ctx, nil
}

func (c *Controller) release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.active = nil
	c.streaming = false
}

// start creates the session of a reserved request and registers it.
func (c *Controller) start(conversationID string) *Session {
	var sess *Session
	cb := c.callbacks
	bound := cb.OnConversationBound
	cb.OnConversationBound = func(id string) {
		c.mu.Lock()
		c.sessions[id] = sess
		c.mu.Unlock()
		if bound != nil {
			bound(id)
		}
	}
	sess = NewSession(conversationID, cb, c.logger)

	c.mu.Lock()
	c.active = sess
	if conversationID != "" {
		c.sessions[conversationID] = sess
	}
	c.mu.Unlock()
	return sess
}

// consume opens the stream and feeds it to the session until the stream
// ends, the transport fails or the generation is cancelled. Cancellation is
// checked before every read.
func (c *Controller) consume(ctx context.Context, sess *Session, kind string, open func(context.Context) (io.ReadCloser, error)) error {
	trace := c.logger.StartStream(kind)

	if ctx.Err() != nil {
		sess.Cancel()
		trace.Finished(sess.Outcome())
		return nil
	}

	body, err := open(ctx)
	if err != nil {
		if stopped(ctx, sess) {
			sess.Cancel()
			trace.Finished(sess.Outcome())
			return nil
		}
		terr := &transportError{op: "open stream", cause: err}
		sess.Fail(err)
		trace.Failed(terr)
		return terr
	}
	defer body.Close()

	decoder := NewChunkDecoder()
	var framer LineFramer
	parser := NewFrameParser(c.logger)
	buf := make([]byte, c.readSize)

	for {
		if stopped(ctx, sess) {
			sess.Cancel()
			break
		}

		n, rerr := body.Read(buf)
		if n > 0 {
			c.feed(sess, decoder.Decode(buf[:n]), &framer, parser, trace)
		}

		if errors.Is(rerr, io.EOF) {
			c.feed(sess, decoder.Flush(), &framer, parser, trace)
			if rest := framer.Close(); rest != "" {
				c.logger.Debug("discarding unterminated line at end of stream", "line", truncate(rest, 120))
			}
			sess.Complete()
			break
		}
		if rerr != nil {
			if stopped(ctx, sess) {
				sess.Cancel()
				break
			}
			terr := &transportError{op: "read stream", cause: rerr}
			sess.Fail(rerr)
			trace.Failed(terr)
			return terr
		}
	}

	trace.Finished(sess.Outcome())
	return nil
}

func (c *Controller) feed(sess *Session, text string, framer *LineFramer, parser *FrameParser, trace *StreamLogger) {
	if text == "" {
		return
	}
	for _, line := range framer.Push(text) {
		ev, ok := parser.Parse(line)
		if !ok {
			if _, hasPayload := Payload(line); hasPayload {
				trace.Dropped()
			}
			continue
		}
		if sess.Dispatch(ev) {
			trace.Frame()
		}
	}
}

func stopped(ctx context.Context, sess *Session) bool {
	return ctx.Err() != nil || sess.Cancelled()
}
