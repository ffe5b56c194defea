package chat

import (
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// Status is the visible phase of a generation.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusThinking   Status = "thinking"
	StatusGenerating Status = "generating"
	StatusUsingTool  Status = "using_tool"
	StatusError      Status = "error"
)

// Outcome records how a session ended. A session with OutcomeNone is still
// live; any other outcome is terminal and final.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeCompleted
	OutcomeCancelled
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	default:
		return "streaming"
	}
}

// ToolStatus is the state of one tool invocation.
type ToolStatus string

const (
	ToolProcessing ToolStatus = "processing"
	ToolComplete   ToolStatus = "complete"
	ToolError      ToolStatus = "error"
)

// ToolCallEntry is one tool invocation in the order the model made it.
type ToolCallEntry struct {
	// Index is the entry's position in the session's tool-call log.
	Index         int
	Name          string
	Arguments     json.RawMessage
	Timestamp     time.Time
	Status        ToolStatus
	Result        json.RawMessage
	StatusMessage string
	// Orphaned is set when a result arrived with no invocation in progress.
	Orphaned bool
}

// Annotations appended to the visible content. Cancellation and failures use
// different wording so the two are never confused.
const (
	StoppedAnnotation         = "\n\n*[Generation stopped by user]*"
	ErrorAnnotationPrefix     = "\n\n**Error:** "
	TransportAnnotationPrefix = "\n\n**Connection lost:** "
)

// Snapshot is a consistent copy of a session's state.
type Snapshot struct {
	ConversationID string
	MessageID      string
	Status         Status
	Outcome        Outcome
	Content        string
	Thinking       string
	ThinkingDone   bool
	ToolCalls      []ToolCallEntry
	Cancelled      bool
	FinishReason   string
	StartedAt      time.Time
}

// Session is the state of one in-flight response. Only Dispatch, Cancel,
// Fail and Complete change it. Content grows append-only until the session
// reaches a terminal outcome.
type Session struct {
	mu sync.Mutex

	conversationID string
	messageID      string
	status         Status
	outcome        Outcome
	content        strings.Builder
	thinking       strings.Builder
	thinkingDone   bool
	toolCalls      []ToolCallEntry
	cancelled      bool
	finishReason   string
	startedAt      time.Time

	notify notifier
	logger *Logger
}

// NewSession creates an idle session for conversationID. An empty id means a
// new conversation whose id the server will assign.
func NewSession(conversationID string, cb Callbacks, logger *Logger) *Session {
	if logger == nil {
		logger = GetLogger()
	}
	return &Session{
		conversationID: conversationID,
		status:         StatusIdle,
		startedAt:      time.Now(),
		notify:         notifier{cb: &cb},
		logger:         logger,
	}
}

// Cancel stops the session on behalf of the user. If any content was
// received it is annotated as stopped. Cancelling a terminal session is a
// no-op; the return value reports whether this call changed anything.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	if s.outcome != OutcomeNone {
		s.mu.Unlock()
		return false
	}

	s.cancelled = true
	if s.content.Len() > 0 {
		s.appendContent(StoppedAnnotation)
	}
	s.setStatus(StatusIdle)
	s.finish(OutcomeCancelled)
	pending := s.notify.take()
	s.mu.Unlock()

	run(pending)
	return true
}

// Fail ends the session after a transport failure. The cause is appended as
// an inline annotation.
func (s *Session) Fail(cause error) bool {
	s.mu.Lock()
	if s.outcome != OutcomeNone {
		s.mu.Unlock()
		return false
	}

	s.appendContent(TransportAnnotationPrefix + cause.Error())
	s.setStatus(StatusError)
	s.finish(OutcomeFailed)
	pending := s.notify.take()
	s.mu.Unlock()

	run(pending)
	return true
}

// Complete ends a session whose stream closed cleanly without a finish
// reason.
func (s *Session) Complete() bool {
	s.mu.Lock()
	if s.outcome != OutcomeNone {
		s.mu.Unlock()
		return false
	}

	s.setStatus(StatusIdle)
	s.finish(OutcomeCompleted)
	pending := s.notify.take()
	s.mu.Unlock()

	run(pending)
	return true
}

// Cancelled reports whether the user cancelled the session.
func (s *Session) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// IsTerminal reports whether the session has ended.
func (s *Session) IsTerminal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome != OutcomeNone
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) Outcome() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

func (s *Session) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content.String()
}

func (s *Session) Thinking() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.thinking.String()
}

func (s *Session) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

// MessageID returns the persisted id of the assistant message, once the
// server has sent it.
func (s *Session) MessageID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messageID
}

func (s *Session) FinishReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishReason
}

func (s *Session) StartedAt() time.Time {
	return s.startedAt
}

// ToolCalls returns a copy of the tool-call log.
func (s *Session) ToolCalls() []ToolCallEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ToolCallEntry(nil), s.toolCalls...)
}

// Snapshot returns a consistent copy of the whole session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		ConversationID: s.conversationID,
		MessageID:      s.messageID,
		Status:         s.status,
		Outcome:        s.outcome,
		Content:        s.content.String(),
		Thinking:       s.thinking.String(),
		ThinkingDone:   s.thinkingDone,
		ToolCalls:      append([]ToolCallEntry(nil), s.toolCalls...),
		Cancelled:      s.cancelled,
		FinishReason:   s.finishReason,
		StartedAt:      s.startedAt,
	}
}

// The helpers below require s.mu to be held.

func (s *Session) setStatus(status Status) {
	if s.status == status {
		return
	}
	s.status = status
	s.notify.statusChanged(status)
}

func (s *Session) appendContent(text string) {
	s.content.WriteString(text)
	s.notify.contentToken(text)
}

func (s *Session) finish(outcome Outcome) {
	s.outcome = outcome
	s.notify.sessionTerminal(s.snapshotLocked())
}
