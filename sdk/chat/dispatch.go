package chat

import "time"

// Dispatch applies one event to the session. The signals of an event are
// checked independently and always in this order:
//
//  1. conversation id (only without a role marker, first writer wins)
//  2. thinking token
//  3. thinking done
//  4. content token
//  5. tool call
//  6. tool result
//  7. assistant message id (with a role marker)
//  8. finish reason
//  9. error message (only when the event carries no content)
//
// Events reaching a cancelled or failed session are discarded. Once a session
// has completed, only the id bindings of steps 1 and 7 are still applied, so a
// late message id is not lost while the content stays frozen.
//
// Dispatch reports whether the event was applied.
func (s *Session) Dispatch(ev Event) bool {
	s.mu.Lock()
	if s.cancelled || s.outcome == OutcomeCancelled || s.outcome == OutcomeFailed {
		s.mu.Unlock()
		return false
	}
	live := s.outcome == OutcomeNone

	s.bindConversation(ev)
	var finished bool
	if live {
		s.applyThinking(ev)
		s.applyContent(ev)
		s.applyToolCall(ev)
		s.applyToolResult(ev)
	}
	s.bindMessage(ev)
	if live {
		finished = s.applyFinish(ev)
		s.applyError(ev)
	}
	if finished {
		s.finish(OutcomeCompleted)
	}

	pending := s.notify.take()
	s.mu.Unlock()

	run(pending)
	return true
}

func (s *Session) bindConversation(ev Event) {
	id := ev.ConversationID()
	if id == "" || s.conversationID != "" {
		return
	}
	s.conversationID = id
	s.notify.conversationBound(id)
}

func (s *Session) applyThinking(ev Event) {
	if ev.ThinkingToken != "" {
		s.setStatus(StatusThinking)
		s.thinking.WriteString(ev.ThinkingToken)
		s.notify.thinkingToken(ev.ThinkingToken)
	}
	if ev.ThinkingDone {
		s.setStatus(StatusGenerating)
		s.thinkingDone = true
		s.notify.thinkingDone()
	}
}

func (s *Session) applyContent(ev Event) {
	if ev.ContentToken == "" {
		return
	}
	s.setStatus(StatusGenerating)
	s.appendContent(ev.ContentToken)
}

func (s *Session) applyToolCall(ev Event) {
	if ev.ToolCall == nil {
		return
	}
	s.setStatus(StatusUsingTool)
	entry := ToolCallEntry{
		Index:     len(s.toolCalls),
		Name:      ev.ToolCall.Name,
		Arguments: ev.ToolCall.Arguments,
		Timestamp: time.Now(),
		Status:    ToolProcessing,
	}
	s.toolCalls = append(s.toolCalls, entry)
	s.notify.toolCallStarted(entry)
}

// applyToolResult resolves the most recently added entry that is still
// processing. The protocol carries no call id, so two overlapping calls can
// be resolved against the wrong entry; this matching is kept as-is for
// compatibility with the server. A result with no processing entry is kept
// as an orphaned entry rather than dropped.
func (s *Session) applyToolResult(ev Event) {
	res := ev.ToolResult
	if res == nil {
		return
	}
	s.setStatus(StatusGenerating)

	idx := -1
	for i := len(s.toolCalls) - 1; i >= 0; i-- {
		if s.toolCalls[i].Status == ToolProcessing {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.logger.Warn("tool result has no matching tool call",
			"conversation", s.conversationID,
			"tool_calls", len(s.toolCalls),
		)
		s.toolCalls = append(s.toolCalls, ToolCallEntry{
			Index:     len(s.toolCalls),
			Timestamp: time.Now(),
			Orphaned:  true,
		})
		idx = len(s.toolCalls) - 1
	}

	entry := &s.toolCalls[idx]
	entry.Result = res.Raw
	entry.StatusMessage = res.Error
	if res.Success {
		entry.Status = ToolComplete
	} else {
		entry.Status = ToolError
	}
	s.notify.toolCallResolved(*entry)
}

func (s *Session) bindMessage(ev Event) {
	id := ev.AssistantMessageID()
	if id == "" {
		return
	}
	s.messageID = id
	s.notify.messageBound(id)
}

func (s *Session) applyFinish(ev Event) bool {
	if ev.FinishReason == "" {
		return false
	}
	s.finishReason = ev.FinishReason
	s.setStatus(StatusIdle)
	return true
}

func (s *Session) applyError(ev Event) {
	if ev.ErrorMessage == "" || ev.HasContent {
		return
	}
	s.appendContent(ErrorAnnotationPrefix + ev.ErrorMessage)
}
