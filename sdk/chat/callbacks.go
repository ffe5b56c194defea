package chat

// Callbacks are the render hooks a UI layer registers with the controller.
// Every callback runs after the session state it reports has been updated, on
// the goroutine consuming the stream, and outside the session lock, so a
// callback may read the session. Nil callbacks are skipped.
type Callbacks struct {
	OnThinkingToken    func(token string)
	OnThinkingDone     func()
	OnContentToken     func(token string)
	OnToolCallStarted  func(entry ToolCallEntry)
	OnToolCallResolved func(entry ToolCallEntry)
	OnStatusChanged    func(status Status)
	OnSessionTerminal  func(snap Snapshot)

	// OnConversationBound reports the server-assigned id of a new conversation.
	OnConversationBound func(conversationID string)
	// OnMessageBound reports the persisted id of the assistant message.
	OnMessageBound func(messageID string)
}

// notifier queues callback invocations while the session lock is held. The
// queue is taken before the lock is released and run after it.
type notifier struct {
	cb    *Callbacks
	queue []func()
}

func (n *notifier) thinkingToken(token string) {
	if fn := n.cb.OnThinkingToken; fn != nil {
		n.queue = append(n.queue, func() { fn(token) })
	}
}

func (n *notifier) thinkingDone() {
	if fn := n.cb.OnThinkingDone; fn != nil {
		n.queue = append(n.queue, fn)
	}
}

func (n *notifier) contentToken(token string) {
	if fn := n.cb.OnContentToken; fn != nil {
		n.queue = append(n.queue, func() { fn(token) })
	}
}

func (n *notifier) toolCallStarted(entry ToolCallEntry) {
	if fn := n.cb.OnToolCallStarted; fn != nil {
		n.queue = append(n.queue, func() { fn(entry) })
	}
}

func (n *notifier) toolCallResolved(entry ToolCallEntry) {
	if fn := n.cb.OnToolCallResolved; fn != nil {
		n.queue = append(n.queue, func() { fn(entry) })
	}
}

func (n *notifier) statusChanged(status Status) {
	if fn := n.cb.OnStatusChanged; fn != nil {
		n.queue = append(n.queue, func() { fn(status) })
	}
}

func (n *notifier) sessionTerminal(snap Snapshot) {
	if fn := n.cb.OnSessionTerminal; fn != nil {
		n.queue = append(n.queue, func() { fn(snap) })
	}
}

func (n *notifier) conversationBound(id string) {
	if fn := n.cb.OnConversationBound; fn != nil {
		n.queue = append(n.queue, func() { fn(id) })
	}
}

func (n *notifier) messageBound(id string) {
	if fn := n.cb.OnMessageBound; fn != nil {
		n.queue = append(n.queue, func() { fn(id) })
	}
}

func (n *notifier) take() []func() {
	queue := n.queue
	n.queue = nil
	return queue
}

func run(queue []func()) {
	for _, fn := range queue {
		fn()
	}
}
