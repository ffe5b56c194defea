package chat

import "encoding/json"

// Event is the parsed payload of one frame. The protocol does not tag frames
// with a single type: any subset of the fields below may be set at once, and
// Dispatch interprets them in a fixed order.
type Event struct {
	// ID is a conversation id when Role is empty, and the persisted assistant
	// message id when Role is set.
	ID   string
	Role string

	ThinkingToken string
	ThinkingDone  bool

	ContentToken string
	// HasContent reports whether the frame carried a "content" key at all,
	// even an empty one. It suppresses the error annotation of the same frame.
	HasContent bool

	ToolCall   *ToolCall
	ToolResult *ToolResult

	FinishReason string
	ErrorMessage string
}

// ToolCall announces that the model started a tool invocation.
type ToolCall struct {
	Name      string
	Arguments json.RawMessage
}

// ToolResult reports the outcome of the most recent tool invocation. Raw holds
// the full result object, including tool-specific fields.
type ToolResult struct {
	Success bool
	Error   string
	Raw     json.RawMessage
}

// ConversationID returns the server-assigned conversation id carried by the
// frame, or "" when the frame has none or the id belongs to a message.
func (e Event) ConversationID() string {
	if e.Role != "" {
		return ""
	}
	return e.ID
}

// AssistantMessageID returns the persisted message id carried together with
// a role marker, or "".
func (e Event) AssistantMessageID() string {
	if e.Role == "" {
		return ""
	}
	return e.ID
}
