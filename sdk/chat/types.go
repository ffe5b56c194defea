package chat

import (
	"github.com/tidwall/sjson"
)

// SendRequest is the body of a chat stream request.
type SendRequest struct {
	Message string
	// Images are already-encoded image payloads.
	Images []string
	// Think asks the model for a reasoning trace. Nil leaves the server
	// default.
	Think *bool
	Files []FileAttachment
}

// FileAttachment is an already-encoded file sent alongside a message.
type FileAttachment struct {
	Name    string `json:"name"`
	Type    string `json:"type,omitempty"`
	Content string `json:"content"`
}

// Bool returns a pointer to b.
func Bool(b bool) *bool {
	return &b
}

// IsEmpty reports whether the request carries nothing to send.
func (r *SendRequest) IsEmpty() bool {
	return r == nil || (r.Message == "" && len(r.Images) == 0 && len(r.Files) == 0)
}

// MarshalJSON encodes {message, images?, think?, files?}.
func (r SendRequest) MarshalJSON() ([]byte, error) {
	body, err := sjson.SetBytes([]byte(`{}`), "message", r.Message)
	if err != nil {
		return nil, err
	}
	if len(r.Images) > 0 {
		if body, err = sjson.SetBytes(body, "images", r.Images); err != nil {
			return nil, err
		}
	}
	if r.Think != nil {
		if body, err = sjson.SetBytes(body, "think", *r.Think); err != nil {
			return nil, err
		}
	}
	if len(r.Files) > 0 {
		if body, err = sjson.SetBytes(body, "files", r.Files); err != nil {
			return nil, err
		}
	}
	return body, nil
}

// RegenerateRequest is the body of a regenerate stream request.
type RegenerateRequest struct {
	MessageID string `json:"message_id"`
}

// EditMessageRequest replaces the content of a stored user message.
type EditMessageRequest struct {
	Content string `json:"content"`
}

// ForkRequest branches a conversation at a message.
type ForkRequest struct {
	MessageID string `json:"message_id"`
}

// ForkResponse carries the id of the new conversation.
type ForkResponse struct {
	ID string `json:"id"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}

// StoredMessage is a message as the conversation store keeps it.
type StoredMessage struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is a stored conversation.
type Conversation struct {
	ID       string          `json:"id"`
	Messages []StoredMessage `json:"messages"`
}

// LastUserMessage returns the most recent user message, or nil.
func (c *Conversation) LastUserMessage() *StoredMessage {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == "user" {
			return &c.Messages[i]
		}
	}
	return nil
}
