// Package transcript renders the conversation and the in-flight reply.
package transcript

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/laundryguy77/PeanutChat-sub001/sdk/chat"
)

const WelcomeText = `Welcome to PeanutChat!

Type a message and press Enter to start chatting.

Commands:
• /regenerate - Ask for a new reply
• /edit <text> - Rewrite your last message
• /fork <text> - Branch the conversation with a new message
• /think - Toggle reasoning for new requests
• /thinking - Show or hide reasoning
• /new - Start a new conversation`

// Model is the transcript component
type Model struct {
	viewport viewport.Model
	messages []Message
	opts     RenderOptions
}

// New creates a new transcript model
func New(width, height int) Model {
	vp := viewport.New(width, height)
	vp.SetContent("")

	return Model{
		viewport: vp,
		opts: RenderOptions{
			Width:        width,
			Markdown:     true,
			ShowThinking: true,
		},
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles scrolling by page keys and mouse wheel.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "pgup":
			m.viewport.ViewUp()
			return m, nil
		case "pgdown":
			m.viewport.ViewDown()
			return m, nil
		}
		// other keys belong to the input box
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	return m.viewport.View()
}

// SetSize updates the transcript dimensions
func (m *Model) SetSize(width, height int) {
	m.opts.Width = width
	m.viewport.Width = width
	m.viewport.Height = height
	m.refresh()
}

// SetMarkdown toggles markdown rendering of replies.
func (m *Model) SetMarkdown(on bool) {
	m.opts.Markdown = on
	m.refresh()
}

// SetShowThinking toggles the reasoning panel.
func (m *Model) SetShowThinking(on bool) {
	m.opts.ShowThinking = on
	m.refresh()
}

func (m Model) ShowThinking() bool {
	return m.opts.ShowThinking
}

// Load replaces the transcript with stored messages.
func (m *Model) Load(msgs []chat.StoredMessage) {
	m.messages = m.messages[:0]
	for _, sm := range msgs {
		m.messages = append(m.messages, Message{
			ID:      sm.ID,
			Role:    Role(sm.Role),
			Content: sm.Content,
		})
	}
	m.refresh()
}

// AddUserMessage adds a user message
func (m *Model) AddUserMessage(content string) {
	m.messages = append(m.messages, Message{Role: RoleUser, Content: content})
	m.refresh()
}

// StartAssistantMessage opens the reply that stream events fill in.
func (m *Model) StartAssistantMessage() {
	m.messages = append(m.messages, Message{Role: RoleAssistant, IsStreaming: true})
	m.refresh()
}

// RewriteLastExchange replaces the text of the last user message and drops
// the reply after it, ahead of an edit or fork.
func (m *Model) RewriteLastExchange(content string) {
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].Role == RoleUser {
			m.messages[i].Content = content
			m.messages = m.messages[:i+1]
			break
		}
	}
	m.refresh()
}

// DropLastReply removes the last assistant message, ahead of a regenerate.
func (m *Model) DropLastReply() {
	if n := len(m.messages); n > 0 && m.messages[n-1].Role == RoleAssistant {
		m.messages = m.messages[:n-1]
	}
	m.refresh()
}

// streaming returns the reply being streamed, or nil.
func (m *Model) streaming() *Message {
	if n := len(m.messages); n > 0 && m.messages[n-1].IsStreaming {
		return &m.messages[n-1]
	}
	return nil
}

// AppendThinking adds a reasoning token. Tokens after the reasoning phase
// ended are not shown.
func (m *Model) AppendThinking(token string) {
	msg := m.streaming()
	if msg == nil || msg.ThinkingDone {
		return
	}
	msg.Thinking += token
	m.refresh()
}

func (m *Model) EndThinking() {
	if msg := m.streaming(); msg != nil {
		msg.ThinkingDone = true
		m.refresh()
	}
}

func (m *Model) AppendContent(token string) {
	if msg := m.streaming(); msg != nil {
		msg.Content += token
		m.refresh()
	}
}

// SetTool adds or updates a tool entry by its index.
func (m *Model) SetTool(entry chat.ToolCallEntry) {
	msg := m.streaming()
	if msg == nil {
		return
	}
	for i := range msg.Tools {
		if msg.Tools[i].Index == entry.Index {
			msg.Tools[i] = entry
			m.refresh()
			return
		}
	}
	msg.Tools = append(msg.Tools, entry)
	m.refresh()
}

func (m *Model) SetMessageID(id string) {
	if n := len(m.messages); n > 0 && m.messages[n-1].Role == RoleAssistant {
		m.messages[n-1].ID = id
	}
}

// EndAssistantMessage closes the streamed reply using the final session
// state.
func (m *Model) EndAssistantMessage(snap chat.Snapshot) {
	msg := m.streaming()
	if msg == nil {
		return
	}
	msg.IsStreaming = false
	msg.Content = snap.Content
	msg.Tools = snap.ToolCalls
	if snap.MessageID != "" {
		msg.ID = snap.MessageID
	}
	m.refresh()
}

// LastAssistantID returns the id of the reply that ends the transcript. It
// is "" when the transcript ends with a user message.
func (m Model) LastAssistantID() string {
	if n := len(m.messages); n > 0 && m.messages[n-1].Role == RoleAssistant {
		return m.messages[n-1].ID
	}
	return ""
}

// LastUserMessage returns the text of the last user message, or "".
func (m Model) LastUserMessage() string {
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].Role == RoleUser {
			return m.messages[i].Content
		}
	}
	return ""
}

func (m Model) Messages() []Message {
	return m.messages
}

// Clear clears all messages
func (m *Model) Clear() {
	m.messages = nil
	m.viewport.SetContent("")
}

// IsEmpty returns true if there are no messages
func (m Model) IsEmpty() bool {
	return len(m.messages) == 0
}

func (m *Model) refresh() {
	var content strings.Builder
	for i, msg := range m.messages {
		content.WriteString(msg.Render(m.opts))
		if i < len(m.messages)-1 {
			content.WriteString("\n\n")
		}
	}
	m.viewport.SetContent(content.String())
	m.viewport.GotoBottom()
}
