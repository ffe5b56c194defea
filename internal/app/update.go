package app

import (
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/laundryguy77/PeanutChat-sub001/internal/components/toast"
	"github.com/laundryguy77/PeanutChat-sub001/internal/config"
	"github.com/laundryguy77/PeanutChat-sub001/internal/messages"
	"github.com/laundryguy77/PeanutChat-sub001/sdk/chat"
)

// Update handles all application messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

		// header (1), input (5), status bar (1), padding (2)
		m.transcript.SetSize(msg.Width, max(msg.Height-9, 5))
		m.input.SetWidth(msg.Width)
		m.toast.SetWidth(msg.Width)
		return m, nil

	case tea.KeyMsg:
		if next, cmd, handled := m.handleKey(msg); handled {
			return next, cmd
		}

	case messages.ThinkingTokenMsg:
		m.transcript.AppendThinking(msg.Token)
		return m, nil

	case messages.ThinkingDoneMsg:
		m.transcript.EndThinking()
		return m, nil

	case messages.ContentTokenMsg:
		m.transcript.AppendContent(msg.Token)
		return m, nil

	case messages.ToolCallStartedMsg:
		m.transcript.SetTool(msg.Entry)
		return m, nil

	case messages.ToolCallResolvedMsg:
		m.transcript.SetTool(msg.Entry)
		return m, nil

	case messages.StatusChangedMsg:
		m.status = msg.Status
		return m, nil

	case messages.ConversationBoundMsg:
		m.conversationID = msg.ConversationID
		return m, nil

	case messages.MessageBoundMsg:
		m.transcript.SetMessageID(msg.MessageID)
		return m, nil

	case messages.SessionTerminalMsg:
		m.transcript.EndAssistantMessage(msg.Snapshot)
		return m, nil

	case messages.StreamEndMsg:
		return m.endStream(msg)

	case messages.HistoryLoadedMsg:
		if msg.Err != nil {
			return m.fail(msg.Err)
		}
		m.conversationID = msg.Conversation.ID
		m.transcript.Load(msg.Conversation.Messages)
		return m, nil

	case toast.ExpiredMsg:
		m.toast, _ = m.toast.Update(msg)
		return m, nil

	case spinner.TickMsg:
		if m.state != StateStreaming {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.transcript, cmd = m.transcript.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKey handles the keys the application owns. Everything else goes to
// the input box.
func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c", "esc":
		// The stream command may still be loading the conversation before
		// the controller takes over.
		if m.state == StateStreaming || m.ctrl.IsStreaming() {
			m.ctrl.CancelActive()
			m.shared.cancelStream()
			return m, nil, true
		}
		if msg.String() == "esc" && m.input.AutocompleteActive() {
			return m, nil, false
		}
		return m, tea.Quit, true

	case "enter":
		if m.input.AutocompleteActive() {
			return m, nil, false
		}
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil, true
		}
		// One reply streams at a time; the text stays in the input box.
		if m.state == StateStreaming || m.ctrl.IsStreaming() {
			next, cmd := m.warn("A reply is still streaming. Press Esc to stop it.")
			return next, cmd, true
		}
		if strings.HasPrefix(text, "/") {
			next, cmd := m.runCommand(text)
			return next, cmd, true
		}
		next, cmd := m.send(text)
		return next, cmd, true

	case "ctrl+l":
		if m.state == StateStreaming {
			return m, nil, true
		}
		next, cmd := m.newConversation()
		return next, cmd, true
	}
	return m, nil, false
}

// runCommand executes a slash command.
func (m Model) runCommand(text string) (Model, tea.Cmd) {
	name, arg, _ := strings.Cut(text, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/help":
		m.input.Clear()
		return m.inform("/regenerate · /edit <text> · /fork <text> · /think · /thinking · /new · @file:path · @image:path", 8*time.Second)

	case "/regenerate":
		m.input.Clear()
		return m.regenerate()

	case "/edit":
		return m.edit(arg)

	case "/fork":
		return m.fork(arg)

	case "/think":
		m.input.Clear()
		m.think = !m.think
		if m.think {
			return m.inform("Reasoning requested for new messages", toast.DefaultDuration)
		}
		return m.inform("Reasoning off for new messages", toast.DefaultDuration)

	case "/thinking":
		m.input.Clear()
		show := !m.transcript.ShowThinking()
		m.transcript.SetShowThinking(show)
		if m.prefsDir != "" {
			if err := config.SetShowThinking(m.prefsDir, show); err != nil {
				return m.fail(err)
			}
		}
		return m, nil

	case "/new":
		m.input.Clear()
		return m.newConversation()
	}

	return m.warn("Unknown command " + name + ", try /help")
}

func (m Model) newConversation() (Model, tea.Cmd) {
	if m.conversationID != "" {
		m.ctrl.Forget(m.conversationID)
	}
	m.conversationID = ""
	m.status = chat.StatusIdle
	m.transcript.Clear()
	if m.prefsDir != "" {
		if err := config.ClearLastConversation(m.prefsDir); err != nil {
			return m.fail(err)
		}
	}
	return m, nil
}

// endStream settles the model once a controller call returned.
func (m Model) endStream(msg messages.StreamEndMsg) (Model, tea.Cmd) {
	m.state = StateIdle

	if msg.Session == nil {
		// rejected before a session started
		m.transcript.DropLastReply()
		m.status = chat.StatusIdle
		if errors.Is(msg.Err, chat.ErrStreamInProgress) {
			return m.warn("A reply is still streaming")
		}
		if msg.Err != nil {
			return m.fail(msg.Err)
		}
		return m, nil
	}

	snap := msg.Session.Snapshot()
	m.transcript.EndAssistantMessage(snap)
	m.status = snap.Status
	if snap.ConversationID != "" {
		m.conversationID = snap.ConversationID
	}

	if m.prefsDir != "" && m.conversationID != "" {
		if err := config.SaveLastConversation(m.prefsDir, m.conversationID, snap.MessageID, m.transcript.LastUserMessage()); err != nil {
			chat.GetLogger().Warn("save last conversation failed", "error", err)
		}
	}

	if msg.Err != nil {
		return m.fail(msg.Err)
	}
	return m, nil
}
