// Package messages carries generation events from the stream goroutine into
// the bubbletea update loop.
package messages

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/laundryguy77/PeanutChat-sub001/sdk/chat"
)

// Stream events, one per render callback.
type ThinkingTokenMsg struct {
	Token string
}

type ThinkingDoneMsg struct{}

type ContentTokenMsg struct {
	Token string
}

type ToolCallStartedMsg struct {
	Entry chat.ToolCallEntry
}

type ToolCallResolvedMsg struct {
	Entry chat.ToolCallEntry
}

type StatusChangedMsg struct {
	Status chat.Status
}

type ConversationBoundMsg struct {
	ConversationID string
}

type MessageBoundMsg struct {
	MessageID string
}

type SessionTerminalMsg struct {
	Snapshot chat.Snapshot
}

// StreamEndMsg is returned once the controller call behind a stream returns.
type StreamEndMsg struct {
	Kind    string
	Session *chat.Session
	Err     error
}

// HistoryLoadedMsg carries a conversation fetched from the store.
type HistoryLoadedMsg struct {
	Conversation *chat.Conversation
	Err          error
}

// Sender delivers messages to the program. *tea.Program implements it.
type Sender interface {
	Send(msg tea.Msg)
}

// Callbacks returns render callbacks that forward every event to the sender
// as a tea message. The program receives them in callback order.
func Callbacks(s Sender) chat.Callbacks {
	return chat.Callbacks{
		OnThinkingToken:     func(tok string) { s.Send(ThinkingTokenMsg{Token: tok}) },
		OnThinkingDone:      func() { s.Send(ThinkingDoneMsg{}) },
		OnContentToken:      func(tok string) { s.Send(ContentTokenMsg{Token: tok}) },
		OnToolCallStarted:   func(e chat.ToolCallEntry) { s.Send(ToolCallStartedMsg{Entry: e}) },
		OnToolCallResolved:  func(e chat.ToolCallEntry) { s.Send(ToolCallResolvedMsg{Entry: e}) },
		OnStatusChanged:     func(st chat.Status) { s.Send(StatusChangedMsg{Status: st}) },
		OnSessionTerminal:   func(snap chat.Snapshot) { s.Send(SessionTerminalMsg{Snapshot: snap}) },
		OnConversationBound: func(id string) { s.Send(ConversationBoundMsg{ConversationID: id}) },
		OnMessageBound:      func(id string) { s.Send(MessageBoundMsg{MessageID: id}) },
	}
}
