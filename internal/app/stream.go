package app

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/laundryguy77/PeanutChat-sub001/internal/attach"
	"github.com/laundryguy77/PeanutChat-sub001/internal/messages"
	"github.com/laundryguy77/PeanutChat-sub001/sdk/chat"
)

// streamFunc runs one controller operation to completion.
type streamFunc func(ctx context.Context) (*chat.Session, error)

// startStream opens the reply placeholder and runs fn in the background.
// Session events reach the model as callback messages; the StreamEndMsg
// arrives after all of them. Cancelling ctx, including while fn still loads
// the conversation, ends the stream without an error.
func (m Model) startStream(kind string, fn streamFunc) (Model, tea.Cmd) {
	m.state = StateStreaming
	m.transcript.StartAssistantMessage()

	ctx, cancel := context.WithCancel(context.Background())
	m.shared.setCancel(cancel)
	shared := m.shared
	run := func() tea.Msg {
		defer shared.cancelStream()
		sess, err := fn(ctx)
		if err != nil && ctx.Err() != nil {
			err = nil
		}
		return messages.StreamEndMsg{Kind: kind, Session: sess, Err: err}
	}
	return m, tea.Batch(run, m.spinner.Tick)
}

// send posts text, with any attachments it references, to the current
// conversation.
func (m Model) send(text string) (Model, tea.Cmd) {
	req, err := attach.Request(text, chat.Bool(m.think))
	if err != nil {
		return m.fail(err)
	}

	m.transcript.AddUserMessage(text)
	m.input.Clear()

	ctrl, convID := m.ctrl, m.conversationID
	return m.startStream("send", func(ctx context.Context) (*chat.Session, error) {
		return ctrl.Send(ctx, convID, req)
	})
}

// regenerate replaces the last reply. Without a known reply id it anchors on
// the last stored user message.
func (m Model) regenerate() (Model, tea.Cmd) {
	if m.conversationID == "" {
		return m.warn("Nothing to regenerate yet")
	}

	ctrl, client, convID := m.ctrl, m.client, m.conversationID
	messageID := m.transcript.LastAssistantID()
	m.transcript.DropLastReply()
	return m.startStream("regenerate", func(ctx context.Context) (*chat.Session, error) {
		id := messageID
		if id == "" {
			last, err := lastUserMessage(ctx, client, convID)
			if err != nil {
				return nil, err
			}
			id = last.ID
		}
		return ctrl.Regenerate(ctx, convID, id)
	})
}

// edit rewrites the last user message and regenerates the reply to it.
func (m Model) edit(text string) (Model, tea.Cmd) {
	if m.conversationID == "" {
		return m.warn("Nothing to edit yet")
	}
	if text == "" {
		return m.warn("Usage: /edit <new text>")
	}

	m.transcript.RewriteLastExchange(text)
	m.input.Clear()

	ctrl, client, convID := m.ctrl, m.client, m.conversationID
	return m.startStream("edit", func(ctx context.Context) (*chat.Session, error) {
		last, err := lastUserMessage(ctx, client, convID)
		if err != nil {
			return nil, err
		}
		return ctrl.Edit(ctx, convID, last.ID, text)
	})
}

// fork branches the conversation before the last user message and sends
// text to the new branch.
func (m Model) fork(text string) (Model, tea.Cmd) {
	if m.conversationID == "" {
		return m.warn("Nothing to fork yet")
	}
	if text == "" {
		return m.warn("Usage: /fork <new text>")
	}
	req, err := attach.Request(text, chat.Bool(m.think))
	if err != nil {
		return m.fail(err)
	}

	m.transcript.RewriteLastExchange(text)
	m.input.Clear()

	ctrl, client, convID := m.ctrl, m.client, m.conversationID
	return m.startStream("fork", func(ctx context.Context) (*chat.Session, error) {
		last, err := lastUserMessage(ctx, client, convID)
		if err != nil {
			return nil, err
		}
		return ctrl.Fork(ctx, convID, last.ID, req)
	})
}

func lastUserMessage(ctx context.Context, client *chat.Client, conversationID string) (*chat.StoredMessage, error) {
	conv, err := client.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	last := conv.LastUserMessage()
	if last == nil {
		return nil, fmt.Errorf("conversation %s has no user message", conversationID)
	}
	return last, nil
}

func loadHistory(client *chat.Client, conversationID string) tea.Cmd {
	return func() tea.Msg {
		conv, err := client.GetConversation(context.Background(), conversationID)
		return messages.HistoryLoadedMsg{Conversation: conv, Err: err}
	}
}
