// Package app is the bubbletea program of the chat client.
package app

import (
	"context"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/laundryguy77/PeanutChat-sub001/internal/components/input"
	"github.com/laundryguy77/PeanutChat-sub001/internal/components/toast"
	"github.com/laundryguy77/PeanutChat-sub001/internal/components/transcript"
	"github.com/laundryguy77/PeanutChat-sub001/internal/config"
	"github.com/laundryguy77/PeanutChat-sub001/internal/messages"
	"github.com/laundryguy77/PeanutChat-sub001/internal/styles"
	"github.com/laundryguy77/PeanutChat-sub001/sdk/chat"
)

// State represents the application state
type State int

const (
	StateIdle State = iota
	StateStreaming
)

// SharedState holds state that needs to be shared between model copies.
// It forwards session callbacks to the program.
type SharedState struct {
	mu      sync.Mutex
	program *tea.Program
	cancel  context.CancelFunc
}

func (s *SharedState) SetProgram(p *tea.Program) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.program = p
}

func (s *SharedState) GetProgram() *tea.Program {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.program
}

// setCancel records the cancel func of the running stream command.
func (s *SharedState) setCancel(cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel = cancel
}

// cancelStream cancels the running stream command, if any, and reports
// whether there was one.
func (s *SharedState) cancelStream() bool {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return false
	}
	cancel()
	return true
}

// Send delivers msg to the program. Messages sent before the program is set
// are dropped.
func (s *SharedState) Send(msg tea.Msg) {
	if p := s.GetProgram(); p != nil {
		p.Send(msg)
	}
}

// Model is the main application model
type Model struct {
	transcript transcript.Model
	input      input.Model
	toast      toast.Model
	spinner    spinner.Model

	client   *chat.Client
	ctrl     *chat.Controller
	shared   *SharedState
	prefsDir string

	state          State
	status         chat.Status
	conversationID string
	resumeID       string
	think          bool

	width  int
	height int
	ready  bool
}

// New creates the application model. prefsDir is where UI preferences are
// kept; empty disables persistence.
func New(client *chat.Client, cfg *config.Config, prefsDir string) Model {
	shared := &SharedState{}
	ctrl := chat.NewController(client,
		chat.WithConversationStore(client),
		chat.WithCallbacks(messages.Callbacks(shared)),
		chat.WithReadBufferSize(cfg.ReadBufferSize),
	)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.StreamingCursor

	tr := transcript.New(80, 20)
	tr.SetMarkdown(cfg.UI.Markdown)
	showThinking := cfg.UI.ShowThinking
	if prefsDir != "" {
		if prefs, err := config.LoadPreferences(prefsDir); err == nil && prefs.ShowThinking != nil {
			showThinking = *prefs.ShowThinking
		}
	}
	tr.SetShowThinking(showThinking)

	return Model{
		transcript: tr,
		input:      input.New(80),
		toast:      toast.New(),
		spinner:    sp,
		client:     client,
		ctrl:       ctrl,
		shared:     shared,
		prefsDir:   prefsDir,
		state:      StateIdle,
		status:     chat.StatusIdle,
		think:      cfg.Think,
	}
}

// SetProgram sets the program that receives session callbacks.
func (m *Model) SetProgram(p *tea.Program) {
	m.shared.SetProgram(p)
}

// Resume loads a stored conversation when the program starts.
func (m *Model) Resume(conversationID string) {
	m.resumeID = conversationID
}

// Controller returns the controller driving the model's streams.
func (m Model) Controller() *chat.Controller {
	return m.ctrl
}

// ConversationID returns the conversation the model is in, or "".
func (m Model) ConversationID() string {
	return m.conversationID
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.input.Init()}
	if m.resumeID != "" {
		cmds = append(cmds, loadHistory(m.client, m.resumeID))
	}
	return tea.Batch(cmds...)
}
