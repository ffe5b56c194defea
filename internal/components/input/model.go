// Package input is the message box: a textarea with history and slash
// command completion.
package input

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/laundryguy77/PeanutChat-sub001/internal/styles"
)

// Model represents the input component
type Model struct {
	textarea     textarea.Model
	width        int
	history      []string
	histIdx      int
	focused      bool
	autocomplete AutocompleteModel
}

// New creates a new input model
func New(width int) Model {
	ta := textarea.New()
	ta.Placeholder = "Type your message... (/help for commands)"
	ta.Focus()
	ta.CharLimit = 8192
	ta.SetWidth(width - 6)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetKeys("shift+enter", "ctrl+j")

	ta.FocusedStyle.CursorLine = ta.FocusedStyle.CursorLine.Background(styles.CodeBg)
	ta.FocusedStyle.Placeholder = ta.FocusedStyle.Placeholder.Foreground(styles.Muted)
	ta.BlurredStyle.Placeholder = ta.BlurredStyle.Placeholder.Foreground(styles.Muted)

	ac := NewAutocomplete()
	ac.SetWidth(width)

	return Model{
		textarea:     ta,
		width:        width,
		histIdx:      -1,
		focused:      true,
		autocomplete: ac,
	}
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update handles messages for the input component
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	if msg, ok := msg.(tea.KeyMsg); ok {
		if m.autocomplete.IsActive() {
			switch msg.String() {
			case "tab", "down":
				m.autocomplete.SelectNext()
				return m, nil
			case "shift+tab", "up":
				m.autocomplete.SelectPrev()
				return m, nil
			case "enter":
				if suggestion := m.autocomplete.GetSelected(); suggestion != nil {
					m.acceptSuggestion(suggestion)
				}
				m.autocomplete.Close()
				return m, nil
			case "esc":
				m.autocomplete.Close()
				return m, nil
			}
		}

		switch msg.String() {
		case "up":
			if m.textarea.Value() == "" || m.histIdx >= 0 {
				if m.histIdx < len(m.history)-1 {
					m.histIdx++
					m.textarea.SetValue(m.history[len(m.history)-1-m.histIdx])
					m.textarea.CursorEnd()
				}
				return m, nil
			}
		case "down":
			if m.histIdx >= 0 {
				if m.histIdx > 0 {
					m.histIdx--
					m.textarea.SetValue(m.history[len(m.history)-1-m.histIdx])
					m.textarea.CursorEnd()
				} else {
					m.histIdx = -1
					m.textarea.SetValue("")
				}
				return m, nil
			}
		case "ctrl+u":
			m.textarea.SetValue("")
			m.histIdx = -1
			m.autocomplete.Close()
			return m, nil
		}
	}

	if m.focused {
		m.textarea, cmd = m.textarea.Update(msg)
		m.autocomplete.UpdateSuggestions(m.textarea.Value())
	}
	return m, cmd
}

// acceptSuggestion replaces the text that triggered completion.
func (m *Model) acceptSuggestion(sug *Suggestion) {
	current := m.textarea.Value()
	prefix := m.autocomplete.GetPrefix()

	if i := strings.LastIndex(current, prefix); prefix != "" && i >= 0 {
		m.textarea.SetValue(current[:i] + sug.Value)
	} else {
		m.textarea.SetValue(sug.Value)
	}
	m.textarea.CursorEnd()
}

// View renders the prompt and textarea.
func (m Model) View() string {
	prompt := styles.InputPrompt.Render("> ")
	inputView := lipgloss.JoinHorizontal(lipgloss.Top, prompt, m.textarea.View())

	if m.autocomplete.IsActive() {
		return lipgloss.JoinVertical(lipgloss.Left, m.autocomplete.View(), inputView)
	}
	return inputView
}

// Value returns the current input value
func (m Model) Value() string {
	return m.textarea.Value()
}

// Clear clears the input and saves to history
func (m *Model) Clear() {
	if value := m.textarea.Value(); value != "" {
		m.history = append(m.history, value)
	}
	m.textarea.Reset()
	m.histIdx = -1
	m.autocomplete.Close()
}

// SetWidth updates the input width
func (m *Model) SetWidth(width int) {
	m.width = width
	m.textarea.SetWidth(width - 6)
	m.autocomplete.SetWidth(width)
}

func (m *Model) Focus() tea.Cmd {
	m.focused = true
	return m.textarea.Focus()
}

func (m *Model) Blur() {
	m.focused = false
	m.textarea.Blur()
}

func (m Model) IsFocused() bool {
	return m.focused
}

// SetValue sets the input value
func (m *Model) SetValue(value string) {
	m.textarea.SetValue(value)
	m.textarea.CursorEnd()
}

// AutocompleteActive reports whether the suggestion list is open.
func (m Model) AutocompleteActive() bool {
	return m.autocomplete.IsActive()
}
