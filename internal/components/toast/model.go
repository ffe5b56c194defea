// Package toast shows short-lived notifications above the input box.
package toast

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
)

// Kind is the severity of a toast.
type Kind string

const (
	Info    Kind = "info"
	Success Kind = "success"
	Warning Kind = "warning"
	Error   Kind = "error"
)

// DefaultDuration is how long a toast stays visible.
const DefaultDuration = 4 * time.Second

type Toast struct {
	ID        string
	Message   string
	Kind      Kind
	CreatedAt time.Time
}

// Model holds the visible toasts, newest last.
type Model struct {
	toasts    []Toast
	width     int
	maxToasts int
}

func New() Model {
	return Model{
		width:     80,
		maxToasts: 3,
	}
}

func (m *Model) SetWidth(width int) {
	m.width = width
}

// Add shows a toast and returns the command that expires it.
func (m *Model) Add(message string, kind Kind, duration time.Duration) tea.Cmd {
	t := Toast{
		ID:        uuid.NewString(),
		Message:   message,
		Kind:      kind,
		CreatedAt: time.Now(),
	}

	m.toasts = append(m.toasts, t)
	if len(m.toasts) > m.maxToasts {
		m.toasts = m.toasts[len(m.toasts)-m.maxToasts:]
	}

	return tea.Tick(duration, func(time.Time) tea.Msg {
		return ExpiredMsg{ID: t.ID}
	})
}

// ExpiredMsg removes the toast with ID.
type ExpiredMsg struct {
	ID string
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(ExpiredMsg); ok {
		for i, t := range m.toasts {
			if t.ID == msg.ID {
				m.toasts = append(m.toasts[:i:i], m.toasts[i+1:]...)
				break
			}
		}
	}
	return m, nil
}

func (m Model) View() string {
	if len(m.toasts) == 0 {
		return ""
	}
	views := make([]string, 0, len(m.toasts))
	for _, t := range m.toasts {
		views = append(views, render(t, m.width))
	}
	return strings.Join(views, "\n")
}

func (m Model) HasToasts() bool {
	return len(m.toasts) > 0
}

// Toasts returns the visible toasts.
func (m Model) Toasts() []Toast {
	return append([]Toast(nil), m.toasts...)
}
