package app

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/laundryguy77/PeanutChat-sub001/internal/components/toast"
)

func (m Model) inform(text string, d time.Duration) (Model, tea.Cmd) {
	cmd := m.toast.Add(text, toast.Info, d)
	return m, cmd
}

func (m Model) warn(text string) (Model, tea.Cmd) {
	cmd := m.toast.Add(text, toast.Warning, toast.DefaultDuration)
	return m, cmd
}

func (m Model) fail(err error) (Model, tea.Cmd) {
	cmd := m.toast.Add(err.Error(), toast.Error, toast.DefaultDuration)
	return m, cmd
}
