package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/laundryguy77/PeanutChat-sub001/internal/components/transcript"
	"github.com/laundryguy77/PeanutChat-sub001/internal/styles"
	"github.com/laundryguy77/PeanutChat-sub001/sdk/chat"
)

// View renders the application
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var sections []string

	title := "PeanutChat"
	if m.conversationID != "" {
		title += " · " + m.conversationID
	}
	sections = append(sections, styles.Header.Render(title))

	if m.transcript.IsEmpty() {
		sections = append(sections, styles.Welcome.Width(m.width).Render(transcript.WelcomeText))
	} else {
		sections = append(sections, m.transcript.View())
	}

	if m.toast.HasToasts() {
		sections = append(sections, m.toast.View())
	}

	sections = append(sections, m.input.View())
	sections = append(sections, m.renderStatusBar())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderStatusBar renders the status bar at the bottom
func (m Model) renderStatusBar() string {
	var left string
	switch {
	case m.state == StateStreaming:
		left = styles.StatusBarStreaming.Render(m.spinner.View() + " " + statusText(m.status))
	case m.status == chat.StatusError:
		left = styles.StatusBarError.Render("Connection lost")
	default:
		left = styles.StatusBar.Render("Ready")
	}

	think := "off"
	if m.think {
		think = "on"
	}
	help := "Enter: send • Ctrl+C: quit • Ctrl+L: new"
	if m.state == StateStreaming {
		help = "Esc: stop"
	}
	right := styles.StatusBar.Render(fmt.Sprintf("think: %s • %s", think, help))

	spacer := strings.Repeat(" ", max(m.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 0))
	return lipgloss.JoinHorizontal(lipgloss.Top, left, spacer, right)
}

func statusText(s chat.Status) string {
	switch s {
	case chat.StatusThinking:
		return "Thinking..."
	case chat.StatusUsingTool:
		return "Using tools..."
	case chat.StatusGenerating:
		return "Generating..."
	default:
		return "Waiting for response..."
	}
}
