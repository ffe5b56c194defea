package toast

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/laundryguy77/PeanutChat-sub001/internal/styles"
)

func render(t Toast, maxWidth int) string {
	bg, fg, icon := styles.Info, styles.White, "ℹ"
	switch t.Kind {
	case Success:
		bg, icon = styles.Secondary, "✓"
	case Warning:
		bg, fg, icon = styles.Warning, styles.Black, "⚠"
	case Error:
		bg, icon = styles.Error, "✗"
	}

	// 60 columns or 80% of the screen, whichever is smaller
	width := 60
	if maxWidth > 0 {
		width = min(width, maxWidth*4/5)
	}
	width = max(width, 20)

	return lipgloss.NewStyle().
		Background(bg).
		Foreground(fg).
		Padding(0, 2).
		Width(width).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(bg).
		Bold(true).
		Render(icon + " " + t.Message)
}
