package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	Primary     = lipgloss.Color("#D97706")
	Secondary   = lipgloss.Color("#10B981")
	Error       = lipgloss.Color("#EF4444")
	Warning     = lipgloss.Color("#F59E0B")
	Info        = lipgloss.Color("#3B82F6")
	Muted       = lipgloss.Color("#6B7280")
	White       = lipgloss.Color("#FFFFFF")
	Black       = lipgloss.Color("#000000")
	LightGray   = lipgloss.Color("#E5E7EB")
	CodeBg      = lipgloss.Color("#1F2937")
	ThinkingFg  = lipgloss.Color("#9CA3AF")
	AssistantFg = LightGray

	// Message Styles
	UserMessage = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(White).
			Bold(true)

	UserLabel = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	AssistantMessage = lipgloss.NewStyle().
				Padding(0, 1).
				Foreground(AssistantFg)

	AssistantLabel = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	// Thinking panel
	ThinkingLabel = lipgloss.NewStyle().
			Foreground(ThinkingFg).
			Italic(true)

	ThinkingText = lipgloss.NewStyle().
			Foreground(ThinkingFg).
			Italic(true).
			PaddingLeft(2).
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(Muted)

	// Tool Event Styles
	ToolEvent = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true).
			PaddingLeft(2)

	ToolName = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	ToolRunning = lipgloss.NewStyle().
			Foreground(Warning)

	ToolDone = lipgloss.NewStyle().
			Foreground(Secondary)

	ToolFailed = lipgloss.NewStyle().
			Foreground(Error)

	// Input Styles
	InputPrompt = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	// Status Bar Styles
	StatusBar = lipgloss.NewStyle().
			Foreground(Muted).
			Padding(0, 1)

	StatusBarStreaming = lipgloss.NewStyle().
				Foreground(Primary).
				Padding(0, 1)

	StatusBarError = lipgloss.NewStyle().
			Foreground(Error).
			Padding(0, 1)

	// Header
	Header = lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true).
		Padding(0, 1)

	// Cursor for streaming
	StreamingCursor = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	Welcome = lipgloss.NewStyle().
		Foreground(Muted).
		Align(lipgloss.Center).
		Padding(2, 0)
)
