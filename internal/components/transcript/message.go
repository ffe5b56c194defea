package transcript

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/tidwall/gjson"

	"github.com/laundryguy77/PeanutChat-sub001/internal/styles"
	"github.com/laundryguy77/PeanutChat-sub001/sdk/chat"
)

// Role represents who sent the message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one rendered transcript entry.
type Message struct {
	ID           string
	Role         Role
	Content      string
	Thinking     string
	ThinkingDone bool
	Tools        []chat.ToolCallEntry
	IsStreaming  bool
}

// RenderOptions control how a message is drawn.
type RenderOptions struct {
	Width        int
	Markdown     bool
	ShowThinking bool
}

// Render renders a message
func (m Message) Render(opts RenderOptions) string {
	var sb strings.Builder

	switch m.Role {
	case RoleUser:
		sb.WriteString(styles.UserLabel.Render("You"))
	case RoleAssistant:
		sb.WriteString(styles.AssistantLabel.Render("Assistant"))
	}
	sb.WriteString("\n")

	if m.Role == RoleAssistant && opts.ShowThinking && m.Thinking != "" {
		label := "Thinking…"
		if m.ThinkingDone {
			label = "Thought"
		}
		sb.WriteString(styles.ThinkingLabel.Render(label))
		sb.WriteString("\n")
		sb.WriteString(styles.ThinkingText.Width(max(opts.Width-4, 10)).Render(m.Thinking))
		sb.WriteString("\n")
	}

	for _, tool := range m.Tools {
		sb.WriteString(renderTool(tool))
		sb.WriteString("\n")
	}

	content := m.Content
	if m.Role == RoleAssistant && content != "" && opts.Markdown {
		rendered, err := renderMarkdown(content, opts.Width-4)
		if err == nil {
			content = strings.TrimSpace(rendered)
		}
	}

	if m.IsStreaming {
		content += styles.StreamingCursor.Render("▊")
	}

	width := max(opts.Width-2, 10)
	switch m.Role {
	case RoleUser:
		sb.WriteString(styles.UserMessage.Width(width).Render(content))
	case RoleAssistant:
		sb.WriteString(styles.AssistantMessage.Width(width).Render(content))
	}

	return sb.String()
}

func renderTool(t chat.ToolCallEntry) string {
	var status string
	switch t.Status {
	case chat.ToolComplete:
		status = styles.ToolDone.Render("✓")
	case chat.ToolError:
		status = styles.ToolFailed.Render("✗")
	default:
		status = styles.ToolRunning.Render("…")
	}

	name := t.Name
	if t.Orphaned {
		name = "(unknown tool)"
	}

	detail := summarizeArguments(t.Arguments)
	if t.Status == chat.ToolError && t.StatusMessage != "" {
		detail = t.StatusMessage
	}

	return styles.ToolEvent.Render(fmt.Sprintf("%s %s %s", status, styles.ToolName.Render(name), truncate(detail, 50)))
}

// summarizeArguments shows the first string argument, or the raw JSON.
func summarizeArguments(args []byte) string {
	if len(args) == 0 {
		return ""
	}
	var first string
	gjson.ParseBytes(args).ForEach(func(_, value gjson.Result) bool {
		if value.Type == gjson.String {
			first = value.Str
			return false
		}
		return true
	})
	if first != "" {
		return first
	}
	return string(args)
}

// renderers caches one markdown renderer per wrap width. Only the update
// loop renders, so no lock is needed.
var renderers = map[int]*glamour.TermRenderer{}

// renderMarkdown renders markdown content for the terminal
func renderMarkdown(content string, width int) (string, error) {
	r, ok := renderers[width]
	if !ok {
		var err error
		r, err = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return content, err
		}
		renderers[width] = r
	}
	return r.Render(content)
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
