package input

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/laundryguy77/PeanutChat-sub001/internal/attach"
	"github.com/laundryguy77/PeanutChat-sub001/internal/styles"
)

// SuggestionType defines the type of suggestion
type SuggestionType int

const (
	SuggestionCommand SuggestionType = iota
	SuggestionAttachment
	SuggestionFile
)

// Suggestion represents an autocomplete suggestion
type Suggestion struct {
	Value       string
	Display     string
	Description string
	Type        SuggestionType
}

// Commands are the slash commands the chat view handles.
var Commands = []Suggestion{
	{Value: "/help", Display: "/help", Description: "Show help", Type: SuggestionCommand},
	{Value: "/regenerate", Display: "/regenerate", Description: "Ask for a new reply", Type: SuggestionCommand},
	{Value: "/edit ", Display: "/edit", Description: "Rewrite your last message", Type: SuggestionCommand},
	{Value: "/fork ", Display: "/fork", Description: "Branch with a new message", Type: SuggestionCommand},
	{Value: "/think", Display: "/think", Description: "Toggle reasoning for new requests", Type: SuggestionCommand},
	{Value: "/thinking", Display: "/thinking", Description: "Show or hide reasoning", Type: SuggestionCommand},
	{Value: "/new", Display: "/new", Description: "Start a new conversation", Type: SuggestionCommand},
}

var attachments = []Suggestion{
	{Value: attach.FilePrefix, Display: attach.FilePrefix, Description: "Attach a file", Type: SuggestionAttachment},
	{Value: attach.ImagePrefix, Display: attach.ImagePrefix, Description: "Attach an image", Type: SuggestionAttachment},
}

// AutocompleteModel handles autocomplete functionality
type AutocompleteModel struct {
	suggestions   []Suggestion
	selectedIndex int
	active        bool
	prefix        string // The text that triggered autocomplete
	width         int
}

func NewAutocomplete() AutocompleteModel {
	return AutocompleteModel{}
}

// UpdateSuggestions updates suggestions based on input text
func (ac *AutocompleteModel) UpdateSuggestions(text string) {
	ac.suggestions = nil
	ac.selectedIndex = 0
	ac.active = false

	if text == "" {
		return
	}

	if strings.HasPrefix(text, "/") && !strings.Contains(text, " ") {
		ac.prefix = text
		ac.match(Commands, text)
		return
	}

	lastWord := text
	if i := strings.LastIndexAny(text, " \n"); i >= 0 {
		lastWord = text[i+1:]
	}
	if !strings.HasPrefix(lastWord, "@") {
		return
	}

	ac.prefix = lastWord
	for _, p := range []string{attach.FilePrefix, attach.ImagePrefix} {
		if strings.HasPrefix(lastWord, p) {
			ac.updateFileSuggestions(p, strings.TrimPrefix(lastWord, p))
			return
		}
	}
	ac.match(attachments, lastWord)
}

func (ac *AutocompleteModel) match(candidates []Suggestion, text string) {
	text = strings.ToLower(text)
	for _, c := range candidates {
		if strings.HasPrefix(strings.ToLower(c.Value), text) {
			ac.suggestions = append(ac.suggestions, c)
		}
	}
	ac.active = len(ac.suggestions) > 0
}

// updateFileSuggestions lists paths matching the text after an attachment
// prefix.
func (ac *AutocompleteModel) updateFileSuggestions(attachPrefix, path string) {
	if path == "" {
		return
	}
	expanded := path
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			expanded = strings.Replace(path, "~", home, 1)
		}
	}

	dir := filepath.Dir(expanded)
	prefix := filepath.Base(expanded)
	if strings.HasSuffix(expanded, "/") {
		dir = expanded
		prefix = ""
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(strings.ToLower(name), strings.ToLower(prefix)) {
			continue
		}
		display := name
		if entry.IsDir() {
			display += "/"
		}
		ac.suggestions = append(ac.suggestions, Suggestion{
			Value:   attachPrefix + filepath.Join(dir, name),
			Display: display,
			Type:    SuggestionFile,
		})
		if len(ac.suggestions) == 10 {
			break
		}
	}

	ac.active = len(ac.suggestions) > 0
}

// SelectNext moves selection to next suggestion
func (ac *AutocompleteModel) SelectNext() {
	if len(ac.suggestions) > 0 {
		ac.selectedIndex = (ac.selectedIndex + 1) % len(ac.suggestions)
	}
}

// SelectPrev moves selection to previous suggestion
func (ac *AutocompleteModel) SelectPrev() {
	if len(ac.suggestions) > 0 {
		ac.selectedIndex--
		if ac.selectedIndex < 0 {
			ac.selectedIndex = len(ac.suggestions) - 1
		}
	}
}

// GetSelected returns the currently selected suggestion
func (ac *AutocompleteModel) GetSelected() *Suggestion {
	if ac.active && ac.selectedIndex < len(ac.suggestions) {
		return &ac.suggestions[ac.selectedIndex]
	}
	return nil
}

func (ac *AutocompleteModel) IsActive() bool {
	return ac.active && len(ac.suggestions) > 0
}

func (ac *AutocompleteModel) Close() {
	ac.active = false
	ac.suggestions = nil
	ac.selectedIndex = 0
}

// GetPrefix returns the prefix that triggered autocomplete
func (ac *AutocompleteModel) GetPrefix() string {
	return ac.prefix
}

func (ac *AutocompleteModel) SetWidth(width int) {
	ac.width = width
}

// View renders the autocomplete dropdown
func (ac *AutocompleteModel) View() string {
	if !ac.IsActive() {
		return ""
	}

	containerStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Muted).
		Background(styles.CodeBg).
		Padding(0, 1).
		Width(max(ac.width-4, 10))

	selectedStyle := lipgloss.NewStyle().
		Foreground(styles.White).
		Background(styles.Primary).
		Bold(true).
		Width(max(ac.width-8, 6))

	normalStyle := lipgloss.NewStyle().
		Foreground(styles.LightGray).
		Width(max(ac.width-8, 6))

	descStyle := lipgloss.NewStyle().
		Foreground(styles.Muted).
		Italic(true)

	var lines []string
	for i, sug := range ac.suggestions {
		line := sug.Display
		if sug.Description != "" {
			line += " " + descStyle.Render(sug.Description)
		}

		if i == ac.selectedIndex {
			lines = append(lines, selectedStyle.Render(line))
		} else {
			lines = append(lines, normalStyle.Render(line))
		}
	}

	return containerStyle.Render(strings.Join(lines, "\n"))
}
