package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// MaxConversationAge is how long the last conversation is offered for resume.
const MaxConversationAge = 24 * time.Hour

// LastConversation describes the conversation open when the client last
// exited.
type LastConversation struct {
	ConversationID string    `json:"conversationId"`
	MessageID      string    `json:"messageId,omitempty"`
	LastActive     time.Time `json:"lastActive"`
	LastMessage    string    `json:"lastMessage"` // Truncated preview
}

// Preferences is UI state kept between runs.
type Preferences struct {
	LastConversation *LastConversation `json:"lastConversation,omitempty"`
	ShowThinking     *bool             `json:"showThinking,omitempty"`
}

func preferencesPath(dir string) string {
	return filepath.Join(dir, "preferences.json")
}

// LoadPreferences loads preferences from dir. A missing file yields empty
// preferences.
func LoadPreferences(dir string) (*Preferences, error) {
	data, err := os.ReadFile(preferencesPath(dir))
	if os.IsNotExist(err) {
		return &Preferences{}, nil
	}
	if err != nil {
		return nil, err
	}

	var prefs Preferences
	if err := json.Unmarshal(data, &prefs); err != nil {
		return nil, err
	}
	return &prefs, nil
}

// SavePreferences saves preferences to dir.
func SavePreferences(dir string, prefs *Preferences) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(preferencesPath(dir), data, 0644)
}

// SaveLastConversation records the conversation the user was in.
func SaveLastConversation(dir, conversationID, messageID, lastMessage string) error {
	prefs, err := LoadPreferences(dir)
	if err != nil {
		prefs = &Preferences{}
	}

	const maxMessageLen = 200
	if r := []rune(lastMessage); len(r) > maxMessageLen {
		lastMessage = string(r[:maxMessageLen]) + "..."
	}

	prefs.LastConversation = &LastConversation{
		ConversationID: conversationID,
		MessageID:      messageID,
		LastActive:     time.Now(),
		LastMessage:    lastMessage,
	}

	return SavePreferences(dir, prefs)
}

// GetLastConversation returns the last conversation, or nil if there is none
// or it is too old.
func GetLastConversation(dir string) (*LastConversation, error) {
	prefs, err := LoadPreferences(dir)
	if err != nil {
		return nil, err
	}

	if prefs.LastConversation == nil {
		return nil, nil
	}
	if time.Since(prefs.LastConversation.LastActive) > MaxConversationAge {
		return nil, nil
	}

	return prefs.LastConversation, nil
}

// ClearLastConversation forgets the last conversation.
func ClearLastConversation(dir string) error {
	prefs, err := LoadPreferences(dir)
	if err != nil {
		return err
	}
	prefs.LastConversation = nil
	return SavePreferences(dir, prefs)
}

// SetShowThinking persists the thinking-panel toggle.
func SetShowThinking(dir string, show bool) error {
	prefs, err := LoadPreferences(dir)
	if err != nil {
		prefs = &Preferences{}
	}
	prefs.ShowThinking = &show
	return SavePreferences(dir, prefs)
}
