package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laundryguy77/PeanutChat-sub001/sdk/chat"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvBackendURL, "")
	t.Setenv(chat.LogEnvVar, "")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadTOML(t *testing.T) {
	t.Setenv(EnvBackendURL, "")
	t.Setenv(chat.LogEnvVar, "")

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend_url = "http://10.0.0.5:9000"
think = true
request_timeout = "5s"

[log]
level = "debug"

[ui]
show_thinking = false
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:9000", cfg.BackendURL)
	assert.True(t, cfg.Think)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout.Duration)
	assert.Equal(t, chat.LevelDebug, cfg.LogLevel())
	assert.False(t, cfg.UI.ShowThinking)

	// Keys absent from the file keep their defaults.
	assert.Equal(t, chat.DefaultReadBufferSize, cfg.ReadBufferSize)
	assert.True(t, cfg.UI.Markdown)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvBackendURL, "https://chat.example.com")
	t.Setenv(chat.LogEnvVar, "warn")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, "https://chat.example.com", cfg.BackendURL)
	assert.Equal(t, chat.LevelWarn, cfg.LogLevel())
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.BackendURL = "localhost:8000"
	cfg.ReadBufferSize = 0
	cfg.Log.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)

	var errs ValidateErrors
	require.ErrorAs(t, err, &errs)
	assert.Len(t, errs, 3)
	assert.Contains(t, err.Error(), "backend_url")
	assert.Contains(t, err.Error(), "read_buffer_size")
	assert.Contains(t, err.Error(), "log.level")
}

func TestLoadInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`backend_url = `), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv(EnvBackendURL, "")
	t.Setenv(chat.LogEnvVar, "")

	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Think = true
	cfg.RequestTimeout = Duration{90 * time.Second}

	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestPreferences(t *testing.T) {
	dir := t.TempDir()

	last, err := GetLastConversation(dir)
	require.NoError(t, err)
	assert.Nil(t, last)

	require.NoError(t, SaveLastConversation(dir, "conv-1", "msg-2", "hello there"))
	require.NoError(t, SetShowThinking(dir, false))

	last, err = GetLastConversation(dir)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "conv-1", last.ConversationID)
	assert.Equal(t, "msg-2", last.MessageID)
	assert.Equal(t, "hello there", last.LastMessage)

	prefs, err := LoadPreferences(dir)
	require.NoError(t, err)
	require.NotNil(t, prefs.ShowThinking)
	assert.False(t, *prefs.ShowThinking)

	require.NoError(t, ClearLastConversation(dir))
	last, err = GetLastConversation(dir)
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestStaleConversationIsNotOffered(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, SavePreferences(dir, &Preferences{
		LastConversation: &LastConversation{
			ConversationID: "old",
			LastActive:     time.Now().Add(-48 * time.Hour),
		},
	}))

	last, err := GetLastConversation(dir)
	require.NoError(t, err)
	assert.Nil(t, last)
}
