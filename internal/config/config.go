// Package config loads the client configuration from a TOML file and
// persists small bits of UI state between runs.
package config

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/laundryguy77/PeanutChat-sub001/sdk/chat"
)

const (
	// EnvBackendURL overrides backend_url.
	EnvBackendURL = "BACKEND_URL"

	DefaultBackendURL     = "http://localhost:8000"
	DefaultRequestTimeout = 30 * time.Second
)

// Config is the on-disk configuration.
type Config struct {
	BackendURL     string   `toml:"backend_url"`
	Think          bool     `toml:"think"`
	ReadBufferSize int      `toml:"read_buffer_size"`
	RequestTimeout Duration `toml:"request_timeout"`

	Log LogConfig `toml:"log"`
	UI  UIConfig  `toml:"ui"`
}

type LogConfig struct {
	// Level is one of debug, info, warn, error or off.
	Level string `toml:"level"`
	// File receives the log. Empty means peanutchat.log in the config
	// directory.
	File string `toml:"file"`
}

type UIConfig struct {
	Markdown     bool `toml:"markdown"`
	ShowThinking bool `toml:"show_thinking"`
}

// Duration is a time.Duration written as a string such as "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		BackendURL:     DefaultBackendURL,
		ReadBufferSize: chat.DefaultReadBufferSize,
		RequestTimeout: Duration{DefaultRequestTimeout},
		Log: LogConfig{
			Level: "off",
		},
		UI: UIConfig{
			Markdown:     true,
			ShowThinking: true,
		},
	}
}

// Dir returns the configuration directory.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "peanutchat"), nil
}

// Path returns the default configuration file path.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the configuration at path, or at Path() when path is empty. A
// missing file yields the defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := Path()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat config %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to path as TOML, creating the directory if needed.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer file.Close()

	fmt.Fprintln(file, "# peanutchat configuration")
	fmt.Fprintln(file, "")
	return Encode(file, cfg)
}

// Encode writes cfg to w as TOML.
func Encode(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

// ApplyEnvOverrides applies BACKEND_URL and PEANUT_LOG_LEVEL.
func (c *Config) ApplyEnvOverrides() {
	if u := os.Getenv(EnvBackendURL); u != "" {
		c.BackendURL = u
	}
	if level := os.Getenv(chat.LogEnvVar); level != "" {
		c.Log.Level = level
	}
}

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs ValidateErrors

	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "backend_url",
			Message: fmt.Sprintf("invalid URL '%s', must be an http or https address", c.BackendURL),
		})
	}

	if c.ReadBufferSize <= 0 {
		errs = append(errs, ValidationError{
			Field:   "read_buffer_size",
			Message: fmt.Sprintf("must be positive, got %d", c.ReadBufferSize),
		})
	}

	if c.RequestTimeout.Duration < 0 {
		errs = append(errs, ValidationError{
			Field:   "request_timeout",
			Message: "must not be negative",
		})
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error", "off", "none", "":
	default:
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error, off", c.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// LogLevel returns the configured SDK log level.
func (c *Config) LogLevel() chat.LogLevel {
	return chat.ParseLogLevel(c.Log.Level)
}

// LogFile returns the log file path, resolving the default.
func (c *Config) LogFile() (string, error) {
	if c.Log.File != "" {
		return c.Log.File, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "peanutchat.log"), nil
}
