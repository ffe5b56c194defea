package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/laundryguy77/PeanutChat-sub001/internal/config"
	"github.com/laundryguy77/PeanutChat-sub001/sdk/chat"
)

func main() {
	app := &cli.App{
		Name:  "peanutchat",
		Usage: "Terminal client for a local PeanutChat backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config.toml (default ~/.config/peanutchat/config.toml)",
			},
			&cli.StringFlag{
				Name:    "backend",
				Aliases: []string{"b"},
				Usage:   "Backend URL, overrides backend_url",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn, error or off",
			},
			&cli.BoolFlag{
				Name:  "think",
				Usage: "Ask the model for its reasoning",
			},
		},
		DefaultCommand: "chat",
		Commands: []*cli.Command{
			chatCommand(),
			askCommand(),
			regenerateCommand(),
			healthCommand(),
			mockCommand(),
			configCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "peanutchat:", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies the global flags on top.
// A .env file in the working directory may set BACKEND_URL and
// PEANUT_LOG_LEVEL; variables already in the environment win.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("backend") {
		cfg.BackendURL = c.String("backend")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("think") {
		cfg.Think = c.Bool("think")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setupLogging installs the SDK logger. The TUI owns the terminal, so it
// logs to a file; the other commands log to stderr. The returned func closes
// the log file.
func setupLogging(cfg *config.Config, toFile bool) (func(), error) {
	level := cfg.LogLevel()
	if level == chat.LevelOff {
		return func() {}, nil
	}

	var w io.Writer = os.Stderr
	closeFn := func() {}
	if toFile {
		path, err := cfg.LogFile()
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFn = func() { f.Close() }
	}

	chat.SetLogger(chat.NewLogger(level, w))
	return closeFn, nil
}

func newClient(cfg *config.Config) *chat.Client {
	return chat.NewClient(cfg.BackendURL,
		chat.WithTimeout(cfg.RequestTimeout.Duration),
		chat.WithLogger(chat.GetLogger()),
	)
}
