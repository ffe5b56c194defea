package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v2"

	"github.com/laundryguy77/PeanutChat-sub001/internal/app"
	"github.com/laundryguy77/PeanutChat-sub001/internal/attach"
	"github.com/laundryguy77/PeanutChat-sub001/internal/config"
	"github.com/laundryguy77/PeanutChat-sub001/internal/mock"
	"github.com/laundryguy77/PeanutChat-sub001/internal/styles"
	"github.com/laundryguy77/PeanutChat-sub001/sdk/chat"
)

func chatCommand() *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Open the interactive chat (default)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "resume",
				Aliases: []string{"r"},
				Usage:   "Open an existing conversation by id",
			},
			&cli.BoolFlag{
				Name:  "continue",
				Usage: "Reopen the last conversation of the past day",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			closeLog, err := setupLogging(cfg, true)
			if err != nil {
				return err
			}
			defer closeLog()

			prefsDir, err := config.Dir()
			if err != nil {
				return err
			}

			m := app.New(newClient(cfg), cfg, prefsDir)
			switch {
			case c.String("resume") != "":
				m.Resume(c.String("resume"))
			case c.Bool("continue"):
				last, err := config.GetLastConversation(prefsDir)
				if err != nil {
					return err
				}
				if last != nil {
					m.Resume(last.ConversationID)
				}
			}

			p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
			m.SetProgram(p)
			_, err = p.Run()
			return err
		},
	}
}

func askCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Stream one reply to stdout",
		ArgsUsage: "<message>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "conversation",
				Usage: "Continue this conversation instead of starting a new one",
			},
			&cli.StringSliceFlag{
				Name:  "image",
				Usage: "Attach an image (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:  "file",
				Usage: "Attach a file (repeatable)",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			closeLog, err := setupLogging(cfg, false)
			if err != nil {
				return err
			}
			defer closeLog()

			req, err := attach.Request(strings.Join(c.Args().Slice(), " "), chat.Bool(cfg.Think))
			if err != nil {
				return err
			}
			for _, path := range c.StringSlice("image") {
				img, err := attach.Image(path)
				if err != nil {
					return err
				}
				req.Images = append(req.Images, img)
			}
			for _, path := range c.StringSlice("file") {
				f, err := attach.File(path)
				if err != nil {
					return err
				}
				req.Files = append(req.Files, f)
			}
			if req.IsEmpty() {
				return cli.Exit("nothing to send: pass a message", 2)
			}

			client := newClient(cfg)
			return runStream(c.Context, cfg, client, func(ctx context.Context, ctrl *chat.Controller) (*chat.Session, error) {
				return ctrl.Send(ctx, c.String("conversation"), req)
			})
		},
	}
}

func regenerateCommand() *cli.Command {
	return &cli.Command{
		Name:  "regenerate",
		Usage: "Replace the last reply of a conversation",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "conversation",
				Usage:    "Conversation id",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "message",
				Usage: "Reply or user message to regenerate from (default: the last user message)",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			closeLog, err := setupLogging(cfg, false)
			if err != nil {
				return err
			}
			defer closeLog()

			client := newClient(cfg)
			convID := c.String("conversation")
			return runStream(c.Context, cfg, client, func(ctx context.Context, ctrl *chat.Controller) (*chat.Session, error) {
				messageID := c.String("message")
				if messageID == "" {
					conv, err := client.GetConversation(ctx, convID)
					if err != nil {
						return nil, err
					}
					last := conv.LastUserMessage()
					if last == nil {
						return nil, fmt.Errorf("conversation %s has no user message", convID)
					}
					messageID = last.ID
				}
				return ctrl.Regenerate(ctx, convID, messageID)
			})
		},
	}
}

// runStream prints a session as it streams: content to stdout, reasoning
// and tool activity to stderr. Ctrl+C stops the generation and keeps what
// arrived.
func runStream(parent context.Context, cfg *config.Config, client *chat.Client, start func(context.Context, *chat.Controller) (*chat.Session, error)) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	thinking := lipgloss.NewStyle().Foreground(styles.ThinkingFg).Italic(true)
	ctrl := newController(cfg, client, chat.Callbacks{
		OnThinkingToken: func(tok string) { fmt.Fprint(os.Stderr, thinking.Render(tok)) },
		OnThinkingDone:  func() { fmt.Fprintln(os.Stderr) },
		OnContentToken:  func(tok string) { fmt.Print(tok) },
		OnToolCallStarted: func(e chat.ToolCallEntry) {
			fmt.Fprintf(os.Stderr, "%s %s\n", styles.ToolRunning.Render("⚙"), styles.ToolName.Render(e.Name))
		},
		OnToolCallResolved: func(e chat.ToolCallEntry) {
			if e.Status == chat.ToolError {
				fmt.Fprintf(os.Stderr, "%s %s %s\n", styles.ToolFailed.Render("✗"), e.Name, e.StatusMessage)
				return
			}
			fmt.Fprintf(os.Stderr, "%s %s\n", styles.ToolDone.Render("✓"), e.Name)
		},
	})

	sess, err := start(ctx, ctrl)
	fmt.Println()
	if sess != nil && sess.ConversationID() != "" {
		fmt.Fprintf(os.Stderr, "conversation: %s\n", sess.ConversationID())
	}
	if err != nil && ctx.Err() == nil {
		return err
	}
	if err != nil || sess == nil || sess.Outcome() == chat.OutcomeCancelled {
		return cli.Exit("", 130)
	}
	return nil
}

// newController builds the controller of a one-shot command from the
// configuration.
func newController(cfg *config.Config, client *chat.Client, cb chat.Callbacks) *chat.Controller {
	return chat.NewController(client,
		chat.WithConversationStore(client),
		chat.WithControllerLogger(chat.GetLogger()),
		chat.WithReadBufferSize(cfg.ReadBufferSize),
		chat.WithCallbacks(cb),
	)
}

func healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check that the backend is reachable",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			resp, err := newClient(cfg).Health(c.Context)
			if err != nil {
				return fmt.Errorf("%s: %w", cfg.BackendURL, err)
			}
			fmt.Printf("%s: %s\n", cfg.BackendURL, resp.Status)
			return nil
		},
	}
}

func mockCommand() *cli.Command {
	return &cli.Command{
		Name:  "mock",
		Usage: "Serve a mock backend for local testing",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Value: "127.0.0.1:8000",
				Usage: "Listen address",
			},
			&cli.Float64Flag{
				Name:  "rate",
				Value: 30,
				Usage: "Tokens per second, 0 for no pacing",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if !c.IsSet("log-level") && cfg.Log.Level == "off" {
				cfg.Log.Level = "info"
			}
			closeLog, err := setupLogging(cfg, false)
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
			defer stop()

			srv := mock.NewServer(
				mock.WithTokenRate(c.Float64("rate")),
				mock.WithLogger(chat.GetLogger()),
			)
			return srv.ListenAndServe(ctx, c.String("addr"))
		},
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage the configuration file",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write the default configuration",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "force", Usage: "Overwrite an existing file"},
				},
				Action: func(c *cli.Context) error {
					path, err := configPath(c)
					if err != nil {
						return err
					}
					if _, err := os.Stat(path); err == nil && !c.Bool("force") {
						return fmt.Errorf("%s already exists, use --force to overwrite", path)
					} else if err != nil && !errors.Is(err, os.ErrNotExist) {
						return err
					}
					if err := config.Save(config.Default(), path); err != nil {
						return err
					}
					fmt.Println("wrote", path)
					return nil
				},
			},
			{
				Name:  "show",
				Usage: "Print the effective configuration",
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					return config.Encode(os.Stdout, cfg)
				},
			},
		},
	}
}

func configPath(c *cli.Context) (string, error) {
	if p := c.String("config"); p != "" {
		return p, nil
	}
	return config.Path()
}
