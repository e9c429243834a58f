package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"

	"genaihub/core/adapter"
	"genaihub/core/adapter/middleware"
	"genaihub/core/config"
	"genaihub/providers/ai"
)

func main() {
	app := &cli.App{
		Name:  "genaihub",
		Usage: "stream chat completions from the configured AI Core backend",
		Commands: []*cli.Command{
			chatCommand(),
			modelsCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func chatCommand() *cli.Command {
	return &cli.Command{
		Name:      "chat",
		Usage:     "send a prompt and stream the reply to stdout",
		ArgsUsage: "PROMPT...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "model", Aliases: []string{"m"}, Usage: "model id (overrides config file)"},
			&cli.StringFlag{Name: "system", Aliases: []string{"s"}, Value: "You are a helpful assistant.", Usage: "system prompt"},
			&cli.IntFlag{Name: "max-tokens", Usage: "completion length cap"},
		},
		Action: runChat,
	}
}

func runChat(cliCtx *cli.Context) error {
	if cliCtx.NArg() == 0 {
		return cli.Exit("chat requires a prompt argument", 1)
	}
	prompt := strings.Join(cliCtx.Args().Slice(), " ")

	hub, err := newAdapter(cliCtx)
	if err != nil {
		return err
	}

	stream, err := hub.CreateMessage(cliCtx.Context, cliCtx.String("system"),
		[]ai.Message{ai.NewTextMessage(ai.RoleUser, prompt)})
	if err != nil {
		return err
	}

	interactive := isatty.IsTerminal(os.Stdout.Fd())
	for event, streamErr := range stream.Iter() {
		if streamErr != nil {
			return streamErr
		}
		fmt.Print(event.Text)
	}
	if interactive {
		fmt.Println()
	}
	return nil
}

func modelsCommand() *cli.Command {
	return &cli.Command{
		Name:  "models",
		Usage: "print the configured model and its cached capabilities",
		Action: func(cliCtx *cli.Context) error {
			hub, err := newAdapter(cliCtx)
			if err != nil {
				return err
			}

			info := hub.GetModel(cliCtx.Context)
			fmt.Printf("model: %s (backend: %s)\n", info.ID, hub.Backend())
			if info.Info == nil {
				fmt.Println("capabilities: unknown (empty catalog)")
				return nil
			}
			fmt.Printf("provider: %s\nstreaming: %t\nhistory: %t\nimages: %t\n",
				info.Info.Provider, info.Info.StreamingSupported,
				info.Info.HistorySupported, info.Info.ImageSupported)
			return nil
		},
	}
}

// newAdapter merges the settings file with CLI flags and builds the adapter.
func newAdapter(cliCtx *cli.Context) (*adapter.Adapter, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, err
	}

	configureLogging(settings.LogLevel)

	model := settings.Model
	if flagged := cliCtx.String("model"); flagged != "" {
		model = flagged
	}
	maxTokens := settings.MaxTokens
	if flagged := cliCtx.Int("max-tokens"); flagged > 0 {
		maxTokens = flagged
	}

	hub := adapter.New(adapter.Options{
		Model:         model,
		ResourceGroup: settings.ResourceGroup,
		MaxTokens:     maxTokens,
		Retry: middleware.RetryConfig{
			MaxRetries:     settings.Retry.MaxRetries,
			InitialBackoff: settings.Retry.InitialBackoff.Std(),
			MaxBackoff:     settings.Retry.MaxBackoff.Std(),
		},
	})
	if setupErr := hub.SetupError(); setupErr != nil {
		return nil, setupErr
	}
	return hub, nil
}

// configureLogging routes slog to stderr at the configured level so streamed
// text on stdout stays clean.
func configureLogging(level string) {
	var slogLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel})))
}
