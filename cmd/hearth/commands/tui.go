// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"log/slog"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/hearth/cmd/hearth/cli"
	"github.com/bureau-foundation/hearth/lib/startupui"
)

func tuiCommand(env Environment) *cli.Command {
	var (
		settings  configFlag
		logOutput string
		noColor   bool
		debug     bool
	)

	return &cli.Command{
		Name:    "tui",
		Summary: "Open the status screen (the default)",
		Description: `Open the status screen.

The screen follows the session file: signing in or out from another
terminal restarts startup for the new identity. Log records appear on
the status line; --log-output also appends them to a JSON file.`,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("tui", pflag.ContinueOnError)
			settings.register(flagSet)
			flagSet.StringVar(&logOutput, "log-output", "", "append JSON log records to this file")
			flagSet.BoolVar(&noColor, "no-color", false, "render without color")
			flagSet.BoolVar(&debug, "debug", false, "include debug records in the log")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument %q", args[0])
			}
			cfg, err := settings.load()
			if err != nil {
				return err
			}

			level := slog.LevelInfo
			if debug {
				level = slog.LevelDebug
			}
			screen := startupui.NewTUILogHandler(level)
			handler := slog.Handler(screen)
			if logOutput != "" {
				file, closer, err := cli.OpenLogOutput(logOutput, level)
				if err != nil {
					return cli.Validation("%w", err)
				}
				defer closer.Close()
				handler = cli.TeeHandler{screen, file}
			}
			logger := slog.New(handler)

			if noColor {
				lipgloss.SetColorProfile(termenv.Ascii)
			}

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			stack := newStack(env, cfg, logger)
			provider, err := stack.watchSession(ctx)
			if err != nil {
				return err
			}
			orchestrator := stack.orchestrator(provider)
			snapshots, unsubscribe := orchestrator.Subscribe()
			defer unsubscribe()

			runDone := make(chan error, 1)
			go func() { runDone <- orchestrator.Run(ctx) }()
			stack.serveMetrics(ctx)

			err = startupui.Run(ctx, orchestrator, snapshots, screen)
			cancel()
			if runErr := <-runDone; runErr != nil && err == nil {
				err = runErr
			}
			return err
		},
	}
}
