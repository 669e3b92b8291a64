// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the hearth command tree. Running hearth
// with no command opens the status screen; the subcommands run the
// same startup sequence headless or manage the session file.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/hearth/cmd/hearth/cli"
	"github.com/bureau-foundation/hearth/lib/clock"
	"github.com/bureau-foundation/hearth/lib/version"
)

// Environment is what the commands take from the process. Tests
// replace it to capture output and control the backend variables.
type Environment struct {
	Stdout io.Writer
	Getenv func(string) string
	Clock  clock.Clock
}

// ProcessEnvironment returns the environment of the running process.
func ProcessEnvironment() Environment {
	return Environment{
		Stdout: os.Stdout,
		Getenv: os.Getenv,
		Clock:  clock.Real(),
	}
}

// Root builds the hearth command tree.
func Root(env Environment) *cli.Command {
	tui := tuiCommand(env)
	var showVersion bool

	return &cli.Command{
		Name: "hearth",
		Description: `Hearth: care-home client.

Connects to the care-home backend, loads the signed-in carer's profile,
and shows progress while it does. When the backend is slow or stopped,
the screen says so and offers retry and sign-out.`,
		Usage: "hearth [command] [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := tui.Flags()
			flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if showVersion {
				fmt.Fprintf(env.Stdout, "hearth %s\n", version.Info())
				return nil
			}
			return tui.Run(ctx, args, logger)
		},
		Subcommands: []*cli.Command{
			tui,
			statusCommand(env),
			doctorCommand(env),
			loginCommand(env),
			logoutCommand(env),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(context.Context, []string, *slog.Logger) error {
					fmt.Fprintf(env.Stdout, "hearth %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Open the status screen",
				Command:     "hearth",
			},
			{
				Description: "Sign in with a token from a file",
				Command:     "hearth login --principal ada@elm-house --token-file ~/.hearth-token",
			},
			{
				Description: "Print startup snapshots as JSON until startup settles",
				Command:     "hearth status",
			},
			{
				Description: "Check the backend and save a diagnostics bundle",
				Command:     "hearth doctor --bundle startup.hdx",
			},
		},
	}
}
