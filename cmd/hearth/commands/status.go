// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/hearth/cmd/hearth/cli"
	"github.com/bureau-foundation/hearth/lib/startup"
)

func statusCommand(env Environment) *cli.Command {
	var (
		settings configFlag
		timeout  time.Duration
	)

	return &cli.Command{
		Name:    "status",
		Summary: "Print startup snapshots as JSON lines until startup settles",
		Description: `Run startup without the status screen.

Each snapshot is printed as one JSON object per line. The command exits
when startup settles: 0 when ready, 2 when the user must sign in or set
up a profile, 1 when startup failed.`,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("status", pflag.ContinueOnError)
			settings.register(flagSet)
			flagSet.DurationVar(&timeout, "timeout", 0, "give up if startup has not settled after this long (0 waits for the watchdog)")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument %q", args[0])
			}
			cfg, err := settings.load()
			if err != nil {
				return err
			}
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			stack := newStack(env, cfg, logger)
			stack.serveMetrics(ctx)
			provider, err := stack.watchSession(ctx)
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(env.Stdout)
			final, err := stack.runUntilSettled(ctx, provider, func(snapshot startup.Snapshot) error {
				return encoder.Encode(snapshot)
			})
			if errors.Is(err, context.DeadlineExceeded) {
				return cli.Transient("startup did not settle within %s", timeout).
					WithHint("run 'hearth doctor' to check the backend")
			}
			if err != nil {
				return err
			}
			if code := settledExitCode(final.Phase); code != 0 {
				return &cli.ExitError{Code: code}
			}
			return nil
		},
	}
}
