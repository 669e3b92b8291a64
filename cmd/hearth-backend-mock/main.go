// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Hearth-backend-mock serves the hearth backend socket protocol from
// memory, for trying the client against a slow, stopped, or
// unauthorized backend without deploying one.
//
// It answers four actions:
//   - hello: opens a session; authenticated hellos honor --connect-delay
//     and fail in stopped mode
//   - health_check: answers anonymously after --probe-delay
//   - get_caller_profile (or getCallerUserProfile with --legacy-actions):
//     returns the configured profile, none with --empty-profile, or an
//     authorization error in unauthorized mode
//   - initialize_access_control (or initializeAccessControl): succeeds
//     once, then reports "already initialized"
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/hearth/cmd/hearth/cli"
	"github.com/bureau-foundation/hearth/lib/backend"
	"github.com/bureau-foundation/hearth/lib/clock"
	"github.com/bureau-foundation/hearth/lib/process"
	"github.com/bureau-foundation/hearth/lib/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

func run(args []string) error {
	var (
		socketPath  string
		modeName    string
		showVersion bool
		opts        options
	)
	flagSet := pflag.NewFlagSet("hearth-backend-mock", pflag.ContinueOnError)
	flagSet.StringVar(&socketPath, "socket", "", "socket path to listen on (required)")
	flagSet.StringVar(&opts.Endpoint, "endpoint", "care-home", "endpoint name the mock serves")
	flagSet.StringVar(&modeName, "mode", string(modeNormal), "normal, stopped, or unauthorized")
	flagSet.DurationVar(&opts.ConnectDelay, "connect-delay", 0, "delay before answering an authenticated hello")
	flagSet.DurationVar(&opts.ProbeDelay, "probe-delay", 0, "delay before answering a health check")
	flagSet.StringVar(&opts.Token, "token", "", "accept only this token (default accepts any)")
	flagSet.BoolVar(&opts.EmptyProfile, "empty-profile", false, "answer profile reads with no profile")
	flagSet.BoolVar(&opts.LegacyActions, "legacy-actions", false, "serve only the legacy action names")
	flagSet.StringVar(&opts.Profile.Name, "profile-name", "Ada Lovelace", "profile name")
	flagSet.StringVar(&opts.Profile.Role, "profile-role", "carer", "profile role")
	flagSet.StringVar(&opts.Profile.CareHome, "care-home", "Elm House", "profile care home")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(args); err != nil {
		return cli.Validation("%w", err)
	}

	if showVersion {
		fmt.Printf("hearth-backend-mock %s\n", version.Info())
		return nil
	}
	if socketPath == "" {
		return cli.Validation("--socket is required")
	}
	mode, err := parseMode(modeName)
	if err != nil {
		return cli.Validation("%w", err)
	}
	opts.Mode = mode

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := cli.NewCommandLogger(slog.LevelDebug).With("endpoint", opts.Endpoint)
	server := backend.NewServer(socketPath, logger)
	newBackendMock(opts, clock.Real(), logger).register(server)

	logger.Info("backend mock running",
		"socket", socketPath,
		"mode", mode,
		"connect_delay", opts.ConnectDelay,
		"legacy_actions", opts.LegacyActions,
	)
	return server.Serve(ctx)
}
