// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/hearth/cmd/hearth/cli"
	"github.com/bureau-foundation/hearth/lib/identity"
)

func loginCommand(env Environment) *cli.Command {
	var (
		settings    configFlag
		principal   string
		token       string
		tokenFile   string
		generateKey bool
	)

	return &cli.Command{
		Name:    "login",
		Summary: "Write the session file",
		Description: `Sign in by writing the session file. A running status screen notices
the change and restarts startup for the new identity.

When session.key_file is configured the session is encrypted to that
age identity; --generate-key creates it first.`,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("login", pflag.ContinueOnError)
			settings.register(flagSet)
			flagSet.StringVar(&principal, "principal", "", "principal to sign in as (required)")
			flagSet.StringVar(&token, "token", "", "access token")
			flagSet.StringVar(&tokenFile, "token-file", "", "read the access token from this file")
			flagSet.BoolVar(&generateKey, "generate-key", false, "create the session key file before writing the session")
			return flagSet
		},
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument %q", args[0])
			}
			if principal == "" {
				return cli.Validation("--principal is required")
			}
			if token != "" && tokenFile != "" {
				return cli.Validation("--token and --token-file are mutually exclusive")
			}
			if tokenFile != "" {
				data, err := os.ReadFile(tokenFile)
				if err != nil {
					return cli.NotFound("reading token file: %w", err)
				}
				token = strings.TrimSpace(string(data))
			}

			cfg, err := settings.load()
			if err != nil {
				return err
			}
			store := &identity.Store{Path: cfg.Session.File, KeyPath: cfg.Session.KeyFile}

			if generateKey {
				if store.KeyPath == "" {
					return cli.Validation("--generate-key needs a key file").
						WithHint("set session.key_file in the config file")
				}
				if _, err := os.Stat(store.KeyPath); err == nil {
					return cli.Validation("session key %s already exists", store.KeyPath)
				} else if !errors.Is(err, fs.ErrNotExist) {
					return cli.Internal("checking session key: %w", err)
				}
				if err := identity.GenerateKey(store.KeyPath); err != nil {
					return cli.Internal("%w", err)
				}
				logger.Info("session key created", "path", store.KeyPath)
			}

			if token == "" {
				logger.Warn("no token given, the backend will treat this session as anonymous")
			}
			if err := store.Save(identity.Session{Principal: principal, Token: token}); err != nil {
				return cli.Internal("%w", err)
			}
			fmt.Fprintf(env.Stdout, "Signed in as %s (%s)\n", principal, identity.Fingerprint(principal))
			return nil
		},
	}
}

func logoutCommand(env Environment) *cli.Command {
	var settings configFlag

	return &cli.Command{
		Name:    "logout",
		Summary: "Remove the session file",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("logout", pflag.ContinueOnError)
			settings.register(flagSet)
			return flagSet
		},
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument %q", args[0])
			}
			cfg, err := settings.load()
			if err != nil {
				return err
			}
			store := &identity.Store{Path: cfg.Session.File, KeyPath: cfg.Session.KeyFile}
			if err := store.Remove(); err != nil {
				return cli.Internal("%w", err)
			}
			fmt.Fprintln(env.Stdout, "Signed out")
			return nil
		},
	}
}
