// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/hearth/cmd/hearth/cli"
	"github.com/bureau-foundation/hearth/lib/bundle"
	"github.com/bureau-foundation/hearth/lib/codec"
	"github.com/bureau-foundation/hearth/lib/config"
	"github.com/bureau-foundation/hearth/lib/health"
	"github.com/bureau-foundation/hearth/lib/identity"
	"github.com/bureau-foundation/hearth/lib/startup"
	"github.com/bureau-foundation/hearth/lib/version"
)

// checkStatus is the outcome of one doctor check.
type checkStatus string

const (
	checkPass checkStatus = "pass"
	checkWarn checkStatus = "warn"
	checkFail checkStatus = "fail"
	checkSkip checkStatus = "skip"
)

type check struct {
	Name    string      `json:"name"`
	Status  checkStatus `json:"status"`
	Message string      `json:"message"`
	Hint    string      `json:"hint,omitempty"`
}

type doctorReport struct {
	Checks []check `json:"checks"`
	OK     bool    `json:"ok"`
	RunID  string  `json:"run_id"`
	Bundle string  `json:"bundle,omitempty"`
}

func doctorCommand(env Environment) *cli.Command {
	var (
		settings        configFlag
		bundlePath      string
		compressionName string
		dumpPath        string
		raw             bool
		outputJSON      bool
	)

	return &cli.Command{
		Name:    "doctor",
		Summary: "Check the backend and record a startup attempt",
		Description: `Check the configuration, the session, and the backend, then run one
startup attempt without the status screen.

With --bundle, the attempt's snapshots and the health probe result are
saved to a diagnostics bundle for whoever supports this installation.
--dump prints a bundle instead of running checks.`,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("doctor", pflag.ContinueOnError)
			settings.register(flagSet)
			flagSet.StringVar(&bundlePath, "bundle", "", "write a diagnostics bundle to this file")
			flagSet.StringVar(&compressionName, "compression", bundle.CompressionZstd.String(), "bundle compression: none, lz4, or zstd")
			flagSet.StringVar(&dumpPath, "dump", "", "print the diagnostics bundle in this file and exit")
			flagSet.BoolVar(&raw, "raw", false, "with --dump, print the bundle in CBOR diagnostic notation")
			flagSet.BoolVar(&outputJSON, "json", false, "print the checks as JSON")
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "Run the checks and save a bundle",
				Command:     "hearth doctor --bundle startup.hdx",
			},
			{
				Description: "Read a bundle someone sent you",
				Command:     "hearth doctor --dump startup.hdx",
			},
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument %q", args[0])
			}
			if dumpPath != "" {
				return dumpBundle(env.Stdout, dumpPath, raw)
			}
			compression, err := bundle.ParseCompression(compressionName)
			if err != nil {
				return cli.Validation("%w", err)
			}
			cfg, err := settings.load()
			if err != nil {
				return err
			}

			report := runDoctor(ctx, env, cfg, settings.path, bundlePath, compression, logger)
			if outputJSON {
				encoder := json.NewEncoder(env.Stdout)
				encoder.SetIndent("", "  ")
				if err := encoder.Encode(report); err != nil {
					return err
				}
			} else {
				printChecklist(env.Stdout, report)
			}
			if !report.OK {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

func runDoctor(ctx context.Context, env Environment, cfg *config.Config, configPath, bundlePath string, compression bundle.Compression, logger *slog.Logger) doctorReport {
	recorder := bundle.NewRecorder(env.Clock, version.Bundle(), cfg.Timeouts)
	logger = logger.With("run_id", recorder.RunID().String())
	stack := newStack(env, cfg, logger)

	var checks []check
	if configPath == "" {
		configPath = env.Getenv(config.ConfigEnvironmentVariable)
	}
	if configPath == "" {
		configPath = "built-in defaults"
	}
	checks = append(checks, check{Name: "configuration", Status: checkPass, Message: configPath})

	reachable := stack.backend.HasAddress()
	if reachable {
		checks = append(checks, check{
			Name:    "backend address",
			Status:  checkPass,
			Message: fmt.Sprintf("%s (from %s, endpoint %s)", stack.backend.Address, stack.backend.AddressSource, stack.backend.Endpoint),
		})
	} else {
		checks = append(checks, check{
			Name:    "backend address",
			Status:  checkFail,
			Message: "not configured",
			Hint:    fmt.Sprintf("set $%s or backend.socket_path, or create %s", config.EnvBackendAddress, cfg.Backend.MetadataFile),
		})
	}

	session, sessionCheck := loadSession(stack.store())
	checks = append(checks, sessionCheck)

	if reachable {
		result := stack.prober.Probe(ctx)
		recorder.SetProbe(result)
		checks = append(checks, probeCheck(result))
	} else {
		checks = append(checks, check{Name: "health probe", Status: checkSkip, Message: "no backend address"})
	}

	if sessionCheck.Status == checkFail {
		checks = append(checks, check{Name: "startup", Status: checkSkip, Message: "session file unreadable"})
	} else {
		provider := identity.NewStaticSignedIn(identity.Identity{Principal: session.Principal, Token: session.Token})
		final, err := stack.runUntilSettled(ctx, provider, func(snapshot startup.Snapshot) error {
			recorder.Record(snapshot)
			return nil
		})
		checks = append(checks, startupCheck(final, err))
	}

	report := doctorReport{Checks: checks, OK: true, RunID: recorder.RunID().String()}
	if bundlePath != "" {
		if err := bundle.WriteFile(bundlePath, recorder.Bundle(), compression); err != nil {
			report.Checks = append(report.Checks, check{Name: "bundle", Status: checkFail, Message: err.Error()})
		} else {
			report.Bundle = bundlePath
			report.Checks = append(report.Checks, check{Name: "bundle", Status: checkPass, Message: "written to " + bundlePath})
		}
	}
	for _, check := range report.Checks {
		if check.Status == checkFail {
			report.OK = false
		}
	}
	return report
}

func loadSession(store *identity.Store) (identity.Session, check) {
	session, err := store.Load()
	switch {
	case errors.Is(err, identity.ErrNoSession):
		return session, check{Name: "session", Status: checkWarn, Message: "signed out", Hint: "run 'hearth login'"}
	case err != nil:
		return session, check{Name: "session", Status: checkFail, Message: err.Error()}
	}
	message := "signed in as " + identity.Fingerprint(session.Principal)
	if session.Token == "" {
		message += " without a token"
	}
	return session, check{Name: "session", Status: checkPass, Message: message}
}

func probeCheck(result health.Result) check {
	switch result.Status {
	case health.StatusPassed:
		return check{Name: "health probe", Status: checkPass, Message: result.Message}
	case health.StatusTimedOut:
		return check{Name: "health probe", Status: checkFail, Message: "timed out", Hint: "the backend accepted the connection but did not answer"}
	}
	return check{Name: "health probe", Status: checkFail, Message: result.Message}
}

func startupCheck(final startup.Snapshot, err error) check {
	if err != nil {
		return check{Name: "startup", Status: checkFail, Message: err.Error()}
	}
	message := final.Title
	if final.Message != "" {
		message += ": " + final.Message
	}
	switch settledExitCode(final.Phase) {
	case 0:
		if final.Profile.Name != "" {
			message = "ready as " + final.Profile.Name
		}
		return check{Name: "startup", Status: checkPass, Message: message}
	case 2:
		return check{Name: "startup", Status: checkWarn, Message: message, Hint: final.Hint}
	}
	return check{Name: "startup", Status: checkFail, Message: message, Hint: final.Hint}
}

func printChecklist(w io.Writer, report doctorReport) {
	for _, check := range report.Checks {
		fmt.Fprintf(w, "[%-4s]  %-16s  %s\n", strings.ToUpper(string(check.Status)), check.Name, check.Message)
		if check.Hint != "" {
			fmt.Fprintf(w, "        %-16s  %s\n", "", check.Hint)
		}
	}
	fmt.Fprintln(w)
	if report.OK {
		fmt.Fprintf(w, "All checks passed (run %s).\n", report.RunID)
	} else {
		fmt.Fprintf(w, "Some checks failed (run %s).\n", report.RunID)
	}
}

func dumpBundle(w io.Writer, path string, raw bool) error {
	recorded, err := bundle.ReadFile(path)
	if err != nil {
		if errors.Is(err, bundle.ErrNotBundle) {
			return cli.Validation("%w", err)
		}
		return cli.NotFound("%w", err)
	}

	if raw {
		data, err := codec.Marshal(recorded)
		if err != nil {
			return cli.Internal("encoding bundle: %w", err)
		}
		text, err := codec.Diagnose(data)
		if err != nil {
			return cli.Internal("rendering bundle: %w", err)
		}
		fmt.Fprintln(w, text)
		return nil
	}

	fmt.Fprintf(w, "Run %s\n", recorded.RunID)
	fmt.Fprintf(w, "Recorded %s by hearth %s\n", recorded.CreatedAt.Format(time.RFC3339), recorded.Version)
	if recorded.Probe != nil {
		fmt.Fprintf(w, "Health probe: %s (%s)\n", recorded.Probe.Status, recorded.Probe.Message)
	}
	fmt.Fprintln(w)
	for _, entry := range recorded.Entries {
		offset := entry.At.Sub(recorded.CreatedAt).Truncate(time.Millisecond)
		fmt.Fprintf(w, "%10s  #%-3d %-24s %s\n", "+"+offset.String(), entry.Snapshot.Generation, entry.Snapshot.Phase, entry.Snapshot.Title)
	}
	if final, ok := recorded.Final(); ok && final.Phase.Failed() {
		d := final.Diagnostics
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Backend %s %s (from %s), endpoint %s\n", d.Network, d.Address, d.AddressSource, d.Endpoint)
		fmt.Fprintf(w, "Connection %s, profile %s, probe %s\n", d.Actor, d.Profile, d.Probe)
	}
	return nil
}
