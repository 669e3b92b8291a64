// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/hearth/cmd/hearth/cli"
	"github.com/bureau-foundation/hearth/lib/actor"
	"github.com/bureau-foundation/hearth/lib/backend"
	"github.com/bureau-foundation/hearth/lib/config"
	"github.com/bureau-foundation/hearth/lib/health"
	"github.com/bureau-foundation/hearth/lib/identity"
	"github.com/bureau-foundation/hearth/lib/startup"
	"github.com/bureau-foundation/hearth/lib/telemetry"
)

// configFlag is the --config flag every command shares.
type configFlag struct {
	path string
}

func (f *configFlag) register(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.path, "config", "", "config file (default $"+config.ConfigEnvironmentVariable+", then built-in defaults)")
}

func (f *configFlag) load() (*config.Config, error) {
	cfg, err := config.Load(f.path)
	if err != nil {
		return nil, cli.NotFound("%w", err).WithHint("check --config or $" + config.ConfigEnvironmentVariable)
	}
	if err := cfg.Validate(); err != nil {
		return nil, cli.Validation("invalid configuration: %w", err)
	}
	return cfg, nil
}

// stack is the startup machinery for one command invocation.
type stack struct {
	config   *config.Config
	backend  config.Backend
	actors   *actor.Manager
	prober   *health.Prober
	registry *prometheus.Registry
	metrics  *telemetry.Collector
	logger   *slog.Logger
	env      Environment
}

func newStack(env Environment, cfg *config.Config, logger *slog.Logger) *stack {
	metadata := config.NewMetadataSource(cfg.Backend.MetadataFile)
	resolved, err := config.ResolveBackend(env.Getenv, cfg.Backend, metadata)
	if err != nil {
		logger.Warn("backend metadata unreadable", "path", metadata.Path(), "error", err)
	}

	endpoint := resolved.Endpoint
	if endpoint == config.Unknown {
		endpoint = ""
	}
	connector := &backend.SocketConnector{
		Address:  resolved.DialAddress(),
		Endpoint: endpoint,
		Logger:   logger,
	}
	secondaryToken, _ := resolved.SecondaryInitToken()

	registry := prometheus.NewRegistry()
	return &stack{
		config:  cfg,
		backend: resolved,
		actors: actor.NewManager(actor.Config{
			Connector:          connector,
			Clock:              env.Clock,
			Logger:             logger,
			ActorCreation:      cfg.Timeouts.ActorCreation,
			SecondaryInit:      cfg.Timeouts.SecondaryInit,
			SecondaryInitToken: secondaryToken,
		}),
		prober:   health.NewProber(connector, env.Clock, cfg.Timeouts.HealthProbe, logger),
		registry: registry,
		metrics:  telemetry.NewCollector(registry),
		logger:   logger,
		env:      env,
	}
}

func (s *stack) store() *identity.Store {
	return &identity.Store{Path: s.config.Session.File, KeyPath: s.config.Session.KeyFile}
}

func (s *stack) orchestrator(provider identity.Provider) *startup.Orchestrator {
	return startup.New(startup.Config{
		Identity: provider,
		Actors:   s.actors,
		Prober:   s.prober,
		Timeouts: s.config.Timeouts,
		Backend:  s.backend,
		Clock:    s.env.Clock,
		Logger:   s.logger,
		Recorder: s.metrics,
	})
}

// watchSession starts a provider that follows the session file until
// ctx ends.
func (s *stack) watchSession(ctx context.Context) (*identity.FileProvider, error) {
	provider := identity.NewFileProvider(s.store(), s.env.Clock, s.logger)
	if err := provider.Start(ctx); err != nil {
		return nil, cli.Internal("watching session file: %w", err)
	}
	return provider, nil
}

// serveMetrics runs the /metrics listener in the background when one
// is configured.
func (s *stack) serveMetrics(ctx context.Context) {
	address := s.config.Telemetry.MetricsListen
	if address == "" {
		return
	}
	go func() {
		if err := telemetry.Serve(ctx, address, s.registry, s.logger); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("metrics listener failed", "error", err)
		}
	}()
}

// settledExitCode maps a settled phase to the exit code of the
// headless commands: 0 when ready, 2 when the user must act, 1 when
// startup failed.
func settledExitCode(phase startup.Phase) int {
	switch phase {
	case startup.Ready:
		return 0
	case startup.Unauthenticated, startup.ProfileSetupRequired:
		return 2
	}
	return 1
}

// runUntilSettled runs one orchestrator against provider until it
// publishes a settled phase, passing every snapshot to visit.
func (s *stack) runUntilSettled(ctx context.Context, provider identity.Provider, visit func(startup.Snapshot) error) (startup.Snapshot, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	orchestrator := s.orchestrator(provider)
	snapshots, unsubscribe := orchestrator.Subscribe()
	defer unsubscribe()

	runDone := make(chan error, 1)
	go func() { runDone <- orchestrator.Run(ctx) }()

	final, err := follow(ctx, snapshots, visit)
	cancel()
	if runErr := <-runDone; runErr != nil && err == nil {
		err = runErr
	}
	return final, err
}

// follow reads snapshots until one is settled, ctx ends, or visit
// fails.
func follow(ctx context.Context, snapshots <-chan startup.Snapshot, visit func(startup.Snapshot) error) (startup.Snapshot, error) {
	for {
		select {
		case <-ctx.Done():
			return startup.Snapshot{}, ctx.Err()
		case snapshot := <-snapshots:
			if err := visit(snapshot); err != nil {
				return snapshot, err
			}
			if snapshot.Phase.Settled() {
				return snapshot, nil
			}
		}
	}
}
