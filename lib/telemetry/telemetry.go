// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry records startup metrics in Prometheus form.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements the orchestrator's metrics hooks.
type Collector struct {
	attempts    prometheus.Counter
	phases      *prometheus.CounterVec
	probes      *prometheus.CounterVec
	failures    *prometheus.CounterVec
	retries     prometheus.Counter
	logouts     prometheus.Counter
	timeToReady prometheus.Histogram
}

// NewCollector creates the metrics and registers them with registerer.
func NewCollector(registerer prometheus.Registerer) *Collector {
	c := &Collector{
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hearth_startup_attempts_total",
			Help: "Startup attempts launched, including retries and re-logins.",
		}),
		phases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hearth_startup_phase_entered_total",
			Help: "Transitions into each startup phase.",
		}, []string{"phase"}),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hearth_health_probes_total",
			Help: "Completed health probes by outcome.",
		}, []string{"status"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hearth_startup_failures_total",
			Help: "Actor and profile failures by operation and category.",
		}, []string{"operation", "category"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hearth_startup_retries_total",
			Help: "User-initiated retries.",
		}),
		logouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hearth_logouts_total",
			Help: "Logouts requested from the startup screen.",
		}),
		timeToReady: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hearth_startup_time_to_ready_seconds",
			Help:    "Time from attempt start to the Ready phase.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 15, 30, 45, 60},
		}),
	}
	registerer.MustRegister(
		c.attempts,
		c.phases,
		c.probes,
		c.failures,
		c.retries,
		c.logouts,
		c.timeToReady,
	)
	return c
}

func (c *Collector) AttemptStarted() { c.attempts.Inc() }

func (c *Collector) PhaseEntered(phase string) { c.phases.WithLabelValues(phase).Inc() }

func (c *Collector) ProbeFinished(status string) { c.probes.WithLabelValues(status).Inc() }

func (c *Collector) OperationFailed(operation, category string) {
	c.failures.WithLabelValues(operation, category).Inc()
}

func (c *Collector) Retried() { c.retries.Inc() }

func (c *Collector) LoggedOut() { c.logouts.Inc() }

func (c *Collector) Ready(elapsed time.Duration) { c.timeToReady.Observe(elapsed.Seconds()) }

// Handler serves gatherer in the Prometheus exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}

// Serve exposes /metrics on address until ctx ends.
func Serve(ctx context.Context, address string, gatherer prometheus.Gatherer, logger *slog.Logger) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("listening for metrics on %s: %w", address, err)
	}
	server := &http.Server{
		Handler:           Handler(gatherer),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", "address", listener.Addr().String())
	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving metrics: %w", err)
	}
	return nil
}
