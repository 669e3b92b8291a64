// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package startupui

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func record(message string, attrs ...slog.Attr) slog.Record {
	r := slog.NewRecord(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC), slog.LevelWarn, message, 0)
	r.AddAttrs(attrs...)
	return r
}

func TestSummarize(t *testing.T) {
	handler := NewTUILogHandler(slog.LevelInfo)

	if got := handler.summarize(record("health probe passed")); got != "health probe passed" {
		t.Errorf("summary = %q", got)
	}

	derived := handler.WithAttrs([]slog.Attr{slog.String("principal", "9f2c")}).(*TUILogHandler)
	got := derived.summarize(record("backend connection failed", slog.String("category", "network")))
	if want := "backend connection failed (principal=9f2c, category=network)"; got != want {
		t.Errorf("summary = %q, want %q", got, want)
	}

	grouped := handler.WithGroup("probe").WithAttrs([]slog.Attr{slog.Int("id", 4)}).(*TUILogHandler)
	got = grouped.summarize(record("health probe started", slog.Int("generation", 2)))
	if want := "health probe started (probe.id=4, probe.generation=2)"; got != want {
		t.Errorf("summary = %q, want %q", got, want)
	}
}

func TestHandlerLevelAndMissingProgram(t *testing.T) {
	handler := NewTUILogHandler(slog.LevelWarn)
	if handler.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info enabled at warn level")
	}
	if !handler.Enabled(context.Background(), slog.LevelError) {
		t.Error("error disabled at warn level")
	}
	if err := handler.Handle(context.Background(), record("dropped")); err != nil {
		t.Errorf("Handle without a program: %v", err)
	}
}

func TestDerivedHandlersShareProgram(t *testing.T) {
	handler := NewTUILogHandler(slog.LevelInfo)
	derived := handler.WithAttrs([]slog.Attr{slog.String("a", "b")}).(*TUILogHandler)
	if derived.program != handler.program {
		t.Error("derived handler does not share the program pointer")
	}
}
