// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewCommandLogger returns a logger on stderr: text when stderr is a
// terminal, JSON when it is piped or redirected.
func NewCommandLogger(level slog.Level) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}

// OpenLogOutput opens path for appending JSON log records. The caller
// closes the returned writer.
func OpenLogOutput(path string, level slog.Level) (slog.Handler, io.Closer, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log output %s: %w", path, err)
	}
	return slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}), file, nil
}

// TeeHandler sends every record to each of its handlers that is
// enabled for the record's level.
type TeeHandler []slog.Handler

func (t TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range t {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t TeeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, handler := range t {
		if handler.Enabled(ctx, record.Level) {
			if err := handler.Handle(ctx, record.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (t TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := make(TeeHandler, len(t))
	for index, handler := range t {
		derived[index] = handler.WithAttrs(attrs)
	}
	return derived
}

func (t TeeHandler) WithGroup(name string) slog.Handler {
	derived := make(TeeHandler, len(t))
	for index, handler := range t {
		derived[index] = handler.WithGroup(name)
	}
	return derived
}
