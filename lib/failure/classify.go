// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package failure

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strings"
	"syscall"
)

// stoppedPhrase matches "is stopped" as a phrase. The bare words
// "canister" and "stopped" appearing in separate clauses do not match.
var stoppedPhrase = regexp.MustCompile(`(?i)\bis\s+stopped\b`)

// missingBackend matches "not found" or "does not exist" only when the
// subject is the backend itself, so a handler's own "profile not found"
// keeps its category.
var missingBackend = regexp.MustCompile(`\b(?:canister|backend|endpoint|address|socket)(?:\s+\S+)?\s+(?:was\s+)?(?:not\s+found|does\s+not\s+exist)\b`)

// stoppedMarker is the reject code the backend manager attaches to
// calls against a stopped backend.
const stoppedMarker = "IC0508"

type rule struct {
	category Category
	match    func(err error, text string) bool
}

// rules is evaluated in order; the first match wins.
var rules = []rule{
	{StoppedBackend, func(_ error, text string) bool {
		return stoppedPhrase.MatchString(text) || strings.Contains(text, stoppedMarker)
	}},
	{NotFound, func(err error, text string) bool {
		return errors.Is(err, syscall.ENOENT) || missingBackend.MatchString(text) ||
			containsAny(text, "not deployed", "no such file or directory")
	}},
	{Network, func(err error, text string) bool {
		return isNetworkError(err) || containsAny(text,
			"connection refused", "connection reset", "network error", "unreachable",
			"failed to fetch", "no route to host", "broken pipe")
	}},
	{Timeout, func(err error, text string) bool {
		return isTimeout(err) || containsAny(text, "timed out", "timeout", "deadline exceeded")
	}},
	{AnonymousAccess, func(_ error, text string) bool {
		return containsAny(text, "anonymous", "unauthenticated")
	}},
	{Authorization, func(_ error, text string) bool {
		return containsAny(text,
			"unauthorized", "not authorized", "permission denied", "forbidden", "access denied")
	}},
	{NonFatal, func(_ error, text string) bool {
		return containsAny(text, "already initialized")
	}},
}

// Classify returns the category of err. A nil error is Unknown.
func Classify(err error) Category {
	if err == nil {
		return Unknown
	}
	text := err.Error()
	lower := strings.ToLower(text)
	for _, candidate := range rules {
		// The stopped rule needs the original case for its marker;
		// the regexp is case-insensitive on its own.
		subject := lower
		if candidate.category == StoppedBackend {
			subject = text
		}
		if candidate.match(err, subject) {
			return candidate.category
		}
	}
	return Unknown
}

// isAdminOnly reports whether an Authorization failure names an
// administrator-only action.
func isAdminOnly(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "admin")
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var timeout interface{ Timeout() bool }
	return errors.As(err, &timeout) && timeout.Timeout()
}

func isNetworkError(err error) bool {
	for _, errno := range []syscall.Errno{
		syscall.ECONNREFUSED,
		syscall.ECONNRESET,
		syscall.EHOSTUNREACH,
		syscall.ENETUNREACH,
	} {
		if errors.Is(err, errno) {
			return true
		}
	}
	var opError *net.OpError
	return errors.As(err, &opError) && opError.Op == "dial" && !opError.Timeout()
}

func containsAny(text string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}
