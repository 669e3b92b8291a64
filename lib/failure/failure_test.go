// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package failure

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/bureau-foundation/hearth/lib/deadline"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"nil", nil, Unknown},
		{"stopped phrase", errors.New("Canister abc-123 is stopped"), StoppedBackend},
		{"stopped phrase extra whitespace", errors.New("backend IS   Stopped"), StoppedBackend},
		{"stopped marker", errors.New("call rejected: IC0508 reject"), StoppedBackend},
		{"stopped inside timeout wrapper", fmt.Errorf("creating actor: %w",
			errors.New("timeout waiting: canister is stopped")), StoppedBackend},
		{"not found text", errors.New("Canister 7x not found"), NotFound},
		{"not deployed", errors.New("backend was not deployed to this network"), NotFound},
		{"missing socket", &net.OpError{Op: "dial", Net: "unix",
			Err: os.NewSyscallError("connect", syscall.ENOENT)}, NotFound},
		{"refused text", errors.New("dial tcp: connection refused"), Network},
		{"refused errno", fmt.Errorf("calling hello: %w", syscall.ECONNREFUSED), Network},
		{"failed to fetch", errors.New("TypeError: Failed to fetch"), Network},
		{"unreachable", errors.New("host unreachable"), Network},
		{"deadline error", &deadline.Error{Message: "creating actor", After: 30 * time.Second}, Timeout},
		{"context deadline", fmt.Errorf("profile: %w", context.DeadlineExceeded), Timeout},
		{"timed out text", errors.New("request timed out"), Timeout},
		{"anonymous", errors.New("Anonymous principal may not call this method"), AnonymousAccess},
		{"unauthorized", errors.New("Unauthorized: caller lacks role"), Authorization},
		{"admin only", errors.New("Unauthorized: only admins can do this"), Authorization},
		{"permission denied", errors.New("permission denied"), Authorization},
		{"already initialized", errors.New("access control already initialized"), NonFatal},
		{"unknown", errors.New("resident record schema mismatch"), Unknown},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := Classify(test.err); got != test.want {
				t.Errorf("Classify(%v) = %q, want %q", test.err, got, test.want)
			}
		})
	}
}

// The stopped-backend matcher once fired whenever "canister" and
// "stopped" both appeared. These texts must not classify as stopped.
func TestClassifyStoppedDoesNotMatchUnrelatedWords(t *testing.T) {
	texts := []string{
		"canister upgrade failed; sync stopped by user",
		"Canister call failed: the poller stopped early",
		"stopped waiting for canister response",
		"canister unstopped",
		"the process stopped; canister state unknown",
	}
	for _, text := range texts {
		if got := Classify(errors.New(text)); got == StoppedBackend {
			t.Errorf("Classify(%q) = StoppedBackend", text)
		}
	}
}

// Backend replies and socket paths carry words like "not found" and
// "network" without being about the backend or the transport.
func TestClassifyIncidentalWords(t *testing.T) {
	tests := []struct {
		text string
		want Category
	}{
		{`backend error on "get_caller_profile": profile not found for caller`, Unknown},
		{`calling "get_caller_profile" on /run/care-network/backend.sock: reading response: i/o timeout`, Timeout},
		{"caller is not authorized on this network", Authorization},
		{"resident file does not exist", Unknown},
		{`backend error on "hello": endpoint care-home-2 not found`, NotFound},
		{"backend address not found in environment or metadata", NotFound},
	}
	for _, test := range tests {
		if got := Classify(errors.New(test.text)); got != test.want {
			t.Errorf("Classify(%q) = %q, want %q", test.text, got, test.want)
		}
	}
}

func TestClassifyPriorityOrder(t *testing.T) {
	// Each text matches its own category and every later one.
	tests := []struct {
		text string
		want Category
	}{
		{"is stopped: not found, connection refused, timed out", StoppedBackend},
		{"backend not found after connection refused and timeout", NotFound},
		{"network error after timeout", Network},
		{"timed out as anonymous caller", Timeout},
		{"anonymous caller unauthorized", AnonymousAccess},
		{"unauthorized: already initialized", Authorization},
	}
	for _, test := range tests {
		if got := Classify(errors.New(test.text)); got != test.want {
			t.Errorf("Classify(%q) = %q, want %q", test.text, got, test.want)
		}
	}
}

func TestMessageTemplates(t *testing.T) {
	for _, category := range Categories {
		if category == Unknown {
			continue
		}
		if templates[category] == "" {
			t.Errorf("category %q has no message template", category)
		}
	}

	raw := errors.New("Canister xyz is stopped (IC0508)")
	got := Message(raw)
	if got != templates[StoppedBackend] {
		t.Errorf("Message = %q, want stopped template", got)
	}
	if strings.Contains(got, "xyz") {
		t.Errorf("Message leaked raw text: %q", got)
	}
}

func TestMessageUnknown(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, GenericMessage},
		{"descriptive kept", errors.New("resident schema version 4 is newer than client"),
			"resident schema version 4 is newer than client"},
		{"placeholder", errors.New("Unknown Error"), GenericMessage},
		{"blank", errors.New("   "), GenericMessage},
		{"too long", errors.New(strings.Repeat("x", maxPreservedLength+1)), GenericMessage},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := Message(test.err); got != test.want {
				t.Errorf("Message = %q, want %q", got, test.want)
			}
		})
	}
}

func TestDescribeAdminOnly(t *testing.T) {
	admin := Describe(errors.New("Unauthorized: admin role required"))
	if admin.Category != Authorization || !admin.AdminOnly {
		t.Fatalf("Describe = %+v, want admin-only authorization", admin)
	}
	if admin.Message != adminOnlyMessage {
		t.Errorf("Message = %q, want admin template", admin.Message)
	}

	plain := Describe(errors.New("forbidden"))
	if plain.AdminOnly || plain.Message != templates[Authorization] {
		t.Errorf("Describe = %+v, want plain authorization", plain)
	}

	network := Describe(errors.New("network down for admin console"))
	if network.AdminOnly {
		t.Errorf("AdminOnly set on %q category", network.Category)
	}
}

func TestTitles(t *testing.T) {
	seen := map[string]Category{}
	for _, category := range Categories {
		title := category.Title()
		if title == "" {
			t.Errorf("%q has empty title", category)
		}
		if previous, ok := seen[title]; ok {
			t.Errorf("%q and %q share title %q", previous, category, title)
		}
		seen[title] = category
	}
}
