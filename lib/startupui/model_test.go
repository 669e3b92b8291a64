// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package startupui

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/bureau-foundation/hearth/lib/actor"
	"github.com/bureau-foundation/hearth/lib/backend"
	"github.com/bureau-foundation/hearth/lib/clock"
	"github.com/bureau-foundation/hearth/lib/failure"
	"github.com/bureau-foundation/hearth/lib/health"
	"github.com/bureau-foundation/hearth/lib/startup"
)

func TestMain(m *testing.M) {
	// Plain text output so assertions do not depend on the terminal
	// running the tests.
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

var _ Controller = (*startup.Orchestrator)(nil)

var testEpoch = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

type fakeController struct {
	mu        sync.Mutex
	retries   int
	logouts   int
	refreshes int
	logoutErr error
}

func (c *fakeController) Retry() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retries++
}

func (c *fakeController) Logout(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logouts++
	return c.logoutErr
}

func (c *fakeController) RefreshProfile() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshes++
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func newTestModel(controller Controller, fake *clock.FakeClock) Model {
	model := NewModel(controller, nil, fake)
	updated, _ := model.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(Model)
}

func show(t *testing.T, model Model, snapshot startup.Snapshot) Model {
	t.Helper()
	updated, _ := model.Update(snapshotMsg{snapshot: snapshot})
	return updated.(Model)
}

func stoppedBackend() startup.Snapshot {
	return startup.Snapshot{
		Phase:      startup.ActorError,
		Generation: 3,
		Title:      failure.StoppedBackend.Title(),
		Message:    "The care-home backend is stopped.",
		Failure:    failure.Classification{Category: failure.StoppedBackend, Message: "The care-home backend is stopped."},
		Health:     health.Result{Status: health.StatusPassed, Message: health.ReachableMessage},
		Diagnostics: startup.Diagnostics{
			Network:       "oakfield",
			Address:       "/run/hearth/backend.sock",
			AddressSource: "environment",
			Endpoint:      "care-home",
			Actor:         actor.StatusError,
			Profile:       startup.ProfileLoading,
			Probe:         health.StatusPassed,
		},
		AttemptStartedAt: testEpoch,
		CanRetry:         true,
		CanLogout:        true,
	}
}

func TestViewBeforeFirstSnapshot(t *testing.T) {
	model := newTestModel(&fakeController{}, clock.Fake(testEpoch))
	view := model.View()
	if !strings.Contains(view, "Starting") {
		t.Errorf("view = %q", view)
	}
	if strings.Contains(view, "retry") || strings.Contains(view, "sign out") {
		t.Error("actions offered before any snapshot")
	}
}

func TestViewErrorPhase(t *testing.T) {
	model := show(t, newTestModel(&fakeController{}, clock.Fake(testEpoch)), stoppedBackend())
	view := model.View()
	for _, want := range []string{
		failure.StoppedBackend.Title(),
		"The care-home backend is stopped.",
		"Health check passed",
		"/run/hearth/backend.sock (environment)",
		"#3",
		"r retry",
		"l sign out",
		"q quit",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if strings.Contains(view, "\x1b[") {
		t.Error("view contains escape sequences under the ASCII profile")
	}
}

func TestViewConnectingShowsElapsedAndDiagnostics(t *testing.T) {
	fake := clock.Fake(testEpoch)
	model := newTestModel(&fakeController{}, fake)

	connecting := startup.Snapshot{
		Phase:            startup.ConnectingToBackend,
		Title:            "Connecting",
		Message:          "Connecting to the care-home backend.",
		AttemptStartedAt: testEpoch,
		Diagnostics:      startup.Diagnostics{Endpoint: "care-home", Actor: actor.StatusFetching},
	}
	model = show(t, model, connecting)
	if strings.Contains(model.View(), "Endpoint") {
		t.Error("diagnostics shown before a probe started")
	}

	fake.Advance(7 * time.Second)
	connecting.ShowDiagnostics = true
	connecting.Diagnostics.Probe = health.StatusPending
	model = show(t, model, connecting)
	view := model.View()
	if !strings.Contains(view, "Elapsed 7s") {
		t.Errorf("view missing elapsed time:\n%s", view)
	}
	if !strings.Contains(view, "Endpoint") || !strings.Contains(view, "pending") {
		t.Errorf("view missing diagnostics:\n%s", view)
	}
	if strings.Contains(view, "retry") {
		t.Error("retry offered while connecting")
	}
}

func TestViewReadyShowsProfile(t *testing.T) {
	model := show(t, newTestModel(&fakeController{}, clock.Fake(testEpoch)), startup.Snapshot{
		Phase:     startup.Ready,
		Title:     "Ready",
		Message:   "Connected.",
		Profile:   backend.Profile{Name: "Alice", Role: "carer", CareHome: "Oakfield"},
		CanLogout: true,
	})
	if view := model.View(); !strings.Contains(view, "Signed in as Alice (carer) at Oakfield") {
		t.Errorf("view = %s", view)
	}
}

func TestKeysFollowSnapshotActions(t *testing.T) {
	controller := &fakeController{}
	model := newTestModel(controller, clock.Fake(testEpoch))

	// Nothing is offered yet.
	for _, r := range []rune{'r', 'l', 'p'} {
		if _, command := model.Update(runeKey(r)); command != nil {
			t.Errorf("key %q produced a command with no actions offered", r)
		}
	}

	model = show(t, model, stoppedBackend())
	_, command := model.Update(runeKey('r'))
	if command == nil {
		t.Fatal("retry key produced no command")
	}
	command()
	if controller.retries != 1 {
		t.Errorf("retries = %d", controller.retries)
	}

	_, command = model.Update(runeKey('l'))
	if command == nil {
		t.Fatal("logout key produced no command")
	}
	if result, ok := command().(logoutResultMsg); !ok || result.err != nil {
		t.Errorf("logout command returned %#v", result)
	}
	if controller.logouts != 1 {
		t.Errorf("logouts = %d", controller.logouts)
	}

	model = show(t, model, startup.Snapshot{Phase: startup.ProfileSetupRequired, CanLogout: true})
	_, command = model.Update(runeKey('p'))
	if command == nil {
		t.Fatal("refresh key produced no command")
	}
	command()
	if controller.refreshes != 1 {
		t.Errorf("refreshes = %d", controller.refreshes)
	}
}

func TestQuit(t *testing.T) {
	model := newTestModel(&fakeController{}, clock.Fake(testEpoch))
	_, command := model.Update(runeKey('q'))
	if command == nil {
		t.Fatal("quit key produced no command")
	}
	if _, ok := command().(tea.QuitMsg); !ok {
		t.Error("quit key did not quit")
	}
}

func TestLogoutFailureShowsStatus(t *testing.T) {
	controller := &fakeController{logoutErr: errors.New("keyring is locked")}
	model := show(t, newTestModel(controller, clock.Fake(testEpoch)), stoppedBackend())

	_, command := model.Update(runeKey('l'))
	updated, fade := model.Update(command())
	model = updated.(Model)
	if !strings.Contains(model.View(), "Sign-out failed: keyring is locked") {
		t.Errorf("view = %s", model.View())
	}
	if fade == nil {
		t.Error("status line has no fade")
	}
}

func TestStatusFadeIgnoresStaleSequence(t *testing.T) {
	model := newTestModel(&fakeController{}, clock.Fake(testEpoch))
	updated, _ := model.Update(logRecordMsg{Summary: "first", Level: slog.LevelWarn})
	updated, _ = updated.Update(logRecordMsg{Summary: "second", Level: slog.LevelWarn})
	updated, _ = updated.Update(logRecordFadeMsg{Sequence: 1})
	if view := updated.View(); !strings.Contains(view, "second") {
		t.Errorf("stale fade cleared the newer record:\n%s", view)
	}
	updated, _ = updated.Update(logRecordFadeMsg{Sequence: 2})
	if view := updated.View(); strings.Contains(view, "second") {
		t.Errorf("fade did not clear the record:\n%s", view)
	}
}

func TestStatusLineFitsWidth(t *testing.T) {
	model := newTestModel(&fakeController{}, clock.Fake(testEpoch))
	updated, _ := model.Update(logRecordMsg{Summary: strings.Repeat("backend is slow ", 20), Level: slog.LevelWarn})
	for _, line := range strings.Split(updated.View(), "\n") {
		if width := ansi.StringWidth(line); width > 100 {
			t.Errorf("line is %d columns wide, screen is 100: %q", width, line)
		}
	}
}

func TestListenForSnapshot(t *testing.T) {
	channel := make(chan startup.Snapshot, 1)
	channel <- startup.Snapshot{Phase: startup.Ready}
	message := listenForSnapshot(channel)()
	if got, ok := message.(snapshotMsg); !ok || got.snapshot.Phase != startup.Ready {
		t.Errorf("listenForSnapshot() = %#v", message)
	}
	if listenForSnapshot(nil) != nil {
		t.Error("nil channel should produce no command")
	}
}
