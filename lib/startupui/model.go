// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package startupui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/hearth/lib/clock"
	"github.com/bureau-foundation/hearth/lib/health"
	"github.com/bureau-foundation/hearth/lib/startup"
)

// Controller is the part of the orchestrator the screen drives.
// *startup.Orchestrator implements it.
type Controller interface {
	Retry()
	Logout(ctx context.Context) error
	RefreshProfile()
}

// logoutTimeout bounds a sign-out started from the screen.
const logoutTimeout = 10 * time.Second

type snapshotMsg struct {
	snapshot startup.Snapshot
}

type tickMsg struct{}

type logoutResultMsg struct {
	err error
}

// Model is the bubbletea model for the status screen.
type Model struct {
	controller Controller
	snapshots  <-chan startup.Snapshot
	clock      clock.Clock

	keys    KeyMap
	styles  styles
	spinner spinner.Model

	snapshot    startup.Snapshot
	hasSnapshot bool
	now         time.Time

	width int

	status         string
	statusLevel    slog.Level
	statusSequence uint64
}

// NewModel returns a model that renders snapshots from the channel and
// sends user actions to controller. A nil clock means the real clock.
func NewModel(controller Controller, snapshots <-chan startup.Snapshot, clk clock.Clock) Model {
	if clk == nil {
		clk = clock.Real()
	}
	model := Model{
		controller: controller,
		snapshots:  snapshots,
		clock:      clk,
		keys:       DefaultKeyMap,
		styles:     newStyles(DefaultTheme),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(DefaultTheme.Progress)),
		),
		now: clk.Now(),
	}
	model.applyActions()
	return model
}

func (model Model) Init() tea.Cmd {
	return tea.Batch(
		listenForSnapshot(model.snapshots),
		model.spinner.Tick,
		tick(),
	)
}

// listenForSnapshot blocks until the next snapshot arrives.
func listenForSnapshot(channel <-chan startup.Snapshot) tea.Cmd {
	if channel == nil {
		return nil
	}
	return func() tea.Msg {
		snapshot, ok := <-channel
		if !ok {
			return nil
		}
		return snapshotMsg{snapshot: snapshot}
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return tickMsg{} })
}

func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case snapshotMsg:
		model.snapshot = message.snapshot
		model.hasSnapshot = true
		model.now = model.clock.Now()
		model.applyActions()
		return model, listenForSnapshot(model.snapshots)

	case tea.KeyMsg:
		return model.handleKey(message)

	case logoutResultMsg:
		if message.err != nil {
			return model.setStatus(slog.LevelError, "Sign-out failed: "+message.err.Error())
		}
		return model, nil

	case logRecordMsg:
		return model.setStatus(message.Level, message.Summary)

	case logRecordFadeMsg:
		if message.Sequence == model.statusSequence {
			model.status = ""
		}
		return model, nil

	case tickMsg:
		model.now = model.clock.Now()
		return model, tick()

	case spinner.TickMsg:
		var command tea.Cmd
		model.spinner, command = model.spinner.Update(message)
		return model, command

	case tea.WindowSizeMsg:
		model.width = message.Width
		return model, nil
	}
	return model, nil
}

func (model Model) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	controller := model.controller
	switch {
	case key.Matches(message, model.keys.Quit):
		return model, tea.Quit
	case key.Matches(message, model.keys.Retry):
		return model, func() tea.Msg {
			controller.Retry()
			return nil
		}
	case key.Matches(message, model.keys.Logout):
		return model, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), logoutTimeout)
			defer cancel()
			return logoutResultMsg{err: controller.Logout(ctx)}
		}
	case key.Matches(message, model.keys.Refresh):
		return model, func() tea.Msg {
			controller.RefreshProfile()
			return nil
		}
	}
	return model, nil
}

// applyActions enables exactly the bindings the snapshot offers.
func (model *Model) applyActions() {
	model.keys.Retry.SetEnabled(model.snapshot.CanRetry)
	model.keys.Logout.SetEnabled(model.snapshot.CanLogout)
	model.keys.Refresh.SetEnabled(model.snapshot.Phase == startup.ProfileSetupRequired)
}

func (model Model) setStatus(level slog.Level, text string) (tea.Model, tea.Cmd) {
	model.statusSequence++
	model.status = text
	model.statusLevel = level
	sequence := model.statusSequence
	return model, tea.Tick(logRecordFadeDelay, func(time.Time) tea.Msg {
		return logRecordFadeMsg{Sequence: sequence}
	})
}

func (model Model) View() string {
	var sections []string
	sections = append(sections, model.styles.heading.Render("Hearth"))

	if !model.hasSnapshot {
		sections = append(sections, model.spinner.View()+" "+model.styles.body.Render("Starting"))
		return model.frame(sections)
	}

	snapshot := model.snapshot
	sections = append(sections, model.headline())
	sections = append(sections, model.styles.body.Render(snapshot.Message))

	if snapshot.Hint != "" {
		sections = append(sections, model.styles.warning.Render(snapshot.Hint))
	}
	if snapshot.Phase == startup.Ready && snapshot.Profile.Name != "" {
		sections = append(sections, model.styles.body.Render(profileLine(snapshot)))
	}
	if line := model.healthLine(); line != "" {
		sections = append(sections, line)
	}
	if snapshot.Phase.Waiting() && !snapshot.AttemptStartedAt.IsZero() {
		elapsed := snapshot.Elapsed(model.now).Truncate(time.Second)
		sections = append(sections, model.styles.faint.Render("Elapsed "+elapsed.String()))
	}
	if snapshot.ShowDiagnostics || snapshot.Phase.Failed() {
		sections = append(sections, model.diagnostics())
	}

	return model.frame(sections)
}

func (model Model) headline() string {
	snapshot := model.snapshot
	title := model.styles.title.Render(snapshot.Title)
	switch {
	case snapshot.Phase == startup.Ready:
		return model.styles.success.Render("●") + " " + title
	case snapshot.Phase == startup.SlowBackend:
		return model.styles.warning.Render("◐") + " " + title
	case snapshot.Phase.Failed():
		return model.styles.failure.Render("✕") + " " + title
	case snapshot.Phase.Waiting():
		return model.spinner.View() + " " + title
	}
	return title
}

func profileLine(snapshot startup.Snapshot) string {
	line := "Signed in as " + snapshot.Profile.Name
	if snapshot.Profile.Role != "" {
		line += " (" + snapshot.Profile.Role + ")"
	}
	if snapshot.Profile.CareHome != "" {
		line += " at " + snapshot.Profile.CareHome
	}
	return line
}

func (model Model) healthLine() string {
	result := model.snapshot.Health
	switch result.Status {
	case health.StatusPassed:
		return model.styles.success.Render("Health check passed: " + result.Message)
	case health.StatusFailed:
		return model.styles.failure.Render("Health check failed: " + result.Message)
	case health.StatusTimedOut:
		return model.styles.failure.Render("Health check timed out")
	}
	return ""
}

func (model Model) diagnostics() string {
	d := model.snapshot.Diagnostics
	probe := string(d.Probe)
	if probe == "" {
		probe = "not run"
	}
	secondary := "not configured"
	if d.SecondaryInitConfigured {
		secondary = "configured"
	}
	rows := [][2]string{
		{"Network", d.Network},
		{"Address", fmt.Sprintf("%s (%s)", d.Address, d.AddressSource)},
		{"Endpoint", d.Endpoint},
		{"Access init", secondary},
		{"Connection", string(d.Actor)},
		{"Profile", string(d.Profile)},
		{"Health probe", probe},
		{"Attempt", fmt.Sprintf("#%d", model.snapshot.Generation)},
	}
	lines := make([]string, len(rows))
	for index, row := range rows {
		lines[index] = model.styles.label.Render(row[0]) + model.styles.body.Render(row[1])
	}
	return strings.Join(lines, "\n")
}

// frame joins the sections, adds the help and status lines, and
// borders the result.
func (model Model) frame(sections []string) string {
	sections = append(sections, model.helpLine())
	if model.status != "" {
		style := model.styles.faint
		if model.statusLevel >= slog.LevelError {
			style = model.styles.failure
		} else if model.statusLevel >= slog.LevelWarn {
			style = model.styles.warning
		}
		sections = append(sections, style.Render(model.truncate(model.status)))
	}
	return model.styles.frame.Render(strings.Join(sections, "\n\n"))
}

func (model Model) helpLine() string {
	var parts []string
	for _, binding := range model.keys.bindings() {
		if !binding.Enabled() {
			continue
		}
		help := binding.Help()
		parts = append(parts, help.Key+" "+help.Desc)
	}
	return model.styles.help.Render(strings.Join(parts, " • "))
}

// truncate shortens text to fit inside the frame.
func (model Model) truncate(text string) string {
	// Border and padding take eight columns.
	available := model.width - 8
	if model.width == 0 || available <= 0 {
		return text
	}
	return ansi.Truncate(text, available, "…")
}

// Run shows the status screen until the user quits or ctx ends. If
// handler is not nil it is connected to the program so log records
// reach the status line.
func Run(ctx context.Context, controller Controller, snapshots <-chan startup.Snapshot, handler *TUILogHandler, options ...tea.ProgramOption) error {
	options = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, options...)
	program := tea.NewProgram(NewModel(controller, snapshots, nil), options...)
	if handler != nil {
		handler.SetProgram(program)
		defer handler.SetProgram(nil)
	}
	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
