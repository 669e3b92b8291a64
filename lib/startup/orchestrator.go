// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package startup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/hearth/lib/actor"
	"github.com/bureau-foundation/hearth/lib/backend"
	"github.com/bureau-foundation/hearth/lib/clock"
	"github.com/bureau-foundation/hearth/lib/config"
	"github.com/bureau-foundation/hearth/lib/deadline"
	"github.com/bureau-foundation/hearth/lib/failure"
	"github.com/bureau-foundation/hearth/lib/health"
	"github.com/bureau-foundation/hearth/lib/identity"
)

// ActorSource builds backend connections. *actor.Manager implements
// it.
type ActorSource interface {
	Connect(ctx context.Context, id identity.Identity) actor.Result
	Invalidate()
}

// Prober checks backend liveness. *health.Prober implements it.
type Prober interface {
	Probe(ctx context.Context) health.Result
}

// Recorder receives startup measurements. *telemetry.Collector
// implements it.
type Recorder interface {
	AttemptStarted()
	PhaseEntered(phase string)
	ProbeFinished(status string)
	OperationFailed(operation, category string)
	Retried()
	LoggedOut()
	Ready(elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) AttemptStarted()                {}
func (nopRecorder) PhaseEntered(string)            {}
func (nopRecorder) ProbeFinished(string)           {}
func (nopRecorder) OperationFailed(string, string) {}
func (nopRecorder) Retried()                       {}
func (nopRecorder) LoggedOut()                     {}
func (nopRecorder) Ready(time.Duration)            {}

// Config wires an Orchestrator. Identity, Actors, and Prober are
// required.
type Config struct {
	Identity identity.Provider
	Actors   ActorSource
	Prober   Prober

	Timeouts config.Timeouts

	// Backend is reported in Diagnostics.
	Backend config.Backend

	// Clock defaults to the real clock.
	Clock clock.Clock

	// Logger defaults to discarding.
	Logger *slog.Logger

	// Recorder defaults to recording nothing.
	Recorder Recorder
}

const (
	// subscriberBuffer is how many snapshots a slow subscriber may fall
	// behind before the oldest are dropped.
	subscriberBuffer = 64

	eventBuffer = 256
)

var errAlreadyRunning = errors.New("startup orchestrator is already running")

// Orchestrator runs the startup state machine. Create one with New,
// start it with Run, and observe it with Subscribe or Snapshot. Retry,
// Logout, and RefreshProfile may be called from any goroutine.
type Orchestrator struct {
	config   Config
	clock    clock.Clock
	logger   *slog.Logger
	recorder Recorder

	events  chan event
	done    chan struct{}
	running atomic.Bool

	mu             sync.Mutex
	latest         Snapshot
	published      bool
	subscribers    map[uint64]chan Snapshot
	nextSubscriber uint64

	// Everything below is owned by the Run goroutine.
	runCtx context.Context
	state  state
}

// state is the orchestrator's input bundle plus the bookkeeping for
// the operations it has in flight.
type state struct {
	identity   identity.State
	token      string
	loggingOut bool

	generation       uint64
	principal        string
	attemptCtx       context.Context
	cancelAttempt    context.CancelFunc
	attemptStartedAt time.Time

	actor        actor.Result
	actorFailure failure.Classification

	profileStatus  ProfileStatus
	profile        *backend.Profile
	profileFailure failure.Classification

	health        *health.Result
	probeID       uint64
	probeInFlight bool
	probeStarted  bool
	cancelProbe   context.CancelFunc

	// Work requested by this batch of events, launched by settle.
	launchPending  bool
	profilePending bool
	probePending   bool

	timerEpoch    uint64
	timers        []*clock.Timer
	timersArmed   bool
	failFastFired bool
	watchdogFired bool

	phase         Phase
	readyRecorded bool
}

// New returns an orchestrator. It does nothing until Run.
func New(cfg Config) *Orchestrator {
	o := &Orchestrator{
		config:      cfg,
		clock:       cfg.Clock,
		logger:      cfg.Logger,
		recorder:    cfg.Recorder,
		events:      make(chan event, eventBuffer),
		done:        make(chan struct{}),
		subscribers: make(map[uint64]chan Snapshot),
	}
	if o.clock == nil {
		o.clock = clock.Real()
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if o.recorder == nil {
		o.recorder = nopRecorder{}
	}
	return o
}

// Run drives the state machine until ctx is cancelled. It may be
// called once.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.running.CompareAndSwap(false, true) {
		return errAlreadyRunning
	}
	defer close(o.done)

	o.runCtx = ctx
	changes := o.config.Identity.Changes()

	o.syncIdentity()
	o.settle()

	for {
		select {
		case <-ctx.Done():
			o.discardAttempt()
			return nil
		case <-changes:
			o.syncIdentity()
		case e := <-o.events:
			o.handle(e)
		}

		// Everything already queued joins this batch, so that requests
		// arriving together launch one round of work.
	drain:
		for {
			select {
			case <-changes:
				o.syncIdentity()
			case e := <-o.events:
				o.handle(e)
			default:
				break drain
			}
		}

		o.settle()
	}
}

// Subscribe returns a channel of snapshots, starting with the current
// one if Run has published any, and a function that unsubscribes. The
// channel is never closed. A subscriber that falls behind loses the
// oldest snapshots, never the newest.
func (o *Orchestrator) Subscribe() (<-chan Snapshot, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	channel := make(chan Snapshot, subscriberBuffer)
	id := o.nextSubscriber
	o.nextSubscriber++
	o.subscribers[id] = channel
	if o.published {
		channel <- o.latest
	}
	return channel, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.subscribers, id)
	}
}

// Snapshot returns the most recently published snapshot.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.latest
}

// Retry abandons the current attempt and starts a new one with an
// immediate health probe. It is ignored while signed out.
func (o *Orchestrator) Retry() {
	o.post(retryRequested{})
}

// RefreshProfile fetches the caller profile again on the current
// connection. It is ignored unless the connection is ready and no
// fetch is running.
func (o *Orchestrator) RefreshProfile() {
	o.post(profileRefreshRequested{})
}

// Logout discards all startup state and signs the user out. If the
// identity provider fails to sign out, the orchestrator resynchronizes
// with the provider and the error is returned.
func (o *Orchestrator) Logout(ctx context.Context) error {
	o.post(logoutRequested{})
	if err := o.config.Identity.Clear(ctx); err != nil {
		o.post(logoutFailed{err: err})
		return fmt.Errorf("signing out: %w", err)
	}
	return nil
}

func (o *Orchestrator) post(e event) {
	select {
	case o.events <- e:
	case <-o.done:
	}
}

func (o *Orchestrator) handle(e event) {
	s := &o.state
	switch e := e.(type) {
	case actorSettled:
		o.actorSettled(e)
	case profileSettled:
		o.profileSettled(e)
	case probeSettled:
		o.probeSettled(e)
	case timerFired:
		o.timerFired(e)
	case retryRequested:
		if !s.identity.Authenticated() {
			o.logger.Debug("ignoring retry while signed out")
			return
		}
		o.logger.Info("retry requested", "generation", s.generation)
		o.recorder.Retried()
		o.startAttempt(true)
	case profileRefreshRequested:
		if s.actor.Status != actor.StatusReady || s.profileStatus == ProfileLoading {
			return
		}
		s.profileStatus = ProfileLoading
		s.profile = nil
		s.profileFailure = failure.Classification{}
		s.profilePending = true
	case logoutRequested:
		o.logger.Info("signing out", "principal", identity.Fingerprint(s.identity.Principal))
		o.recorder.LoggedOut()
		o.discardAttempt()
		s.identity = identity.State{}
		// The provider may already have cleared, in which case its
		// change notification was consumed before this event.
		s.loggingOut = o.config.Identity.State().Authenticated()
	case logoutFailed:
		o.logger.Warn("sign-out failed", "error", e.err)
		s.loggingOut = false
		o.syncIdentity()
	}
}

// syncIdentity adopts the provider's current state. A new principal or
// a rotated token starts a new attempt; losing the principal discards
// the attempt.
func (o *Orchestrator) syncIdentity() {
	s := &o.state
	current := o.config.Identity.State()
	if s.loggingOut {
		if current.Authenticated() {
			return
		}
		s.loggingOut = false
	}

	previous := s.identity
	s.identity = current

	if current.Authenticated() {
		id, _ := o.config.Identity.Identity()
		switch {
		case !previous.Authenticated() || previous.Principal != current.Principal:
			o.logger.Info("identity resolved", "principal", identity.Fingerprint(current.Principal))
		case id.Token != s.token:
			o.logger.Info("session token rotated", "principal", identity.Fingerprint(current.Principal))
		default:
			return
		}
		s.token = id.Token
		o.startAttempt(false)
		return
	}
	s.token = ""
	if s.attemptCtx != nil {
		o.discardAttempt()
	}
}

// discardAttempt forgets everything about the current attempt and
// moves to a new generation, so that results still in flight are
// recognised as superseded.
func (o *Orchestrator) discardAttempt() {
	s := &o.state
	if s.cancelAttempt != nil {
		s.cancelAttempt()
	}
	o.stopProbe()
	o.resetTimers()
	o.config.Actors.Invalidate()

	s.generation++
	s.principal = ""
	s.attemptCtx = nil
	s.cancelAttempt = nil
	s.attemptStartedAt = time.Time{}
	s.actor = actor.Result{}
	s.actorFailure = failure.Classification{}
	s.profileStatus = ""
	s.profile = nil
	s.profileFailure = failure.Classification{}
	s.health = nil
	s.probeStarted = false
	s.launchPending = false
	s.profilePending = false
	s.probePending = false
	s.readyRecorded = false
}

func (o *Orchestrator) startAttempt(probe bool) {
	o.discardAttempt()

	s := &o.state
	s.principal = s.identity.Principal
	s.attemptCtx, s.cancelAttempt = context.WithCancel(o.runCtx)
	s.attemptStartedAt = o.clock.Now()
	s.actor = actor.Result{Status: actor.StatusFetching}
	s.profileStatus = ProfileLoading
	s.launchPending = true
	s.probePending = probe

	o.recorder.AttemptStarted()
	o.logger.Info("startup attempt started",
		"generation", s.generation,
		"principal", identity.Fingerprint(s.principal),
	)
}

func (o *Orchestrator) actorSettled(e actorSettled) {
	s := &o.state
	if e.generation != s.generation {
		o.logger.Debug("discarding superseded connection result", "generation", e.generation, "current", s.generation)
		return
	}
	s.actor = e.result
	switch e.result.Status {
	case actor.StatusError:
		s.actorFailure = failure.Describe(e.result.Err)
		o.recorder.OperationFailed("actor", string(s.actorFailure.Category))
	case actor.StatusReady:
		s.profilePending = true
	}
}

func (o *Orchestrator) profileSettled(e profileSettled) {
	s := &o.state
	if e.generation != s.generation {
		o.logger.Debug("discarding superseded profile result", "generation", e.generation, "current", s.generation)
		return
	}
	if e.err != nil {
		s.profileStatus = ProfileFailed
		s.profileFailure = failure.Describe(e.err)
		o.recorder.OperationFailed("profile", string(s.profileFailure.Category))
		o.logger.Warn("loading caller profile failed",
			"category", s.profileFailure.Category,
			"error", e.err,
		)
		return
	}
	s.profileStatus = ProfileFetched
	s.profile = e.profile
}

func (o *Orchestrator) probeSettled(e probeSettled) {
	s := &o.state
	if e.id != s.probeID {
		o.logger.Debug("discarding superseded health probe", "probe", e.id, "current", s.probeID)
		return
	}
	o.stopProbe()
	result := e.result
	s.health = &result
	o.recorder.ProbeFinished(string(result.Status))
}

func (o *Orchestrator) timerFired(e timerFired) {
	s := &o.state
	if e.epoch != s.timerEpoch {
		return
	}
	o.logger.Debug("startup timer fired", "timer", e.kind, "generation", s.generation)
	switch e.kind {
	case timerEarly:
		if s.health == nil && !s.probeInFlight {
			s.probePending = true
		}
	case timerFailFast:
		s.failFastFired = true
	case timerWatchdog:
		s.watchdogFired = true
	}
}

// settle applies the rules that depend on the phase, launches the
// work this batch requested, and publishes.
func (o *Orchestrator) settle() {
	s := &o.state
	phase := Select(o.inputs())

	switch {
	case phase.Waiting() && s.attemptCtx != nil && !s.timersArmed:
		o.armTimers()
	case !phase.Waiting() && s.timersArmed:
		o.resetTimers()
	}

	if (phase == ActorError || phase == ProfileError || s.watchdogFired) &&
		s.attemptCtx != nil && s.health == nil && !s.probeInFlight {
		s.probePending = true
	}

	o.launch()
	o.enterPhase(phase)
	o.publish(o.snapshot())
}

func (o *Orchestrator) inputs() Inputs {
	s := &o.state
	in := Inputs{
		Initializing:  s.identity.Initializing,
		Authenticated: s.identity.Authenticated(),
		Actor:         s.actor.Status,
		Profile:       s.profileStatus,
		ProfileEmpty:  s.profileStatus == ProfileFetched && s.profile == nil,
		FailFastFired: s.failFastFired,
		WatchdogFired: s.watchdogFired,
	}
	if s.health != nil {
		in.Health = s.health.Status
	}
	return in
}

func (o *Orchestrator) enterPhase(phase Phase) {
	s := &o.state
	if phase == s.phase {
		return
	}
	o.logger.Info("startup phase changed",
		"from", s.phase,
		"to", phase,
		"generation", s.generation,
	)
	o.recorder.PhaseEntered(string(phase))
	if phase == Ready && !s.readyRecorded {
		o.recorder.Ready(o.clock.Now().Sub(s.attemptStartedAt))
		s.readyRecorded = true
	}
	s.phase = phase
}

func (o *Orchestrator) launch() {
	s := &o.state
	if s.launchPending {
		s.launchPending = false
		o.connect()
	}
	if s.profilePending {
		s.profilePending = false
		o.fetchProfile()
	}
	if s.probePending {
		s.probePending = false
		o.startProbe()
	}
}

func (o *Orchestrator) connect() {
	s := &o.state
	id, ok := o.config.Identity.Identity()
	if !ok || id.Principal != s.principal {
		// The provider moved on; its change notification is queued
		// and will start the next attempt.
		o.logger.Debug("identity changed before connecting", "generation", s.generation)
		return
	}
	generation, ctx := s.generation, s.attemptCtx
	go func() {
		result := o.config.Actors.Connect(ctx, id)
		o.post(actorSettled{generation: generation, result: result})
	}()
}

func (o *Orchestrator) fetchProfile() {
	s := &o.state
	generation, ctx, connection := s.generation, s.attemptCtx, s.actor.Connection
	if connection == nil {
		// Not a failure: the profile stays loading until a later
		// attempt brings a connection.
		o.logger.Debug("profile fetch waiting for a connection", "generation", generation)
		return
	}
	go func() {
		profile, err := deadline.Run(ctx, o.clock, o.config.Timeouts.Profile, "loading caller profile", connection.CallerProfile)
		o.post(profileSettled{generation: generation, profile: profile, err: err})
	}()
}

// startProbe launches a probe unless one is already running.
func (o *Orchestrator) startProbe() {
	s := &o.state
	if s.probeInFlight {
		return
	}
	ctx, cancel := context.WithCancel(o.runCtx)
	s.probeID++
	s.cancelProbe = cancel
	s.probeInFlight = true
	s.probeStarted = true

	id := s.probeID
	o.logger.Debug("health probe started", "probe", id, "generation", s.generation)
	go func() {
		result := o.config.Prober.Probe(ctx)
		o.post(probeSettled{id: id, result: result})
	}()
}

// stopProbe cancels the running probe, if any, and makes sure its
// result will be discarded.
func (o *Orchestrator) stopProbe() {
	s := &o.state
	if s.cancelProbe != nil {
		s.cancelProbe()
		s.cancelProbe = nil
	}
	if s.probeInFlight {
		s.probeID++
		s.probeInFlight = false
	}
}

func (o *Orchestrator) armTimers() {
	s := &o.state
	s.timerEpoch++
	epoch := s.timerEpoch
	for _, entry := range []struct {
		kind     timerKind
		duration time.Duration
	}{
		{timerEarly, o.config.Timeouts.EarlyHealthCheck},
		{timerFailFast, o.config.Timeouts.FailFast},
		{timerWatchdog, o.config.Timeouts.Watchdog},
	} {
		kind := entry.kind
		s.timers = append(s.timers, o.clock.AfterFunc(entry.duration, func() {
			o.post(timerFired{epoch: epoch, kind: kind})
		}))
	}
	s.timersArmed = true
}

func (o *Orchestrator) resetTimers() {
	s := &o.state
	for _, timer := range s.timers {
		timer.Stop()
	}
	s.timers = nil
	s.timerEpoch++
	s.timersArmed = false
	s.failFastFired = false
	s.watchdogFired = false
}

func (o *Orchestrator) snapshot() Snapshot {
	s := &o.state
	phase := s.phase
	text := phaseTexts[phase]
	snapshot := Snapshot{
		Phase:            phase,
		Generation:       s.generation,
		Principal:        identity.Fingerprint(s.identity.Principal),
		Title:            text.title,
		Message:          text.message,
		AttemptStartedAt: s.attemptStartedAt,
		Diagnostics: Diagnostics{
			Network:       o.config.Backend.Network,
			Address:       o.config.Backend.Address,
			AddressSource: o.config.Backend.AddressSource,
			Endpoint:      o.config.Backend.Endpoint,
			Actor:         s.actor.Status,
			Profile:       s.profileStatus,
		},
	}
	_, snapshot.Diagnostics.SecondaryInitConfigured = o.config.Backend.SecondaryInitToken()

	switch phase {
	case ActorError:
		snapshot.Failure = s.actorFailure
	case ProfileError:
		snapshot.Failure = s.profileFailure
	}
	if snapshot.Failure.Category != "" {
		snapshot.Title = snapshot.Failure.Category.Title()
		snapshot.Message = snapshot.Failure.Message
	}

	if s.health != nil {
		snapshot.Health = *s.health
		snapshot.Diagnostics.Probe = s.health.Status
	}
	if s.probeInFlight {
		snapshot.Diagnostics.Probe = health.StatusPending
	}
	if phase == Ready && s.profile != nil {
		snapshot.Profile = *s.profile
	}

	snapshot.CanRetry = phase.Failed()
	snapshot.CanLogout = phase == ProfileSetupRequired || phase == Ready ||
		(snapshot.CanRetry &&
			snapshot.Failure.Category != failure.AnonymousAccess &&
			snapshot.Health.Status == health.StatusPassed)
	snapshot.ShowDiagnostics = phase == ConnectingToBackend && s.probeStarted
	if phase == StartupTimedOut || phase == StalledConnection {
		snapshot.Hint = timeoutHint(snapshot.Health, s.probeInFlight)
	}
	return snapshot
}

func (o *Orchestrator) publish(snapshot Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.published && snapshot == o.latest {
		return
	}
	o.latest = snapshot
	o.published = true
	for _, channel := range o.subscribers {
		deliver(channel, snapshot)
	}
}

// deliver sends without blocking, evicting the oldest buffered
// snapshot when the subscriber is full.
func deliver(channel chan Snapshot, snapshot Snapshot) {
	for {
		select {
		case channel <- snapshot:
			return
		default:
		}
		select {
		case <-channel:
		default:
		}
	}
}
