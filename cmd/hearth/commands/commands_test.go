// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/hearth/cmd/hearth/cli"
	"github.com/bureau-foundation/hearth/lib/backend"
	"github.com/bureau-foundation/hearth/lib/bundle"
	"github.com/bureau-foundation/hearth/lib/clock"
	"github.com/bureau-foundation/hearth/lib/health"
	"github.com/bureau-foundation/hearth/lib/identity"
	"github.com/bureau-foundation/hearth/lib/startup"
	"github.com/bureau-foundation/hearth/lib/testutil"
)

// fixture is a config file, a session directory, and optionally a
// backend, all private to one test.
type fixture struct {
	t          *testing.T
	directory  string
	configPath string
	stdout     *bytes.Buffer
	env        Environment
}

type fixtureOptions struct {
	backend      bool
	emptyProfile bool
	keyFile      bool
}

func newFixture(t *testing.T, opts fixtureOptions) *fixture {
	t.Helper()
	directory := t.TempDir()

	var socketPath string
	if opts.backend {
		socketPath = startBackend(t, opts.emptyProfile)
	}
	var keyFile string
	if opts.keyFile {
		keyFile = filepath.Join(directory, "session.key")
	}

	configPath := filepath.Join(directory, "hearth.yaml")
	content := fmt.Sprintf(`backend:
  socket_path: %q
  metadata_file: %q
session:
  file: %q
  key_file: %q
timeouts:
  watchdog: 20s
`, socketPath, filepath.Join(directory, "backend.jsonc"), filepath.Join(directory, "session", "session.json"), keyFile)
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	stdout := &bytes.Buffer{}
	return &fixture{
		t:          t,
		directory:  directory,
		configPath: configPath,
		stdout:     stdout,
		env: Environment{
			Stdout: stdout,
			Getenv: func(string) string { return "" },
			Clock:  clock.Real(),
		},
	}
}

// execute runs one hearth command line with --config added, and
// returns its stdout.
func (f *fixture) execute(args ...string) (string, error) {
	f.t.Helper()
	f.stdout.Reset()
	args = append(args, "--config", f.configPath)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := Root(f.env).Execute(ctx, args)
	return f.stdout.String(), err
}

func (f *fixture) login() {
	f.t.Helper()
	if _, err := f.execute("login", "--principal", "ada@elm-house", "--token", "tok-ada"); err != nil {
		f.t.Fatalf("login: %v", err)
	}
}

func startBackend(t *testing.T, emptyProfile bool) string {
	t.Helper()
	socketPath := testutil.SocketPath(t, "backend.sock")
	server := backend.NewServer(socketPath, slog.New(slog.DiscardHandler))
	server.Handle(backend.ActionHello, func(context.Context, []byte) (any, error) {
		return backend.HelloReply{Endpoint: "care-home", Version: "test"}, nil
	})
	server.Handle(backend.ActionHealthCheck, func(context.Context, []byte) (any, error) {
		return backend.HealthStatus{Message: "Backend is up"}, nil
	})
	server.Handle("get_caller_profile", func(context.Context, []byte) (any, error) {
		if emptyProfile {
			return backend.ProfileReply{}, nil
		}
		return backend.ProfileReply{Profile: &backend.Profile{Name: "Ada", Role: "carer", CareHome: "Elm House"}}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		testutil.RequireReceive(t, done, 5*time.Second, "backend shutdown")
	})
	testutil.RequireClosed(t, server.Ready(), 5*time.Second, "backend ready")
	return socketPath
}

func phases(t *testing.T, output string) []startup.Phase {
	t.Helper()
	var result []startup.Phase
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		var snapshot startup.Snapshot
		if err := json.Unmarshal([]byte(line), &snapshot); err != nil {
			t.Fatalf("status line is not a snapshot: %v: %q", err, line)
		}
		result = append(result, snapshot.Phase)
	}
	return result
}

func exitCode(err error) int {
	var exitError *cli.ExitError
	if errors.As(err, &exitError) {
		return exitError.Code
	}
	if err != nil {
		return -1
	}
	return 0
}

func TestStatusReachesReady(t *testing.T) {
	f := newFixture(t, fixtureOptions{backend: true})
	f.login()

	output, err := f.execute("status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	seen := phases(t, output)
	if seen[len(seen)-1] != startup.Ready {
		t.Errorf("phases = %v, want to end in ready", seen)
	}
	if strings.Contains(output, "ada@elm-house") {
		t.Error("status output contains the principal instead of its fingerprint")
	}
}

func TestStatusSignedOut(t *testing.T) {
	f := newFixture(t, fixtureOptions{backend: true})
	output, err := f.execute("status")
	if code := exitCode(err); code != 2 {
		t.Fatalf("status exit = %d (%v), want 2", code, err)
	}
	seen := phases(t, output)
	if seen[len(seen)-1] != startup.Unauthenticated {
		t.Errorf("phases = %v, want to end in unauthenticated", seen)
	}
}

func TestStatusEmptyProfile(t *testing.T) {
	f := newFixture(t, fixtureOptions{backend: true, emptyProfile: true})
	f.login()

	output, err := f.execute("status")
	if code := exitCode(err); code != 2 {
		t.Fatalf("status exit = %d (%v), want 2", code, err)
	}
	seen := phases(t, output)
	if seen[len(seen)-1] != startup.ProfileSetupRequired {
		t.Errorf("phases = %v, want to end in profile_setup_required", seen)
	}
}

func TestStatusWithoutBackendFails(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.login()

	output, err := f.execute("status")
	if code := exitCode(err); code != 1 {
		t.Fatalf("status exit = %d (%v), want 1", code, err)
	}
	seen := phases(t, output)
	if seen[len(seen)-1] != startup.ActorError {
		t.Errorf("phases = %v, want to end in actor_error", seen)
	}
}

func TestDoctorWritesAndDumpsBundle(t *testing.T) {
	f := newFixture(t, fixtureOptions{backend: true})
	f.login()
	bundlePath := filepath.Join(f.directory, "startup.hdx")

	output, err := f.execute("doctor", "--bundle", bundlePath, "--compression", "lz4")
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, output)
	}
	for _, want := range []string{"[PASS]  backend address", "[PASS]  health probe", "ready as Ada", "All checks passed"} {
		if !strings.Contains(output, want) {
			t.Errorf("doctor output missing %q:\n%s", want, output)
		}
	}

	recorded, err := bundle.ReadFile(bundlePath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if recorded.Probe == nil || recorded.Probe.Status != health.StatusPassed {
		t.Errorf("bundle probe = %+v", recorded.Probe)
	}
	final, ok := recorded.Final()
	if !ok || final.Phase != startup.Ready {
		t.Errorf("bundle final = %+v, %v", final.Phase, ok)
	}
	if !strings.Contains(output, recorded.RunID.String()) {
		t.Errorf("doctor output does not name run %s", recorded.RunID)
	}

	dump, err := f.execute("doctor", "--dump", bundlePath)
	if err != nil {
		t.Fatalf("doctor --dump: %v", err)
	}
	if !strings.Contains(dump, recorded.RunID.String()) || !strings.Contains(dump, string(startup.Ready)) {
		t.Errorf("dump output:\n%s", dump)
	}

	raw, err := f.execute("doctor", "--dump", bundlePath, "--raw")
	if err != nil {
		t.Fatalf("doctor --dump --raw: %v", err)
	}
	if !strings.Contains(raw, `"run_id"`) {
		t.Errorf("raw dump does not look like CBOR diagnostic notation:\n%s", raw)
	}
}

func TestDoctorWithoutBackend(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	output, err := f.execute("doctor", "--json")
	if code := exitCode(err); code != 1 {
		t.Fatalf("doctor exit = %d (%v), want 1", code, err)
	}

	var report doctorReport
	if err := json.Unmarshal([]byte(output), &report); err != nil {
		t.Fatalf("doctor --json output: %v\n%s", err, output)
	}
	if report.OK {
		t.Error("report OK with no backend")
	}
	statuses := make(map[string]checkStatus)
	for _, check := range report.Checks {
		statuses[check.Name] = check.Status
	}
	want := map[string]checkStatus{
		"configuration":   checkPass,
		"backend address": checkFail,
		"session":         checkWarn,
		"health probe":    checkSkip,
		"startup":         checkWarn,
	}
	for name, status := range want {
		if statuses[name] != status {
			t.Errorf("check %q = %q, want %q", name, statuses[name], status)
		}
	}
}

func TestDoctorRejectsUnknownCompression(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	_, err := f.execute("doctor", "--compression", "brotli")
	if cli.CategoryOf(err) != cli.CategoryValidation {
		t.Errorf("doctor --compression brotli = %v, want a validation error", err)
	}
}

func TestDoctorDefaultCompression(t *testing.T) {
	flag := doctorCommand(Environment{}).Flags().Lookup("compression")
	if flag == nil {
		t.Fatal("doctor has no --compression flag")
	}
	compression, err := bundle.ParseCompression(flag.DefValue)
	if err != nil || compression != bundle.CompressionZstd {
		t.Errorf("--compression default = %q (%v), want zstd", flag.DefValue, err)
	}

	f := newFixture(t, fixtureOptions{backend: true})
	f.login()
	bundlePath := filepath.Join(f.directory, "default.hdx")
	if output, err := f.execute("doctor", "--bundle", bundlePath); err != nil {
		t.Fatalf("doctor: %v\n%s", err, output)
	}
	if _, err := bundle.ReadFile(bundlePath); err != nil {
		t.Errorf("ReadFile: %v", err)
	}
}

func TestLoginAndLogout(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	output, err := f.execute("login", "--principal", "ada@elm-house", "--token", "tok-ada")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(output, identity.Fingerprint("ada@elm-house")) {
		t.Errorf("login output = %q", output)
	}

	store := &identity.Store{Path: filepath.Join(f.directory, "session", "session.json")}
	session, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if session.Principal != "ada@elm-house" || session.Token != "tok-ada" {
		t.Errorf("session = %+v", session)
	}

	if _, err := f.execute("logout"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := store.Load(); !errors.Is(err, identity.ErrNoSession) {
		t.Errorf("Load after logout = %v, want ErrNoSession", err)
	}
	if _, err := f.execute("logout"); err != nil {
		t.Errorf("second logout: %v", err)
	}
}

func TestLoginTokenFile(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	tokenPath := filepath.Join(f.directory, "token")
	if err := os.WriteFile(tokenPath, []byte("tok-from-file\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := f.execute("login", "--principal", "ada", "--token-file", tokenPath); err != nil {
		t.Fatalf("login: %v", err)
	}
	session, err := (&identity.Store{Path: filepath.Join(f.directory, "session", "session.json")}).Load()
	if err != nil || session.Token != "tok-from-file" {
		t.Errorf("session = %+v, %v", session, err)
	}

	_, err = f.execute("login", "--principal", "ada", "--token", "x", "--token-file", tokenPath)
	if cli.CategoryOf(err) != cli.CategoryValidation {
		t.Errorf("both token flags = %v, want a validation error", err)
	}
	_, err = f.execute("login", "--token", "x")
	if cli.CategoryOf(err) != cli.CategoryValidation {
		t.Errorf("missing principal = %v, want a validation error", err)
	}
}

func TestLoginGenerateKeyEncryptsSession(t *testing.T) {
	f := newFixture(t, fixtureOptions{keyFile: true})
	if _, err := f.execute("login", "--principal", "ada", "--token", "tok-secret", "--generate-key"); err != nil {
		t.Fatalf("login --generate-key: %v", err)
	}

	sessionPath := filepath.Join(f.directory, "session", "session.json")
	data, err := os.ReadFile(sessionPath)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(data, []byte("tok-secret")) {
		t.Error("session file holds the token in plain text")
	}
	store := &identity.Store{Path: sessionPath, KeyPath: filepath.Join(f.directory, "session.key")}
	if session, err := store.Load(); err != nil || session.Token != "tok-secret" {
		t.Errorf("decrypted session = %+v, %v", session, err)
	}

	_, err = f.execute("login", "--principal", "ada", "--generate-key")
	if cli.CategoryOf(err) != cli.CategoryValidation {
		t.Errorf("second --generate-key = %v, want a validation error", err)
	}
}

func TestVersion(t *testing.T) {
	var stdout bytes.Buffer
	env := Environment{Stdout: &stdout, Getenv: func(string) string { return "" }, Clock: clock.Real()}
	if err := Root(env).Execute(context.Background(), []string{"--version"}); err != nil {
		t.Fatalf("--version: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "hearth ") {
		t.Errorf("--version output = %q", stdout.String())
	}

	stdout.Reset()
	if err := Root(env).Execute(context.Background(), []string{"version"}); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(stdout.String(), "Platform: ") {
		t.Errorf("version output = %q", stdout.String())
	}
}

func TestSettledExitCode(t *testing.T) {
	for _, phase := range startup.Phases {
		if !phase.Settled() {
			continue
		}
		code := settledExitCode(phase)
		switch {
		case phase == startup.Ready && code != 0:
			t.Errorf("%s exits %d, want 0", phase, code)
		case phase.Failed() && code != 1:
			t.Errorf("%s exits %d, want 1", phase, code)
		case code < 0 || code > 2:
			t.Errorf("%s exits %d", phase, code)
		}
	}
}
