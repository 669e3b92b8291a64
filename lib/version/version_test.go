// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"
)

func withBuild(t *testing.T, version, commit, dirty, built string) {
	t.Helper()
	saved := [4]string{Version, GitCommit, GitDirty, BuildTime}
	Version, GitCommit, GitDirty, BuildTime = version, commit, dirty, built
	t.Cleanup(func() {
		Version, GitCommit, GitDirty, BuildTime = saved[0], saved[1], saved[2], saved[3]
	})
}

func TestInfo(t *testing.T) {
	withBuild(t, "0.4.0", "abc1234", "false", "2026-03-01T08:00:00Z")
	if got, want := Info(), "0.4.0 (abc1234, 2026-03-01T08:00:00Z)"; got != want {
		t.Errorf("Info() = %q, want %q", got, want)
	}
	if got, want := Bundle(), "0.4.0+abc1234"; got != want {
		t.Errorf("Bundle() = %q, want %q", got, want)
	}
}

func TestDirtyBuild(t *testing.T) {
	withBuild(t, "0.4.0", "abc1234", "true", "unknown")
	if got := Info(); !strings.Contains(got, "abc1234-dirty") {
		t.Errorf("Info() = %q, want the dirty marker", got)
	}
	if got := Full(); !strings.Contains(got, "Go: ") || !strings.Contains(got, "Platform: ") {
		t.Errorf("Full() = %q", got)
	}
	if Short() != "0.4.0" {
		t.Errorf("Short() = %q", Short())
	}
}
