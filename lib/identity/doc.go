// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package identity supplies the signed-in user to the startup core.
//
// The core reads only three things from a [Provider]: whether the
// provider is still bootstrapping, the current principal (present iff
// signed in), and a way to sign out. [FileProvider] backs this with a
// session file that other processes (`hearth login`, `hearth logout`)
// may rewrite at any time; the provider notices through inotify and
// signals on [Provider.Changes].
//
// Principals never appear in logs. Use [Fingerprint].
package identity
