// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Hearth is the care-home client. With no command it opens the startup
// status screen; "hearth status" and "hearth doctor" run the same
// startup sequence headless, and "hearth login" and "hearth logout"
// manage the session file the screen follows.
package main
