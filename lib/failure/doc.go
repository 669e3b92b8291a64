// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package failure turns arbitrary backend and transport errors into a
// fixed set of categories with reviewed, user-facing messages.
//
// Classification walks an ordered rule list and the first match wins.
// The order matters because error text overlaps: "Canister is stopped"
// wrapped in a deadline error must stay [StoppedBackend], and a
// "connection refused" that mentions a timeout must stay [Network].
//
// The user never sees raw error text except for [Unknown] errors whose
// text is already descriptive. Every other category renders a fixed
// template from [Message].
package failure
