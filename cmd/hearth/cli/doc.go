// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework for the hearth binary: a tree
// of [Command] values with pflag flag sets, typo suggestions for
// unknown commands and flags, categorized errors that carry a hint for
// the user, and the logger constructors shared by every command.
package cli
