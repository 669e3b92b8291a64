// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package startupui

import "github.com/charmbracelet/bubbles/key"

// KeyMap is the status screen's key bindings. Bindings for actions
// the current snapshot does not offer are disabled and left out of
// the help line.
type KeyMap struct {
	Retry   key.Binding
	Logout  key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

// DefaultKeyMap is the built-in binding set.
var DefaultKeyMap = KeyMap{
	Retry: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "retry"),
	),
	Logout: key.NewBinding(
		key.WithKeys("l"),
		key.WithHelp("l", "sign out"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "check profile again"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (keys KeyMap) bindings() []key.Binding {
	return []key.Binding{keys.Retry, keys.Logout, keys.Refresh, keys.Quit}
}
