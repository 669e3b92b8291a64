// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package startupui

import "github.com/charmbracelet/lipgloss"

// Theme is the status screen palette, in ANSI 256-color codes.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color
	Heading    lipgloss.Color
	Progress   lipgloss.Color
	Warning    lipgloss.Color
	Failure    lipgloss.Color
	Success    lipgloss.Color
	Border     lipgloss.Color
	HelpText   lipgloss.Color
}

// DefaultTheme suits dark terminals.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("243"),
	Heading:    lipgloss.Color("255"),
	Progress:   lipgloss.Color("39"),
	Warning:    lipgloss.Color("214"),
	Failure:    lipgloss.Color("203"),
	Success:    lipgloss.Color("78"),
	Border:     lipgloss.Color("238"),
	HelpText:   lipgloss.Color("241"),
}

type styles struct {
	frame    lipgloss.Style
	heading  lipgloss.Style
	title    lipgloss.Style
	body     lipgloss.Style
	faint    lipgloss.Style
	label    lipgloss.Style
	warning  lipgloss.Style
	failure  lipgloss.Style
	success  lipgloss.Style
	help     lipgloss.Style
	progress lipgloss.Style
}

func newStyles(theme Theme) styles {
	return styles{
		frame: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(1, 2),
		heading:  lipgloss.NewStyle().Foreground(theme.Heading).Bold(true),
		title:    lipgloss.NewStyle().Foreground(theme.Heading).Bold(true),
		body:     lipgloss.NewStyle().Foreground(theme.NormalText),
		faint:    lipgloss.NewStyle().Foreground(theme.FaintText),
		label:    lipgloss.NewStyle().Foreground(theme.FaintText).Width(16),
		warning:  lipgloss.NewStyle().Foreground(theme.Warning),
		failure:  lipgloss.NewStyle().Foreground(theme.Failure),
		success:  lipgloss.NewStyle().Foreground(theme.Success),
		help:     lipgloss.NewStyle().Foreground(theme.HelpText),
		progress: lipgloss.NewStyle().Foreground(theme.Progress),
	}
}
