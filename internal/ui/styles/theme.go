// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles defines the color palette and lipgloss styles for the
// kbchat TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// =============================================================================
// THEME
// =============================================================================

// Theme bundles the styles the chat surface uses.
type Theme struct {
	Profile termenv.Profile

	// Chrome
	Title     lipgloss.Style
	StatusBar lipgloss.Style
	Help      lipgloss.Style

	// Messages
	UserLabel lipgloss.Style
	AILabel   lipgloss.Style
	ToolLabel lipgloss.Style
	Body      lipgloss.Style
	Streaming lipgloss.Style

	// Citations and sources
	Citation         lipgloss.Style
	DanglingCitation lipgloss.Style
	SourcesHeader    lipgloss.Style
	SourceEntry      lipgloss.Style

	// Notices
	Error lipgloss.Style
}

// NewTheme builds the default theme for the detected color profile.
func NewTheme() *Theme {
	return &Theme{
		Profile: termenv.ColorProfile(),

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(Purple),
		StatusBar: lipgloss.NewStyle().
			Foreground(TextSecondary).
			Background(Surface),
		Help: lipgloss.NewStyle().
			Foreground(TextMuted),

		UserLabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(Cyan),
		AILabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(Purple),
		ToolLabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(Amber),
		Body: lipgloss.NewStyle().
			Foreground(TextPrimary),
		Streaming: lipgloss.NewStyle().
			Foreground(TextSecondary),

		Citation: lipgloss.NewStyle().
			Bold(true).
			Foreground(Emerald),
		DanglingCitation: lipgloss.NewStyle().
			Foreground(TextMuted),
		SourcesHeader: lipgloss.NewStyle().
			Bold(true).
			Foreground(TextSecondary),
		SourceEntry: lipgloss.NewStyle().
			Foreground(TextSecondary),

		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(Rose),
	}
}
