// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles defines the color palette and lipgloss styles for the
// kbchat TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// ADAPTIVE COLOR PALETTE
// =============================================================================

// Adaptive colors pick a variant per terminal background.
var (
	// Accent colors
	Purple  = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}
	Cyan    = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}
	Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}
	Rose    = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}
	Amber   = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

	// Surfaces and text
	Surface       = lipgloss.AdaptiveColor{Light: "#F4F4F5", Dark: "#27272A"}
	Border        = lipgloss.AdaptiveColor{Light: "#D4D4D8", Dark: "#3F3F46"}
	TextPrimary   = lipgloss.AdaptiveColor{Light: "#18181B", Dark: "#FAFAFA"}
	TextSecondary = lipgloss.AdaptiveColor{Light: "#52525B", Dark: "#A1A1AA"}
	TextMuted     = lipgloss.AdaptiveColor{Light: "#A1A1AA", Dark: "#52525B"}
)
