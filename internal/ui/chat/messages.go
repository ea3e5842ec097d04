// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the Bubble Tea chat surface.
package chat

import (
	"time"

	"github.com/jeranaias/kbchat-tui/internal/config"
	"github.com/jeranaias/kbchat-tui/internal/kb"
)

// =============================================================================
// STREAM MESSAGES
// =============================================================================

// StreamStartMsg signals that a stream opened.
type StreamStartMsg struct {
	ThreadID string
}

// StreamEventMsg carries one decoded wire event onto the event loop.
type StreamEventMsg struct {
	Event kb.StreamEvent
}

// StreamCompleteMsg signals that the stream goroutine finished.
// Err is the transport error, nil on clean EOF.
type StreamCompleteMsg struct {
	Err error
}

// StreamTickMsg drives redraws while tokens arrive.
type StreamTickMsg time.Time

// =============================================================================
// APPLICATION MESSAGES
// =============================================================================

// ThreadSavedMsg reports an autosave result.
type ThreadSavedMsg struct {
	ID  string
	Err error
}

// ConfigReloadedMsg delivers a live config reload from the watcher.
type ConfigReloadedMsg struct {
	Config *config.Config
}
