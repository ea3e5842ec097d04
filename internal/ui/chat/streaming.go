// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the Bubble Tea chat surface.
package chat

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/kbchat-tui/internal/kb"
)

// =============================================================================
// STREAM RUNNER
// =============================================================================

// StreamRunner bridges a chat stream into Bubble Tea messages. It runs
// on its own goroutine and never touches the thread; Update applies the
// events it forwards.
type StreamRunner struct {
	program *tea.Program
	client  *kb.Client
}

// NewStreamRunner creates a runner bound to a program and client.
func NewStreamRunner(program *tea.Program, client *kb.Client) *StreamRunner {
	return &StreamRunner{program: program, client: client}
}

// Run opens the stream and forwards every event, then reports
// completion. Call on a fresh goroutine.
func (r *StreamRunner) Run(ctx context.Context, req kb.ChatRequest) {
	r.program.Send(StreamStartMsg{ThreadID: req.ThreadID})

	err := r.client.ChatStream(ctx, req, func(ev kb.StreamEvent) {
		r.program.Send(StreamEventMsg{Event: ev})
	})

	r.program.Send(StreamCompleteMsg{Err: err})
}

// =============================================================================
// REFRESH LIMITER
// =============================================================================

// Refresh pacing. Tokens can arrive far faster than the terminal can
// usefully redraw; redrawing each one wastes cycles and flickers.
const (
	// tokenBatchSize forces a redraw after this many pending tokens.
	tokenBatchSize = 15

	// flushInterval caps redraw latency (~30fps).
	flushInterval = 33 * time.Millisecond
)

// RefreshLimiter coalesces token arrivals into paced redraws. Safe for
// concurrent use.
type RefreshLimiter struct {
	mu        sync.Mutex
	pending   int
	lastFlush time.Time
}

// NewRefreshLimiter creates a limiter.
func NewRefreshLimiter() *RefreshLimiter {
	return &RefreshLimiter{lastFlush: time.Now()}
}

// Note records one pending token arrival.
func (l *RefreshLimiter) Note() {
	l.mu.Lock()
	l.pending++
	l.mu.Unlock()
}

// Pending returns the number of tokens since the last flush.
func (l *RefreshLimiter) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending
}

// ShouldFlush reports whether a redraw is due, and if so consumes the
// pending count.
func (l *RefreshLimiter) ShouldFlush() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending == 0 {
		return false
	}
	if l.pending < tokenBatchSize && time.Since(l.lastFlush) < flushInterval {
		return false
	}
	l.pending = 0
	l.lastFlush = time.Now()
	return true
}

// Flush unconditionally consumes pending tokens, reporting whether any
// were waiting. Used at stream end so the final tokens always render.
func (l *RefreshLimiter) Flush() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	had := l.pending > 0
	l.pending = 0
	l.lastFlush = time.Now()
	return had
}

// streamTickCmd schedules the next redraw check while streaming.
func streamTickCmd() tea.Cmd {
	return tea.Tick(flushInterval, func(t time.Time) tea.Msg {
		return StreamTickMsg(t)
	})
}
