// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session drives one chat exchange at a time.
package session

import (
	"context"
	"strings"
	"sync"

	"github.com/jeranaias/kbchat-tui/internal/kb"
	"github.com/jeranaias/kbchat-tui/internal/model"
)

// =============================================================================
// CONTROLLER
// =============================================================================

// Streamer opens a chat stream and delivers events to a handler.
// *kb.Client satisfies it; tests substitute fakes.
type Streamer interface {
	ChatStream(ctx context.Context, req kb.ChatRequest, handler kb.EventHandler) error
}

// Notifier receives the single user-visible notification for a failed
// exchange. No retry follows.
type Notifier func(text string)

// Observer sees every applied event. Used for live token echo and
// status display; must not mutate the thread.
type Observer func(ev kb.StreamEvent)

// Controller runs chat exchanges against one thread. At most one
// stream is active at a time; a Submit while a stream is active is a
// silent no-op. The thread and agent identity are fixed at
// construction and sent with every request.
//
// Submit blocks for the length of the exchange and performs all thread
// mutation itself, so a Controller must be driven from one goroutine.
type Controller struct {
	client  Streamer
	thread  *model.Thread
	agentID string

	notify  Notifier
	observe Observer

	mu     sync.Mutex
	active bool
}

// New creates a controller for the given thread.
func New(client Streamer, thread *model.Thread, agentID string) *Controller {
	return &Controller{
		client:  client,
		thread:  thread,
		agentID: agentID,
	}
}

// SetNotifier sets the failure notification sink.
func (c *Controller) SetNotifier(n Notifier) {
	c.notify = n
}

// SetObserver sets the per-event observation hook.
func (c *Controller) SetObserver(o Observer) {
	c.observe = o
}

// Thread returns the thread this controller mutates.
func (c *Controller) Thread() *model.Thread {
	return c.thread
}

// Active reports whether a stream is currently active.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Stop is reserved. The wire protocol has no mid-stream cancel;
// teardown happens through context cancellation instead.
func (c *Controller) Stop() {}

// =============================================================================
// SUBMIT
// =============================================================================

// Submit sends one user message and applies the streamed answer to the
// thread. Empty input and re-entrant submits are silent no-ops. The
// user message and an empty AI placeholder are appended before any
// network I/O, so the thread reflects the exchange immediately.
func (c *Controller) Submit(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" || !c.begin() {
		return
	}

	c.thread.AppendUser(text)
	c.thread.AppendStreamingAI()

	req := kb.ChatRequest{
		Message:      text,
		ThreadID:     c.thread.ID,
		AgentID:      c.agentID,
		StreamTokens: true,
	}

	err := c.client.ChatStream(ctx, req, func(ev kb.StreamEvent) {
		// Events behind a terminal one (buffered behind an error) are
		// not applied.
		if !c.Active() {
			return
		}
		out := ApplyEvent(c.thread, ev)
		if c.observe != nil {
			c.observe(ev)
		}
		if out.Terminal {
			if out.ErrorText != "" {
				c.notifyUser(out.ErrorText)
			}
			c.end()
		}
	})

	// Transport failure, or EOF without an end event. One notification
	// per exchange; an error event already consumed it.
	if c.Active() {
		if err != nil {
			c.notifyUser(err.Error())
		}
		c.end()
	}

	c.thread.FinalizeLast()
}

// begin claims the active slot. Returns false if a stream is running.
func (c *Controller) begin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active {
		return false
	}
	c.active = true
	return true
}

// end releases the active slot.
func (c *Controller) end() {
	c.mu.Lock()
	c.active = false
	c.mu.Unlock()
}

// notifyUser delivers the single failure notification.
func (c *Controller) notifyUser(text string) {
	if c.notify != nil {
		c.notify(text)
	}
}
