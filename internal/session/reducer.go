// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session drives one chat exchange at a time: it submits user
// input, applies stream events to the thread in arrival order, and
// enforces the at-most-one-active-stream rule.
package session

import (
	"github.com/jeranaias/kbchat-tui/internal/kb"
	"github.com/jeranaias/kbchat-tui/internal/model"
)

// Outcome reports the effect of one applied event.
type Outcome struct {
	// Terminal is true when the event ends the exchange (error or end).
	Terminal bool

	// ErrorText carries the user-visible error for error events.
	ErrorText string
}

// ApplyEvent applies a single stream event to the thread. It is the
// one place event semantics live; both the controller and the TUI event
// loop route events through it. The caller serializes calls per thread.
//
// Event dispatch:
//   - status, chunks: informational only, no thread mutation
//   - token: append to the last (streaming) message
//   - message with an "ai" snapshot: replace the last message wholesale
//   - error: terminal, partial content is kept
//   - end: terminal
//   - anything else: ignored
func ApplyEvent(thread *model.Thread, ev kb.StreamEvent) Outcome {
	switch ev.Type {
	case kb.EventToken:
		thread.AppendToLast(ev.Token)
	case kb.EventMessage:
		if ev.Message != nil && ev.Message.Type == string(model.RoleAI) {
			thread.ReplaceLast(ev.Message)
		}
	case kb.EventError:
		text := ev.Err
		if text == "" {
			text = "the assistant reported an error"
		}
		return Outcome{Terminal: true, ErrorText: text}
	case kb.EventEnd:
		return Outcome{Terminal: true}
	}
	return Outcome{}
}
