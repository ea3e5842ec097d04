// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat threads and messages.
package model

import (
	"time"

	"github.com/jeranaias/kbchat-tui/internal/kb"
)

// =============================================================================
// THREAD TYPE
// =============================================================================

// Thread is an ordered, append-only list of messages exchanged with one
// backend conversation. The ID is opaque and round-tripped to the
// backend on every request.
//
// Threads are not safe for concurrent mutation. All writes must come
// from a single goroutine (the session controller or the UI event
// loop); cross-goroutine delivery happens via events, not shared calls.
type Thread struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	AgentID   string     `json:"agent_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Messages  []*Message `json:"messages"`
}

// NewThread creates an empty thread. The ID is assigned by the caller
// (the storage layer generates one on first save).
func NewThread(id string) *Thread {
	now := time.Now()
	return &Thread{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// =============================================================================
// THREAD METHODS
// =============================================================================

// AppendMessage appends a message to the thread.
func (t *Thread) AppendMessage(msg *Message) {
	t.Messages = append(t.Messages, msg)
	t.UpdatedAt = time.Now()

	// First user message names the thread.
	if t.Title == "" && msg.Role == RoleUser {
		t.Title = msg.Preview(50)
	}
}

// AppendUser appends a user message and returns it.
func (t *Thread) AppendUser(content string) *Message {
	msg := NewUserMessage(content)
	t.AppendMessage(msg)
	return msg
}

// AppendStreamingAI appends an empty AI placeholder in streaming state
// and returns it.
func (t *Thread) AppendStreamingAI() *Message {
	msg := NewAIMessage()
	t.AppendMessage(msg)
	return msg
}

// LastMessage returns the most recent message, or nil for an empty
// thread.
func (t *Thread) LastMessage() *Message {
	if len(t.Messages) == 0 {
		return nil
	}
	return t.Messages[len(t.Messages)-1]
}

// AppendToLast appends token text to the last message. No-op on an
// empty thread or when the last message is not streaming.
func (t *Thread) AppendToLast(token string) {
	if msg := t.LastMessage(); msg != nil {
		msg.AppendToken(token)
		t.UpdatedAt = time.Now()
	}
}

// ReplaceLast replaces the last message wholesale with a backend
// snapshot. No-op on an empty thread.
func (t *Thread) ReplaceLast(snap *kb.AIMessage) {
	if msg := t.LastMessage(); msg != nil {
		msg.ApplySnapshot(snap)
		t.UpdatedAt = time.Now()
	}
}

// FinalizeLast freezes the last message's streaming content.
func (t *Thread) FinalizeLast() {
	if msg := t.LastMessage(); msg != nil {
		msg.FinalizeStream()
	}
}

// Len returns the number of messages in the thread.
func (t *Thread) Len() int {
	return len(t.Messages)
}

// IsEmpty returns true if the thread has no messages.
func (t *Thread) IsEmpty() bool {
	return len(t.Messages) == 0
}
