// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat threads and messages.
package model

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/jeranaias/kbchat-tui/internal/kb"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message. The values match the wire
// protocol's message types.
type Role string

const (
	RoleUser Role = "user"
	RoleAI   Role = "ai"
	RoleTool Role = "tool"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAI:
		return "Assistant"
	case RoleTool:
		return "Tool"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a thread.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// Content
	Content string `json:"content"`

	// Retrieval context (AI messages only)
	Chunks  []kb.ChunkInfo `json:"chunks,omitempty"`
	DocAggs []kb.DocAgg    `json:"doc_aggs,omitempty"`
	AgentID string         `json:"agent_id,omitempty"`
	RunID   string         `json:"run_id,omitempty"`

	// Streaming state (not persisted)
	// PERFORMANCE: strings.Builder avoids quadratic allocations during streaming
	IsStreaming   bool            `json:"-"`
	streamContent strings.Builder `json:"-"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        generateID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) *Message {
	return NewMessage(RoleUser, content)
}

// NewAIMessage creates an empty AI message in streaming state. It acts
// as the placeholder the stream fills in.
func NewAIMessage() *Message {
	return &Message{
		ID:          generateID(),
		Role:        RoleAI,
		Timestamp:   time.Now(),
		IsStreaming: true,
	}
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// AppendToken appends a token to a streaming message.
func (m *Message) AppendToken(token string) {
	if m.IsStreaming {
		m.streamContent.WriteString(token)
	}
}

// ApplySnapshot replaces the message wholesale with a full answer
// snapshot from the backend, superseding any accumulated tokens.
// Streaming state is preserved so later tokens append to the snapshot.
func (m *Message) ApplySnapshot(snap *kb.AIMessage) {
	if snap == nil {
		return
	}
	if m.IsStreaming {
		m.streamContent.Reset()
		m.streamContent.WriteString(snap.Content)
	} else {
		m.Content = snap.Content
	}
	m.Chunks = snap.Chunks
	m.DocAggs = snap.DocAggs
	if snap.AgentID != "" {
		m.AgentID = snap.AgentID
	}
	if snap.RunID != "" {
		m.RunID = snap.RunID
	}
}

// FinalizeStream completes streaming and freezes the content. Partial
// content accumulated before a stream failure is kept.
func (m *Message) FinalizeStream() {
	if !m.IsStreaming {
		return
	}
	m.Content = m.streamContent.String()
	m.streamContent.Reset()
	m.IsStreaming = false
}

// GetDisplayContent returns the content to display (streaming or final).
func (m *Message) GetDisplayContent() string {
	if m.IsStreaming {
		return m.streamContent.String()
	}
	return m.Content
}

// Preview returns a truncated preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m *Message) Preview(maxLen int) string {
	content := m.GetDisplayContent()
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	return string(runes[:maxLen-3]) + "..."
}

// IsEmpty returns true if the message has no content.
func (m *Message) IsEmpty() bool {
	return len(m.Content) == 0 && m.streamContent.Len() == 0
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateID creates a unique message ID.
func generateID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "msg_" + hex.EncodeToString(bytes)
}
