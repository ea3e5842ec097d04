// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package kb provides the HTTP client for the knowledge-base chat backend.
package kb

import (
	"bytes"
	"encoding/json"
	"errors"
)

// =============================================================================
// WIRE TYPES
// =============================================================================

// ChunkInfo is a retrieved knowledge chunk attached to an AI answer.
// The Index field is the 1-based key that inline [ID:n] citation markers
// refer to. Chunks are immutable after decode.
type ChunkInfo struct {
	Index        int    `json:"index"`
	ChunkID      string `json:"chunk_id"`
	Content      string `json:"content"`
	DocumentID   string `json:"document_id"`
	DocumentName string `json:"document_name"`
	ImageID      string `json:"image_id,omitempty"`

	// Positions is opaque page-coordinate metadata. The backend emits
	// one nested array or object per position; nothing here reads
	// inside them, so each entry is carried as raw JSON.
	Positions []json.RawMessage `json:"positions,omitempty"`

	Similarity float64 `json:"similarity"`
}

// DocAgg is a per-document reference count aggregate. Passed through to
// the sources display untouched.
type DocAgg struct {
	DocID   string `json:"doc_id"`
	DocName string `json:"doc_name"`
	Count   int    `json:"count"`
	URL     string `json:"url,omitempty"`
}

// AIMessage is the full message snapshot carried by a "message" event.
// It supersedes any tokens accumulated so far for the active answer.
type AIMessage struct {
	Type    string      `json:"type"`
	Content string      `json:"content"`
	Chunks  []ChunkInfo `json:"chunks,omitempty"`
	DocAggs []DocAgg    `json:"doc_aggs,omitempty"`
	AgentID string      `json:"agent_id,omitempty"`
	RunID   string      `json:"run_id,omitempty"`
}

// ChatRequest is the POST body for opening a chat stream.
type ChatRequest struct {
	Message      string `json:"message"`
	ThreadID     string `json:"thread_id"`
	AgentID      string `json:"agent_id,omitempty"`
	StreamTokens bool   `json:"stream_tokens"`
}

// =============================================================================
// STREAM EVENT
// =============================================================================

// EventType is the discriminator tag of a wire event.
type EventType string

const (
	EventStatus  EventType = "status"
	EventChunks  EventType = "chunks"
	EventToken   EventType = "token"
	EventMessage EventType = "message"
	EventError   EventType = "error"
	EventEnd     EventType = "end"
)

// StreamEvent is one decoded event from the stream. Exactly one payload
// field is populated depending on Type; unknown types keep only Type and
// Raw so callers can ignore them.
type StreamEvent struct {
	Type    EventType
	Token   string          // EventToken: the token text to append
	Message *AIMessage      // EventMessage: full answer snapshot
	Err     string          // EventError: human-readable error text
	Raw     json.RawMessage // EventStatus/EventChunks/unknown: untouched payload
}

// IsTerminal reports whether the event ends the stream.
func (e StreamEvent) IsTerminal() bool {
	return e.Type == EventError || e.Type == EventEnd
}

// ErrEmptyLine is returned by DecodeEventLine for lines that are empty
// after trimming. Callers skip these without logging.
var ErrEmptyLine = errors.New("empty event line")

var dataPrefix = []byte("data:")

// DecodeEventLine decodes one line of the stream into a StreamEvent.
// Both SSE-framed lines ("data: {...}") and bare JSON lines are
// accepted; the backend has emitted both conventions.
func DecodeEventLine(line []byte) (StreamEvent, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return StreamEvent{}, ErrEmptyLine
	}
	if bytes.HasPrefix(line, dataPrefix) {
		line = bytes.TrimSpace(line[len(dataPrefix):])
		if len(line) == 0 {
			return StreamEvent{}, ErrEmptyLine
		}
	}

	var envelope struct {
		Type    string          `json:"type"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(line, &envelope); err != nil {
		return StreamEvent{}, err
	}

	ev := StreamEvent{Type: EventType(envelope.Type)}
	switch ev.Type {
	case EventToken:
		if err := json.Unmarshal(envelope.Content, &ev.Token); err != nil {
			return StreamEvent{}, err
		}
	case EventMessage:
		var msg AIMessage
		if err := json.Unmarshal(envelope.Content, &msg); err != nil {
			return StreamEvent{}, err
		}
		ev.Message = &msg
	case EventError:
		// The backend sends the error text as a JSON string; fall back
		// to the raw payload if it is not one.
		if err := json.Unmarshal(envelope.Content, &ev.Err); err != nil {
			ev.Err = string(envelope.Content)
		}
	case EventEnd:
		// No payload.
	default:
		// A tagless object whose content field is a string is the
		// legacy non-enveloped answer shape; lift it to a message
		// snapshot so it flows through the same replace-last path.
		if envelope.Type == "" {
			var content string
			if err := json.Unmarshal(envelope.Content, &content); err == nil && content != "" {
				ev.Type = EventMessage
				ev.Message = &AIMessage{Type: "ai", Content: content}
				return ev, nil
			}
		}
		// status, chunks, and any future tags: keep the payload opaque.
		ev.Raw = envelope.Content
	}
	return ev, nil
}
