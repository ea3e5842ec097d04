// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package kb provides the HTTP client for the knowledge-base chat backend.
//
// The backend streams answers as an SSE-style line-framed protocol: one
// JSON event per line, with an optional "data:" prefix. Events carry
// incremental tokens, full message snapshots with retrieved chunks, or
// terminal error/end markers.
//
// # Key Types
//
//   - Client: HTTP client with streaming and non-streamed fallback paths
//   - FrameParser: line-by-line event parser for streaming bodies
//   - StreamEvent: decoded tagged union of wire events
//   - ChunkInfo: a retrieved knowledge chunk referenced by citations
//
// # Usage
//
// Open a stream and receive events through a callback:
//
//	client := kb.NewClient()
//	err := client.ChatStream(ctx, kb.ChatRequest{
//	    Message:      "what is the refund policy?",
//	    ThreadID:     thread.ID,
//	    StreamTokens: true,
//	}, func(ev kb.StreamEvent) { ... })
package kb
