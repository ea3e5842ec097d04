// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package kb provides the HTTP client for the knowledge-base chat backend.
package kb

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log"
)

// =============================================================================
// FRAME PARSER
// =============================================================================

// EventHandler receives decoded events in arrival order.
type EventHandler func(StreamEvent)

// FrameParser reads an SSE-style line-framed event stream. Partial lines
// are carried across reads until the newline arrives, so chunk boundaries
// from the transport (including splits inside a multi-byte rune) never
// affect the decoded events.
type FrameParser struct {
	reader  *bufio.Reader
	events  int
	dropped int
}

// NewFrameParser creates a parser over a streaming response body.
func NewFrameParser(r io.Reader) *FrameParser {
	return &FrameParser{reader: bufio.NewReader(r)}
}

// EventCount returns the number of events dispatched so far.
func (p *FrameParser) EventCount() int {
	return p.events
}

// DroppedCount returns the number of malformed lines skipped so far.
func (p *FrameParser) DroppedCount() int {
	return p.dropped
}

// Process reads the stream and calls the handler for each decoded event.
// Blocks until an end event, transport EOF, or context cancellation.
// A trailing line without a final newline is still processed. Malformed
// lines are logged and skipped; the stream continues.
func (p *FrameParser) Process(ctx context.Context, handler EventHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := p.reader.ReadBytes('\n')
		if err != nil && len(line) == 0 {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		ev, decodeErr := DecodeEventLine(line)
		switch {
		case errors.Is(decodeErr, ErrEmptyLine):
			// Keep-alive or blank separator line.
		case decodeErr != nil:
			p.dropped++
			log.Printf("kb: skipping malformed stream line: %v", decodeErr)
		default:
			p.events++
			handler(ev)
			if ev.Type == EventEnd {
				return nil
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}
