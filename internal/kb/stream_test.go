// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package kb

import (
	"context"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

// collectEvents runs the parser over a reader and gathers every event.
func collectEvents(t *testing.T, r io.Reader) []StreamEvent {
	t.Helper()
	var events []StreamEvent
	parser := NewFrameParser(r)
	if err := parser.Process(context.Background(), func(ev StreamEvent) {
		events = append(events, ev)
	}); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	return events
}

func TestFrameParserBasicStream(t *testing.T) {
	stream := `{"type":"status","content":"retrieving"}
{"type":"token","content":"Hello"}
{"type":"token","content":" world"}
{"type":"end","content":null}
`
	events := collectEvents(t, strings.NewReader(stream))

	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	if events[0].Type != EventStatus {
		t.Errorf("expected status event first, got %q", events[0].Type)
	}
	if events[1].Token != "Hello" || events[2].Token != " world" {
		t.Errorf("unexpected tokens: %q, %q", events[1].Token, events[2].Token)
	}
	if events[3].Type != EventEnd {
		t.Errorf("expected end event last, got %q", events[3].Type)
	}
}

func TestFrameParserDataPrefix(t *testing.T) {
	// The backend has emitted both SSE-framed and bare JSON lines.
	stream := "data: {\"type\":\"token\",\"content\":\"a\"}\n" +
		"data:{\"type\":\"token\",\"content\":\"b\"}\n" +
		"{\"type\":\"token\",\"content\":\"c\"}\n"
	events := collectEvents(t, strings.NewReader(stream))

	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, want := range []string{"a", "b", "c"} {
		if events[i].Token != want {
			t.Errorf("event %d: expected token %q, got %q", i, want, events[i].Token)
		}
	}
}

// TestFrameParserChunkBoundaries verifies that transport chunk
// boundaries never change the decoded event sequence. The one-byte
// reader forces every possible split point, including splits inside
// multi-byte runes.
func TestFrameParserChunkBoundaries(t *testing.T) {
	stream := "data: {\"type\":\"token\",\"content\":\"héllo \"}\n" +
		"{\"type\":\"token\",\"content\":\"wörld 日本語\"}\n" +
		"{\"type\":\"end\",\"content\":null}\n"

	whole := collectEvents(t, strings.NewReader(stream))
	split := collectEvents(t, iotest.OneByteReader(strings.NewReader(stream)))

	if len(whole) != len(split) {
		t.Fatalf("event counts differ: whole=%d split=%d", len(whole), len(split))
	}
	for i := range whole {
		if whole[i].Type != split[i].Type || whole[i].Token != split[i].Token {
			t.Errorf("event %d differs: whole=%+v split=%+v", i, whole[i], split[i])
		}
	}
	if split[0].Token != "héllo " || split[1].Token != "wörld 日本語" {
		t.Errorf("multi-byte tokens corrupted: %q, %q", split[0].Token, split[1].Token)
	}
}

func TestFrameParserSkipsMalformedLines(t *testing.T) {
	stream := "{\"type\":\"token\",\"content\":\"a\"}\n" +
		"{not json at all\n" +
		"\n" +
		"{\"type\":\"token\",\"content\":\"b\"}\n"

	parser := NewFrameParser(strings.NewReader(stream))
	var tokens []string
	if err := parser.Process(context.Background(), func(ev StreamEvent) {
		if ev.Type == EventToken {
			tokens = append(tokens, ev.Token)
		}
	}); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	if len(tokens) != 2 || tokens[0] != "a" || tokens[1] != "b" {
		t.Errorf("expected tokens [a b] around the malformed line, got %v", tokens)
	}
	if parser.DroppedCount() != 1 {
		t.Errorf("expected 1 dropped line, got %d", parser.DroppedCount())
	}
}

func TestFrameParserTrailingLineWithoutNewline(t *testing.T) {
	stream := "{\"type\":\"token\",\"content\":\"a\"}\n" +
		"{\"type\":\"token\",\"content\":\"b\"}"
	events := collectEvents(t, strings.NewReader(stream))

	if len(events) != 2 {
		t.Fatalf("expected trailing unterminated line to be processed, got %d events", len(events))
	}
	if events[1].Token != "b" {
		t.Errorf("expected trailing token %q, got %q", "b", events[1].Token)
	}
}

func TestFrameParserStopsAtEndEvent(t *testing.T) {
	stream := "{\"type\":\"end\",\"content\":null}\n" +
		"{\"type\":\"token\",\"content\":\"late\"}\n"
	events := collectEvents(t, strings.NewReader(stream))

	if len(events) != 1 || events[0].Type != EventEnd {
		t.Fatalf("expected processing to stop at end event, got %d events", len(events))
	}
}

func TestFrameParserContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	parser := NewFrameParser(strings.NewReader("{\"type\":\"token\",\"content\":\"a\"}\n"))
	err := parser.Process(ctx, func(StreamEvent) {
		t.Fatal("handler should not run after cancellation")
	})
	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestFrameParserUnknownEventType(t *testing.T) {
	stream := "{\"type\":\"heartbeat\",\"content\":{\"ts\":1}}\n" +
		"{\"type\":\"token\",\"content\":\"a\"}\n"
	events := collectEvents(t, strings.NewReader(stream))

	if len(events) != 2 {
		t.Fatalf("expected unknown event to be delivered for caller-side ignore, got %d events", len(events))
	}
	if events[0].Type != EventType("heartbeat") || len(events[0].Raw) == 0 {
		t.Errorf("unknown event should keep its raw payload: %+v", events[0])
	}
}

// TestFrameParserSplitMidLine reproduces a token whose JSON line arrives
// in two transport chunks with the boundary inside the line.
func TestFrameParserSplitMidLine(t *testing.T) {
	first := "{\"type\":\"token\",\"con"
	second := "tent\":\" The answer\"}\n{\"type\":\"end\",\"content\":null}\n"
	events := collectEvents(t, io.MultiReader(strings.NewReader(first), strings.NewReader(second)))

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Token != " The answer" {
		t.Errorf("split line decoded incorrectly: %q", events[0].Token)
	}
}
