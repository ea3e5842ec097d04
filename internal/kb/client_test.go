// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package kb

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(baseURL string) *Client {
	return NewClientWithConfig(ClientConfig{BaseURL: baseURL})
}

func TestChatStreamDeliversEvents(t *testing.T) {
	var gotReq ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/stream" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {\"type\":\"token\",\"content\":\"hi\"}\n"))
		w.Write([]byte("data: {\"type\":\"end\",\"content\":null}\n"))
	}))
	defer server.Close()

	var events []StreamEvent
	err := newTestClient(server.URL).ChatStream(context.Background(), ChatRequest{
		Message:      "hello",
		ThreadID:     "t1",
		AgentID:      "a1",
		StreamTokens: true,
	}, func(ev StreamEvent) { events = append(events, ev) })
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}

	if gotReq.Message != "hello" || gotReq.ThreadID != "t1" || gotReq.AgentID != "a1" || !gotReq.StreamTokens {
		t.Errorf("request body not as sent: %+v", gotReq)
	}
	if len(events) != 2 || events[0].Token != "hi" || events[1].Type != EventEnd {
		t.Errorf("unexpected events: %+v", events)
	}
}

func TestChatStreamNon2xxIsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "agent not found", http.StatusNotFound)
	}))
	defer server.Close()

	err := newTestClient(server.URL).ChatStream(context.Background(), ChatRequest{Message: "x"}, func(StreamEvent) {
		t.Fatal("no events expected on HTTP failure")
	})

	var clientErr *ClientError
	if !errors.As(err, &clientErr) || clientErr.Type != ErrTypeHTTPStatus {
		t.Fatalf("expected HTTP status ClientError, got %v", err)
	}
}

func TestChatStreamJSONFallbackMessageEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"type":"message","content":{"type":"ai","content":"full answer","chunks":[{"index":1,"chunk_id":"c1","content":"src","document_id":"d1","document_name":"doc.md","similarity":0.5}]}}`))
	}))
	defer server.Close()

	var events []StreamEvent
	err := newTestClient(server.URL).ChatStream(context.Background(), ChatRequest{Message: "x"}, func(ev StreamEvent) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("expected message + end, got %d events", len(events))
	}
	if events[0].Type != EventMessage || events[0].Message.Content != "full answer" {
		t.Errorf("unexpected fallback message: %+v", events[0])
	}
	if len(events[0].Message.Chunks) != 1 {
		t.Errorf("fallback should carry chunks: %+v", events[0].Message)
	}
	if events[1].Type != EventEnd {
		t.Errorf("fallback should terminate the session: %+v", events[1])
	}
}

func TestChatStreamJSONFallbackLegacyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"content":"plain answer"}`))
	}))
	defer server.Close()

	var events []StreamEvent
	err := newTestClient(server.URL).ChatStream(context.Background(), ChatRequest{Message: "x"}, func(ev StreamEvent) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}

	if len(events) != 2 || events[0].Type != EventMessage {
		t.Fatalf("unexpected events: %+v", events)
	}
	if events[0].Message.Content != "plain answer" || events[0].Message.Type != "ai" {
		t.Errorf("legacy body should become an ai snapshot: %+v", events[0].Message)
	}
}

func TestChatStreamLegacyBodyMislabeledAsStream(t *testing.T) {
	// Some deployments serve the legacy {content} body without an
	// application/json Content-Type. It then flows through the line
	// parser, which must still surface it as an answer.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(`{"content":"plain answer"}`))
	}))
	defer server.Close()

	var events []StreamEvent
	err := newTestClient(server.URL).ChatStream(context.Background(), ChatRequest{Message: "x"}, func(ev StreamEvent) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}

	if len(events) != 1 || events[0].Type != EventMessage {
		t.Fatalf("unexpected events: %+v", events)
	}
	if events[0].Message.Content != "plain answer" {
		t.Errorf("legacy body lost through the line parser: %+v", events[0].Message)
	}
}

func TestChatStreamConnectionError(t *testing.T) {
	// Nothing listens on this port.
	err := newTestClient("http://127.0.0.1:1").ChatStream(context.Background(), ChatRequest{Message: "x"}, func(StreamEvent) {})

	var clientErr *ClientError
	if !errors.As(err, &clientErr) || clientErr.Type != ErrTypeConnection {
		t.Fatalf("expected connection ClientError, got %v", err)
	}
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("expected errors.Is match against ErrBackendUnavailable")
	}
}

func TestCheckRunning(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	if err := newTestClient(server.URL).CheckRunning(context.Background()); err != nil {
		t.Fatalf("CheckRunning failed: %v", err)
	}
	if err := newTestClient("http://127.0.0.1:1").CheckRunning(context.Background()); err == nil {
		t.Fatal("expected failure for unreachable backend")
	}
}
