// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/kbchat-tui/internal/kb"
	"github.com/jeranaias/kbchat-tui/internal/model"
)

// fakeStreamer replays a scripted event sequence.
type fakeStreamer struct {
	events []kb.StreamEvent
	err    error

	mu          sync.Mutex
	calls       int
	lenAtCall   int
	lastRequest kb.ChatRequest

	// block, when non-nil, is closed by the test to let ChatStream
	// return.
	block   chan struct{}
	started chan struct{}

	thread *model.Thread
}

func (f *fakeStreamer) ChatStream(ctx context.Context, req kb.ChatRequest, handler kb.EventHandler) error {
	f.mu.Lock()
	f.calls++
	f.lastRequest = req
	if f.thread != nil {
		f.lenAtCall = f.thread.Len()
	}
	f.mu.Unlock()

	if f.started != nil {
		close(f.started)
		f.started = nil
	}
	for _, ev := range f.events {
		handler(ev)
	}
	if f.block != nil {
		<-f.block
	}
	return f.err
}

func token(s string) kb.StreamEvent { return kb.StreamEvent{Type: kb.EventToken, Token: s} }

func endEvent() kb.StreamEvent { return kb.StreamEvent{Type: kb.EventEnd} }

func TestSubmitAppendsBeforeNetworkIO(t *testing.T) {
	thread := model.NewThread("t1")
	fake := &fakeStreamer{thread: thread, events: []kb.StreamEvent{endEvent()}}
	ctrl := New(fake, thread, "agent-1")

	ctrl.Submit(context.Background(), "  hello  ")

	require.Equal(t, 1, fake.calls)
	assert.Equal(t, 2, fake.lenAtCall, "user + placeholder must exist before the stream opens")
	assert.Equal(t, "hello", fake.lastRequest.Message, "input is trimmed")
	assert.Equal(t, "t1", fake.lastRequest.ThreadID)
	assert.Equal(t, "agent-1", fake.lastRequest.AgentID)
	assert.True(t, fake.lastRequest.StreamTokens)

	require.Equal(t, 2, thread.Len())
	assert.Equal(t, model.RoleUser, thread.Messages[0].Role)
	assert.Equal(t, model.RoleAI, thread.Messages[1].Role)
	assert.False(t, thread.Messages[1].IsStreaming, "placeholder is finalized after the exchange")
}

func TestSubmitEmptyInputIsNoOp(t *testing.T) {
	thread := model.NewThread("t1")
	fake := &fakeStreamer{thread: thread}
	ctrl := New(fake, thread, "")

	ctrl.Submit(context.Background(), "")
	ctrl.Submit(context.Background(), "   \t  ")

	assert.Zero(t, fake.calls)
	assert.Zero(t, thread.Len())
}

func TestSubmitAppliesTokensInOrder(t *testing.T) {
	thread := model.NewThread("t1")
	fake := &fakeStreamer{thread: thread, events: []kb.StreamEvent{
		{Type: kb.EventStatus, Raw: []byte(`"retrieving"`)},
		token("The answer"),
		token(" is 42."),
		endEvent(),
	}}
	ctrl := New(fake, thread, "")

	var notices []string
	ctrl.SetNotifier(func(text string) { notices = append(notices, text) })

	ctrl.Submit(context.Background(), "question")

	last := thread.LastMessage()
	require.NotNil(t, last)
	assert.Equal(t, "The answer is 42.", last.Content)
	assert.False(t, last.IsStreaming)
	assert.Empty(t, notices)
	assert.False(t, ctrl.Active())
}

// A full message snapshot supersedes the accumulated tokens, including
// its chunks and doc aggregates.
func TestSubmitMessageSnapshotSupersedesTokens(t *testing.T) {
	snapshot := &kb.AIMessage{
		Type:    "ai",
		Content: "Final answer [ID:1].",
		Chunks:  []kb.ChunkInfo{{Index: 1, ChunkID: "c1", DocumentName: "policy.pdf", Similarity: 0.9}},
		DocAggs: []kb.DocAgg{{DocID: "d1", DocName: "policy.pdf", Count: 2}},
		AgentID: "agent-9",
		RunID:   "run-3",
	}
	thread := model.NewThread("t1")
	fake := &fakeStreamer{thread: thread, events: []kb.StreamEvent{
		token("partial to"),
		token("kens"),
		{Type: kb.EventMessage, Message: snapshot},
		endEvent(),
	}}
	ctrl := New(fake, thread, "")

	ctrl.Submit(context.Background(), "question")

	last := thread.LastMessage()
	require.NotNil(t, last)
	assert.Equal(t, "Final answer [ID:1].", last.Content)
	require.Len(t, last.Chunks, 1)
	assert.Equal(t, "policy.pdf", last.Chunks[0].DocumentName)
	require.Len(t, last.DocAggs, 1)
	assert.Equal(t, "agent-9", last.AgentID)
	assert.Equal(t, "run-3", last.RunID)
}

// Non-"ai" snapshots do not touch the thread.
func TestSubmitIgnoresNonAISnapshot(t *testing.T) {
	thread := model.NewThread("t1")
	fake := &fakeStreamer{thread: thread, events: []kb.StreamEvent{
		token("kept"),
		{Type: kb.EventMessage, Message: &kb.AIMessage{Type: "tool", Content: "ignored"}},
		endEvent(),
	}}
	ctrl := New(fake, thread, "")

	ctrl.Submit(context.Background(), "question")

	assert.Equal(t, "kept", thread.LastMessage().Content)
}

// An error event keeps the partial answer, notifies once, and gates
// any events still buffered behind it.
func TestSubmitErrorKeepsPartialAndGatesLaterEvents(t *testing.T) {
	thread := model.NewThread("t1")
	fake := &fakeStreamer{thread: thread, events: []kb.StreamEvent{
		token("partial answer"),
		{Type: kb.EventError, Err: "retrieval backend overloaded"},
		token(" late token"),
		endEvent(),
	}}
	ctrl := New(fake, thread, "")

	var notices []string
	ctrl.SetNotifier(func(text string) { notices = append(notices, text) })

	ctrl.Submit(context.Background(), "question")

	last := thread.LastMessage()
	require.NotNil(t, last)
	assert.Equal(t, "partial answer", last.Content, "partial content survives, late events do not apply")
	require.Len(t, notices, 1, "exactly one notification per failed exchange")
	assert.Equal(t, "retrieval backend overloaded", notices[0])
	assert.False(t, ctrl.Active())
}

func TestSubmitTransportErrorNotifiesOnce(t *testing.T) {
	thread := model.NewThread("t1")
	fake := &fakeStreamer{thread: thread, events: []kb.StreamEvent{
		token("cut off"),
	}, err: errors.New("connection reset")}
	ctrl := New(fake, thread, "")

	var notices []string
	ctrl.SetNotifier(func(text string) { notices = append(notices, text) })

	ctrl.Submit(context.Background(), "question")

	require.Len(t, notices, 1)
	assert.Contains(t, notices[0], "connection reset")
	assert.Equal(t, "cut off", thread.LastMessage().Content)
	assert.False(t, ctrl.Active())
}

func TestSubmitEOFWithoutEndCompletesQuietly(t *testing.T) {
	thread := model.NewThread("t1")
	fake := &fakeStreamer{thread: thread, events: []kb.StreamEvent{token("done anyway")}}
	ctrl := New(fake, thread, "")

	notified := false
	ctrl.SetNotifier(func(string) { notified = true })

	ctrl.Submit(context.Background(), "question")

	assert.False(t, notified, "EOF without an end event is not an error")
	assert.Equal(t, "done anyway", thread.LastMessage().Content)
	assert.False(t, ctrl.Active())
}

func TestSubmitAtMostOneActiveStream(t *testing.T) {
	thread := model.NewThread("t1")
	fake := &fakeStreamer{
		thread:  thread,
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	ctrl := New(fake, thread, "")

	done := make(chan struct{})
	go func() {
		defer close(done)
		ctrl.Submit(context.Background(), "first")
	}()

	<-fake.started
	assert.True(t, ctrl.Active())

	// Re-entrant submit is a silent no-op: no request, no messages.
	ctrl.Submit(context.Background(), "second")
	assert.Equal(t, 1, fake.calls)
	assert.Equal(t, 2, thread.Len())

	close(fake.block)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("first submit did not finish")
	}
	assert.False(t, ctrl.Active())
}

func TestSubmitSequentialExchanges(t *testing.T) {
	thread := model.NewThread("t1")
	fake := &fakeStreamer{thread: thread, events: []kb.StreamEvent{token("a"), endEvent()}}
	ctrl := New(fake, thread, "")

	ctrl.Submit(context.Background(), "one")
	ctrl.Submit(context.Background(), "two")

	assert.Equal(t, 2, fake.calls, "the slot frees after each exchange")
	assert.Equal(t, 4, thread.Len())
}

func TestObserverSeesEvents(t *testing.T) {
	thread := model.NewThread("t1")
	fake := &fakeStreamer{thread: thread, events: []kb.StreamEvent{
		{Type: kb.EventStatus, Raw: []byte(`"retrieving"`)},
		token("x"),
		endEvent(),
	}}
	ctrl := New(fake, thread, "")

	var types []kb.EventType
	ctrl.SetObserver(func(ev kb.StreamEvent) { types = append(types, ev.Type) })

	ctrl.Submit(context.Background(), "question")

	assert.Equal(t, []kb.EventType{kb.EventStatus, kb.EventToken, kb.EventEnd}, types)
}

func TestApplyEventTable(t *testing.T) {
	thread := model.NewThread("t1")
	thread.AppendUser("q")
	thread.AppendStreamingAI()

	out := ApplyEvent(thread, kb.StreamEvent{Type: kb.EventStatus})
	assert.False(t, out.Terminal)

	out = ApplyEvent(thread, token("tok"))
	assert.False(t, out.Terminal)
	assert.Equal(t, "tok", thread.LastMessage().GetDisplayContent())

	out = ApplyEvent(thread, kb.StreamEvent{Type: kb.EventError})
	assert.True(t, out.Terminal)
	assert.NotEmpty(t, out.ErrorText, "error events always carry user-visible text")

	out = ApplyEvent(thread, endEvent())
	assert.True(t, out.Terminal)
	assert.Empty(t, out.ErrorText)

	// Unknown event types are ignored.
	out = ApplyEvent(thread, kb.StreamEvent{Type: kb.EventType("future")})
	assert.False(t, out.Terminal)
	assert.Equal(t, "tok", thread.LastMessage().GetDisplayContent())
}
