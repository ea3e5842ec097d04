// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the Bubble Tea chat surface.
package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/kbchat-tui/internal/kb"
	"github.com/jeranaias/kbchat-tui/internal/model"
	"github.com/jeranaias/kbchat-tui/internal/session"
	"github.com/jeranaias/kbchat-tui/internal/storage"
)

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)
	case tea.KeyMsg:
		return m.handleKey(msg)
	case StreamStartMsg:
		m.statusMsg = "Retrieving..."
		return m, streamTickCmd()
	case StreamEventMsg:
		return m.handleStreamEvent(msg.Event)
	case StreamTickMsg:
		if m.limiter.ShouldFlush() {
			m.refreshViewport()
		}
		if m.state == StateStreaming {
			return m, streamTickCmd()
		}
		return m, nil
	case StreamCompleteMsg:
		return m.handleStreamComplete(msg)
	case ThreadSavedMsg:
		if msg.Err != nil {
			m.statusMsg = "Autosave failed: " + msg.Err.Error()
		} else {
			m.thread.ID = msg.ID
		}
		return m, nil
	case ConfigReloadedMsg:
		m.cfg = msg.Config
		m.agentID = msg.Config.Backend.AgentID
		m.statusMsg = "Configuration reloaded"
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		if m.state == StateError {
			m.state = StateReady
			m.lastError = ""
		}
		return m, nil
	case "enter":
		return m.handleSubmit()
	case "ctrl+n":
		return m.handleNewThread()
	case "ctrl+s":
		return m, m.saveThreadCmd()
	case "up", "down", "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleSubmit starts an exchange. While a stream is active the submit
// is a silent no-op, matching the one-active-stream rule.
func (m *Model) handleSubmit() (tea.Model, tea.Cmd) {
	if m.state == StateStreaming || m.runner == nil {
		return m, nil
	}

	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}

	// User message and placeholder appear before any network I/O.
	m.thread.AppendUser(text)
	m.thread.AppendStreamingAI()
	m.input.Reset()
	m.state = StateStreaming
	m.lastError = ""
	m.refreshViewport()

	req := kb.ChatRequest{
		Message:      text,
		ThreadID:     m.thread.ID,
		AgentID:      m.agentID,
		StreamTokens: true,
	}
	go m.runner.Run(m.ctx, req)

	return m, streamTickCmd()
}

func (m *Model) handleNewThread() (tea.Model, tea.Cmd) {
	if m.state == StateStreaming {
		return m, nil
	}
	m.thread = model.NewThread("")
	m.state = StateReady
	m.lastError = ""
	m.statusMsg = "New thread"
	m.refreshViewport()
	return m, nil
}

// =============================================================================
// STREAM HANDLING
// =============================================================================

// handleStreamEvent applies one wire event through the shared reducer.
// Events arriving after the exchange ended (buffered behind an error)
// are dropped.
func (m *Model) handleStreamEvent(ev kb.StreamEvent) (tea.Model, tea.Cmd) {
	if m.state != StateStreaming {
		return m, nil
	}

	out := session.ApplyEvent(m.thread, ev)

	switch ev.Type {
	case kb.EventToken:
		m.limiter.Note()
	case kb.EventMessage:
		m.refreshViewport()
	case kb.EventStatus:
		m.statusMsg = "Retrieving..."
	case kb.EventChunks:
		m.statusMsg = "Reading sources..."
	}

	if out.Terminal {
		m.thread.FinalizeLast()
		m.limiter.Flush()
		m.refreshViewport()
		if out.ErrorText != "" {
			m.state = StateError
			m.lastError = out.ErrorText
		} else {
			m.state = StateReady
		}
		m.statusMsg = ""
		return m, m.saveThreadCmd()
	}
	return m, nil
}

// handleStreamComplete covers transport-level termination: EOF without
// an end event is a clean finish, an error is the exchange's single
// notification.
func (m *Model) handleStreamComplete(msg StreamCompleteMsg) (tea.Model, tea.Cmd) {
	if m.state != StateStreaming {
		return m, nil
	}

	m.thread.FinalizeLast()
	m.limiter.Flush()
	m.refreshViewport()
	m.statusMsg = ""

	if msg.Err != nil {
		m.state = StateError
		m.lastError = msg.Err.Error()
	} else {
		m.state = StateReady
	}
	return m, m.saveThreadCmd()
}

// =============================================================================
// LAYOUT AND PERSISTENCE
// =============================================================================

func (m *Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	headerHeight := 2
	footerHeight := 4
	vpHeight := msg.Height - headerHeight - footerHeight
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = vpHeight
	}
	m.input.Width = msg.Width - 4
	m.refreshViewport()
	return m, nil
}

// saveThreadCmd autosaves the thread after each exchange.
func (m *Model) saveThreadCmd() tea.Cmd {
	if m.store == nil || m.thread.IsEmpty() {
		return nil
	}
	stored := storage.FromThread(m.thread)
	store := m.store
	return func() tea.Msg {
		id, err := store.Save(stored)
		return ThreadSavedMsg{ID: id, Err: err}
	}
}
