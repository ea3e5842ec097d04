// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the Bubble Tea chat surface.
package chat

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/kbchat-tui/internal/config"
	"github.com/jeranaias/kbchat-tui/internal/model"
	"github.com/jeranaias/kbchat-tui/internal/storage"
	"github.com/jeranaias/kbchat-tui/internal/ui/styles"
)

// =============================================================================
// STATE
// =============================================================================

// State is the chat view's interaction state.
type State int

const (
	// StateReady accepts input.
	StateReady State = iota
	// StateStreaming has an active answer stream; input is held.
	StateStreaming
	// StateError shows the last failure until dismissed.
	StateError
)

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	// Configuration
	cfg     *config.Config
	theme   *styles.Theme
	agentID string

	// Components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	// Data
	thread *model.Thread
	store  *storage.ThreadStore

	// Streaming
	state   State
	runner  *StreamRunner
	limiter *RefreshLimiter
	ctx     context.Context

	// Layout
	width  int
	height int
	ready  bool

	// Notices
	lastError string
	statusMsg string
}

// New creates the chat model. The runner is attached after the program
// exists via SetRunner.
func New(ctx context.Context, cfg *config.Config, thread *model.Thread, store *storage.ThreadStore) *Model {
	input := textinput.New()
	input.Placeholder = "Ask the knowledge base..."
	input.Focus()
	input.CharLimit = 4000

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &Model{
		cfg:     cfg,
		theme:   styles.NewTheme(),
		agentID: cfg.Backend.AgentID,
		input:   input,
		spinner: sp,
		thread:  thread,
		store:   store,
		state:   StateReady,
		limiter: NewRefreshLimiter(),
		ctx:     ctx,
	}
}

// SetRunner attaches the stream runner once the program is running.
func (m *Model) SetRunner(r *StreamRunner) {
	m.runner = r
}

// Thread returns the thread the view renders.
func (m *Model) Thread() *model.Thread {
	return m.thread
}

// State returns the current interaction state.
func (m *Model) State() State {
	return m.state
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}
