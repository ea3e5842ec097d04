// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the Bubble Tea chat surface.
package chat

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/kbchat-tui/internal/citation"
	"github.com/jeranaias/kbchat-tui/internal/kb"
	"github.com/jeranaias/kbchat-tui/internal/model"
	"github.com/jeranaias/kbchat-tui/internal/util"
)

// View implements tea.Model.
func (m *Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.theme.Title.Render("kbchat"))
	if m.thread.Title != "" {
		b.WriteString("  " + m.theme.Help.Render(util.TruncateWidth(m.thread.Title, m.width-10)))
	}
	b.WriteString("\n\n")

	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	switch m.state {
	case StateStreaming:
		b.WriteString(m.spinner.View() + " " + m.theme.Streaming.Render(m.statusOrDefault("Answering...")))
	case StateError:
		b.WriteString(m.theme.Error.Render("Error: "+m.lastError) + " " + m.theme.Help.Render("(esc to dismiss)"))
	default:
		if m.statusMsg != "" {
			b.WriteString(m.theme.Help.Render(m.statusMsg))
		}
	}
	b.WriteString("\n")

	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.theme.Help.Render("enter send · ctrl+n new thread · ctrl+s save · ctrl+c quit"))
	return b.String()
}

func (m *Model) statusOrDefault(fallback string) string {
	if m.statusMsg != "" {
		return m.statusMsg
	}
	return fallback
}

// =============================================================================
// THREAD RENDERING
// =============================================================================

// refreshViewport rebuilds the scrollback from the thread.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderThread())
	m.viewport.GotoBottom()
}

func (m *Model) renderThread() string {
	if m.thread.IsEmpty() {
		return m.theme.Help.Render("Ask a question to search the knowledge base.")
	}

	width := m.viewport.Width
	var b strings.Builder
	for i, msg := range m.thread.Messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(msg, width))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderMessage(msg *model.Message, width int) string {
	var label string
	switch msg.Role {
	case model.RoleUser:
		label = m.theme.UserLabel.Render(msg.Role.DisplayName())
	case model.RoleAI:
		label = m.theme.AILabel.Render(msg.Role.DisplayName())
	default:
		label = m.theme.ToolLabel.Render(msg.Role.DisplayName())
	}

	body := msg.GetDisplayContent()
	if msg.Role == model.RoleAI {
		body = m.renderAnswer(body, msg.Chunks)
	}
	if msg.IsStreaming {
		body += m.theme.Streaming.Render("▌")
	}

	rendered := label + "\n" + lipgloss.NewStyle().Width(width).Render(body)

	if msg.Role == model.RoleAI && !msg.IsStreaming {
		if panel := m.renderSources(msg); panel != "" {
			rendered += "\n" + panel
		}
	}
	return rendered
}

// renderAnswer resolves citation markers and styles them inline.
// Resolution runs on partial text during streaming; an unfinished
// marker stays plain text until its closing bracket arrives.
func (m *Model) renderAnswer(text string, chunks []kb.ChunkInfo) string {
	res := citation.Resolve(text, chunks)

	var b strings.Builder
	for _, seg := range res.Segments {
		switch seg.Kind {
		case citation.SegmentText:
			b.WriteString(seg.Text)
		case citation.SegmentCitation:
			marker := "[" + seg.Text + "]"
			if seg.Chunk != nil {
				b.WriteString(m.theme.Citation.Render(marker))
			} else {
				// Dangling markers degrade to a plain numeral.
				b.WriteString(m.theme.DanglingCitation.Render(marker))
			}
		}
	}
	return b.String()
}

// renderSources builds the per-answer sources panel: cited chunks
// first, then per-document reference counts when the backend sent
// aggregates.
func (m *Model) renderSources(msg *model.Message) string {
	if !m.cfg.UI.ShowSources {
		return ""
	}

	res := citation.Resolve(msg.Content, msg.Chunks)
	if !res.HasCitations() && len(msg.DocAggs) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.theme.SourcesHeader.Render("Sources"))
	for _, chunk := range res.CitedChunks {
		line := "  [" + strconv.Itoa(chunk.Index) + "] " + chunk.DocumentName
		line += " (" + formatSimilarity(chunk.Similarity) + ")"
		b.WriteString("\n" + m.theme.SourceEntry.Render(line))
	}
	for _, agg := range msg.DocAggs {
		line := "  " + agg.DocName + ": " + strconv.Itoa(agg.Count) + " reference"
		if agg.Count != 1 {
			line += "s"
		}
		b.WriteString("\n" + m.theme.SourceEntry.Render(line))
	}
	return b.String()
}

// formatSimilarity renders a [0,1] score as a percentage.
func formatSimilarity(s float64) string {
	if s < 0 {
		s = 0
	}
	if s > 1 {
		s = 1
	}
	return strconv.Itoa(int(s*100+0.5)) + "% match"
}
