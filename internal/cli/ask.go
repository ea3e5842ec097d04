// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - Single question command handler for the kbchat CLI.
//
// Handles "kbchat ask", which sends one question to the knowledge-base
// backend, streams the answer, and prints it with resolved citations
// and a sources list.
//
// Examples:
//   kbchat ask "What is the refund policy?"
//   kbchat ask --agent support-agent "How do I rotate API keys?"
//   echo "What ports does the gateway use?" | kbchat ask
//   kbchat ask --thread 4f2c... "And for enterprise customers?"
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/kbchat-tui/internal/citation"
	"github.com/jeranaias/kbchat-tui/internal/config"
	"github.com/jeranaias/kbchat-tui/internal/kb"
	"github.com/jeranaias/kbchat-tui/internal/model"
	"github.com/jeranaias/kbchat-tui/internal/session"
	"github.com/jeranaias/kbchat-tui/internal/storage"
	"github.com/jeranaias/kbchat-tui/internal/ui/styles"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	askErrorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose).
			Bold(true)

	askSourcesHeaderStyle = lipgloss.NewStyle().
				Foreground(styles.TextSecondary).
				Bold(true)

	askSourceStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	askSummaryStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer is the global glamour renderer for answer output.
// Built lazily so the configured wrap width is respected.
var (
	markdownRenderer     *glamour.TermRenderer
	markdownRendererOnce sync.Once
)

func ensureRenderer() {
	markdownRendererOnce.Do(func() {
		wrap := config.Global().UI.WordWrap
		if wrap <= 0 {
			wrap = DefaultTerminalWidth
		}
		if w := GetTerminalWidth(); w < wrap {
			wrap = w
		}
		var err error
		markdownRenderer, err = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wrap),
		)
		if err != nil {
			// Fall back to plain text if renderer initialization fails.
			markdownRenderer = nil
		}
	})
}

// renderMarkdown renders markdown content for terminal display.
// Returns the original content if rendering fails.
func renderMarkdown(content string) string {
	ensureRenderer()
	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// =============================================================================
// ASK COMMAND
// =============================================================================

// HandleAsk handles the ask command.
func HandleAsk(args Args) {
	query := strings.TrimSpace(args.Query)
	if query == "" && !IsTTY() {
		// Piped input: read the question from stdin.
		data, _ := io.ReadAll(bufio.NewReader(os.Stdin))
		query = strings.TrimSpace(string(data))
	}
	if query == "" {
		fmt.Fprintln(os.Stderr, "Usage: kbchat ask \"question\"")
		os.Exit(2)
	}

	cfg := loadConfig(args)
	client := newClient(cfg)
	store, thread := resumeThread(cfg, args)

	ctrl := session.New(client, thread, cfg.Backend.AgentID)

	var failure string
	ctrl.SetNotifier(func(text string) { failure = text })

	// Piped output streams tokens raw as they arrive; a TTY waits for
	// the full answer and renders it.
	streaming := !IsStdoutTTY()
	if streaming {
		ctrl.SetObserver(func(ev kb.StreamEvent) {
			if ev.Type == kb.EventToken {
				fmt.Print(ev.Token)
			}
		})
	}

	start := time.Now()
	ctrl.Submit(context.Background(), query)

	if failure != "" {
		if streaming {
			fmt.Println()
		}
		fmt.Fprintln(os.Stderr, askErrorStyle.Render("Error: "+failure))
		os.Exit(1)
	}

	answer := thread.LastMessage()
	if answer == nil || answer.Role != model.RoleAI {
		fmt.Fprintln(os.Stderr, askErrorStyle.Render("Error: no answer received"))
		os.Exit(1)
	}

	res := citation.Resolve(answer.Content, answer.Chunks)

	if streaming {
		fmt.Println()
	} else {
		fmt.Print(renderMarkdown(answer.Content))
		printSources(os.Stdout, res, answer.DocAggs)
	}

	if store != nil {
		if id, err := store.Save(storage.FromThread(thread)); err == nil && args.Verbose {
			fmt.Fprintln(os.Stderr, askSummaryStyle.Render("thread "+id))
		}
	}

	if !args.Quiet {
		summary := fmt.Sprintf("%.1fs | %d sources", time.Since(start).Seconds(), len(res.CitedChunks))
		fmt.Fprintln(os.Stderr, askSummaryStyle.Render(summary))
	}
}

// printSources prints the cited chunks and document aggregates.
func printSources(w io.Writer, res citation.Resolution, aggs []kb.DocAgg) {
	if !res.HasCitations() && len(aggs) == 0 {
		return
	}

	fmt.Fprintln(w, askSourcesHeaderStyle.Render("Sources"))
	for _, chunk := range res.CitedChunks {
		line := "  [" + strconv.Itoa(chunk.Index) + "] " + chunk.DocumentName +
			" (" + strconv.Itoa(int(chunk.Similarity*100+0.5)) + "% match)"
		fmt.Fprintln(w, askSourceStyle.Render(line))
	}
	for _, agg := range aggs {
		suffix := " reference"
		if agg.Count != 1 {
			suffix = " references"
		}
		fmt.Fprintln(w, askSourceStyle.Render("  "+agg.DocName+": "+strconv.Itoa(agg.Count)+suffix))
	}
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// loadConfig loads configuration and applies CLI overrides.
func loadConfig(args Args) *config.Config {
	cfg := config.Global()
	if args.BaseURL != "" {
		cfg.Backend.BaseURL = args.BaseURL
	}
	if args.AgentID != "" {
		cfg.Backend.AgentID = args.AgentID
	}
	return cfg
}

// newClient builds a backend client from configuration.
func newClient(cfg *config.Config) *kb.Client {
	return kb.NewClientWithConfig(kb.ClientConfig{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: time.Duration(cfg.Backend.TimeoutSecs) * time.Second,
	})
}

// resumeThread opens the thread store and resumes --thread if given.
// Storage failures degrade to an unsaved in-memory thread.
func resumeThread(cfg *config.Config, args Args) (*storage.ThreadStore, *model.Thread) {
	store := openStore(cfg)
	if store != nil && args.ThreadID != "" {
		if stored, err := store.Load(args.ThreadID); err == nil {
			return store, stored.ToThread()
		}
		fmt.Fprintln(os.Stderr, askSummaryStyle.Render("thread not found, starting fresh"))
	}
	return store, model.NewThread("")
}

// openStore opens the configured thread store, or nil when unavailable.
func openStore(cfg *config.Config) *storage.ThreadStore {
	var store *storage.ThreadStore
	var err error
	if cfg.Storage.Dir != "" {
		store, err = storage.NewThreadStoreWithDir(cfg.Storage.Dir)
	} else {
		store, err = storage.NewThreadStore()
	}
	if err != nil {
		return nil
	}
	if cfg.Storage.MaxThreads > 0 {
		store.MaxThreads = cfg.Storage.MaxThreads
	}
	return store
}
