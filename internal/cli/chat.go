// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-based interactive chat for the kbchat CLI.
//
// A readline-style REPL for terminals where the full-screen TUI is not
// wanted (ssh sessions, screen readers, minimal terminals). Tokens are
// echoed as they stream; sources are printed after each answer.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/jeranaias/kbchat-tui/internal/citation"
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
	chatWelcomeStyle = lipgloss.NewStyle().
				Foreground(styles.Purple).
				Bold(true)

	chatInfoStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)

	chatCommandStyle = lipgloss.NewStyle().
				Foreground(styles.Cyan)

	chatWarningStyle = lipgloss.NewStyle().
				Foreground(styles.Amber)
)

const chatPrompt = "you> "

// historyFileName is stored next to the config file.
const historyFileName = "history"

// =============================================================================
// CHAT COMMAND
// =============================================================================

// HandleChat handles the interactive chat command.
func HandleChat(args Args) {
	cfg := loadConfig(args)
	client := newClient(cfg)
	store, thread := resumeThread(cfg, args)

	ctrl := session.New(client, thread, cfg.Backend.AgentID)
	ctrl.SetNotifier(func(text string) {
		fmt.Println(chatWarningStyle.Render("! " + text))
	})
	ctrl.SetObserver(func(ev kb.StreamEvent) {
		if ev.Type == kb.EventToken {
			fmt.Print(ev.Token)
		}
	})

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyPath := chatHistoryPath()
	if historyPath != "" {
		if f, err := os.Open(historyPath); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}

	printWelcome(cfg.Backend.BaseURL, thread)

	for {
		input, err := line.Prompt(chatPrompt)
		if err != nil {
			// Ctrl-C or Ctrl-D ends the session.
			fmt.Println()
			break
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if quit := handleChatCommand(input, thread, store); quit {
				break
			}
			continue
		}

		before := thread.Len()
		ctrl.Submit(context.Background(), input)
		fmt.Println()

		if thread.Len() > before {
			printChatSources(thread.LastMessage())
			saveChatThread(store, thread)
		}
	}

	if historyPath != "" {
		if f, err := os.Create(historyPath); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}
}

func printWelcome(baseURL string, thread *model.Thread) {
	fmt.Println(chatWelcomeStyle.Render("kbchat " + Version))
	fmt.Println(chatInfoStyle.Render("backend: " + baseURL))
	if !thread.IsEmpty() {
		fmt.Println(chatInfoStyle.Render(fmt.Sprintf("resumed %q (%d messages)", thread.Title, thread.Len())))
	}
	fmt.Println(chatInfoStyle.Render("Type /help for commands, Ctrl-D to quit."))
	fmt.Println()
}

// handleChatCommand dispatches a slash command. Returns true to quit.
func handleChatCommand(input string, thread *model.Thread, store *storage.ThreadStore) bool {
	fields := strings.Fields(input)
	switch fields[0] {
	case "/help":
		fmt.Println(chatCommandStyle.Render("/sources") + "  sources for the last answer")
		fmt.Println(chatCommandStyle.Render("/new") + "      start a new thread")
		fmt.Println(chatCommandStyle.Render("/save") + "     save the thread now")
		fmt.Println(chatCommandStyle.Render("/quit") + "     exit")

	case "/sources":
		last := thread.LastMessage()
		if last == nil || last.Role != model.RoleAI {
			fmt.Println(chatInfoStyle.Render("no answer yet"))
			return false
		}
		res := citation.Resolve(last.Content, last.Chunks)
		if !res.HasCitations() && len(last.DocAggs) == 0 {
			fmt.Println(chatInfoStyle.Render("last answer cited no sources"))
			return false
		}
		printSources(os.Stdout, res, last.DocAggs)

	case "/new":
		saveChatThread(store, thread)
		*thread = *model.NewThread("")
		fmt.Println(chatInfoStyle.Render("started a new thread"))

	case "/save":
		if store == nil {
			fmt.Println(chatWarningStyle.Render("! thread storage unavailable"))
			return false
		}
		saveChatThread(store, thread)
		fmt.Println(chatInfoStyle.Render("saved " + thread.ID))

	case "/quit", "/exit":
		saveChatThread(store, thread)
		return true

	default:
		fmt.Println(chatWarningStyle.Render("! unknown command " + fields[0] + " (try /help)"))
	}
	return false
}

// printChatSources prints the sources panel after a finished answer.
func printChatSources(last *model.Message) {
	if last == nil || last.Role != model.RoleAI {
		return
	}
	res := citation.Resolve(last.Content, last.Chunks)
	if res.HasCitations() || len(last.DocAggs) > 0 {
		fmt.Println()
		printSources(os.Stdout, res, last.DocAggs)
	}
}

// saveChatThread persists the thread, keeping its ID stable across saves.
func saveChatThread(store *storage.ThreadStore, thread *model.Thread) {
	if store == nil || thread.IsEmpty() {
		return
	}
	if id, err := store.Save(storage.FromThread(thread)); err == nil {
		thread.ID = id
	}
}

func chatHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	dir := filepath.Join(home, ".kbchat")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ""
	}
	return filepath.Join(dir, historyFileName)
}
