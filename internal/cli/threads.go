// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// threads.go - Saved thread management commands for the kbchat CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/kbchat-tui/internal/storage"
	"github.com/jeranaias/kbchat-tui/internal/ui/styles"
)

var (
	threadRoleStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	threadMetaStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)
)

// HandleThreads handles the threads command and its subcommands.
func HandleThreads(args Args) {
	cfg := loadConfig(args)
	store := openStore(cfg)
	if store == nil {
		fmt.Fprintln(os.Stderr, "Error: thread storage unavailable")
		os.Exit(1)
	}

	switch args.Subcommand {
	case "list", "":
		handleThreadsList(store, args)
	case "show":
		handleThreadsShow(store, args)
	case "search":
		handleThreadsSearch(store, args)
	case "delete":
		handleThreadsDelete(store, args)
	case "clear":
		handleThreadsClear(store)
	default:
		fmt.Fprintf(os.Stderr, "Unknown threads subcommand: %s\n", args.Subcommand)
		fmt.Fprintln(os.Stderr, "Valid: list, show, search, delete, clear")
		os.Exit(2)
	}
}

func handleThreadsList(store *storage.ThreadStore, args Args) {
	metas, err := store.List()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing threads: %v\n", err)
		os.Exit(1)
	}
	printThreadList(metas, args)
}

func handleThreadsSearch(store *storage.ThreadStore, args Args) {
	if args.Query == "" {
		fmt.Fprintln(os.Stderr, "Usage: kbchat threads search <query>")
		os.Exit(2)
	}
	metas, err := store.Search(args.Query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error searching threads: %v\n", err)
		os.Exit(1)
	}
	printThreadList(metas, args)
}

func printThreadList(metas []storage.ThreadMeta, args Args) {
	if args.JSON {
		out, _ := json.MarshalIndent(metas, "", "  ")
		fmt.Println(string(out))
		return
	}
	fmt.Print(storage.FormatThreadList(metas))
}

func handleThreadsShow(store *storage.ThreadStore, args Args) {
	if args.ThreadID == "" {
		fmt.Fprintln(os.Stderr, "Usage: kbchat threads show <id>")
		os.Exit(2)
	}

	stored, err := store.Load(args.ThreadID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if args.JSON {
		out, _ := json.MarshalIndent(stored, "", "  ")
		fmt.Println(string(out))
		return
	}

	fmt.Println(threadMetaStyle.Render(stored.ID + " · " + stored.UpdatedAt.Format("2006-01-02 15:04")))
	fmt.Println(stored.Title)
	fmt.Println()
	for _, msg := range stored.Messages {
		fmt.Println(threadRoleStyle.Render(msg.Role.DisplayName() + ":"))
		fmt.Println(msg.Content)
		fmt.Println()
	}
}

func handleThreadsDelete(store *storage.ThreadStore, args Args) {
	if args.ThreadID == "" {
		fmt.Fprintln(os.Stderr, "Usage: kbchat threads delete <id>")
		os.Exit(2)
	}
	if err := store.Delete(args.ThreadID); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Deleted thread %s\n", args.ThreadID)
}

func handleThreadsClear(store *storage.ThreadStore) {
	metas, err := store.List()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(metas) == 0 {
		fmt.Println("No saved threads.")
		return
	}
	if err := store.Clear(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Deleted %d thread(s)\n", len(metas))
}
