// kbchat - terminal client for a retrieval-augmented chat backend.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/kbchat-tui/internal/cli"
	"github.com/jeranaias/kbchat-tui/internal/config"
	"github.com/jeranaias/kbchat-tui/internal/kb"
	"github.com/jeranaias/kbchat-tui/internal/model"
	"github.com/jeranaias/kbchat-tui/internal/storage"
	"github.com/jeranaias/kbchat-tui/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdTUI:
		runTUI(args)
	case cli.CmdAsk:
		cli.HandleAsk(args)
	case cli.CmdChat:
		cli.HandleChat(args)
	case cli.CmdThreads:
		cli.HandleThreads(args)
	case cli.CmdConfig:
		cli.HandleConfig(args)
	case cli.CmdVersion:
		cli.HandleVersion()
	case cli.CmdHelp:
		cli.HandleHelp()
	default:
		runTUI(args)
	}
}

// runTUI starts the full-screen interface.
func runTUI(args cli.Args) {
	cfg := config.Global()
	if args.BaseURL != "" {
		cfg.Backend.BaseURL = args.BaseURL
	}
	if args.AgentID != "" {
		cfg.Backend.AgentID = args.AgentID
	}

	client := kb.NewClientWithConfig(kb.ClientConfig{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: time.Duration(cfg.Backend.TimeoutSecs) * time.Second,
	})

	// A dead backend is not fatal; the first submit will surface the
	// error inside the TUI too.
	healthCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	if err := client.CheckRunning(healthCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: backend not reachable at %s\n", client.BaseURL())
	}
	cancel()

	var store *storage.ThreadStore
	var err error
	if cfg.Storage.Dir != "" {
		store, err = storage.NewThreadStoreWithDir(cfg.Storage.Dir)
	} else {
		store, err = storage.NewThreadStore()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: thread storage unavailable: %v\n", err)
		store = nil
	} else if cfg.Storage.MaxThreads > 0 {
		store.MaxThreads = cfg.Storage.MaxThreads
	}

	thread := model.NewThread("")
	if store != nil && args.ThreadID != "" {
		if stored, loadErr := store.Load(args.ThreadID); loadErr == nil {
			thread = stored.ToThread()
		} else {
			fmt.Fprintf(os.Stderr, "Warning: %v, starting a new thread\n", loadErr)
		}
	}

	ctx, cancelStream := context.WithCancel(context.Background())
	defer cancelStream()

	m := chat.New(ctx, cfg, thread, store)

	opts := []tea.ProgramOption{}
	if cfg.UI.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	program := tea.NewProgram(m, opts...)

	// The runner needs the program handle to deliver stream events, so
	// it is wired after program construction.
	m.SetRunner(chat.NewStreamRunner(program, client))

	// Live config reload while the TUI runs.
	watcher, watchErr := config.Watch(config.DefaultPath(), func(updated *config.Config) {
		program.Send(chat.ConfigReloadedMsg{Config: updated})
	})
	if watchErr == nil {
		defer watcher.Close()
	}

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
