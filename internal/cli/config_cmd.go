// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration inspection commands for the kbchat CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/kbchat-tui/internal/config"
)

// HandleConfig handles the config command and its subcommands.
func HandleConfig(args Args) {
	switch args.Subcommand {
	case "show", "":
		handleConfigShow(args)
	case "path":
		fmt.Println(config.DefaultPath())
	case "set":
		handleConfigSet(args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args.Subcommand)
		fmt.Fprintln(os.Stderr, "Valid: show, path, set")
		os.Exit(2)
	}
}

func handleConfigShow(args Args) {
	cfg := config.Global()
	if args.JSON {
		out, _ := json.MarshalIndent(cfg, "", "  ")
		fmt.Println(string(out))
		return
	}
	if err := toml.NewEncoder(os.Stdout).Encode(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func handleConfigSet(args Args) {
	if args.ConfigKey == "" || args.ConfigVal == "" {
		fmt.Fprintln(os.Stderr, "Usage: kbchat config set <key> <value>")
		fmt.Fprintln(os.Stderr, "Keys: backend.base_url, backend.agent_id, backend.timeout_secs,")
		fmt.Fprintln(os.Stderr, "      ui.word_wrap, ui.alt_screen, ui.show_sources,")
		fmt.Fprintln(os.Stderr, "      storage.dir, storage.max_threads")
		os.Exit(2)
	}

	// Modify the file contents, not the env-overridden view.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := setConfigKey(cfg, args.ConfigKey, args.ConfigVal); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	path := config.DefaultPath()
	if err := cfg.Save(path); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Set %s = %s in %s\n", args.ConfigKey, args.ConfigVal, path)
}

func setConfigKey(cfg *config.Config, key, val string) error {
	switch key {
	case "backend.base_url":
		cfg.Backend.BaseURL = val
	case "backend.agent_id":
		cfg.Backend.AgentID = val
	case "backend.timeout_secs":
		n, err := strconv.Atoi(val)
		if err != nil || n <= 0 {
			return fmt.Errorf("%s requires a positive integer, got %q", key, val)
		}
		cfg.Backend.TimeoutSecs = n
	case "ui.word_wrap":
		n, err := strconv.Atoi(val)
		if err != nil || n <= 0 {
			return fmt.Errorf("%s requires a positive integer, got %q", key, val)
		}
		cfg.UI.WordWrap = n
	case "ui.alt_screen":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("%s requires true or false, got %q", key, val)
		}
		cfg.UI.AltScreen = b
	case "ui.show_sources":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("%s requires true or false, got %q", key, val)
		}
		cfg.UI.ShowSources = b
	case "storage.dir":
		cfg.Storage.Dir = val
	case "storage.max_threads":
		n, err := strconv.Atoi(val)
		if err != nil || n < 0 {
			return fmt.Errorf("%s requires a non-negative integer, got %q", key, val)
		}
		cfg.Storage.MaxThreads = n
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}
