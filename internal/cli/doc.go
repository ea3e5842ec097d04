// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements command-line parsing and the non-TUI command
// handlers for kbchat.
//
// Commands:
//
//   - tui (default): full-screen chat interface
//   - ask: one-shot question with rendered answer and sources
//   - chat: line-based REPL for terminals without TUI support
//   - threads: list, show, search, and delete saved threads
//   - config: show and set configuration values
package cli
