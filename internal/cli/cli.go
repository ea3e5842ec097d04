// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command handlers for kbchat.
package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdThreads
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	JSON    bool
	AgentID string
	BaseURL string

	// Command-specific
	Query      string
	ThreadID   string
	Subcommand string
	ConfigKey  string
	ConfigVal  string

	// Raw args (remaining after flag parsing)
	Raw []string
}

const usageText = `kbchat %s - terminal client for a knowledge-base chat backend

kbchat streams answers from a retrieval-augmented chat backend and
resolves inline [ID:n] citations against the retrieved sources.

Usage:
  kbchat                      Start TUI (default)
  kbchat ask "question"       Ask a single question
  kbchat chat                 Interactive line-based chat
  kbchat threads [subcommand] Saved thread management
  kbchat config [show|set]    Configuration
  kbchat version              Show version
  kbchat help                 Show this help

Thread Commands:
  kbchat threads                    List saved threads
  kbchat threads show <id>          Print a thread
  kbchat threads search <query>     Search threads
  kbchat threads delete <id>        Delete a thread
  kbchat threads clear              Delete all threads

Flags:
  --agent ID          Retrieval agent to query (overrides config)
  --base-url URL      Backend base URL (overrides config)
  --thread ID         Resume a saved thread (ask, chat)
  -q, --quiet         Minimal output
  -v, --verbose       Verbose output
  --json              Machine-readable output where supported

Examples:
  kbchat ask "What is the refund policy?"
  kbchat ask --agent support-agent "How do I reset a password?"
  kbchat chat --thread 4f2c0c1e-...
  kbchat threads search refund

Environment:
  KBCHAT_BASE_URL     Backend base URL
  KBCHAT_AGENT_ID     Default agent
  KBCHAT_THREADS_DIR  Thread storage directory

Configuration file: ~/.kbchat/config.toml
`

// PrintUsage prints the usage text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("kbchat version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses command-line arguments and returns the command and args.
func Parse() (Command, Args) {
	args := os.Args[1:]

	remaining, parsedArgs := parseGlobalFlags(args)

	// No command defaults to the TUI.
	if len(remaining) == 0 {
		return CmdTUI, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, parsedArgs

	case "ask":
		parseAskArgs(&parsedArgs, remaining)
		return CmdAsk, parsedArgs

	case "chat":
		return CmdChat, parsedArgs

	case "threads", "thread":
		parseThreadsArgs(&parsedArgs, remaining)
		return CmdThreads, parsedArgs

	case "config":
		parseConfigArgs(&parsedArgs, remaining)
		return CmdConfig, parsedArgs

	case "version", "--version", "-V":
		return CmdVersion, parsedArgs

	case "help", "--help", "-h":
		return CmdHelp, parsedArgs

	default:
		// Treat an unrecognized first word as an ask query, so
		// `kbchat "what is X"` just works.
		parseAskArgs(&parsedArgs, append([]string{cmd}, remaining...))
		return CmdAsk, parsedArgs
	}
}

// parseGlobalFlags extracts flags valid for every command.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsedArgs Args

	i := 0
	for i < len(args) {
		arg := args[i]

		switch arg {
		case "-q", "--quiet":
			parsedArgs.Quiet = true
		case "-v", "--verbose":
			parsedArgs.Verbose = true
		case "--json":
			parsedArgs.JSON = true
		case "--agent":
			if i+1 < len(args) {
				i++
				parsedArgs.AgentID = args[i]
			}
		case "--base-url":
			if i+1 < len(args) {
				i++
				parsedArgs.BaseURL = args[i]
			}
		case "--thread":
			if i+1 < len(args) {
				i++
				parsedArgs.ThreadID = args[i]
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--agent="):
				parsedArgs.AgentID = strings.TrimPrefix(arg, "--agent=")
			case strings.HasPrefix(arg, "--base-url="):
				parsedArgs.BaseURL = strings.TrimPrefix(arg, "--base-url=")
			case strings.HasPrefix(arg, "--thread="):
				parsedArgs.ThreadID = strings.TrimPrefix(arg, "--thread=")
			default:
				remaining = append(remaining, arg)
			}
		}
		i++
	}

	return remaining, parsedArgs
}

// parseAskArgs joins the remaining words into the query.
func parseAskArgs(args *Args, remaining []string) {
	var query []string
	for _, arg := range remaining {
		if !strings.HasPrefix(arg, "-") {
			query = append(query, arg)
		}
	}
	args.Query = strings.Join(query, " ")
}

// parseThreadsArgs parses the threads subcommand and its argument.
func parseThreadsArgs(args *Args, remaining []string) {
	if len(remaining) == 0 {
		args.Subcommand = "list"
		return
	}
	args.Subcommand = strings.ToLower(remaining[0])
	if len(remaining) > 1 {
		switch args.Subcommand {
		case "show", "delete":
			args.ThreadID = remaining[1]
		case "search":
			args.Query = strings.Join(remaining[1:], " ")
		}
	}
}

// parseConfigArgs parses the config subcommand.
func parseConfigArgs(args *Args, remaining []string) {
	if len(remaining) == 0 {
		args.Subcommand = "show"
		return
	}
	args.Subcommand = strings.ToLower(remaining[0])
	if args.Subcommand == "set" {
		if len(remaining) > 1 {
			args.ConfigKey = remaining[1]
		}
		if len(remaining) > 2 {
			args.ConfigVal = strings.Join(remaining[2:], " ")
		}
	}
}

// HandleVersion handles the version command.
func HandleVersion() {
	PrintVersion()
}

// HandleHelp handles the help command.
func HandleHelp() {
	PrintUsage()
}
