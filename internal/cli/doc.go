// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the supportchat command line.
//
// Without a subcommand supportchat opens the full-screen chat, or the
// line-mode chat when stdin or stdout is not a terminal.
//
// # Commands
//
//	supportchat                       full-screen chat
//	supportchat chat                  line-mode chat with history
//	supportchat send <text>           one round trip, prints the reply
//	supportchat stats                 backend session statistics
//	supportchat session <id>          the backend's record of a session
//	supportchat clear-sessions        drop every session on the backend
//	supportchat config show|get|init  inspect or create the config file
//	supportchat version               version information
//
// # Global Flags
//
//	-c, --config PATH   config file (default ~/.supportchat/config.toml)
//	    --url URL       backend base URL
//	-n, --name NAME     display name
//	    --log-level LVL debug, info, warn or error
//	    --json          machine-readable output where supported
package cli
