// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package controller is the client-side session state machine.
//
// A Controller owns the transcript, the review coordinator and the typing
// signal. Its Run loop is the only goroutine that touches them; it merges
// three inputs:
//
//   - user interaction (Submit, Edit, Blur, Decide), callable from any goroutine
//   - completions of the HTTP round trips it started
//   - events from the duplex channel
//
// Everything the user sees is written through the Surface interface, which
// the terminal UI and the line-mode REPL both implement.
package controller
