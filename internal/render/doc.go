// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns raw message text into safe display markup.
//
// User text is never interpreted: it is escaped and its line breaks are
// converted. Assistant text is normalized and passed through an injected
// Interpreter. If the interpreter fails, the assistant text takes the same
// escape path as user text, so a malformed payload can neither crash the
// renderer nor produce executable markup.
//
// # Formats
//
//   - HTML: goldmark (GFM, hard wraps) sanitized by a bluemonday UGC policy
//   - Terminal: glamour with terminal control sequences scrubbed
//
// # Usage
//
//	r := render.New(render.NewHTML())
//	out := r.Render(model.RoleAssistant, "* a\n* b")
package render
