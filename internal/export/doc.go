// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes the in-memory transcript of a chat session to a
// file. Nothing is read back; exports are for sharing and auditing.
//
// # Supported Formats
//
//   - JSON: the backend's wire format plus session metadata
//   - Markdown: human-readable, with review status annotations
//   - HTML: standalone page rendered through the sanitizing HTML renderer
//
// # Usage
//
//	t := export.NewTranscript(sess, ctrl.Store().Messages())
//	exporter, err := export.ForFormat("html", nil)
//	path, err := export.ToFile(t, exporter, nil)
package export
