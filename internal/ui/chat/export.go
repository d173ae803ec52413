// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/supportchat/internal/export"
)

// exportCmd writes the current transcript off the UI goroutine.
func (m Model) exportCmd() tea.Cmd {
	sess := m.opts.Session
	format := m.opts.ExportFormat
	opts := m.opts.Export
	if opts == nil {
		opts = export.DefaultOptions()
	}
	messages := m.ctrl.Store().Messages()

	return func() tea.Msg {
		if sess == nil {
			return ExportDoneMsg{Err: errors.New("no session to export")}
		}
		exporter, err := export.ForFormat(format, opts)
		if err != nil {
			return ExportDoneMsg{Err: err}
		}
		path, err := export.ToFile(export.NewTranscript(sess, messages), exporter, opts)
		return ExportDoneMsg{Path: path, Err: err}
	}
}
