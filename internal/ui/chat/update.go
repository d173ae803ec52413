// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/supportchat/internal/review"
)

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.theme.SetSize(msg.Width, msg.Height)
		m.help.Width = msg.Width
		m.layout()
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	// Controller messages
	case InputEnabledMsg:
		m.inputEnabled = msg.Enabled
		if msg.Enabled {
			m.input.Placeholder = "Type your message..."
			return m, m.input.Focus()
		}
		m.input.Placeholder = "Waiting for reply..."
		m.input.Blur()
		return m, nil

	case ClearInputMsg:
		if m.input.Value() != "" {
			m.input.SetValue("")
			m.ctrl.Edit("")
		}
		return m, nil

	case EntryAppendedMsg:
		m.entries = append(m.entries, msg.Entry)
		m.refreshViewport()
		m.viewport.GotoBottom()
		return m, nil

	case EntryUpdatedMsg:
		if h := int(msg.Entry.Handle); h >= 0 && h < len(m.entries) {
			m.entries[h] = msg.Entry
			m.refreshViewport()
		}
		return m, nil

	case ConnectionMsg:
		m.conn = msg.State
		return m, nil

	case RemoteComposingMsg:
		m.remoteComposing = msg.Composing
		return m, nil

	case ReviewShownMsg:
		p := msg.Prompt
		m.review = &p
		m.layout()
		return m, nil

	case ReviewHiddenMsg:
		m.review = nil
		m.layout()
		return m, nil

	case NoticeMsg:
		m.notice = msg.Text
		return m, nil

	case ExportDoneMsg:
		if msg.Err != nil {
			m.notice = fmt.Sprintf("Export failed: %v", msg.Err)
		} else {
			m.notice = "Transcript saved to " + msg.Path
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Export):
		return m, m.exportCmd()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	// Decisions only while the input is empty, so messages can still
	// start with either letter.
	if m.review != nil && m.input.Value() == "" {
		switch {
		case key.Matches(msg, m.keys.Approve):
			m.ctrl.Decide(review.Approve)
			return m, nil
		case key.Matches(msg, m.keys.Reject):
			m.ctrl.Decide(review.Reject)
			return m, nil
		}
	}

	switch {
	case key.Matches(msg, m.keys.Blur):
		if m.input.Focused() {
			m.input.Blur()
			m.ctrl.Blur()
		}
		return m, nil

	case key.Matches(msg, m.keys.Focus):
		if m.inputEnabled && !m.input.Focused() {
			return m, m.input.Focus()
		}
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		if m.inputEnabled {
			m.ctrl.Submit(m.input.Value())
		}
		return m, nil
	}

	if !m.inputEnabled || !m.input.Focused() {
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if after := m.input.Value(); after != before {
		m.ctrl.Edit(after)
	}
	return m, cmd
}
