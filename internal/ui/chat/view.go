// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/supportchat/internal/model"
	"github.com/jeranaias/supportchat/internal/render"
	"github.com/jeranaias/supportchat/internal/store"
	"github.com/jeranaias/supportchat/internal/ui/styles"
)

// View renders the chat view.
func (m Model) View() string {
	if !m.ready {
		return "Connecting..."
	}

	parts := []string{m.renderHeader(), m.viewport.View()}
	if m.review != nil {
		parts = append(parts, m.renderReview())
	}
	parts = append(parts, m.renderStatusBar(), m.renderInput(), m.renderHelp())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// layout sizes the viewport to the space the chrome leaves.
func (m *Model) layout() {
	if !m.ready {
		return
	}
	reserved := lipgloss.Height(m.renderHeader()) +
		lipgloss.Height(m.renderStatusBar()) +
		lipgloss.Height(m.renderInput()) +
		lipgloss.Height(m.renderHelp())
	if m.review != nil {
		reserved += lipgloss.Height(m.renderReview())
	}

	height := m.height - reserved
	if height < 1 {
		height = 1
	}
	m.viewport.Width = m.width
	m.viewport.Height = height
	m.input.Width = m.width - 6
}

func (m *Model) refreshViewport() {
	rows := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		rows = append(rows, m.renderEntry(e))
	}
	m.viewport.SetContent(strings.Join(rows, "\n\n"))
}

// =============================================================================
// SECTIONS
// =============================================================================

func (m Model) renderHeader() string {
	snap := m.ctrl.Snapshot()
	title := m.theme.HeaderTitle.Render("Support Chat")
	meta := m.theme.HeaderMeta.Render("  " + snap.DisplayName + "  " + snap.SessionID)
	return m.theme.Header.Width(m.width).Render(truncate(title+meta, m.width))
}

func (m Model) renderEntry(e store.Entry) string {
	msg := e.Message
	width := m.width - 4
	if width < 10 {
		width = 10
	}

	label := m.theme.AssistantLabel.Render(msg.Role.DisplayName())
	bubble := m.theme.AssistantBubble
	if msg.Role == model.RoleUser {
		label = m.theme.UserLabel.Render(msg.Role.DisplayName())
		bubble = m.theme.UserBubble
	}

	header := label
	if !msg.Timestamp.IsZero() {
		header += " " + m.theme.Timestamp.Render(msg.Timestamp.Local().Format("15:04"))
	}
	if msg.Role == model.RoleAssistant && msg.Status != "" && msg.Status != model.StatusSent {
		header += " " + m.theme.StatusStyle(msg.Status).Render("["+msg.Status.Label()+"]")
	}

	out := header + "\n" + bubble.Width(width).Render(e.Rendered)
	if msg.NeedsReview() {
		if c := msg.Classification.String(); c != "" {
			out += "\n" + m.theme.Classification.Render(truncate(render.Scrub("classification: "+c), width))
		}
	}
	return out
}

func (m Model) renderReview() string {
	p := m.review
	width := m.width - 6
	if width < 20 {
		width = 20
	}

	preview := strings.Join(strings.Fields(render.Scrub(p.Content)), " ")
	lines := []string{
		m.theme.ReviewTitle.Render(styles.StatusIndicators.Warning + " Human review required"),
		truncate(preview, width),
	}
	if c := p.Classification.String(); c != "" {
		lines = append(lines, m.theme.Classification.Render(truncate(render.Scrub(c), width)))
	}
	lines = append(lines,
		m.theme.ReviewKey.Render("[a]")+" approve   "+m.theme.ReviewKey.Render("[r]")+" reject")

	return m.theme.ReviewBox.Width(width + 4).Render(strings.Join(lines, "\n"))
}

func (m Model) renderStatusBar() string {
	conn := m.theme.ConnectionStyle(m.conn).
		Render(styles.ConnectionIndicator(m.conn) + " " + m.conn.String())

	segments := []string{conn}
	if m.remoteComposing {
		segments = append(segments, m.spinner.View()+m.theme.Typing.Render(" Agent is typing..."))
	}
	if m.notice != "" {
		segments = append(segments, m.theme.Notice.Render(m.notice))
	}
	return m.theme.StatusBar.Width(m.width).Render(truncate(strings.Join(segments, "  "), m.width-2))
}

func (m Model) renderInput() string {
	style := m.theme.InputContainer
	if !m.inputEnabled {
		style = m.theme.InputDisabled
	}
	return style.Width(m.width - 2).Render(m.input.View())
}

func (m Model) renderHelp() string {
	return m.theme.Help.Render(m.help.View(m.keys))
}

// truncate shortens s to width terminal cells. Styled strings are measured
// with their escape sequences removed.
func truncate(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	if plain := render.Scrub(s); plain != s {
		return runewidth.Truncate(plain, width, "...")
	}
	return runewidth.Truncate(s, width, "...")
}
