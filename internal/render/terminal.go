// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/x/ansi"
)

// Terminal renders markdown for display in a terminal.
type Terminal struct {
	tr *glamour.TermRenderer
}

// NewTerminal creates the terminal format. style is a glamour standard style
// name ("dark", "light", "notty", ...) or "auto"/"" to detect the background.
func NewTerminal(style string, wordWrap int) (*Terminal, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(wordWrap)}
	if style == "" || style == "auto" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}

	tr, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, err
	}
	return &Terminal{tr: tr}, nil
}

// Interpret renders scrubbed markdown with glamour.
func (t *Terminal) Interpret(text string) (string, error) {
	out, err := t.tr.Render(Scrub(text))
	if err != nil {
		return "", err
	}
	return strings.Trim(out, "\n"), nil
}

// Plain returns the scrubbed text with line breaks preserved.
func (t *Terminal) Plain(text string) string {
	return Scrub(text)
}

// Scrub removes terminal escape sequences and control characters other than
// newline and tab, so untrusted text cannot drive the terminal.
func Scrub(text string) string {
	text = ansi.Strip(strings.ReplaceAll(text, "\r\n", "\n"))
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f || (r >= 0x80 && r < 0xa0) {
			return -1
		}
		return r
	}, text)
}
