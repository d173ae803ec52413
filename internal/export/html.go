// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/jeranaias/supportchat/internal/model"
	"github.com/jeranaias/supportchat/internal/render"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports transcripts to a standalone HTML page with embedded CSS.
// Message bodies go through the same sanitizing renderer as the live view.
type HTMLExporter struct {
	options  *Options
	renderer *render.Renderer
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{
		options:  opts,
		renderer: render.New(render.NewHTML()),
	}
}

// Export converts a transcript to HTML.
func (e *HTMLExporter) Export(t *Transcript) ([]byte, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}

	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString(fmt.Sprintf("    <title>Support chat with %s</title>\n", html.EscapeString(t.UserName)))
	sb.WriteString("    <meta name=\"generator\" content=\"supportchat\">\n")
	if !t.CreatedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("    <meta name=\"date\" content=\"%s\">\n", t.CreatedAt.Format(time.RFC3339)))
	}
	sb.WriteString(css)
	sb.WriteString("</head>\n")
	sb.WriteString(fmt.Sprintf("<body class=\"%s-theme\">\n", e.theme()))
	sb.WriteString("    <div class=\"container\">\n")

	if e.options.IncludeMetadata {
		sb.WriteString(e.renderHeader(t))
	}

	sb.WriteString("        <main class=\"transcript\">\n")
	for _, msg := range t.Messages {
		sb.WriteString(e.renderMessage(msg))
	}
	sb.WriteString("        </main>\n")

	sb.WriteString("        <footer class=\"footer\">\n")
	sb.WriteString(fmt.Sprintf("            <p>Exported from supportchat on %s</p>\n",
		html.EscapeString(e.options.now().Format("January 2, 2006 at 3:04 PM"))))
	sb.WriteString("        </footer>\n")
	sb.WriteString("    </div>\n")
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// theme only ever yields a known class name.
func (e *HTMLExporter) theme() string {
	if e.options.Theme == "light" {
		return "light"
	}
	return "dark"
}

func (e *HTMLExporter) renderHeader(t *Transcript) string {
	var sb strings.Builder
	sb.WriteString("        <header class=\"header\">\n")
	sb.WriteString(fmt.Sprintf("            <h1>Support chat with %s</h1>\n", html.EscapeString(t.UserName)))
	sb.WriteString("            <div class=\"metadata\">\n")
	sb.WriteString(fmt.Sprintf("                <span>Session: <code>%s</code></span>\n", html.EscapeString(t.SessionID)))
	if !t.CreatedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("                <span>Started: %s</span>\n", formatTimestamp(t.CreatedAt)))
	}
	sb.WriteString(fmt.Sprintf("                <span>Messages: %d</span>\n", len(t.Messages)))
	sb.WriteString("            </div>\n")
	sb.WriteString("        </header>\n")
	return sb.String()
}

func (e *HTMLExporter) renderMessage(msg model.Message) string {
	roleClass := "assistant"
	if msg.Role == model.RoleUser {
		roleClass = "user"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("            <div class=\"message %s status-%s\">\n",
		roleClass, html.EscapeString(string(msg.Status))))

	sb.WriteString("                <div class=\"message-header\">\n")
	sb.WriteString(fmt.Sprintf("                    <span class=\"role\">%s</span>\n",
		html.EscapeString(msg.Role.DisplayName())))
	if e.options.IncludeTimestamps && !msg.Timestamp.IsZero() {
		sb.WriteString(fmt.Sprintf("                    <span class=\"timestamp\">%s</span>\n",
			formatShortTimestamp(msg.Timestamp)))
	}
	if note := statusNote(msg); note != "" {
		sb.WriteString(fmt.Sprintf("                    <span class=\"status\">%s</span>\n", html.EscapeString(note)))
	}
	sb.WriteString("                </div>\n")

	sb.WriteString("                <div class=\"message-content\">\n")
	sb.WriteString(e.renderer.Render(msg.Role, msg.Content))
	sb.WriteString("\n                </div>\n")

	if c := msg.Classification.String(); c != "" {
		sb.WriteString(fmt.Sprintf("                <div class=\"classification\">%s</div>\n", html.EscapeString(c)))
	}

	sb.WriteString("            </div>\n")
	return sb.String()
}

// =============================================================================
// CSS STYLES
// =============================================================================

const css = `    <style>
        :root { --radius: 8px; }
        .dark-theme {
            --bg: #1e1e2e; --surface: #313244; --text: #cdd6f4; --muted: #a6adc8;
            --user: #89b4fa; --assistant: #a6e3a1; --waiting: #f9e2af; --error: #f38ba8;
        }
        .light-theme {
            --bg: #eff1f5; --surface: #ffffff; --text: #4c4f69; --muted: #6c6f85;
            --user: #1e66f5; --assistant: #40a02b; --waiting: #df8e1d; --error: #d20f39;
        }
        body {
            margin: 0; background: var(--bg); color: var(--text);
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
            line-height: 1.6;
        }
        .container { max-width: 860px; margin: 0 auto; padding: 2rem 1rem; }
        .header h1 { margin: 0 0 0.5rem 0; font-size: 1.5rem; }
        .metadata { display: flex; gap: 1.5rem; color: var(--muted); font-size: 0.9rem; flex-wrap: wrap; }
        .transcript { margin-top: 2rem; display: flex; flex-direction: column; gap: 1rem; }
        .message { background: var(--surface); border-radius: var(--radius); padding: 1rem; border-left: 4px solid var(--assistant); }
        .message.user { border-left-color: var(--user); }
        .message.status-waiting_human { border-left-color: var(--waiting); }
        .message.status-error { border-left-color: var(--error); }
        .message-header { display: flex; gap: 1rem; font-size: 0.85rem; color: var(--muted); margin-bottom: 0.5rem; }
        .message-header .role { font-weight: 600; color: var(--text); }
        .message-header .status { font-style: italic; }
        .message-content pre { overflow-x: auto; padding: 0.75rem; border-radius: 4px; background: var(--bg); }
        .classification { margin-top: 0.5rem; font-size: 0.8rem; color: var(--muted); }
        .footer { margin-top: 3rem; text-align: center; color: var(--muted); font-size: 0.8rem; }
    </style>
`
