// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/supportchat/internal/channel"
	"github.com/jeranaias/supportchat/internal/controller"
	"github.com/jeranaias/supportchat/internal/export"
	"github.com/jeranaias/supportchat/internal/review"
	"github.com/jeranaias/supportchat/internal/session"
	"github.com/jeranaias/supportchat/internal/store"
	"github.com/jeranaias/supportchat/internal/ui/styles"
)

// maxInputLength bounds a single message.
const maxInputLength = 4000

// Controller is the session controller as seen by the view.
type Controller interface {
	Submit(text string)
	Edit(text string)
	Blur()
	Decide(feedback string)
	Snapshot() controller.Snapshot
	Store() *store.Store
}

// Options configures a Model.
type Options struct {
	Controller Controller
	// Session identifies the transcript for export. Optional.
	Session *session.Session
	Theme   *styles.Theme
	// Export configures ctrl+e. Nil uses export.DefaultOptions.
	Export       *export.Options
	ExportFormat string
	KeyMap       *KeyMap
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	ctrl  Controller
	opts  Options
	keys  KeyMap
	theme *styles.Theme

	// Dimensions
	width  int
	height int
	ready  bool

	// UI Components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	help     help.Model

	// Transcript rows, indexed by store.Handle
	entries []store.Entry

	// Controller-driven state
	inputEnabled    bool
	conn            channel.State
	remoteComposing bool
	review          *review.Prompt
	notice          string
}

// New creates the chat model.
func New(opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme(styles.ThemeAuto)
	}
	keys := DefaultKeyMap()
	if opts.KeyMap != nil {
		keys = *opts.KeyMap
	}
	if opts.ExportFormat == "" {
		opts.ExportFormat = "md"
	}

	input := textinput.New()
	input.Placeholder = "Type your message..."
	input.Prompt = "> "
	input.PromptStyle = theme.InputPrompt
	input.CharLimit = maxInputLength
	input.Focus()

	sp := spinner.New(
		spinner.WithSpinner(spinner.MiniDot),
		spinner.WithStyle(theme.Typing),
	)

	return Model{
		ctrl:         opts.Controller,
		opts:         opts,
		keys:         keys,
		theme:        theme,
		viewport:     viewport.New(80, 20),
		input:        input,
		spinner:      sp,
		help:         help.New(),
		inputEnabled: true,
		conn:         channel.StateConnecting,
	}
}

// Init starts the cursor blink and the typing spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Entries returns the rows currently displayed.
func (m Model) Entries() []store.Entry {
	return m.entries
}

// InputValue returns the text in the input field.
func (m Model) InputValue() string {
	return m.input.Value()
}

// InputEnabled reports whether the user can type.
func (m Model) InputEnabled() bool {
	return m.inputEnabled
}

// Connection returns the last reported channel state.
func (m Model) Connection() channel.State {
	return m.conn
}

// Review returns the prompt being shown, if any.
func (m Model) Review() (review.Prompt, bool) {
	if m.review == nil {
		return review.Prompt{}, false
	}
	return *m.review, true
}

// Notice returns the status bar notice.
func (m Model) Notice() string {
	return m.notice
}
