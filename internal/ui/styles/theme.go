// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/supportchat/internal/channel"
	"github.com/jeranaias/supportchat/internal/model"
)

// Theme names accepted by NewTheme.
const (
	ThemeAuto  = "auto"
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderMeta  lipgloss.Style

	// ==========================================================================
	// TRANSCRIPT STYLES
	// ==========================================================================

	UserLabel       lipgloss.Style
	AssistantLabel  lipgloss.Style
	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	Timestamp       lipgloss.Style
	Classification  lipgloss.Style

	StatusSent      lipgloss.Style
	StatusWaiting   lipgloss.Style
	StatusCompleted lipgloss.Style
	StatusError     lipgloss.Style

	// ==========================================================================
	// STATUS BAR STYLES
	// ==========================================================================

	StatusBar      lipgloss.Style
	ConnOnline     lipgloss.Style
	ConnConnecting lipgloss.Style
	ConnOffline    lipgloss.Style
	ConnError      lipgloss.Style
	Typing         lipgloss.Style
	Notice         lipgloss.Style

	// ==========================================================================
	// REVIEW OVERLAY STYLES
	// ==========================================================================

	ReviewBox   lipgloss.Style
	ReviewTitle lipgloss.Style
	ReviewKey   lipgloss.Style

	// ==========================================================================
	// INPUT STYLES
	// ==========================================================================

	InputContainer lipgloss.Style
	InputDisabled  lipgloss.Style
	InputPrompt    lipgloss.Style
	Help           lipgloss.Style
}

// NewTheme creates a theme. name is "auto" (or empty) to follow the
// terminal background, or "dark"/"light" to force one.
func NewTheme(name string) *Theme {
	return NewThemeWithProfile(name, termenv.ColorProfile())
}

// NewThemeWithProfile is NewTheme for a caller that has already decided the
// color profile, e.g. Ascii because colors are disabled.
func NewThemeWithProfile(name string, colorProfile termenv.Profile) *Theme {
	var isDark bool
	switch name {
	case ThemeDark:
		isDark = true
		lipgloss.SetHasDarkBackground(true)
	case ThemeLight:
		lipgloss.SetHasDarkBackground(false)
	default:
		isDark = termenv.HasDarkBackground()
	}

	t := &Theme{
		IsDark:       isDark,
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
	}
	t.initStyles()
	return t
}

// GlamourStyle returns the glamour standard style matching the theme.
func (t *Theme) GlamourStyle() string {
	if t.ColorProfile == termenv.Ascii {
		return "notty"
	}
	if t.IsDark {
		return "dark"
	}
	return "light"
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Bold(true).
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.HeaderMeta = lipgloss.NewStyle().Foreground(TextSecondary)

	t.UserLabel = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.AssistantLabel = lipgloss.NewStyle().Bold(true).Foreground(Purple)

	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(UserBubbleBorder).
		PaddingLeft(1)
	t.AssistantBubble = lipgloss.NewStyle().
		Foreground(AssistantBubbleFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(AssistantBubbleBorder).
		PaddingLeft(1)

	t.Timestamp = lipgloss.NewStyle().Foreground(TextMuted)
	t.Classification = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)

	t.StatusSent = lipgloss.NewStyle().Foreground(TextMuted)
	t.StatusWaiting = lipgloss.NewStyle().Foreground(Amber).Bold(true)
	t.StatusCompleted = lipgloss.NewStyle().Foreground(Emerald)
	t.StatusError = lipgloss.NewStyle().Foreground(Rose).Bold(true)

	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)
	t.ConnOnline = lipgloss.NewStyle().Foreground(Emerald).Bold(true)
	t.ConnConnecting = lipgloss.NewStyle().Foreground(Amber)
	t.ConnOffline = lipgloss.NewStyle().Foreground(TextMuted)
	t.ConnError = lipgloss.NewStyle().Foreground(Rose).Bold(true)
	t.Typing = lipgloss.NewStyle().Foreground(TextSecondary).Italic(true)
	t.Notice = lipgloss.NewStyle().Foreground(Amber)

	t.ReviewBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Amber).
		Padding(0, 2)
	t.ReviewTitle = lipgloss.NewStyle().Bold(true).Foreground(Amber)
	t.ReviewKey = lipgloss.NewStyle().Bold(true).Foreground(Cyan)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(0, 1)
	t.InputDisabled = t.InputContainer.BorderForeground(Overlay)
	t.InputPrompt = lipgloss.NewStyle().Bold(true).Foreground(Purple)
	t.Help = lipgloss.NewStyle().Foreground(TextMuted)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// StatusStyle returns the style for a message status tag.
func (t *Theme) StatusStyle(s model.Status) lipgloss.Style {
	switch s {
	case model.StatusWaitingHuman:
		return t.StatusWaiting
	case model.StatusCompleted:
		return t.StatusCompleted
	case model.StatusError:
		return t.StatusError
	default:
		return t.StatusSent
	}
}

// ConnectionStyle returns the style for a channel state.
func (t *Theme) ConnectionStyle(s channel.State) lipgloss.Style {
	switch s {
	case channel.StateOnline:
		return t.ConnOnline
	case channel.StateConnecting:
		return t.ConnConnecting
	case channel.StateError:
		return t.ConnError
	default:
		return t.ConnOffline
	}
}

// ConnectionIndicator returns the shape for a channel state.
func ConnectionIndicator(s channel.State) string {
	switch s {
	case channel.StateOnline:
		return StatusIndicators.Active
	case channel.StateConnecting:
		return StatusIndicators.Pending
	case channel.StateError:
		return StatusIndicators.Error
	default:
		return StatusIndicators.Warning
	}
}
