// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/supportchat/internal/channel"
	"github.com/jeranaias/supportchat/internal/review"
	"github.com/jeranaias/supportchat/internal/store"
)

// =============================================================================
// CONTROLLER MESSAGES
// =============================================================================

// InputEnabledMsg enables or disables the input field.
type InputEnabledMsg struct {
	Enabled bool
}

// ClearInputMsg empties the input field.
type ClearInputMsg struct{}

// EntryAppendedMsg adds a transcript row.
type EntryAppendedMsg struct {
	Entry store.Entry
}

// EntryUpdatedMsg replaces the status of an existing row.
type EntryUpdatedMsg struct {
	Entry store.Entry
}

// ConnectionMsg reports the channel state.
type ConnectionMsg struct {
	State channel.State
}

// RemoteComposingMsg toggles the "agent is typing" indicator.
type RemoteComposingMsg struct {
	Composing bool
}

// ReviewShownMsg opens the review overlay.
type ReviewShownMsg struct {
	Prompt review.Prompt
}

// ReviewHiddenMsg closes the review overlay.
type ReviewHiddenMsg struct{}

// NoticeMsg shows a transient line in the status bar.
type NoticeMsg struct {
	Text string
}

// ExportDoneMsg reports the result of a transcript export.
type ExportDoneMsg struct {
	Path string
	Err  error
}

// =============================================================================
// PROGRAM SURFACE
// =============================================================================

// Sender is the part of *tea.Program the surface needs.
type Sender interface {
	Send(msg tea.Msg)
}

// ProgramSurface implements controller.Surface by posting messages to a
// running Bubble Tea program. Messages posted before Attach are dropped.
type ProgramSurface struct {
	mu     sync.RWMutex
	sender Sender
}

// NewProgramSurface creates a detached surface.
func NewProgramSurface() *ProgramSurface {
	return &ProgramSurface{}
}

// Attach connects the surface to a program.
func (s *ProgramSurface) Attach(p Sender) {
	s.mu.Lock()
	s.sender = p
	s.mu.Unlock()
}

func (s *ProgramSurface) send(msg tea.Msg) {
	s.mu.RLock()
	sender := s.sender
	s.mu.RUnlock()
	if sender != nil {
		sender.Send(msg)
	}
}

func (s *ProgramSurface) SetInputEnabled(enabled bool) { s.send(InputEnabledMsg{Enabled: enabled}) }
func (s *ProgramSurface) ClearInput()                  { s.send(ClearInputMsg{}) }
func (s *ProgramSurface) AppendEntry(e store.Entry)    { s.send(EntryAppendedMsg{Entry: e}) }
func (s *ProgramSurface) UpdateEntryStatus(e store.Entry) {
	s.send(EntryUpdatedMsg{Entry: e})
}
func (s *ProgramSurface) SetConnection(state channel.State) { s.send(ConnectionMsg{State: state}) }
func (s *ProgramSurface) SetRemoteComposing(composing bool) {
	s.send(RemoteComposingMsg{Composing: composing})
}
func (s *ProgramSurface) ShowReview(p review.Prompt) { s.send(ReviewShownMsg{Prompt: p}) }
func (s *ProgramSurface) HideReview()                { s.send(ReviewHiddenMsg{}) }
func (s *ProgramSurface) Notice(text string)         { s.send(NoticeMsg{Text: text}) }
