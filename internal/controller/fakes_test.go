// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/jeranaias/supportchat/internal/backend"
	"github.com/jeranaias/supportchat/internal/channel"
	"github.com/jeranaias/supportchat/internal/model"
	"github.com/jeranaias/supportchat/internal/review"
	"github.com/jeranaias/supportchat/internal/store"
)

// =============================================================================
// FAKE SURFACE
// =============================================================================

type fakeSurface struct {
	mu        sync.Mutex
	enabled   []bool
	cleared   int
	appended  []store.Entry
	updated   []store.Entry
	states    []channel.State
	composing []bool
	shown     []review.Prompt
	hidden    int
	notices   []string
}

func (s *fakeSurface) SetInputEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = append(s.enabled, enabled)
}

func (s *fakeSurface) ClearInput() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared++
}

func (s *fakeSurface) AppendEntry(e store.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appended = append(s.appended, e)
}

func (s *fakeSurface) UpdateEntryStatus(e store.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updated = append(s.updated, e)
}

func (s *fakeSurface) SetConnection(state channel.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, state)
}

func (s *fakeSurface) SetRemoteComposing(composing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.composing = append(s.composing, composing)
}

func (s *fakeSurface) ShowReview(p review.Prompt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shown = append(s.shown, p)
}

func (s *fakeSurface) HideReview() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hidden++
}

func (s *fakeSurface) Notice(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, text)
}

func (s *fakeSurface) lastEnabled() (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.enabled) == 0 {
		return false, false
	}
	return s.enabled[len(s.enabled)-1], true
}

func (s *fakeSurface) appendedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.appended)
}

func (s *fakeSurface) shownPrompts() []review.Prompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]review.Prompt(nil), s.shown...)
}

func (s *fakeSurface) hiddenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hidden
}

func (s *fakeSurface) composingHistory() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bool(nil), s.composing...)
}

func (s *fakeSurface) noticeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notices)
}

func (s *fakeSurface) lastState() channel.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.states) == 0 {
		return -1
	}
	return s.states[len(s.states)-1]
}

// =============================================================================
// FAKE BACKEND
// =============================================================================

type resumeCall struct {
	SessionID string
	Feedback  string
}

type fakeBackend struct {
	send   func(ctx context.Context, req backend.SendRequest) (*model.Message, error)
	resume func(ctx context.Context, sessionID, feedback string) (*model.Message, error)

	mu      sync.Mutex
	sends   []backend.SendRequest
	resumes []resumeCall
}

func (b *fakeBackend) Send(ctx context.Context, req backend.SendRequest) (*model.Message, error) {
	b.mu.Lock()
	b.sends = append(b.sends, req)
	b.mu.Unlock()
	return b.send(ctx, req)
}

func (b *fakeBackend) Resume(ctx context.Context, sessionID, feedback string) (*model.Message, error) {
	b.mu.Lock()
	b.resumes = append(b.resumes, resumeCall{SessionID: sessionID, Feedback: feedback})
	b.mu.Unlock()
	return b.resume(ctx, sessionID, feedback)
}

func (b *fakeBackend) sendCalls() []backend.SendRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]backend.SendRequest(nil), b.sends...)
}

func (b *fakeBackend) resumeCalls() []resumeCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]resumeCall(nil), b.resumes...)
}

// =============================================================================
// FAKE CHANNEL
// =============================================================================

type fakeChannel struct {
	events chan channel.Event
	online atomic.Bool

	mu      sync.Mutex
	notices []channel.TypingNotice
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{events: make(chan channel.Event, 16)}
}

func (c *fakeChannel) Events() <-chan channel.Event { return c.events }

func (c *fakeChannel) Online() bool { return c.online.Load() }

func (c *fakeChannel) SendTyping(_ context.Context, n channel.TypingNotice) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices = append(c.notices, n)
	return nil
}

func (c *fakeChannel) typingNotices() []channel.TypingNotice {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]channel.TypingNotice(nil), c.notices...)
}
