// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package typing tracks whether the local user is composing a message and
// emits edge-triggered notifications when that changes.
package typing

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Notifier delivers typing notifications over the duplex channel.
type Notifier interface {
	// Online reports whether a notification can be delivered right now.
	Online() bool
	// NotifyTyping sends one notification.
	NotifyTyping(ctx context.Context, composing bool) error
}

// Signal is the composing state machine. It is not safe for concurrent use;
// the controller drives it from a single goroutine.
type Signal struct {
	notifier  Notifier
	logger    *zap.Logger
	composing bool
}

// New creates a Signal in the idle state.
func New(n Notifier, logger *zap.Logger) *Signal {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Signal{notifier: n, logger: logger.Named("typing")}
}

// Composing reports the current local state.
func (s *Signal) Composing() bool {
	return s.composing
}

// Edit records the current input text. The first non-blank text after idle
// sends composing=true; text turning blank sends composing=false.
func (s *Signal) Edit(ctx context.Context, text string) {
	blank := strings.TrimSpace(text) == ""
	switch {
	case !blank && !s.composing:
		s.set(ctx, true)
	case blank && s.composing:
		s.set(ctx, false)
	}
}

// Blur records the input losing focus.
func (s *Signal) Blur(ctx context.Context) {
	if s.composing {
		s.set(ctx, false)
	}
}

func (s *Signal) set(ctx context.Context, composing bool) {
	s.composing = composing
	if s.notifier == nil || !s.notifier.Online() {
		return
	}
	if err := s.notifier.NotifyTyping(ctx, composing); err != nil {
		s.logger.Debug("typing notification dropped", zap.Bool("composing", composing), zap.Error(err))
	}
}
