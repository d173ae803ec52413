// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package review coordinates the human-in-the-loop hand-off: a reply that
// the backend paused stays pending until the user approves or rejects it.
package review

import (
	"errors"

	"github.com/jeranaias/supportchat/internal/model"
)

// State of the coordinator.
type State int

const (
	StateIdle State = iota
	StateAwaitingDecision
)

func (s State) String() string {
	if s == StateAwaitingDecision {
		return "awaiting_decision"
	}
	return "idle"
}

// Feedback values understood by the backend. Free text is passed through.
const (
	Approve = "approve"
	Reject  = "reject"
)

// ErrNoPendingReview is returned by Decide when nothing awaits a decision.
var ErrNoPendingReview = errors.New("no pending review")

// Prompt is the content shown to the user while a decision is pending.
type Prompt struct {
	// MessageID is the paused message. Push-only prompts may have none.
	MessageID      string
	Content        string
	Classification model.Classification
}

// PromptFor builds the prompt for a paused assistant message.
func PromptFor(msg model.Message) Prompt {
	return Prompt{
		MessageID:      msg.ID,
		Content:        msg.Content,
		Classification: msg.Classification,
	}
}

// Coordinator holds at most one pending prompt. It is driven from the
// controller goroutine and does no locking.
type Coordinator struct {
	pending *Prompt
}

// NewCoordinator returns an idle Coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// Trigger activates p if nothing is pending and reports whether it did.
//
// A trigger while awaiting never replaces the pending message id. The one
// exception is a pending prompt that has no id yet: the first id to arrive
// is adopted, since no other message could be resumed.
func (c *Coordinator) Trigger(p Prompt) bool {
	if c.pending == nil {
		c.pending = &p
		return true
	}
	if c.pending.MessageID == "" && p.MessageID != "" {
		c.pending.MessageID = p.MessageID
		if c.pending.Classification.IsZero() {
			c.pending.Classification = p.Classification
		}
	}
	return false
}

// Decide takes the pending prompt, leaving the coordinator idle whatever
// the outcome of the resume that follows.
func (c *Coordinator) Decide() (Prompt, error) {
	if c.pending == nil {
		return Prompt{}, ErrNoPendingReview
	}
	p := *c.pending
	c.pending = nil
	return p, nil
}

// Pending returns the prompt awaiting a decision, if any.
func (c *Coordinator) Pending() (Prompt, bool) {
	if c.pending == nil {
		return Prompt{}, false
	}
	return *c.pending, true
}

// State reports whether a decision is pending.
func (c *Coordinator) State() State {
	if c.pending == nil {
		return StateIdle
	}
	return StateAwaitingDecision
}
