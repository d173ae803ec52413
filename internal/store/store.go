// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds the ordered, in-memory transcript of a chat session.
//
// The transcript is append-only: entries keep the position they were given
// and the only mutation is a status update addressed by message id. Content
// is rendered exactly once, when the entry is appended.
package store

import (
	"errors"
	"sync"

	"github.com/jeranaias/supportchat/internal/model"
)

// ErrNotFound is returned by UpdateStatus for an id with no entry.
var ErrNotFound = errors.New("message not found")

// Renderer turns message text into its display form.
type Renderer interface {
	Render(role model.Role, text string) string
}

// Handle addresses an entry by its position in the transcript.
type Handle int

// Entry is one transcript row.
type Entry struct {
	Handle   Handle
	Message  model.Message
	Rendered string
}

// Store is the transcript. It is safe for concurrent use.
type Store struct {
	renderer Renderer

	mu      sync.RWMutex
	entries []Entry
	byID    map[string]Handle
}

// New creates an empty Store that renders through r.
func New(r Renderer) *Store {
	return &Store{
		renderer: r,
		byID:     make(map[string]Handle),
	}
}

// Append renders msg and adds it to the end of the transcript.
//
// If msg carries an id that is already present, the new entry is still
// appended but status updates keep addressing the first one.
func (s *Store) Append(msg model.Message) Entry {
	rendered := msg.Content
	if s.renderer != nil {
		rendered = s.renderer.Render(msg.Role, msg.Content)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := Entry{
		Handle:   Handle(len(s.entries)),
		Message:  msg,
		Rendered: rendered,
	}
	s.entries = append(s.entries, e)
	if msg.ID != "" {
		if _, exists := s.byID[msg.ID]; !exists {
			s.byID[msg.ID] = e.Handle
		}
	}
	return e
}

// UpdateStatus changes the status of the entry with the given id and
// returns the updated entry. Content and position are untouched.
func (s *Store) UpdateStatus(id string, status model.Status) (Entry, error) {
	if id == "" {
		return Entry{}, ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.byID[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	s.entries[h].Message.Status = status
	return s.entries[h], nil
}

// Get returns the entry at h.
func (s *Store) Get(h Handle) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if h < 0 || int(h) >= len(s.entries) {
		return Entry{}, false
	}
	return s.entries[h], true
}

// Lookup returns the entry for a message id.
func (s *Store) Lookup(id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.byID[id]
	if !ok {
		return Entry{}, false
	}
	return s.entries[h], true
}

// LastWaiting returns the most recent entry paused for human review.
func (s *Store) LastWaiting() (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].Message.NeedsReview() {
			return s.entries[i], true
		}
	}
	return Entry{}, false
}

// Entries returns a copy of the transcript in append order.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Messages returns the transcript messages in append order.
func (s *Store) Messages() []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Message, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Message
	}
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
