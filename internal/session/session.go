// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/supportchat/internal/channel"
)

// =============================================================================
// SESSION
// =============================================================================

// Session is the client's identity for the lifetime of the process.
type Session struct {
	id          string
	displayName string
	createdAt   time.Time

	mu      sync.RWMutex
	state   channel.State
	lastErr error
	changed time.Time
}

// New creates a session with a fresh identifier. An empty displayName is
// replaced by a generated Guest label.
func New(displayName string) *Session {
	now := time.Now()
	if strings.TrimSpace(displayName) == "" {
		displayName = GuestName()
	}
	return &Session{
		id:          NewID(now),
		displayName: displayName,
		createdAt:   now,
		state:       channel.StateConnecting,
		changed:     now,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// DisplayName returns the user label sent with every message.
func (s *Session) DisplayName() string { return s.displayName }

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// State returns the current connection state.
func (s *Session) State() channel.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Observe applies a channel lifecycle event. It is the only way the
// connection state changes.
func (s *Session) Observe(ev channel.StateEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = ev.State
	s.lastErr = ev.Err
	s.changed = time.Now()
}

// =============================================================================
// STATUS
// =============================================================================

// Status is a snapshot of the session for display.
type Status struct {
	ID          string
	DisplayName string
	State       channel.State
	LastError   error
	Age         time.Duration
	// Since is how long the current state has held.
	Since time.Duration
}

// Status returns the current snapshot.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := time.Now()
	return Status{
		ID:          s.id,
		DisplayName: s.displayName,
		State:       s.state,
		LastError:   s.lastErr,
		Age:         now.Sub(s.createdAt),
		Since:       now.Sub(s.changed),
	}
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewID returns "session_<epoch ms>_<9 base36 chars>".
func NewID(now time.Time) string {
	var b strings.Builder
	b.WriteString("session_")
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 10))
	b.WriteByte('_')
	for i := 0; i < 9; i++ {
		b.WriteByte(base36[randInt(len(base36))])
	}
	return b.String()
}

// GuestName returns "Guest<N>" with N in [0, 999].
func GuestName() string {
	return "Guest" + strconv.Itoa(randInt(1000))
}

func randInt(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand only fails if the OS source is broken.
		return int(time.Now().UnixNano() % int64(n))
	}
	return int(v.Int64())
}

// FormatDuration formats a duration as "Ns", "Nm" or "Nm Ss".
func FormatDuration(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 60 {
		return strconv.Itoa(secs) + "s"
	}
	mins := secs / 60
	secs %= 60
	if secs == 0 {
		return strconv.Itoa(mins) + "m"
	}
	return strconv.Itoa(mins) + "m " + strconv.Itoa(secs) + "s"
}
