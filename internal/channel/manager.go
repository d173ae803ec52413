// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package channel

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// EndpointPath is the backend's WebSocket route.
const EndpointPath = "/ws/chat"

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotConnected is returned by Send while the channel is not online.
	ErrNotConnected = errors.New("channel is not connected")
	// ErrAttemptsExhausted is returned by Run when MaxAttempts is reached.
	ErrAttemptsExhausted = errors.New("reconnect attempts exhausted")
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// ReconnectPolicy controls recovery after the connection closes.
type ReconnectPolicy struct {
	// Delay before each reconnect attempt (default: 3s). It never grows.
	Delay time.Duration

	// MaxAttempts caps consecutive reconnects without a successful open.
	// Zero means retry forever.
	MaxAttempts int
}

// DefaultReconnectPolicy returns the fixed 3 second, unlimited policy.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{Delay: 3 * time.Second}
}

// Clock schedules the reconnect timer. Tests inject a virtual clock.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Options configures a Manager.
type Options struct {
	// URL is the ws:// or wss:// endpoint (see Endpoint).
	URL *url.URL

	Policy ReconnectPolicy
	Clock  Clock

	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer

	// WriteTimeout bounds each outbound frame (default: 10s).
	WriteTimeout time.Duration

	// Buffer is the events channel capacity (default: 32).
	Buffer int

	Logger *zap.Logger
}

// Endpoint derives the channel URL from the backend's HTTP base URL, pairing
// http with ws and https with wss.
func Endpoint(base *url.URL) (*url.URL, error) {
	if base == nil {
		return nil, errors.New("base URL is required")
	}
	u := *base
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported scheme %q", base.Scheme)
	}
	u.Path = EndpointPath
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return &u, nil
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager maintains the duplex connection and its reconnect loop.
//
// Run must be called at most once. Send is safe for concurrent use.
type Manager struct {
	opts   Options
	logger *zap.Logger
	events chan Event

	mu   sync.Mutex
	conn *websocket.Conn

	writeMu sync.Mutex
	online  atomic.Bool

	// warnLimit throttles malformed-payload warnings.
	warnLimit *rate.Limiter
}

// NewManager creates a Manager. Zero option values take their defaults.
func NewManager(opts Options) *Manager {
	if opts.Policy.Delay <= 0 {
		opts.Policy.Delay = DefaultReconnectPolicy().Delay
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 32
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		opts:      opts,
		logger:    logger.Named("channel"),
		events:    make(chan Event, opts.Buffer),
		warnLimit: rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

// Events returns the channel of state changes and push events. It is closed
// when Run returns.
func (m *Manager) Events() <-chan Event {
	return m.events
}

// Online reports whether the connection is currently open.
func (m *Manager) Online() bool {
	return m.online.Load()
}

// Run connects and keeps reconnecting until ctx is cancelled. It returns nil
// on cancellation and ErrAttemptsExhausted if the policy gives up.
func (m *Manager) Run(ctx context.Context) error {
	defer close(m.events)

	if m.opts.URL == nil {
		return errors.New("channel URL is required")
	}

	attempt := 0
	for {
		m.emit(ctx, StateEvent{State: StateConnecting, Attempt: attempt})

		opened := m.connectOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if opened {
			attempt = 0
		}

		attempt++
		if limit := m.opts.Policy.MaxAttempts; limit > 0 && attempt > limit {
			m.logger.Warn("giving up on reconnect", zap.Int("attempts", limit))
			return ErrAttemptsExhausted
		}

		m.logger.Debug("scheduling reconnect",
			zap.Duration("delay", m.opts.Policy.Delay),
			zap.Int("attempt", attempt))

		select {
		case <-ctx.Done():
			return nil
		case <-m.opts.Clock.After(m.opts.Policy.Delay):
		}
	}
}

// connectOnce dials, reads until the connection closes and reports whether
// the dial succeeded. Offline is always emitted before returning unless ctx
// was cancelled.
func (m *Manager) connectOnce(ctx context.Context) bool {
	conn, _, err := m.opts.Dialer.DialContext(ctx, m.opts.URL.String(), nil)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		m.logger.Warn("channel dial failed", zap.String("url", m.opts.URL.String()), zap.Error(err))
		m.emit(ctx, StateEvent{State: StateError, Err: err})
		m.emit(ctx, StateEvent{State: StateOffline, Err: err})
		return false
	}

	m.setConn(conn)
	m.logger.Info("channel connected", zap.String("url", m.opts.URL.String()))
	m.emit(ctx, StateEvent{State: StateOnline})

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.setConn(nil)
			_ = conn.Close()
			if ctx.Err() != nil {
				return true
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				m.logger.Info("channel closed", zap.Error(err))
				m.emit(ctx, StateEvent{State: StateOffline})
			} else {
				m.logger.Warn("channel read failed", zap.Error(err))
				m.emit(ctx, StateEvent{State: StateError, Err: err})
				m.emit(ctx, StateEvent{State: StateOffline, Err: err})
			}
			return true
		}

		ev, err := ParseEvent(data)
		if err != nil {
			if m.warnLimit.Allow() {
				m.logger.Warn("dropping inbound event", zap.Error(err), zap.Int("bytes", len(data)))
			}
			continue
		}
		m.emit(ctx, ev)
	}
}

func (m *Manager) setConn(conn *websocket.Conn) {
	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()
	m.online.Store(conn != nil)
}

func (m *Manager) emit(ctx context.Context, ev Event) {
	select {
	case m.events <- ev:
	case <-ctx.Done():
	}
}

// =============================================================================
// OUTBOUND
// =============================================================================

// Send writes v as a JSON text frame. It returns ErrNotConnected while the
// channel is not online; nothing is queued.
func (m *Manager) Send(ctx context.Context, v any) error {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	deadline := time.Now().Add(m.opts.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if err := conn.WriteJSON(v); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// SendTyping sends one typing notification.
func (m *Manager) SendTyping(ctx context.Context, n TypingNotice) error {
	return m.Send(ctx, n)
}
