// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// =============================================================================
// TEST HELPERS
// =============================================================================

// manualClock arms timers that only fire when the test says so.
type manualClock struct {
	armed chan time.Duration
	fire  chan time.Time
}

func newManualClock() *manualClock {
	return &manualClock{
		armed: make(chan time.Duration, 8),
		fire:  make(chan time.Time),
	}
}

func (c *manualClock) After(d time.Duration) <-chan time.Time {
	c.armed <- d
	return c.fire
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func wsURL(t *testing.T, srv *httptest.Server) *url.URL {
	t.Helper()
	u, err := url.Parse("ws" + strings.TrimPrefix(srv.URL, "http") + EndpointPath)
	require.NoError(t, err)
	return u
}

func nextEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "events channel closed")
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func requireState(t *testing.T, events <-chan Event, want State) StateEvent {
	t.Helper()
	ev := nextEvent(t, events)
	se, ok := ev.(StateEvent)
	require.True(t, ok, "expected StateEvent(%s), got %T %+v", want, ev, ev)
	require.Equal(t, want, se.State)
	return se
}

func requireArmed(t *testing.T, clock *manualClock) time.Duration {
	t.Helper()
	select {
	case d := <-clock.armed:
		return d
	case <-time.After(5 * time.Second):
		t.Fatal("reconnect timer was never armed")
		return 0
	}
}

// waitForClose reads until the peer goes away.
func waitForClose(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// =============================================================================
// RECONNECT
// =============================================================================

func TestManager_ReconnectsAfterImmediateClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		waitForClose(conn)
	}))
	defer srv.Close()

	clock := newManualClock()
	m := NewManager(Options{URL: wsURL(t, srv), Clock: clock})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	events := m.Events()
	requireState(t, events, StateConnecting)
	requireState(t, events, StateOnline)
	off := requireState(t, events, StateOffline)
	assert.NoError(t, off.Err, "a normal close is not an error")

	assert.Equal(t, 3*time.Second, requireArmed(t, clock))

	// Nothing happens until the timer fires.
	select {
	case ev := <-events:
		t.Fatalf("unexpected event before reconnect delay: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Empty(t, clock.armed, "exactly one timer per closure")

	clock.fire <- time.Now()
	again := requireState(t, events, StateConnecting)
	assert.Equal(t, 1, again.Attempt)
	requireState(t, events, StateOnline)

	cancel()
	require.NoError(t, <-done)
	for range events {
	}
}

func TestManager_DialFailureEmitsErrorThenOffline(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	u := wsURL(t, srv)
	srv.Close()

	clock := newManualClock()
	m := NewManager(Options{
		URL:    u,
		Clock:  clock,
		Policy: ReconnectPolicy{Delay: time.Second, MaxAttempts: 1},
	})

	done := make(chan error, 1)
	go func() { done <- m.Run(context.Background()) }()

	events := m.Events()
	requireState(t, events, StateConnecting)
	errEv := requireState(t, events, StateError)
	assert.Error(t, errEv.Err)
	requireState(t, events, StateOffline)
	assert.False(t, m.Online())

	assert.Equal(t, time.Second, requireArmed(t, clock))
	clock.fire <- time.Now()

	requireState(t, events, StateConnecting)
	requireState(t, events, StateError)
	requireState(t, events, StateOffline)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrAttemptsExhausted)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after the last attempt")
	}
	_, open := <-events
	assert.False(t, open, "events channel is closed when Run returns")
}

func TestManager_CancelStopsWithoutReconnect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		waitForClose(conn)
	}))
	defer srv.Close()

	clock := newManualClock()
	m := NewManager(Options{URL: wsURL(t, srv), Clock: clock})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	requireState(t, m.Events(), StateConnecting)
	requireState(t, m.Events(), StateOnline)
	assert.True(t, m.Online())

	cancel()
	require.NoError(t, <-done)
	for range m.Events() {
	}
	assert.Empty(t, clock.armed)
	assert.False(t, m.Online())
}

// =============================================================================
// INBOUND / OUTBOUND
// =============================================================================

func TestManager_ForwardsPushEventsAndDropsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"status","content":"connected"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"mystery"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"human_review","content":"check this"}`))
		waitForClose(conn)
	}))
	defer srv.Close()

	m := NewManager(Options{URL: wsURL(t, srv), Clock: newManualClock()})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	events := m.Events()
	requireState(t, events, StateConnecting)
	requireState(t, events, StateOnline)

	status, ok := nextEvent(t, events).(StatusEvent)
	require.True(t, ok)
	assert.True(t, status.Connected())

	review, ok := nextEvent(t, events).(ReviewEvent)
	require.True(t, ok)
	assert.Equal(t, "check this", review.Content)

	cancel()
	require.NoError(t, <-done)
	for range events {
	}
}

func TestManager_SendTyping(t *testing.T) {
	received := make(chan []byte, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_, data, err := conn.ReadMessage()
		if err == nil {
			received <- data
		}
		waitForClose(conn)
	}))
	defer srv.Close()

	m := NewManager(Options{URL: wsURL(t, srv), Clock: newManualClock()})

	err := m.SendTyping(context.Background(), TypingNotice{SessionID: "s"})
	require.ErrorIs(t, err, ErrNotConnected)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	requireState(t, m.Events(), StateConnecting)
	requireState(t, m.Events(), StateOnline)

	require.NoError(t, m.SendTyping(ctx, TypingNotice{
		SessionID: "session_1",
		UserName:  "Guest42",
		Composing: true,
		Timestamp: time.Now(),
	}))

	select {
	case data := <-received:
		var frame map[string]any
		require.NoError(t, json.Unmarshal(data, &frame))
		assert.Equal(t, "typing", frame["type"])
		assert.Equal(t, "session_1", frame["sessionId"])
		assert.Equal(t, "Guest42", frame["userName"])
		assert.Equal(t, "composing", frame["status"])
	case <-time.After(5 * time.Second):
		t.Fatal("server never received the typing frame")
	}

	cancel()
	require.NoError(t, <-done)
	for range m.Events() {
	}
}
