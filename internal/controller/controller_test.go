// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jeranaias/supportchat/internal/backend"
	"github.com/jeranaias/supportchat/internal/channel"
	"github.com/jeranaias/supportchat/internal/model"
	"github.com/jeranaias/supportchat/internal/review"
	"github.com/jeranaias/supportchat/internal/session"
	"github.com/jeranaias/supportchat/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

var fixedNow = time.UnixMilli(1700000000000)

type harness struct {
	ctrl    *Controller
	sess    *session.Session
	surface *fakeSurface
	backend *fakeBackend
	channel *fakeChannel
}

func start(t *testing.T, b *fakeBackend) *harness {
	t.Helper()
	if b.send == nil {
		b.send = func(context.Context, backend.SendRequest) (*model.Message, error) {
			return nil, errors.New("unexpected send")
		}
	}
	if b.resume == nil {
		b.resume = func(context.Context, string, string) (*model.Message, error) {
			return nil, errors.New("unexpected resume")
		}
	}

	h := &harness{
		sess:    session.New("Tester"),
		surface: &fakeSurface{},
		backend: b,
		channel: newFakeChannel(),
	}
	ctrl, err := New(Options{
		Session: h.sess,
		Backend: b,
		Channel: h.channel,
		Store:   store.New(nil),
		Surface: h.surface,
		Now:     func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	h.ctrl = ctrl

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ctrl.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return h
}

func reply(id string, status model.Status, content string) *model.Message {
	return &model.Message{ID: id, Role: model.RoleAssistant, Content: content, Status: status, Timestamp: fixedNow}
}

func (h *harness) messages() []model.Message {
	return h.ctrl.Store().Messages()
}

func (h *harness) waitEntries(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.ctrl.Store().Len() == n && h.surface.appendedCount() == n },
		waitFor, tick, "expected %d transcript entries", n)
}

// =============================================================================
// CONSTRUCTION
// =============================================================================

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Options{Backend: &fakeBackend{}, Surface: &fakeSurface{}})
	assert.Error(t, err)
	_, err = New(Options{Session: session.New("x"), Surface: &fakeSurface{}})
	assert.Error(t, err)
	_, err = New(Options{Session: session.New("x"), Backend: &fakeBackend{}})
	assert.Error(t, err)
}

// =============================================================================
// SUBMIT
// =============================================================================

func TestSubmit_BlankIsIgnored(t *testing.T) {
	b := &fakeBackend{
		send: func(_ context.Context, req backend.SendRequest) (*model.Message, error) {
			return reply("m1", model.StatusCompleted, "ok"), nil
		},
	}
	h := start(t, b)

	h.ctrl.Submit("")
	h.ctrl.Submit("   \n\t")
	h.ctrl.Submit("real")
	h.waitEntries(t, 2)

	calls := b.sendCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "real", calls[0].Message)
	assert.Equal(t, "real", h.messages()[0].Content)
}

func TestSubmit_RequestCarriesSessionIdentity(t *testing.T) {
	b := &fakeBackend{
		send: func(_ context.Context, req backend.SendRequest) (*model.Message, error) {
			return reply("m1", model.StatusCompleted, "hi"), nil
		},
	}
	h := start(t, b)

	// Decomposed e + combining acute is normalised to the composed form.
	h.ctrl.Submit("  cafe\u0301  ")
	h.waitEntries(t, 2)

	want := backend.SendRequest{Message: "caf\u00e9", UserName: "Tester", SessionID: h.sess.ID()}
	if diff := cmp.Diff([]backend.SendRequest{want}, b.sendCalls()); diff != "" {
		t.Errorf("send requests mismatch (-want +got):\n%s", diff)
	}

	msgs := h.messages()
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, model.StatusSent, msgs[0].Status)
	assert.Equal(t, model.StatusCompleted, msgs[1].Status)

	assert.Equal(t, []bool{true, false}, h.surface.composingHistory())
	enabled, ok := h.surface.lastEnabled()
	assert.True(t, ok && enabled)
}

func TestSubmit_FailureAppendsOneApologyAndReenablesInput(t *testing.T) {
	b := &fakeBackend{
		send: func(context.Context, backend.SendRequest) (*model.Message, error) {
			return nil, &backend.ClientError{Type: backend.ErrTypeStatus, StatusCode: 500, Message: "boom"}
		},
	}
	h := start(t, b)

	h.ctrl.Submit("hello")
	h.waitEntries(t, 2)

	msgs := h.messages()
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, model.RoleAssistant, msgs[1].Role)
	assert.Equal(t, model.StatusError, msgs[1].Status)
	assert.Equal(t, SendApology, msgs[1].Content)

	require.Eventually(t, func() bool {
		enabled, ok := h.surface.lastEnabled()
		return ok && enabled && !h.ctrl.Snapshot().Busy
	}, waitFor, tick)

	h.surface.mu.Lock()
	assert.Contains(t, h.surface.enabled, false)
	assert.Equal(t, 1, h.surface.cleared)
	h.surface.mu.Unlock()
}

func TestSubmit_PanicIsRecoveredAsFailure(t *testing.T) {
	b := &fakeBackend{
		send: func(context.Context, backend.SendRequest) (*model.Message, error) {
			panic("transport exploded")
		},
	}
	h := start(t, b)

	h.ctrl.Submit("hello")
	h.waitEntries(t, 2)
	assert.Equal(t, SendApology, h.messages()[1].Content)

	require.Eventually(t, func() bool {
		enabled, ok := h.surface.lastEnabled()
		return ok && enabled
	}, waitFor, tick)
}

func TestSubmit_IgnoredWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	b := &fakeBackend{
		send: func(ctx context.Context, _ backend.SendRequest) (*model.Message, error) {
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return reply("m1", model.StatusCompleted, "ok"), nil
		},
	}
	h := start(t, b)

	h.ctrl.Submit("first")
	require.Eventually(t, func() bool { return h.ctrl.Snapshot().Busy }, waitFor, tick)
	h.ctrl.Submit("second")
	require.Eventually(t, func() bool { return h.surface.noticeCount() == 1 }, waitFor, tick)

	close(release)
	h.waitEntries(t, 2)
	assert.Len(t, b.sendCalls(), 1)
	assert.Equal(t, "first", h.messages()[0].Content)
}

// =============================================================================
// HUMAN REVIEW
// =============================================================================

func TestReview_EndToEnd(t *testing.T) {
	replies := []*model.Message{
		reply("m1", model.StatusWaitingHuman, "Refund approved?"),
		reply("m2", model.StatusWaitingHuman, "Second one"),
	}
	b := &fakeBackend{}
	b.send = func(context.Context, backend.SendRequest) (*model.Message, error) {
		n := len(b.sendCalls())
		return replies[n-1], nil
	}
	b.resume = func(context.Context, string, string) (*model.Message, error) {
		return reply("m3", model.StatusCompleted, "Done."), nil
	}
	h := start(t, b)

	h.ctrl.Submit("hello")
	h.waitEntries(t, 2)
	require.Eventually(t, func() bool { return len(h.surface.shownPrompts()) == 1 }, waitFor, tick)
	assert.Equal(t, "m1", h.surface.shownPrompts()[0].MessageID)

	// A second paused reply does not displace the first.
	require.Eventually(t, func() bool { return !h.ctrl.Snapshot().Busy }, waitFor, tick)
	h.ctrl.Submit("again")
	h.waitEntries(t, 4)
	require.Eventually(t, func() bool { return !h.ctrl.Snapshot().Busy }, waitFor, tick)
	snap := h.ctrl.Snapshot()
	assert.True(t, snap.ReviewPending)
	assert.Equal(t, "m1", snap.PendingReviewID)
	assert.Len(t, h.surface.shownPrompts(), 1)

	h.ctrl.Decide(review.Approve)
	h.waitEntries(t, 5)

	assert.Equal(t, []resumeCall{{SessionID: h.sess.ID(), Feedback: "approve"}}, b.resumeCalls())
	assert.Equal(t, 1, h.surface.hiddenCount())

	got := make([]model.Status, 0, 5)
	for _, m := range h.messages() {
		got = append(got, m.Status)
	}
	want := []model.Status{
		model.StatusSent,
		model.StatusCompleted, // m1, resolved by the review
		model.StatusSent,
		model.StatusWaitingHuman, // m2, untouched
		model.StatusCompleted, // m3
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("statuses mismatch (-want +got):\n%s", diff)
	}

	require.Eventually(t, func() bool {
		h.surface.mu.Lock()
		defer h.surface.mu.Unlock()
		return len(h.surface.updated) == 1 && h.surface.updated[0].Message.ID == "m1"
	}, waitFor, tick)
	assert.False(t, h.ctrl.Snapshot().ReviewPending)
}

func TestReview_DecideWithoutPendingIsIgnored(t *testing.T) {
	b := &fakeBackend{}
	h := start(t, b)

	h.ctrl.Decide(review.Approve)
	h.ctrl.Decide("")

	// Run processes inputs in order, so a later Edit acts as a barrier.
	h.channel.online.Store(true)
	h.ctrl.Edit("x")
	require.Eventually(t, func() bool { return len(h.channel.typingNotices()) == 1 }, waitFor, tick)

	assert.Empty(t, b.resumeCalls())
	assert.Zero(t, h.surface.hiddenCount())
}

func TestReview_ResumeFailure(t *testing.T) {
	b := &fakeBackend{
		send: func(context.Context, backend.SendRequest) (*model.Message, error) {
			return reply("m1", model.StatusWaitingHuman, "?"), nil
		},
		resume: func(context.Context, string, string) (*model.Message, error) {
			return nil, errors.New("down")
		},
	}
	h := start(t, b)

	h.ctrl.Submit("hello")
	h.waitEntries(t, 2)
	require.Eventually(t, func() bool { return h.ctrl.Snapshot().ReviewPending }, waitFor, tick)

	h.ctrl.Decide(review.Reject)
	h.waitEntries(t, 3)

	msgs := h.messages()
	assert.Equal(t, ResumeApology, msgs[2].Content)
	assert.Equal(t, model.StatusError, msgs[2].Status)
	assert.Equal(t, model.StatusWaitingHuman, msgs[1].Status)
	assert.False(t, h.ctrl.Snapshot().ReviewPending, "pending id is cleared regardless of outcome")
}

func TestReview_PushBeforeReplyAdoptsMessageID(t *testing.T) {
	release := make(chan struct{})
	b := &fakeBackend{
		send: func(ctx context.Context, _ backend.SendRequest) (*model.Message, error) {
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return reply("m1", model.StatusWaitingHuman, "draft"), nil
		},
		resume: func(context.Context, string, string) (*model.Message, error) {
			return reply("m2", model.StatusCompleted, "sent"), nil
		},
	}
	h := start(t, b)

	h.ctrl.Submit("hello")
	require.Eventually(t, func() bool { return h.ctrl.Snapshot().Busy }, waitFor, tick)

	h.channel.events <- channel.ReviewEvent{SessionID: h.sess.ID(), Content: "draft"}
	require.Eventually(t, func() bool { return len(h.surface.shownPrompts()) == 1 }, waitFor, tick)
	assert.Empty(t, h.surface.shownPrompts()[0].MessageID)

	close(release)
	require.Eventually(t, func() bool { return h.ctrl.Snapshot().PendingReviewID == "m1" }, waitFor, tick)

	h.ctrl.Decide(review.Approve)
	h.waitEntries(t, 3)
	assert.Equal(t, model.StatusCompleted, h.messages()[1].Status)
}

func TestReview_LiteralScenario(t *testing.T) {
	m2 := reply("m2", model.StatusWaitingHuman, "Let me check the policy.")
	m2.Classification = model.ClassificationTag("policy")
	replies := []*model.Message{reply("m1", model.StatusSent, "hi"), m2}

	b := &fakeBackend{}
	b.send = func(context.Context, backend.SendRequest) (*model.Message, error) {
		return replies[len(b.sendCalls())-1], nil
	}
	b.resume = func(context.Context, string, string) (*model.Message, error) {
		return reply("m3", model.StatusCompleted, "Approved."), nil
	}
	h := start(t, b)

	h.ctrl.Submit("hello")
	h.waitEntries(t, 2)
	msgs := h.messages()
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, "hi", msgs[1].Content)
	assert.Equal(t, model.StatusSent, msgs[1].Status)
	assert.False(t, h.ctrl.Snapshot().ReviewPending)

	require.Eventually(t, func() bool { return !h.ctrl.Snapshot().Busy }, waitFor, tick)
	h.ctrl.Submit("can I get a refund")
	h.waitEntries(t, 4)
	require.Eventually(t, func() bool { return h.ctrl.Snapshot().PendingReviewID == "m2" }, waitFor, tick)

	shown := h.surface.shownPrompts()
	require.Len(t, shown, 1)
	assert.Equal(t, "m2", shown[0].MessageID)
	assert.Equal(t, "policy", shown[0].Classification.String())

	h.ctrl.Decide(review.Approve)
	h.waitEntries(t, 5)
	assert.Equal(t, []resumeCall{{SessionID: h.sess.ID(), Feedback: "approve"}}, b.resumeCalls())

	msgs = h.messages()
	assert.Equal(t, model.StatusCompleted, msgs[3].Status)
	assert.Equal(t, "Approved.", msgs[4].Content)
	require.Eventually(t, func() bool { return !h.ctrl.Snapshot().ReviewPending }, waitFor, tick)
}

// gatedBackend returns m1 (waiting_human) from Send and m2 from Resume, each
// only after its gate is closed.
func gatedBackend(sendGate, resumeGate chan struct{}) *fakeBackend {
	wait := func(ctx context.Context, gate chan struct{}) error {
		select {
		case <-gate:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return &fakeBackend{
		send: func(ctx context.Context, _ backend.SendRequest) (*model.Message, error) {
			if err := wait(ctx, sendGate); err != nil {
				return nil, err
			}
			return reply("m1", model.StatusWaitingHuman, "draft"), nil
		},
		resume: func(ctx context.Context, _, _ string) (*model.Message, error) {
			if err := wait(ctx, resumeGate); err != nil {
				return nil, err
			}
			return reply("m2", model.StatusCompleted, "sent"), nil
		},
	}
}

// decideOnPush submits, lets an id-less review push arrive while the send is
// in flight, and approves it.
func decideOnPush(t *testing.T, h *harness) {
	t.Helper()
	h.ctrl.Submit("hello")
	require.Eventually(t, func() bool { return h.ctrl.Snapshot().Busy }, waitFor, tick)

	h.channel.events <- channel.ReviewEvent{SessionID: h.sess.ID(), Content: "draft"}
	require.Eventually(t, func() bool { return len(h.surface.shownPrompts()) == 1 }, waitFor, tick)

	h.ctrl.Decide(review.Approve)
	require.Eventually(t, func() bool { return h.surface.hiddenCount() == 1 }, waitFor, tick)
}

func assertDecidedOnce(t *testing.T, h *harness) {
	t.Helper()
	require.Eventually(t, func() bool {
		h.surface.mu.Lock()
		defer h.surface.mu.Unlock()
		return len(h.surface.updated) == 1 && h.surface.updated[0].Message.ID == "m1"
	}, waitFor, tick)

	msgs := h.messages()
	require.Len(t, msgs, 3)
	e, ok := h.ctrl.Store().Lookup("m1")
	require.True(t, ok)
	assert.Equal(t, model.StatusCompleted, e.Message.Status)

	snap := h.ctrl.Snapshot()
	assert.False(t, snap.ReviewPending)
	assert.Empty(t, snap.PendingReviewID)
	assert.Len(t, h.surface.shownPrompts(), 1, "the late reply does not prompt again")
	assert.Len(t, h.backend.resumeCalls(), 1)

	h.ctrl.Decide(review.Approve)
	h.channel.events <- channel.StateEvent{State: channel.StateOnline}
	require.Eventually(t, func() bool { return h.surface.lastState() == channel.StateOnline }, waitFor, tick)
	assert.Len(t, h.backend.resumeCalls(), 1, "no duplicate resume")
}

func TestReview_DecidedBeforeReplyResumeFirst(t *testing.T) {
	sendGate, resumeGate := make(chan struct{}), make(chan struct{})
	close(resumeGate)
	h := start(t, gatedBackend(sendGate, resumeGate))

	decideOnPush(t, h)
	h.waitEntries(t, 2) // user, m2

	close(sendGate)
	h.waitEntries(t, 3)
	assertDecidedOnce(t, h)
}

func TestReview_DecidedBeforeReplyReplyFirst(t *testing.T) {
	sendGate, resumeGate := make(chan struct{}), make(chan struct{})
	h := start(t, gatedBackend(sendGate, resumeGate))

	decideOnPush(t, h)
	close(sendGate)
	h.waitEntries(t, 2) // user, m1
	assert.Len(t, h.surface.shownPrompts(), 1)

	close(resumeGate)
	h.waitEntries(t, 3)
	assertDecidedOnce(t, h)
}

func TestReview_FailedEarlyDecisionPromptsAgain(t *testing.T) {
	sendGate := make(chan struct{})
	b := gatedBackend(sendGate, nil)
	b.resume = func(context.Context, string, string) (*model.Message, error) {
		return nil, errors.New("backend down")
	}
	h := start(t, b)

	decideOnPush(t, h)
	h.waitEntries(t, 2) // user, apology

	close(sendGate)
	h.waitEntries(t, 3)
	require.Eventually(t, func() bool { return h.ctrl.Snapshot().PendingReviewID == "m1" }, waitFor, tick)
	assert.Len(t, h.surface.shownPrompts(), 2)
}

func TestReview_PushWithoutIDTargetsLastWaiting(t *testing.T) {
	b := &fakeBackend{
		send: func(context.Context, backend.SendRequest) (*model.Message, error) {
			return reply("m1", model.StatusWaitingHuman, "draft"), nil
		},
	}
	h := start(t, b)

	h.ctrl.Submit("hello")
	require.Eventually(t, func() bool { return h.ctrl.Snapshot().PendingReviewID == "m1" }, waitFor, tick)

	h.channel.events <- channel.ReviewEvent{Content: "draft"}
	h.channel.events <- channel.ReviewEvent{SessionID: "someone_else", MessageID: "x"}

	h.channel.events <- channel.StateEvent{State: channel.StateOnline}
	require.Eventually(t, func() bool { return h.surface.lastState() == channel.StateOnline }, waitFor, tick)

	assert.Equal(t, "m1", h.ctrl.Snapshot().PendingReviewID)
	assert.Len(t, h.surface.shownPrompts(), 1)
}

// =============================================================================
// CHANNEL EVENTS
// =============================================================================

func TestChannelEvents(t *testing.T) {
	h := start(t, &fakeBackend{})

	for _, st := range []channel.State{channel.StateConnecting, channel.StateOnline, channel.StateError, channel.StateOffline} {
		h.channel.events <- channel.StateEvent{State: st}
		want := st
		require.Eventually(t, func() bool {
			return h.ctrl.Snapshot().State == want && h.surface.lastState() == want
		}, waitFor, tick)
	}

	h.channel.events <- channel.StatusEvent{Content: "connected"}
	require.Eventually(t, func() bool { return h.ctrl.Snapshot().State == channel.StateOnline }, waitFor, tick)

	h.channel.events <- channel.TypingEvent{SessionID: h.sess.ID(), Composing: true}
	h.channel.events <- channel.TypingEvent{SessionID: "agent", Composing: true}
	h.channel.events <- channel.TypingEvent{SessionID: "agent", Composing: false}
	require.Eventually(t, func() bool { return len(h.surface.composingHistory()) == 2 }, waitFor, tick)
	assert.Equal(t, []bool{true, false}, h.surface.composingHistory())
}

func TestTypingNotifications(t *testing.T) {
	h := start(t, &fakeBackend{})

	// Offline edits change state but send nothing.
	h.ctrl.Edit("a")
	require.Eventually(t, func() bool { return h.ctrl.Snapshot().Composing }, waitFor, tick)
	assert.Empty(t, h.channel.typingNotices())

	h.ctrl.Blur()
	require.Eventually(t, func() bool { return !h.ctrl.Snapshot().Composing }, waitFor, tick)

	h.channel.online.Store(true)
	h.ctrl.Edit("h")
	h.ctrl.Edit("hi")
	h.ctrl.Edit("")
	require.Eventually(t, func() bool { return len(h.channel.typingNotices()) == 2 }, waitFor, tick)

	notices := h.channel.typingNotices()
	assert.True(t, notices[0].Composing)
	assert.False(t, notices[1].Composing)
	assert.Equal(t, h.sess.ID(), notices[0].SessionID)
	assert.Equal(t, "Tester", notices[0].UserName)
	assert.Equal(t, fixedNow, notices[0].Timestamp)
}

func TestRun_Twice(t *testing.T) {
	h := start(t, &fakeBackend{})
	require.Eventually(t, func() bool { return h.surface.lastState() == channel.StateConnecting }, waitFor, tick)
	assert.Error(t, h.ctrl.Run(context.Background()))
}
