// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/supportchat/internal/backend"
	"github.com/jeranaias/supportchat/internal/channel"
	"github.com/jeranaias/supportchat/internal/model"
	"github.com/jeranaias/supportchat/internal/review"
	"github.com/jeranaias/supportchat/internal/session"
	"github.com/jeranaias/supportchat/internal/store"
	"github.com/jeranaias/supportchat/internal/typing"
)

// Apologies appended to the transcript when a round trip fails.
const (
	SendApology   = "Sorry, something went wrong while sending your message. Please try again later."
	ResumeApology = "Sorry, something went wrong while processing the human review. Please try again later."
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Backend is the HTTP side of the chat API.
type Backend interface {
	Send(ctx context.Context, req backend.SendRequest) (*model.Message, error)
	Resume(ctx context.Context, sessionID, feedback string) (*model.Message, error)
}

// Channel is the duplex push connection.
type Channel interface {
	Events() <-chan channel.Event
	Online() bool
	SendTyping(ctx context.Context, n channel.TypingNotice) error
}

// Surface is the presentation layer. Methods are called from the Run
// goroutine and must not block for long.
type Surface interface {
	SetInputEnabled(enabled bool)
	ClearInput()
	AppendEntry(e store.Entry)
	UpdateEntryStatus(e store.Entry)
	SetConnection(state channel.State)
	SetRemoteComposing(composing bool)
	ShowReview(p review.Prompt)
	HideReview()
	Notice(text string)
}

// Options configures a Controller.
type Options struct {
	Session *session.Session
	Backend Backend
	// Channel may be nil when running without push events.
	Channel Channel
	// Store defaults to an unrendered store.
	Store   *store.Store
	Surface Surface
	Logger  *zap.Logger
	Now     func() time.Time
}

// Snapshot is a consistent view of the session.
type Snapshot struct {
	SessionID       string
	DisplayName     string
	State           channel.State
	PendingReviewID string
	ReviewPending   bool
	Composing       bool
	Busy            bool
	Entries         int
}

// =============================================================================
// CONTROLLER
// =============================================================================

type inputKind int

const (
	inputSubmit inputKind = iota
	inputEdit
	inputBlur
	inputDecide
)

type input struct {
	kind inputKind
	text string
}

type completionKind int

const (
	sendDone completionKind = iota
	resumeDone
)

type completion struct {
	kind   completionKind
	prompt review.Prompt
	reply  *model.Message
	err    error
}

// Controller mediates between the user, the backend and the push channel.
type Controller struct {
	sess    *session.Session
	backend Backend
	channel Channel
	store   *store.Store
	surface Surface
	logger  *zap.Logger
	now     func() time.Time

	inputs      chan input
	completions chan completion
	done        chan struct{}
	runOnce     sync.Once

	// Owned by the Run goroutine.
	coordinator *review.Coordinator
	typing      *typing.Signal
	busy        bool
	decided     map[string]bool

	// An id-less prompt decided while a send was in flight belongs to the
	// paused reply that send returns. early is set until that reply arrives;
	// earlyDone records a resume that finished first; boundID is the reply
	// the decision was bound to while its resume is still running.
	early     bool
	earlyDone bool
	boundID   string

	snapMu sync.RWMutex
	snap   Snapshot
}

// New creates a Controller. Session, Backend and Surface are required.
func New(opts Options) (*Controller, error) {
	if opts.Session == nil {
		return nil, errors.New("controller: session is required")
	}
	if opts.Backend == nil {
		return nil, errors.New("controller: backend is required")
	}
	if opts.Surface == nil {
		return nil, errors.New("controller: surface is required")
	}
	if opts.Store == nil {
		opts.Store = store.New(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("controller").With(zap.String("session", opts.Session.ID()))

	c := &Controller{
		sess:        opts.Session,
		backend:     opts.Backend,
		channel:     opts.Channel,
		store:       opts.Store,
		surface:     opts.Surface,
		logger:      logger,
		now:         opts.Now,
		inputs:      make(chan input, 64),
		completions: make(chan completion, 4),
		done:        make(chan struct{}),
		coordinator: review.NewCoordinator(),
		decided:     make(map[string]bool),
	}
	c.typing = typing.New(&typingNotifier{c: c}, logger)
	c.publish()
	return c, nil
}

// Store returns the transcript.
func (c *Controller) Store() *store.Store {
	return c.store
}

// Snapshot returns the current session view. Safe for concurrent use.
func (c *Controller) Snapshot() Snapshot {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.snap
}

// =============================================================================
// USER INTERACTION
// =============================================================================

// Submit sends text as a new user message. Blank text is ignored.
func (c *Controller) Submit(text string) { c.post(input{kind: inputSubmit, text: text}) }

// Edit reports the current contents of the input field.
func (c *Controller) Edit(text string) { c.post(input{kind: inputEdit, text: text}) }

// Blur reports the input field losing focus.
func (c *Controller) Blur() { c.post(input{kind: inputBlur}) }

// Decide answers the pending review with feedback, usually review.Approve
// or review.Reject.
func (c *Controller) Decide(feedback string) { c.post(input{kind: inputDecide, text: feedback}) }

func (c *Controller) post(in input) {
	select {
	case c.inputs <- in:
	case <-c.done:
	}
}

// =============================================================================
// RUN LOOP
// =============================================================================

// Run processes events until ctx is cancelled. It must be called once.
func (c *Controller) Run(ctx context.Context) error {
	started := false
	c.runOnce.Do(func() { started = true })
	if !started {
		return errors.New("controller: Run called twice")
	}
	defer close(c.done)

	var events <-chan channel.Event
	if c.channel != nil {
		events = c.channel.Events()
	}

	c.surface.SetConnection(c.sess.State())
	c.surface.SetInputEnabled(true)

	for {
		select {
		case <-ctx.Done():
			return nil
		case in := <-c.inputs:
			c.handleInput(ctx, in)
		case done := <-c.completions:
			c.handleCompletion(done)
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			c.handleEvent(ev)
		}
		c.publish()
	}
}

func (c *Controller) handleInput(ctx context.Context, in input) {
	switch in.kind {
	case inputSubmit:
		c.submit(ctx, in.text)
	case inputEdit:
		c.typing.Edit(ctx, in.text)
	case inputBlur:
		c.typing.Blur(ctx)
	case inputDecide:
		c.decide(ctx, in.text)
	}
}

func (c *Controller) submit(ctx context.Context, text string) {
	text = norm.NFC.String(strings.TrimSpace(text))
	if text == "" {
		return
	}
	if c.busy {
		c.logger.Debug("submission ignored while a send is in flight")
		c.surface.Notice("Still waiting for the previous reply.")
		return
	}

	c.busy = true
	c.surface.SetInputEnabled(false)
	c.surface.ClearInput()
	c.surface.AppendEntry(c.store.Append(model.NewUserMessage(text, c.now())))
	c.surface.SetRemoteComposing(true)

	req := backend.SendRequest{
		Message:   text,
		UserName:  c.sess.DisplayName(),
		SessionID: c.sess.ID(),
	}
	c.logger.Info("sending message", zap.Int("length", len(text)))

	c.roundTrip(ctx, completion{kind: sendDone}, func() (*model.Message, error) {
		return c.backend.Send(ctx, req)
	})
}

func (c *Controller) decide(ctx context.Context, feedback string) {
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		c.logger.Debug("empty review feedback ignored")
		return
	}
	prompt, err := c.coordinator.Decide()
	if err != nil {
		c.logger.Debug("decision ignored", zap.Error(err))
		return
	}
	c.surface.HideReview()
	if prompt.MessageID != "" {
		c.decided[prompt.MessageID] = true
	} else if c.busy {
		c.early, c.earlyDone = true, false
	}

	c.logger.Info("resuming review",
		zap.String("message_id", prompt.MessageID),
		zap.String("feedback", feedback))

	sessionID := c.sess.ID()
	c.roundTrip(ctx, completion{kind: resumeDone, prompt: prompt}, func() (*model.Message, error) {
		return c.backend.Resume(ctx, sessionID, feedback)
	})
}

// roundTrip runs call on its own goroutine and reports the result to the
// Run loop. A panic in call is reported as an error.
func (c *Controller) roundTrip(ctx context.Context, result completion, call func() (*model.Message, error)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				result.reply = nil
				result.err = fmt.Errorf("round trip panicked: %v", r)
			}
			select {
			case c.completions <- result:
			case <-ctx.Done():
			}
		}()
		result.reply, result.err = call()
		if result.err == nil && result.reply == nil {
			result.err = errors.New("empty reply")
		}
	}()
}

func (c *Controller) handleCompletion(done completion) {
	switch done.kind {
	case sendDone:
		c.sendCompleted(done)
	case resumeDone:
		c.resumeCompleted(done)
	}
}

func (c *Controller) sendCompleted(done completion) {
	defer func() {
		c.busy = false
		c.surface.SetInputEnabled(true)
	}()
	c.surface.SetRemoteComposing(false)

	if done.err != nil {
		c.logger.Warn("send failed", zap.Error(done.err))
		c.early, c.earlyDone = false, false
		c.surface.AppendEntry(c.store.Append(model.NewErrorMessage(SendApology, c.now())))
		return
	}

	reply := *done.reply
	c.surface.AppendEntry(c.store.Append(reply))
	if !reply.NeedsReview() {
		return
	}
	if c.early && reply.ID != "" {
		c.bindEarlyDecision(reply.ID)
		return
	}
	c.trigger(review.PromptFor(reply))
}

// bindEarlyDecision attaches a decision made on the id-less push prompt to
// the paused reply that arrived after it.
func (c *Controller) bindEarlyDecision(id string) {
	c.early = false
	c.decided[id] = true
	c.logger.Info("review already decided", zap.String("message_id", id))
	if c.earlyDone {
		c.earlyDone = false
		c.markCompleted(id)
		return
	}
	c.boundID = id
}

func (c *Controller) markCompleted(id string) {
	entry, err := c.store.UpdateStatus(id, model.StatusCompleted)
	if err != nil {
		c.logger.Debug("reviewed message not in transcript", zap.String("message_id", id))
		return
	}
	c.surface.UpdateEntryStatus(entry)
}

func (c *Controller) resumeCompleted(done completion) {
	id := done.prompt.MessageID
	if id == "" {
		switch {
		case c.boundID != "":
			id, c.boundID = c.boundID, ""
		case c.early && done.err == nil:
			c.earlyDone = true
		case c.early:
			// The decision failed, so the late reply prompts again.
			c.early = false
		}
	}

	if done.err != nil {
		c.logger.Warn("resume failed", zap.String("message_id", id), zap.Error(done.err))
		c.surface.AppendEntry(c.store.Append(model.NewErrorMessage(ResumeApology, c.now())))
		return
	}

	if id != "" {
		c.markCompleted(id)
	}

	reply := *done.reply
	c.surface.AppendEntry(c.store.Append(reply))
	if reply.NeedsReview() {
		c.trigger(review.PromptFor(reply))
	}
}

func (c *Controller) trigger(p review.Prompt) {
	if c.coordinator.Trigger(p) {
		c.logger.Info("review requested", zap.String("message_id", p.MessageID))
		c.surface.ShowReview(p)
		return
	}
	pending, _ := c.coordinator.Pending()
	c.logger.Info("review already pending",
		zap.String("pending_id", pending.MessageID),
		zap.String("ignored_id", p.MessageID))
}

// =============================================================================
// CHANNEL EVENTS
// =============================================================================

func (c *Controller) handleEvent(ev channel.Event) {
	switch ev := ev.(type) {
	case channel.StateEvent:
		c.sess.Observe(ev)
		c.surface.SetConnection(ev.State)
		if ev.State == channel.StateError && ev.Err != nil {
			c.logger.Debug("channel error", zap.Error(ev.Err))
		}

	case channel.StatusEvent:
		if ev.Connected() {
			c.sess.Observe(channel.StateEvent{State: channel.StateOnline})
			c.surface.SetConnection(channel.StateOnline)
		}

	case channel.ReviewEvent:
		if ev.SessionID != "" && ev.SessionID != c.sess.ID() {
			return
		}
		p := review.Prompt{
			MessageID:      ev.MessageID,
			Content:        ev.Content,
			Classification: ev.Classification,
		}
		if p.MessageID == "" {
			if last, ok := c.store.LastWaiting(); ok && !c.decided[last.Message.ID] {
				p.MessageID = last.Message.ID
			}
		}
		c.trigger(p)

	case channel.TypingEvent:
		if ev.SessionID == c.sess.ID() {
			return
		}
		c.surface.SetRemoteComposing(ev.Composing)
	}
}

// =============================================================================
// SNAPSHOT
// =============================================================================

func (c *Controller) publish() {
	pending, ok := c.coordinator.Pending()
	snap := Snapshot{
		SessionID:       c.sess.ID(),
		DisplayName:     c.sess.DisplayName(),
		State:           c.sess.State(),
		PendingReviewID: pending.MessageID,
		ReviewPending:   ok,
		Composing:       c.typing.Composing(),
		Busy:            c.busy,
		Entries:         c.store.Len(),
	}
	c.snapMu.Lock()
	c.snap = snap
	c.snapMu.Unlock()
}

// =============================================================================
// TYPING
// =============================================================================

// typingNotifier adapts the channel to typing.Notifier.
type typingNotifier struct {
	c *Controller
}

func (n *typingNotifier) Online() bool {
	return n.c.channel != nil && n.c.channel.Online()
}

func (n *typingNotifier) NotifyTyping(ctx context.Context, composing bool) error {
	return n.c.channel.SendTyping(ctx, channel.TypingNotice{
		SessionID: n.c.sess.ID(),
		UserName:  n.c.sess.DisplayName(),
		Composing: composing,
		Timestamp: n.c.now(),
	})
}
