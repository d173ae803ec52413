// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package channel

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jeranaias/supportchat/internal/model"
)

// =============================================================================
// CONNECTION STATE
// =============================================================================

// State is the connectivity status of the duplex channel.
type State int

const (
	StateConnecting State = iota
	StateOnline
	StateOffline
	StateError
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOnline:
		return "online"
	case StateOffline:
		return "offline"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// =============================================================================
// EVENTS
// =============================================================================

// Event is anything the Manager delivers on its events channel.
type Event interface {
	isEvent()
}

// StateEvent reports a lifecycle transition.
type StateEvent struct {
	State State
	// Err is set for StateError and for failures that led to StateOffline.
	Err error
	// Attempt counts consecutive reconnects since the last successful open.
	Attempt int
}

// StatusEvent is a connectivity acknowledgment pushed by the server.
type StatusEvent struct {
	Content string
}

// Connected reports whether the server acknowledged the connection.
func (e StatusEvent) Connected() bool {
	return e.Content == "connected"
}

// ReviewEvent is a push notification that a reply needs human review.
type ReviewEvent struct {
	// MessageID is set when the server names the paused message.
	MessageID      string
	SessionID      string
	UserName       string
	Content        string
	Classification model.Classification
	Timestamp      time.Time
}

// TypingEvent reports remote composition activity.
type TypingEvent struct {
	SessionID string
	UserName  string
	Composing bool
	Timestamp time.Time
}

func (StateEvent) isEvent()  {}
func (StatusEvent) isEvent() {}
func (ReviewEvent) isEvent() {}
func (TypingEvent) isEvent() {}

// =============================================================================
// WIRE FORMAT
// =============================================================================

// Wire event types.
const (
	TypeStatus      = "status"
	TypeHumanReview = "human_review"
	TypeTyping      = "typing"
)

// Typing status values carried in the outbound "status" field.
const (
	TypingComposing = "composing"
	TypingIdle      = "idle"
)

var (
	// ErrMalformedEvent is returned for payloads that are not a JSON event.
	ErrMalformedEvent = errors.New("malformed event payload")
	// ErrUnknownEvent is returned for well-formed events of an unknown type.
	ErrUnknownEvent = errors.New("unknown event type")
)

// envelope is the union of the fields the backend sends on the channel.
type envelope struct {
	Type           string               `json:"type"`
	ID             string               `json:"id,omitempty"`
	SessionID      string               `json:"sessionId,omitempty"`
	UserName       string               `json:"userName,omitempty"`
	Content        string               `json:"content,omitempty"`
	Status         string               `json:"status,omitempty"`
	Classification model.Classification `json:"classification,omitempty"`
	Timestamp      int64                `json:"timestamp,omitempty"`
}

// ParseEvent decodes one inbound frame.
func ParseEvent(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	var ts time.Time
	if env.Timestamp > 0 {
		ts = time.UnixMilli(env.Timestamp)
	}

	switch env.Type {
	case TypeStatus:
		return StatusEvent{Content: env.Content}, nil
	case TypeHumanReview:
		return ReviewEvent{
			MessageID:      env.ID,
			SessionID:      env.SessionID,
			UserName:       env.UserName,
			Content:        env.Content,
			Classification: env.Classification,
			Timestamp:      ts,
		}, nil
	case TypeTyping:
		return TypingEvent{
			SessionID: env.SessionID,
			UserName:  env.UserName,
			Composing: env.Status != TypingIdle,
			Timestamp: ts,
		}, nil
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformedEvent)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Type)
	}
}

// TypingNotice is the outbound typing notification.
type TypingNotice struct {
	SessionID string
	UserName  string
	Composing bool
	Timestamp time.Time
}

// MarshalJSON encodes the notice in the backend's wire format.
func (n TypingNotice) MarshalJSON() ([]byte, error) {
	status := TypingIdle
	if n.Composing {
		status = TypingComposing
	}
	return json.Marshal(envelope{
		Type:      TypeTyping,
		SessionID: n.SessionID,
		UserName:  n.UserName,
		Status:    status,
		Timestamp: n.Timestamp.UnixMilli(),
	})
}
