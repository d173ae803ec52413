// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// STATUS TYPE
// =============================================================================

// Status is the lifecycle state of a message. Only assistant messages carry a
// meaningful status; user messages are always sent once appended.
type Status string

const (
	StatusSending      Status = "sending"
	StatusSent         Status = "sent"
	StatusWaitingHuman Status = "waiting_human"
	StatusCompleted    Status = "completed"
	StatusError        Status = "error"
)

// Label returns the user-facing status text.
func (s Status) Label() string {
	switch s {
	case StatusSending:
		return "sending"
	case StatusSent:
		return "sent"
	case StatusWaitingHuman:
		return "awaiting human review"
	case StatusCompleted:
		return "completed"
	case StatusError:
		return "failed"
	default:
		return string(s)
	}
}

// Known reports whether s is one of the statuses defined by the protocol.
func (s Status) Known() bool {
	switch s {
	case StatusSending, StatusSent, StatusWaitingHuman, StatusCompleted, StatusError:
		return true
	}
	return false
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is one transcript entry as exchanged with the backend.
type Message struct {
	// ID is server-assigned. Synthetic error entries have no ID.
	ID        string
	Role      Role
	Content   string
	Status    Status
	Timestamp time.Time

	// Classification is the backend's opaque review tag, present alongside
	// waiting_human replies.
	Classification Classification
}

// NewUserMessage creates the optimistic entry for text the user submitted.
func NewUserMessage(content string, now time.Time) Message {
	return Message{
		Role:      RoleUser,
		Content:   content,
		Status:    StatusSent,
		Timestamp: now,
	}
}

// NewErrorMessage creates a synthetic assistant entry reporting a failure.
func NewErrorMessage(content string, now time.Time) Message {
	return Message{
		Role:      RoleAssistant,
		Content:   content,
		Status:    StatusError,
		Timestamp: now,
	}
}

// NeedsReview reports whether the message is paused for a human decision.
func (m Message) NeedsReview() bool {
	return m.Role == RoleAssistant && m.Status == StatusWaitingHuman
}

// Preview returns a truncated preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m Message) Preview(maxLen int) string {
	runes := []rune(m.Content)
	if len(runes) <= maxLen {
		return m.Content
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// RelativeTime formats the timestamp for display relative to now.
func (m Message) RelativeTime(now time.Time) string {
	diff := now.Sub(m.Timestamp)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return strconv.Itoa(int(diff/time.Minute)) + " min ago"
	default:
		return m.Timestamp.Local().Format("15:04")
	}
}

// =============================================================================
// WIRE FORMAT
// =============================================================================

// wireMessage is the JSON shape used by the chat backend. The role arrives
// under "type"; "role" is accepted as well.
type wireMessage struct {
	ID             string         `json:"id,omitempty"`
	Type           Role           `json:"type,omitempty"`
	Role           Role           `json:"role,omitempty"`
	Content        string         `json:"content"`
	Status         Status         `json:"status,omitempty"`
	Timestamp      int64          `json:"timestamp,omitempty"`
	Classification Classification `json:"classification,omitempty"`
}

// MarshalJSON encodes the message in the backend's wire format.
func (m Message) MarshalJSON() ([]byte, error) {
	w := wireMessage{
		ID:             m.ID,
		Type:           m.Role,
		Content:        m.Content,
		Status:         m.Status,
		Classification: m.Classification,
	}
	if !m.Timestamp.IsZero() {
		w.Timestamp = m.Timestamp.UnixMilli()
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the backend's wire format.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	role := w.Type
	if role == "" {
		role = w.Role
	}
	*m = Message{
		ID:             w.ID,
		Role:           role,
		Content:        w.Content,
		Status:         w.Status,
		Classification: w.Classification,
	}
	if w.Timestamp > 0 {
		m.Timestamp = time.UnixMilli(w.Timestamp)
	}
	return nil
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

// Classification is the raw classification payload attached by the backend.
// The client never interprets it beyond display.
type Classification []byte

// ClassificationDetails is the typed view of the backend's classification
// record, when it has that shape.
type ClassificationDetails struct {
	Intent  string `json:"intent"`
	Urgency string `json:"urgency"`
	Topic   string `json:"topic"`
	Summary string `json:"summary"`
}

// IsZero reports whether no classification is present.
func (c Classification) IsZero() bool {
	trimmed := bytes.TrimSpace(c)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// Details decodes the classification as a structured record.
func (c Classification) Details() (ClassificationDetails, bool) {
	var d ClassificationDetails
	if c.IsZero() {
		return d, false
	}
	if err := json.Unmarshal(c, &d); err != nil {
		return d, false
	}
	return d, d != (ClassificationDetails{})
}

// String renders the classification for a human reviewer.
func (c Classification) String() string {
	if c.IsZero() {
		return ""
	}
	if d, ok := c.Details(); ok {
		var parts []string
		if d.Intent != "" {
			parts = append(parts, "intent: "+d.Intent)
		}
		if d.Urgency != "" {
			parts = append(parts, "urgency: "+d.Urgency)
		}
		if d.Topic != "" {
			parts = append(parts, "topic: "+d.Topic)
		}
		if d.Summary != "" {
			parts = append(parts, "summary: "+d.Summary)
		}
		return strings.Join(parts, ", ")
	}
	var s string
	if err := json.Unmarshal(c, &s); err == nil {
		return s
	}
	return string(c)
}

// MarshalJSON emits the raw payload unchanged.
func (c Classification) MarshalJSON() ([]byte, error) {
	if c.IsZero() {
		return []byte("null"), nil
	}
	if !json.Valid(c) {
		return nil, fmt.Errorf("invalid classification payload")
	}
	return c, nil
}

// UnmarshalJSON keeps a copy of the raw payload.
func (c *Classification) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*c = nil
		return nil
	}
	*c = append((*c)[:0], data...)
	return nil
}

// ClassificationTag wraps a plain string tag as a classification payload.
func ClassificationTag(tag string) Classification {
	data, _ := json.Marshal(tag)
	return Classification(data)
}
