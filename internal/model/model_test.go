// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// WIRE FORMAT TESTS
// =============================================================================

func TestMessage_UnmarshalBackendShape(t *testing.T) {
	data := `{"id":"m2","type":"assistant","content":"draft","status":"waiting_human",` +
		`"timestamp":1718000000000,"classification":{"intent":"BILLING","urgency":"HIGH","topic":"refund","summary":"wants money back"}}`

	var msg Message
	if err := json.Unmarshal([]byte(data), &msg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if msg.ID != "m2" {
		t.Errorf("ID = %q, want m2", msg.ID)
	}
	if msg.Role != RoleAssistant {
		t.Errorf("Role = %q, want assistant", msg.Role)
	}
	if !msg.NeedsReview() {
		t.Error("NeedsReview() = false, want true")
	}
	if got := msg.Timestamp.UnixMilli(); got != 1718000000000 {
		t.Errorf("Timestamp = %d, want 1718000000000", got)
	}

	d, ok := msg.Classification.Details()
	if !ok {
		t.Fatal("Details() ok = false, want true")
	}
	if d.Intent != "BILLING" || d.Topic != "refund" {
		t.Errorf("Details() = %+v", d)
	}
	if s := msg.Classification.String(); !strings.Contains(s, "intent: BILLING") {
		t.Errorf("String() = %q, want intent", s)
	}
}

func TestMessage_RoleFieldFallback(t *testing.T) {
	var msg Message
	if err := json.Unmarshal([]byte(`{"role":"assistant","content":"hi","status":"sent"}`), &msg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if msg.Role != RoleAssistant {
		t.Errorf("Role = %q, want assistant", msg.Role)
	}
	if !msg.Classification.IsZero() {
		t.Error("Classification should be empty")
	}
	if !msg.Timestamp.IsZero() {
		t.Error("Timestamp should be zero when absent")
	}
}

func TestMessage_MarshalUsesTypeField(t *testing.T) {
	msg := Message{
		ID:             "m1",
		Role:           RoleAssistant,
		Content:        "hi",
		Status:         StatusCompleted,
		Timestamp:      time.UnixMilli(42),
		Classification: ClassificationTag("policy"),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	got := string(data)
	for _, want := range []string{`"type":"assistant"`, `"timestamp":42`, `"classification":"policy"`} {
		if !strings.Contains(got, want) {
			t.Errorf("Marshal() = %s, want to contain %s", got, want)
		}
	}
}

// =============================================================================
// CLASSIFICATION TESTS
// =============================================================================

func TestClassification_String(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", ""},
		{"null", "null", ""},
		{"tag", `"policy"`, "policy"},
		{"record", `{"intent":"BILLING"}`, "intent: BILLING"},
		{"other json", `[1,2]`, "[1,2]"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classification(tc.raw).String(); got != tc.want {
				t.Errorf("String() = %q, want %q", got, tc.want)
			}
		})
	}
}

// =============================================================================
// DISPLAY TESTS
// =============================================================================

func TestMessage_RelativeTime(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.Local)

	tests := []struct {
		name string
		ts   time.Time
		want string
	}{
		{"seconds", now.Add(-10 * time.Second), "just now"},
		{"minutes", now.Add(-5 * time.Minute), "5 min ago"},
		{"hours", now.Add(-2 * time.Hour), "10:00"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg := Message{Timestamp: tc.ts}
			if got := msg.RelativeTime(now); got != tc.want {
				t.Errorf("RelativeTime() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestMessage_Preview(t *testing.T) {
	msg := Message{Content: "héllo wörld"}
	if got := msg.Preview(8); got != "héllo..." {
		t.Errorf("Preview(8) = %q", got)
	}
	if got := msg.Preview(50); got != msg.Content {
		t.Errorf("Preview(50) = %q", got)
	}
}

func TestStatus_Label(t *testing.T) {
	if got := StatusWaitingHuman.Label(); got != "awaiting human review" {
		t.Errorf("Label() = %q", got)
	}
	if got := Status("custom").Label(); got != "custom" {
		t.Errorf("Label() = %q, want passthrough", got)
	}
	if Status("custom").Known() {
		t.Error("Known() = true for custom status")
	}
}
