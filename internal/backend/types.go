// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import "time"

// =============================================================================
// REQUEST TYPES
// =============================================================================

// SendRequest is the body of POST /api/chat/send.
type SendRequest struct {
	Message   string `json:"message"`
	UserName  string `json:"userName"`
	SessionID string `json:"sessionId"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// SessionInfo is the server's record of a chat session.
type SessionInfo struct {
	SessionID      string `json:"sessionId"`
	UserName       string `json:"userName"`
	PausedForHuman bool   `json:"pausedForHuman"`
	Typing         bool   `json:"typing"`
	LastAccessTime int64  `json:"lastAccessTime"`
	CreationTime   int64  `json:"creationTime"`
}

// Created returns the creation time.
func (s SessionInfo) Created() time.Time {
	return time.UnixMilli(s.CreationTime)
}

// LastAccess returns the last access time.
func (s SessionInfo) LastAccess() time.Time {
	return time.UnixMilli(s.LastAccessTime)
}

// Stats is the server's session cache summary.
type Stats struct {
	TotalSessions  int64   `json:"totalSessions"`
	PausedForHuman int64   `json:"pausedForHuman"`
	HitRate        float64 `json:"hitRate"`
	MissRate       float64 `json:"missRate"`
	RequestCount   int64   `json:"requestCount"`
	Timestamp      int64   `json:"timestamp"`
}

// ClearResult is the response of POST /api/chat/clear-sessions.
type ClearResult struct {
	RemovedCount   int64 `json:"removedCount"`
	ActiveSessions int64 `json:"activeSessions"`
	Timestamp      int64 `json:"timestamp"`
}
