// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for transcript messages.
//
// # Key Types
//
//   - Message: one transcript entry with role, content, status and timestamp
//   - Role: sender enumeration (user, assistant)
//   - Status: message lifecycle (sending, sent, waiting_human, completed, error)
//   - Classification: the backend's opaque review tag, kept as raw JSON
//
// # Wire Format
//
// Messages marshal to the chat backend's JSON shape. The backend names the
// role "type" and sends timestamps as epoch milliseconds:
//
//	{"id":"m2","type":"assistant","content":"...","status":"waiting_human",
//	 "timestamp":1718000000000,"classification":{"intent":"billing"}}
package model
