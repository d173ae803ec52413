// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the identity and connectivity state of one chat
// session.
//
// # Key Types
//
//   - Session: immutable identity plus the channel-driven connection state
//   - Status: point-in-time view for status lines and the CLI
//
// # Usage
//
//	s := session.New("")           // Guest<NNN> display name
//	s.Observe(channel.StateEvent{State: channel.StateOnline})
//	fmt.Println(s.ID(), s.State())
//
// The identifier is generated once per process and is never persisted.
package session
