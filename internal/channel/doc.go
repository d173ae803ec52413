// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package channel owns the WebSocket connection to the chat backend.
//
// A Manager dials the backend's /ws/chat endpoint, forwards parsed push
// events and lifecycle state changes on a single channel, and reconnects
// after a fixed delay whenever the connection closes. The loop never gives up
// unless a maximum attempt count is configured.
//
// # State Machine
//
//	connecting -> online -> offline -> connecting -> ...
//
// StateError is an overlay: it is reported alongside a failure but only the
// close (offline) schedules a reconnect.
//
// # Usage
//
//	mgr := channel.NewManager(channel.Options{URL: endpoint})
//	go mgr.Run(ctx)
//	for ev := range mgr.Events() {
//	    switch ev := ev.(type) {
//	    case channel.StateEvent:
//	    case channel.ReviewEvent:
//	    }
//	}
package channel
