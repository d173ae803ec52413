// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the HTTP client for the customer-support chat API.
//
// # Key Types
//
//   - Client: thread-safe API client
//   - ClientConfig: base URL and timeout
//   - ClientError: categorized failure (see ErrorType)
//
// # Usage
//
//	client := backend.NewClientWithConfig(&backend.ClientConfig{
//	    BaseURL: "http://127.0.0.1:8080",
//	})
//	reply, err := client.Send(ctx, backend.SendRequest{
//	    Message:   "hello",
//	    UserName:  "Guest42",
//	    SessionID: id,
//	})
//	if reply.NeedsReview() {
//	    reply, err = client.Resume(ctx, id, "approve")
//	}
//
// Requests are never retried: a failed send surfaces to the user, who
// decides whether to try again.
package backend
