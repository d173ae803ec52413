// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jeranaias/supportchat/internal/backend"
	"github.com/jeranaias/supportchat/internal/config"
)

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain", errors.New("boom"), ExitGeneralError},
		{"usage", &UsageError{Reason: "bad"}, ExitUsageError},
		{"config", &ConfigError{Err: errors.New("bad file")}, ExitConfigError},
		{"validation", config.ValidateErrors{{Field: "log.level", Message: "bad"}}, ExitConfigError},
		{"not found", &NotFoundError{Resource: "session", ID: "x"}, ExitNotFoundError},
		{"backend 404", &backend.ClientError{Type: backend.ErrTypeStatus, StatusCode: 404, Message: "gone"}, ExitNotFoundError},
		{"backend 500", &backend.ClientError{Type: backend.ErrTypeStatus, StatusCode: 500, Message: "oops"}, ExitGeneralError},
		{"timeout", fmt.Errorf("stats: %w", backend.ErrTimeout), ExitTimeoutError},
		{"connection", &backend.ClientError{Type: backend.ErrTypeConnection, Message: "refused"}, ExitNetworkError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestDisplayError(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, nil)
	assert.Empty(t, buf.String())

	DisplayError(&buf, errors.New("backend unreachable"))
	assert.Contains(t, buf.String(), "[ERROR]")
	assert.Contains(t, buf.String(), "backend unreachable")
}
