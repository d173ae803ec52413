// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/jeranaias/supportchat/internal/model"
)

// =============================================================================
// INTERFACES
// =============================================================================

// Interpreter turns formatting markup into safe display markup, or fails.
type Interpreter interface {
	Interpret(text string) (string, error)
}

// InterpreterFunc adapts a function to the Interpreter interface.
type InterpreterFunc func(text string) (string, error)

// Interpret calls f(text).
func (f InterpreterFunc) Interpret(text string) (string, error) {
	return f(text)
}

// Format is an output target: a rich interpreter plus the escape path used
// for uninterpreted text.
type Format interface {
	Interpreter

	// Plain escapes structural characters and converts line breaks. It must
	// never fail.
	Plain(text string) string
}

// =============================================================================
// RENDERER
// =============================================================================

// Renderer renders message content for one output format.
type Renderer struct {
	format Format
	interp Interpreter
	logger *zap.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithInterpreter replaces the format's interpreter, keeping its plain path.
func WithInterpreter(i Interpreter) Option {
	return func(r *Renderer) {
		if i != nil {
			r.interp = i
		}
	}
}

// WithLogger sets the logger used to report interpreter failures.
func WithLogger(l *zap.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a renderer for the given format.
func New(f Format, opts ...Option) *Renderer {
	r := &Renderer{
		format: f,
		interp: f,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render returns display markup for text authored by role. Only assistant text
// is interpreted.
func (r *Renderer) Render(role model.Role, text string) string {
	if role != model.RoleAssistant {
		return r.format.Plain(text)
	}

	out, err := r.interpret(Normalize(text))
	if err != nil {
		r.logger.Warn("markup interpreter failed, falling back to plain text", zap.Error(err))
		return r.format.Plain(text)
	}
	return out
}

func (r *Renderer) interpret(text string) (out string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("interpreter panic: %v", p)
		}
	}()
	return r.interp.Interpret(text)
}
