// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea front end for a support chat session.
//
// The Model never talks to the backend. It forwards user intent to the
// session controller and redraws from the messages the controller posts
// back through ProgramSurface:
//
//	surface := chat.NewProgramSurface()
//	ctrl, _ := controller.New(controller.Options{Surface: surface, ...})
//	p := tea.NewProgram(chat.New(chat.Options{Controller: ctrl, ...}))
//	surface.Attach(p)
//
// # Key Bindings
//
//	Enter     send the message
//	Esc       leave the input field (Tab returns to it)
//	a / r     approve or reject while a review is pending and the input is empty
//	Ctrl+E    export the transcript
//	PgUp/PgDn scroll
//	Ctrl+C    quit
package chat
