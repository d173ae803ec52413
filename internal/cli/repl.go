// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/supportchat/internal/channel"
	"github.com/jeranaias/supportchat/internal/config"
	"github.com/jeranaias/supportchat/internal/controller"
	"github.com/jeranaias/supportchat/internal/export"
	"github.com/jeranaias/supportchat/internal/logging"
	"github.com/jeranaias/supportchat/internal/model"
	"github.com/jeranaias/supportchat/internal/render"
	"github.com/jeranaias/supportchat/internal/review"
	"github.com/jeranaias/supportchat/internal/session"
	"github.com/jeranaias/supportchat/internal/store"
	"github.com/jeranaias/supportchat/internal/ui/styles"
)

func newChatCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start a line-mode chat session",
		Long: `Starts a chat session that reads one message per line.

Interactive commands:
  /approve            approve the reply awaiting review
  /reject             reject the reply awaiting review
  /export [md|json|html]  save the transcript
  /status             show the session state
  /help               show this list
  /quit               leave (Ctrl+D also works)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, flags)
		},
	}
}

func runChat(cmd *cobra.Command, flags *globalFlags) error {
	cfg, err := flags.loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, logging.SinkFile)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	renderer, err := newTerminalRenderer(lineTheme(cfg.UI.Theme).GlamourStyle(), wrapWidth(cfg.UI.WordWrap), logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	surface := newLineSurface(out)
	a, err := newApp(cfg, logger, surface, renderer)
	if err != nil {
		return err
	}

	r := &repl{
		ctrl:    a.ctrl,
		sess:    a.sess,
		surface: surface,
		out:     out,
		export:  exportOptions(cfg),
	}
	return a.run(cmd.Context(), func(ctx context.Context) error {
		line := newLineReader()
		defer line.Close()
		return r.loop(ctx, line)
	})
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader provides input history and line editing.
type lineReader struct {
	line        *liner.State
	historyFile string
}

func newLineReader() *lineReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	r := &lineReader{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	if f, err := os.Open(r.historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	return r
}

// Prompt reads one line and records it in the history.
func (r *lineReader) Prompt(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history with owner-only permissions and restores the terminal.
func (r *lineReader) Close() {
	if err := os.MkdirAll(filepath.Dir(r.historyFile), 0700); err == nil {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			_, _ = r.line.WriteHistory(f)
			f.Close()
		}
	}
	r.line.Close()
}

// =============================================================================
// REPL
// =============================================================================

// replController is the controller surface the REPL drives.
type replController interface {
	Submit(text string)
	Decide(feedback string)
	Snapshot() controller.Snapshot
	Store() *store.Store
}

type prompter interface {
	Prompt(prompt string) (string, error)
}

type repl struct {
	ctrl    replController
	sess    *session.Session
	surface *lineSurface
	out     io.Writer
	export  *export.Options
}

// errQuit ends the loop without an error.
var errQuit = errors.New("quit")

func (r *repl) loop(ctx context.Context, in prompter) error {
	if !r.surface.waitReady(ctx) {
		return nil
	}
	fmt.Fprintln(r.out, DimStyle.Render("Type a message, or /help for commands."))

	for {
		input, err := in.Prompt("> ")
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}

		if err := r.dispatch(ctx, input); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			return err
		}
	}
}

// dispatch handles one input line.
func (r *repl) dispatch(ctx context.Context, input string) error {
	text := strings.TrimSpace(input)
	if text == "" {
		return nil
	}
	if !strings.HasPrefix(text, "/") {
		r.ctrl.Submit(text)
		// Wait for the reply so piped input stays in order.
		r.surface.waitReady(ctx)
		return nil
	}

	fields := strings.Fields(text)
	switch strings.ToLower(fields[0]) {
	case "/approve", "/a":
		r.decide(review.Approve)
	case "/reject", "/r":
		r.decide(review.Reject)
	case "/export", "/e":
		format := "md"
		if len(fields) > 1 {
			format = fields[1]
		}
		r.exportTranscript(format)
	case "/status", "/s":
		r.printStatus()
	case "/help", "/h", "/?":
		r.printHelp()
	case "/quit", "/q", "/exit":
		return errQuit
	default:
		fmt.Fprintln(r.out, WarningStyle.Render("Unknown command "+fields[0]+", try /help"))
	}
	return nil
}

func (r *repl) decide(feedback string) {
	if !r.ctrl.Snapshot().ReviewPending {
		fmt.Fprintln(r.out, DimStyle.Render("Nothing is waiting for review."))
		return
	}
	r.ctrl.Decide(feedback)
}

func (r *repl) exportTranscript(format string) {
	exporter, err := export.ForFormat(format, r.export)
	if err == nil && r.sess == nil {
		err = errors.New("no session to export")
	}
	var path string
	if err == nil {
		path, err = export.ToFile(export.NewTranscript(r.sess, r.ctrl.Store().Messages()), exporter, r.export)
	}
	if err != nil {
		fmt.Fprintln(r.out, styles.RenderError("Export failed: "+err.Error()))
		return
	}
	fmt.Fprintln(r.out, styles.RenderSuccess("Transcript saved to "+path))
}

func (r *repl) printStatus() {
	snap := r.ctrl.Snapshot()
	pending := "none"
	if snap.ReviewPending {
		pending = snap.PendingReviewID
		if pending == "" {
			pending = "(unidentified reply)"
		}
	}
	fmt.Fprintln(r.out, RenderField("Session", snap.SessionID))
	fmt.Fprintln(r.out, RenderField("Name", snap.DisplayName))
	fmt.Fprintln(r.out, RenderField("Connection", snap.State.String()))
	fmt.Fprintln(r.out, RenderField("Pending review", pending))
	fmt.Fprintln(r.out, RenderField("Messages", fmt.Sprint(snap.Entries)))
}

func (r *repl) printHelp() {
	fmt.Fprintln(r.out, TitleStyle.Render("Commands"))
	for _, row := range [][2]string{
		{"/approve, /a", "approve the reply awaiting review"},
		{"/reject, /r", "reject the reply awaiting review"},
		{"/export [fmt]", "save the transcript (md, json, html)"},
		{"/status, /s", "show the session state"},
		{"/quit, /q", "leave"},
	} {
		fmt.Fprintln(r.out, RenderField(row[0], row[1]))
	}
}

// =============================================================================
// LINE SURFACE
// =============================================================================

// lineSurface implements controller.Surface by printing transcript lines.
type lineSurface struct {
	mu        sync.Mutex
	out       io.Writer
	conn      channel.State
	connSeen  bool
	composing bool

	// ready is signalled whenever input is re-enabled.
	ready chan struct{}
}

func newLineSurface(out io.Writer) *lineSurface {
	return &lineSurface{
		out:   out,
		ready: make(chan struct{}, 1),
	}
}

// waitReady blocks until input is enabled again. It reports false if ctx
// ended first.
func (s *lineSurface) waitReady(ctx context.Context) bool {
	select {
	case <-s.ready:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *lineSurface) println(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, line)
}

func (s *lineSurface) SetInputEnabled(enabled bool) {
	if !enabled {
		return
	}
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

func (s *lineSurface) ClearInput() {}

func (s *lineSurface) AppendEntry(e store.Entry) {
	msg := e.Message
	label := AssistantStyle.Render(msg.Role.DisplayName() + ":")
	if msg.Role == model.RoleUser {
		label = UserStyle.Render(msg.Role.DisplayName() + ":")
	}

	line := label + " " + strings.TrimSpace(e.Rendered)
	switch msg.Status {
	case model.StatusWaitingHuman:
		line += " " + WarningStyle.Render("["+msg.Status.Label()+"]")
	case model.StatusError:
		line += " " + ErrorStyle.Render("["+msg.Status.Label()+"]")
	}
	s.println(line)
}

func (s *lineSurface) UpdateEntryStatus(e store.Entry) {
	id := e.Message.ID
	s.println(DimStyle.Render(fmt.Sprintf("  message %s is now %s", id, e.Message.Status.Label())))
}

func (s *lineSurface) SetConnection(state channel.State) {
	s.mu.Lock()
	changed := !s.connSeen || s.conn != state
	s.conn, s.connSeen = state, true
	s.mu.Unlock()
	if changed {
		s.println(DimStyle.Render(styles.ConnectionIndicator(state) + " " + state.String()))
	}
}

func (s *lineSurface) SetRemoteComposing(composing bool) {
	s.mu.Lock()
	started := composing && !s.composing
	s.composing = composing
	s.mu.Unlock()
	if started {
		s.println(DimStyle.Render("  agent is typing..."))
	}
}

func (s *lineSurface) ShowReview(p review.Prompt) {
	lines := []string{
		WarningStyle.Render(styles.StatusIndicators.Warning + " Human review required"),
	}
	if p.Content != "" {
		lines = append(lines, "  "+strings.Join(strings.Fields(render.Scrub(p.Content)), " "))
	}
	if c := p.Classification.String(); c != "" {
		lines = append(lines, DimStyle.Render("  classification: "+render.Scrub(c)))
	}
	lines = append(lines, DimStyle.Render("  /approve or /reject"))
	s.println(strings.Join(lines, "\n"))
}

func (s *lineSurface) HideReview() {}

func (s *lineSurface) Notice(text string) {
	s.println(WarningStyle.Render(text))
}
