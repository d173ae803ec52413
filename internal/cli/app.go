// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/supportchat/internal/backend"
	"github.com/jeranaias/supportchat/internal/channel"
	"github.com/jeranaias/supportchat/internal/config"
	"github.com/jeranaias/supportchat/internal/controller"
	"github.com/jeranaias/supportchat/internal/export"
	"github.com/jeranaias/supportchat/internal/logging"
	"github.com/jeranaias/supportchat/internal/render"
	"github.com/jeranaias/supportchat/internal/session"
	"github.com/jeranaias/supportchat/internal/store"
	"github.com/jeranaias/supportchat/internal/ui/chat"
	"github.com/jeranaias/supportchat/internal/ui/styles"
)

// =============================================================================
// SESSION WIRING
// =============================================================================

// app is one live chat session: the push channel, the controller and
// whatever front end drives them.
type app struct {
	sess    *session.Session
	client  *backend.Client
	manager *channel.Manager
	ctrl    *controller.Controller
	logger  *zap.Logger
}

func newApp(cfg *config.Config, logger *zap.Logger, surface controller.Surface, renderer store.Renderer) (*app, error) {
	base, err := url.Parse(cfg.Server.BaseURL)
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("server.base_url: %w", err)}
	}
	endpoint, err := channel.Endpoint(base)
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("server.base_url: %w", err)}
	}

	sess := session.New(cfg.User.DisplayName)
	logger = logger.With(zap.String("session", sess.ID()))
	client := newBackendClient(cfg, logger)

	manager := channel.NewManager(channel.Options{
		URL: endpoint,
		Policy: channel.ReconnectPolicy{
			Delay:       cfg.Channel.ReconnectDelay.Std(),
			MaxAttempts: cfg.Channel.MaxAttempts,
		},
		Logger: logger,
	})

	ctrl, err := controller.New(controller.Options{
		Session: sess,
		Backend: client,
		Channel: manager,
		Store:   store.New(renderer),
		Surface: surface,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	return &app{
		sess:    sess,
		client:  client,
		manager: manager,
		ctrl:    ctrl,
		logger:  logger,
	}, nil
}

// run drives the session until front returns or ctx is cancelled.
func (a *app) run(ctx context.Context, front func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.logger.Info("session started", zap.String("user", a.sess.DisplayName()))
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := a.manager.Run(gctx)
		if errors.Is(err, channel.ErrAttemptsExhausted) {
			a.logger.Warn("push channel gave up reconnecting", zap.Error(err))
			return nil
		}
		return err
	})
	g.Go(func() error {
		return a.ctrl.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return front(gctx)
	})

	err := g.Wait()
	a.logger.Info("session ended", zap.Error(err))
	return err
}

// newTerminalRenderer renders assistant markdown for a terminal.
func newTerminalRenderer(style string, wordWrap int, logger *zap.Logger) (*render.Renderer, error) {
	term, err := render.NewTerminal(style, wordWrap)
	if err != nil {
		return nil, fmt.Errorf("markdown renderer: %w", err)
	}
	return render.New(term, render.WithLogger(logger)), nil
}

func exportOptions(cfg *config.Config) *export.Options {
	opts := export.DefaultOptions()
	opts.OutputDir = cfg.Export.Dir
	if cfg.UI.Theme == styles.ThemeLight {
		opts.Theme = "light"
	}
	return opts
}

// =============================================================================
// FULL-SCREEN UI
// =============================================================================

func runTUI(cmd *cobra.Command, flags *globalFlags) error {
	cfg, err := flags.loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, logging.SinkFile)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	theme := styles.NewTheme(cfg.UI.Theme)
	renderer, err := newTerminalRenderer(theme.GlamourStyle(), cfg.UI.WordWrap, logger)
	if err != nil {
		return err
	}

	surface := chat.NewProgramSurface()
	a, err := newApp(cfg, logger, surface, renderer)
	if err != nil {
		return err
	}

	m := chat.New(chat.Options{
		Controller: a.ctrl,
		Session:    a.sess,
		Theme:      theme,
		Export:     exportOptions(cfg),
	})
	p := tea.NewProgram(m, tea.WithAltScreen())
	surface.Attach(p)

	return a.run(cmd.Context(), func(ctx context.Context) error {
		go func() {
			<-ctx.Done()
			p.Quit()
		}()
		_, err := p.Run()
		return err
	})
}
