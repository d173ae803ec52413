// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/supportchat/internal/backend"
	"github.com/jeranaias/supportchat/internal/config"
	"github.com/jeranaias/supportchat/internal/logging"
)

// Version information, set by main from build flags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	url        string
	name       string
	logLevel   string
	jsonOutput bool
}

// NewRootCommand builds the supportchat command tree.
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "supportchat",
		Short: "Terminal client for the customer support chat",
		Long: `supportchat talks to the customer support chat backend.

Replies the backend flags for human review stay paused until you approve
or reject them. Run without arguments to start the full-screen chat.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !Interactive() {
				return runChat(cmd, flags)
			}
			return runTUI(cmd, flags)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "config file (default ~/.supportchat/config.toml)")
	pf.StringVar(&flags.url, "url", "", "backend base URL")
	pf.StringVarP(&flags.name, "name", "n", "", "display name")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.BoolVar(&flags.jsonOutput, "json", false, "machine-readable output where supported")

	root.AddCommand(
		newChatCommand(flags),
		newSendCommand(flags),
		newStatsCommand(flags),
		newSessionCommand(flags),
		newClearSessionsCommand(flags),
		newConfigCommand(flags),
		newVersionCommand(flags),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		DisplayError(root.ErrOrStderr(), err)
		return GetExitCode(err)
	}
	return ExitSuccess
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// loadConfig reads the config file and applies flag overrides on top of it.
func (f *globalFlags) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if f.configPath != "" {
		cfg, err = config.LoadFromPath(f.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	if f.url != "" {
		cfg.Server.BaseURL = f.url
	}
	if f.name != "" {
		cfg.User.DisplayName = f.name
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Err: err}
	}
	return cfg, nil
}

// newLogger builds the logger for a command. Interactive sessions log to the
// configured file so records never land on the screen.
func newLogger(cfg *config.Config, sink logging.Sink) (*zap.Logger, error) {
	return logging.New(logging.Options{
		Level: cfg.Log.Level,
		Sink:  sink,
		File:  cfg.Log.File,
	})
}

func newBackendClient(cfg *config.Config, logger *zap.Logger) *backend.Client {
	return backend.NewClientWithConfig(&backend.ClientConfig{
		BaseURL: cfg.Server.BaseURL,
		Timeout: cfg.Server.Timeout.Std(),
		Logger:  logger,
	})
}
