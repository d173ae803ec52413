// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/supportchat/internal/backend"
	"github.com/jeranaias/supportchat/internal/config"
	"github.com/jeranaias/supportchat/internal/logging"
	"github.com/jeranaias/supportchat/internal/model"
	"github.com/jeranaias/supportchat/internal/session"
	"github.com/jeranaias/supportchat/internal/ui/styles"
)

// oneShot loads config and builds a client for commands that make a single
// request. Their logs go to stderr.
func (f *globalFlags) oneShot() (*config.Config, *backend.Client, *zap.Logger, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := newLogger(cfg, logging.SinkStderr)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, newBackendClient(cfg, logger), logger, nil
}

// =============================================================================
// SEND
// =============================================================================

func newSendCommand(flags *globalFlags) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "send <message...>",
		Short: "Send one message in a fresh session and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return &UsageError{Reason: "message is empty"}
			}

			cfg, client, logger, err := flags.oneShot()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			sess := session.New(cfg.User.DisplayName)
			reply, err := client.Send(cmd.Context(), backend.SendRequest{
				Message:   text,
				UserName:  sess.DisplayName(),
				SessionID: sess.ID(),
			})
			out := cmd.OutOrStdout()
			if flags.jsonOutput {
				return WriteJSON(out, "send", reply, err)
			}
			if err != nil {
				return err
			}

			if raw {
				data, err := json.MarshalIndent(reply, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, highlightJSON(string(data)))
				return nil
			}

			renderer, err := newTerminalRenderer(lineTheme(cfg.UI.Theme).GlamourStyle(), wrapWidth(cfg.UI.WordWrap), logger)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, AssistantStyle.Render(model.RoleAssistant.DisplayName()+":"))
			fmt.Fprintln(out, strings.TrimRight(renderer.Render(model.RoleAssistant, reply.Content), "\n"))
			if reply.NeedsReview() {
				fmt.Fprintln(out, WarningStyle.Render(styles.StatusIndicators.Warning+" This reply is awaiting human review (session "+sess.ID()+")"))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print the reply as JSON")
	return cmd
}

// =============================================================================
// STATS
// =============================================================================

func newStatsCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the backend's session statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, logger, err := flags.oneShot()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			stats, err := client.Stats(cmd.Context())
			out := cmd.OutOrStdout()
			if flags.jsonOutput {
				return WriteJSON(out, "stats", stats, err)
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(out, TitleStyle.Render("Session statistics"))
			fmt.Fprintln(out, RenderSeparator())
			fmt.Fprintln(out, RenderField("Sessions", fmt.Sprint(stats.TotalSessions)))
			fmt.Fprintln(out, RenderField("Awaiting review", fmt.Sprint(stats.PausedForHuman)))
			fmt.Fprintln(out, RenderField("Requests", fmt.Sprint(stats.RequestCount)))
			fmt.Fprintln(out, RenderField("Hit rate", fmt.Sprintf("%.1f%%", stats.HitRate*100)))
			fmt.Fprintln(out, RenderField("Miss rate", fmt.Sprintf("%.1f%%", stats.MissRate*100)))
			if stats.Timestamp > 0 {
				fmt.Fprintln(out, RenderField("As of", time.UnixMilli(stats.Timestamp).Local().Format(time.DateTime)))
			}
			return nil
		},
	}
}

// =============================================================================
// SESSION
// =============================================================================

func newSessionCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "session <id>",
		Short: "Show the backend's record of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, logger, err := flags.oneShot()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			info, err := client.Session(cmd.Context(), args[0])
			if errors.Is(err, backend.ErrNotFound) {
				err = &NotFoundError{Resource: "session", ID: args[0]}
			}
			out := cmd.OutOrStdout()
			if flags.jsonOutput {
				return WriteJSON(out, "session", info, err)
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(out, TitleStyle.Render("Session "+info.SessionID))
			fmt.Fprintln(out, RenderSeparator())
			fmt.Fprintln(out, RenderField("User", info.UserName))
			fmt.Fprintln(out, RenderField("Awaiting review", yesNo(info.PausedForHuman)))
			fmt.Fprintln(out, RenderField("Agent typing", yesNo(info.Typing)))
			if info.CreationTime > 0 {
				fmt.Fprintln(out, RenderField("Created", info.Created().Local().Format(time.DateTime)))
			}
			if info.LastAccessTime > 0 {
				fmt.Fprintln(out, RenderField("Last access", info.LastAccess().Local().Format(time.DateTime)))
			}
			return nil
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// =============================================================================
// CLEAR SESSIONS
// =============================================================================

func newClearSessionsCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-sessions",
		Short: "Drop every session held by the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, logger, err := flags.oneShot()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			result, err := client.ClearSessions(cmd.Context())
			out := cmd.OutOrStdout()
			if flags.jsonOutput {
				return WriteJSON(out, "clear-sessions", result, err)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(out, styles.RenderSuccess(fmt.Sprintf("Removed %d sessions, %d still active", result.RemovedCount, result.ActiveSessions)))
			return nil
		},
	}
}

// =============================================================================
// CONFIG
// =============================================================================

func newConfigCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			if flags.jsonOutput {
				return WriteJSON(cmd.OutOrStdout(), "config show", cfg, nil)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cfg.String())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print one value, e.g. server.base_url",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			v, err := cfg.Get(args[0])
			if err != nil {
				return &UsageError{Reason: err.Error()}
			}
			fmt.Fprintln(cmd.OutOrStdout(), config.FormatValue(v))
			return nil
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := flags.configPath
			if path == "" {
				dir, err := config.ConfigDir()
				if err != nil {
					return &ConfigError{Err: err}
				}
				path = filepath.Join(dir, "config.toml")
			}
			if _, err := os.Stat(path); err == nil && !force {
				return &UsageError{Reason: path + " already exists (use --force to overwrite)"}
			}
			if err := config.SaveTOML(config.Default(), path); err != nil {
				return &ConfigError{Err: err}
			}
			fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess("Wrote "+path))
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)

	return cmd
}

// =============================================================================
// VERSION
// =============================================================================

func newVersionCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data := VersionData{
				Version:   Version,
				GitCommit: GitCommit,
				BuildDate: BuildDate,
				GoVersion: runtime.Version(),
				Platform:  runtime.GOOS + "/" + runtime.GOARCH,
			}
			out := cmd.OutOrStdout()
			if flags.jsonOutput {
				return WriteJSON(out, "version", data, nil)
			}
			fmt.Fprintln(out, RenderField("supportchat", data.Version))
			fmt.Fprintln(out, RenderField("Commit", data.GitCommit))
			fmt.Fprintln(out, RenderField("Built", data.BuildDate))
			fmt.Fprintln(out, RenderField("Go", data.GoVersion))
			fmt.Fprintln(out, RenderField("Platform", data.Platform))
			return nil
		},
	}
}
