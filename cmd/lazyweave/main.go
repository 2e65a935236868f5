package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/rebeliceyang/lazyweave/internal/app"
	"github.com/rebeliceyang/lazyweave/internal/config"
	"github.com/rebeliceyang/lazyweave/internal/session"
)

var (
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
	logOut io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "lazyweave",
	Short: "A terminal client for Weaviate",
	Long: `lazyweave browses the collections of one or more Weaviate instances.

Saved connections are kept in a local database; API keys are stored in the
OS keyring.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadFile(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not load config: %v (using defaults)\n", err)
			cfg = config.GetDefaults()
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		logger, logOut, err = newLogger(cfg)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logOut != nil {
			_ = logOut.Close()
		}
	},
	RunE: runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default is <user config dir>/lazyweave/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger writes JSON logs to the configured file; the terminal belongs
// to the UI.
func newLogger(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Log.Level))); err != nil {
		level = slog.LevelInfo
	}

	path, err := cfg.LogPath()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve log path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level})), f, nil
}

// openSession builds the session used by every command
func openSession(ctx context.Context) (*session.Session, error) {
	sess, err := session.Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := sess.Connections.Load(ctx); err != nil {
		_ = sess.Close(ctx)
		return nil, err
	}
	return sess, nil
}

func runTUI(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	sess, err := session.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(context.Background()); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	model := app.New(ctx, sess, logger)

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.UI.MouseEnabled {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	p := tea.NewProgram(model, opts...)

	if config.Watch(configPath, func(c *config.Config, err error) {
		p.Send(app.ConfigChangedMsg{Config: c, Err: err})
	}) {
		logger.Debug("watching config file")
	}

	logger.Info("starting", "theme", cfg.UI.Theme)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}
