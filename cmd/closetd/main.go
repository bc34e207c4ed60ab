// Package main is the entry point for closetd, the reference messages
// backend the closetmail client talks to.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/campuscloset/closetmail/internal/config"
	"github.com/campuscloset/closetmail/internal/db"
	"github.com/campuscloset/closetmail/internal/logging"
	"github.com/campuscloset/closetmail/internal/server"
)

// Version information (set by goreleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type serveOptions struct {
	configFile string
	addr       string
	database   string
	logLevel   string
	logFormat  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "closetd",
		Short:         "Reference messages backend for closetmail",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	root.AddCommand(newServeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the messages API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cmd, opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.configFile, "config", "", "config file (default is $HOME/.config/closetmail/config.yaml)")
	flags.StringVar(&opts.addr, "addr", "", "listen address (overrides server.addr)")
	flags.StringVar(&opts.database, "db", "", "SQLite database path (overrides server.database_path)")
	flags.StringVar(&opts.logLevel, "log-level", "", "override logging level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "override logging format (json, console)")
	return cmd
}

func serve(ctx context.Context, cmd *cobra.Command, opts *serveOptions) error {
	loader := config.NewLoader()
	if opts.configFile != "" {
		loader.SetConfigFile(opts.configFile)
	}
	overrides := map[string]string{
		"addr":       "server.addr",
		"db":         "server.database_path",
		"log-level":  "logging.level",
		"log-format": "logging.format",
	}
	for flag, key := range overrides {
		if cmd.Flags().Changed(flag) {
			value, _ := cmd.Flags().GetString(flag)
			loader.Set(key, value)
		}
	}

	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		EnableCaller: cfg.Logging.EnableCaller,
	})
	logger := logging.Component("closetd")

	if err := cfg.EnsureDirectories(); err != nil {
		logger.Warn().Err(err).Msg("failed to create directories")
	}
	if cfgUsed := loader.ConfigFileUsed(); cfgUsed != "" {
		logger.Debug().Str("config_file", cfgUsed).Msg("loaded config file")
	}

	logger.Info().
		Str("version", version).
		Str("commit", commit).
		Str("built", date).
		Str("database", cfg.Server.DatabasePath).
		Msg("closetd starting")

	database, err := db.Open(ctx, db.DefaultConfig(cfg.Server.DatabasePath))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	srv := server.NewServer(db.NewMessageRepository(database), server.Config{
		SendRPS:     cfg.Server.SendRPS,
		SendBurst:   cfg.Server.SendBurst,
		MaxPageSize: cfg.Server.MaxPageSize,
	})
	if err := srv.Run(ctx, cfg.Server.Addr); err != nil {
		return err
	}
	logger.Info().Msg("closetd stopped")
	return nil
}
