package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Tyrowin/chatrooms/internal/server"
)

func newRootCommand() *cobra.Command {
	var (
		port      string
		origins   []string
		logLevel  string
		logFormat string
		envFile   string
	)

	cmd := &cobra.Command{
		Use:          "chatrooms-server",
		Short:        "Serve named chat rooms over WebSocket",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var envFiles []string
			if envFile != "" {
				envFiles = append(envFiles, envFile)
			}
			cfg, err := server.LoadConfig(envFiles...)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("port") {
				cfg.Port = port
			}
			if flags.Changed("allowed-origin") {
				cfg.AllowedOrigins = origins
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if flags.Changed("log-format") {
				cfg.LogFormat = logFormat
			}
			cfg.Sanitize()

			server.SetupLogging(cfg.LogLevel, cfg.LogFormat, os.Stderr)
			log.Info().Str("port", cfg.Port).Strs("origins", cfg.AllowedOrigins).Msg("starting chat rooms server")

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := server.Run(ctx, cfg); err != nil {
				return err
			}
			log.Info().Msg("server stopped gracefully")
			return nil
		},
	}

	cmd.Flags().StringVar(&port, "port", ":8080", "listen address (overrides SERVER_PORT)")
	cmd.Flags().StringSliceVar(&origins, "allowed-origin", nil, "allowed WebSocket origin, repeatable; '*' allows any (overrides ALLOWED_ORIGINS)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (overrides LOG_LEVEL)")
	cmd.Flags().StringVar(&logFormat, "log-format", "console", "log format: console or json (overrides LOG_FORMAT)")
	cmd.Flags().StringVar(&envFile, "env-file", "", "dotenv file to load before reading the environment (default .env)")
	return cmd
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
