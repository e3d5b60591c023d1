package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Tyrowin/chatrooms/internal/console"
	"github.com/Tyrowin/chatrooms/internal/server"
)

func newRootCommand() *cobra.Command {
	var (
		url      string
		origin   string
		logLevel string
	)

	cmd := &cobra.Command{
		Use:          "chatrooms-client",
		Short:        "Interactive console client for the chat rooms server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			server.SetupLogging(logLevel, "console", os.Stderr)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, "Initializing Chat Client...")
			conn, err := console.Dial(ctx, url, origin)
			if err != nil {
				_, _ = fmt.Fprintf(out, "Failed to connect to the server: %v\n", err)
				return err
			}
			return console.Run(ctx, conn, cmd.InOrStdin(), out)
		},
	}

	cmd.Flags().StringVar(&url, "url", "ws://localhost:8080/ws", "WebSocket endpoint of the server")
	cmd.Flags().StringVar(&origin, "origin", "http://localhost:8080", "Origin header sent during the handshake")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "log level for client diagnostics")
	return cmd
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
