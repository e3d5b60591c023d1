// Package server constructs and starts the GoChat rooms HTTP service with
// helpers that apply sensible production defaults.
package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Tyrowin/chatrooms/internal/chat"
)

// CreateServer creates and configures an HTTP server with the specified port and handler.
func CreateServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// ShutdownServer gracefully shuts down the HTTP server without interrupting
// active connections, waiting at most timeout.
func ShutdownServer(server *http.Server, timeout time.Duration) error {
	log.Info().Msg("shutting down HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "http shutdown")
	}
	log.Info().Msg("HTTP server shutdown completed")
	return nil
}

// Run serves the rooms service on cfg.Port until ctx is cancelled, then
// shuts down the HTTP server and the hub.
func Run(ctx context.Context, cfg *Config) error {
	listener, err := net.Listen("tcp", cfg.Port)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", cfg.Port)
	}
	return Serve(ctx, cfg, listener)
}

// Serve is Run on an existing listener.
func Serve(ctx context.Context, cfg *Config, listener net.Listener) error {
	hub := NewHub(chat.NewEngine(), cfg)
	httpServer := CreateServer(cfg.Port, SetupRoutes(hub))

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		hub.Run()
		return nil
	})
	eg.Go(func() error {
		log.Info().Str("addr", listener.Addr().String()).Msg("server listening")
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http serve")
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		httpErr := ShutdownServer(httpServer, cfg.ShutdownTimeout)
		hubErr := hub.Shutdown(cfg.ShutdownTimeout)
		if httpErr != nil {
			return httpErr
		}
		return errors.Wrap(hubErr, "hub shutdown")
	})
	return eg.Wait()
}
