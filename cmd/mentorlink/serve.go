package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mentorlink/api/internal/app"
	"mentorlink/api/internal/logger"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Seed empty collections and serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		rt, err := build(ctx, cfg)
		if err != nil {
			return err
		}
		defer rt.close()

		if err := rt.service.Bootstrap(ctx); err != nil {
			lgr.Warn().Err(err).Msg("bootstrap error (will retry on next restart)")
		}

		httpServer := app.NewHTTPServer(rt.service, cfg.CORSOrigin, logger.Component("http"))
		server := &http.Server{
			Addr:              cfg.Addr,
			Handler:           httpServer.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			lgr.Info().Str("addr", cfg.Addr).Str("store", cfg.StoreBackend).Msg("mentorlink API listening")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
		case err := <-errCh:
			return err
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			lgr.Error().Err(err).Msg("shutdown error")
		}
		return nil
	},
}
