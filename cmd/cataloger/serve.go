package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/use-agent/cataloger/api"
	"github.com/use-agent/cataloger/cache"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// ── 1. Services ─────────────────────────────────────────────
		svc, err := newServices(cfg)
		if err != nil {
			return err
		}
		defer svc.Close()
		slog.Info("sinks registered", "sinks", svc.sinks.Names(), "output_dir", cfg.Sink.Dir)
		if cfg.Auth.Enabled && len(cfg.Auth.APIKeys) == 0 {
			slog.Warn("auth enabled but CATALOGER_API_KEYS is empty, the API is open")
		}

		// ── 2. Response cache ───────────────────────────────────────
		cc := cache.New(cfg.Cache.MaxEntries, 10*time.Minute)
		defer cc.Close()

		// ── 3. Router ───────────────────────────────────────────────
		router := api.NewRouter(api.Deps{
			Runner:    svc.pipeline,
			Pool:      svc.scraper,
			Sinks:     svc.sinks.Names(),
			Cache:     cc,
			Gatherer:  svc.registry,
			Config:    cfg,
			StartTime: time.Now(),
		})

		// ── 4. HTTP server with graceful shutdown ───────────────────
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := &http.Server{
			Addr:    addr,
			Handler: router,
		}

		errCh := make(chan error, 1)
		go func() {
			slog.Info("cataloger server starting", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		slog.Info("shutdown signal received, draining connections...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
		slog.Info("server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (default from CATALOGER_PORT).")
	serveCmd.PreRun = func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}
	}
	rootCmd.AddCommand(serveCmd)
}
