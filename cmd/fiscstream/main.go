package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fiscstream/internal/config"
	"fiscstream/internal/llm"
	"fiscstream/internal/server"
)

func main() {
	cfg := config.Load()
	upstream := llm.NewClient(llm.Options{
		BaseURL:     cfg.UpstreamURL,
		Model:       cfg.UpstreamModel,
		APIKey:      cfg.UpstreamKey,
		Timeout:     cfg.UpstreamTimeout,
		Fingerprint: cfg.UpstreamFingerprint,
	})
	app := server.NewApp(cfg, upstream)

	srv := &http.Server{
		Addr:    "0.0.0.0:" + cfg.Port,
		Handler: app.Router,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		config.Logger.Info("starting fiscstream", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			config.Logger.Error("server stopped unexpectedly", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	sig := <-quit
	config.Logger.Info("shutdown signal received", "signal", sig.String())

	// Graceful shutdown: allow up to 10 seconds for in-flight streams to end.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		config.Logger.Error("graceful shutdown failed, forcing exit", "error", err)
		os.Exit(1)
	}
	config.Logger.Info("server gracefully stopped")
}
