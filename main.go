package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"project-tracker/adapters/auth"
	"project-tracker/adapters/db"
	"project-tracker/adapters/rest/handlers"
	"project-tracker/adapters/ws"
	"project-tracker/config"
	"project-tracker/core"
	"project-tracker/realtime"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "server configuration file")
	flag.Parse()

	cfg := config.MustLoad(configPath)
	log := mustMakeLogger(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	log.Info("starting project-tracker server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// database adapter
	storage, err := db.New(log, cfg.DBAddress)
	if err != nil {
		return fmt.Errorf("failed to connect to db: %v", err)
	}
	defer func(storage *db.DB) {
		if err := storage.Close(); err != nil {
			log.Error("failed to close db connection", "error", err)
		}
	}(storage)

	if err := storage.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate db: %v", err)
	}

	// live collaboration layer
	directory := core.NewDirectory(log, storage)
	registry := realtime.NewRegistry(log, directory)
	dispatcher := realtime.NewDispatcher(log, registry)
	// closed after the http server stops so queued events still drain
	defer dispatcher.Close()

	// service
	service := core.NewService(log, storage, directory, dispatcher)

	// transports
	verifier := auth.NewHMACVerifier(cfg.AuthSecret)

	mux := http.NewServeMux()
	handlers.Register(mux, log, service, verifier, cfg.Timeout)
	mux.Handle("GET /ws", ws.NewHandler(log, verifier, service, registry, cfg.Timeout))

	server := http.Server{
		Addr:              cfg.HTTPAddress,
		ReadHeaderTimeout: cfg.Timeout,
		Handler:           mux,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server is running", "address", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown requested")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	return nil
}

func mustMakeLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
