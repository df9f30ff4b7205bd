package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tendant/sheetmusic/pkg/sheetmusic/api"
	"github.com/tendant/sheetmusic/pkg/sheetmusic/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func run() error {
	opts := []config.Option{}
	if _, err := os.Stat(".env"); err == nil {
		opts = append(opts, config.WithDotEnv(".env"))
	}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		opts = append(opts, config.WithFile(path))
	}
	opts = append(opts, config.WithEnv())

	serverConfig, err := config.Load(opts...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := newLogger(serverConfig)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := serverConfig.BuildService(ctx, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	httpServer := newHTTPServer(serverConfig, rt, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("sheet music server starting",
			"port", serverConfig.Port,
			"env", serverConfig.Environment,
			"database", serverConfig.DatabaseType,
			"storage", serverConfig.Storage.Type)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server exiting")
	return nil
}

func newLogger(cfg *config.ServerConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Environment == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func newHTTPServer(cfg *config.ServerConfig, rt *config.Runtime, logger *slog.Logger) *http.Server {
	handlerOpts := []api.HandlerOption{api.WithHandlerLogger(logger)}
	if cfg.RateLimit.RequestsPerSecond > 0 {
		handlerOpts = append(handlerOpts,
			api.WithRateLimiter(api.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)))
	}

	handler := api.NewSheetMusicHandler(rt.Service, api.NewAuth(cfg.Auth.JWTSecret), handlerOpts...)

	return &http.Server{
		Addr: ":" + cfg.Port,
		Handler: api.NewRouter(handler, api.RouterConfig{
			RequestTimeout: 60 * time.Second,
			AccessLog:      cfg.Environment != "production",
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
