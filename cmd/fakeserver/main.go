package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"vinnyverse-client/internal/config"
	"vinnyverse-client/internal/fakeserver"
	"vinnyverse-client/internal/observability"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	silent := flag.Bool("silent-login", false, "never answer login requests")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	srv := fakeserver.New(fakeserver.Options{
		Addr:        cfg.FakeServer.Addr,
		WorldSize:   cfg.FakeServer.WorldSize,
		Tick:        cfg.FakeServer.Tick,
		SilentLogin: *silent,
		Logger:      logger,
	})

	// Run server in background; graceful shutdown on SIGINT/SIGTERM.
	go func() {
		if err := srv.Run(); err != nil {
			logger.Fatal("fake server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
}
