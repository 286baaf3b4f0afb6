package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"

	"vinnyverse-client/internal/bridge"
	"vinnyverse-client/internal/client"
	"vinnyverse-client/internal/config"
	"vinnyverse-client/internal/observability"
	"vinnyverse-client/internal/session"
	"vinnyverse-client/internal/transport"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
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

	dial := transport.WebSocketDialer(cfg.Server.URL, transport.WebSocketOptions{
		WriteTimeout: cfg.Session.WriteTimeout,
		CloseTimeout: cfg.Session.PollInterval,
		Logger:       logger.Named("transport"),
	})
	net := bridge.New(dial, bridge.Options{
		Session: session.Config{
			LoginTimeout: cfg.Session.LoginTimeout,
			PollInterval: cfg.Session.PollInterval,
		},
		CommandBuffer: cfg.Session.CommandBuffer,
		EventBuffer:   cfg.Session.EventBuffer,
		Logger:        logger.Named("session"),
	})
	defer net.Close()

	client.ApplyWindow(cfg.Window)
	game := client.NewGame(net, cfg.Window, logger.Named("client"))
	logger.Info("starting client", zap.String("server", cfg.Server.URL))
	if err := ebiten.RunGame(game); err != nil {
		logger.Error("game exited", zap.Error(err))
	}
}
