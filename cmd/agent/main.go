// Command agent is a headless VinnyVerse player. It logs in, reads
// "<Type> <JSON payload>" lines from stdin, and prints each world snapshot
// as a text map.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"vinnyverse-client/internal/config"
	"vinnyverse-client/internal/observability"
	"vinnyverse-client/internal/session"
	"vinnyverse-client/internal/transport"
	"vinnyverse-client/internal/view"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	username := flag.String("user", "", "username (prompted when empty)")
	soulID := flag.String("soul", "", "soul id (prompted when empty)")
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

	in := bufio.NewScanner(os.Stdin)
	if *username == "" {
		*username = prompt(in, os.Stdout, "Enter username: ")
	}
	if *soulID == "" {
		*soulID = prompt(in, os.Stdout, "Enter soul ID: ")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res := run(ctx, cfg, logger, *username, *soulID, in, os.Stdout)
	if res.Err != nil {
		fmt.Fprintf(os.Stderr, "session ended: %s: %v\n", res.Reason, res.Err)
	}
	_ = logger.Sync()
	if res.Reason == session.LoginFailed || res.Reason == session.TransportError {
		os.Exit(1)
	}
}

func prompt(in *bufio.Scanner, out io.Writer, label string) string {
	fmt.Fprint(out, label)
	if !in.Scan() {
		return ""
	}
	return strings.TrimSpace(in.Text())
}

// run drives one session: stdin lines become commands, events are printed
// until the loop ends.
func run(ctx context.Context, cfg config.Config, logger *zap.Logger, username, soulID string, in *bufio.Scanner, out io.Writer) session.Result {
	commands := make(chan string, cfg.Session.CommandBuffer)
	events := make(chan session.Event, cfg.Session.EventBuffer)

	go readCommands(ctx, in, commands)

	printed := make(chan struct{})
	go func() {
		defer close(printed)
		printEvents(events, out)
	}()

	loop := session.NewLoop(session.Config{
		LoginTimeout: cfg.Session.LoginTimeout,
		PollInterval: cfg.Session.PollInterval,
	}, events, logger.Named("session"))
	dial := transport.WebSocketDialer(cfg.Server.URL, transport.WebSocketOptions{
		WriteTimeout: cfg.Session.WriteTimeout,
		CloseTimeout: cfg.Session.PollInterval,
		Logger:       logger.Named("transport"),
	})

	res := loop.Run(ctx, dial, session.New(username, soulID), commands)
	close(events)
	<-printed
	return res
}

// readCommands forwards input lines until the input ends or ctx is done, then
// closes commands. A read already in progress is not interrupted.
func readCommands(ctx context.Context, in *bufio.Scanner, commands chan<- string) {
	defer close(commands)
	for in.Scan() {
		select {
		case commands <- in.Text():
		case <-ctx.Done():
			return
		}
	}
}

func printEvents(events <-chan session.Event, out io.Writer) {
	for ev := range events {
		switch ev.Kind {
		case session.EventSnapshot:
			fmt.Fprint(out, view.RenderASCII(ev.Snapshot))
			fmt.Fprintln(out, strings.Repeat("-", 20))
		case session.EventStatus:
			fmt.Fprintf(out, "[%s]\n", ev.State)
		default:
			fmt.Fprintln(out, ev.Message())
		}
	}
}
