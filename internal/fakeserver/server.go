// Package fakeserver is a small stand-in for the VinnyVerse game server. It
// speaks the same wire protocol as the real server (UUID login replies, JSON
// command envelopes, binary snapshot pushes) and is used by the integration
// tests and by cmd/fakeserver for local play.
package fakeserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"vinnyverse-client/internal/protocol"
)

const loginWait = 10 * time.Second

// RejectReply is the text sent to a client whose login is refused.
const RejectReply = "bad credentials"

// Options configures a Server.
type Options struct {
	Addr      string
	WorldSize int
	// Tick is the interval between sun steps. Zero disables ticking.
	Tick time.Duration
	// SilentLogin makes the server swallow login requests without replying.
	SilentLogin bool
	Logger      *zap.Logger
}

// Server holds the HTTP server components.
type Server struct {
	Hub  *Hub
	Addr string

	opts      Options
	logger    *zap.Logger
	http      *http.Server
	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
}

// New creates a Server from opts.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.WorldSize <= 0 {
		opts.WorldSize = 15
	}
	s := &Server{
		Hub:    NewHub(NewWorld(opts.WorldSize), opts.Logger),
		Addr:   opts.Addr,
		opts:   opts,
		logger: opts.Logger,
		done:   make(chan struct{}),
	}
	s.http = &http.Server{
		Addr:    s.Addr,
		Handler: s.Handler(),
	}
	return s
}

// Handler returns the WebSocket endpoint. Start must be called for the hub
// to process traffic.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleWebSocket)
	return mux
}

// Start runs the hub and the tick loop in the background.
func (s *Server) Start() {
	s.startOnce.Do(func() {
		go s.Hub.Run()
		if s.opts.Tick > 0 {
			go s.tickLoop()
		}
	})
}

func (s *Server) tickLoop() {
	ticker := time.NewTicker(s.opts.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Hub.Tick()
		case <-s.done:
			return
		}
	}
}

// Run starts the hub and HTTP server and blocks until Shutdown.
func (s *Server) Run() error {
	s.Start()
	s.logger.Info("fake server listening", zap.String("addr", s.Addr))
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the HTTP server and the hub.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.done) })
	s.Hub.Stop()
	return s.http.Shutdown(ctx)
}

// handleWebSocket upgrades the connection, runs the login handshake, and
// registers the client with the hub on success.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // allow all origins for development
	})
	if err != nil {
		s.logger.Warn("websocket upgrade error", zap.Error(err))
		return
	}
	remoteAddr := r.RemoteAddr
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		remoteAddr = host
	}
	s.logger.Debug("websocket connected", zap.String("remote", remoteAddr))

	username, soulID, ok := s.login(r.Context(), conn)
	if !ok {
		return
	}
	token := uuid.NewString()
	ctx, cancel := context.WithTimeout(r.Context(), writeWait)
	err = conn.Write(ctx, websocket.MessageText, []byte(token))
	cancel()
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, "login reply failed")
		return
	}

	client := NewClient(s.Hub, conn, username, soulID, token)
	select {
	case s.Hub.register <- client:
	case <-s.done:
		_ = conn.Close(websocket.StatusGoingAway, "shutting down")
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

// login reads the first message and validates it as a Login command. On
// rejection the reject reply is sent and the connection closed.
func (s *Server) login(ctx context.Context, conn *websocket.Conn) (username, soulID string, ok bool) {
	readCtx, cancel := context.WithTimeout(ctx, loginWait)
	defer cancel()

	_, message, err := conn.Read(readCtx)
	if err != nil {
		s.logger.Debug("no login received", zap.Error(err))
		return "", "", false
	}
	if s.opts.SilentLogin {
		// Hold the connection open without answering until the client leaves.
		_, _, _ = conn.Read(ctx)
		return "", "", false
	}

	env, err := protocol.Unmarshal(message)
	if err == nil && strings.EqualFold(env.Type, protocol.KindLogin) {
		payload, perr := protocol.DecodePayload(env.Payload)
		if perr == nil {
			username, _ = payload[protocol.UsernameKey].(string)
			soulID, _ = payload[protocol.SoulIDKey].(string)
		}
	}
	if strings.TrimSpace(username) == "" || strings.TrimSpace(soulID) == "" {
		s.logger.Info("login rejected")
		writeCtx, cancel := context.WithTimeout(ctx, writeWait)
		_ = conn.Write(writeCtx, websocket.MessageText, []byte(RejectReply))
		cancel()
		_ = conn.Close(websocket.StatusNormalClosure, RejectReply)
		return "", "", false
	}
	s.logger.Info("login accepted", zap.String("username", username))
	return username, soulID, true
}
