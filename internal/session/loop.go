package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"vinnyverse-client/internal/protocol"
	"vinnyverse-client/internal/transport"
)

const (
	DefaultLoginTimeout = 750 * time.Millisecond
	DefaultPollInterval = 50 * time.Millisecond
)

// errUserQuit ends the concurrent phase without an error.
var errUserQuit = errors.New("user quit")

// Config tunes a Loop. Zero values select the defaults.
type Config struct {
	// LoginTimeout bounds the wait for the login reply.
	LoginTimeout time.Duration
	// PollInterval bounds each receive attempt and therefore how quickly
	// cancellation is observed.
	PollInterval time.Duration
}

// Loop drives one session over one connection.
type Loop struct {
	cfg    Config
	events chan<- Event
	logger *zap.Logger
}

// NewLoop returns a Loop publishing to events. events may be nil for a
// headless run; a slow consumer delays the inbound activity, never the
// caller's render loop.
func NewLoop(cfg Config, events chan<- Event, logger *zap.Logger) *Loop {
	if cfg.LoginTimeout <= 0 {
		cfg.LoginTimeout = DefaultLoginTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{cfg: cfg, events: events, logger: logger}
}

// Run opens a connection, logs sess in, then sends commands and receives
// snapshots until ctx is cancelled, the user quits, or the connection ends.
// The connection is closed exactly once before Run returns.
//
// Precondition: sess is Disconnected and not shared with another Run.
func (l *Loop) Run(ctx context.Context, dial transport.Dialer, sess *Session, commands <-chan string) Result {
	logger := l.logger.With(zap.String("username", sess.Username))

	if _, err := l.apply(ctx, sess, Trigger{Kind: LoginRequested}); err != nil {
		return Result{Reason: LoginFailed, State: sess.State(), Err: err}
	}

	start := time.Now()
	raw, err := dial(ctx)
	if err != nil {
		logger.Error("opening connection", zap.Error(err))
		l.apply(ctx, sess, Trigger{Kind: Fail, Reason: ReasonTransport})
		return Result{Reason: TransportError, State: sess.State(), Err: fmt.Errorf("%w: %v", ErrTransport, err)}
	}
	conn := &onceConn{Conn: raw}
	logger.Info("connected", zap.Duration("elapsed", time.Since(start)))

	res, ok := l.handshake(ctx, conn, sess, logger)
	if ok {
		res = l.serve(ctx, conn, sess, commands, logger)
	}

	if err := conn.Close(); err != nil {
		logger.Debug("closing connection", zap.Error(err))
	}
	res.State = sess.State()
	logger.Info("session ended",
		zap.Stringer("reason", res.Reason),
		zap.Stringer("state", res.State),
		zap.Duration("uptime", time.Since(start)),
	)
	return res
}

// handshake sends the login command and waits for exactly one reply. ok is
// true when the session became Active.
func (l *Loop) handshake(ctx context.Context, conn transport.Conn, sess *Session, logger *zap.Logger) (Result, bool) {
	login, err := protocol.EncodeCommand(protocol.LoginCommand(sess.Username, sess.SoulID), nil)
	if err != nil {
		l.apply(ctx, sess, Trigger{Kind: Fail, Reason: ReasonLoginRejected})
		return Result{Reason: LoginFailed, Err: err}, false
	}
	if err := conn.Send(ctx, login); err != nil {
		return l.interrupted(ctx, sess, err), false
	}
	logger.Debug("login sent", zap.String("soul_id", sess.SoulID))

	replyCtx, cancel := context.WithTimeout(ctx, l.cfg.LoginTimeout)
	frame, err := conn.Receive(replyCtx)
	cancel()
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("login timed out", zap.Duration("timeout", l.cfg.LoginTimeout))
			l.apply(ctx, sess, Trigger{Kind: Fail, Reason: ReasonLoginTimeout})
			return Result{Reason: LoginFailed, Err: ErrLoginTimeout}, false
		}
		return l.interrupted(ctx, sess, err), false
	}

	reply := string(frame.Data)
	state, err := l.apply(ctx, sess, Trigger{Kind: CredentialReceived, Reply: reply})
	if err != nil || state.Status != Active {
		logger.Warn("login rejected", zap.String("reply", strings.TrimSpace(reply)))
		return Result{
			Reason: LoginFailed,
			Err:    fmt.Errorf("%w: %q", ErrLoginRejected, strings.TrimSpace(reply)),
			Reply:  reply,
		}, false
	}
	logger.Info("logged in")
	return Result{}, true
}

// interrupted maps a handshake I/O error to a result.
func (l *Loop) interrupted(ctx context.Context, sess *Session, err error) Result {
	switch {
	case ctx.Err() != nil:
		l.apply(ctx, sess, Trigger{Kind: Cancel})
		return Result{Reason: UserQuit}
	case transport.IsNormalClosure(err):
		l.apply(ctx, sess, Trigger{Kind: ConnectionClosed})
		return Result{Reason: LoginFailed, Err: fmt.Errorf("%w: %v", ErrConnectionClosed, err)}
	default:
		l.apply(ctx, sess, Trigger{Kind: Fail, Reason: ReasonTransport})
		return Result{Reason: TransportError, Err: fmt.Errorf("%w: %v", ErrTransport, err)}
	}
}

// serve runs the outbound and inbound activities until one of them ends.
func (l *Loop) serve(ctx context.Context, conn transport.Conn, sess *Session, commands <-chan string, logger *zap.Logger) Result {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return l.outbound(gctx, conn, sess, commands, logger) })
	g.Go(func() error { return l.inbound(gctx, conn, logger) })
	err := g.Wait()

	switch {
	case err == nil || errors.Is(err, errUserQuit):
		l.apply(ctx, sess, Trigger{Kind: Cancel})
		return Result{Reason: UserQuit}
	case transport.IsNormalClosure(err):
		logger.Info("server closed the connection")
		l.apply(ctx, sess, Trigger{Kind: ConnectionClosed})
		return Result{Reason: ServerClosed, Err: fmt.Errorf("%w: %v", ErrConnectionClosed, err)}
	default:
		logger.Error("connection failed", zap.Error(err))
		l.apply(ctx, sess, Trigger{Kind: ConnectionClosed})
		return Result{Reason: TransportError, Err: fmt.Errorf("%w: %v", ErrTransport, err)}
	}
}

// outbound encodes and sends commands in submission order. It returns
// errUserQuit on exit/quit or when commands is closed.
func (l *Loop) outbound(ctx context.Context, conn transport.Conn, sess *Session, commands <-chan string, logger *zap.Logger) error {
	for {
		var line string
		select {
		case <-ctx.Done():
			return nil
		case next, ok := <-commands:
			if !ok {
				return errUserQuit
			}
			line = strings.TrimSpace(next)
		}
		if line == "" {
			continue
		}
		if IsQuit(line) {
			logger.Info("quit requested")
			return errUserQuit
		}

		data, err := protocol.Encode(line, sess)
		if err != nil {
			logger.Warn("rejecting command", zap.String("line", line), zap.Error(err))
			l.publish(ctx, Event{Kind: EventCommandError, Text: line, Err: err})
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
		if err := conn.Send(ctx, data); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		logger.Debug("command sent", zap.Int("bytes", len(data)))
	}
}

// inbound polls for frames, yielding every PollInterval to observe ctx.
func (l *Loop) inbound(ctx context.Context, conn transport.Conn, logger *zap.Logger) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		pollCtx, cancel := context.WithTimeout(ctx, l.cfg.PollInterval)
		frame, err := conn.Receive(pollCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			return err
		}
		l.handleFrame(ctx, frame, logger)
	}
}

// handleFrame publishes a snapshot, a notice, or a frame error. Binary frames
// must be snapshots; text frames that are not snapshots are notices.
func (l *Loop) handleFrame(ctx context.Context, frame transport.Frame, logger *zap.Logger) {
	snap, err := protocol.DecodeSnapshot(frame.Data)
	if err == nil {
		logger.Debug("snapshot received", zap.Int("cells", snap.Len()))
		l.publish(ctx, Event{Kind: EventSnapshot, Snapshot: snap})
		return
	}
	if frame.Kind == transport.FrameText {
		text := strings.TrimSpace(string(frame.Data))
		logger.Info("server message", zap.String("text", text))
		l.publish(ctx, Event{Kind: EventNotice, Text: text})
		return
	}
	logger.Warn("dropping undecodable frame", zap.Stringer("kind", frame.Kind), zap.Error(err))
	l.publish(ctx, Event{Kind: EventFrameError, Err: err})
}

// apply transitions sess and publishes the new state.
func (l *Loop) apply(ctx context.Context, sess *Session, t Trigger) (State, error) {
	state, err := sess.Apply(t)
	if err != nil {
		l.logger.Debug("ignoring transition", zap.Stringer("trigger", t.Kind), zap.Error(err))
		return state, err
	}
	l.publish(ctx, Event{Kind: EventStatus, State: state})
	return state, nil
}

// publish delivers ev, waiting while ctx is live. Once ctx is done the event
// is only delivered if there is room.
func (l *Loop) publish(ctx context.Context, ev Event) {
	if l.events == nil {
		return
	}
	select {
	case l.events <- ev:
		return
	case <-ctx.Done():
	}
	select {
	case l.events <- ev:
	default:
		l.logger.Debug("event dropped after cancellation", zap.Stringer("kind", ev.Kind))
	}
}

// IsQuit reports whether a command line asks to end the session.
func IsQuit(line string) bool {
	line = strings.TrimSpace(line)
	return strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit")
}

// onceConn makes Close idempotent.
type onceConn struct {
	transport.Conn
	once sync.Once
	err  error
}

func (c *onceConn) Close() error {
	c.once.Do(func() { c.err = c.Conn.Close() })
	return c.err
}
