package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

const (
	defaultWriteWait      = 10 * time.Second
	defaultCloseWait      = 50 * time.Millisecond
	defaultMaxMessageSize = 1 << 20
	frameBufferSize       = 64
)

// WebSocketOptions tunes a WebSocket connection. Zero values select defaults.
type WebSocketOptions struct {
	// WriteTimeout bounds a single Send.
	WriteTimeout time.Duration
	// CloseTimeout bounds the wait for the peer's close frame. After it the
	// connection is dropped without completing the handshake.
	CloseTimeout time.Duration
	// ReadLimit is the largest frame accepted from the server, in bytes.
	ReadLimit int64
	Logger    *zap.Logger
}

// WebSocket is a Conn over github.com/coder/websocket. A dedicated goroutine
// reads frames into a buffered channel so that Receive can give up on a
// deadline without tearing down the connection.
type WebSocket struct {
	conn         *websocket.Conn
	logger       *zap.Logger
	writeTimeout time.Duration
	closeTimeout time.Duration

	readCtx context.Context
	abort   context.CancelFunc
	frames  chan Frame
	closing chan struct{}
	done    chan struct{}
	err     error // set before done is closed

	closeOnce sync.Once
	closeErr  error
}

// DialWebSocket connects to url and starts the read pump.
func DialWebSocket(ctx context.Context, url string, opts WebSocketOptions) (*WebSocket, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	return NewWebSocket(conn, opts), nil
}

// WebSocketDialer returns a Dialer for url.
func WebSocketDialer(url string, opts WebSocketOptions) Dialer {
	return func(ctx context.Context) (Conn, error) {
		ws, err := DialWebSocket(ctx, url, opts)
		if err != nil {
			return nil, err
		}
		return ws, nil
	}
}

// NewWebSocket wraps an established connection and starts the read pump.
func NewWebSocket(conn *websocket.Conn, opts WebSocketOptions) *WebSocket {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteWait
	}
	if opts.CloseTimeout <= 0 {
		opts.CloseTimeout = defaultCloseWait
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = defaultMaxMessageSize
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	conn.SetReadLimit(opts.ReadLimit)

	// Cancelling readCtx makes the library drop the underlying connection.
	readCtx, abort := context.WithCancel(context.Background())
	w := &WebSocket{
		conn:         conn,
		logger:       opts.Logger,
		writeTimeout: opts.WriteTimeout,
		closeTimeout: opts.CloseTimeout,
		readCtx:      readCtx,
		abort:        abort,
		frames:       make(chan Frame, frameBufferSize),
		closing:      make(chan struct{}),
		done:         make(chan struct{}),
	}
	go w.readPump()
	return w
}

func (w *WebSocket) readPump() {
	w.logger.Debug("read pump started")
	defer func() {
		close(w.done)
		w.logger.Debug("read pump stopped")
	}()

	for {
		msgType, data, err := w.conn.Read(w.readCtx)
		if err != nil {
			status := websocket.CloseStatus(err)
			normal := status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway
			select {
			case <-w.closing:
				normal = true
			default:
			}
			if !normal {
				w.logger.Warn("websocket read error", zap.Error(err))
			}
			w.err = &closeError{normal: normal, cause: err}
			return
		}

		kind := FrameText
		if msgType == websocket.MessageBinary {
			kind = FrameBinary
		}
		select {
		case w.frames <- Frame{Kind: kind, Data: data}:
		case <-w.closing:
			w.err = &closeError{normal: true}
			return
		}
	}
}

// Send writes data as a single text frame.
func (w *WebSocket) Send(ctx context.Context, data []byte) error {
	select {
	case <-w.done:
		return w.err
	case <-w.closing:
		return &closeError{normal: true}
	default:
	}

	ctx, cancel := context.WithTimeout(ctx, w.writeTimeout)
	defer cancel()
	if err := w.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

// Receive returns the next frame, buffered frames first.
func (w *WebSocket) Receive(ctx context.Context) (Frame, error) {
	select {
	case f := <-w.frames:
		return f, nil
	default:
	}

	select {
	case f := <-w.frames:
		return f, nil
	case <-w.done:
		select {
		case f := <-w.frames:
			return f, nil
		default:
		}
		return Frame{}, w.err
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

// Close performs the WebSocket closing handshake once and waits for the
// read pump to exit. A peer that does not answer within CloseTimeout has its
// connection dropped.
func (w *WebSocket) Close() error {
	w.closeOnce.Do(func() {
		close(w.closing)
		closed := make(chan error, 1)
		go func() { closed <- w.conn.Close(websocket.StatusNormalClosure, "") }()

		timer := time.NewTimer(w.closeTimeout)
		defer timer.Stop()
		select {
		case w.closeErr = <-closed:
		case <-timer.C:
			w.logger.Debug("close handshake timed out", zap.Duration("timeout", w.closeTimeout))
			w.abort()
			w.closeErr = <-closed
		}
		w.abort()
		<-w.done
	})
	return w.closeErr
}
