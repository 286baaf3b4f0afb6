// Package transport carries session frames between the client and the game
// server. Conn is implemented over a WebSocket for real play and by Pipe for
// tests.
package transport

import (
	"context"
	"errors"
)

// ErrClosed is returned by Receive and Send once the connection has closed.
// Errors wrapping ErrClosed for a clean closure also satisfy IsNormalClosure.
var ErrClosed = errors.New("connection closed")

// FrameKind distinguishes text and binary frames.
type FrameKind int

const (
	// FrameText is a UTF-8 text frame.
	FrameText FrameKind = iota
	// FrameBinary is an opaque binary frame.
	FrameBinary
)

func (k FrameKind) String() string {
	if k == FrameBinary {
		return "binary"
	}
	return "text"
}

// Frame is one message received from the server.
type Frame struct {
	Kind FrameKind
	Data []byte
}

// Conn is a message connection shared by one sender and one receiver.
// Send and Receive may be called concurrently with each other; Close may be
// called from any goroutine.
type Conn interface {
	// Send writes one text frame. It must not be called concurrently with itself.
	Send(ctx context.Context, data []byte) error
	// Receive blocks until a frame arrives, the connection closes, or ctx is
	// done. A ctx expiry leaves the connection usable.
	Receive(ctx context.Context) (Frame, error)
	// Close closes the connection. Calls after the first are no-ops.
	Close() error
}

// Dialer opens a Conn.
type Dialer func(ctx context.Context) (Conn, error)

// closeError marks a closure as clean (server said goodbye) or not.
type closeError struct {
	normal bool
	cause  error
}

func (e *closeError) Error() string {
	if e.cause == nil {
		return ErrClosed.Error()
	}
	return ErrClosed.Error() + ": " + e.cause.Error()
}

func (e *closeError) Is(target error) bool { return target == ErrClosed }

func (e *closeError) Unwrap() error { return e.cause }

// IsNormalClosure reports whether err is a clean closure of the connection,
// as opposed to a network failure.
func IsNormalClosure(err error) bool {
	var ce *closeError
	if errors.As(err, &ce) {
		return ce.normal
	}
	return false
}
