package transport

import (
	"context"
	"errors"
	"sync"
)

// Pipe is an in-memory Conn. The session side uses the Conn methods; the
// peer side (a test or a scripted server) uses Push, Sent and Hangup.
type Pipe struct {
	inbound  chan Frame
	outbound chan []byte
	closed   chan struct{}

	mu       sync.Mutex
	closeErr error
	closes   int
}

// NewPipe returns a Pipe whose queues hold up to buffer frames each way.
func NewPipe(buffer int) *Pipe {
	return &Pipe{
		inbound:  make(chan Frame, buffer),
		outbound: make(chan []byte, buffer),
		closed:   make(chan struct{}),
	}
}

// Dialer returns a Dialer that hands out this pipe.
func (p *Pipe) Dialer() Dialer {
	return func(context.Context) (Conn, error) { return p, nil }
}

// Send queues data for the peer.
func (p *Pipe) Send(ctx context.Context, data []byte) error {
	select {
	case <-p.closed:
		return p.err()
	default:
	}
	select {
	case p.outbound <- append([]byte(nil), data...):
		return nil
	case <-p.closed:
		return p.err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive returns the next frame pushed by the peer.
func (p *Pipe) Receive(ctx context.Context) (Frame, error) {
	select {
	case f := <-p.inbound:
		return f, nil
	default:
	}
	select {
	case f := <-p.inbound:
		return f, nil
	case <-p.closed:
		return Frame{}, p.err()
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

// Close closes the pipe from the session side.
func (p *Pipe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closes++
	if p.closeErr == nil {
		p.closeErr = &closeError{normal: true}
		close(p.closed)
	}
	return nil
}

// Closes reports how many times Close was called.
func (p *Pipe) Closes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closes
}

// Push delivers a frame to the session side.
func (p *Pipe) Push(f Frame) {
	p.inbound <- f
}

// Sent exposes frames written by the session side.
func (p *Pipe) Sent() <-chan []byte {
	return p.outbound
}

// Hangup closes the pipe from the peer side. normal selects a clean closure
// over a network failure.
func (p *Pipe) Hangup(normal bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closeErr != nil {
		return
	}
	cause := errors.New("peer reset")
	if normal {
		cause = nil
	}
	p.closeErr = &closeError{normal: normal, cause: cause}
	close(p.closed)
}

func (p *Pipe) err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeErr
}
