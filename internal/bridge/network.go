// Package bridge connects a frame-driven renderer to the session loop. The
// renderer calls Login, Submit and Quit from its update function and drains
// events once per frame; none of these block on network I/O.
package bridge

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"vinnyverse-client/internal/protocol"
	"vinnyverse-client/internal/session"
	"vinnyverse-client/internal/transport"
)

var (
	// ErrRunning is returned by Login while a session is still running.
	ErrRunning = errors.New("session already running")
	// ErrNotRunning is returned by Submit when no session is running.
	ErrNotRunning = errors.New("no session running")
	// ErrBusy is returned by Submit when the command queue is full.
	ErrBusy = errors.New("command queue full")
)

const (
	defaultCommandBuffer = 64
	defaultEventBuffer   = 256
)

// Options configures a Network. Zero values select defaults.
type Options struct {
	Session       session.Config
	CommandBuffer int
	EventBuffer   int
	Logger        *zap.Logger
}

// Network owns at most one running session at a time.
type Network struct {
	dial   transport.Dialer
	opts   Options
	logger *zap.Logger

	mu       sync.Mutex
	sess     *session.Session
	events   chan session.Event
	commands chan string
	cancel   context.CancelFunc
	done     chan struct{}
	result   session.Result
	finished bool
	latest   protocol.Snapshot
}

// New returns an idle Network that opens connections with dial.
func New(dial transport.Dialer, opts Options) *Network {
	if opts.CommandBuffer <= 0 {
		opts.CommandBuffer = defaultCommandBuffer
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = defaultEventBuffer
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Network{
		dial:   dial,
		opts:   opts,
		logger: opts.Logger,
	}
}

// Login starts a new session in the background. It fails with ErrRunning
// while a previous session has not ended. Events still queued from an earlier
// session are discarded.
func (n *Network) Login(username, soulID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.running() {
		return ErrRunning
	}
	if n.cancel != nil {
		n.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess := session.New(username, soulID)
	commands := make(chan string, n.opts.CommandBuffer)
	events := make(chan session.Event, n.opts.EventBuffer)
	done := make(chan struct{})

	n.sess = sess
	n.events = events
	n.commands = commands
	n.cancel = cancel
	n.done = done
	n.finished = false
	n.result = session.Result{}
	n.latest = protocol.Snapshot{}

	loop := session.NewLoop(n.opts.Session, events, n.logger)
	dial := n.dial
	go func() {
		defer close(done)
		res := loop.Run(ctx, dial, sess, commands)
		n.mu.Lock()
		n.result = res
		n.finished = true
		n.mu.Unlock()
	}()
	return nil
}

// Submit queues a raw command line for the running session.
func (n *Network) Submit(line string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.running() {
		return ErrNotRunning
	}
	select {
	case n.commands <- line:
		return nil
	default:
		return ErrBusy
	}
}

// Quit asks the running session to end. It does not wait; Close does.
func (n *Network) Quit() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cancel != nil {
		n.cancel()
	}
}

// Close quits the running session and waits for it to end.
func (n *Network) Close() {
	n.Quit()
	n.mu.Lock()
	done := n.done
	n.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Status returns the state of the current session, Disconnected if none was
// started.
func (n *Network) Status() session.State {
	n.mu.Lock()
	sess := n.sess
	n.mu.Unlock()
	if sess == nil {
		return session.State{Status: session.Disconnected}
	}
	return sess.State()
}

// Result returns the outcome of the last session once it has ended.
func (n *Network) Result() (session.Result, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.result, n.finished
}

// Latest returns the most recent snapshot seen by DrainEvents.
func (n *Network) Latest() protocol.Snapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.latest
}

// DrainEvents returns all events queued by the current session without
// blocking.
func (n *Network) DrainEvents() []session.Event {
	n.mu.Lock()
	events := n.events
	n.mu.Unlock()

	var evs []session.Event
	for {
		select {
		case ev := <-events:
			if ev.Kind == session.EventSnapshot {
				n.mu.Lock()
				if n.events == events {
					n.latest = ev.Snapshot
				}
				n.mu.Unlock()
			}
			evs = append(evs, ev)
		default:
			return evs
		}
	}
}

// running reports whether a session has started and not yet produced its
// result. Callers hold n.mu.
func (n *Network) running() bool {
	return n.done != nil && !n.finished
}
