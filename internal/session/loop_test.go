package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"vinnyverse-client/internal/protocol"
	"vinnyverse-client/internal/transport"
)

const (
	testPoll  = 20 * time.Millisecond
	testLogin = 200 * time.Millisecond
	waitLimit = 2 * time.Second
)

type harness struct {
	t        *testing.T
	pipe     *transport.Pipe
	sess     *Session
	events   chan Event
	commands chan string
	cancel   context.CancelFunc
	done     chan Result
	finished chan struct{}
}

func startLoop(t *testing.T, reply string) *harness {
	t.Helper()
	h := &harness{
		t:        t,
		pipe:     transport.NewPipe(16),
		sess:     New("alice", "s1"),
		events:   make(chan Event, 64),
		commands: make(chan string, 16),
		done:     make(chan Result, 1),
		finished: make(chan struct{}),
	}
	if reply != "" {
		h.pipe.Push(transport.Frame{Kind: transport.FrameText, Data: []byte(reply)})
	}
	loop := NewLoop(Config{LoginTimeout: testLogin, PollInterval: testPoll}, h.events, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() {
		defer close(h.finished)
		h.done <- loop.Run(ctx, h.pipe.Dialer(), h.sess, h.commands)
	}()
	// The loop logs through t, so it must be finished before the test is.
	t.Cleanup(func() {
		cancel()
		<-h.finished
	})
	return h
}

func (h *harness) sent() map[string]any {
	h.t.Helper()
	select {
	case b := <-h.pipe.Sent():
		var msg map[string]any
		require.NoError(h.t, json.Unmarshal(b, &msg))
		return msg
	case <-time.After(waitLimit):
		h.t.Fatal("nothing sent")
		return nil
	}
}

func (h *harness) waitEvent(kind EventKind) Event {
	h.t.Helper()
	deadline := time.After(waitLimit)
	for {
		select {
		case ev := <-h.events:
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			h.t.Fatalf("no %s event", kind)
			return Event{}
		}
	}
}

func (h *harness) waitStatus(status Status) {
	h.t.Helper()
	deadline := time.After(waitLimit)
	for {
		select {
		case ev := <-h.events:
			if ev.Kind == EventStatus && ev.State.Status == status {
				return
			}
		case <-deadline:
			h.t.Fatalf("never reached %s (now %s)", status, h.sess.State())
		}
	}
}

func (h *harness) result() Result {
	h.t.Helper()
	select {
	case res := <-h.done:
		return res
	case <-time.After(waitLimit):
		h.t.Fatal("loop did not terminate")
		return Result{}
	}
}

func TestLoop_LoginSucceeds(t *testing.T) {
	h := startLoop(t, validToken)

	login := h.sent()
	assert.Equal(t, "Login", login["type"])
	assert.Equal(t, map[string]any{"username": "alice", "soul_id": "s1"}, login["payload"])

	h.waitStatus(Active)
	tok, ok := h.sess.Credential()
	require.True(t, ok)
	assert.Equal(t, validToken, tok)

	h.cancel()
	res := h.result()
	assert.Equal(t, UserQuit, res.Reason)
	assert.Equal(t, Closed, res.State.Status)
	assert.Equal(t, 1, h.pipe.Closes())
}

func TestLoop_LoginRejected(t *testing.T) {
	h := startLoop(t, "bad credentials")
	h.sent()

	res := h.result()
	assert.Equal(t, LoginFailed, res.Reason)
	assert.Equal(t, State{Status: Failed, Reason: ReasonLoginRejected}, res.State)
	assert.ErrorIs(t, res.Err, ErrLoginRejected)
	assert.Equal(t, "bad credentials", res.Reply)
	assert.Equal(t, 1, h.pipe.Closes())

	h.commands <- `Build {"X":1}`
	select {
	case b := <-h.pipe.Sent():
		t.Fatalf("sent %s after failed login", b)
	case <-time.After(2 * testPoll):
	}
}

func TestLoop_LoginTimeout(t *testing.T) {
	h := startLoop(t, "")
	h.sent()

	res := h.result()
	assert.Equal(t, LoginFailed, res.Reason)
	assert.ErrorIs(t, res.Err, ErrLoginTimeout)
	assert.Equal(t, State{Status: Failed, Reason: ReasonLoginTimeout}, res.State)
	assert.Equal(t, 1, h.pipe.Closes())
}

func TestLoop_DialFailure(t *testing.T) {
	loop := NewLoop(Config{}, nil, zaptest.NewLogger(t))
	dial := func(context.Context) (transport.Conn, error) { return nil, errors.New("refused") }

	res := loop.Run(context.Background(), dial, New("alice", "s1"), nil)
	assert.Equal(t, TransportError, res.Reason)
	assert.ErrorIs(t, res.Err, ErrTransport)
	assert.Equal(t, Failed, res.State.Status)
}

func TestLoop_CommandsCarryCredentialInOrder(t *testing.T) {
	h := startLoop(t, validToken)
	h.sent()
	h.waitStatus(Active)

	h.commands <- `Build {"block_type":"Tissue","X":0,"Y":-1,"dir":"N","power":50}`
	h.commands <- `Activate {"delay":1,"X":0,"Y":-2,"power":50,"soul_id":"forged"}`
	h.commands <- `ReadBrain`

	for _, kind := range []string{"Build", "Activate", "ReadBrain"} {
		msg := h.sent()
		assert.Equal(t, kind, msg["type"])
		assert.Equal(t, validToken, msg["payload"].(map[string]any)["soul_id"])
	}

	h.commands <- "quit"
	res := h.result()
	assert.Equal(t, UserQuit, res.Reason)
	assert.Equal(t, Closed, res.State.Status)
	assert.Equal(t, 1, h.pipe.Closes())
}

func TestLoop_MalformedCommandDoesNotEndSession(t *testing.T) {
	h := startLoop(t, validToken)
	h.sent()
	h.waitStatus(Active)

	h.commands <- `Build [1,2]`
	ev := h.waitEvent(EventCommandError)
	assert.ErrorIs(t, ev.Err, protocol.ErrMalformedCommand)
	assert.Contains(t, ev.Message(), protocol.CommandFormat)

	h.commands <- `Build {"X":2}`
	assert.Equal(t, "Build", h.sent()["type"])
	assert.Equal(t, Active, h.sess.Status())
}

func TestLoop_SnapshotsAndNotices(t *testing.T) {
	h := startLoop(t, validToken)
	h.sent()
	h.waitStatus(Active)

	h.pipe.Push(transport.Frame{Kind: transport.FrameBinary, Data: []byte(`{"not":"a snapshot"}`)})
	bad := h.waitEvent(EventFrameError)
	assert.ErrorIs(t, bad.Err, protocol.ErrMalformedSnapshot)

	h.pipe.Push(transport.Frame{Kind: transport.FrameText, Data: []byte("Cell at (1, 1) is not empty")})
	notice := h.waitEvent(EventNotice)
	assert.Equal(t, "Cell at (1, 1) is not empty", notice.Text)

	h.pipe.Push(transport.Frame{Kind: transport.FrameBinary, Data: []byte(`[{"x":1,"y":2,"content":{"WorldCell":128}}]`)})
	ev := h.waitEvent(EventSnapshot)
	require.Equal(t, 1, ev.Snapshot.Len())
	assert.Equal(t, protocol.Cell{X: 1, Y: 2, Content: protocol.Terrain{Intensity: 128}}, ev.Snapshot.At(0))

	assert.Equal(t, Active, h.sess.Status())
}

func TestLoop_ServerClose(t *testing.T) {
	h := startLoop(t, validToken)
	h.sent()
	h.waitStatus(Active)

	h.pipe.Hangup(true)
	res := h.result()
	assert.Equal(t, ServerClosed, res.Reason)
	assert.ErrorIs(t, res.Err, ErrConnectionClosed)
	assert.Equal(t, Closed, res.State.Status)
	assert.Equal(t, 1, h.pipe.Closes())
}

func TestLoop_TransportFailure(t *testing.T) {
	h := startLoop(t, validToken)
	h.sent()
	h.waitStatus(Active)

	h.pipe.Hangup(false)
	res := h.result()
	assert.Equal(t, TransportError, res.Reason)
	assert.ErrorIs(t, res.Err, ErrTransport)
	assert.Equal(t, Closed, res.State.Status)
}

func TestLoop_CancelObservedWithinPollInterval(t *testing.T) {
	h := startLoop(t, validToken)
	h.sent()
	h.waitStatus(Active)

	// Let the inbound activity settle into a poll.
	time.Sleep(testPoll / 2)
	start := time.Now()
	h.cancel()
	res := h.result()

	assert.Less(t, time.Since(start), testPoll+50*time.Millisecond)
	assert.Equal(t, UserQuit, res.Reason)
	assert.Equal(t, Closed, res.State.Status)
	assert.Equal(t, 1, h.pipe.Closes())
}

func TestLoop_ClosedCommandSourceQuits(t *testing.T) {
	h := startLoop(t, validToken)
	h.sent()
	h.waitStatus(Active)

	close(h.commands)
	res := h.result()
	assert.Equal(t, UserQuit, res.Reason)
}

func TestIsQuit(t *testing.T) {
	for _, line := range []string{"exit", "quit", " QUIT ", "Exit"} {
		assert.True(t, IsQuit(line), line)
	}
	for _, line := range []string{"", "quitter", "exit now", "Build"} {
		assert.False(t, IsQuit(line), line)
	}
}
