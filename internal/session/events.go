package session

import (
	"errors"
	"fmt"

	"vinnyverse-client/internal/protocol"
)

var (
	// ErrLoginTimeout is returned when the server does not answer the login
	// request within the configured timeout.
	ErrLoginTimeout = errors.New("login timeout")
	// ErrLoginRejected is returned when the login reply is not a token.
	ErrLoginRejected = errors.New("login rejected")
	// ErrTransport wraps connection failures.
	ErrTransport = errors.New("transport error")
	// ErrConnectionClosed is returned when the server closes the connection.
	ErrConnectionClosed = errors.New("connection closed by server")
)

// EventKind discriminates events published to the renderer.
type EventKind int

const (
	// EventStatus carries a session state change.
	EventStatus EventKind = iota
	// EventSnapshot carries a decoded world snapshot.
	EventSnapshot
	// EventNotice carries an out-of-band text line from the server.
	EventNotice
	// EventCommandError reports a user command that could not be sent.
	EventCommandError
	// EventFrameError reports an inbound frame that could not be decoded.
	EventFrameError
)

func (k EventKind) String() string {
	switch k {
	case EventStatus:
		return "status"
	case EventSnapshot:
		return "snapshot"
	case EventNotice:
		return "notice"
	case EventCommandError:
		return "command_error"
	case EventFrameError:
		return "frame_error"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is a single update for the renderer.
type Event struct {
	Kind     EventKind
	State    State
	Snapshot protocol.Snapshot
	Text     string
	Err      error
}

// Message renders the event as a single human-readable line.
func (e Event) Message() string {
	switch e.Kind {
	case EventStatus:
		return "session " + e.State.String()
	case EventSnapshot:
		return fmt.Sprintf("snapshot with %d cells", e.Snapshot.Len())
	case EventNotice:
		return e.Text
	case EventCommandError:
		return fmt.Sprintf("Error: %v\nFormat: %s", e.Err, protocol.CommandFormat)
	case EventFrameError:
		return fmt.Sprintf("bad frame: %v", e.Err)
	}
	return e.Kind.String()
}

// Reason is why a loop run ended.
type Reason int

const (
	UserQuit Reason = iota
	ServerClosed
	LoginFailed
	TransportError
)

func (r Reason) String() string {
	switch r {
	case UserQuit:
		return "user quit"
	case ServerClosed:
		return "server closed"
	case LoginFailed:
		return "login failed"
	case TransportError:
		return "transport error"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// Result describes how a loop run ended. Reply holds the raw login reply
// when the handshake was rejected.
type Result struct {
	Reason Reason
	State  State
	Err    error
	Reply  string
}
