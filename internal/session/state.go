// Package session runs the client side of a game session: the login
// handshake, the session state machine, and the concurrent command/snapshot
// traffic over one connection.
package session

import (
	"errors"
	"fmt"
)

// Status is the coarse connection/auth state of a session.
type Status int

const (
	Disconnected Status = iota
	Authenticating
	Active
	Closed
	Failed
)

func (s Status) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Authenticating:
		return "authenticating"
	case Active:
		return "active"
	case Closed:
		return "closed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Terminal reports whether no transition can leave s.
func (s Status) Terminal() bool {
	return s == Closed || s == Failed
}

// State is a Status plus the failure reason when Status is Failed.
type State struct {
	Status Status
	Reason string
}

func (s State) String() string {
	if s.Status == Failed {
		return fmt.Sprintf("failed(%s)", s.Reason)
	}
	return s.Status.String()
}

// TriggerKind enumerates the inputs of the state machine.
type TriggerKind int

const (
	LoginRequested TriggerKind = iota
	CredentialReceived
	InvalidReply
	ConnectionClosed
	Cancel
	Fail
)

func (k TriggerKind) String() string {
	switch k {
	case LoginRequested:
		return "login_requested"
	case CredentialReceived:
		return "credential_received"
	case InvalidReply:
		return "invalid_reply"
	case ConnectionClosed:
		return "connection_closed"
	case Cancel:
		return "cancel"
	case Fail:
		return "fail"
	default:
		return fmt.Sprintf("trigger(%d)", int(k))
	}
}

// Trigger is one input to Next. Reply is the raw server reply for
// CredentialReceived; Reason is the failure reason for Fail.
type Trigger struct {
	Kind   TriggerKind
	Reply  string
	Reason string
}

// Failure reasons.
const (
	ReasonLoginRejected    = "login rejected"
	ReasonLoginTimeout     = "login timeout"
	ReasonConnectionClosed = "connection closed"
	ReasonTransport        = "transport error"
)

var (
	// ErrTerminal is returned for any trigger applied to Closed or Failed.
	ErrTerminal = errors.New("session is in a terminal state")
	// ErrInvalidTransition is returned when a trigger does not apply to the
	// current state.
	ErrInvalidTransition = errors.New("invalid session transition")
)

// Next is the session transition function. It is pure: on error the returned
// state equals cur.
//
//	Disconnected   --login_requested-->         Authenticating
//	Authenticating --credential_received(tok)--> Active | Failed("login rejected")
//	Authenticating --invalid_reply-->           Failed("login rejected")
//	Active         --connection_closed-->       Closed
//	Disconnected   --connection_closed-->       Closed
//	Authenticating --connection_closed-->       Failed("connection closed")
//	*              --cancel-->                  Closed
//	*              --fail(r)-->                 Failed(r)
func Next(cur State, t Trigger) (State, error) {
	if cur.Status.Terminal() {
		return cur, fmt.Errorf("%w: %s on %s", ErrTerminal, t.Kind, cur)
	}

	switch t.Kind {
	case Cancel:
		return State{Status: Closed}, nil
	case Fail:
		return State{Status: Failed, Reason: t.Reason}, nil
	case ConnectionClosed:
		if cur.Status == Authenticating {
			return State{Status: Failed, Reason: ReasonConnectionClosed}, nil
		}
		return State{Status: Closed}, nil
	}

	switch {
	case cur.Status == Disconnected && t.Kind == LoginRequested:
		return State{Status: Authenticating}, nil
	case cur.Status == Authenticating && t.Kind == CredentialReceived:
		if _, err := ParseToken(t.Reply); err != nil {
			return State{Status: Failed, Reason: ReasonLoginRejected}, nil
		}
		return State{Status: Active}, nil
	case cur.Status == Authenticating && t.Kind == InvalidReply:
		return State{Status: Failed, Reason: ReasonLoginRejected}, nil
	}
	return cur, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, t.Kind, cur)
}
