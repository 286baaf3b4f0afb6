package session

import (
	"sync"
)

// Session is the per-connection player session. The loop is its only writer;
// renderers and the command codec read it concurrently.
type Session struct {
	Username string
	SoulID   string

	mu         sync.RWMutex
	state      State
	credential string
}

// New returns a Disconnected session for the given player.
func New(username, soulID string) *Session {
	return &Session{Username: username, SoulID: soulID}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Status returns the current status.
func (s *Session) Status() Status {
	return s.State().Status
}

// Credential returns the server-issued token, once login has succeeded.
// It stays available after the session closes.
func (s *Session) Credential() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential, s.credential != ""
}

// ActiveCredential implements protocol.Credentials: the token is only
// usable while the session is Active.
func (s *Session) ActiveCredential() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.Status != Active || s.credential == "" {
		return "", false
	}
	return s.credential, true
}

// Apply runs t through Next and stores the result. A successful
// CredentialReceived stores the token; the credential is never replaced.
func (s *Session) Apply(t Trigger) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := Next(s.state, t)
	if err != nil {
		return s.state, err
	}
	if t.Kind == CredentialReceived && next.Status == Active && s.credential == "" {
		token, _ := ParseToken(t.Reply)
		s.credential = token
	}
	s.state = next
	return next, nil
}
