package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_CredentialSetOnceOnLogin(t *testing.T) {
	s := New("alice", "s1")
	_, ok := s.Credential()
	assert.False(t, ok)

	_, err := s.Apply(Trigger{Kind: LoginRequested})
	require.NoError(t, err)
	_, ok = s.ActiveCredential()
	assert.False(t, ok, "no credential while authenticating")

	state, err := s.Apply(Trigger{Kind: CredentialReceived, Reply: validToken + "\n"})
	require.NoError(t, err)
	assert.Equal(t, Active, state.Status)

	tok, ok := s.ActiveCredential()
	require.True(t, ok)
	assert.Equal(t, validToken, tok)

	_, err = s.Apply(Trigger{Kind: CredentialReceived, Reply: "11111111-2222-3333-4444-555555555555"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	tok, _ = s.Credential()
	assert.Equal(t, validToken, tok)
}

func TestSession_ClosedSessionKeepsCredentialButIsInactive(t *testing.T) {
	s := New("alice", "s1")
	_, _ = s.Apply(Trigger{Kind: LoginRequested})
	_, _ = s.Apply(Trigger{Kind: CredentialReceived, Reply: validToken})
	_, err := s.Apply(Trigger{Kind: ConnectionClosed})
	require.NoError(t, err)

	assert.Equal(t, Closed, s.Status())
	_, ok := s.ActiveCredential()
	assert.False(t, ok)
	tok, ok := s.Credential()
	assert.True(t, ok)
	assert.Equal(t, validToken, tok)

	_, err = s.Apply(Trigger{Kind: Cancel})
	assert.ErrorIs(t, err, ErrTerminal)
}

func TestSession_RejectedLoginStoresNothing(t *testing.T) {
	s := New("alice", "s1")
	_, _ = s.Apply(Trigger{Kind: LoginRequested})
	state, err := s.Apply(Trigger{Kind: CredentialReceived, Reply: "bad credentials"})
	require.NoError(t, err)
	assert.Equal(t, State{Status: Failed, Reason: ReasonLoginRejected}, state)
	_, ok := s.Credential()
	assert.False(t, ok)
}
