package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticateSubscribesUserChannel(t *testing.T) {
	hub := createTestHub()
	id, _ := createTestConn(t, hub, "")

	changed, err := hub.Auth().Authenticate(id, "42")
	require.NoError(t, err)
	assert.True(t, changed)

	assert.Equal(t, "42", hub.Registry().Get(id).UserID())
	assert.Equal(t, []string{"user-42"}, hub.Index().ChannelsOf(id))
}

func TestAuthenticateSameUserIsNoop(t *testing.T) {
	hub := createTestHub()
	id, _ := createAuthedConn(t, hub, "42")

	changed, err := hub.Auth().Authenticate(id, "42")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, []string{"user-42"}, hub.Index().ChannelsOf(id))
	assert.Equal(t, []string{id}, hub.Registry().ForUser("42"))
}

func TestAuthenticateDifferentUserMigratesImplicitChannel(t *testing.T) {
	hub := createTestHub()
	id, _ := createAuthedConn(t, hub, "1")
	require.NoError(t, hub.Registry().Subscribe(id, "conversation-9"))

	changed, err := hub.Auth().Authenticate(id, "2")
	require.NoError(t, err)
	assert.True(t, changed)

	assert.ElementsMatch(t, []string{"user-2", "conversation-9"}, hub.Index().ChannelsOf(id))
	assert.Empty(t, hub.Index().SubscribersOf("user-1"))
	assert.Empty(t, hub.Registry().ForUser("1"))
	assert.Equal(t, []string{id}, hub.Registry().ForUser("2"))
}

func TestAuthenticateBeforeHandshake(t *testing.T) {
	hub := createTestHub()
	id := hub.Registry().Register(&mockTransport{}, "")

	_, err := hub.Auth().Authenticate(id, "42")
	assert.ErrorIs(t, err, ErrHandshakeIncomplete)
	assert.Empty(t, hub.Index().ChannelsOf(id))
}

func TestAuthenticateErrors(t *testing.T) {
	hub := createTestHub()
	bound, _ := createTestConn(t, hub, "42")

	tests := []struct {
		name    string
		connID  string
		userID  string
		wantErr error
	}{
		{name: "empty user", connID: bound, userID: "", wantErr: ErrEmptyUserID},
		{name: "unknown connection", connID: "missing", userID: "42", wantErr: ErrConnectionNotFound},
		{name: "identity mismatch", connID: bound, userID: "43", wantErr: ErrIdentityMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := hub.Auth().Authenticate(tt.connID, tt.userID)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := hub.Auth().Authenticate(bound, "42")
	assert.NoError(t, err)
}
