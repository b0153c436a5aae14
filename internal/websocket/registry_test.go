package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	registry := NewRegistry(NewChannelIndex(), nil, testLogger())
	tr := &mockTransport{}

	id := registry.Register(tr, "")
	require.NotEmpty(t, id)

	conn := registry.Get(id)
	require.NotNil(t, conn)
	assert.Equal(t, id, conn.ID())
	assert.Equal(t, StateOpen, conn.State())
	assert.Equal(t, 1, registry.ConnectionCount())

	other := registry.Register(&mockTransport{}, "")
	assert.NotEqual(t, id, other)
}

func TestRegistryUnregisterIsIdempotent(t *testing.T) {
	index := NewChannelIndex()
	registry := NewRegistry(index, nil, testLogger())
	id := registry.Register(&mockTransport{}, "")
	require.NoError(t, registry.Subscribe(id, "conversation-1"))

	assert.True(t, registry.Unregister(id))
	assert.False(t, registry.Unregister(id))
	assert.False(t, registry.Unregister("never-registered"))

	assert.Nil(t, registry.Get(id))
	assert.Empty(t, index.ChannelsOf(id))
	assert.Empty(t, index.SubscribersOf("conversation-1"))
}

func TestRegistrySubscribeRefusesUnknownConnection(t *testing.T) {
	index := NewChannelIndex()
	registry := NewRegistry(index, nil, testLogger())
	id := registry.Register(&mockTransport{}, "")
	registry.Unregister(id)

	assert.ErrorIs(t, registry.Subscribe(id, "conversation-1"), ErrConnectionNotFound)
	assert.ErrorIs(t, registry.Unsubscribe(id, "conversation-1"), ErrConnectionNotFound)
	assert.Empty(t, index.SubscribersOf("conversation-1"))
}

func TestRegistryUserSetsFollowConnections(t *testing.T) {
	hub := createTestHub()
	registry := hub.Registry()

	a, _ := createAuthedConn(t, hub, "42")
	b, _ := createAuthedConn(t, hub, "42")

	assert.ElementsMatch(t, []string{a, b}, registry.ForUser("42"))
	assert.Equal(t, 1, registry.UserCount())

	registry.Unregister(a)
	assert.Equal(t, []string{b}, registry.ForUser("42"))

	registry.Unregister(b)
	assert.Empty(t, registry.ForUser("42"))
	assert.Equal(t, 0, registry.UserCount())
}

func TestRegistryEvictClosesTransport(t *testing.T) {
	registry := NewRegistry(NewChannelIndex(), nil, testLogger())
	tr := &mockTransport{}
	id := registry.Register(tr, "")

	assert.True(t, registry.Evict(id, websocket.CloseTryAgainLater, "send buffer full"))

	closed, code := tr.isClosed()
	assert.True(t, closed)
	assert.Equal(t, websocket.CloseTryAgainLater, code)
	assert.Nil(t, registry.Get(id))

	assert.False(t, registry.Evict(id, websocket.CloseGoingAway, "again"))
}

func TestRegistryPresenceTransitions(t *testing.T) {
	presence := &fakePresence{}
	hub := NewHub(DefaultHubConfig(), presence, testLogger())
	go hub.Run()
	defer hub.Stop()

	a, _ := createAuthedConn(t, hub, "7")
	b, _ := createAuthedConn(t, hub, "7")
	hub.Registry().Unregister(a)
	hub.Registry().Unregister(b)

	require.Eventually(t, func() bool {
		return len(presence.getEvents()) == 2
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"online:7", "offline:7"}, presence.getEvents())
}

func TestPresenceNotifierNilIsSafe(t *testing.T) {
	var p *presenceNotifier
	assert.NotPanics(t, func() { p.notify("1", true) })
}

func TestPresenceNotifierStopsWithContext(t *testing.T) {
	p := newPresenceNotifier(&fakePresence{}, testLogger())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		p.run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("presence notifier did not stop")
	}
}
