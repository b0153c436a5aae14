package websocket

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastReachesOnlySubscribers(t *testing.T) {
	hub := createTestHub()
	a, trA := createTestConn(t, hub, "")
	b, trB := createTestConn(t, hub, "")
	_, trC := createTestConn(t, hub, "")

	require.NoError(t, hub.Registry().Subscribe(a, "conversation-1"))
	require.NoError(t, hub.Registry().Subscribe(b, "conversation-1"))

	delivered, err := hub.Broadcast("conversation-1", "new-message", map[string]string{"text": "hi"})
	require.NoError(t, err)
	assert.Equal(t, 2, delivered)

	for _, tr := range []*mockTransport{trA, trB} {
		msg := tr.last(t)
		assert.Equal(t, "conversation-1", msg["channel"])
		assert.Equal(t, "new-message", msg["type"])
		assert.Equal(t, map[string]any{"text": "hi"}, msg["payload"])
		assert.NotZero(t, msg["ts"])
	}
	assert.Empty(t, trC.getMessages())
}

func TestBroadcastEncodesOnce(t *testing.T) {
	hub := createTestHub()
	a, trA := createTestConn(t, hub, "")
	b, trB := createTestConn(t, hub, "")
	require.NoError(t, hub.Registry().Subscribe(a, "c"))
	require.NoError(t, hub.Registry().Subscribe(b, "c"))

	_, err := hub.Broadcast("c", "evt", nil)
	require.NoError(t, err)

	msgA, msgB := trA.getMessages(), trB.getMessages()
	require.Len(t, msgA, 1)
	require.Len(t, msgB, 1)
	assert.Same(t, &msgA[0][0], &msgB[0][0])
}

func TestBroadcastEmptyChannelReturnsZero(t *testing.T) {
	hub := createTestHub()

	delivered, err := hub.Broadcast("nobody-here", "evt", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, delivered)
}

func TestBroadcastRejectsInvalidFrame(t *testing.T) {
	hub := createTestHub()

	_, err := hub.Broadcast("", "evt", nil)
	assert.Error(t, err)

	_, err = hub.Broadcast("c", "", nil)
	assert.Error(t, err)

	_, err = hub.Broadcast("c", "evt", json.RawMessage(`{broken`))
	assert.Error(t, err)
}

func TestBroadcastEvictsSlowConsumerWithoutStallingOthers(t *testing.T) {
	hub := createTestHub()
	slow, trSlow := createTestConn(t, hub, "")
	fast, trFast := createTestConn(t, hub, "")
	require.NoError(t, hub.Registry().Subscribe(slow, "c"))
	require.NoError(t, hub.Registry().Subscribe(fast, "c"))

	trSlow.setFull(true)

	delivered, err := hub.Broadcast("c", "evt", "payload")
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	assert.Len(t, trFast.getMessages(), 1)

	closed, code := trSlow.isClosed()
	assert.True(t, closed)
	assert.Equal(t, websocket.CloseTryAgainLater, code)
	assert.Nil(t, hub.Registry().Get(slow))
	assert.Equal(t, []string{fast}, hub.Index().SubscribersOf("c"))

	stats := hub.Stats()
	assert.EqualValues(t, 1, stats.FramesDropped)
	assert.EqualValues(t, 1, stats.FramesDelivered)
}

func TestBroadcastExceptSkipsSender(t *testing.T) {
	hub := createTestHub()
	a, trA := createTestConn(t, hub, "")
	b, trB := createTestConn(t, hub, "")
	require.NoError(t, hub.Registry().Subscribe(a, "typing-1"))
	require.NoError(t, hub.Registry().Subscribe(b, "typing-1"))

	delivered, err := hub.Broadcaster().BroadcastExcept("typing-1", "user_typing", nil, a)
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	assert.Empty(t, trA.getMessages())
	assert.Len(t, trB.getMessages(), 1)
}

func TestBroadcastPreservesPerChannelOrder(t *testing.T) {
	hub := createTestHub()
	id, tr := createTestConn(t, hub, "")
	require.NoError(t, hub.Registry().Subscribe(id, "a"))
	require.NoError(t, hub.Registry().Subscribe(id, "b"))

	const n = 100
	var wg sync.WaitGroup
	for _, channel := range []string{"a", "b"} {
		wg.Add(1)
		go func(channel string) {
			defer wg.Done()
			for i := 0; i < n; i++ {
				_, err := hub.Broadcast(channel, "seq", i)
				assert.NoError(t, err)
			}
		}(channel)
	}
	wg.Wait()

	next := map[string]int{}
	for _, msg := range tr.decoded(t) {
		channel := msg["channel"].(string)
		assert.Equal(t, float64(next[channel]), msg["payload"], fmt.Sprintf("channel %s out of order", channel))
		next[channel]++
	}
	assert.Equal(t, n, next["a"])
	assert.Equal(t, n, next["b"])
}

func TestNotifierAddressesUserAndConversation(t *testing.T) {
	hub := createTestHub()
	notifier := NewNotifier(hub.Broadcaster())
	_, trUser := createAuthedConn(t, hub, "5")
	viewer, trViewer := createTestConn(t, hub, "")
	require.NoError(t, hub.Registry().Subscribe(viewer, ConversationChannel("9")))

	_, err := notifier.NotificationCount("5", 3)
	require.NoError(t, err)
	msg := trUser.last(t)
	assert.Equal(t, "user-5", msg["channel"])
	assert.Equal(t, EventNotificationCount, msg["type"])
	assert.Equal(t, map[string]any{"count": float64(3)}, msg["payload"])

	_, err = notifier.NewMessage("9", map[string]string{"content": "hello"})
	require.NoError(t, err)
	msg = trViewer.last(t)
	assert.Equal(t, "conversation-9", msg["channel"])
	assert.Equal(t, EventNewMessage, msg["type"])
}
