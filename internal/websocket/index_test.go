package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChannelIndexSubscribeIsIdempotent(t *testing.T) {
	idx := NewChannelIndex()

	assert.True(t, idx.Subscribe("c1", "conversation-1"))
	assert.False(t, idx.Subscribe("c1", "conversation-1"))

	assert.Equal(t, []string{"c1"}, idx.SubscribersOf("conversation-1"))
	assert.Equal(t, []string{"conversation-1"}, idx.ChannelsOf("c1"))
	assert.True(t, idx.IsSubscribed("c1", "conversation-1"))
}

func TestChannelIndexUnsubscribeRemovesEmptySets(t *testing.T) {
	idx := NewChannelIndex()
	idx.Subscribe("c1", "conversation-1")

	assert.True(t, idx.Unsubscribe("c1", "conversation-1"))
	assert.False(t, idx.Unsubscribe("c1", "conversation-1"))
	assert.False(t, idx.Unsubscribe("unknown", "conversation-1"))

	assert.Empty(t, idx.SubscribersOf("conversation-1"))
	assert.Empty(t, idx.ChannelsOf("c1"))
	assert.Equal(t, 0, idx.ChannelCount())
}

func TestChannelIndexPurgeConnection(t *testing.T) {
	idx := NewChannelIndex()
	idx.Subscribe("c1", "a")
	idx.Subscribe("c1", "b")
	idx.Subscribe("c2", "b")

	purged := idx.PurgeConnection("c1")
	assert.ElementsMatch(t, []string{"a", "b"}, purged)

	assert.Empty(t, idx.SubscribersOf("a"))
	assert.Equal(t, []string{"c2"}, idx.SubscribersOf("b"))
	assert.Empty(t, idx.ChannelsOf("c1"))
	assert.Equal(t, 1, idx.ChannelCount())

	assert.Empty(t, idx.PurgeConnection("c1"))
}

func TestChannelIndexBothDirectionsAgree(t *testing.T) {
	idx := NewChannelIndex()
	conns := []string{"c1", "c2", "c3"}
	channels := []string{"x", "y", "z"}

	for i, c := range conns {
		for _, ch := range channels[:i+1] {
			idx.Subscribe(c, ch)
		}
	}
	idx.Unsubscribe("c3", "y")
	idx.PurgeConnection("c2")

	for _, ch := range channels {
		for _, c := range idx.SubscribersOf(ch) {
			assert.Contains(t, idx.ChannelsOf(c), ch)
		}
	}
	for _, c := range conns {
		for _, ch := range idx.ChannelsOf(c) {
			assert.Contains(t, idx.SubscribersOf(ch), c)
		}
	}
}
