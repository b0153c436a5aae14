package websocket

import "sync"

// ChannelIndex is the bidirectional subscription index: channel → connections
// and connection → channels. Both directions are updated under one lock so a
// connection appears under a channel iff the channel appears under the
// connection. Empty sets are removed.
//
// No authorization happens here; callers decide who may subscribe.
type ChannelIndex struct {
	channelConns map[string]map[string]struct{}
	connChannels map[string]map[string]struct{}
	mu           sync.RWMutex
}

func NewChannelIndex() *ChannelIndex {
	return &ChannelIndex{
		channelConns: make(map[string]map[string]struct{}),
		connChannels: make(map[string]map[string]struct{}),
	}
}

// Subscribe adds the edge (channel, connID). Subscribing twice is a no-op.
// It reports whether the edge was new.
func (ix *ChannelIndex) Subscribe(connID, channel string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if _, ok := ix.connChannels[connID][channel]; ok {
		return false
	}
	addEdge(ix.channelConns, channel, connID)
	addEdge(ix.connChannels, connID, channel)
	return true
}

// Unsubscribe removes the edge (channel, connID) if present.
func (ix *ChannelIndex) Unsubscribe(connID, channel string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if _, ok := ix.connChannels[connID][channel]; !ok {
		return false
	}
	removeEdge(ix.channelConns, channel, connID)
	removeEdge(ix.connChannels, connID, channel)
	return true
}

// SubscribersOf returns a snapshot of the connections subscribed to channel.
func (ix *ChannelIndex) SubscribersOf(channel string) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return keys(ix.channelConns[channel])
}

// ChannelsOf returns a snapshot of the channels connID is subscribed to.
func (ix *ChannelIndex) ChannelsOf(connID string) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return keys(ix.connChannels[connID])
}

// IsSubscribed reports whether the edge (channel, connID) exists.
func (ix *ChannelIndex) IsSubscribed(connID, channel string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.connChannels[connID][channel]
	return ok
}

// PurgeConnection removes every edge of connID and returns the channels it
// was subscribed to.
func (ix *ChannelIndex) PurgeConnection(connID string) []string {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	channels := keys(ix.connChannels[connID])
	for _, channel := range channels {
		removeEdge(ix.channelConns, channel, connID)
	}
	delete(ix.connChannels, connID)
	return channels
}

// ChannelCount returns the number of channels with at least one subscriber.
func (ix *ChannelIndex) ChannelCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.channelConns)
}

func addEdge(m map[string]map[string]struct{}, from, to string) {
	set, ok := m[from]
	if !ok {
		set = make(map[string]struct{})
		m[from] = set
	}
	set[to] = struct{}{}
}

func removeEdge(m map[string]map[string]struct{}, from, to string) {
	set, ok := m[from]
	if !ok {
		return
	}
	delete(set, to)
	if len(set) == 0 {
		delete(m, from)
	}
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
