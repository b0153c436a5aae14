package subscriber

import (
	"encoding/json"
	"sync"
)

// Handler receives the payload of a frame bound on a channel.
type Handler func(payload json.RawMessage)

// Channel is the handle returned by Subscriber.Subscribe. Bindings take
// effect for every frame that arrives after Bind returns, whether or not the
// server-side subscription is active yet.
type Channel struct {
	name string

	mu       sync.RWMutex
	handlers map[string]Handler
}

func newChannel(name string) *Channel {
	return &Channel{name: name, handlers: make(map[string]Handler)}
}

func (c *Channel) Name() string {
	return c.name
}

// Bind sets the handler for eventType, replacing any previous one.
func (c *Channel) Bind(eventType string, h Handler) *Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[eventType] = h
	return c
}

func (c *Channel) Unbind(eventType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, eventType)
}

func (c *Channel) handler(eventType string) Handler {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.handlers[eventType]
}
