package websocket

import (
	"sync"
	"time"
)

// Transport is the per-connection socket as seen by the hub. Send and Ping
// must never block: they enqueue and return an error when the connection
// cannot keep up.
type Transport interface {
	Send(data []byte) error
	Ping() error
	Close(code int, reason string) error
}

// ConnState is the lifecycle state of a registered connection.
type ConnState int32

const (
	StateOpen ConnState = iota
	StateClosing
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Connection is one live transport session held by the Registry.
type Connection struct {
	id        string
	transport Transport
	identity  string
	createdAt time.Time

	mu                 sync.Mutex
	userID             string
	state              ConnState
	handshakeDone      bool
	lastPingSentAt     time.Time
	lastPongReceivedAt time.Time
	pingOutstanding    bool
}

func newConnection(id string, t Transport, identity string, now time.Time) *Connection {
	return &Connection{
		id:                 id,
		transport:          t,
		identity:           identity,
		createdAt:          now,
		state:              StateOpen,
		lastPongReceivedAt: now,
	}
}

func (c *Connection) ID() string {
	return c.id
}

// Identity is the user id verified at upgrade time, or "" for anonymous upgrades.
func (c *Connection) Identity() string {
	return c.identity
}

func (c *Connection) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

func (c *Connection) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Send enqueues an already encoded frame.
func (c *Connection) Send(data []byte) error {
	c.mu.Lock()
	open := c.state == StateOpen
	c.mu.Unlock()
	if !open {
		return ErrClientDisconnected
	}
	return c.transport.Send(data)
}

// Close closes the transport once; later calls are no-ops.
func (c *Connection) Close(code int, reason string) error {
	c.mu.Lock()
	if c.state != StateOpen {
		c.mu.Unlock()
		return nil
	}
	c.state = StateClosing
	c.mu.Unlock()

	err := c.transport.Close(code, reason)

	c.mu.Lock()
	c.state = StateClosed
	c.mu.Unlock()
	return err
}

// LastPong returns the time of the most recent pong or client ping.
func (c *Connection) LastPong() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastPongReceivedAt
}

func (c *Connection) recordPong(now time.Time) {
	c.mu.Lock()
	c.lastPongReceivedAt = now
	c.pingOutstanding = false
	c.mu.Unlock()
}
