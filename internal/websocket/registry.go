package websocket

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry owns every live Connection and the user → connections map. All
// index mutations go through it so that a connection removed by Unregister
// can never regain a subscription edge. Lock order is registry, then index.
type Registry struct {
	conns map[string]*Connection
	users map[string]map[string]struct{}
	mu    sync.RWMutex

	index    *ChannelIndex
	presence *presenceNotifier
	metrics  *Metrics
	logger   *slog.Logger

	newID func() string
	now   func() time.Time
}

func NewRegistry(index *ChannelIndex, metrics *Metrics, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		conns:   make(map[string]*Connection),
		users:   make(map[string]map[string]struct{}),
		index:   index,
		metrics: metrics,
		logger:  logger,
		newID:   func() string { return uuid.New().String() },
		now:     time.Now,
	}
}

// Register adds a freshly accepted transport and returns its connection id.
// identity is the user id verified during the upgrade, or "".
func (r *Registry) Register(t Transport, identity string) string {
	id := r.newID()
	conn := newConnection(id, t, identity, r.now())

	r.mu.Lock()
	r.conns[id] = conn
	total := len(r.conns)
	r.mu.Unlock()

	r.metrics.connectionOpened()
	r.logger.Info("Client registered", "connID", id, "identity", identity, "connections", total)
	return id
}

// Unregister removes the connection and purges its subscriptions. It does not
// close the transport. Calling it for an unknown or already removed id is a
// no-op that returns false.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	conn, ok := r.conns[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.conns, id)

	userID := conn.UserID()
	lastForUser := false
	if userID != "" {
		lastForUser = r.removeUserConnLocked(userID, id)
	}
	channels := r.index.PurgeConnection(id)
	total := len(r.conns)
	r.mu.Unlock()

	r.metrics.connectionClosed()
	if lastForUser {
		r.presence.notify(userID, false)
	}
	r.logger.Info("Client unregistered", "connID", id, "userID", userID, "channels", len(channels), "connections", total)
	return true
}

// Evict unregisters the connection and closes its transport with code.
func (r *Registry) Evict(id string, code int, reason string) bool {
	r.mu.RLock()
	conn := r.conns[id]
	r.mu.RUnlock()

	removed := r.Unregister(id)
	if conn != nil {
		if err := conn.Close(code, reason); err != nil {
			r.logger.Debug("Error closing evicted connection", "connID", id, "error", err)
		}
	}
	return removed
}

func (r *Registry) Get(id string) *Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conns[id]
}

// ForUser returns the ids of every connection bound to userID.
func (r *Registry) ForUser(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return keys(r.users[userID])
}

// Snapshot returns the registered connections at this instant.
func (r *Registry) Snapshot() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Connection, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}

// MarkHandshakeComplete records that the "connected" acknowledgment was sent.
func (r *Registry) MarkHandshakeComplete(id string) error {
	conn := r.Get(id)
	if conn == nil {
		return ErrConnectionNotFound
	}
	conn.mu.Lock()
	conn.handshakeDone = true
	conn.mu.Unlock()
	return nil
}

// Subscribe adds a subscription edge for a registered connection.
func (r *Registry) Subscribe(id, channel string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.conns[id]; !ok {
		return ErrConnectionNotFound
	}
	if r.index.Subscribe(id, channel) {
		r.logger.Debug("Client subscribed", "connID", id, "channel", channel)
	}
	return nil
}

func (r *Registry) Unsubscribe(id, channel string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.conns[id]; !ok {
		return ErrConnectionNotFound
	}
	if r.index.Unsubscribe(id, channel) {
		r.logger.Debug("Client unsubscribed", "connID", id, "channel", channel)
	}
	return nil
}

func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Registry) UserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// addUserConnLocked reports whether this is the user's first connection.
func (r *Registry) addUserConnLocked(userID, id string) bool {
	set, ok := r.users[userID]
	if !ok {
		set = make(map[string]struct{})
		r.users[userID] = set
	}
	set[id] = struct{}{}
	return !ok
}

// removeUserConnLocked reports whether the user has no connections left.
func (r *Registry) removeUserConnLocked(userID, id string) bool {
	set, ok := r.users[userID]
	if !ok {
		return false
	}
	delete(set, id)
	if len(set) == 0 {
		delete(r.users, userID)
		return true
	}
	return false
}
