package websocket

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

// HeartbeatConfig controls liveness probing.
type HeartbeatConfig struct {
	// PingInterval is the time between pings to a healthy connection.
	PingInterval time.Duration
	// PongTimeout is how long a ping may stay unanswered before eviction.
	PongTimeout time.Duration
	// ScanInterval is how often the registry is scanned.
	ScanInterval time.Duration
}

func DefaultHeartbeatConfig() HeartbeatConfig {
	return HeartbeatConfig{
		PingInterval: 25 * time.Second,
		PongTimeout:  10 * time.Second,
		ScanInterval: time.Second,
	}
}

// HeartbeatMonitor pings every connection and evicts the ones that miss the
// pong deadline, so half-open TCP sessions do not linger in the registry.
type HeartbeatMonitor struct {
	registry *Registry
	cfg      HeartbeatConfig
	metrics  *Metrics
	logger   *slog.Logger
	now      func() time.Time
}

func NewHeartbeatMonitor(registry *Registry, cfg HeartbeatConfig, metrics *Metrics, logger *slog.Logger) *HeartbeatMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &HeartbeatMonitor{
		registry: registry,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Run scans on ScanInterval until ctx is cancelled.
func (m *HeartbeatMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Tick(m.now())
		}
	}
}

// Tick performs one scan at the given instant. It works on a registry
// snapshot and holds one connection lock at a time.
func (m *HeartbeatMonitor) Tick(now time.Time) {
	for _, conn := range m.registry.Snapshot() {
		expired, due := m.check(conn, now)
		switch {
		case expired:
			m.logger.Info("Heartbeat timeout, evicting client", "connID", conn.ID(), "userID", conn.UserID())
			if m.registry.Evict(conn.ID(), websocket.CloseGoingAway, "heartbeat timeout") {
				m.metrics.heartbeatEviction()
			}
		case due:
			if err := conn.transport.Ping(); err != nil {
				m.logger.Debug("Error sending ping", "connID", conn.ID(), "error", err)
			}
		}
	}
}

// RecordPong marks connID as alive. Pongs for unknown ids are ignored since
// connection ids are never reused.
func (m *HeartbeatMonitor) RecordPong(connID string) {
	conn := m.registry.Get(connID)
	if conn == nil {
		return
	}
	conn.recordPong(m.now())
}

func (m *HeartbeatMonitor) check(conn *Connection, now time.Time) (expired, due bool) {
	conn.mu.Lock()
	defer conn.mu.Unlock()

	if conn.state != StateOpen {
		return false, false
	}
	if conn.pingOutstanding {
		return now.Sub(conn.lastPingSentAt) > m.cfg.PongTimeout, false
	}
	last := conn.lastPingSentAt
	if last.IsZero() {
		last = conn.createdAt
	}
	if now.Sub(last) < m.cfg.PingInterval {
		return false, false
	}
	conn.lastPingSentAt = now
	conn.pingOutstanding = true
	return false, true
}
