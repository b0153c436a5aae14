package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"realtime-service/internal/protocol"

	"github.com/gorilla/websocket"
)

var (
	ErrClientDisconnected  = fmt.Errorf("client disconnected")
	ErrSendBufferFull      = fmt.Errorf("send buffer full")
	ErrConnectionNotFound  = fmt.Errorf("connection not found")
	ErrHandshakeIncomplete = fmt.Errorf("handshake not complete")
	ErrIdentityMismatch    = fmt.Errorf("userId does not match the authenticated identity")
	ErrEmptyUserID         = fmt.Errorf("userId is required")
	ErrNotAuthenticated    = fmt.Errorf("connection is not authenticated")
)

// HubConfig groups the tunables of the connection hub.
type HubConfig struct {
	Heartbeat      HeartbeatConfig
	SendBufferSize int
	MaxMessageSize int64
	WriteWait      time.Duration
}

func DefaultHubConfig() HubConfig {
	return HubConfig{
		Heartbeat:      DefaultHeartbeatConfig(),
		SendBufferSize: 256,
		MaxMessageSize: 64 * 1024,
		WriteWait:      10 * time.Second,
	}
}

// Stats is the shape served by the stats endpoint.
type Stats struct {
	TotalConnections int `json:"totalConnections"`
	TotalUsers       int `json:"totalUsers"`
	TotalChannels    int `json:"totalChannels"`
	MetricsSnapshot
}

// Hub wires the registry, subscription index, auth binder, broadcaster and
// heartbeat monitor together and dispatches inbound client messages.
type Hub struct {
	cfg         HubConfig
	index       *ChannelIndex
	registry    *Registry
	auth        *AuthBinder
	broadcaster *Broadcaster
	heartbeat   *HeartbeatMonitor
	metrics     *Metrics
	logger      *slog.Logger

	// Context for graceful shutdown
	ctx     context.Context
	cancel  context.CancelFunc
	stopped sync.Once
}

// NewHub builds a hub. presence may be nil when presence tracking is disabled.
func NewHub(cfg HubConfig, presence PresenceTracker, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	metrics := NewMetrics()
	index := NewChannelIndex()
	registry := NewRegistry(index, metrics, logger)
	if presence != nil {
		registry.presence = newPresenceNotifier(presence, logger)
	}

	return &Hub{
		cfg:         cfg,
		index:       index,
		registry:    registry,
		auth:        NewAuthBinder(registry, logger),
		broadcaster: NewBroadcaster(registry, index, metrics, logger),
		heartbeat:   NewHeartbeatMonitor(registry, cfg.Heartbeat, metrics, logger),
		metrics:     metrics,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (h *Hub) Config() HubConfig             { return h.cfg }
func (h *Hub) Registry() *Registry           { return h.registry }
func (h *Hub) Index() *ChannelIndex          { return h.index }
func (h *Hub) Auth() *AuthBinder             { return h.auth }
func (h *Hub) Broadcaster() *Broadcaster     { return h.broadcaster }
func (h *Hub) Heartbeat() *HeartbeatMonitor { return h.heartbeat }

// Run starts the heartbeat monitor and presence forwarding and blocks until
// Stop is called and both have returned.
func (h *Hub) Run() {
	var wg sync.WaitGroup
	if p := h.registry.presence; p != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.run(h.ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.heartbeat.Run(h.ctx)
	}()

	<-h.ctx.Done()
	wg.Wait()
	h.logger.Info("WebSocket hub stopped")
}

// Stop cancels background work and closes every connection with 1001.
// It is safe to call more than once.
func (h *Hub) Stop() {
	h.stopped.Do(func() {
		h.cancel()
		conns := h.registry.Snapshot()
		for _, conn := range conns {
			h.registry.Evict(conn.ID(), websocket.CloseGoingAway, "server shutting down")
		}
		h.logger.Info("WebSocket hub shutting down", "closed", len(conns))
	})
}

// Broadcast is a shorthand for Broadcaster().Broadcast.
func (h *Hub) Broadcast(channel, eventType string, payload any) (int, error) {
	return h.broadcaster.Broadcast(channel, eventType, payload)
}

// Accept registers a newly opened transport and completes the handshake by
// sending the "connected" acknowledgment.
func (h *Hub) Accept(t Transport, identity string) (string, error) {
	id := h.registry.Register(t, identity)

	conn := h.registry.Get(id)
	if err := h.send(conn, protocol.NewConnectedMessage(id)); err != nil {
		h.registry.Evict(id, websocket.CloseInternalServerErr, "handshake failed")
		return "", fmt.Errorf("failed to send handshake: %w", err)
	}
	if err := h.registry.MarkHandshakeComplete(id); err != nil {
		return "", err
	}
	return id, nil
}

// Disconnect is called when a transport closes on its own.
func (h *Hub) Disconnect(connID string) {
	h.registry.Unregister(connID)
}

// HandleMessage processes one inbound text frame. Malformed or unknown frames
// are answered with an error notice and otherwise ignored.
func (h *Hub) HandleMessage(connID string, data []byte) {
	conn := h.registry.Get(connID)
	if conn == nil {
		return
	}

	msg, err := protocol.Decode(data)
	if err != nil {
		h.reject(conn, err)
		return
	}
	if !msg.Type.IsClientControl() {
		h.reject(conn, fmt.Errorf("%w: unknown type %q", protocol.ErrInvalidMessage, msg.Type))
		return
	}
	if err := msg.Validate(); err != nil {
		h.reject(conn, err)
		return
	}

	switch msg.Type {
	case protocol.TypeAuth:
		h.handleAuth(conn, msg)

	case protocol.TypeSubscribe:
		if err := h.registry.Subscribe(connID, msg.Channel); err != nil {
			h.reject(conn, err)
		}

	case protocol.TypeUnsubscribe:
		if err := h.registry.Unsubscribe(connID, msg.Channel); err != nil {
			h.reject(conn, err)
		}

	case protocol.TypePing:
		h.heartbeat.RecordPong(connID)
		if err := h.send(conn, protocol.NewPongMessage()); err != nil {
			h.logger.Debug("Failed to send pong", "connID", connID, "error", err)
		}

	case protocol.TypePong:
		h.heartbeat.RecordPong(connID)

	case protocol.TypeTyping, protocol.TypeTypingStop:
		h.handleTyping(conn, msg)

	case protocol.TypePresence:
		h.handlePresence(conn, msg)
	}
}

// Stats returns registry sizes together with the activity counters.
func (h *Hub) Stats() Stats {
	return Stats{
		TotalConnections: h.registry.ConnectionCount(),
		TotalUsers:       h.registry.UserCount(),
		TotalChannels:    h.index.ChannelCount(),
		MetricsSnapshot:  h.metrics.Snapshot(),
	}
}

func (h *Hub) handleAuth(conn *Connection, msg *protocol.Message) {
	if _, err := h.auth.Authenticate(conn.ID(), msg.UserID); err != nil {
		h.reject(conn, err)
		return
	}
	if err := h.send(conn, protocol.NewAuthSuccessMessage(msg.UserID)); err != nil {
		h.logger.Debug("Failed to send auth_success", "connID", conn.ID(), "error", err)
	}
}

func (h *Hub) handleTyping(conn *Connection, msg *protocol.Message) {
	userID := conn.UserID()
	if userID == "" {
		h.reject(conn, ErrNotAuthenticated)
		return
	}

	eventType := protocol.TypeUserTyping
	if msg.Type == protocol.TypeTypingStop {
		eventType = protocol.TypeUserStoppedTyping
	}
	payload := protocol.TypingPayload{
		ConversationID: msg.ConversationID,
		UserID:         userID,
		UserName:       msg.UserName,
		UserImage:      msg.UserImage,
	}
	if _, err := h.broadcaster.BroadcastExcept(TypingChannel(msg.ConversationID), eventType.String(), payload, conn.ID()); err != nil {
		h.logger.Error("Failed to broadcast typing event", "connID", conn.ID(), "error", err)
	}
}

func (h *Hub) handlePresence(conn *Connection, msg *protocol.Message) {
	userID := conn.UserID()
	if userID == "" {
		h.reject(conn, ErrNotAuthenticated)
		return
	}

	payload := protocol.PresencePayload{
		ConversationID: msg.ConversationID,
		UserID:         userID,
		IsOnline:       *msg.IsOnline,
	}
	if _, err := h.broadcaster.BroadcastExcept(PresenceChannel(msg.ConversationID), protocol.TypePresenceUpdate.String(), payload, conn.ID()); err != nil {
		h.logger.Error("Failed to broadcast presence event", "connID", conn.ID(), "error", err)
	}
}

func (h *Hub) reject(conn *Connection, cause error) {
	h.metrics.protocolError()
	h.logger.Warn("Rejected client message", "connID", conn.ID(), "userID", conn.UserID(), "error", cause)
	if err := h.send(conn, protocol.NewErrorMessage(cause.Error())); err != nil {
		h.logger.Debug("Failed to send error notice", "connID", conn.ID(), "error", err)
	}
}

// send enqueues a control message; a full buffer evicts the connection.
func (h *Hub) send(conn *Connection, msg *protocol.Message) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	err = conn.Send(data)
	if errors.Is(err, ErrSendBufferFull) {
		h.registry.Evict(conn.ID(), websocket.CloseTryAgainLater, "send buffer full")
	}
	return err
}
