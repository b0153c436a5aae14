package websocket

import (
	"hash/fnv"
	"log/slog"
	"sync"

	"realtime-service/internal/protocol"

	"github.com/gorilla/websocket"
)

const broadcastStripes = 64

// Broadcaster fans frames out to the current subscribers of a channel.
// Delivery is best-effort and at-most-once: each send is non-blocking and a
// connection that cannot accept the frame is evicted instead of stalling the
// other subscribers. Broadcasts on the same channel are serialized so each
// subscriber sees them in call order.
type Broadcaster struct {
	registry *Registry
	index    *ChannelIndex
	metrics  *Metrics
	logger   *slog.Logger
	stripes  [broadcastStripes]sync.Mutex
}

func NewBroadcaster(registry *Registry, index *ChannelIndex, metrics *Metrics, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		registry: registry,
		index:    index,
		metrics:  metrics,
		logger:   logger,
	}
}

// Broadcast sends eventType with payload to every subscriber of channel and
// returns how many connections the frame was enqueued for.
func (b *Broadcaster) Broadcast(channel, eventType string, payload any) (int, error) {
	return b.BroadcastExcept(channel, eventType, payload, "")
}

// BroadcastExcept is Broadcast that skips the connection exceptConnID.
func (b *Broadcaster) BroadcastExcept(channel, eventType string, payload any, exceptConnID string) (int, error) {
	frame, err := protocol.NewFrame(channel, eventType, payload)
	if err != nil {
		return 0, err
	}
	return b.Publish(frame, exceptConnID), nil
}

// Publish delivers a prepared frame, skipping exceptConnID when non-empty.
func (b *Broadcaster) Publish(frame *protocol.Frame, exceptConnID string) int {
	stripe := b.stripe(frame.Channel())
	stripe.Lock()

	subscribers := b.index.SubscribersOf(frame.Channel())
	delivered := 0
	var failed []string
	for _, id := range subscribers {
		if id == exceptConnID {
			continue
		}
		conn := b.registry.Get(id)
		if conn == nil {
			continue
		}
		if err := conn.Send(frame.Bytes()); err != nil {
			b.logger.Warn("Dropping slow or dead subscriber", "connID", id, "channel", frame.Channel(), "error", err)
			failed = append(failed, id)
			continue
		}
		delivered++
	}
	stripe.Unlock()

	for _, id := range failed {
		b.registry.Evict(id, websocket.CloseTryAgainLater, "send buffer full")
	}

	b.metrics.broadcast(delivered, len(failed))
	b.logger.Debug("Broadcast complete", "channel", frame.Channel(), "type", frame.Type(),
		"subscribers", len(subscribers), "delivered", delivered, "dropped", len(failed))
	return delivered
}

func (b *Broadcaster) stripe(channel string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(channel))
	return &b.stripes[h.Sum32()%broadcastStripes]
}
