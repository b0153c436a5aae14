// Package kafka relays broadcast events published by other services onto
// the hub.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"realtime-service/internal/config"

	"github.com/IBM/sarama"
)

var ErrInvalidEvent = errors.New("invalid broadcast event")

// Publisher is satisfied by websocket.Broadcaster.
type Publisher interface {
	Broadcast(channel, eventType string, payload any) (int, error)
}

type Relay struct {
	group     sarama.ConsumerGroup
	topic     string
	publisher Publisher
	logger    *slog.Logger
}

func NewRelay(cfg config.KafkaConfig, publisher Publisher, logger *slog.Logger) (*Relay, error) {
	sc := sarama.NewConfig()
	sc.Version = sarama.V2_0_0_0
	sc.ClientID = "realtime-service"
	sc.Consumer.Return.Errors = true
	// Broadcasts are ephemeral; a relay that starts late skips the backlog.
	sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	sc.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, sc)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}
	return newRelay(group, cfg.Topic, publisher, logger), nil
}

func newRelay(group sarama.ConsumerGroup, topic string, publisher Publisher, logger *slog.Logger) *Relay {
	return &Relay{group: group, topic: topic, publisher: publisher, logger: logger}
}

// Run consumes until ctx is cancelled, rejoining the group after rebalances.
func (r *Relay) Run(ctx context.Context) error {
	go func() {
		for err := range r.group.Errors() {
			r.logger.Error("Kafka consumer error", "error", err)
		}
	}()

	r.logger.Info("Kafka relay started", "topic", r.topic)
	for {
		if err := r.group.Consume(ctx, []string{r.topic}, r); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			r.logger.Error("Kafka consume failed", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (r *Relay) Close() error {
	return r.group.Close()
}

func (r *Relay) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (r *Relay) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (r *Relay) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := r.handleMessage(msg); err != nil {
				r.logger.Warn("Dropping Kafka message", "partition", msg.Partition, "offset", msg.Offset, "error", err)
			}
			// Malformed messages are marked too; retrying cannot fix them.
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

func (r *Relay) handleMessage(msg *sarama.ConsumerMessage) error {
	var ev Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if ev.Channel == "" || ev.Type == "" {
		return fmt.Errorf("%w: channel and type are required", ErrInvalidEvent)
	}

	var payload any
	if len(ev.Payload) > 0 {
		payload = ev.Payload
	}
	delivered, err := r.publisher.Broadcast(ev.Channel, ev.Type, payload)
	if err != nil {
		return err
	}
	r.logger.Debug("Relayed Kafka event", "channel", ev.Channel, "type", ev.Type, "delivered", delivered)
	return nil
}
