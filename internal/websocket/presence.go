package websocket

import (
	"context"
	"log/slog"
	"time"
)

// PresenceTracker records whether a user has at least one live connection.
// services.RedisService satisfies it.
type PresenceTracker interface {
	SetUserOnline(ctx context.Context, userID string) error
	SetUserOffline(ctx context.Context, userID string) error
}

type presenceEvent struct {
	userID string
	online bool
}

// presenceNotifier forwards online/offline transitions to the tracker from a
// single goroutine, so registry locks are never held across a network call
// and transitions for one user are applied in order.
type presenceNotifier struct {
	tracker PresenceTracker
	events  chan presenceEvent
	timeout time.Duration
	logger  *slog.Logger
}

func newPresenceNotifier(tracker PresenceTracker, logger *slog.Logger) *presenceNotifier {
	return &presenceNotifier{
		tracker: tracker,
		events:  make(chan presenceEvent, 1024),
		timeout: 3 * time.Second,
		logger:  logger,
	}
}

func (p *presenceNotifier) notify(userID string, online bool) {
	if p == nil {
		return
	}
	select {
	case p.events <- presenceEvent{userID: userID, online: online}:
	default:
		p.logger.Warn("Presence queue full, dropping transition", "userID", userID, "online", online)
	}
}

func (p *presenceNotifier) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-p.events:
			p.apply(ctx, ev)
		}
	}
}

func (p *presenceNotifier) apply(ctx context.Context, ev presenceEvent) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var err error
	if ev.online {
		err = p.tracker.SetUserOnline(ctx, ev.userID)
	} else {
		err = p.tracker.SetUserOffline(ctx, ev.userID)
	}
	if err != nil {
		p.logger.Error("Failed to update presence", "userID", ev.userID, "online", ev.online, "error", err)
	}
}
