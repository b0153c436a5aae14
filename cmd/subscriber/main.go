// Command subscriber connects to the realtime hub, subscribes to the
// configured channels and logs every event. While push delivery is degraded
// it polls the unread-count endpoint instead.
package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"realtime-service/internal/backoff"
	"realtime-service/internal/config"
	"realtime-service/internal/models"
	"realtime-service/internal/polling"
	"realtime-service/internal/subscriber"
	"realtime-service/pkg/logger"
)

const unreadPollKey = "unread-counts"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	sc := cfg.Subscriber
	logg := logger.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	policy := backoff.Policy{
		Base:        sc.BackoffBase,
		Cap:         sc.BackoffCap,
		MaxAttempts: sc.BackoffMaxAttempts,
		Cooldown:    sc.BackoffCooldown,
	}

	subCfg := subscriber.DefaultConfig(sc.URL)
	subCfg.Backoff = policy
	subCfg.Logger = logg
	if sc.Transport == "coder" {
		subCfg.Transport = subscriber.NewCoderTransport()
	}
	if sc.Token != "" {
		subCfg.Header = http.Header{"Authorization": []string{"Bearer " + sc.Token}}
	}

	sub, err := subscriber.New(subCfg)
	if err != nil {
		logg.Error("Failed to create subscriber", "error", err)
		os.Exit(1)
	}

	pollers := polling.NewGroup(polling.DefaultMaxActive)
	defer pollers.StopAll()
	unread := newUnreadWatcher(polling.NewUnreadClient(sc.PollURL, sc.Token), logg)

	pollCfg := polling.DefaultConfig(sc.PollInterval)
	pollCfg.BackgroundInterval = sc.PollBackgroundInterval
	pollCfg.Backoff = policy
	pollCfg.Logger = logg

	sub.OnStateChange(func(st subscriber.Status) {
		logg.Info("Connection state changed", "state", st.State.String(), "attempt", st.Attempt)
	})
	sub.OnDegraded(func(degraded bool) {
		if degraded {
			logg.Warn("Push delivery degraded, polling unread counts", "url", sc.PollURL)
			pollers.Start(unreadPollKey, pollCfg, unread.poll, func(err error, attempt int) {
				logg.Warn("Unread poll failed", "attempt", attempt, "error", err)
			})
			return
		}
		logg.Info("Push delivery restored")
		pollers.Stop(unreadPollKey)
	})
	sub.OnMessage(func(channel, eventType string, payload json.RawMessage) {
		logg.Info("Event received", "channel", channel, "type", eventType, "payload", string(payload))
	})
	sub.OnError(func(err error) {
		logg.Warn("Server reported an error", "error", err)
	})

	for _, ch := range sc.Channels {
		sub.Subscribe(ch)
	}
	if sc.UserID != "" {
		if err := sub.Authenticate(sc.UserID); err != nil {
			logg.Error("Failed to set identity", "error", err)
			os.Exit(1)
		}
	}
	if err := sub.Start(); err != nil {
		logg.Error("Failed to start subscriber", "error", err)
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info("Subscriber shutting down...")
	if err := sub.Stop(); err != nil {
		logg.Warn("Close failed", "error", err)
	}
}

// unreadWatcher keeps the last poll result and logs what changed.
type unreadWatcher struct {
	client *polling.UnreadClient
	logger *slog.Logger

	mu   sync.Mutex
	last *models.UnreadResponse
}

func newUnreadWatcher(client *polling.UnreadClient, logger *slog.Logger) *unreadWatcher {
	return &unreadWatcher{client: client, logger: logger}
}

func (w *unreadWatcher) poll(ctx context.Context) error {
	resp, err := w.client.Fetch(ctx)
	if err != nil {
		return err
	}

	w.mu.Lock()
	changes := polling.DiffUnread(w.last, resp)
	w.last = resp
	w.mu.Unlock()

	for _, c := range changes {
		w.logger.Info("Unread count changed",
			"community", c.CommunityID, "channel", c.ChannelID,
			"previous", c.Previous, "current", c.Current)
	}
	if len(changes) > 0 {
		w.logger.Info("Unread total", "count", polling.TotalUnread(resp))
	}
	return nil
}
