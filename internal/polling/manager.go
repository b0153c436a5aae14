// Package polling drives periodic HTTP fetches used while push delivery is
// degraded.
package polling

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"realtime-service/internal/backoff"
)

// FetchFunc performs one poll. It should honour ctx cancellation.
type FetchFunc func(ctx context.Context) error

// ErrorFunc is told about every failed poll with the consecutive failure count.
type ErrorFunc func(err error, attempt int)

type Config struct {
	Interval           time.Duration
	BackgroundInterval time.Duration
	// Jitter is the fraction of the interval added or removed at random.
	Jitter      float64
	MinInterval time.Duration
	Backoff     backoff.Policy
	Logger      *slog.Logger
}

func DefaultConfig(interval time.Duration) Config {
	return Config{
		Interval:           interval,
		BackgroundInterval: 2 * interval,
		Jitter:             0.1,
		MinInterval:        time.Second,
		Backoff:            backoff.Default(),
	}
}

// Manager runs a single polling loop. Start replaces any running loop.
type Manager struct {
	cfg        Config
	logger     *slog.Logger
	background atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	// rand returns a value in [0, 1); replaced in tests.
	rand func() float64
}

func NewManager(cfg Config) *Manager {
	d := DefaultConfig(0)
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = d.MinInterval
	}
	if cfg.Interval < cfg.MinInterval {
		cfg.Interval = cfg.MinInterval
	}
	if cfg.BackgroundInterval <= 0 {
		cfg.BackgroundInterval = cfg.Interval
	}
	if cfg.Backoff.Base <= 0 {
		cfg.Backoff = d.Backoff
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{cfg: cfg, logger: logger, rand: rand.Float64}
}

// Start begins polling immediately and then on every jittered interval.
// Errors back off per the configured policy until a fetch succeeds.
func (m *Manager) Start(fetch FetchFunc, onError ErrorFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	m.cancel = cancel
	m.done = done
	m.mu.Unlock()

	go m.run(ctx, done, fetch, onError)
}

// Stop cancels the running loop. A fetch already in flight sees its context
// cancelled; no further fetch is started.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

// Wait blocks until the most recently started loop has exited.
func (m *Manager) Wait() {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}

// SetBackground switches between the foreground and background intervals.
// It takes effect from the next scheduled poll.
func (m *Manager) SetBackground(background bool) {
	m.background.Store(background)
}

func (m *Manager) run(ctx context.Context, done chan struct{}, fetch FetchFunc, onError ErrorFunc) {
	defer close(done)

	tracker := backoff.NewTracker(m.cfg.Backoff)
	failures := 0
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		err := fetch(ctx)
		if ctx.Err() != nil {
			return
		}

		var wait time.Duration
		if err != nil {
			failures++
			var cooldown bool
			wait, cooldown = tracker.Next()
			m.logger.Warn("Poll failed", "attempt", failures, "retryIn", wait, "cooldown", cooldown, "error", err)
			if onError != nil {
				onError(err, failures)
			}
		} else {
			failures = 0
			tracker.Reset()
			wait = m.nextInterval()
		}
		timer.Reset(wait)
	}
}

// nextInterval returns the base interval shifted by up to ±Jitter of itself.
func (m *Manager) nextInterval() time.Duration {
	base := m.cfg.Interval
	if m.background.Load() {
		base = m.cfg.BackgroundInterval
	}
	spread := float64(base) * m.cfg.Jitter
	d := time.Duration(float64(base) + (m.rand()*2-1)*spread)
	if d < m.cfg.MinInterval {
		d = m.cfg.MinInterval
	}
	return d
}
