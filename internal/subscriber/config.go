package subscriber

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"realtime-service/internal/backoff"
)

// Config configures a Subscriber. Zero durations fall back to the defaults.
type Config struct {
	URL    string
	Header http.Header

	// Transport defaults to gorilla/websocket.
	Transport Transport

	Backoff backoff.Policy

	// PingInterval is how often a JSON ping is sent while connected.
	PingInterval time.Duration
	// PongTimeout is how long a ping may go unanswered before the connection
	// is considered dead.
	PongTimeout time.Duration

	DialTimeout  time.Duration
	AuthTimeout  time.Duration
	WriteTimeout time.Duration

	OutboxSize   int
	OutboxMaxAge time.Duration

	Logger *slog.Logger
}

func DefaultConfig(url string) Config {
	return Config{
		URL:          url,
		Backoff:      backoff.Default(),
		PingInterval: 30 * time.Second,
		PongTimeout:  10 * time.Second,
		DialTimeout:  10 * time.Second,
		AuthTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Second,
		OutboxSize:   100,
		OutboxMaxAge: 5 * time.Minute,
	}
}

func (c Config) withDefaults() (Config, error) {
	if c.URL == "" {
		return c, errors.New("subscriber: URL is required")
	}
	d := DefaultConfig(c.URL)
	if c.Transport == nil {
		c.Transport = NewGorillaTransport()
	}
	if c.Backoff.Base <= 0 {
		c.Backoff = d.Backoff
	}
	if c.PingInterval <= 0 {
		c.PingInterval = d.PingInterval
	}
	if c.PongTimeout <= 0 {
		c.PongTimeout = d.PongTimeout
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = d.DialTimeout
	}
	if c.AuthTimeout <= 0 {
		c.AuthTimeout = d.AuthTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.OutboxSize <= 0 {
		c.OutboxSize = d.OutboxSize
	}
	if c.OutboxMaxAge <= 0 {
		c.OutboxMaxAge = d.OutboxMaxAge
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c, nil
}
