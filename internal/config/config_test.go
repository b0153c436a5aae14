package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp keeps a developer's .env out of the test.
func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoadConfigDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr())
	assert.Equal(t, 25*time.Second, cfg.WebSocket.PingInterval)
	assert.Equal(t, 10*time.Second, cfg.WebSocket.PongTimeout)
	assert.Equal(t, 256, cfg.WebSocket.SendBuffer)
	assert.Empty(t, cfg.WebSocket.AllowedOrigins)
	assert.False(t, cfg.Kafka.Enabled())
	assert.Equal(t, "realtime.broadcasts", cfg.Kafka.Topic)
	assert.Equal(t, "gorilla", cfg.Subscriber.Transport)
	assert.Equal(t, time.Second, cfg.Subscriber.BackoffBase)
	assert.Equal(t, 30*time.Second, cfg.Subscriber.BackoffCap)
	assert.Equal(t, 5, cfg.Subscriber.BackoffMaxAttempts)
	assert.Equal(t, "host=localhost user=postgres password=password dbname=postgres port=5432 sslmode=disable", cfg.Database.DSN())
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	chdirTemp(t)
	t.Setenv("NOTIFY_PORT", "9090")
	t.Setenv("WS_PING_INTERVAL", "5s")
	t.Setenv("WS_ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com ,")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("SUBSCRIBER_CHANNELS", "conversation-1,presence-1")
	t.Setenv("SUBSCRIBER_TRANSPORT", "coder")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/app")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.WebSocket.PingInterval)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.WebSocket.AllowedOrigins)
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, []string{"conversation-1", "presence-1"}, cfg.Subscriber.Channels)
	assert.Equal(t, "coder", cfg.Subscriber.Transport)
	assert.Equal(t, "postgres://u:p@db:5432/app", cfg.Database.DSN())
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	chdirTemp(t)
	t.Setenv("WS_PONG_TIMEOUT", "0s")
	t.Setenv("SUBSCRIBER_BACKOFF_CAP", "100ms")
	t.Setenv("SUBSCRIBER_TRANSPORT", "socketio")

	cfg, err := LoadConfig()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.ErrorContains(t, err, "WS_PONG_TIMEOUT must be positive")
	assert.ErrorContains(t, err, "SUBSCRIBER_BACKOFF_CAP must not be below")
	assert.ErrorContains(t, err, `got "socketio"`)
}
