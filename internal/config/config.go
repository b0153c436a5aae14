package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	WebSocket  WebSocketConfig
	Kafka      KafkaConfig
	Log        LogConfig
	Subscriber SubscriberConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

type DatabaseConfig struct {
	// URL takes precedence over the individual fields when set.
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		d.Host, d.User, d.Password, d.DBName, d.Port, d.SSLMode)
}

type RedisConfig struct {
	URI          string
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
	// ConnectLimit caps WebSocket upgrades per client IP per ConnectWindow.
	ConnectLimit  int
	ConnectWindow time.Duration
}

type JWTConfig struct {
	Secret string
}

type WebSocketConfig struct {
	PingInterval   time.Duration
	PongTimeout    time.Duration
	ScanInterval   time.Duration
	SendBuffer     int
	MaxMessageSize int64
	WriteWait      time.Duration
	AllowedOrigins []string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type LogConfig struct {
	Level  string
	Format string
}

type SubscriberConfig struct {
	URL       string
	UserID    string
	Token     string
	Channels  []string
	Transport string

	BackoffBase        time.Duration
	BackoffCap         time.Duration
	BackoffMaxAttempts int
	BackoffCooldown    time.Duration

	PollURL                string
	PollInterval           time.Duration
	PollBackgroundInterval time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("NOTIFY_HOST", "")
	v.SetDefault("NOTIFY_PORT", "8080")
	v.SetDefault("NOTIFY_READ_TIMEOUT", 30*time.Second)
	v.SetDefault("NOTIFY_WRITE_TIMEOUT", 30*time.Second)
	v.SetDefault("NOTIFY_IDLE_TIMEOUT", 60*time.Second)
	v.SetDefault("NOTIFY_JWT_SECRET", "secret")

	v.SetDefault("REDIS_URL", "redis://127.0.0.1:6379/0")
	v.SetDefault("REDIS_MAX_RETRIES", 3)
	v.SetDefault("REDIS_POOL_SIZE", 100)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 10)
	v.SetDefault("REDIS_DIAL_TIMEOUT", 5*time.Second)
	v.SetDefault("REDIS_READ_TIMEOUT", 3*time.Second)
	v.SetDefault("REDIS_WRITE_TIMEOUT", 3*time.Second)
	v.SetDefault("REDIS_CONNECT_LIMIT", 30)
	v.SetDefault("REDIS_CONNECT_WINDOW", time.Minute)

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("POSTGRES_USER", "postgres")
	v.SetDefault("POSTGRES_PASSWORD", "password")
	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_DB", "postgres")
	v.SetDefault("POSTGRES_SSLMODE", "disable")

	v.SetDefault("WS_PING_INTERVAL", 25*time.Second)
	v.SetDefault("WS_PONG_TIMEOUT", 10*time.Second)
	v.SetDefault("WS_SCAN_INTERVAL", time.Second)
	v.SetDefault("WS_SEND_BUFFER", 256)
	v.SetDefault("WS_MAX_MESSAGE_SIZE", 64*1024)
	v.SetDefault("WS_WRITE_WAIT", 10*time.Second)
	v.SetDefault("WS_ALLOWED_ORIGINS", "")

	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "realtime.broadcasts")
	v.SetDefault("KAFKA_GROUP_ID", "realtime-service")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")

	v.SetDefault("SUBSCRIBER_URL", "ws://localhost:8080/api/v1/ws")
	v.SetDefault("SUBSCRIBER_USER_ID", "")
	v.SetDefault("SUBSCRIBER_TOKEN", "")
	v.SetDefault("SUBSCRIBER_CHANNELS", "")
	v.SetDefault("SUBSCRIBER_TRANSPORT", "gorilla")
	v.SetDefault("SUBSCRIBER_BACKOFF_BASE", time.Second)
	v.SetDefault("SUBSCRIBER_BACKOFF_CAP", 30*time.Second)
	v.SetDefault("SUBSCRIBER_BACKOFF_MAX_ATTEMPTS", 5)
	v.SetDefault("SUBSCRIBER_BACKOFF_COOLDOWN", 30*time.Second)
	v.SetDefault("SUBSCRIBER_POLL_URL", "http://localhost:8080/api/v1/notifications/unread")
	v.SetDefault("SUBSCRIBER_POLL_INTERVAL", 30*time.Second)
	v.SetDefault("SUBSCRIBER_POLL_BACKGROUND_INTERVAL", 60*time.Second)
}

// LoadConfig reads defaults, an optional .env file and the environment,
// in increasing order of precedence.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Host:         v.GetString("NOTIFY_HOST"),
			Port:         v.GetString("NOTIFY_PORT"),
			ReadTimeout:  v.GetDuration("NOTIFY_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("NOTIFY_WRITE_TIMEOUT"),
			IdleTimeout:  v.GetDuration("NOTIFY_IDLE_TIMEOUT"),
		},
		Database: DatabaseConfig{
			URL:      v.GetString("DATABASE_URL"),
			Host:     v.GetString("POSTGRES_HOST"),
			Port:     v.GetString("POSTGRES_PORT"),
			User:     v.GetString("POSTGRES_USER"),
			Password: v.GetString("POSTGRES_PASSWORD"),
			DBName:   v.GetString("POSTGRES_DB"),
			SSLMode:  v.GetString("POSTGRES_SSLMODE"),
		},
		Redis: RedisConfig{
			URI:           v.GetString("REDIS_URL"),
			MaxRetries:    v.GetInt("REDIS_MAX_RETRIES"),
			DialTimeout:   v.GetDuration("REDIS_DIAL_TIMEOUT"),
			ReadTimeout:   v.GetDuration("REDIS_READ_TIMEOUT"),
			WriteTimeout:  v.GetDuration("REDIS_WRITE_TIMEOUT"),
			PoolSize:      v.GetInt("REDIS_POOL_SIZE"),
			MinIdleConns:  v.GetInt("REDIS_MIN_IDLE_CONNS"),
			ConnectLimit:  v.GetInt("REDIS_CONNECT_LIMIT"),
			ConnectWindow: v.GetDuration("REDIS_CONNECT_WINDOW"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("NOTIFY_JWT_SECRET"),
		},
		WebSocket: WebSocketConfig{
			PingInterval:   v.GetDuration("WS_PING_INTERVAL"),
			PongTimeout:    v.GetDuration("WS_PONG_TIMEOUT"),
			ScanInterval:   v.GetDuration("WS_SCAN_INTERVAL"),
			SendBuffer:     v.GetInt("WS_SEND_BUFFER"),
			MaxMessageSize: v.GetInt64("WS_MAX_MESSAGE_SIZE"),
			WriteWait:      v.GetDuration("WS_WRITE_WAIT"),
			AllowedOrigins: splitList(v.GetString("WS_ALLOWED_ORIGINS")),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetString("KAFKA_BROKERS")),
			Topic:   v.GetString("KAFKA_TOPIC"),
			GroupID: v.GetString("KAFKA_GROUP_ID"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Subscriber: SubscriberConfig{
			URL:                    v.GetString("SUBSCRIBER_URL"),
			UserID:                 v.GetString("SUBSCRIBER_USER_ID"),
			Token:                  v.GetString("SUBSCRIBER_TOKEN"),
			Channels:               splitList(v.GetString("SUBSCRIBER_CHANNELS")),
			Transport:              v.GetString("SUBSCRIBER_TRANSPORT"),
			BackoffBase:            v.GetDuration("SUBSCRIBER_BACKOFF_BASE"),
			BackoffCap:             v.GetDuration("SUBSCRIBER_BACKOFF_CAP"),
			BackoffMaxAttempts:     v.GetInt("SUBSCRIBER_BACKOFF_MAX_ATTEMPTS"),
			BackoffCooldown:        v.GetDuration("SUBSCRIBER_BACKOFF_COOLDOWN"),
			PollURL:                v.GetString("SUBSCRIBER_POLL_URL"),
			PollInterval:           v.GetDuration("SUBSCRIBER_POLL_INTERVAL"),
			PollBackgroundInterval: v.GetDuration("SUBSCRIBER_POLL_BACKGROUND_INTERVAL"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the hub and subscriber cannot run with.
func (c *Config) Validate() error {
	var errs []error
	positive := map[string]time.Duration{
		"WS_PING_INTERVAL":            c.WebSocket.PingInterval,
		"WS_PONG_TIMEOUT":             c.WebSocket.PongTimeout,
		"WS_SCAN_INTERVAL":            c.WebSocket.ScanInterval,
		"WS_WRITE_WAIT":               c.WebSocket.WriteWait,
		"SUBSCRIBER_BACKOFF_BASE":     c.Subscriber.BackoffBase,
		"SUBSCRIBER_BACKOFF_CAP":      c.Subscriber.BackoffCap,
		"SUBSCRIBER_BACKOFF_COOLDOWN": c.Subscriber.BackoffCooldown,
		"SUBSCRIBER_POLL_INTERVAL":    c.Subscriber.PollInterval,
	}
	for _, key := range sortedKeys(positive) {
		if positive[key] <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", key, positive[key]))
		}
	}
	if c.WebSocket.SendBuffer <= 0 {
		errs = append(errs, fmt.Errorf("WS_SEND_BUFFER must be positive, got %d", c.WebSocket.SendBuffer))
	}
	if c.Subscriber.BackoffCap < c.Subscriber.BackoffBase {
		errs = append(errs, errors.New("SUBSCRIBER_BACKOFF_CAP must not be below SUBSCRIBER_BACKOFF_BASE"))
	}
	switch c.Subscriber.Transport {
	case "gorilla", "coder":
	default:
		errs = append(errs, fmt.Errorf("SUBSCRIBER_TRANSPORT must be gorilla or coder, got %q", c.Subscriber.Transport))
	}
	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func sortedKeys(m map[string]time.Duration) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
