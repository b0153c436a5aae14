package main

// @title           Realtime Service API
// @version         1.0
// @description     WebSocket pub/sub hub with broadcast and unread-count endpoints
// @host            localhost:8080
// @BasePath        /api/v1
// @schemes         http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"realtime-service/internal/adapters/kafka"
	"realtime-service/internal/api/middleware"
	"realtime-service/internal/api/routes"
	"realtime-service/internal/config"
	"realtime-service/internal/database"
	"realtime-service/internal/repositories/postgres"
	"realtime-service/internal/services"
	"realtime-service/internal/websocket"
	"realtime-service/pkg/logger"

	"gorm.io/gorm"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logg := logger.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	logg.Info("Starting realtime server")

	// Redis backs presence and rate limiting; the hub works without it.
	var (
		presence    websocket.PresenceTracker
		rateLimiter middleware.RateLimiter
	)
	redisClient, err := database.NewRedisConnection(cfg.Redis, logg)
	if err != nil {
		logg.Warn("Redis unavailable, presence and rate limiting disabled", "error", err)
	} else {
		defer redisClient.Close()
		redisService := services.NewRedisService(redisClient)
		presence = redisService
		rateLimiter = redisService
	}

	hubCfg := websocket.HubConfig{
		Heartbeat: websocket.HeartbeatConfig{
			PingInterval: cfg.WebSocket.PingInterval,
			PongTimeout:  cfg.WebSocket.PongTimeout,
			ScanInterval: cfg.WebSocket.ScanInterval,
		},
		SendBufferSize: cfg.WebSocket.SendBuffer,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
		WriteWait:      cfg.WebSocket.WriteWait,
	}
	hub := websocket.NewHub(hubCfg, presence, logg)
	go hub.Run()

	// PostgreSQL backs the unread-count endpoints only.
	var unreadService *services.UnreadService
	db, err := database.NewPostgresConnection(cfg.Database.DSN(), logg)
	if err != nil {
		logg.Warn("PostgreSQL unavailable, unread endpoints disabled", "error", err)
	} else {
		unreadService = services.NewUnreadService(
			postgres.NewUnreadRepository(db),
			websocket.NewNotifier(hub.Broadcaster()),
			gorm.ErrRecordNotFound,
		)
	}

	relayCtx, stopRelay := context.WithCancel(context.Background())
	defer stopRelay()
	var relayDone chan struct{}
	if cfg.Kafka.Enabled() {
		relay, err := kafka.NewRelay(cfg.Kafka, hub.Broadcaster(), logg)
		if err != nil {
			logg.Error("Failed to start Kafka relay", "error", err)
			os.Exit(1)
		}
		relayDone = make(chan struct{})
		go func() {
			defer close(relayDone)
			defer relay.Close()
			if err := relay.Run(relayCtx); err != nil {
				logg.Error("Kafka relay stopped", "error", err)
			}
		}()
	}

	// Initialize router with all dependencies
	router := routes.NewRouter(routes.Dependencies{
		Hub:            hub,
		UnreadService:  unreadService,
		RateLimiter:    rateLimiter,
		JWTSecret:      cfg.JWT.Secret,
		AllowedOrigins: cfg.WebSocket.AllowedOrigins,
		ConnectLimit:   cfg.Redis.ConnectLimit,
		ConnectWindow:  cfg.Redis.ConnectWindow,
	})
	router.SetupRoutes()

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logg.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stopRelay()
	if relayDone != nil {
		<-relayDone
	}

	// Close sockets with 1001 before the listener goes away.
	hub.Stop()

	if err := server.Shutdown(ctx); err != nil {
		logg.Error("Server forced to shutdown", "error", err)
	}

	logg.Info("Server stopped")
}
