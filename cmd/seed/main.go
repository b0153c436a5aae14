package main

import (
	"context"
	"log"
	"os"
	"time"

	"realtime-service/internal/adapters/kafka"
	"realtime-service/internal/config"
	"realtime-service/internal/database"
	"realtime-service/internal/models"
	"realtime-service/internal/repositories/postgres"
	"realtime-service/internal/websocket"
	"realtime-service/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logg := logger.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	logg.Info("Starting database seeding...")

	db, err := database.NewPostgresConnection(cfg.Database.DSN(), logg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	repo := postgres.NewUnreadRepository(db)

	// Running servers learn about the seeded counts through the relay topic.
	var publisher *kafka.EventPublisher
	if cfg.Kafka.Enabled() {
		producer, err := kafka.NewSyncProducer(cfg.Kafka.Brokers, "realtime-seed")
		if err != nil {
			logg.Warn("Kafka unavailable, seeded counts will not be pushed", "error", err)
		} else {
			publisher = kafka.NewEventPublisher(producer, cfg.Kafka.Topic)
			defer publisher.Close()
		}
	}

	now := time.Now()
	rows := []models.ChannelUnread{
		{CommunityID: "com-general", CommunityName: "General", ChannelID: "general", ChannelName: "general", UnreadCount: 3},
		{CommunityID: "com-general", CommunityName: "General", ChannelID: "random", ChannelName: "random", UnreadCount: 1},
		{CommunityID: "com-eng", CommunityName: "Engineering", ChannelID: "development", ChannelName: "development", UnreadCount: 7},
		{CommunityID: "com-eng", CommunityName: "Engineering", ChannelID: "design", ChannelName: "design"},
	}
	users := []string{"1", "2", "3"}

	ctx := context.Background()
	for _, userID := range users {
		for _, row := range rows {
			row.UserID = userID
			if row.UnreadCount > 0 {
				row.LastMessageContent = "Welcome to #" + row.ChannelName
				row.LastMessageAuthor = "admin"
				row.LastMessageAt = &now
			}
			if err := repo.Upsert(ctx, &row); err != nil {
				logg.Warn("Failed to seed unread row", "user", userID, "channel", row.ChannelID, "error", err)
				continue
			}
			if publisher == nil {
				continue
			}
			err := publisher.Publish(websocket.UserChannel(userID), websocket.EventUnreadCount, websocket.UnreadCountPayload{
				ChannelID:   row.ChannelID,
				CommunityID: row.CommunityID,
				UnreadCount: row.UnreadCount,
			})
			if err != nil {
				logg.Warn("Failed to publish unread count", "user", userID, "error", err)
			}
		}
		logg.Info("Seeded unread counts", "user", userID, "channels", len(rows))
	}

	logg.Info("Database seeding completed successfully!")
}
