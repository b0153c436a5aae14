package main

import (
	"log"
	"os"

	"realtime-service/internal/config"
	"realtime-service/internal/database"
	"realtime-service/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logg := logger.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	logg.Info("Starting database migration...")

	// NewPostgresConnection runs the auto-migration and index creation.
	db, err := database.NewPostgresConnection(cfg.Database.DSN(), logg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Failed to get database instance:", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	logg.Info("Database migration completed successfully!")
}
