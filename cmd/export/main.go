package main

import (
	"context"
	"os"

	"github.com/guildtrack/guildtrack/internal/config"
	"github.com/guildtrack/guildtrack/internal/database"
	"github.com/guildtrack/guildtrack/internal/export"
	"github.com/guildtrack/guildtrack/internal/storage"
	"github.com/guildtrack/guildtrack/internal/store"
	"github.com/guildtrack/guildtrack/pkg/logger"
)

// One-shot export: dump all member records to object storage as a gzipped
// JSON snapshot.
func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if cfg.MongoDB.URI == "" {
		logger.Fatalf("MONGODB_URI is required for export")
	}

	ctx := context.Background()
	client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
	if err != nil {
		logger.Fatalf("failed to connect to MongoDB: %v", err)
	}
	defer func() { _ = client.Disconnect(ctx) }()

	st := store.NewMongoStore(client.Database(cfg.MongoDB.Database).Collection("members"))

	up, err := storage.NewMinIOStorage(&cfg.MinIO)
	if err != nil {
		logger.Fatalf("failed to initialize object storage: %v", err)
	}

	key, err := export.Snapshot(ctx, st, up)
	if err != nil {
		logger.Fatalf("export failed: %v", err)
	}
	logger.Infof("snapshot written: %s", key)
}
