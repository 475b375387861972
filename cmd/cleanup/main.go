package main

import (
	"context"
	"log"
	"log/slog"
	"time"

	"patlogger/internal/app"
	"patlogger/internal/config"
	"patlogger/internal/storage"
	"patlogger/internal/store"
	"patlogger/internal/util"
)

// Removes orphaned image blobs older than the retention window. Safe to
// run from cron; concurrent runs do not conflict.
func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	util.InitLogger(cfg.LogLevel)

	var blobs storage.BlobStore
	if cfg.StorageBackend == "disk" {
		blobs, err = storage.NewDiskStore(cfg.DataDir)
	} else {
		blobs, err = storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	}
	if err != nil {
		log.Fatalf("failed to init blob storage: %v", err)
	}

	// Cleanup never issues or resolves sessions, so it does not need
	// Redis or a JWT secret.
	appCore, err := app.New(app.Config{
		DatabaseURL:   cfg.DatabaseURL,
		BaseURL:       cfg.BaseURL,
		BlobRetention: cfg.BlobRetention(),
		Sessions:      store.NewMemorySessionStore(time.Hour),
		Blobs:         blobs,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	removed, err := appCore.CleanupOrphanedBlobs(ctx)
	if err != nil {
		log.Fatalf("cleanup failed: %v", err)
	}
	slog.Info("cleanup finished", "removed", removed)
}
