package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"patlogger/internal/app"
	"patlogger/internal/config"
	"patlogger/internal/ratelimit"
	"patlogger/internal/server"
	"patlogger/internal/storage"
	"patlogger/internal/util"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session TTL: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	blobs, err := newBlobStore(cfg)
	if err != nil {
		log.Fatalf("failed to init blob storage: %v", err)
	}

	appCore, err := app.New(app.Config{
		DatabaseURL:   cfg.DatabaseURL,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		JWTSecret:     cfg.JWTSecret,
		SessionTTL:    sessionTTL,
		BaseURL:       cfg.BaseURL,
		BlobRetention: cfg.BlobRetention(),
		Blobs:         blobs,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	signupLimiter, err := newLimiter(cfg, "signup", cfg.SignupRateLimitPerMinute)
	if err != nil {
		log.Fatalf("failed to init signup limiter: %v", err)
	}
	loginLimiter, err := newLimiter(cfg, "login", cfg.LoginRateLimitPerMinute)
	if err != nil {
		log.Fatalf("failed to init login limiter: %v", err)
	}

	httpServer := server.New(server.Config{
		App:           appCore,
		SignupLimiter: signupLimiter,
		LoginLimiter:  loginLimiter,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("pat logger listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}

func newBlobStore(cfg config.FileConfig) (storage.BlobStore, error) {
	if cfg.StorageBackend == "disk" {
		return storage.NewDiskStore(cfg.DataDir)
	}
	return storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
}

func newLimiter(cfg config.FileConfig, name string, limit int) (*ratelimit.FixedWindowLimiter, error) {
	if limit <= 0 {
		return nil, nil
	}
	prefix := "patlogger:ratelimit:" + name
	return ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, prefix, limit, time.Minute)
}
