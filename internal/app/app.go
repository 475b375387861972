package app

import (
	"fmt"
	"strings"
	"time"

	"patlogger/internal/storage"
	"patlogger/internal/store"
)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	JWTSecret     string
	SessionTTL    time.Duration

	// BaseURL is the externally visible origin used in QR codes and
	// exported image links, without a trailing slash.
	BaseURL string

	// BlobRetention is how long an orphaned blob survives before cleanup
	// may remove it.
	BlobRetention time.Duration

	Store    store.Store
	Sessions store.SessionStore
	Blobs    storage.BlobStore

	// Now overrides the clock in tests.
	Now func() time.Time
}

// App is the core application service wiring storage, sessions, and blob
// handling together.
type App struct {
	store         store.Store
	sessions      store.SessionStore
	blobs         storage.BlobStore
	baseURL       string
	blobRetention time.Duration
	now           func() time.Time
}

// New constructs the application with database storage and session
// management.
func New(cfg Config) (*App, error) {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.BlobRetention == 0 {
		cfg.BlobRetention = 48 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}

	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}

	sessionStore := cfg.Sessions
	if sessionStore == nil {
		switch {
		case strings.TrimSpace(cfg.JWTSecret) != "":
			var err error
			sessionStore, err = store.NewJWTSessionStore(cfg.JWTSecret, cfg.SessionTTL)
			if err != nil {
				return nil, fmt.Errorf("init jwt session store: %w", err)
			}
		case strings.TrimSpace(cfg.RedisAddr) != "":
			sessionStore = store.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword, cfg.SessionTTL)
		default:
			return nil, fmt.Errorf("session store required (jwtSecret or redisAddr)")
		}
	}

	if cfg.Blobs == nil {
		return nil, fmt.Errorf("blob storage is required")
	}

	return &App{
		store:         dataStore,
		sessions:      sessionStore,
		blobs:         cfg.Blobs,
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		blobRetention: cfg.BlobRetention,
		now:           cfg.Now,
	}, nil
}

// BaseURL reports the configured external origin.
func (a *App) BaseURL() string { return a.baseURL }
