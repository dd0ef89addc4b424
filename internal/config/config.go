package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Addr string

	RedisURL    string
	DatabaseURL string

	// BaseURL is the externally visible address used for shareable join
	// links and QR codes, e.g. https://chess.example.com.
	BaseURL string

	GameTTL        time.Duration
	CodeLength     int
	CreateAttempts int

	IdentityCookie string
	IdentityMaxAge time.Duration
}

// Load reads configuration from a .env file (if present) and the
// environment. REDIS_URL is the only required setting; without DATABASE_URL
// the archive falls back to its in-memory implementation.
func Load() (*AppConfig, error) {
	// Ignore error so the app still starts when .env is absent.
	_ = godotenv.Load()

	cfg := &AppConfig{
		Addr:           ":8080",
		GameTTL:        24 * time.Hour,
		CodeLength:     6,
		CreateAttempts: 5,
		IdentityCookie: "pairchess_id",
		IdentityMaxAge: 365 * 24 * time.Hour,
	}

	if v := strings.TrimSpace(os.Getenv("ADDR")); v != "" {
		cfg.Addr = v
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("BASE_URL")), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}

	if v := strings.TrimSpace(os.Getenv("GAME_TTL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.GameTTL = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("GAME_CODE_LENGTH")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 4 && n <= 12 {
			cfg.CodeLength = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("GAME_CREATE_ATTEMPTS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CreateAttempts = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("IDENTITY_COOKIE")); v != "" {
		cfg.IdentityCookie = v
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	return cfg, nil
}
