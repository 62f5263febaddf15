package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	Port        string
	LogLevel    string
	DatabaseURL string
	RedisURL    string

	JWTSecret string
	TokenTTL  time.Duration

	MaxMessageLength   int
	UploadDir          string
	MaxAttachmentBytes int64

	HTTPRateLimit float64
	HTTPRateBurst int

	WSActionsPerSecond float64
	WSActionBurst      int
	WSActionTimeout    time.Duration

	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// Load читает .env.local / .env и переменные окружения
func Load() (Config, error) {
	if err := godotenv.Load(".env.local"); err != nil {
		_ = godotenv.Load()
	}

	cfg := Config{
		Env:            getenv("APP_ENV", "dev"),
		Port:           getenv("PORT", "8080"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       getenv("REDIS_URL", "redis://localhost:6379/0"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		UploadDir:      getenv("UPLOAD_DIR", "uploads"),
		AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),
	}

	ttlHours, err := intEnv("JWT_TTL_HOURS", 24)
	if err != nil {
		return Config{}, err
	}
	cfg.TokenTTL = time.Duration(ttlHours) * time.Hour

	if cfg.MaxMessageLength, err = intEnv("CHAT_MAX_MESSAGE_LENGTH", 500); err != nil {
		return Config{}, err
	}
	maxAttachment, err := intEnv("MAX_ATTACHMENT_BYTES", 5<<20)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxAttachmentBytes = int64(maxAttachment)

	if cfg.HTTPRateLimit, err = floatEnv("HTTP_RATE_LIMIT", 20); err != nil {
		return Config{}, err
	}
	if cfg.HTTPRateBurst, err = intEnv("HTTP_RATE_BURST", 40); err != nil {
		return Config{}, err
	}
	if cfg.WSActionsPerSecond, err = floatEnv("WS_ACTIONS_PER_SECOND", 10); err != nil {
		return Config{}, err
	}
	if cfg.WSActionBurst, err = intEnv("WS_ACTION_BURST", 20); err != nil {
		return Config{}, err
	}

	actionTimeout, err := intEnv("WS_ACTION_TIMEOUT_SECONDS", 10)
	if err != nil {
		return Config{}, err
	}
	cfg.WSActionTimeout = time.Duration(actionTimeout) * time.Second

	shutdown, err := intEnv("SHUTDOWN_TIMEOUT_SECONDS", 30)
	if err != nil {
		return Config{}, err
	}
	cfg.ShutdownTimeout = time.Duration(shutdown) * time.Second

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is not set")
	}
	if cfg.JWTSecret == "" {
		if cfg.Env != "dev" {
			return Config{}, fmt.Errorf("JWT_SECRET is not set")
		}
		cfg.JWTSecret = "dev-secret-change-me"
	}

	return cfg, nil
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func floatEnv(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
