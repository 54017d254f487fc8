package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// RatingConfig holds the global rating deltas applied per confirmed match.
type RatingConfig struct {
	Win     int
	Draw    int
	Loss    int
	Initial int
}

// R2Config describes the Cloudflare R2 bucket used for archiving finished tournaments.
// Archiving is disabled when AccountID is empty.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicBaseURL   string
}

func (c R2Config) Enabled() bool {
	return c.AccountID != ""
}

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int

	Rating RatingConfig

	DeadlineWarningHours  int
	DisplayUTCOffsetHours int
	SweepInterval         time.Duration
	WarningInterval       time.Duration

	// AdminIDs receive dispute notifications.
	AdminIDs []int64

	// AllowedOrigins - список Origin для CORS, по умолчанию любой.
	AllowedOrigins []string

	R2 R2Config
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	cfg := &Config{
		DatabaseURL:  dbURL,
		JWTSecretKey: jwtKey,
		ServerPort:   port,
	}

	if cfg.Rating.Win, err = getEnvInt("RATING_WIN", 3); err != nil {
		return nil, err
	}
	if cfg.Rating.Draw, err = getEnvInt("RATING_DRAW", 1); err != nil {
		return nil, err
	}
	if cfg.Rating.Loss, err = getEnvInt("RATING_LOSS", -5); err != nil {
		return nil, err
	}
	if cfg.Rating.Initial, err = getEnvInt("INITIAL_RATING", 100); err != nil {
		return nil, err
	}

	if cfg.DeadlineWarningHours, err = getEnvInt("DEADLINE_WARNING_HOURS", 24); err != nil {
		return nil, err
	}
	if cfg.DeadlineWarningHours <= 0 {
		return nil, fmt.Errorf("DEADLINE_WARNING_HOURS must be positive, got %d", cfg.DeadlineWarningHours)
	}
	if cfg.DisplayUTCOffsetHours, err = getEnvInt("DISPLAY_UTC_OFFSET_HOURS", 3); err != nil {
		return nil, err
	}
	if cfg.DisplayUTCOffsetHours < -12 || cfg.DisplayUTCOffsetHours > 14 {
		return nil, fmt.Errorf("DISPLAY_UTC_OFFSET_HOURS out of range: %d", cfg.DisplayUTCOffsetHours)
	}

	if cfg.SweepInterval, err = getEnvDuration("SWEEP_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.WarningInterval, err = getEnvDuration("WARNING_INTERVAL", time.Hour); err != nil {
		return nil, err
	}

	if cfg.AdminIDs, err = parseIDList(os.Getenv("ADMIN_IDS")); err != nil {
		return nil, fmt.Errorf("invalid ADMIN_IDS environment variable: %w", err)
	}

	cfg.AllowedOrigins = []string{"*"}
	if raw := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS")); raw != "" {
		cfg.AllowedOrigins = cfg.AllowedOrigins[:0]
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	}

	cfg.R2 = R2Config{
		AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		BucketName:      os.Getenv("R2_BUCKET_NAME"),
		PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
	}

	return cfg, nil
}

func getEnvInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, v)
	}
	return v, nil
}

func parseIDList(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
