package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	RedisURL        string
	DataDir         string
	SessionTTL      time.Duration
	SessionIdle     time.Duration
	WatchImmersions bool

	ArrivalThreshold float32
	AnimationFrames  int
	FreeRoam         bool
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),
		DataDir:     getEnv("DATA_DIR", "./data"),
	}

	ttl, err := time.ParseDuration(getEnv("SESSION_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	cfg.SessionTTL = ttl

	cfg.SessionIdle, err = time.ParseDuration(getEnv("SESSION_IDLE", "30m"))
	if err != nil || cfg.SessionIdle <= 0 {
		return nil, fmt.Errorf("invalid SESSION_IDLE %q", os.Getenv("SESSION_IDLE"))
	}

	cfg.WatchImmersions, err = strconv.ParseBool(getEnv("WATCH_IMMERSIONS", strconv.FormatBool(cfg.Environment == "development")))
	if err != nil {
		return nil, fmt.Errorf("invalid WATCH_IMMERSIONS: %w", err)
	}

	threshold, err := strconv.ParseFloat(getEnv("ARRIVAL_THRESHOLD", "2.8"), 32)
	if err != nil || threshold <= 0 {
		return nil, fmt.Errorf("invalid ARRIVAL_THRESHOLD %q", os.Getenv("ARRIVAL_THRESHOLD"))
	}
	cfg.ArrivalThreshold = float32(threshold)

	cfg.AnimationFrames, err = strconv.Atoi(getEnv("ANIMATION_FRAMES", "50"))
	if err != nil {
		return nil, fmt.Errorf("invalid ANIMATION_FRAMES: %w", err)
	}

	cfg.FreeRoam, err = strconv.ParseBool(getEnv("FREE_ROAM", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid FREE_ROAM: %w", err)
	}

	return cfg, nil
}

// IsDevelopment reports whether programmer errors should surface as errors.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
