package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENVIRONMENT", "LOG_LEVEL", "REDIS_URL", "DATA_DIR",
		"SESSION_TTL", "SESSION_IDLE", "WATCH_IMMERSIONS", "ARRIVAL_THRESHOLD", "ANIMATION_FRAMES", "FREE_ROAM"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 30*time.Minute, cfg.SessionIdle)
	assert.True(t, cfg.WatchImmersions)
	assert.InDelta(t, 2.8, cfg.ArrivalThreshold, 0.0001)
	assert.Equal(t, 50, cfg.AnimationFrames)
	assert.False(t, cfg.FreeRoam)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("LOG_LEVEL", "warning")
	t.Setenv("SESSION_TTL", "90m")
	t.Setenv("SESSION_IDLE", "5m")
	t.Setenv("WATCH_IMMERSIONS", "")
	t.Setenv("ARRIVAL_THRESHOLD", "2.5")
	t.Setenv("ANIMATION_FRAMES", "0")
	t.Setenv("FREE_ROAM", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
	assert.Equal(t, 90*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 5*time.Minute, cfg.SessionIdle)
	assert.False(t, cfg.WatchImmersions)
	assert.InDelta(t, 2.5, cfg.ArrivalThreshold, 0.0001)
	assert.Equal(t, 0, cfg.AnimationFrames)
	assert.True(t, cfg.FreeRoam)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "ttl", key: "SESSION_TTL", value: "forever"},
		{name: "idle", key: "SESSION_IDLE", value: "0s"},
		{name: "watch", key: "WATCH_IMMERSIONS", value: "sometimes"},
		{name: "threshold", key: "ARRIVAL_THRESHOLD", value: "-1"},
		{name: "frames", key: "ANIMATION_FRAMES", value: "many"},
		{name: "free roam", key: "FREE_ROAM", value: "everywhere"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
