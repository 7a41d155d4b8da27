package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jwebster45206/immersion-engine/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const museumJSON = `{
  "name": "Museum",
  "waypoints": [
    {"id": "entrance", "type": "Stand", "position": {"x": 0, "y": 0, "z": 0}, "looking_at": {"x": 0, "y": 0, "z": 5}},
    {"id": "statue", "type": "Display", "position": {"x": 10, "y": 0, "z": 0}, "looking_at": {"x": 10, "y": 0, "z": 5}}
  ]
}`

const gardenTOML = `
name = "Garden"

[[waypoints]]
id = "gate"
type = "viewpoint"
position = { x = 0.0, y = 0.0, z = 0.0 }
looking_at = { x = 0.0, y = 0.0, z = 1.0 }
`

func writeImmersion(t *testing.T, s *RedisStorage, name, content string) {
	t.Helper()
	dir := s.immersionsDir()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestRedisStorage_ListImmersions(t *testing.T) {
	s, _ := setupTestStorage(t)
	writeImmersion(t, s, "museum.json", museumJSON)
	writeImmersion(t, s, "garden.toml", gardenTOML)
	writeImmersion(t, s, "broken.json", "{")
	writeImmersion(t, s, "notes.txt", "ignored")

	list, err := s.ListImmersions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"Museum": "museum.json",
		"Garden": "garden.toml",
	}, list)
}

func TestRedisStorage_ListImmersionsMissingDir(t *testing.T) {
	s, _ := setupTestStorage(t)
	list, err := s.ListImmersions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRedisStorage_GetImmersion(t *testing.T) {
	s, _ := setupTestStorage(t)
	writeImmersion(t, s, "museum.json", museumJSON)
	ctx := context.Background()

	desc, err := s.GetImmersion(ctx, "museum.json")
	require.NoError(t, err)
	assert.Equal(t, "Museum", desc.Name)
	assert.Len(t, desc.Waypoints, 2)

	tests := []string{"missing.json", "../museum.json", "museum.yaml", ""}
	for _, name := range tests {
		_, err := s.GetImmersion(ctx, name)
		assert.ErrorIs(t, err, storage.ErrImmersionNotFound, name)
	}
}

func TestRedisStorage_ImmersionCache(t *testing.T) {
	s, _ := setupTestStorage(t)
	writeImmersion(t, s, "museum.json", museumJSON)
	ctx := context.Background()

	first, err := s.GetImmersion(ctx, "museum.json")
	require.NoError(t, err)

	writeImmersion(t, s, "museum.json", `{"name": "Renamed", "waypoints": []}`)
	cached, err := s.GetImmersion(ctx, "museum.json")
	require.NoError(t, err)
	assert.Same(t, first, cached)

	s.Invalidate("museum.json")
	fresh, err := s.GetImmersion(ctx, "museum.json")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", fresh.Name)
}

func TestRedisStorage_WatchImmersions(t *testing.T) {
	s, _ := setupTestStorage(t)
	writeImmersion(t, s, "museum.json", museumJSON)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := s.GetImmersion(ctx, "museum.json")
	require.NoError(t, err)

	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- s.WatchImmersions(ctx, ready) }()
	<-ready

	writeImmersion(t, s, "museum.json", `{"name": "Reloaded", "waypoints": []}`)

	assert.Eventually(t, func() bool {
		desc, err := s.GetImmersion(ctx, "museum.json")
		return err == nil && desc.Name == "Reloaded"
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
