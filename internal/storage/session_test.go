package storage

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jwebster45206/immersion-engine/pkg/navigation"
	"github.com/jwebster45206/immersion-engine/pkg/session"
	"github.com/jwebster45206/immersion-engine/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStorage(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	s, err := NewRedisStorage("redis://"+mr.Addr(), t.TempDir(), time.Hour, logger)
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create storage: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
		mr.Close()
	})
	return s, mr
}

func TestRedisStorage_SaveAndLoadSession(t *testing.T) {
	s, mr := setupTestStorage(t)
	ctx := context.Background()

	sess := state.NewSession("museum.json", session.Config{Lang: "fr", Dest: "statue"})
	sess.Cursor = navigation.Cursor{Index: 1, Waypoint: "statue", Visited: []string{"statue"}}
	sess.Unlocked = []string{"coin"}

	require.NoError(t, s.SaveSession(ctx, sess))
	assert.True(t, mr.Exists("session:"+sess.ID.String()))
	assert.Equal(t, time.Hour, mr.TTL("session:"+sess.ID.String()))

	loaded, err := s.LoadSession(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, sess.ID, loaded.ID)
	assert.Equal(t, "fr", loaded.Config.Lang)
	assert.Equal(t, "statue", loaded.Cursor.Waypoint)
	assert.Equal(t, []string{"coin"}, loaded.Unlocked)
}

func TestRedisStorage_LoadMissingSession(t *testing.T) {
	s, _ := setupTestStorage(t)

	loaded, err := s.LoadSession(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisStorage_SessionExpires(t *testing.T) {
	s, mr := setupTestStorage(t)
	ctx := context.Background()

	sess := state.NewSession("museum.json", session.Default())
	require.NoError(t, s.SaveSession(ctx, sess))

	mr.FastForward(2 * time.Hour)
	loaded, err := s.LoadSession(ctx, sess.ID)
	assert.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisStorage_DeleteSession(t *testing.T) {
	s, _ := setupTestStorage(t)
	ctx := context.Background()

	sess := state.NewSession("museum.json", session.Default())
	require.NoError(t, s.SaveSession(ctx, sess))
	require.NoError(t, s.DeleteSession(ctx, sess.ID))

	loaded, err := s.LoadSession(ctx, sess.ID)
	assert.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisStorage_SaveNil(t *testing.T) {
	s, _ := setupTestStorage(t)
	assert.Error(t, s.SaveSession(context.Background(), nil))
}

func TestRedisStorage_CorruptSession(t *testing.T) {
	s, mr := setupTestStorage(t)
	id := uuid.New()
	require.NoError(t, mr.Set("session:"+id.String(), "{not json"))

	_, err := s.LoadSession(context.Background(), id)
	assert.Error(t, err)
}

func TestRedisStorage_Ping(t *testing.T) {
	s, mr := setupTestStorage(t)
	ctx := context.Background()
	assert.NoError(t, s.Ping(ctx))
	assert.NoError(t, s.WaitForConnection(ctx, 1, time.Millisecond))

	mr.SetError("server down")
	assert.Error(t, s.Ping(ctx))
}
