package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/immersion-engine/pkg/session"
	"github.com/jwebster45206/immersion-engine/pkg/state"
	"github.com/jwebster45206/immersion-engine/pkg/storage"
)

var ErrSessionNotFound = errors.New("session not found")

// Hub owns the live sessions of this process. Sessions evicted from memory
// are rebuilt from storage on demand.
type Hub struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*liveSession
	now      func() time.Time

	store     storage.Storage
	publisher Publisher
	settings  Settings
	logger    *slog.Logger
}

type liveSession struct {
	sess  *Session
	used  time.Time
	saved time.Time
}

func NewHub(store storage.Storage, publisher Publisher, settings Settings, logger *slog.Logger) *Hub {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &Hub{
		sessions:  make(map[uuid.UUID]*liveSession),
		now:       time.Now,
		store:     store,
		publisher: publisher,
		settings:  settings,
		logger:    logger,
	}
}

// Create starts a new session on an immersion descriptor.
func (h *Hub) Create(ctx context.Context, immersionFile string, cfg session.Config) (*Session, Result, error) {
	st := state.NewSession(immersionFile, cfg)
	sess, err := h.build(ctx, st)
	if err != nil {
		return nil, Result{}, err
	}

	res := sess.Start(ctx)
	if err := h.store.SaveSession(ctx, sess.stateCopy()); err != nil {
		return nil, Result{}, fmt.Errorf("failed to save session: %w", err)
	}

	h.mu.Lock()
	now := h.now()
	h.sessions[st.ID] = &liveSession{sess: sess, used: now, saved: now}
	h.mu.Unlock()

	h.logger.Info("Session created",
		"session_id", st.ID.String(),
		"immersion", immersionFile,
		"lang", st.Config.Lang,
		"mode", st.Config.Mode)
	return sess, res, nil
}

func (h *Hub) build(ctx context.Context, st *state.Session) (*Session, error) {
	desc, err := h.store.GetImmersion(ctx, st.Immersion)
	if err != nil {
		return nil, err
	}
	im, errs := desc.Build(st.Config.Lang)
	for _, e := range errs {
		h.logger.Warn("Immersion configuration error", "immersion", st.Immersion, "error", e)
	}
	return NewSession(st, im, h.settings, h.publisher, h.logger)
}

// Get returns a live session, rebuilding it from storage when needed.
func (h *Hub) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	h.mu.Lock()
	if live, ok := h.sessions[id]; ok {
		now := h.now()
		ttl := h.settings.SessionTTL
		if ttl <= 0 || now.Sub(live.saved) < ttl {
			live.used = now
			h.mu.Unlock()
			return live.sess, nil
		}
		// Storage has expired it; only storage can say whether it still exists.
		delete(h.sessions, id)
		h.logger.Debug("Live session outlived its storage TTL", "session_id", id.String())
	}
	h.mu.Unlock()

	st, err := h.store.LoadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	sess, err := h.build(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild session: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	// Another request may have rebuilt it first.
	if existing, ok := h.sessions[id]; ok {
		existing.used = h.now()
		return existing.sess, nil
	}
	now := h.now()
	h.sessions[id] = &liveSession{sess: sess, used: now, saved: now}
	h.logger.Debug("Session rebuilt from storage", "session_id", id.String())
	return sess, nil
}

// Apply runs cmd on a session and saves it when anything changed.
func (h *Hub) Apply(ctx context.Context, id uuid.UUID, cmd Command) (Result, error) {
	sess, err := h.Get(ctx, id)
	if err != nil {
		return Result{}, err
	}
	res, applyErr := sess.Apply(ctx, cmd)
	if res.Changed {
		if err := h.store.SaveSession(ctx, sess.stateCopy()); err != nil {
			h.logger.Error("Failed to save session", "session_id", id.String(), "error", err)
			if applyErr == nil {
				applyErr = fmt.Errorf("failed to save session: %w", err)
			}
		} else {
			h.mu.Lock()
			if live, ok := h.sessions[id]; ok {
				live.saved = h.now()
			}
			h.mu.Unlock()
		}
	}
	return res, applyErr
}

// End drops a session from memory and storage.
func (h *Hub) End(ctx context.Context, id uuid.UUID) error {
	h.mu.Lock()
	_, live := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()

	if !live {
		st, err := h.store.LoadSession(ctx, id)
		if err != nil {
			return err
		}
		if st == nil {
			return fmt.Errorf("%s: %w", id, ErrSessionNotFound)
		}
	}
	if err := h.store.DeleteSession(ctx, id); err != nil {
		return err
	}
	if err := h.publisher.PublishSessionEnded(ctx, id); err != nil {
		h.logger.Warn("Failed to publish session end", "session_id", id.String(), "error", err)
	}
	h.logger.Info("Session ended", "session_id", id.String())
	return nil
}

// EvictIdle forgets live sessions unused for maxIdle without deleting them
// from storage, and returns how many were dropped.
func (h *Hub) EvictIdle(maxIdle time.Duration) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := h.now()
	n := 0
	for id, live := range h.sessions {
		if now.Sub(live.used) >= maxIdle {
			delete(h.sessions, id)
			n++
		}
	}
	if n > 0 {
		h.logger.Debug("Evicted idle sessions", "count", n, "live", len(h.sessions))
	}
	return n
}

// Sweep runs EvictIdle every interval until ctx is done.
func (h *Hub) Sweep(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.EvictIdle(maxIdle)
		}
	}
}

// Len returns the number of live sessions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func (s *Session) stateCopy() *state.Session {
	st := s.State()
	return &st
}
