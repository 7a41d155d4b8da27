package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jwebster45206/immersion-engine/pkg/immersion"
	"github.com/jwebster45206/immersion-engine/pkg/state"
)

// ErrImmersionNotFound is returned when no descriptor has the requested filename.
var ErrImmersionNotFound = errors.New("immersion not found")

// Storage defines a unified interface for all storage operations
// This interface combines session persistence (Redis) with descriptor loading (filesystem)
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Session operations (Redis-backed). LoadSession returns nil, nil when
	// the session does not exist or has expired.
	SaveSession(ctx context.Context, s *state.Session) error
	LoadSession(ctx context.Context, id uuid.UUID) (*state.Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error

	// Immersion operations (filesystem-backed)
	ListImmersions(ctx context.Context) (map[string]string, error)
	GetImmersion(ctx context.Context, filename string) (*immersion.Descriptor, error)
}
