package state

import (
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/immersion-engine/pkg/navigation"
	"github.com/jwebster45206/immersion-engine/pkg/session"
)

// Session is the persisted state of one viewer walking through an immersion.
type Session struct {
	ID        uuid.UUID         `json:"id"`
	Immersion string            `json:"immersion"` // descriptor filename
	Name      string            `json:"name,omitempty"`
	Config    session.Config    `json:"config"`
	Cursor    navigation.Cursor `json:"cursor"`
	Unlocked  []string          `json:"unlocked,omitempty"` // lockable ids
	Remaining int               `json:"remaining"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func NewSession(immersionFile string, cfg session.Config) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.New(),
		Immersion: immersionFile,
		Config:    cfg.Normalize(),
		Cursor:    navigation.Cursor{Index: -1},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasUnlocked reports whether the lockable id was already picked.
func (s *Session) HasUnlocked(id string) bool {
	for _, u := range s.Unlocked {
		if u == id {
			return true
		}
	}
	return false
}
