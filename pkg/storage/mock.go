package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/immersion-engine/pkg/immersion"
	"github.com/jwebster45206/immersion-engine/pkg/state"
)

// MockStorage is a mock implementation of Storage for testing
type MockStorage struct {
	mu         sync.RWMutex
	sessions   map[uuid.UUID]*state.Session
	immersions map[string]*immersion.Descriptor
	pingError  error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

func NewMockStorage() *MockStorage {
	return &MockStorage{
		sessions:   make(map[uuid.UUID]*state.Session),
		immersions: make(map[string]*immersion.Descriptor),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockStorage) Close() error {
	return nil
}

func (m *MockStorage) SaveSession(ctx context.Context, s *state.Session) error {
	if s == nil {
		return errors.New("session cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s.UpdatedAt = time.Now()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *MockStorage) LoadSession(ctx context.Context, id uuid.UUID) (*state.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, exists := m.sessions[id]
	if !exists {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *MockStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MockStorage) ListImmersions(ctx context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]string)
	for filename, d := range m.immersions {
		result[d.Name] = filename
	}
	return result, nil
}

func (m *MockStorage) GetImmersion(ctx context.Context, filename string) (*immersion.Descriptor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, exists := m.immersions[filename]
	if !exists {
		return nil, fmt.Errorf("%s: %w", filename, ErrImmersionNotFound)
	}
	return d, nil
}

// AddImmersion adds a descriptor to the mock storage (for testing)
func (m *MockStorage) AddImmersion(filename string, d *immersion.Descriptor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.FileName == "" {
		d.FileName = filename
	}
	m.immersions[filename] = d
}
