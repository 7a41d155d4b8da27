package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jwebster45206/immersion-engine/pkg/immersion"
	"github.com/jwebster45206/immersion-engine/pkg/storage"
)

func (r *RedisStorage) immersionsDir() string {
	return filepath.Join(r.dataDir, "immersions")
}

func isDescriptorFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".toml":
		return true
	}
	return false
}

// Immersion operations (filesystem-backed)

func (r *RedisStorage) ListImmersions(ctx context.Context) (map[string]string, error) {
	immersions := make(map[string]string)

	err := filepath.WalkDir(r.immersionsDir(), func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !isDescriptorFile(path) {
			return nil
		}

		desc, err := r.GetImmersion(ctx, filepath.Base(path))
		if err != nil {
			r.logger.Warn("Skipping unreadable immersion", "path", path, "error", err)
			return nil
		}
		immersions[desc.Name] = desc.FileName
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to walk immersions directory", "error", err)
		return nil, fmt.Errorf("failed to list immersions: %w", err)
	}

	return immersions, nil
}

// GetImmersion returns the descriptor stored under filename. Descriptors are
// cached until Invalidate drops them.
func (r *RedisStorage) GetImmersion(ctx context.Context, filename string) (*immersion.Descriptor, error) {
	if filename == "" || filepath.Base(filename) != filename || !isDescriptorFile(filename) {
		return nil, fmt.Errorf("%s: %w", filename, storage.ErrImmersionNotFound)
	}

	r.mu.RLock()
	cached, ok := r.cache[filename]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	path := filepath.Join(r.immersionsDir(), filename)
	r.logger.Debug("Loading immersion", "filename", filename, "full_path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", filename, storage.ErrImmersionNotFound)
		}
		return nil, fmt.Errorf("failed to read immersion file: %w", err)
	}

	desc, err := immersion.Decode(filename, data)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[filename] = desc
	r.mu.Unlock()
	return desc, nil
}

// Invalidate drops a cached descriptor so the next read goes to disk.
func (r *RedisStorage) Invalidate(filename string) {
	r.mu.Lock()
	delete(r.cache, filename)
	r.mu.Unlock()
}
