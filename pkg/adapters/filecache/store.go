// Package filecache persists the cache snapshot as a single JSON file.
package filecache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/stash/internal/fsutil"
	"github.com/aretw0/stash/pkg/cache"
)

// DefaultFileName is the snapshot file name inside the cache directory.
const DefaultFileName = "items.json"

// Store implements cache.Store on the local filesystem.
type Store struct {
	Path string
}

// New creates a store writing to path. Parent directories are created on save.
func New(path string) *Store {
	return &Store{Path: path}
}

// DefaultPath returns the per-user snapshot location of a container,
// e.g. ~/.cache/stash/<container>/items.json.
func DefaultPath(container string) (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "stash", container, DefaultFileName), nil
}

// Load reads the snapshot. A missing or corrupted file starts fresh.
func (s *Store) Load(ctx context.Context) (cache.Snapshot, bool, error) {
	data, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return cache.Snapshot{}, false, nil
	}
	if err != nil {
		return cache.Snapshot{}, false, fmt.Errorf("failed to read cache: %w", err)
	}

	var snap cache.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		// Corruption self-heals on the next save.
		return cache.Snapshot{}, false, nil
	}
	return snap, true, nil
}

// Save writes the snapshot atomically (temp file + rename).
func (s *Store) Save(ctx context.Context, snap cache.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	return fsutil.WriteFileAtomic(s.Path, data, 0644)
}

var _ cache.Store = (*Store)(nil)
