// Package cache is the local read path of stash: an in-memory map of items
// backed by a persisted snapshot with a freshness window.
package cache

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/stash/pkg/core"
)

// DefaultFreshness is how long a full synchronization stays valid.
const DefaultFreshness = 5 * time.Minute

// Snapshot is the persisted form of the cache: every item plus the time of
// the last full synchronization with the remote store, in epoch milliseconds.
type Snapshot struct {
	Items     []core.Item `json:"items"`
	Timestamp int64       `json:"timestamp"`
}

// Store persists a single snapshot under one fixed key.
type Store interface {
	// Load returns the persisted snapshot. A missing or unreadable snapshot
	// is reported as (Snapshot{}, false, nil).
	Load(ctx context.Context) (Snapshot, bool, error)
	// Save replaces the persisted snapshot.
	Save(ctx context.Context, s Snapshot) error
}

// Config holds the configuration of a Cache.
type Config struct {
	Store     Store
	Freshness time.Duration
	Logger    *slog.Logger
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

// Cache is an in-memory map of items with write-through persistence.
// Every mutating call re-persists the full map before returning.
type Cache struct {
	store     Store
	freshness time.Duration
	logger    *slog.Logger
	now       func() time.Time

	// persistMu orders snapshot writes the same way as the mutations that produced them.
	persistMu sync.Mutex
	mu        sync.RWMutex
	items     map[string]core.Item
	lastSync  time.Time
}

// New creates a cache. A nil Store keeps the cache purely in memory.
func New(cfg Config) *Cache {
	if cfg.Freshness <= 0 {
		cfg.Freshness = DefaultFreshness
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Cache{
		store:     cfg.Store,
		freshness: cfg.Freshness,
		logger:    cfg.Logger,
		now:       cfg.Now,
		items:     make(map[string]core.Item),
	}
}

// Load returns the persisted snapshot if it holds at least one item and is
// within the freshness window, and adopts it as the in-memory state.
// An empty snapshot is never valid: it could hide a failed fetch.
func (c *Cache) Load(ctx context.Context) ([]core.Item, bool) {
	snap, ok := c.read(ctx)
	if !ok || len(snap.Items) == 0 {
		return nil, false
	}
	ts := time.UnixMilli(snap.Timestamp)
	if c.now().Sub(ts) > c.freshness {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.replace(snap.Items, ts)
	return c.all(), true
}

// Restore adopts the persisted snapshot regardless of its age, keeping its
// timestamp so IsStale still reports the truth. It is a no-op if memory
// already holds items.
func (c *Cache) Restore(ctx context.Context) []core.Item {
	c.mu.RLock()
	populated := len(c.items) > 0
	c.mu.RUnlock()
	if populated {
		return c.All()
	}

	snap, ok := c.read(ctx)
	if !ok {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) == 0 {
		c.replace(snap.Items, time.UnixMilli(snap.Timestamp))
	}
	return c.all()
}

// Save replaces the whole collection and stamps the current time as the
// last full synchronization.
func (c *Cache) Save(ctx context.Context, items []core.Item) {
	c.mutate(ctx, func() bool {
		c.replace(items, c.now())
		return true
	})
}

// Get returns a cached item.
func (c *Cache) Get(id string) (core.Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.items[id]
	if !ok {
		return core.Item{}, false
	}
	return it.Clone(), true
}

// Set inserts or replaces an item.
func (c *Cache) Set(ctx context.Context, it core.Item) {
	c.mutate(ctx, func() bool {
		c.items[it.ID] = it.Clone()
		return true
	})
}

// Update merges patch into the cached item and returns the result.
// It reports false if the item is not cached.
func (c *Cache) Update(ctx context.Context, id string, patch core.Patch) (core.Item, bool) {
	var merged core.Item
	ok := c.mutate(ctx, func() bool {
		cur, ok := c.items[id]
		if !ok {
			return false
		}
		merged = patch.Apply(cur)
		c.items[id] = merged
		return true
	})
	if !ok {
		return core.Item{}, false
	}
	return merged.Clone(), true
}

// Delete removes an item and reports whether it was cached.
func (c *Cache) Delete(ctx context.Context, id string) bool {
	return c.mutate(ctx, func() bool {
		if _, ok := c.items[id]; !ok {
			return false
		}
		delete(c.items, id)
		return true
	})
}

// All returns every cached item in no particular order.
func (c *Cache) All() []core.Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.all()
}

// Len returns the number of cached items.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// IsStale reports whether the last full synchronization is older than the
// freshness window. A cache that never synchronized is stale.
func (c *Cache) IsStale() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stale()
}

// LastSync returns the time of the last full synchronization.
func (c *Cache) LastSync() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSync
}

func (c *Cache) stale() bool {
	if c.lastSync.IsZero() {
		return true
	}
	return c.now().Sub(c.lastSync) > c.freshness
}

// replace must be called with mu held.
func (c *Cache) replace(items []core.Item, ts time.Time) {
	c.items = make(map[string]core.Item, len(items))
	for _, it := range items {
		c.items[it.ID] = it.Clone()
	}
	c.lastSync = ts
}

// all must be called with mu held.
func (c *Cache) all() []core.Item {
	out := make([]core.Item, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, it.Clone())
	}
	return out
}

// snapshot must be called with mu held.
func (c *Cache) snapshot() Snapshot {
	var ts int64
	if !c.lastSync.IsZero() {
		ts = c.lastSync.UnixMilli()
	}
	return Snapshot{Items: core.Sort(c.all()), Timestamp: ts}
}

func (c *Cache) read(ctx context.Context) (Snapshot, bool) {
	if c.store == nil {
		return Snapshot{}, false
	}
	snap, ok, err := c.store.Load(ctx)
	if err != nil {
		c.logger.Warn("failed to load cache snapshot", "error", err)
		return Snapshot{}, false
	}
	return snap, ok
}

// mutate applies fn under the write lock and, if fn changed anything,
// persists the resulting state before returning.
func (c *Cache) mutate(ctx context.Context, fn func() bool) bool {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	changed := fn()
	var snap Snapshot
	if changed {
		snap = c.snapshot()
	}
	c.mu.Unlock()

	if changed {
		c.persist(ctx, snap)
	}
	return changed
}

// persist writes the snapshot. Failures are logged and otherwise ignored:
// the in-memory map stays authoritative for the session.
func (c *Cache) persist(ctx context.Context, snap Snapshot) {
	if c.store == nil {
		return
	}
	if err := c.store.Save(ctx, snap); err != nil {
		c.logger.Warn("failed to persist cache snapshot", "error", err, "items", len(snap.Items))
	}
}
