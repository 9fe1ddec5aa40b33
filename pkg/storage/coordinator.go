// Package storage coordinates the remote store and the local cache.
//
// The Coordinator is the single source of truth exposed to callers. It owns
// the path index (id -> remote path and version token), sequences writes
// against the remote store and keeps the cache in step with every successful
// or optimistic mutation. Every collection it returns is in core.Sort order.
package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/aretw0/stash/pkg/cache"
	"github.com/aretw0/stash/pkg/core"
)

// Config holds the collaborators of a Coordinator.
type Config struct {
	Remote core.Remote
	Cache  *cache.Cache
	Logger *slog.Logger
	// Now overrides the clock used for updatedAt, mainly for tests.
	Now func() time.Time
}

// location is where an item lives remotely. An empty version means the
// token is unknown and must be read before the next overwrite.
type location struct {
	path    string
	version string
}

// Coordinator implements the storage operations on top of a core.Remote and
// a cache.Cache.
type Coordinator struct {
	remote core.Remote
	cache  *cache.Cache
	logger *slog.Logger
	now    func() time.Time

	mu          sync.RWMutex
	initialized bool
	index       map[string]location
}

// New creates a coordinator. A nil Cache is replaced by a memory-only one.
func New(cfg Config) *Coordinator {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.New(cache.Config{Logger: cfg.Logger})
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Coordinator{
		remote: cfg.Remote,
		cache:  cfg.Cache,
		logger: cfg.Logger,
		now:    cfg.Now,
		index:  make(map[string]location),
	}
}

// Cache returns the cache owned by the coordinator.
func (c *Coordinator) Cache() *cache.Cache {
	return c.cache
}

// Initialize makes sure the remote container exists. Calling it again after
// a success is a no-op; after a failure it retries.
func (c *Coordinator) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return nil
	}
	if c.remote == nil {
		return fmt.Errorf("%w: no remote store configured", core.ErrRemoteUnavailable)
	}
	if err := c.remote.Initialize(ctx); err != nil {
		return err
	}
	c.initialized = true
	return nil
}

// Initialized reports whether Initialize succeeded.
func (c *Coordinator) Initialized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.initialized
}

func (c *Coordinator) ensureInitialized() error {
	if !c.Initialized() {
		return core.ErrNotInitialized
	}
	return nil
}

type fetched struct {
	item    core.Item
	path    string
	version string
	ok      bool
}

// FetchAll returns every item. Unless force is set, a fresh non-empty cache
// answers without contacting the remote store. Otherwise every object under
// the data prefix is read in parallel; objects that cannot be read or parsed
// are dropped and logged. The cache is only replaced when at least one item
// was obtained.
func (c *Coordinator) FetchAll(ctx context.Context, force bool) ([]core.Item, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}

	if !force {
		if c.cache.Len() > 0 && !c.cache.IsStale() {
			return core.Sort(c.cache.All()), nil
		}
		if items, ok := c.cache.Load(ctx); ok {
			return core.Sort(items), nil
		}
	}

	entries, err := c.remote.List(ctx, core.DataDir)
	if err != nil {
		return nil, err
	}
	entries = slices.DeleteFunc(entries, func(e core.Entry) bool { return !core.IsDataFile(e.Name) })
	slices.SortFunc(entries, func(a, b core.Entry) int { return strings.Compare(b.Name, a.Name) })

	results := make([]fetched, len(entries))
	var g errgroup.Group
	for i, e := range entries {
		g.Go(func() error {
			results[i] = c.fetchOne(ctx, e.Path)
			return nil
		})
	}
	_ = g.Wait()

	items := make([]core.Item, 0, len(results))
	seen := make(map[string]bool, len(results))
	c.mu.Lock()
	for _, r := range results {
		if !r.ok {
			continue
		}
		if seen[r.item.ID] {
			c.logger.Warn("duplicate item id in remote store", "id", r.item.ID, "path", r.path)
			continue
		}
		seen[r.item.ID] = true
		c.index[r.item.ID] = location{path: r.path, version: r.version}
		items = append(items, r.item)
	}
	c.mu.Unlock()

	if len(items) == 0 {
		// Keeps the previous snapshot. A remote that is really empty stays
		// masked by the cache until it holds an item again.
		c.logger.Warn("remote fetch returned no items, keeping cached snapshot", "listed", len(entries))
		return items, nil
	}
	c.cache.Save(ctx, items)
	c.logger.Debug("fetched items from remote", "items", len(items), "listed", len(entries))
	return core.Sort(items), nil
}

func (c *Coordinator) fetchOne(ctx context.Context, p string) fetched {
	obj, ok, err := c.remote.Read(ctx, p)
	if err != nil {
		c.logger.Warn("dropping unreadable object", "path", p, "error", err)
		return fetched{}
	}
	if !ok {
		c.logger.Debug("object vanished while fetching", "path", p)
		return fetched{}
	}
	it, err := core.Decode(obj.Content)
	if err != nil {
		c.logger.Warn("dropping malformed object", "path", p, "error", err)
		return fetched{}
	}
	return fetched{item: it, path: p, version: obj.Version, ok: true}
}

// Save writes a new item to the path derived from its createdAt and id, then
// records it in the cache and the path index.
func (c *Coordinator) Save(ctx context.Context, it core.Item) error {
	if err := c.ensureInitialized(); err != nil {
		return err
	}
	if err := it.Validate(); err != nil {
		return err
	}

	data, err := core.Encode(it)
	if err != nil {
		return err
	}
	p := core.DataPath(it)
	version, err := c.remote.Create(ctx, p, data, core.AddMessage(it))
	if err != nil {
		return err
	}

	c.setLocation(it.ID, location{path: p, version: version})
	c.cache.Set(ctx, it)
	return nil
}

// ApplyUpdate overwrites the remote object of it with a refreshed updatedAt.
// The path comes from the index when known and is derived otherwise. A stale
// token surfaces core.ErrConflict and the caller is expected to FetchAll and
// retry.
func (c *Coordinator) ApplyUpdate(ctx context.Context, it core.Item) (core.Item, error) {
	if err := c.ensureInitialized(); err != nil {
		return core.Item{}, err
	}
	if err := it.Validate(); err != nil {
		return core.Item{}, err
	}

	if cached, ok := c.cache.Get(it.ID); ok {
		it = it.WithCreatedFrom(cached)
	}
	loc, indexed := c.locate(it)
	if loc.version == "" {
		var (
			stored []byte
			err    error
		)
		if loc, stored, err = c.lookup(ctx, "update", it.ID, loc, !indexed); err != nil {
			return core.Item{}, err
		}
		if prev, err := core.Decode(stored); err == nil {
			it = it.WithCreatedFrom(prev)
		}
	}

	it = it.Clone()
	it.UpdatedAt = c.now().UTC().Truncate(time.Millisecond)
	data, err := core.Encode(it)
	if err != nil {
		return core.Item{}, err
	}

	version, err := c.remote.Update(ctx, loc.path, data, loc.version, core.UpdateMessage(it))
	if err != nil {
		if errors.Is(err, core.ErrConflict) || errors.Is(err, core.ErrNotFound) {
			c.forgetVersion(it.ID)
		}
		return core.Item{}, err
	}

	c.setLocation(it.ID, location{path: loc.path, version: version})
	c.cache.Set(ctx, it)
	return it, nil
}

// Edit merges patch into the current value of the item and applies it.
func (c *Coordinator) Edit(ctx context.Context, id string, patch core.Patch) (core.Item, error) {
	cur, err := c.Get(ctx, id)
	if err != nil {
		return core.Item{}, err
	}
	if patch.Empty() {
		return cur, nil
	}
	return c.ApplyUpdate(ctx, patch.Apply(cur))
}

// ToggleFlag inverts the named flag of it and applies the result. The updated
// item is returned so callers can reconcile an optimistic view.
func (c *Coordinator) ToggleFlag(ctx context.Context, it core.Item, flag core.Flag) (core.Item, error) {
	toggled, err := it.Toggled(flag)
	if err != nil {
		return core.Item{}, err
	}
	return c.ApplyUpdate(ctx, toggled)
}

// Remove deletes the item with the given id.
func (c *Coordinator) Remove(ctx context.Context, id string) error {
	return c.remove(ctx, id, nil)
}

// RemoveItem deletes it. The item value lets the path be derived even when
// neither the index nor the cache knows it.
func (c *Coordinator) RemoveItem(ctx context.Context, it core.Item) error {
	return c.remove(ctx, it.ID, &it)
}

func (c *Coordinator) remove(ctx context.Context, id string, given *core.Item) error {
	if err := c.ensureInitialized(); err != nil {
		return err
	}

	entity, haveEntity := c.cache.Get(id)
	if !haveEntity && given != nil {
		entity, haveEntity = *given, true
	}

	c.mu.RLock()
	loc, indexed := c.index[id]
	c.mu.RUnlock()
	if !indexed {
		if !haveEntity || entity.CreatedAt.IsZero() {
			c.logger.Debug("no remote path known, removing from cache only", "id", id)
			c.cache.Delete(ctx, id)
			return nil
		}
		loc = location{path: core.DataPath(entity)}
	}

	if loc.version == "" {
		var err error
		if loc, _, err = c.lookup(ctx, "delete", id, loc, !indexed); err != nil {
			return err
		}
	}

	if err := c.remote.Delete(ctx, loc.path, loc.version, core.DeleteMessage(id)); err != nil {
		if errors.Is(err, core.ErrConflict) {
			c.forgetVersion(id)
		}
		return err
	}

	if haveEntity && entity.AssetPath != "" {
		c.deleteAsset(ctx, entity.AssetPath)
	}

	c.cache.Delete(ctx, id)
	c.mu.Lock()
	delete(c.index, id)
	c.mu.Unlock()
	return nil
}

// deleteAsset removes an asset best-effort. Failures are logged only.
func (c *Coordinator) deleteAsset(ctx context.Context, p string) {
	err := func() error {
		obj, ok, err := c.remote.Read(ctx, p)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		return c.remote.Delete(ctx, p, obj.Version, core.DeleteAssetMessage(p))
	}()
	if err != nil {
		c.logger.Warn("failed to delete asset", "path", p, "error", fmt.Errorf("%w: %w", core.ErrAssetDeletion, err))
	}
}

// Get returns the item with the given id from the cache, falling back to a
// forced fetch. A missing item yields core.ErrNotFound.
func (c *Coordinator) Get(ctx context.Context, id string) (core.Item, error) {
	c.cache.Restore(ctx)
	if it, ok := c.cache.Get(id); ok {
		return it, nil
	}
	items, err := c.FetchAll(ctx, true)
	if err != nil {
		return core.Item{}, err
	}
	for _, it := range items {
		if it.ID == id {
			return it, nil
		}
	}
	return core.Item{}, fmt.Errorf("item %s: %w", id, core.ErrNotFound)
}

// StageOptimistic puts it in the cache without touching the remote store.
func (c *Coordinator) StageOptimistic(ctx context.Context, it core.Item) {
	c.cache.Restore(ctx)
	c.cache.Set(ctx, it)
}

// StageOptimisticDelete drops id from the cache without touching the remote
// store and reports whether it was cached.
func (c *Coordinator) StageOptimisticDelete(ctx context.Context, id string) bool {
	c.cache.Restore(ctx)
	return c.cache.Delete(ctx, id)
}

// ReadCached returns what the cache holds, falling back to the persisted
// snapshot regardless of its age. It never contacts the remote store.
func (c *Coordinator) ReadCached(ctx context.Context) []core.Item {
	return core.Sort(c.cache.Restore(ctx))
}

// UploadAsset stores data under the assets prefix with a random name that
// keeps the extension of name. Assets are never cached.
func (c *Coordinator) UploadAsset(ctx context.Context, data []byte, name string) (string, error) {
	if err := c.ensureInitialized(); err != nil {
		return "", err
	}
	p := core.AssetPath(uuid.NewString(), path.Ext(name))
	if _, err := c.remote.Create(ctx, p, data, core.UploadMessage(path.Base(p))); err != nil {
		return "", err
	}
	return p, nil
}

// GetAsset reads an asset from the remote store.
func (c *Coordinator) GetAsset(ctx context.Context, p string) ([]byte, bool, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, false, err
	}
	obj, ok, err := c.remote.Read(ctx, p)
	if err != nil || !ok {
		return nil, false, err
	}
	return obj.Content, true, nil
}

// GetAssetBase64 reads an asset and returns its base64 encoding.
func (c *Coordinator) GetAssetBase64(ctx context.Context, p string) (string, bool, error) {
	data, ok, err := c.GetAsset(ctx, p)
	if err != nil || !ok {
		return "", ok, err
	}
	return base64.StdEncoding.EncodeToString(data), true, nil
}

// GetAssetDataURI reads an asset as a data: URI, inferring the MIME type
// from the extension.
func (c *Coordinator) GetAssetDataURI(ctx context.Context, p string) (string, bool, error) {
	encoded, ok, err := c.GetAssetBase64(ctx, p)
	if err != nil || !ok {
		return "", ok, err
	}
	return "data:" + core.MIMEType(p) + ";base64," + encoded, true, nil
}

// PathOf returns the indexed remote path of id.
func (c *Coordinator) PathOf(id string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	loc, ok := c.index[id]
	return loc.path, ok
}

// locate returns the indexed location of it, or the derived path and false.
func (c *Coordinator) locate(it core.Item) (location, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if loc, ok := c.index[it.ID]; ok {
		return loc, true
	}
	return location{path: core.DataPath(it)}, false
}

// lookup reads the object at loc.path to learn its version. A derived path
// that misses is retried against the data listing, matching the object name
// on the id, since the stored createdAt text may not be the canonical one.
func (c *Coordinator) lookup(ctx context.Context, op, id string, loc location, derived bool) (location, []byte, error) {
	obj, ok, err := c.remote.Read(ctx, loc.path)
	if err != nil {
		return location{}, nil, err
	}
	if ok {
		return location{path: loc.path, version: obj.Version}, obj.Content, nil
	}
	if derived {
		entries, err := c.remote.List(ctx, core.DataDir)
		if err != nil {
			return location{}, nil, err
		}
		suffix := core.DataSuffix(id)
		for _, e := range entries {
			if e.Path == loc.path || !strings.HasSuffix(e.Name, suffix) {
				continue
			}
			obj, ok, err := c.remote.Read(ctx, e.Path)
			if err != nil {
				return location{}, nil, err
			}
			if ok {
				c.logger.Debug("located item by id", "id", id, "path", e.Path)
				return location{path: e.Path, version: obj.Version}, obj.Content, nil
			}
		}
	}
	return location{}, nil, core.NewPathError(op, loc.path, core.ErrNotFound)
}

func (c *Coordinator) setLocation(id string, loc location) {
	c.mu.Lock()
	c.index[id] = loc
	c.mu.Unlock()
}

func (c *Coordinator) forgetVersion(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if loc, ok := c.index[id]; ok {
		loc.version = ""
		c.index[id] = loc
	}
}
