package stash

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/stash/internal/platform"
	"github.com/aretw0/stash/pkg/cache"
	"github.com/aretw0/stash/pkg/core"
)

// --- Types ---

// Item is a public alias for an archived entity.
type Item = core.Item

// Kind is a public alias for the item kind.
type Kind = core.Kind

// Patch is a public alias for a partial item update.
type Patch = core.Patch

// Archive is a public alias for an opened archive.
type Archive = platform.Archive

// Config is a public alias for the stash.yaml file content.
type Config = platform.Config

// --- Configuration ---

// Option defines a functional option for configuring an archive.
type Option = platform.Option

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithRemote injects a remote store.
func WithRemote(remote core.Remote) Option {
	return platform.WithRemote(remote)
}

// WithAdapter selects the remote store by name ("git", "github" or "memory").
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithContainer names the remote repository.
func WithContainer(name string) Option {
	return platform.WithContainer(name)
}

// WithPath sets the local git repository path.
func WithPath(path string) Option {
	return platform.WithPath(path)
}

// WithGitHub configures the GitHub adapter.
func WithGitHub(owner, repo, branch, token string) Option {
	return platform.WithGitHub(owner, repo, branch, token)
}

// WithCacheStore injects the snapshot store.
func WithCacheStore(store cache.Store) Option {
	return platform.WithCacheStore(store)
}

// WithCacheBackend selects the snapshot store ("file", "redis", "bolt" or "memory").
func WithCacheBackend(name string) Option {
	return platform.WithCacheBackend(name)
}

// WithCachePath sets the snapshot file of the file and bolt backends.
func WithCachePath(path string) Option {
	return platform.WithCachePath(path)
}

// WithRedis configures the redis backend.
func WithRedis(addr, key string) Option {
	return platform.WithRedis(addr, key)
}

// WithFreshness sets the cache freshness window.
func WithFreshness(d time.Duration) Option {
	return platform.WithFreshness(d)
}

// WithAutoInit lets Initialize create a missing repository.
func WithAutoInit(auto bool) Option {
	return platform.WithAutoInit(auto)
}

// WithOffline tolerates an unreachable remote store on open.
func WithOffline(offline bool) Option {
	return platform.WithOffline(offline)
}

// --- Factory ---

// New opens an archive and initializes its remote container.
func New(ctx context.Context, opts ...Option) (*Archive, error) {
	return platform.New(ctx, opts...)
}

// LoadConfig reads a stash.yaml file.
func LoadConfig(path string) (Config, error) {
	return platform.LoadConfig(path)
}

// --- Items ---

// NewNote creates a note with a fresh id.
func NewNote(text string) Item {
	return core.NewNote(text)
}

// NewLink creates a link with a fresh id.
func NewLink(url string) Item {
	return core.NewLink(url)
}

// NewImage creates an image item referencing an uploaded asset.
func NewImage(caption, assetPath string) Item {
	return core.NewImage(caption, assetPath)
}

// --- Safety & Utils ---

// IsDevRun checks if the current process is running via `go run` or `go test`.
func IsDevRun() bool {
	return platform.IsDevRun()
}

// FindConfig looks upwards from startDir for a stash.yaml file.
func FindConfig(startDir string) (string, error) {
	return platform.FindConfig(startDir)
}
