package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/introspection"

	"github.com/aretw0/stash/pkg/adapters/boltcache"
	"github.com/aretw0/stash/pkg/adapters/filecache"
	"github.com/aretw0/stash/pkg/adapters/github"
	"github.com/aretw0/stash/pkg/adapters/gitstore"
	"github.com/aretw0/stash/pkg/adapters/memstore"
	"github.com/aretw0/stash/pkg/adapters/rediscache"
	"github.com/aretw0/stash/pkg/cache"
	"github.com/aretw0/stash/pkg/core"
	"github.com/aretw0/stash/pkg/storage"
)

// Archive is a coordinator together with the resources it owns.
type Archive struct {
	*storage.Coordinator
	remote  core.Remote
	closers []io.Closer
}

// Remote returns the remote store behind the archive.
func (a *Archive) Remote() core.Remote {
	return a.remote
}

// Close releases the snapshot store connections.
func (a *Archive) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// ArchiveState combines the coordinator and remote states.
type ArchiveState struct {
	Coordinator any `json:"coordinator"`
	Remote      any `json:"remote,omitempty"`
}

// State implements introspection.Introspectable.
func (a *Archive) State() any {
	st := ArchiveState{Coordinator: a.Coordinator.State()}
	if in, ok := a.remote.(introspection.Introspectable); ok {
		st.Remote = in.State()
	}
	return st
}

// ComponentType implements introspection.Component.
func (a *Archive) ComponentType() string {
	return "archive"
}

// New builds the remote store, the cache and the coordinator from opts and
// initializes the remote container.
//
//	a, err := platform.New(ctx, platform.WithAdapter("github"), platform.WithGitHub("me", "notes", "", token))
func New(ctx context.Context, opts ...Option) (*Archive, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.container == "" {
		o.container = DefaultContainer
	}
	sandbox := o.devSafety && IsDevRun()

	remote := o.remote
	if remote == nil {
		var err error
		if remote, err = newRemote(o, sandbox); err != nil {
			return nil, err
		}
	}

	a := &Archive{remote: remote}
	store := o.cacheStore
	if store == nil {
		var (
			closer io.Closer
			err    error
		)
		store, closer, err = newCacheStore(ctx, o, sandbox)
		if err != nil {
			return nil, err
		}
		if closer != nil {
			a.closers = append(a.closers, closer)
		}
	}

	c := cache.New(cache.Config{
		Store:     store,
		Freshness: o.freshness,
		Logger:    o.logger,
	})
	a.Coordinator = storage.New(storage.Config{
		Remote: remote,
		Cache:  c,
		Logger: o.logger,
	})

	if err := a.Initialize(ctx); err != nil {
		if o.offline && errors.Is(err, core.ErrRemoteUnavailable) {
			o.logger.Warn("remote store unavailable, working from cache", "error", err)
			return a, nil
		}
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func newRemote(o *options, sandbox bool) (core.Remote, error) {
	switch o.adapter {
	case AdapterGit:
		path := o.path
		if path == "" {
			dir, err := DataDir()
			if err != nil {
				return nil, fmt.Errorf("failed to resolve data directory: %w", err)
			}
			path = filepath.Join(dir, o.container)
		}
		path = Sandbox(path, sandbox)
		if sandbox {
			o.logger.Debug("running in SAFE mode (dev sandbox enabled)", "path", path)
		}
		return gitstore.New(gitstore.Config{
			Path:     path,
			AutoInit: o.autoInit,
			Logger:   o.logger,
			Author:   o.author,
		}), nil

	case AdapterGitHub:
		repo := o.repo
		if repo == "" {
			repo = o.container
		}
		return github.New(github.Config{
			APIURL:    o.apiURL,
			Owner:     o.owner,
			Repo:      repo,
			Branch:    o.branch,
			Token:     o.token,
			Public:    o.public,
			MustExist: !o.autoInit,
			Logger:    o.logger,
			RetryMax:  3,
		}), nil

	case AdapterMemory:
		return memstore.New(), nil
	}
	return nil, fmt.Errorf("unknown adapter: %s", o.adapter)
}

func newCacheStore(ctx context.Context, o *options, sandbox bool) (cache.Store, io.Closer, error) {
	switch o.cacheBackend {
	case BackendFile:
		path := o.cachePath
		if path == "" {
			var err error
			if path, err = filecache.DefaultPath(o.container); err != nil {
				return nil, nil, fmt.Errorf("failed to resolve cache path: %w", err)
			}
		}
		return filecache.New(Sandbox(path, sandbox)), nil, nil

	case BackendBolt:
		path := o.cachePath
		if path == "" {
			dir, err := os.UserCacheDir()
			if err != nil {
				return nil, nil, fmt.Errorf("failed to resolve cache path: %w", err)
			}
			path = filepath.Join(dir, "stash", o.container, "cache.db")
		}
		s, err := boltcache.Open(Sandbox(path, sandbox))
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil

	case BackendRedis:
		addr := o.redisAddr
		if addr == "" {
			addr = "localhost:6379"
		}
		key := o.redisKey
		if key == "" && o.container != DefaultContainer {
			key = "stash:" + o.container + ":items"
		}
		s, err := rediscache.Dial(ctx, addr, os.Getenv("STASH_REDIS_PASSWORD"), 0, key)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil

	case BackendMemory:
		return nil, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown cache backend: %s", o.cacheBackend)
}
