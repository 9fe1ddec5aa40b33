package platform

import (
	"log/slog"
	"time"

	"github.com/aretw0/stash/pkg/cache"
	"github.com/aretw0/stash/pkg/core"
	"github.com/aretw0/stash/pkg/git"
)

// DefaultContainer names the remote repository when none is configured.
const DefaultContainer = "stash"

// Remote adapter names accepted by WithAdapter.
const (
	AdapterGit    = "git"
	AdapterGitHub = "github"
	AdapterMemory = "memory"
)

// Cache backend names accepted by WithCacheBackend.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendBolt   = "bolt"
	BackendMemory = "memory"
)

// options holds the internal configuration of an archive.
type options struct {
	logger    *slog.Logger
	remote    core.Remote
	adapter   string
	container string
	autoInit  bool
	offline   bool
	devSafety bool

	// git adapter
	path   string
	author git.Author

	// github adapter
	apiURL string
	owner  string
	repo   string
	branch string
	token  string
	public bool

	cacheStore   cache.Store
	cacheBackend string
	cachePath    string
	redisAddr    string
	redisKey     string
	freshness    time.Duration
}

// Option defines a functional option for configuring an archive.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		adapter:      AdapterGit,
		container:    DefaultContainer,
		autoInit:     true,
		devSafety:    true,
		cacheBackend: BackendFile,
		freshness:    cache.DefaultFreshness,
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRemote injects a remote store (e.g. a fake in tests).
// If provided, WithAdapter is ignored.
func WithRemote(remote core.Remote) Option {
	return func(o *options) {
		o.remote = remote
	}
}

// WithAdapter selects the remote store by name: "git", "github" or "memory".
// Defaults to "git".
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}

// WithContainer names the remote repository. Defaults to "stash".
// It is the GitHub repository name when none is given and the directory
// name of the local git repository.
func WithContainer(name string) Option {
	return func(o *options) {
		o.container = name
	}
}

// WithPath sets the local git repository path.
func WithPath(path string) Option {
	return func(o *options) {
		o.path = path
	}
}

// WithAuthor sets the commit author of the git adapter.
func WithAuthor(name, email string) Option {
	return func(o *options) {
		o.author = git.Author{Name: name, Email: email}
	}
}

// WithGitHub configures the GitHub adapter. An empty repo falls back to the
// container name and an empty branch to the repository default branch.
func WithGitHub(owner, repo, branch, token string) Option {
	return func(o *options) {
		o.owner = owner
		o.repo = repo
		o.branch = branch
		o.token = token
	}
}

// WithAPIURL points the GitHub adapter at another endpoint (GitHub Enterprise, tests).
func WithAPIURL(u string) Option {
	return func(o *options) {
		o.apiURL = u
	}
}

// WithPublic creates the GitHub repository as public when it is missing.
func WithPublic(public bool) Option {
	return func(o *options) {
		o.public = public
	}
}

// WithCacheStore injects the snapshot store. If provided, WithCacheBackend is ignored.
func WithCacheStore(store cache.Store) Option {
	return func(o *options) {
		o.cacheStore = store
	}
}

// WithCacheBackend selects the snapshot store: "file", "redis", "bolt" or
// "memory" (no persistence). Defaults to "file".
func WithCacheBackend(name string) Option {
	return func(o *options) {
		o.cacheBackend = name
	}
}

// WithCachePath sets the snapshot file of the file and bolt backends.
func WithCachePath(path string) Option {
	return func(o *options) {
		o.cachePath = path
	}
}

// WithRedis configures the redis backend. An empty key derives one from the container.
func WithRedis(addr, key string) Option {
	return func(o *options) {
		o.redisAddr = addr
		o.redisKey = key
	}
}

// WithFreshness sets how long a snapshot answers reads without a remote fetch.
func WithFreshness(d time.Duration) Option {
	return func(o *options) {
		o.freshness = d
	}
}

// WithAutoInit lets Initialize create a missing repository. Enabled by default.
func WithAutoInit(auto bool) Option {
	return func(o *options) {
		o.autoInit = auto
	}
}

// WithOffline tolerates an unreachable remote store when the archive is opened.
// The archive is returned uninitialized: cache-only operations keep working
// and remote operations fail with core.ErrNotInitialized.
func WithOffline(offline bool) Option {
	return func(o *options) {
		o.offline = offline
	}
}

// WithDevSafety controls the sandbox used when running via `go run` or `go test`.
// By default (true) the git repository and the cache file are re-rooted into
// a temporary directory so development runs never touch the real archive.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.devSafety = enabled
	}
}
