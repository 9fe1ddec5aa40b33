package platform

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the content of a stash.yaml file.
//
//	remote:
//	  adapter: github
//	  owner: me
//	  repo: notes
//	cache:
//	  backend: bolt
//	  freshness: 10m
type Config struct {
	Remote RemoteConfig `yaml:"remote"`
	Cache  CacheConfig  `yaml:"cache"`
	Inbox  InboxConfig  `yaml:"inbox"`
}

// RemoteConfig selects and configures the remote store.
type RemoteConfig struct {
	Adapter   string `yaml:"adapter"`
	Container string `yaml:"container"`

	// git
	Path        string `yaml:"path"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`

	// github
	APIURL string `yaml:"api_url"`
	Owner  string `yaml:"owner"`
	Repo   string `yaml:"repo"`
	Branch string `yaml:"branch"`
	Token  string `yaml:"token"`
	Public bool   `yaml:"public"`
}

// CacheConfig selects and configures the snapshot store.
type CacheConfig struct {
	Backend   string        `yaml:"backend"`
	Path      string        `yaml:"path"`
	RedisAddr string        `yaml:"redis_addr"`
	Key       string        `yaml:"key"`
	Freshness time.Duration `yaml:"freshness"`
}

// InboxConfig holds the defaults of the watch command.
type InboxConfig struct {
	Dir      string        `yaml:"dir"`
	Include  []string      `yaml:"include"`
	Ignore   []string      `yaml:"ignore"`
	Tags     []string      `yaml:"tags"`
	Debounce time.Duration `yaml:"debounce"`
	Keep     bool          `yaml:"keep"`
}

// LoadConfig reads a configuration file. An empty path yields the zero
// Config. $STASH_TOKEN overrides the GitHub token.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if cfg, err = ParseConfig(data); err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
	}
	if token := os.Getenv("STASH_TOKEN"); token != "" {
		cfg.Remote.Token = token
	}
	return cfg, nil
}

// ParseConfig decodes YAML. Unknown fields are rejected.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Options converts the file into archive options. Zero fields keep the defaults.
func (c Config) Options() []Option {
	var opts []Option
	r := c.Remote
	if r.Adapter != "" {
		opts = append(opts, WithAdapter(r.Adapter))
	}
	if r.Container != "" {
		opts = append(opts, WithContainer(r.Container))
	}
	if r.Path != "" {
		opts = append(opts, WithPath(r.Path))
	}
	if r.AuthorName != "" || r.AuthorEmail != "" {
		opts = append(opts, WithAuthor(r.AuthorName, r.AuthorEmail))
	}
	if r.Owner != "" || r.Repo != "" || r.Branch != "" || r.Token != "" {
		opts = append(opts, WithGitHub(r.Owner, r.Repo, r.Branch, r.Token))
	}
	if r.APIURL != "" {
		opts = append(opts, WithAPIURL(r.APIURL))
	}
	if r.Public {
		opts = append(opts, WithPublic(true))
	}

	ch := c.Cache
	if ch.Backend != "" {
		opts = append(opts, WithCacheBackend(ch.Backend))
	}
	if ch.Path != "" {
		opts = append(opts, WithCachePath(ch.Path))
	}
	if ch.RedisAddr != "" || ch.Key != "" {
		opts = append(opts, WithRedis(ch.RedisAddr, ch.Key))
	}
	if ch.Freshness > 0 {
		opts = append(opts, WithFreshness(ch.Freshness))
	}
	return opts
}
