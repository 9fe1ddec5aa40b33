// Package rediscache persists the cache snapshot under a single Redis key.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/aretw0/stash/pkg/cache"
)

// DefaultKey is the storage key of the snapshot.
const DefaultKey = "stash:items"

// Store implements cache.Store on Redis.
type Store struct {
	client *redis.Client
	key    string
}

// New wraps an existing client. An empty key selects DefaultKey.
func New(client *redis.Client, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{client: client, key: key}
}

// Dial connects to addr and verifies the connection.
func Dial(ctx context.Context, addr, password string, db int, key string) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return New(client, key), nil
}

// Load reads the snapshot. A missing key or undecodable value is a miss.
func (s *Store) Load(ctx context.Context) (cache.Snapshot, bool, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return cache.Snapshot{}, false, nil
	}
	if err != nil {
		return cache.Snapshot{}, false, fmt.Errorf("failed to read cache: %w", err)
	}

	var snap cache.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return cache.Snapshot{}, false, nil
	}
	return snap, true, nil
}

// Save replaces the snapshot. The key never expires: freshness is judged
// from the snapshot timestamp, and stale snapshots still serve instant reads.
func (s *Store) Save(ctx context.Context, snap cache.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key, data, 0).Err()
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

var _ cache.Store = (*Store)(nil)
