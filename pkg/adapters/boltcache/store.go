// Package boltcache persists the cache snapshot under one key of a bbolt bucket.
package boltcache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/aretw0/stash/pkg/cache"
)

var (
	bucketName  = []byte("stash")
	snapshotKey = []byte("items")
)

// Store implements cache.Store on a bbolt database file.
type Store struct {
	db *bbolt.DB
}

// Open opens (or creates) the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// Load reads the snapshot.
func (s *Store) Load(ctx context.Context) (cache.Snapshot, bool, error) {
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketName).Get(snapshotKey); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return cache.Snapshot{}, false, fmt.Errorf("failed to read cache: %w", err)
	}
	if data == nil {
		return cache.Snapshot{}, false, nil
	}

	var snap cache.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return cache.Snapshot{}, false, nil
	}
	return snap, true, nil
}

// Save replaces the snapshot in a single transaction.
func (s *Store) Save(ctx context.Context, snap cache.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put(snapshotKey, data)
	})
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ cache.Store = (*Store)(nil)
