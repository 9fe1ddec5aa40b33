// Package memstore implements core.Remote backed by a local map, with the
// same version token semantics as the real stores.
// Intended for tests and throwaway sessions.
package memstore

import (
	"context"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aretw0/stash/pkg/core"
)

type object struct {
	content []byte
	version string
}

// Commit records one write, newest last.
type Commit struct {
	Op      string
	Path    string
	Message string
}

// Store is a core.Remote kept in memory.
type Store struct {
	mu          sync.RWMutex
	objects     map[string]object
	commits     []Commit
	revision    int
	initialized bool
}

// New constructs an empty store.
func New() *Store {
	return &Store{objects: make(map[string]object)}
}

// Initialize marks the container as created.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		s.initialized = true
		s.commits = append(s.commits, Commit{Op: "init", Message: core.InitMessage("memory")})
	}
	return nil
}

// Read returns the object at p.
func (s *Store) Read(ctx context.Context, p string) (core.Object, bool, error) {
	p = normalize(p)
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.objects[p]
	if !ok {
		return core.Object{}, false, nil
	}
	return core.Object{Path: p, Content: append([]byte(nil), o.content...), Version: o.version}, true, nil
}

// Create stores a new object.
func (s *Store) Create(ctx context.Context, p string, content []byte, message string) (string, error) {
	p = normalize(p)
	s.mu.Lock()
	defer s.mu.Unlock()

	if o, ok := s.objects[p]; ok {
		if string(o.content) == string(content) {
			return o.version, nil
		}
		return "", core.NewPathError("create", p, core.ErrConflict)
	}
	return s.put(p, content, "create", message), nil
}

// Update overwrites an object if version is current.
func (s *Store) Update(ctx context.Context, p string, content []byte, version, message string) (string, error) {
	p = normalize(p)
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.objects[p]
	if !ok {
		return "", core.NewPathError("update", p, core.ErrNotFound)
	}
	if version == "" || version != o.version {
		return "", core.NewPathError("update", p, core.ErrConflict)
	}
	return s.put(p, content, "update", message), nil
}

// Delete removes an object if version is current.
func (s *Store) Delete(ctx context.Context, p, version, message string) error {
	p = normalize(p)
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.objects[p]
	if !ok || version == "" {
		return core.NewPathError("delete", p, core.ErrNotFound)
	}
	if version != o.version {
		return core.NewPathError("delete", p, core.ErrConflict)
	}
	delete(s.objects, p)
	s.commits = append(s.commits, Commit{Op: "delete", Path: p, Message: message})
	return nil
}

// List returns the direct children of prefix, sorted by name.
func (s *Store) List(ctx context.Context, prefix string) ([]core.Entry, error) {
	prefix = normalize(prefix)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.Entry
	for p := range s.objects {
		dir, name := path.Split(p)
		if strings.TrimSuffix(dir, "/") != prefix {
			continue
		}
		out = append(out, core.Entry{Path: p, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Commits returns the write history.
func (s *Store) Commits() []Commit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Commit(nil), s.commits...)
}

// Len returns the number of stored objects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// put must be called with mu held.
func (s *Store) put(p string, content []byte, op, message string) string {
	s.revision++
	v := "r" + strconv.Itoa(s.revision)
	s.objects[p] = object{content: append([]byte(nil), content...), version: v}
	s.commits = append(s.commits, Commit{Op: op, Path: p, Message: message})
	return v
}

func normalize(p string) string {
	p = path.Clean(strings.TrimPrefix(p, "/"))
	if p == "." {
		return ""
	}
	return p
}

var _ core.Remote = (*Store)(nil)
