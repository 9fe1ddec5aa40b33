// Package gitstore implements core.Remote on a local git repository.
//
// Every write is one git commit. The version token of an object is its git
// blob id, so a token stays valid exactly as long as the file content does.
package gitstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aretw0/stash/internal/fsutil"
	"github.com/aretw0/stash/pkg/core"
	"github.com/aretw0/stash/pkg/git"
)

// Store implements core.Remote using the filesystem and Git.
type Store struct {
	Path   string
	git    *git.Client
	config Config
	logger *slog.Logger
}

// Config holds the configuration for the git-backed store.
type Config struct {
	Path     string
	AutoInit bool
	Logger   *slog.Logger
	Author   git.Author
	LockName string // e.g. ".stash.lock"
}

// New creates a new git-backed store. No I/O happens until Initialize.
func New(config Config) *Store {
	client := git.NewClient(config.Path, config.LockName, config.Logger)
	client.Author = config.Author
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		Path:   config.Path,
		git:    client,
		config: config,
		logger: logger,
	}
}

// Initialize creates the repository directory and runs git init if needed.
func (s *Store) Initialize(ctx context.Context) error {
	if !git.IsInstalled() {
		return fmt.Errorf("%w: git is not installed", core.ErrRemoteUnavailable)
	}

	if !s.config.AutoInit {
		info, err := os.Stat(s.Path)
		if err != nil {
			return fmt.Errorf("%w: repository path: %w", core.ErrRemoteUnavailable, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%w: repository path is not a directory: %s", core.ErrRemoteUnavailable, s.Path)
		}
	} else if err := os.MkdirAll(s.Path, 0755); err != nil {
		return fmt.Errorf("%w: failed to create repository directory: %w", core.ErrRemoteUnavailable, err)
	}

	unlock, err := s.git.Lock(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrRemoteUnavailable, err)
	}
	defer unlock()

	wasNewRepo := false
	if !s.git.IsRepo() {
		if !s.config.AutoInit {
			return fmt.Errorf("%w: path is not a git repository: %s", core.ErrRemoteUnavailable, s.Path)
		}
		if err := s.git.Init(); err != nil {
			return fmt.Errorf("%w: failed to git init: %w", core.ErrRemoteUnavailable, err)
		}
		wasNewRepo = true
	}

	mod, err := s.ensureIgnore()
	if err != nil {
		return fmt.Errorf("failed to ensure .gitignore: %w", err)
	}

	if mod && wasNewRepo {
		if err := s.git.Add(".gitignore"); err != nil {
			return fmt.Errorf("%w: failed to add .gitignore: %w", core.ErrRemoteUnavailable, err)
		}
		if err := s.git.Commit(core.InitMessage(filepath.Base(s.Path))); err != nil {
			return fmt.Errorf("%w: failed to commit .gitignore: %w", core.ErrRemoteUnavailable, err)
		}
	}

	return nil
}

// ensureIgnore keeps the lock and temp files out of the history.
func (s *Store) ensureIgnore() (bool, error) {
	ignorePath := filepath.Join(s.Path, ".gitignore")
	wanted := []string{s.git.LockName(), fsutil.TempFilePrefix + "*"}

	content, err := os.ReadFile(ignorePath)
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}

	present := make(map[string]bool)
	for _, line := range strings.Split(string(content), "\n") {
		present[strings.TrimSpace(line)] = true
	}

	var missing []string
	for _, w := range wanted {
		if !present[w] {
			missing = append(missing, w)
		}
	}
	if len(missing) == 0 {
		return false, nil
	}

	f, err := os.OpenFile(ignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return false, err
	}
	defer f.Close()

	if len(content) > 0 && !bytes.HasSuffix(content, []byte("\n")) {
		if _, err := f.WriteString("\n"); err != nil {
			return false, err
		}
	}
	for _, m := range missing {
		if _, err := f.WriteString(m + "\n"); err != nil {
			return false, err
		}
	}

	return true, nil
}

// Read returns the object at p with its blob id as version.
func (s *Store) Read(ctx context.Context, p string) (core.Object, bool, error) {
	full, err := s.resolve(p)
	if err != nil {
		return core.Object{}, false, core.NewPathError("read", p, err)
	}

	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return core.Object{}, false, nil
		}
		return core.Object{}, false, core.NewPathError("read", p, fmt.Errorf("%w: %w", core.ErrRemoteUnavailable, err))
	}

	return core.Object{Path: p, Content: data, Version: git.BlobID(data)}, true, nil
}

// Create writes a new object and commits it. Creating an object whose
// current content is byte-identical succeeds without a new commit.
func (s *Store) Create(ctx context.Context, p string, content []byte, message string) (string, error) {
	full, err := s.resolve(p)
	if err != nil {
		return "", core.NewPathError("create", p, err)
	}

	unlock, err := s.git.Lock(ctx)
	if err != nil {
		return "", core.NewPathError("create", p, fmt.Errorf("%w: %w", core.ErrRemoteUnavailable, err))
	}
	defer unlock()

	existing, err := os.ReadFile(full)
	switch {
	case err == nil && bytes.Equal(existing, content):
		if err := s.commitPending(p, message); err != nil {
			return "", core.NewPathError("create", p, err)
		}
		return git.BlobID(existing), nil
	case err == nil:
		return "", core.NewPathError("create", p, core.ErrConflict)
	case !os.IsNotExist(err):
		return "", core.NewPathError("create", p, fmt.Errorf("%w: %w", core.ErrRemoteUnavailable, err))
	}

	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", core.NewPathError("create", p, fmt.Errorf("%w: %w", core.ErrRemoteUnavailable, err))
	}

	if err := s.commitFile(p, full, nil, content, message); err != nil {
		return "", core.NewPathError("create", p, err)
	}
	return git.BlobID(content), nil
}

// Update overwrites an existing object if version matches its blob id.
func (s *Store) Update(ctx context.Context, p string, content []byte, version, message string) (string, error) {
	full, err := s.resolve(p)
	if err != nil {
		return "", core.NewPathError("update", p, err)
	}

	unlock, err := s.git.Lock(ctx)
	if err != nil {
		return "", core.NewPathError("update", p, fmt.Errorf("%w: %w", core.ErrRemoteUnavailable, err))
	}
	defer unlock()

	existing, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return "", core.NewPathError("update", p, core.ErrNotFound)
		}
		return "", core.NewPathError("update", p, fmt.Errorf("%w: %w", core.ErrRemoteUnavailable, err))
	}

	current := git.BlobID(existing)
	if version == "" || version != current {
		return "", core.NewPathError("update", p, core.ErrConflict)
	}
	if bytes.Equal(existing, content) {
		if err := s.commitPending(p, message); err != nil {
			return "", core.NewPathError("update", p, err)
		}
		return current, nil
	}

	if err := s.commitFile(p, full, existing, content, message); err != nil {
		return "", core.NewPathError("update", p, err)
	}
	return git.BlobID(content), nil
}

// Delete removes an object if version matches its blob id.
func (s *Store) Delete(ctx context.Context, p, version, message string) error {
	full, err := s.resolve(p)
	if err != nil {
		return core.NewPathError("delete", p, err)
	}

	unlock, err := s.git.Lock(ctx)
	if err != nil {
		return core.NewPathError("delete", p, fmt.Errorf("%w: %w", core.ErrRemoteUnavailable, err))
	}
	defer unlock()

	existing, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return core.NewPathError("delete", p, core.ErrNotFound)
		}
		return core.NewPathError("delete", p, fmt.Errorf("%w: %w", core.ErrRemoteUnavailable, err))
	}
	if version == "" {
		return core.NewPathError("delete", p, core.ErrNotFound)
	}
	if version != git.BlobID(existing) {
		return core.NewPathError("delete", p, core.ErrConflict)
	}

	rel := filepath.FromSlash(p)
	if err := s.git.Rm(rel); err != nil {
		return core.NewPathError("delete", p, fmt.Errorf("%w: failed to git rm: %w", core.ErrRemoteUnavailable, err))
	}
	if err := s.git.Commit(message); err != nil {
		if rerr := s.rollback(rel, full, existing); rerr != nil {
			s.logger.Error("failed to roll back delete", "path", p, "error", rerr)
		}
		return core.NewPathError("delete", p, fmt.Errorf("%w: failed to git commit: %w", core.ErrRemoteUnavailable, err))
	}
	return nil
}

// List returns the files directly under prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]core.Entry, error) {
	full, err := s.resolve(prefix)
	if err != nil {
		return nil, core.NewPathError("list", prefix, err)
	}

	entries, err := os.ReadDir(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, core.NewPathError("list", prefix, fmt.Errorf("%w: %w", core.ErrRemoteUnavailable, err))
	}

	out := make([]core.Entry, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || fsutil.IsTempFile(name) || name == s.git.LockName() {
			continue
		}
		out = append(out, core.Entry{Path: path.Join(prefix, name), Name: name})
	}
	return out, nil
}

// commitFile writes content atomically, stages it and commits. When staging
// or committing fails the file is put back to prev (removed when prev is nil)
// and unstaged, so a failed write leaves nothing behind. The caller holds the
// lock.
func (s *Store) commitFile(p, full string, prev, content []byte, message string) error {
	if err := fsutil.WriteFileAtomic(full, content, 0644); err != nil {
		return fmt.Errorf("%w: failed to write file: %w", core.ErrRemoteUnavailable, err)
	}

	rel := filepath.FromSlash(p)
	err := s.git.Add(rel)
	if err != nil {
		err = fmt.Errorf("%w: failed to git add: %w", core.ErrRemoteUnavailable, err)
	} else if err = s.git.Commit(message); err != nil {
		err = fmt.Errorf("%w: failed to git commit: %w", core.ErrRemoteUnavailable, err)
	}
	if err == nil {
		return nil
	}

	if rerr := s.rollback(rel, full, prev); rerr != nil {
		s.logger.Error("failed to roll back write", "path", p, "error", rerr)
	}
	return err
}

func (s *Store) rollback(rel, full string, prev []byte) error {
	var errs []error
	if prev == nil {
		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	} else if err := fsutil.WriteFileAtomic(full, prev, 0644); err != nil {
		errs = append(errs, err)
	}
	if err := s.git.Reset(rel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// commitPending commits p when its content is already on disk but was never
// committed, as left by an interrupted write. The caller holds the lock.
func (s *Store) commitPending(p, message string) error {
	rel := filepath.FromSlash(p)
	pending, err := s.git.Pending(rel)
	if err != nil {
		return fmt.Errorf("%w: failed to git status: %w", core.ErrRemoteUnavailable, err)
	}
	if !pending {
		return nil
	}
	if err := s.git.Add(rel); err != nil {
		return fmt.Errorf("%w: failed to git add: %w", core.ErrRemoteUnavailable, err)
	}
	if err := s.git.Commit(message); err != nil {
		_ = s.git.Reset(rel)
		return fmt.Errorf("%w: failed to git commit: %w", core.ErrRemoteUnavailable, err)
	}
	return nil
}

var errOutsideRepo = errors.New("path escapes the repository")

// resolve maps a slash-separated remote path to a file inside the repository.
func (s *Store) resolve(p string) (string, error) {
	clean := path.Clean(strings.TrimPrefix(p, "/"))
	if clean == "." {
		return s.Path, nil
	}
	local := filepath.FromSlash(clean)
	if !filepath.IsLocal(local) || strings.HasPrefix(clean, ".git/") || clean == ".git" {
		return "", errOutsideRepo
	}
	return filepath.Join(s.Path, local), nil
}

var _ core.Remote = (*Store)(nil)
