package gitstore_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stash/pkg/adapters/gitstore"
	"github.com/aretw0/stash/pkg/core"
	"github.com/aretw0/stash/pkg/git"
)

// setupStore creates an initialized store in a temp dir.
// It returns the store, the repository path and a git client for verification.
func setupStore(t *testing.T) (*gitstore.Store, string, *git.Client) {
	t.Helper()
	if !git.IsInstalled() {
		t.Skip("git not installed")
	}

	repoPath := filepath.Join(t.TempDir(), "archive")
	author := git.Author{Name: "Stash Test", Email: "test@example.com"}
	store := gitstore.New(gitstore.Config{
		Path:     repoPath,
		AutoInit: true,
		Author:   author,
	})
	require.NoError(t, store.Initialize(context.Background()))

	client := git.NewClient(repoPath, "", nil)
	client.Author = author
	return store, repoPath, client
}

func commitCount(t *testing.T, client *git.Client) int {
	t.Helper()
	out, err := client.Run("rev-list", "--count", "HEAD")
	require.NoError(t, err)
	n, err := strconv.Atoi(out)
	require.NoError(t, err)
	return n
}

func TestInitialize(t *testing.T) {
	t.Run("Creates Repository", func(t *testing.T) {
		_, path, client := setupStore(t)

		_, err := os.Stat(filepath.Join(path, ".git"))
		require.NoError(t, err)
		assert.Equal(t, 1, commitCount(t, client), "initial commit carries .gitignore")

		ignore, err := os.ReadFile(filepath.Join(path, ".gitignore"))
		require.NoError(t, err)
		assert.Contains(t, string(ignore), git.DefaultLockName)
	})

	t.Run("Is Idempotent", func(t *testing.T) {
		store, _, client := setupStore(t)
		require.NoError(t, store.Initialize(context.Background()))
		assert.Equal(t, 1, commitCount(t, client))
	})

	t.Run("Fails Without AutoInit On Missing Path", func(t *testing.T) {
		if !git.IsInstalled() {
			t.Skip("git not installed")
		}
		store := gitstore.New(gitstore.Config{Path: filepath.Join(t.TempDir(), "missing")})
		err := store.Initialize(context.Background())
		require.ErrorIs(t, err, core.ErrRemoteUnavailable)
	})
}

func TestCreateAndRead(t *testing.T) {
	store, path, client := setupStore(t)
	ctx := context.Background()
	before := commitCount(t, client)

	version, err := store.Create(ctx, "data/a.json", []byte(`{"id":"a"}`), "add a")
	require.NoError(t, err)
	assert.Equal(t, git.BlobID([]byte(`{"id":"a"}`)), version)
	assert.Equal(t, before+1, commitCount(t, client), "one write is one commit")

	_, err = os.Stat(filepath.Join(path, "data", "a.json"))
	require.NoError(t, err)

	obj, ok, err := store.Read(ctx, "data/a.json")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, version, obj.Version)
	assert.Equal(t, `{"id":"a"}`, string(obj.Content))

	t.Run("Missing Object Is Not An Error", func(t *testing.T) {
		_, ok, err := store.Read(ctx, "data/missing.json")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Occupied Path Conflicts", func(t *testing.T) {
		_, err := store.Create(ctx, "data/a.json", []byte(`{"id":"other"}`), "add again")
		require.ErrorIs(t, err, core.ErrConflict)

		var pe *core.PathError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "create", pe.Op)
		assert.Equal(t, "data/a.json", pe.Path)
	})

	t.Run("Identical Content Is Accepted", func(t *testing.T) {
		n := commitCount(t, client)
		v, err := store.Create(ctx, "data/a.json", []byte(`{"id":"a"}`), "add again")
		require.NoError(t, err)
		assert.Equal(t, version, v)
		assert.Equal(t, n, commitCount(t, client))
	})

	t.Run("Rejects Paths Outside Repository", func(t *testing.T) {
		_, err := store.Create(ctx, "../escape.json", []byte("x"), "escape")
		require.Error(t, err)
		_, err = store.Create(ctx, ".git/config", []byte("x"), "escape")
		require.Error(t, err)
	})
}

func TestUpdate(t *testing.T) {
	store, _, client := setupStore(t)
	ctx := context.Background()

	v1, err := store.Create(ctx, "data/u.json", []byte("one"), "add")
	require.NoError(t, err)

	v2, err := store.Update(ctx, "data/u.json", []byte("two"), v1, "update")
	require.NoError(t, err)
	assert.NotEqual(t, v1, v2)

	t.Run("Stale Token Conflicts And Keeps Content", func(t *testing.T) {
		n := commitCount(t, client)
		_, err := store.Update(ctx, "data/u.json", []byte("three"), v1, "update")
		require.ErrorIs(t, err, core.ErrConflict)

		obj, _, err := store.Read(ctx, "data/u.json")
		require.NoError(t, err)
		assert.Equal(t, "two", string(obj.Content))
		assert.Equal(t, n, commitCount(t, client))
	})

	t.Run("Absent Token Conflicts", func(t *testing.T) {
		_, err := store.Update(ctx, "data/u.json", []byte("three"), "", "update")
		require.ErrorIs(t, err, core.ErrConflict)
	})

	t.Run("Missing Object", func(t *testing.T) {
		_, err := store.Update(ctx, "data/none.json", []byte("x"), v2, "update")
		require.ErrorIs(t, err, core.ErrNotFound)
	})
}

func TestDelete(t *testing.T) {
	store, path, _ := setupStore(t)
	ctx := context.Background()

	v, err := store.Create(ctx, "data/d.json", []byte("bye"), "add")
	require.NoError(t, err)

	require.ErrorIs(t, store.Delete(ctx, "data/d.json", "", "delete"), core.ErrNotFound)
	require.ErrorIs(t, store.Delete(ctx, "data/d.json", "deadbeef", "delete"), core.ErrConflict)

	require.NoError(t, store.Delete(ctx, "data/d.json", v, "delete"))
	_, err = os.Stat(filepath.Join(path, "data", "d.json"))
	assert.True(t, os.IsNotExist(err))

	require.ErrorIs(t, store.Delete(ctx, "data/d.json", v, "delete"), core.ErrNotFound)
}

// failCommits installs a pre-commit hook rejecting every commit and returns
// the func removing it.
func failCommits(t *testing.T, repoPath string) func() {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell hooks")
	}
	hook := filepath.Join(repoPath, ".git", "hooks", "pre-commit")
	require.NoError(t, os.MkdirAll(filepath.Dir(hook), 0755))
	require.NoError(t, os.WriteFile(hook, []byte("#!/bin/sh\nexit 1\n"), 0755))
	return func() { require.NoError(t, os.Remove(hook)) }
}

func TestFailedCommitRollsBack(t *testing.T) {
	ctx := context.Background()

	t.Run("Create", func(t *testing.T) {
		store, path, client := setupStore(t)
		n := commitCount(t, client)

		restore := failCommits(t, path)
		_, err := store.Create(ctx, "data/x.json", []byte("one"), "add x")
		require.ErrorIs(t, err, core.ErrRemoteUnavailable)

		_, ok, err := store.Read(ctx, "data/x.json")
		require.NoError(t, err)
		assert.False(t, ok, "failed create leaves no object")
		status, err := client.Status()
		require.NoError(t, err)
		assert.Empty(t, status)

		restore()
		_, err = store.Create(ctx, "data/x.json", []byte("one"), "add x")
		require.NoError(t, err)
		assert.Equal(t, n+1, commitCount(t, client), "retry commits")
		status, err = client.Status()
		require.NoError(t, err)
		assert.Empty(t, status)
	})

	t.Run("Update", func(t *testing.T) {
		store, path, client := setupStore(t)
		v1, err := store.Create(ctx, "data/u.json", []byte("one"), "add")
		require.NoError(t, err)

		restore := failCommits(t, path)
		_, err = store.Update(ctx, "data/u.json", []byte("two"), v1, "update")
		require.ErrorIs(t, err, core.ErrRemoteUnavailable)

		obj, ok, err := store.Read(ctx, "data/u.json")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "one", string(obj.Content))
		assert.Equal(t, v1, obj.Version, "token still valid")
		status, err := client.Status()
		require.NoError(t, err)
		assert.Empty(t, status)

		restore()
		_, err = store.Update(ctx, "data/u.json", []byte("two"), v1, "update")
		require.NoError(t, err)
	})

	t.Run("Delete", func(t *testing.T) {
		store, path, client := setupStore(t)
		v, err := store.Create(ctx, "data/d.json", []byte("keep"), "add")
		require.NoError(t, err)

		restore := failCommits(t, path)
		defer restore()
		require.ErrorIs(t, store.Delete(ctx, "data/d.json", v, "delete"), core.ErrRemoteUnavailable)

		obj, ok, err := store.Read(ctx, "data/d.json")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, v, obj.Version)
		status, err := client.Status()
		require.NoError(t, err)
		assert.Empty(t, status)
	})

	t.Run("Interrupted Write Is Committed On Retry", func(t *testing.T) {
		store, path, client := setupStore(t)
		n := commitCount(t, client)

		require.NoError(t, os.MkdirAll(filepath.Join(path, "data"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(path, "data", "p.json"), []byte("pending"), 0644))
		require.NoError(t, client.Add(filepath.Join("data", "p.json")))

		_, err := store.Create(ctx, "data/p.json", []byte("pending"), "add p")
		require.NoError(t, err)
		assert.Equal(t, n+1, commitCount(t, client))
		status, err := client.Status()
		require.NoError(t, err)
		assert.Empty(t, status)
	})
}

func TestList(t *testing.T) {
	store, _, _ := setupStore(t)
	ctx := context.Background()

	entries, err := store.List(ctx, "data")
	require.NoError(t, err)
	assert.Empty(t, entries, "missing prefix lists empty")

	for _, name := range []string{"b.json", "a.json", "notes.txt"} {
		_, err := store.Create(ctx, "data/"+name, []byte(name), "add "+name)
		require.NoError(t, err)
	}

	entries, err = store.List(ctx, "data")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, core.Entry{Path: "data/a.json", Name: "a.json"}, entries[0])
}
