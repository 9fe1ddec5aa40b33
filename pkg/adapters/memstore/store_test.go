package memstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stash/pkg/adapters/memstore"
	"github.com/aretw0/stash/pkg/core"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	require.NoError(t, s.Initialize(ctx))
	require.NoError(t, s.Initialize(ctx))
	require.Len(t, s.Commits(), 1, "initialize commits once")

	v1, err := s.Create(ctx, "data/a.json", []byte("one"), "add")
	require.NoError(t, err)

	t.Run("Read Returns Version", func(t *testing.T) {
		obj, ok, err := s.Read(ctx, "/data/a.json")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, v1, obj.Version)
		assert.Equal(t, "one", string(obj.Content))
	})

	t.Run("Create On Occupied Path", func(t *testing.T) {
		v, err := s.Create(ctx, "data/a.json", []byte("one"), "add")
		require.NoError(t, err)
		assert.Equal(t, v1, v)

		_, err = s.Create(ctx, "data/a.json", []byte("two"), "add")
		require.ErrorIs(t, err, core.ErrConflict)
	})

	t.Run("Update Checks Token", func(t *testing.T) {
		_, err := s.Update(ctx, "data/a.json", []byte("two"), "", "update")
		require.ErrorIs(t, err, core.ErrConflict)

		v2, err := s.Update(ctx, "data/a.json", []byte("two"), v1, "update")
		require.NoError(t, err)
		assert.NotEqual(t, v1, v2)

		_, err = s.Update(ctx, "data/a.json", []byte("three"), v1, "update")
		require.ErrorIs(t, err, core.ErrConflict)

		_, err = s.Update(ctx, "data/b.json", []byte("x"), v2, "update")
		require.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("List Direct Children", func(t *testing.T) {
		_, err := s.Create(ctx, "data/0.json", []byte("zero"), "add")
		require.NoError(t, err)
		_, err = s.Create(ctx, "assets/x.png", []byte("png"), "upload")
		require.NoError(t, err)

		entries, err := s.List(ctx, "data")
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "0.json", entries[0].Name)
		assert.Equal(t, "data/a.json", entries[1].Path)

		entries, err = s.List(ctx, "missing")
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("Delete Checks Token", func(t *testing.T) {
		obj, _, err := s.Read(ctx, "data/a.json")
		require.NoError(t, err)

		require.ErrorIs(t, s.Delete(ctx, "data/a.json", "", "delete"), core.ErrNotFound)
		require.ErrorIs(t, s.Delete(ctx, "data/a.json", "r0", "delete"), core.ErrConflict)
		require.NoError(t, s.Delete(ctx, "data/a.json", obj.Version, "delete"))

		_, ok, err := s.Read(ctx, "data/a.json")
		require.NoError(t, err)
		assert.False(t, ok)
		require.ErrorIs(t, s.Delete(ctx, "data/a.json", obj.Version, "delete"), core.ErrNotFound)
	})
}

func TestState(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	require.NoError(t, s.Initialize(ctx))
	_, err := s.Create(ctx, "data/a.json", []byte("a"), "add")
	require.NoError(t, err)

	st := s.State().(memstore.StoreState)
	assert.True(t, st.Initialized)
	assert.Equal(t, 1, st.Objects)
	assert.Equal(t, 2, st.Commits)
	assert.Equal(t, "remote:memory", s.ComponentType())
}
