package core_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stash/pkg/core"
)

func TestConstructors(t *testing.T) {
	a := core.NewNote("first")
	b := core.NewNote("second")
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, core.KindNote, a.Kind)
	assert.Equal(t, time.UTC, a.CreatedAt.Location())
	assert.Zero(t, a.CreatedAt.Nanosecond()%int(time.Millisecond))
	require.NoError(t, a.Validate())

	link := core.NewLink("https://go.dev")
	assert.Equal(t, core.KindLink, link.Kind)
	require.NoError(t, link.Validate())

	img := core.NewImage("sunset", "assets/x.png")
	assert.Equal(t, "assets/x.png", img.AssetPath)
	require.NoError(t, img.Validate())
}

func TestValidate(t *testing.T) {
	now := time.Now().UTC()
	tests := []struct {
		name string
		it   core.Item
	}{
		{"Missing ID", core.Item{Kind: core.KindNote, CreatedAt: now}},
		{"Unknown Kind", core.Item{ID: "x", Kind: "video", CreatedAt: now}},
		{"Missing CreatedAt", core.Item{ID: "x", Kind: core.KindNote}},
		{"Link Without URL", core.Item{ID: "x", Kind: core.KindLink, CreatedAt: now}},
		{"Image Without Asset", core.Item{ID: "x", Kind: core.KindImage, CreatedAt: now}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.it.Validate(), core.ErrInvalidItem)
		})
	}
}

func TestFlags(t *testing.T) {
	it := core.NewNote("flags")

	pinned, err := it.Toggled(core.FlagPinned)
	require.NoError(t, err)
	assert.True(t, pinned.Pinned)
	assert.False(t, it.Pinned, "toggle returns a copy")

	back, err := pinned.Toggled(core.FlagPinned)
	require.NoError(t, err)
	assert.False(t, back.Pinned)

	starred, err := it.WithFlag(core.FlagStarred, true)
	require.NoError(t, err)
	archived, err := starred.Toggled(core.FlagArchived)
	require.NoError(t, err)
	assert.True(t, archived.Starred)
	assert.True(t, archived.Archived)
	assert.False(t, archived.Pinned)

	_, err = it.Toggled("hidden")
	require.Error(t, err)
}

func TestPatch(t *testing.T) {
	it := core.NewNote("body")
	it.Tags = []string{"keep"}

	assert.True(t, core.Patch{}.Empty())
	assert.Equal(t, it, core.Patch{}.Apply(it))

	note := "secondary"
	tags := []string{"a", "", "a", "b"}
	starred := true
	p := core.Patch{Note: &note, Tags: &tags, Starred: &starred}
	assert.False(t, p.Empty())

	got := p.Apply(it)
	assert.Equal(t, "secondary", got.Note)
	assert.Equal(t, []string{"a", "b"}, got.Tags)
	assert.True(t, got.Starred)
	assert.Equal(t, "body", got.Content)
	assert.Equal(t, it.ID, got.ID)
	assert.Equal(t, []string{"keep"}, it.Tags, "original untouched")

	empty := []string{}
	cleared := core.Patch{Tags: &empty}.Apply(got)
	assert.Nil(t, cleared.Tags)
}
