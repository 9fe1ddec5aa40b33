package query_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stash/pkg/core"
	"github.com/aretw0/stash/pkg/query"
)

var base = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func fixtures() []core.Item {
	return core.Sort([]core.Item{
		{ID: "n1", Kind: core.KindNote, Content: "Learning Go generics", Tags: []string{"go", "study"}, CreatedAt: base},
		{ID: "l1", Kind: core.KindLink, Content: "https://go.dev/blog", Title: "The Go Blog", Tags: []string{"go"}, CreatedAt: base.Add(-48 * time.Hour), Starred: true},
		{ID: "i1", Kind: core.KindImage, Content: "whiteboard", AssetPath: "assets/x.png", CreatedAt: base.Add(-24 * time.Hour), Pinned: true},
		{ID: "n2", Kind: core.KindNote, Content: "old idea", Note: "Archived for later", CreatedAt: base.Add(-72 * time.Hour), Archived: true},
	})
}

func ids(items []core.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestApply(t *testing.T) {
	items := fixtures()
	tests := []struct {
		name   string
		filter query.Filter
		want   []string
	}{
		{"Default Hides Archived", query.Filter{}, []string{"i1", "n1", "l1"}},
		{"Include Archived", query.Filter{Archived: query.IncludeArchived}, []string{"i1", "n1", "l1", "n2"}},
		{"Only Archived", query.Filter{Archived: query.OnlyArchived}, []string{"n2"}},
		{"By Kind", query.Filter{Kinds: []core.Kind{core.KindNote, core.KindImage}}, []string{"i1", "n1"}},
		{"By Tags", query.Filter{Tags: []string{"go", "study"}}, []string{"n1"}},
		{"Pinned", query.Filter{Pinned: true}, []string{"i1"}},
		{"Starred", query.Filter{Starred: true}, []string{"l1"}},
		{"Text In Title", query.Filter{Text: "BLOG"}, []string{"l1"}},
		{"Text In Tag", query.Filter{Text: "stud"}, []string{"n1"}},
		{"Text In Note", query.Filter{Text: "later", Archived: query.IncludeArchived}, []string{"n2"}},
		{"Since", query.Filter{Since: base.Add(-24 * time.Hour)}, []string{"i1", "n1"}},
		{"Until Is Exclusive", query.Filter{Until: base.Add(-24 * time.Hour)}, []string{"l1"}},
		{"Limit", query.Filter{Limit: 2}, []string{"i1", "n1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(query.Apply(items, tt.filter)))
		})
	}
}

func TestTags(t *testing.T) {
	got := query.Tags(fixtures())
	assert.Equal(t, []query.TagCount{{Tag: "go", Count: 2}, {Tag: "study", Count: 1}}, got)
	assert.Empty(t, query.Tags(nil))
}

func TestParseKinds(t *testing.T) {
	kinds, err := query.ParseKinds("note, LINK,")
	require.NoError(t, err)
	assert.Equal(t, []core.Kind{core.KindNote, core.KindLink}, kinds)

	_, err = query.ParseKinds("video")
	require.Error(t, err)
}

func TestParseTime(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)
	tests := map[string]time.Time{
		"":                     {},
		"today":                time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		"yesterday":            time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
		"2024-01-02":           time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		"2024-01-02T03:04:05Z": time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		"7d":                   now.AddDate(0, 0, -7),
		"2w":                   now.AddDate(0, 0, -14),
		"36h":                  now.Add(-36 * time.Hour),
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			got, err := query.ParseTime(in, now)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "got %s want %s", got, want)
		})
	}

	_, err := query.ParseTime("next tuesday", now)
	require.Error(t, err)
}
