// Package query filters and summarizes item collections for display.
// It never reorders: the input is expected in core.Sort order already.
package query

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/stash/pkg/core"
)

// ArchiveMode controls how archived items are treated.
type ArchiveMode int

const (
	// ExcludeArchived hides archived items. It is the zero value.
	ExcludeArchived ArchiveMode = iota
	// IncludeArchived shows every item.
	IncludeArchived
	// OnlyArchived shows archived items only.
	OnlyArchived
)

// Filter selects items. Zero fields do not constrain.
type Filter struct {
	Kinds []core.Kind
	// Tags must all be present on a matching item.
	Tags []string
	// Text is matched case-insensitively against content, title, note and tags.
	Text     string
	Pinned   bool
	Starred  bool
	Archived ArchiveMode
	Since    time.Time
	Until    time.Time
	Limit    int
}

// Match reports whether it passes the filter.
func (f Filter) Match(it core.Item) bool {
	switch f.Archived {
	case ExcludeArchived:
		if it.Archived {
			return false
		}
	case OnlyArchived:
		if !it.Archived {
			return false
		}
	}
	if len(f.Kinds) > 0 && !slices.Contains(f.Kinds, it.Kind) {
		return false
	}
	if f.Pinned && !it.Pinned {
		return false
	}
	if f.Starred && !it.Starred {
		return false
	}
	for _, tag := range f.Tags {
		if !it.HasTag(tag) {
			return false
		}
	}
	if !f.Since.IsZero() && it.CreatedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && !it.CreatedAt.Before(f.Until) {
		return false
	}
	if f.Text != "" && !matchText(it, strings.ToLower(f.Text)) {
		return false
	}
	return true
}

func matchText(it core.Item, needle string) bool {
	for _, field := range []string{it.Content, it.Title, it.Note} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	for _, tag := range it.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

// Apply returns the items that pass f, keeping their order.
func Apply(items []core.Item, f Filter) []core.Item {
	out := make([]core.Item, 0, len(items))
	for _, it := range items {
		if !f.Match(it) {
			continue
		}
		out = append(out, it)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}

// TagCount is one entry of the tag vocabulary.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Tags returns the distinct tags of items, most used first.
func Tags(items []core.Item) []TagCount {
	counts := make(map[string]int)
	for _, it := range items {
		for _, tag := range it.Tags {
			counts[tag]++
		}
	}
	out := make([]TagCount, 0, len(counts))
	for tag, n := range counts {
		out = append(out, TagCount{Tag: tag, Count: n})
	}
	slices.SortFunc(out, func(a, b TagCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Tag, b.Tag)
	})
	return out
}

// ParseKinds parses a comma separated kind list.
func ParseKinds(s string) ([]core.Kind, error) {
	var kinds []core.Kind
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k := core.Kind(strings.ToLower(part))
		if !k.Valid() {
			return nil, fmt.Errorf("unknown kind %q", part)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// ParseTime parses a date bound relative to now. Accepted forms are
// RFC 3339, a plain date (2006-01-02, UTC midnight), "today", "yesterday" and
// a relative age such as 36h, 7d or 2w meaning that long before now.
func ParseTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch s {
	case "":
		return time.Time{}, nil
	case "today":
		return midnight, nil
	case "yesterday":
		return midnight.AddDate(0, 0, -1), nil
	}

	if t, err := time.Parse(time.RFC3339, strings.ToUpper(s)); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}

	if len(s) > 1 {
		unit := s[len(s)-1]
		n, err := strconv.Atoi(s[:len(s)-1])
		if err == nil && n >= 0 {
			switch unit {
			case 'd':
				return now.AddDate(0, 0, -n), nil
			case 'w':
				return now.AddDate(0, 0, -7*n), nil
			}
		}
	}
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		return now.Add(-d), nil
	}

	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
