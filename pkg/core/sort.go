package core

import (
	"cmp"
	"slices"
)

// Compare orders pinned items first, then newest first by CreatedAt. Ties are
// broken by id so the order is total.
func Compare(a, b Item) int {
	if a.Pinned != b.Pinned {
		if a.Pinned {
			return -1
		}
		return 1
	}
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}

// Sort sorts items in place in the canonical order and returns them.
func Sort(items []Item) []Item {
	slices.SortStableFunc(items, Compare)
	return items
}
