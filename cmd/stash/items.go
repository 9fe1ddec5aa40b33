package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/stash/internal/platform"
	"github.com/aretw0/stash/pkg/core"
)

// loadItems lists the archive, from the cache alone when the remote store
// could not be initialized.
func loadItems(ctx context.Context, a *platform.Archive, refresh bool) ([]core.Item, error) {
	if !a.Initialized() {
		slog.Warn("remote store unavailable, showing cached items")
		return a.ReadCached(ctx), nil
	}
	return a.FetchAll(ctx, refresh)
}

// resolve finds an item by full id or unique id prefix.
func resolve(ctx context.Context, a *platform.Archive, ref string) (core.Item, error) {
	items, err := loadItems(ctx, a, false)
	if err != nil {
		return core.Item{}, err
	}

	var matches []core.Item
	for _, it := range items {
		if it.ID == ref {
			return it, nil
		}
		if strings.HasPrefix(it.ID, ref) {
			matches = append(matches, it)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return a.Get(ctx, ref)
	}
	return core.Item{}, fmt.Errorf("id prefix %q is ambiguous (%d items)", ref, len(matches))
}
