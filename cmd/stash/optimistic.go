package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/stash/pkg/core"
	"github.com/aretw0/stash/pkg/storage"
)

// stage shows next in the cache before the remote write runs and restores
// prev if the write fails. A nil prev means next is a new item.
func stage(ctx context.Context, c *storage.Coordinator, prev *core.Item, next core.Item, write func() error) error {
	c.StageOptimistic(ctx, next)
	if err := write(); err != nil {
		if prev != nil {
			c.StageOptimistic(ctx, *prev)
		} else {
			c.StageOptimisticDelete(ctx, next.ID)
		}
		return withHint(err)
	}
	return nil
}

// stageDelete hides prev from the cache before the remote delete runs and
// puts it back if the delete fails.
func stageDelete(ctx context.Context, c *storage.Coordinator, prev core.Item, remove func() error) error {
	c.StageOptimisticDelete(ctx, prev.ID)
	if err := remove(); err != nil {
		c.StageOptimistic(ctx, prev)
		return withHint(err)
	}
	return nil
}

// withHint tells the user how to recover from a stale view of the remote store.
func withHint(err error) error {
	if errors.Is(err, core.ErrConflict) || errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("%w (run \"stash sync\" and retry)", err)
	}
	return err
}
