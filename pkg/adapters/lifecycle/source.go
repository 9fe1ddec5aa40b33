// Package lifecycle bridges inbox captures to lifecycle event sources.
package lifecycle

import (
	"context"
	"fmt"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/stash/pkg/core"
)

// CaptureEvent reports an item captured from the inbox.
type CaptureEvent struct {
	Item core.Item
}

// String implements lifecycle.Event.
func (e CaptureEvent) String() string {
	label := e.Item.Title
	if label == "" {
		label = e.Item.Content
	}
	return fmt.Sprintf("captured %s %s %q", e.Item.Kind, e.Item.ID, label)
}

type captureSource struct {
	items <-chan core.Item
	out   chan lifecycle.Event
}

// NewSource creates a lifecycle.Source emitting one CaptureEvent per item
// received on items. The event channel closes when items closes or the
// context given to Start is done.
func NewSource(items <-chan core.Item) lifecycle.Source {
	return &captureSource{
		items: items,
		out:   make(chan lifecycle.Event),
	}
}

func (s *captureSource) Events() <-chan lifecycle.Event {
	return s.out
}

func (s *captureSource) Start(ctx context.Context) error {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case it, ok := <-s.items:
				if !ok {
					return nil
				}
				select {
				case s.out <- CaptureEvent{Item: it}:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}
