package lifecycle_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stashlifecycle "github.com/aretw0/stash/pkg/adapters/lifecycle"
	"github.com/aretw0/stash/pkg/core"
)

func TestSource(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	items := make(chan core.Item)
	src := stashlifecycle.NewSource(items)
	require.NoError(t, src.Start(ctx))

	it := core.NewNote("from the inbox")
	it.Title = "Inbox"
	go func() {
		items <- it
		close(items)
	}()

	select {
	case e := <-src.Events():
		ce, ok := e.(stashlifecycle.CaptureEvent)
		require.True(t, ok)
		assert.Equal(t, it.ID, ce.Item.ID)
		assert.Contains(t, e.String(), `"Inbox"`)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}

	t.Run("Closes With Input", func(t *testing.T) {
		select {
		case _, ok := <-src.Events():
			assert.False(t, ok)
		case <-time.After(2 * time.Second):
			t.Fatal("event channel not closed")
		}
	})
}
