package stash_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/stash"
	"github.com/aretw0/stash/pkg/core"
)

// Example_basic opens an in-memory archive, saves two items and lists them.
func Example_basic() {
	ctx := context.Background()

	archive, err := stash.New(ctx,
		stash.WithAdapter("memory"),
		stash.WithCacheBackend("memory"),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer archive.Close()

	note := stash.NewNote("Read the Go memory model")
	if err := archive.Save(ctx, note); err != nil {
		log.Fatal(err)
	}
	if err := archive.Save(ctx, stash.NewLink("https://go.dev/ref/mem")); err != nil {
		log.Fatal(err)
	}

	// Pinned items sort first.
	if _, err := archive.ToggleFlag(ctx, note, core.FlagPinned); err != nil {
		log.Fatal(err)
	}

	items, err := archive.FetchAll(ctx, true)
	if err != nil {
		log.Fatal(err)
	}
	for _, it := range items {
		fmt.Println(it.Kind, it.Pinned)
	}

	// Output:
	// note true
	// link false
}
