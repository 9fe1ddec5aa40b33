package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/stash/internal/platform"
	"github.com/aretw0/stash/pkg/core"
)

var removeCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete an item and its image asset",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		archive := openArchive(ctx, false)
		defer archive.Close()

		it, err := remove(ctx, archive, args[0])
		if err != nil {
			fatal("Error deleting item", err)
		}
		fmt.Printf("Deleted %s\n", it.ID)
	},
}

// remove deletes the item, hiding it from the cache first.
func remove(ctx context.Context, a *platform.Archive, ref string) (core.Item, error) {
	prev, err := resolve(ctx, a, ref)
	if err != nil {
		return core.Item{}, err
	}
	err = stageDelete(ctx, a.Coordinator, prev, func() error {
		return a.RemoveItem(ctx, prev)
	})
	return prev, err
}

func init() {
	rootCmd.AddCommand(removeCmd)
}
