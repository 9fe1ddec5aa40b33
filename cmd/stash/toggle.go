package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/stash/internal/platform"
	"github.com/aretw0/stash/pkg/core"
)

// toggleCommand builds the pin, star and archive commands.
func toggleCommand(use string, flag core.Flag) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: fmt.Sprintf("Toggle the %s flag of an item", flag),
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			archive := openArchive(ctx, false)
			defer archive.Close()

			it, err := toggle(ctx, archive, args[0], flag)
			if err != nil {
				fatal("Error updating item", err)
			}
			on, _ := it.Flag(flag)
			fmt.Printf("%s %s: %t\n", it.ID, flag, on)
		},
	}
}

// toggle inverts flag on the item, showing the result in the cache first.
func toggle(ctx context.Context, a *platform.Archive, ref string, flag core.Flag) (core.Item, error) {
	prev, err := resolve(ctx, a, ref)
	if err != nil {
		return core.Item{}, err
	}
	next, err := prev.Toggled(flag)
	if err != nil {
		return core.Item{}, err
	}

	var updated core.Item
	err = stage(ctx, a.Coordinator, &prev, next, func() error {
		var err error
		updated, err = a.ToggleFlag(ctx, prev, flag)
		return err
	})
	return updated, err
}

func init() {
	rootCmd.AddCommand(
		toggleCommand("pin", core.FlagPinned),
		toggleCommand("star", core.FlagStarred),
		toggleCommand("archive", core.FlagArchived),
	)
}
