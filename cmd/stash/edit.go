package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/stash/internal/platform"
	"github.com/aretw0/stash/pkg/core"
)

var (
	editTitle   string
	editNote    string
	editContent string
	editTags    []string
)

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change the title, note, content or tags of an item",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var patch core.Patch
		if cmd.Flags().Changed("title") {
			patch.Title = &editTitle
		}
		if cmd.Flags().Changed("note") {
			patch.Note = &editNote
		}
		if cmd.Flags().Changed("content") {
			patch.Content = &editContent
		}
		if cmd.Flags().Changed("tags") {
			patch.Tags = &editTags
		}
		if patch.Empty() {
			fatal("Error editing item", errors.New("nothing to change (use --title, --note, --content or --tags)"))
		}

		ctx := cmd.Context()
		archive := openArchive(ctx, false)
		defer archive.Close()

		it, err := edit(ctx, archive, args[0], patch)
		if err != nil {
			fatal("Error editing item", err)
		}
		fmt.Printf("Updated %s\n", it.ID)
	},
}

// edit applies patch to the item, showing the result in the cache first.
func edit(ctx context.Context, a *platform.Archive, ref string, patch core.Patch) (core.Item, error) {
	prev, err := resolve(ctx, a, ref)
	if err != nil {
		return core.Item{}, err
	}
	next := patch.Apply(prev)
	if err := next.Validate(); err != nil {
		return core.Item{}, err
	}

	var updated core.Item
	err = stage(ctx, a.Coordinator, &prev, next, func() error {
		var err error
		updated, err = a.Edit(ctx, prev.ID, patch)
		return err
	})
	return updated, err
}

func init() {
	rootCmd.AddCommand(editCmd)
	editCmd.Flags().StringVar(&editTitle, "title", "", "New title")
	editCmd.Flags().StringVar(&editNote, "note", "", "New annotation")
	editCmd.Flags().StringVar(&editContent, "content", "", "New content (text, URL or caption)")
	editCmd.Flags().StringSliceVar(&editTags, "tags", nil, "Replace the tags (comma separated, empty to clear)")
}
