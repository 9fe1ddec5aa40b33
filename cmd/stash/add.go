package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/stash/internal/platform"
	"github.com/aretw0/stash/pkg/core"
)

var (
	addTitle   string
	addNote    string
	addTags    []string
	addPinned  bool
	addStarred bool
	addCaption string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a note, link or image",
}

var addNoteCmd = &cobra.Command{
	Use:   "note [text...]",
	Short: "Add a note (reads stdin when text is - or missing)",
	Run: func(cmd *cobra.Command, args []string) {
		text := strings.Join(args, " ")
		if text == "" || text == "-" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				fatal("Error reading stdin", err)
			}
			text = strings.TrimSpace(string(data))
		}
		if text == "" {
			fatal("Error adding note", errors.New("empty note"))
		}
		addItem(cmd, core.NewNote(text))
	},
}

var addLinkCmd = &cobra.Command{
	Use:   "link <url>",
	Short: "Add a link",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		addItem(cmd, core.NewLink(args[0]))
	},
}

var addImageCmd = &cobra.Command{
	Use:   "image <file>",
	Short: "Upload an image and add it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		archive := openArchive(ctx, false)
		defer archive.Close()

		it, err := addImage(ctx, archive, args[0], addCaption, decorate)
		if err != nil {
			fatal("Error adding image", err)
		}
		fmt.Printf("Added image %s (%s)\n", it.ID, it.AssetPath)
	},
}

// decorate applies the shared add flags.
func decorate(it core.Item) core.Item {
	it.Title = addTitle
	it.Note = addNote
	it.Tags = core.NormalizeTags(addTags)
	it.Pinned = addPinned
	it.Starred = addStarred
	return it
}

func addItem(cmd *cobra.Command, it core.Item) {
	ctx := cmd.Context()
	archive := openArchive(ctx, false)
	defer archive.Close()

	it = decorate(it)
	if err := add(ctx, archive, it); err != nil {
		fatal("Error adding "+string(it.Kind), err)
	}
	fmt.Printf("Added %s %s\n", it.Kind, it.ID)
}

// add saves a new item, showing it in the cache right away.
func add(ctx context.Context, a *platform.Archive, it core.Item) error {
	if err := it.Validate(); err != nil {
		return err
	}
	return stage(ctx, a.Coordinator, nil, it, func() error {
		return a.Save(ctx, it)
	})
}

// addImage uploads the file as an asset and saves an image item for it.
// The caption defaults to the file name without extension.
func addImage(ctx context.Context, a *platform.Archive, file, caption string, decorate func(core.Item) core.Item) (core.Item, error) {
	name := filepath.Base(file)
	if !core.IsImageExt(filepath.Ext(name)) {
		return core.Item{}, fmt.Errorf("%s is not a supported image", name)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return core.Item{}, err
	}
	asset, err := a.UploadAsset(ctx, data, name)
	if err != nil {
		return core.Item{}, withHint(err)
	}
	if caption == "" {
		caption = strings.TrimSuffix(name, filepath.Ext(name))
	}
	it := core.NewImage(caption, asset)
	if decorate != nil {
		it = decorate(it)
	}
	return it, add(ctx, a, it)
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.AddCommand(addNoteCmd, addLinkCmd, addImageCmd)
	addCmd.PersistentFlags().StringVar(&addTitle, "title", "", "Title")
	addCmd.PersistentFlags().StringVar(&addNote, "note", "", "Annotation")
	addCmd.PersistentFlags().StringSliceVarP(&addTags, "tag", "t", nil, "Tags (repeatable or comma separated)")
	addCmd.PersistentFlags().BoolVar(&addPinned, "pin", false, "Pin the item")
	addCmd.PersistentFlags().BoolVar(&addStarred, "star", false, "Star the item")
	addImageCmd.Flags().StringVar(&addCaption, "caption", "", "Caption (default: file name)")
}
