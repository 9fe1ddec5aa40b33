package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/stash/internal/platform"
	"github.com/aretw0/stash/pkg/core"
)

var (
	assetDataURI bool
	assetOutput  string
)

var assetCmd = &cobra.Command{
	Use:   "asset",
	Short: "Work with uploaded image assets",
}

var assetGetCmd = &cobra.Command{
	Use:   "get <path|id>",
	Short: "Download an asset by path (assets/...) or by image item id",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		archive := openArchive(ctx, false)
		defer archive.Close()

		data, err := fetchAsset(ctx, archive, args[0], assetDataURI)
		if err != nil {
			fatal("Error reading asset", err)
		}
		if assetOutput != "" {
			if err := os.WriteFile(assetOutput, data, 0644); err != nil {
				fatal("Error writing asset", err)
			}
			return
		}
		if _, err := os.Stdout.Write(data); err != nil {
			fatal("Error writing asset", err)
		}
	},
}

// fetchAsset reads an asset as raw bytes or as a data: URI. A ref outside
// the assets prefix is taken as the id of an image item.
func fetchAsset(ctx context.Context, a *platform.Archive, ref string, dataURI bool) ([]byte, error) {
	p := ref
	if !core.IsAssetPath(ref) {
		it, err := resolve(ctx, a, ref)
		if err != nil {
			return nil, err
		}
		if it.AssetPath == "" {
			return nil, fmt.Errorf("item %s has no asset", it.ID)
		}
		p = it.AssetPath
	}

	var (
		data []byte
		ok   bool
		err  error
	)
	if dataURI {
		var uri string
		uri, ok, err = a.GetAssetDataURI(ctx, p)
		data = []byte(uri + "\n")
	} else {
		data, ok, err = a.GetAsset(ctx, p)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, core.NewPathError("read", p, core.ErrNotFound)
	}
	return data, nil
}

func init() {
	rootCmd.AddCommand(assetCmd)
	assetCmd.AddCommand(assetGetCmd)
	assetGetCmd.Flags().BoolVar(&assetDataURI, "data-uri", false, "Print a data: URI instead of the raw bytes")
	assetGetCmd.Flags().StringVarP(&assetOutput, "output", "o", "", "Write to a file instead of stdout")
}
