package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aretw0/stash/pkg/query"
)

var tagsJSON bool

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List tags by number of items",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		archive := openArchive(ctx, true)
		defer archive.Close()

		items, err := loadItems(ctx, archive, false)
		if err != nil {
			fatal("Error listing items", err)
		}
		tags := query.Tags(items)

		if tagsJSON {
			if err := writeJSON(os.Stdout, tags); err != nil {
				fatal("Error encoding JSON", err)
			}
			return
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, tc := range tags {
			fmt.Fprintf(tw, "%s\t%d\n", tc.Tag, tc.Count)
		}
		_ = tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(tagsCmd)
	tagsCmd.Flags().BoolVar(&tagsJSON, "json", false, "Output in JSON format")
}
