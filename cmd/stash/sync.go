package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch every item from the remote store and refresh the cache",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		archive := openArchive(ctx, false)
		defer archive.Close()

		items, err := archive.FetchAll(ctx, true)
		if err != nil {
			fatal("Error syncing", err)
		}
		fmt.Printf("Synced %d items\n", len(items))
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
