package main

import (
	"os"

	"github.com/spf13/cobra"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one item (the id may be abbreviated)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		archive := openArchive(ctx, true)
		defer archive.Close()

		it, err := resolve(ctx, archive, args[0])
		if err != nil {
			fatal("Error reading item", err)
		}
		if showJSON {
			if err := writeJSON(os.Stdout, it); err != nil {
				fatal("Error encoding JSON", err)
			}
			return
		}
		writeItem(os.Stdout, it)
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Output in JSON format")
}
