package main

import (
	"fmt"

	"github.com/aretw0/introspection"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the remote repository if it does not exist",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		archive := openArchive(ctx, false)
		defer archive.Close()

		kind := "remote"
		if c, ok := archive.Remote().(introspection.Component); ok {
			kind = c.ComponentType()
		}
		fmt.Printf("Initialized archive (%s)\n", kind)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
