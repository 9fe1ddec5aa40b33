package main

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/aretw0/stash"
	"github.com/spf13/cobra"
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of stash",
	Run: func(cmd *cobra.Command, args []string) {
		v := strings.TrimSpace(stash.Version)
		if versionShort {
			fmt.Println(v)
			return
		}
		fmt.Printf("stash version %s (%s %s/%s)\n", v, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Print only the version number")
	rootCmd.AddCommand(versionCmd)
}
