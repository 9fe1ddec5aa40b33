package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/stash"
)

// statusReport is printed by the status command.
type statusReport struct {
	Version string `json:"version"`
	Config  string `json:"config,omitempty"`
	State   any    `json:"state"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the state of the archive components as JSON",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		archive := openArchive(ctx, true)
		defer archive.Close()
		archive.ReadCached(ctx)

		report := statusReport{
			Version: strings.TrimSpace(stash.Version),
			Config:  resolvedConfigPath(),
			State:   archive.State(),
		}
		if err := writeJSON(os.Stdout, report); err != nil {
			fatal("Error encoding JSON", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
