package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/stash/internal/platform"
	"github.com/aretw0/stash/pkg/adapters/github"
)

var (
	verbose    bool
	configPath string
	adapter    string
	container  string
	offline    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stash",
	Short: "A personal archive of notes, links and images backed by a versioned store",
	Long: `Stash keeps notes, links and images as JSON objects in a Git or GitHub
repository and mirrors them in a local cache so listing stays fast and works offline.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: stash.yaml upwards, then ~/.config/stash/stash.yaml)")
	rootCmd.PersistentFlags().StringVar(&adapter, "adapter", "", "Remote store: git, github or memory")
	rootCmd.PersistentFlags().StringVar(&container, "container", "", "Remote repository name")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "Work from the cache when the remote store is unreachable")
}

// resolvedConfigPath returns the configuration file in use, if any.
func resolvedConfigPath() string {
	return platform.ResolveConfigPath(configPath)
}

// loadConfig reads the configuration file selected by the flags.
func loadConfig() platform.Config {
	cfg, err := platform.LoadConfig(resolvedConfigPath())
	if err != nil {
		fatal("Error loading config", err)
	}
	return cfg
}

// openArchive opens the archive described by the config file and the flags.
// Read-only commands pass tolerant so an unreachable remote falls back to
// the cache.
func openArchive(ctx context.Context, tolerant bool) *platform.Archive {
	cfg := loadConfig()
	opts := cfg.Options()
	if adapter != "" {
		opts = append(opts, platform.WithAdapter(adapter))
	}
	if container != "" {
		opts = append(opts, platform.WithContainer(container))
	}
	opts = append(opts,
		platform.WithLogger(slog.Default()),
		platform.WithOffline(tolerant || offline),
	)

	archive, err := platform.New(ctx, opts...)
	if err != nil {
		if github.IsAuthError(err) {
			err = fmt.Errorf("%w (check the token in STASH_TOKEN or remote.token and retry)", err)
		}
		fatal("Error opening archive", err)
	}
	return archive
}
