package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/aretw0/lifecycle/pkg/core/supervisor"
	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/spf13/cobra"

	"github.com/aretw0/stash/internal/platform"
	stashlifecycle "github.com/aretw0/stash/pkg/adapters/lifecycle"
	"github.com/aretw0/stash/pkg/core"
	"github.com/aretw0/stash/pkg/inbox"
)

var (
	watchTags      []string
	watchKeep      bool
	watchOnce      bool
	watchSupervise bool
	watchDebounce  time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Capture files dropped into an inbox directory",
	Long: `Watch turns files dropped into a directory into items: text and markdown
files become notes, .url files (or a file holding a single URL) become links and
images are uploaded. Captured files are moved into <dir>/.captured.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		icfg := inboxConfig(loadConfig().Inbox, args)
		if icfg.Dir == "" {
			fatal("Error starting watch", errors.New("no inbox directory (pass one or set inbox.dir)"))
		}

		archive := openArchive(ctx, false)
		defer archive.Close()

		captured := make(chan core.Item, 16)
		icfg.OnCapture = func(it core.Item) {
			select {
			case captured <- it:
			default:
			}
		}
		in, err := inbox.New(archive, icfg)
		if err != nil {
			fatal("Error starting watch", err)
		}

		items, err := in.Scan(ctx)
		if err != nil {
			fatal("Error scanning inbox", err)
		}
		fmt.Printf("Captured %d existing files from %s\n", len(items), in.Dir())
		if watchOnce {
			return
		}

		src := stashlifecycle.NewSource(captured)
		if err := src.Start(ctx); err != nil {
			fatal("Error starting watch", err)
		}
		lifecycle.Go(ctx, func(ctx context.Context) error {
			for e := range src.Events() {
				fmt.Println(e)
			}
			return nil
		})

		if err := watch(ctx, in, watchSupervise); err != nil {
			fatal("Error watching inbox", err)
		}
	},
}

// watch runs the inbox watcher until ctx is done, optionally under a
// supervisor restarting it on failure.
func watch(ctx context.Context, in *inbox.Inbox, supervise bool) error {
	var runner interface {
		Start(context.Context) error
		Stop(context.Context) error
	}
	if supervise {
		runner = supervisor.New("inbox", supervisor.StrategyOneForOne, watcherSpec(in))
	} else {
		runner = in.NewWatcher()
	}

	if err := runner.Start(ctx); err != nil {
		return err
	}
	slog.Info("watching inbox", "dir", in.Dir(), "supervised", supervise)
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return runner.Stop(stopCtx)
}

// watcherSpec describes the inbox watcher as a restartable worker.
func watcherSpec(in *inbox.Inbox) supervisor.Spec {
	return supervisor.Spec{
		Name: "inbox-watcher",
		Type: string(worker.TypeGoroutine),
		Factory: func() (worker.Worker, error) {
			return in.NewWatcher(), nil
		},
		Backoff: supervisor.Backoff{
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     30 * time.Second,
			Multiplier:      2,
			ResetDuration:   time.Minute,
			MaxRestarts:     10,
			MaxDuration:     10 * time.Minute,
		},
		RestartPolicy: supervisor.RestartOnFailure,
	}
}

// inboxConfig merges the config file section with the flags.
func inboxConfig(fc platform.InboxConfig, args []string) inbox.Config {
	cfg := inbox.Config{
		Dir:      expandHome(fc.Dir),
		Include:  fc.Include,
		Ignore:   fc.Ignore,
		Tags:     fc.Tags,
		Debounce: fc.Debounce,
		Keep:     fc.Keep || watchKeep,
		Logger:   slog.Default(),
	}
	if len(args) > 0 {
		cfg.Dir = args[0]
	}
	if len(watchTags) > 0 {
		cfg.Tags = append(cfg.Tags, watchTags...)
	}
	if watchDebounce > 0 {
		cfg.Debounce = watchDebounce
	}
	return cfg
}

func expandHome(p string) string {
	if rest, ok := strings.CutPrefix(p, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return p
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringSliceVarP(&watchTags, "tag", "t", nil, "Tags added to every captured item")
	watchCmd.Flags().BoolVar(&watchKeep, "keep", false, "Leave captured files in place")
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "Capture existing files and exit")
	watchCmd.Flags().BoolVar(&watchSupervise, "supervise", false, "Restart the watcher when it fails")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "Quiet period before a changed file is captured (default 200ms)")
}
