package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/stash/pkg/query"
)

var (
	listJSON     bool
	listRefresh  bool
	listKinds    string
	listTags     []string
	listStarred  bool
	listPinned   bool
	listArchived bool
	listAll      bool
	listText     string
	listSince    string
	listUntil    string
	listLimit    int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List items, pinned first then newest first",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		filter, err := listFilter(time.Now())
		if err != nil {
			fatal("Error parsing filters", err)
		}

		ctx := cmd.Context()
		archive := openArchive(ctx, true)
		defer archive.Close()

		items, err := loadItems(ctx, archive, listRefresh)
		if err != nil {
			fatal("Error listing items", err)
		}
		items = query.Apply(items, filter)

		if listJSON {
			if err := writeJSON(os.Stdout, items); err != nil {
				fatal("Error encoding JSON", err)
			}
			return
		}
		if len(items) == 0 {
			fmt.Println("No items.")
			return
		}
		if err := writeTable(os.Stdout, items); err != nil {
			fatal("Error writing output", err)
		}
	},
}

// listFilter builds the filter from the list flags.
func listFilter(now time.Time) (query.Filter, error) {
	kinds, err := query.ParseKinds(listKinds)
	if err != nil {
		return query.Filter{}, err
	}
	since, err := query.ParseTime(listSince, now)
	if err != nil {
		return query.Filter{}, err
	}
	until, err := query.ParseTime(listUntil, now)
	if err != nil {
		return query.Filter{}, err
	}

	f := query.Filter{
		Kinds:   kinds,
		Tags:    listTags,
		Text:    listText,
		Pinned:  listPinned,
		Starred: listStarred,
		Since:   since,
		Until:   until,
		Limit:   listLimit,
	}
	switch {
	case listArchived:
		f.Archived = query.OnlyArchived
	case listAll:
		f.Archived = query.IncludeArchived
	}
	return f, nil
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().BoolVarP(&listRefresh, "refresh", "r", false, "Fetch from the remote store even if the cache is fresh")
	listCmd.Flags().StringVarP(&listKinds, "kind", "k", "", "Filter by kind (note, link, image; comma separated)")
	listCmd.Flags().StringSliceVarP(&listTags, "tag", "t", nil, "Filter by tag (all must match)")
	listCmd.Flags().BoolVar(&listStarred, "starred", false, "Only starred items")
	listCmd.Flags().BoolVar(&listPinned, "pinned", false, "Only pinned items")
	listCmd.Flags().BoolVar(&listArchived, "archived", false, "Only archived items")
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "Include archived items")
	listCmd.Flags().StringVarP(&listText, "query", "q", "", "Search content, title, note and tags")
	listCmd.Flags().StringVar(&listSince, "since", "", "Created at or after (2006-01-02, today, 7d, 36h...)")
	listCmd.Flags().StringVar(&listUntil, "until", "", "Created before")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "Maximum number of items")
}
