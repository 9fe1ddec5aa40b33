package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/aretw0/stash/pkg/core"
)

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// flags renders pinned, starred and archived as P, S and A.
func flags(it core.Item) string {
	var b strings.Builder
	for _, f := range []struct {
		on bool
		c  byte
	}{{it.Pinned, 'P'}, {it.Starred, 'S'}, {it.Archived, 'A'}} {
		if f.on {
			b.WriteByte(f.c)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

// summary is the one-line label of an item.
func summary(it core.Item, width int) string {
	s := it.Title
	if s == "" {
		s = it.Content
	}
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > width {
		s = string(r[:width-1]) + "…"
	}
	return s
}

func writeTable(w io.Writer, items []core.Item) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tFLAGS\tCREATED\tTITLE")
	for _, it := range items {
		id := it.ID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", id, it.Kind, flags(it), it.CreatedAt.Local().Format(time.DateOnly), summary(it, 60))
	}
	return tw.Flush()
}

func writeItem(w io.Writer, it core.Item) {
	fmt.Fprintf(w, "ID:       %s\n", it.ID)
	fmt.Fprintf(w, "Kind:     %s\n", it.Kind)
	if it.Title != "" {
		fmt.Fprintf(w, "Title:    %s\n", it.Title)
	}
	fmt.Fprintf(w, "Created:  %s\n", it.CreatedAt.Local().Format(time.RFC1123))
	if !it.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "Updated:  %s\n", it.UpdatedAt.Local().Format(time.RFC1123))
	}
	fmt.Fprintf(w, "Flags:    %s\n", flags(it))
	if len(it.Tags) > 0 {
		fmt.Fprintf(w, "Tags:     %s\n", strings.Join(it.Tags, ", "))
	}
	if it.AssetPath != "" {
		fmt.Fprintf(w, "Asset:    %s\n", it.AssetPath)
	}
	if it.Note != "" {
		fmt.Fprintf(w, "Note:     %s\n", it.Note)
	}
	fmt.Fprintf(w, "\n%s\n", it.Content)
}
