// Package stash is the Composition Root of a personal archive of notes,
// links and images.
//
// Items live as JSON objects in a versioned remote store (a local Git
// repository, a GitHub repository through the contents API, or memory) and
// are mirrored by a local cache that answers reads for five minutes after
// each full fetch.
//
// Layout of the remote store:
//
//	<container>/
//	  data/<createdAt>-<id>.json
//	  assets/<random-id>.<ext>
//
// Every write carries the version token last seen for the object, so a
// concurrent change surfaces as core.ErrConflict instead of being lost.
//
// Usage:
//
//	archive, err := stash.New(ctx,
//		stash.WithAdapter("github"),
//		stash.WithGitHub("me", "notes", "", token),
//	)
//	if err != nil {
//		return err
//	}
//	defer archive.Close()
//
//	err = archive.Save(ctx, stash.NewNote("remember the milk"))
//	items, err := archive.FetchAll(ctx, false)
package stash
