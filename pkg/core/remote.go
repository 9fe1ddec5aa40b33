package core

import "context"

// Object is the content of a remote path together with its version token.
type Object struct {
	Path    string
	Content []byte
	Version string
}

// Entry is one element of a remote listing.
type Entry struct {
	Path string
	Name string
}

// Remote is a versioned, path-addressed object store where every write is a
// single remote commit.
//
// Create fails with ErrConflict if the path is already occupied. Update and
// Delete require the current version token: a stale token yields ErrConflict,
// a missing object yields ErrNotFound. Transport and auth failures wrap
// ErrRemoteUnavailable.
type Remote interface {
	// Initialize ensures the backing container exists, creating it if absent.
	Initialize(ctx context.Context) error

	// Read returns the object at path. A missing object is reported as
	// (Object{}, false, nil), never as an error.
	Read(ctx context.Context, path string) (Object, bool, error)

	// Create writes a new object and returns its version token.
	Create(ctx context.Context, path string, content []byte, message string) (string, error)

	// Update overwrites the object at path and returns the new version token.
	Update(ctx context.Context, path string, content []byte, version, message string) (string, error)

	// Delete removes the object at path.
	Delete(ctx context.Context, path, version, message string) error

	// List returns the direct children of prefix. A missing prefix yields an empty list.
	List(ctx context.Context, prefix string) ([]Entry, error)
}
