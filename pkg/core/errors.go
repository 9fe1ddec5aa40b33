package core

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	// ErrNotInitialized is returned by remote-backed operations invoked before Initialize succeeded.
	ErrNotInitialized = errors.New("storage is not initialized")
	// ErrRemoteUnavailable wraps transport and authentication failures of the remote store.
	ErrRemoteUnavailable = errors.New("remote store unavailable")
	// ErrConflict signals a stale or absent version token. Callers re-fetch and retry.
	ErrConflict = errors.New("version conflict")
	// ErrNotFound signals a missing remote object.
	ErrNotFound = errors.New("object not found")
	// ErrParseFailure marks a stored object that is not a valid item.
	ErrParseFailure = errors.New("malformed item")
	// ErrAssetDeletion marks a failed best-effort asset removal. It is logged, never returned.
	ErrAssetDeletion = errors.New("asset deletion failed")
	// ErrInvalidItem is returned when an item breaks a model invariant.
	ErrInvalidItem = errors.New("invalid item")
)

// PathError records a failed remote operation and the path that caused it.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

// NewPathError is a shorthand used by adapters.
func NewPathError(op, path string, err error) error {
	return &PathError{Op: op, Path: path, Err: err}
}
