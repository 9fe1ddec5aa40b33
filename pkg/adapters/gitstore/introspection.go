package gitstore

import (
	"os"

	"github.com/aretw0/introspection"
)

// StoreState exposes internal state for observability.
type StoreState struct {
	Path     string `json:"path"`
	IsRepo   bool   `json:"is_repo"`
	Head     string `json:"head,omitempty"`
	LockName string `json:"lock_name"`
	AutoInit bool   `json:"auto_init"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	st := StoreState{
		Path:     s.Path,
		LockName: s.git.LockName(),
		AutoInit: s.config.AutoInit,
	}
	if _, err := os.Stat(s.Path); err == nil && s.git.IsRepo() {
		st.IsRepo = true
		if head, err := s.git.Head(); err == nil {
			st.Head = head
		}
	}
	return st
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "remote:git"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)
