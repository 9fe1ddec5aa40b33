package memstore

import (
	"github.com/aretw0/introspection"
)

// StoreState exposes internal state for observability.
type StoreState struct {
	Initialized bool `json:"initialized"`
	Objects     int  `json:"objects"`
	Commits     int  `json:"commits"`
	Revision    int  `json:"revision"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StoreState{
		Initialized: s.initialized,
		Objects:     len(s.objects),
		Commits:     len(s.commits),
		Revision:    s.revision,
	}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "remote:memory"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)
