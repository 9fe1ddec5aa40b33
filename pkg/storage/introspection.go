package storage

import (
	"github.com/aretw0/introspection"
)

// CoordinatorState exposes internal state for observability.
type CoordinatorState struct {
	Initialized bool   `json:"initialized"`
	Indexed     int    `json:"indexed"`
	Remote      string `json:"remote,omitempty"`
	Cache       any    `json:"cache"`
}

// State implements introspection.Introspectable.
func (c *Coordinator) State() any {
	c.mu.RLock()
	st := CoordinatorState{
		Initialized: c.initialized,
		Indexed:     len(c.index),
	}
	c.mu.RUnlock()

	if comp, ok := c.remote.(introspection.Component); ok {
		st.Remote = comp.ComponentType()
	}
	st.Cache = c.cache.State()
	return st
}

// ComponentType implements introspection.Component.
func (c *Coordinator) ComponentType() string {
	return "coordinator"
}

var _ introspection.Introspectable = (*Coordinator)(nil)
var _ introspection.Component = (*Coordinator)(nil)
