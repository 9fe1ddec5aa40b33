package cache

import (
	"time"

	"github.com/aretw0/introspection"
)

// CacheState exposes internal state for observability.
type CacheState struct {
	Items      int        `json:"items"`
	LastSync   *time.Time `json:"last_sync,omitempty"`
	Stale      bool       `json:"stale"`
	Freshness  string     `json:"freshness"`
	Persistent bool       `json:"persistent"`
}

// State implements introspection.Introspectable.
func (c *Cache) State() any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	st := CacheState{
		Items:      len(c.items),
		Stale:      c.stale(),
		Freshness:  c.freshness.String(),
		Persistent: c.store != nil,
	}
	if !c.lastSync.IsZero() {
		ls := c.lastSync
		st.LastSync = &ls
	}
	return st
}

// ComponentType implements introspection.Component.
func (c *Cache) ComponentType() string {
	return "cache"
}

var _ introspection.Introspectable = (*Cache)(nil)
var _ introspection.Component = (*Cache)(nil)
