package github

import (
	"github.com/aretw0/introspection"
)

// StoreState exposes internal state for observability.
type StoreState struct {
	APIURL        string `json:"api_url"`
	Owner         string `json:"owner"`
	Repo          string `json:"repo"`
	Branch        string `json:"branch,omitempty"`
	DefaultBranch string `json:"default_branch,omitempty"`
	Authenticated bool   `json:"authenticated"`
	RetryMax      int    `json:"retry_max"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StoreState{
		APIURL:        s.config.APIURL,
		Owner:         s.config.Owner,
		Repo:          s.config.Repo,
		Branch:        s.config.Branch,
		DefaultBranch: s.defaultBranch,
		Authenticated: s.config.Token != "",
		RetryMax:      s.config.RetryMax,
	}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "remote:github"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)
