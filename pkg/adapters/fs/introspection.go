package fs

import (
	"time"

	"github.com/aretw0/introspection"
)

// CollectionState exposes internal state for observability.
type CollectionState struct {
	Name          string     `json:"name"`
	Path          string     `json:"path"`
	KeyField      string     `json:"key_field"`
	Records       int        `json:"records"`
	PersistedSize int        `json:"persisted_size"`
	Versioned     bool       `json:"versioned"`
	WatcherActive bool       `json:"watcher_active"`
	LastReload    *time.Time `json:"last_reload,omitempty"`
}

// State implements introspection.Introspectable.
func (c *Collection) State() any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return CollectionState{
		Name:          c.config.Name,
		Path:          c.config.Path,
		KeyField:      c.config.KeyField,
		Records:       len(c.records),
		PersistedSize: len(c.persisted),
		Versioned:     c.config.Git != nil,
		WatcherActive: c.watcherActive,
		LastReload:    c.lastReload,
	}
}

// ComponentType implements introspection.Component.
func (c *Collection) ComponentType() string {
	return "collection"
}

var _ introspection.Introspectable = (*Collection)(nil)
var _ introspection.Component = (*Collection)(nil)
