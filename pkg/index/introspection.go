package index

import (
	"context"

	"github.com/aretw0/introspection"
)

// ManagerState exposes the index size for observability.
type ManagerState struct {
	Notes       string `json:"notes"`
	Tags        string `json:"tags"`
	NoteCount   int    `json:"note_count"`
	TagCount    int    `json:"tag_count"`
	TreedTags   int    `json:"treed_tags"`
	OrphanTags  int    `json:"orphan_tags"`
	StateErrors string `json:"state_errors,omitempty"`
}

// State implements introspection.Introspectable.
func (m *Manager) State() any {
	ctx := context.Background()
	st := ManagerState{
		Notes: m.notes.Unwrap().Name(),
		Tags:  m.tags.Unwrap().Name(),
	}

	notes, err := m.notes.All(ctx)
	if err != nil {
		st.StateErrors = err.Error()
		return st
	}
	tags, err := m.tags.All(ctx)
	if err != nil {
		st.StateErrors = err.Error()
		return st
	}

	used := map[string]bool{}
	for _, n := range notes {
		for _, t := range n.Tags {
			used[t] = true
		}
	}
	st.NoteCount = len(notes)
	st.TagCount = len(tags)
	for _, t := range tags {
		if t.Treed {
			st.TreedTags++
		}
		if !used[t.Name] {
			st.OrphanTags++
		}
	}
	return st
}

// ComponentType implements introspection.Component.
func (m *Manager) ComponentType() string {
	return "index"
}

var _ introspection.Introspectable = (*Manager)(nil)
var _ introspection.Component = (*Manager)(nil)
