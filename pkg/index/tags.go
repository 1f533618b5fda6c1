package index

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/tagvault/pkg/annotate"
	"github.com/aretw0/tagvault/pkg/core"
)

// PatchTag updates the hierarchy fields and content of a tag and, when
// patch.Rename is set, renames it throughout the vault.
//
// The parent must be an existing tag other than the tag itself, and must not
// be one of its descendants. A rename rekeys the tag, rewrites the text of
// every note referencing it and repoints its children. A failure part way
// through a rename is returned as is; the steps already applied are kept and
// a retry converges.
func (m *Manager) PatchTag(ctx context.Context, name string, patch TagPatch) (core.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.tags.Get(ctx, name); err != nil {
		return core.Tag{}, err
	}

	if patch.Parent != nil {
		if err := m.checkParent(ctx, name, *patch.Parent); err != nil {
			return core.Tag{}, err
		}
	}

	rename := patch.Rename != "" && patch.Rename != name
	if rename {
		if err := annotate.ValidateToken(patch.Rename); err != nil {
			return core.Tag{}, err
		}
		if _, err := m.tags.Get(ctx, patch.Rename); err == nil {
			return core.Tag{}, fmt.Errorf("tag %q: %w", patch.Rename, core.ErrAlreadyExists)
		} else if !errors.Is(err, core.ErrNotFound) {
			return core.Tag{}, err
		}
	}

	ctx = withReason(ctx, "edit tag %s", name)
	tag, err := m.tags.Patch(ctx, name, core.Record{
		"treed":   patch.Treed,
		"parent":  patch.Parent,
		"content": patch.Content,
	})
	if err != nil {
		return core.Tag{}, fmt.Errorf("failed to update tag: %w", err)
	}
	m.logger.Info("tag edited", "name", name, "treed", tag.Treed, "parent", tag.Parent)

	if !rename {
		return tag, nil
	}
	return m.renameTag(ctx, name, patch.Rename)
}

// checkParent rejects a parent that is missing, is the tag itself, or sits
// below the tag in the forest.
func (m *Manager) checkParent(ctx context.Context, name, parent string) error {
	if parent == name {
		return fmt.Errorf("tag %q cannot be its own parent: %w", name, core.ErrHierarchyCycle)
	}

	visited := map[string]bool{}
	for cur := parent; ; {
		tag, err := m.tags.Get(ctx, cur)
		if err != nil {
			if cur == parent {
				return fmt.Errorf("parent: %w", err)
			}
			// A dangling pointer ends the walk.
			if errors.Is(err, core.ErrNotFound) {
				return nil
			}
			return err
		}
		visited[cur] = true
		if tag.Parent == nil {
			return nil
		}
		cur = *tag.Parent
		if cur == name {
			return fmt.Errorf("tag %q is an ancestor of %q: %w", name, parent, core.ErrHierarchyCycle)
		}
		if visited[cur] {
			// A pre-existing loop that does not pass through name.
			return nil
		}
	}
}

func (m *Manager) renameTag(ctx context.Context, oldName, newName string) (core.Tag, error) {
	category, err := annotate.Categorize(newName)
	if err != nil {
		return core.Tag{}, err
	}
	ctx = withReason(ctx, "rename tag %s to %s", oldName, newName)

	if _, err := m.tags.Rekey(ctx, oldName, newName); err != nil {
		return core.Tag{}, fmt.Errorf("failed to rename tag: %w", err)
	}
	tag, err := m.tags.Patch(ctx, newName, core.Record{"category": category})
	if err != nil {
		return core.Tag{}, fmt.Errorf("failed to update category: %w", err)
	}

	notes, err := m.notes.FindWhereContains(ctx, "tags", oldName)
	if err != nil {
		return core.Tag{}, err
	}
	for _, note := range notes {
		text := annotate.ReplaceTag(note.Text, oldName, newName)
		if _, err := m.notes.Patch(ctx, note.ID, core.Record{
			"text": text,
			"tags": annotate.ExtractTags(text),
		}); err != nil {
			return core.Tag{}, fmt.Errorf("failed to rewrite note %s: %w", note.ID, err)
		}
	}

	children, err := m.tags.FindWhereEquals(ctx, "parent", oldName)
	if err != nil {
		return core.Tag{}, err
	}
	for _, child := range children {
		if _, err := m.tags.Patch(ctx, child.Name, core.Record{"parent": newName}); err != nil {
			return core.Tag{}, fmt.Errorf("failed to repoint %s: %w", child.Name, err)
		}
	}

	m.logger.Info("tag renamed", "from", oldName, "to", newName, "notes", len(notes), "children", len(children))
	return tag, nil
}

// ListTags returns every tag in index order.
func (m *Manager) ListTags(ctx context.Context) ([]core.Tag, error) {
	return m.tags.All(ctx)
}

// GetTag retrieves a tag by name.
func (m *Manager) GetTag(ctx context.Context, name string) (core.Tag, error) {
	return m.tags.Get(ctx, name)
}

// MatchTags returns the tags whose name matches a doublestar glob pattern,
// sorted by name.
func (m *Manager) MatchTags(ctx context.Context, pattern string) ([]core.Tag, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, doublestar.ErrBadPattern)
	}
	all, err := m.tags.All(ctx)
	if err != nil {
		return nil, err
	}
	matched := []core.Tag{}
	for _, tag := range all {
		ok, err := doublestar.Match(pattern, tag.Name)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, tag)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })
	return matched, nil
}

// Descendants returns the names of every tag below name in the forest,
// breadth first. The tag itself is not included.
func (m *Manager) Descendants(ctx context.Context, name string) ([]string, error) {
	visited := map[string]bool{name: true}
	queue := []string{name}
	out := []string{}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		children, err := m.tags.FindWhereEquals(ctx, "parent", cur)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			if visited[child.Name] {
				continue
			}
			visited[child.Name] = true
			out = append(out, child.Name)
			queue = append(queue, child.Name)
		}
	}
	return out, nil
}
