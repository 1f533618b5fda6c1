// Package index keeps the tag index consistent with the notes that
// reference each tag.
//
// Every mutation goes through Manager, which owns the notes and tags
// collections. Mutations are serialized by a single manager-wide lock, so two
// writers never interleave their note and tag steps. Readers take only the
// per-collection locks and may briefly see a note whose tags are not yet
// reconciled.
package index

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/tagvault/pkg/annotate"
	"github.com/aretw0/tagvault/pkg/core"
	"github.com/aretw0/tagvault/pkg/typed"
)

// Config wires a Manager to its collections.
type Config struct {
	Notes  core.Collection // keyed by "id"
	Tags   core.Collection // keyed by "name"
	Logger *slog.Logger
	Now    func() time.Time // defaults to time.Now
	NewID  func() string    // defaults to uuid.NewString
}

// Manager implements note/tag reconciliation.
type Manager struct {
	notes  *typed.Collection[core.Note]
	tags   *typed.Collection[core.Tag]
	logger *slog.Logger
	now    func() time.Time
	newID  func() string

	mu sync.Mutex
}

// NoteChange is the outcome of editing a note's text.
type NoteChange struct {
	Note core.Note `json:"note"`

	// AddedTags and RemovedTags are the tag tokens gained and lost by the
	// edit, in order of appearance.
	AddedTags   []string `json:"added_tags"`
	RemovedTags []string `json:"removed_tags"`

	// CreatedTags and DeletedTags are the index records the edit created
	// and garbage-collected.
	CreatedTags []string `json:"created_tags"`
	DeletedTags []string `json:"deleted_tags"`
}

// TagPatch carries the editable fields of a tag. Treed, Parent and Content
// always replace the stored values; Rename is applied when non-empty and
// different from the current name.
type TagPatch struct {
	Treed   bool    `json:"treed"`
	Parent  *string `json:"parent"`
	Content string  `json:"content"`
	Rename  string  `json:"rename,omitempty"`
}

// New creates a Manager.
func New(cfg Config) (*Manager, error) {
	if cfg.Notes == nil || cfg.Tags == nil {
		return nil, errors.New("index requires notes and tags collections")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	return &Manager{
		notes:  typed.NewCollection[core.Note](cfg.Notes),
		tags:   typed.NewCollection[core.Tag](cfg.Tags),
		logger: cfg.Logger,
		now:    cfg.Now,
		newID:  cfg.NewID,
	}, nil
}

// withReason records a default change reason unless the caller set one.
func withReason(ctx context.Context, format string, args ...any) context.Context {
	if val, ok := ctx.Value(core.ChangeReasonKey).(string); ok && val != "" {
		return ctx
	}
	return context.WithValue(ctx, core.ChangeReasonKey, fmt.Sprintf(format, args...))
}

func validDate(date string) error {
	if _, err := time.Parse(core.DateLayout, date); err != nil {
		return fmt.Errorf("%w: %q", core.ErrInvalidDate, date)
	}
	return nil
}

// CreateNote parses text, stores the resulting note and creates the tags it
// references. An empty date means today.
//
// Tag creation happens after the note is stored. If it fails, the note is
// kept and the error returned; Reconcile repairs the index later.
func (m *Manager) CreateNote(ctx context.Context, text, date string) (core.Note, error) {
	now := m.now()
	if date == "" {
		date = now.Format(core.DateLayout)
	} else if err := validDate(date); err != nil {
		return core.Note{}, err
	}

	ann, err := annotate.ParseAt(text, now)
	if err != nil {
		return core.Note{}, err
	}

	note := core.Note{
		ID:        m.newID(),
		Timestamp: now.UnixMilli(),
		Date:      date,
		Text:      ann.Text,
		Tags:      ann.Tags,
		Task:      ann.Priority,
		DueDate:   ann.DueDate,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ctx = withReason(ctx, "create note %s", note.ID)
	stored, err := m.notes.Add(ctx, note)
	if err != nil {
		return core.Note{}, fmt.Errorf("failed to store note: %w", err)
	}
	m.logger.Info("note created", "id", stored.ID, "tags", stored.Tags, "task", stored.Task)

	if _, err := m.ensureTags(ctx, stored.Tags); err != nil {
		return stored, err
	}
	return stored, nil
}

// PatchNoteText replaces a note's text, re-deriving its priority, due date
// and tags, and reconciles the tags that were gained or lost. An empty date
// keeps the note's current date.
func (m *Manager) PatchNoteText(ctx context.Context, id, text, date string) (NoteChange, error) {
	if date != "" {
		if err := validDate(date); err != nil {
			return NoteChange{}, err
		}
	}
	ann, err := annotate.ParseAt(text, m.now())
	if err != nil {
		return NoteChange{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.notes.Get(ctx, id)
	if err != nil {
		return NoteChange{}, err
	}
	if date == "" {
		date = current.Date
	}

	ctx = withReason(ctx, "edit note %s", id)
	updated, err := m.notes.Patch(ctx, id, core.Record{
		"text":    ann.Text,
		"tags":    ann.Tags,
		"task":    ann.Priority,
		"duedate": ann.DueDate,
		"date":    date,
	})
	if err != nil {
		return NoteChange{}, fmt.Errorf("failed to update note: %w", err)
	}

	change := NoteChange{
		Note:        updated,
		AddedTags:   difference(updated.Tags, current.Tags),
		RemovedTags: difference(current.Tags, updated.Tags),
	}
	m.logger.Info("note edited", "id", id, "added", change.AddedTags, "removed", change.RemovedTags)

	if change.CreatedTags, err = m.ensureTags(ctx, change.AddedTags); err != nil {
		return change, err
	}
	if change.DeletedTags, err = m.collectOrphans(ctx, change.RemovedTags); err != nil {
		return change, err
	}
	return change, nil
}

// DeleteNote removes a note and garbage-collects the tags it was the last
// reference to. It returns the names of the removed tags.
func (m *Manager) DeleteNote(ctx context.Context, id string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx = withReason(ctx, "delete note %s", id)
	removed, err := m.notes.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	m.logger.Info("note deleted", "id", id)

	return m.collectOrphans(ctx, unique(removed.Tags))
}

// GetNote retrieves a note by id.
func (m *Manager) GetNote(ctx context.Context, id string) (core.Note, error) {
	return m.notes.Get(ctx, id)
}

// ensureTags creates the index records missing for names. A record created
// concurrently by another writer counts as present.
func (m *Manager) ensureTags(ctx context.Context, names []string) ([]string, error) {
	created := []string{}
	for _, name := range unique(names) {
		_, err := m.tags.Get(ctx, name)
		if err == nil {
			continue
		}
		if !errors.Is(err, core.ErrNotFound) {
			return created, err
		}

		category, err := annotate.Categorize(name)
		if err != nil {
			return created, err
		}
		_, err = m.tags.Add(ctx, core.Tag{Name: name, Category: category})
		if errors.Is(err, core.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("failed to create tag %s: %w", name, err)
		}
		m.logger.Debug("tag created", "name", name, "category", category)
		created = append(created, name)
	}
	return created, nil
}

// collectOrphans deletes each named tag that no note references any more,
// unless it carries content.
func (m *Manager) collectOrphans(ctx context.Context, names []string) ([]string, error) {
	deleted := []string{}
	for _, name := range names {
		refs, err := m.notes.FindWhereContains(ctx, "tags", name)
		if err != nil {
			return deleted, err
		}
		if len(refs) > 0 {
			continue
		}

		tag, err := m.tags.Get(ctx, name)
		if errors.Is(err, core.ErrNotFound) {
			continue
		}
		if err != nil {
			return deleted, err
		}
		if tag.Annotated() {
			m.logger.Debug("keeping annotated orphan tag", "name", name)
			continue
		}

		if _, err := m.tags.Delete(ctx, name); err != nil && !errors.Is(err, core.ErrNotFound) {
			return deleted, fmt.Errorf("failed to remove tag %s: %w", name, err)
		}
		m.logger.Debug("tag removed", "name", name)
		deleted = append(deleted, name)
	}
	return deleted, nil
}

// difference returns the members of a missing from b, first occurrence order.
func difference(a, b []string) []string {
	in := make(map[string]bool, len(b))
	for _, s := range b {
		in[s] = true
	}
	out := []string{}
	for _, s := range unique(a) {
		if !in[s] {
			out = append(out, s)
		}
	}
	return out
}

func unique(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, s := range items {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
