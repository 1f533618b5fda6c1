package index_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tagvault/pkg/adapters/fs"
	"github.com/aretw0/tagvault/pkg/core"
	"github.com/aretw0/tagvault/pkg/index"
)

type fixture struct {
	mgr   *index.Manager
	notes *fs.Collection
	tags  *fs.Collection
	clock *time.Time
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	notes, err := fs.Open(ctx, fs.Config{Path: filepath.Join(dir, "notes.json"), KeyField: "id"})
	require.NoError(t, err)
	tags, err := fs.Open(ctx, fs.Config{Path: filepath.Join(dir, "tags.json"), KeyField: "name"})
	require.NoError(t, err)

	clock := time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)
	f := &fixture{notes: notes, tags: tags, clock: &clock}

	var mu sync.Mutex
	mgr, err := index.New(index.Config{
		Notes: notes,
		Tags:  tags,
		Now: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			*f.clock = f.clock.Add(time.Second)
			return *f.clock
		},
	})
	require.NoError(t, err)
	f.mgr = mgr
	return f
}

func (f *fixture) tagNames(t *testing.T) []string {
	t.Helper()
	tags, err := f.mgr.ListTags(context.Background())
	require.NoError(t, err)
	names := []string{}
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	return names
}

func TestNew_RequiresCollections(t *testing.T) {
	_, err := index.New(index.Config{})
	assert.Error(t, err)
}

func TestCreateNote_PriorityAndDueDate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	note, err := f.mgr.CreateNote(ctx, "!!! 25-01-02 finish #report for @boss", "")
	require.NoError(t, err)

	assert.Equal(t, core.PriorityHigh, note.Task)
	assert.Equal(t, "2025-01-02", note.DueDate)
	assert.Equal(t, "finish #report for @boss", note.Text)
	assert.Equal(t, []string{"#report", "@boss"}, note.Tags)
	assert.Equal(t, "2026-03-14", note.Date)
	assert.NotEmpty(t, note.ID)
	assert.NotZero(t, note.Timestamp)

	assert.ElementsMatch(t, []string{"#report", "@boss"}, f.tagNames(t))

	boss, err := f.mgr.GetTag(ctx, "@boss")
	require.NoError(t, err)
	assert.Equal(t, core.CategoryPersons, boss.Category)
	assert.False(t, boss.Treed)
	assert.Nil(t, boss.Parent)
	assert.Empty(t, boss.Content)

	stored, err := f.mgr.GetNote(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, note, stored)
}

func TestCreateNote_PlainTextLeavesIndexAlone(t *testing.T) {
	f := setup(t)

	note, err := f.mgr.CreateNote(context.Background(), "buy milk", "")
	require.NoError(t, err)

	assert.Equal(t, core.PriorityNone, note.Task)
	assert.Empty(t, note.DueDate)
	assert.Equal(t, []string{}, note.Tags)
	assert.Empty(t, f.tagNames(t))
}

func TestCreateNote_ExplicitDate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	note, err := f.mgr.CreateNote(ctx, "retro", "2026-01-05")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-05", note.Date)

	_, err = f.mgr.CreateNote(ctx, "retro", "05/01/2026")
	assert.ErrorIs(t, err, core.ErrInvalidDate)
}

func TestCreateNote_RejectsInvalidText(t *testing.T) {
	f := setup(t)
	_, err := f.mgr.CreateNote(context.Background(), "\xff", "")
	assert.ErrorIs(t, err, core.ErrParse)
}

func TestDeleteNote_RemovesOrphanTag(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	note, err := f.mgr.CreateNote(ctx, "!! week +errand", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"+errand"}, f.tagNames(t))

	removed, err := f.mgr.DeleteNote(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"+errand"}, removed)
	assert.Empty(t, f.tagNames(t))

	_, err = f.mgr.GetNote(ctx, note.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDeleteNote_KeepsSharedAndAnnotatedTags(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, err := f.mgr.CreateNote(ctx, "#shared #annotated #solo", "")
	require.NoError(t, err)
	_, err = f.mgr.CreateNote(ctx, "also #shared", "")
	require.NoError(t, err)

	_, err = f.mgr.PatchTag(ctx, "#annotated", index.TagPatch{Content: "keep me"})
	require.NoError(t, err)

	removed, err := f.mgr.DeleteNote(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"#solo"}, removed)
	assert.ElementsMatch(t, []string{"#shared", "#annotated"}, f.tagNames(t))
}

func TestDeleteNote_NotFound(t *testing.T) {
	f := setup(t)
	_, err := f.mgr.DeleteNote(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestPatchNoteText_TagDiff(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	note, err := f.mgr.CreateNote(ctx, "#a task", "")
	require.NoError(t, err)

	change, err := f.mgr.PatchNoteText(ctx, note.ID, "#b task", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"#b"}, change.AddedTags)
	assert.Equal(t, []string{"#a"}, change.RemovedTags)
	assert.Equal(t, []string{"#b"}, change.CreatedTags)
	assert.Equal(t, []string{"#a"}, change.DeletedTags)
	assert.Equal(t, "#b task", change.Note.Text)
	assert.Equal(t, []string{"#b"}, change.Note.Tags)
	assert.Equal(t, note.Date, change.Note.Date)
	assert.Equal(t, note.Timestamp, change.Note.Timestamp)

	assert.Equal(t, []string{"#b"}, f.tagNames(t))
}

func TestPatchNoteText_RederivesTask(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	note, err := f.mgr.CreateNote(ctx, "!!! today pay rent", "")
	require.NoError(t, err)
	require.Equal(t, core.PriorityHigh, note.Task)

	change, err := f.mgr.PatchNoteText(ctx, note.ID, "paid rent", "2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, core.PriorityNone, change.Note.Task)
	assert.Empty(t, change.Note.DueDate)
	assert.Equal(t, "2026-03-01", change.Note.Date)
	assert.Empty(t, change.AddedTags)
	assert.Empty(t, change.RemovedTags)
}

func TestPatchNoteText_NotFound(t *testing.T) {
	f := setup(t)
	_, err := f.mgr.PatchNoteText(context.Background(), "missing", "x", "")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestCreateNote_ConcurrentSameTag(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	const writers = 16
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.mgr.CreateNote(ctx, fmt.Sprintf("note %d #fresh", i), "")
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	matches, err := f.tags.FindWhereEquals(ctx, "name", "#fresh")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
	assert.Equal(t, writers, f.notes.Len())
}

func TestNoteTagsFollowText(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	note, err := f.mgr.CreateNote(ctx, "! #x and #x again @y", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"#x", "#x", "@y"}, note.Tags)

	change, err := f.mgr.PatchNoteText(ctx, note.ID, "@y only", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"@y"}, change.Note.Tags)
	assert.Equal(t, []string{"#x"}, change.RemovedTags)
}
