package index_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tagvault/pkg/core"
	"github.com/aretw0/tagvault/pkg/index"
)

func ptr(s string) *string { return &s }

func TestPatchTag_Fields(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.mgr.CreateNote(ctx, "#parent #child", "")
	require.NoError(t, err)

	tag, err := f.mgr.PatchTag(ctx, "#child", index.TagPatch{Treed: true, Parent: ptr("#parent"), Content: "notes"})
	require.NoError(t, err)
	assert.True(t, tag.Treed)
	require.NotNil(t, tag.Parent)
	assert.Equal(t, "#parent", *tag.Parent)
	assert.Equal(t, "notes", tag.Content)

	tag, err = f.mgr.PatchTag(ctx, "#child", index.TagPatch{})
	require.NoError(t, err)
	assert.False(t, tag.Treed)
	assert.Nil(t, tag.Parent)
	assert.Empty(t, tag.Content)
}

func TestPatchTag_ParentValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.mgr.CreateNote(ctx, "#a #b #c", "")
	require.NoError(t, err)

	_, err = f.mgr.PatchTag(ctx, "#missing", index.TagPatch{})
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = f.mgr.PatchTag(ctx, "#a", index.TagPatch{Parent: ptr("#nope")})
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = f.mgr.PatchTag(ctx, "#a", index.TagPatch{Parent: ptr("#a")})
	assert.ErrorIs(t, err, core.ErrHierarchyCycle)

	// #c -> #b -> #a, then try #a -> #c.
	_, err = f.mgr.PatchTag(ctx, "#b", index.TagPatch{Parent: ptr("#a")})
	require.NoError(t, err)
	_, err = f.mgr.PatchTag(ctx, "#c", index.TagPatch{Parent: ptr("#b")})
	require.NoError(t, err)

	_, err = f.mgr.PatchTag(ctx, "#a", index.TagPatch{Parent: ptr("#c")})
	assert.ErrorIs(t, err, core.ErrHierarchyCycle)

	a, err := f.mgr.GetTag(ctx, "#a")
	require.NoError(t, err)
	assert.Nil(t, a.Parent, "rejected patch leaves the tag untouched")
}

func TestPatchTag_RenameCascades(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	n1, err := f.mgr.CreateNote(ctx, "plan #old and #old2", "")
	require.NoError(t, err)
	n2, err := f.mgr.CreateNote(ctx, "!! #old review", "")
	require.NoError(t, err)
	_, err = f.mgr.CreateNote(ctx, "#kid", "")
	require.NoError(t, err)

	_, err = f.mgr.PatchTag(ctx, "#kid", index.TagPatch{Parent: ptr("#old")})
	require.NoError(t, err)

	tag, err := f.mgr.PatchTag(ctx, "#old", index.TagPatch{Treed: true, Content: "c", Rename: "@new"})
	require.NoError(t, err)
	assert.Equal(t, "@new", tag.Name)
	assert.Equal(t, core.CategoryPersons, tag.Category)
	assert.True(t, tag.Treed)
	assert.Equal(t, "c", tag.Content)

	_, err = f.mgr.GetTag(ctx, "#old")
	assert.ErrorIs(t, err, core.ErrNotFound)

	got1, err := f.mgr.GetNote(ctx, n1.ID)
	require.NoError(t, err)
	assert.Equal(t, "plan @new and #old2", got1.Text)
	assert.Equal(t, []string{"@new", "#old2"}, got1.Tags)

	got2, err := f.mgr.GetNote(ctx, n2.ID)
	require.NoError(t, err)
	assert.Equal(t, "@new review", got2.Text)
	assert.Equal(t, core.PriorityMid, got2.Task)

	kid, err := f.mgr.GetTag(ctx, "#kid")
	require.NoError(t, err)
	require.NotNil(t, kid.Parent)
	assert.Equal(t, "@new", *kid.Parent)
}

func TestPatchTag_RenameValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.mgr.CreateNote(ctx, "#one #two", "")
	require.NoError(t, err)

	_, err = f.mgr.PatchTag(ctx, "#one", index.TagPatch{Rename: "#two"})
	assert.ErrorIs(t, err, core.ErrAlreadyExists)

	_, err = f.mgr.PatchTag(ctx, "#one", index.TagPatch{Rename: "plain"})
	assert.ErrorIs(t, err, core.ErrInvalidTagFormat)

	_, err = f.mgr.PatchTag(ctx, "#one", index.TagPatch{Rename: "#has space"})
	assert.ErrorIs(t, err, core.ErrInvalidTagFormat)

	tag, err := f.mgr.PatchTag(ctx, "#one", index.TagPatch{Rename: "#one"})
	require.NoError(t, err)
	assert.Equal(t, "#one", tag.Name)
}

func TestDescendantsAndNotesByTag(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	late, err := f.mgr.CreateNote(ctx, "#root late", "2026-03-10")
	require.NoError(t, err)
	early, err := f.mgr.CreateNote(ctx, "#leaf early", "2026-03-01")
	require.NoError(t, err)
	both, err := f.mgr.CreateNote(ctx, "#root and #mid", "2026-03-10")
	require.NoError(t, err)
	_, err = f.mgr.CreateNote(ctx, "#other", "2026-03-02")
	require.NoError(t, err)

	_, err = f.mgr.PatchTag(ctx, "#mid", index.TagPatch{Parent: ptr("#root")})
	require.NoError(t, err)
	_, err = f.mgr.PatchTag(ctx, "#leaf", index.TagPatch{Parent: ptr("#mid")})
	require.NoError(t, err)

	desc, err := f.mgr.Descendants(ctx, "#root")
	require.NoError(t, err)
	assert.Equal(t, []string{"#mid", "#leaf"}, desc)

	notes, err := f.mgr.NotesByTag(ctx, core.CategoryProjects, "root")
	require.NoError(t, err)
	ids := []string{}
	for _, n := range notes {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{early.ID, late.ID, both.ID}, ids)

	_, err = f.mgr.NotesByTag(ctx, core.Category("Nope"), "x")
	assert.ErrorIs(t, err, core.ErrInvalidTagFormat)
}

func TestDescendants_ToleratesExistingLoop(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.mgr.CreateNote(ctx, "#p #q", "")
	require.NoError(t, err)

	// A loop written to disk by hand, bypassing PatchTag.
	_, err = f.tags.Patch(ctx, "#p", core.Record{"parent": "#q"})
	require.NoError(t, err)
	_, err = f.tags.Patch(ctx, "#q", core.Record{"parent": "#p"})
	require.NoError(t, err)

	desc, err := f.mgr.Descendants(ctx, "#p")
	require.NoError(t, err)
	assert.Equal(t, []string{"#q"}, desc)
}

func TestNotesByDateAndJournal(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a, err := f.mgr.CreateNote(ctx, "one", "2026-02-02")
	require.NoError(t, err)
	_, err = f.mgr.CreateNote(ctx, "two", "2026-02-03")
	require.NoError(t, err)
	b, err := f.mgr.CreateNote(ctx, "three", "2026-02-02")
	require.NoError(t, err)

	notes, err := f.mgr.NotesByDate(ctx, "2026-02-02")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, a.ID, notes[0].ID)
	assert.Equal(t, b.ID, notes[1].ID)

	journal, err := f.mgr.NotesByTag(ctx, core.CategoryJournal, "2026-02-02")
	require.NoError(t, err)
	assert.Equal(t, notes, journal)

	_, err = f.mgr.NotesByTag(ctx, core.CategoryJournal, "yesterday")
	assert.ErrorIs(t, err, core.ErrInvalidDate)
}

func TestTasks(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.mgr.CreateNote(ctx, "! low", "")
	require.NoError(t, err)
	_, err = f.mgr.CreateNote(ctx, "plain", "")
	require.NoError(t, err)
	_, err = f.mgr.CreateNote(ctx, "!!! high", "")
	require.NoError(t, err)

	tasks, err := f.mgr.Tasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, core.PriorityHigh, tasks[0].Task)
	assert.Equal(t, core.PriorityLow, tasks[1].Task)
}

func TestCountByDay(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for _, date := range []string{"2024-02-01", "2024-02-29", "2024-02-29", "2024-03-01"} {
		_, err := f.mgr.CreateNote(ctx, "x", date)
		require.NoError(t, err)
	}

	counts, err := f.mgr.CountByDay(ctx, 2024, 2)
	require.NoError(t, err)
	assert.Len(t, counts, 29)
	assert.Equal(t, 1, counts["2024-02-01"])
	assert.Equal(t, 2, counts["2024-02-29"])
	assert.Equal(t, 0, counts["2024-02-10"])

	_, err = f.mgr.CountByDay(ctx, 2024, 13)
	assert.ErrorIs(t, err, core.ErrInvalidDate)
}

func TestMatchTags(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.mgr.CreateNote(ctx, "#proj-b #proj-a @ann #misc", "")
	require.NoError(t, err)

	tags, err := f.mgr.MatchTags(ctx, "#proj-*")
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "#proj-a", tags[0].Name)
	assert.Equal(t, "#proj-b", tags[1].Name)

	_, err = f.mgr.MatchTags(ctx, "[")
	assert.Error(t, err)
}

func TestReconcile(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	note, err := f.mgr.CreateNote(ctx, "#kept", "")
	require.NoError(t, err)
	_, err = f.mgr.CreateNote(ctx, "#gone", "")
	require.NoError(t, err)

	// Simulate drift: a hand edit of the note text, a stray tag, and a
	// deleted note whose tags were never collected.
	_, err = f.notes.Patch(ctx, note.ID, core.Record{"text": "#kept #added"})
	require.NoError(t, err)
	_, err = f.tags.Add(ctx, core.Record{"name": "#stray", "category": "Projects", "treed": false, "parent": nil, "content": ""})
	require.NoError(t, err)
	_, err = f.tags.Add(ctx, core.Record{"name": "#memo", "category": "Projects", "treed": false, "parent": nil, "content": "kept"})
	require.NoError(t, err)
	gone, err := f.notes.FindWhereContains(ctx, "tags", "#gone")
	require.NoError(t, err)
	require.Len(t, gone, 1)
	_, err = f.notes.Delete(ctx, gone[0]["id"].(string))
	require.NoError(t, err)

	report, err := f.mgr.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{note.ID}, report.FixedNotes)
	assert.Equal(t, []string{"#added"}, report.CreatedTags)
	assert.ElementsMatch(t, []string{"#gone", "#stray"}, report.DeletedTags)
	assert.ElementsMatch(t, []string{"#kept", "#added", "#memo"}, f.tagNames(t))

	again, err := f.mgr.Reconcile(ctx)
	require.NoError(t, err)
	assert.True(t, again.Empty())
}

func TestState(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.mgr.CreateNote(ctx, "#a #b", "")
	require.NoError(t, err)
	_, err = f.mgr.PatchTag(ctx, "#a", index.TagPatch{Treed: true})
	require.NoError(t, err)

	st, ok := f.mgr.State().(index.ManagerState)
	require.True(t, ok)
	assert.Equal(t, 1, st.NoteCount)
	assert.Equal(t, 2, st.TagCount)
	assert.Equal(t, 1, st.TreedTags)
	assert.Equal(t, 0, st.OrphanTags)
	assert.Equal(t, "index", f.mgr.ComponentType())
}
