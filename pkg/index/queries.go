package index

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aretw0/tagvault/pkg/annotate"
	"github.com/aretw0/tagvault/pkg/core"
)

// NotesByTag returns the notes tagged with the tag formed by the sigil of
// category and anon, or with any of its descendants. Each note appears once;
// the result is ordered by date, then creation time.
//
// CategoryJournal addresses notes by date instead: anon must be a
// YYYY-MM-DD date.
func (m *Manager) NotesByTag(ctx context.Context, category core.Category, anon string) ([]core.Note, error) {
	if category == core.CategoryJournal {
		return m.NotesByDate(ctx, anon)
	}
	sigil, ok := annotate.Sigil(category)
	if !ok {
		return nil, fmt.Errorf("%w: unknown category %q", core.ErrInvalidTagFormat, category)
	}
	name := sigil + anon

	descendants, err := m.Descendants(ctx, name)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	notes := []core.Note{}
	for _, tag := range append([]string{name}, descendants...) {
		found, err := m.notes.FindWhereContains(ctx, "tags", tag)
		if err != nil {
			return nil, err
		}
		for _, n := range found {
			if !seen[n.ID] {
				seen[n.ID] = true
				notes = append(notes, n)
			}
		}
	}
	sortNotes(notes)
	return notes, nil
}

// NotesByDate returns the notes filed under date, ordered by creation time.
func (m *Manager) NotesByDate(ctx context.Context, date string) ([]core.Note, error) {
	if err := validDate(date); err != nil {
		return nil, err
	}
	notes, err := m.notes.FindWhereEquals(ctx, "date", date)
	if err != nil {
		return nil, err
	}
	sortNotes(notes)
	return notes, nil
}

// Tasks returns the notes that carry a priority, most urgent first.
func (m *Manager) Tasks(ctx context.Context) ([]core.Note, error) {
	notes, err := m.notes.FindWhereMember(ctx, "task", []any{
		core.PriorityLow, core.PriorityMid, core.PriorityHigh,
	})
	if err != nil {
		return nil, err
	}
	rank := map[core.Priority]int{core.PriorityHigh: 0, core.PriorityMid: 1, core.PriorityLow: 2}
	sort.SliceStable(notes, func(i, j int) bool {
		return rank[notes[i].Task] < rank[notes[j].Task]
	})
	return notes, nil
}

// CountByDay returns the number of notes filed under each day of a month.
// Every day of the month is present, with zero when no note was filed.
func (m *Manager) CountByDay(ctx context.Context, year, month int) (map[string]int, error) {
	if month < 1 || month > 12 || year < 1 || year > 9999 {
		return nil, fmt.Errorf("%w: %04d-%02d", core.ErrInvalidDate, year, month)
	}
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	counts := map[string]int{}
	for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
		counts[d.Format(core.DateLayout)] = 0
	}

	notes, err := m.notes.All(ctx)
	if err != nil {
		return nil, err
	}
	for _, n := range notes {
		if _, ok := counts[n.Date]; ok {
			counts[n.Date]++
		}
	}
	return counts, nil
}

func sortNotes(notes []core.Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		if notes[i].Date != notes[j].Date {
			return notes[i].Date < notes[j].Date
		}
		return notes[i].Timestamp < notes[j].Timestamp
	})
}
