package index

import (
	"context"
	"fmt"
	"reflect"

	"github.com/aretw0/tagvault/pkg/annotate"
	"github.com/aretw0/tagvault/pkg/core"
)

// ReconcileReport lists the repairs made by Reconcile.
type ReconcileReport struct {
	FixedNotes  []string `json:"fixed_notes"`
	CreatedTags []string `json:"created_tags"`
	DeletedTags []string `json:"deleted_tags"`
}

// Empty reports whether nothing needed repair.
func (r ReconcileReport) Empty() bool {
	return len(r.FixedNotes)+len(r.CreatedTags)+len(r.DeletedTags) == 0
}

// Reconcile brings the index back in line with the notes: note tags are
// re-derived from their text, missing tags are created and unreferenced,
// unannotated tags are removed. It converges after an interrupted mutation
// or an edit made to the data files by hand.
func (m *Manager) Reconcile(ctx context.Context) (ReconcileReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx = withReason(ctx, "reconcile index")
	report := ReconcileReport{FixedNotes: []string{}}

	notes, err := m.notes.All(ctx)
	if err != nil {
		return report, err
	}

	referenced := []string{}
	for _, n := range notes {
		tags := annotate.ExtractTags(n.Text)
		if !reflect.DeepEqual(tags, n.Tags) && !(len(tags) == 0 && len(n.Tags) == 0) {
			if _, err := m.notes.Patch(ctx, n.ID, core.Record{"tags": tags}); err != nil {
				return report, fmt.Errorf("failed to repair note %s: %w", n.ID, err)
			}
			report.FixedNotes = append(report.FixedNotes, n.ID)
		}
		referenced = append(referenced, tags...)
	}

	if report.CreatedTags, err = m.ensureTags(ctx, referenced); err != nil {
		return report, err
	}

	all, err := m.tags.All(ctx)
	if err != nil {
		return report, err
	}
	candidates := make([]string, 0, len(all))
	for _, t := range all {
		candidates = append(candidates, t.Name)
	}
	if report.DeletedTags, err = m.collectOrphans(ctx, candidates); err != nil {
		return report, err
	}

	if !report.Empty() {
		m.logger.Info("index reconciled",
			"fixed_notes", len(report.FixedNotes),
			"created_tags", len(report.CreatedTags),
			"deleted_tags", len(report.DeletedTags))
	}
	return report, nil
}
