package tagvault_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aretw0/tagvault"
	"github.com/aretw0/tagvault/pkg/core"
)

// Example_basic opens a vault, adds an annotated note and lists its tags.
func Example_basic() {
	tmpDir, err := os.MkdirTemp("", "tagvault-example-*")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	vault, err := tagvault.Open(tmpDir,
		tagvault.WithAutoInit(true),
		tagvault.WithVersioning(false),
		tagvault.WithClock(func() time.Time { return now }),
	)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	note, err := vault.Index.CreateNote(ctx, "!!! tomorrow finish #report for @boss", "")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(note.Task, note.DueDate, note.Text)

	tags, err := vault.Index.ListTags(ctx)
	if err != nil {
		log.Fatal(err)
	}
	for _, t := range tags {
		fmt.Println(t.Name, t.Category)
	}
	// Output:
	// high 2026-03-15 finish #report for @boss
	// #report Projects
	// @boss Persons
}

// Example_hierarchy nests tags and queries a subtree.
func Example_hierarchy() {
	tmpDir, err := os.MkdirTemp("", "tagvault-example-*")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	vault, err := tagvault.Open(tmpDir, tagvault.WithAutoInit(true), tagvault.WithVersioning(false))
	if err != nil {
		log.Fatal(err)
	}
	ctx := context.Background()

	for _, text := range []string{"kickoff #work", "draft #work-docs", "groceries +home"} {
		if _, err := vault.Index.CreateNote(ctx, text, "2026-01-01"); err != nil {
			log.Fatal(err)
		}
	}
	parent := "#work"
	if _, err := vault.Index.PatchTag(ctx, "#work-docs", tagvault.TagPatch{Treed: true, Parent: &parent}); err != nil {
		log.Fatal(err)
	}

	notes, err := vault.Index.NotesByTag(ctx, core.CategoryProjects, "work")
	if err != nil {
		log.Fatal(err)
	}
	for _, n := range notes {
		fmt.Println(n.Text)
	}
	// Output:
	// kickoff #work
	// draft #work-docs
}
