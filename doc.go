// Package tagvault is the composition root of the tagvault note store.
//
// A vault is a directory holding three JSON array files: notes.json,
// tags.json and users.json. Notes carry inline annotations that are parsed
// on every write:
//
//	!!! 25-01-02 finish #report for @boss
//
// gives a high priority task due 2025-01-02, tagged #report and @boss. The
// tag index is kept consistent with the notes referencing each tag: tags are
// created with their first note and removed with their last one, unless they
// carry content. Tags form a forest through their parent field; renaming a
// tag rewrites every note and child that refers to it.
//
// Every mutation is flushed with an atomic rename before it returns. When
// versioning is enabled, each flush is also committed to a git repository
// rooted at the vault directory.
//
// Usage:
//
//	v, err := tagvault.Open("./notes",
//		tagvault.WithAutoInit(true),
//		tagvault.WithLogger(logger),
//	)
//
//	note, err := v.Index.CreateNote(ctx, "!! tomorrow call @ana", "")
package tagvault
