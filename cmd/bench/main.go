// Command bench measures the cost of note mutations, which flush the whole
// collection on every call, as a vault grows.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/aretw0/tagvault/internal/platform"
)

func main() {
	count := flag.Int("count", 1000, "Number of notes to generate")
	tags := flag.Int("tags", 50, "Number of distinct tags to spread the notes over")
	workers := flag.Int("workers", 4, "Concurrent writers")
	versioned := flag.Bool("git", false, "Commit every flush to git")
	keep := flag.Bool("keep", false, "Keep the benchmark vault after running")
	flag.Parse()
	if *tags < 1 || *workers < 1 {
		fmt.Fprintln(os.Stderr, "tags and workers must be positive")
		os.Exit(2)
	}

	benchDir, err := os.MkdirTemp("", "tagvault_bench_")
	if err != nil {
		panic(err)
	}
	defer func() {
		if !*keep {
			os.RemoveAll(benchDir)
		} else {
			fmt.Printf("Keeping bench dir: %s\n", benchDir)
		}
	}()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	open := func() *platform.Vault {
		v, err := platform.Open(benchDir,
			platform.WithLogger(logger),
			platform.WithAutoInit(true),
			platform.WithVersioning(*versioned),
		)
		if err != nil {
			panic(err)
		}
		return v
	}
	v := open()
	ctx := context.Background()

	fmt.Printf("Creating %d notes with %d writers in %s...\n", *count, *workers, benchDir)
	ids := make([]string, *count)
	startCreate := time.Now()
	var wg sync.WaitGroup
	jobs := make(chan int)
	for w := 0; w < *workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				text := fmt.Sprintf("!! note %d for #topic-%d and @person-%d", i, i%*tags, (i*7)%*tags)
				note, err := v.Index.CreateNote(ctx, text, "")
				if err != nil {
					panic(err)
				}
				ids[i] = note.ID
			}
		}()
	}
	for i := 0; i < *count; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	create := time.Since(startCreate)

	startEdit := time.Now()
	for i, id := range ids {
		if i%10 != 0 {
			continue
		}
		if _, err := v.Index.PatchNoteText(ctx, id, fmt.Sprintf("edited %d +bench", i), ""); err != nil {
			panic(err)
		}
	}
	edit := time.Since(startEdit)

	startQuery := time.Now()
	tasks, err := v.Index.Tasks(ctx)
	if err != nil {
		panic(err)
	}
	query := time.Since(startQuery)

	// Reopen to measure load plus the startup reconcile pass.
	startOpen := time.Now()
	reopened := open()
	load := time.Since(startOpen)

	startDelete := time.Now()
	for _, id := range ids[:len(ids)/2] {
		if _, err := reopened.Index.DeleteNote(ctx, id); err != nil {
			panic(err)
		}
	}
	del := time.Since(startDelete)

	perOp := func(d time.Duration, n int) time.Duration {
		if n == 0 {
			return 0
		}
		return d / time.Duration(n)
	}

	fmt.Printf("--------------------------------------------------\n")
	fmt.Printf("Benchmark Result (%d notes, git=%v):\n", *count, *versioned)
	fmt.Printf("  Create: %v (%v/op)\n", create, perOp(create, *count))
	fmt.Printf("  Edit:   %v (%v/op)\n", edit, perOp(edit, (*count+9)/10))
	fmt.Printf("  Tasks:  %v (%d items)\n", query, len(tasks))
	fmt.Printf("  Reopen: %v\n", load)
	fmt.Printf("  Delete: %v (%v/op)\n", del, perOp(del, len(ids)/2))
	fmt.Printf("--------------------------------------------------\n")
}
