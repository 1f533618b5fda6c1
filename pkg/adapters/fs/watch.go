package fs

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/tagvault/pkg/core"
)

var _ core.Watchable = (*Collection)(nil)

// Watch observes the backing file for changes made outside this process
// (another tool, a git checkout, a manual edit) and reloads the collection
// when the on-disk content differs from what was last flushed. Our own
// flushes are recognized by content and produce no event.
//
// The returned channel is closed when ctx is cancelled.
func (c *Collection) Watch(ctx context.Context) (<-chan core.Event, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	// The directory is watched rather than the file: atomic renames replace
	// the inode, which would silently drop a file watch.
	if err := watcher.Add(filepath.Dir(c.config.Path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(c.config.Path), err)
	}
	if c.config.Git != nil {
		// Best effort: lets the loop hold off while git rewrites the tree.
		_ = watcher.Add(filepath.Join(c.config.Git.WorkDir, ".git"))
	}

	events := make(chan core.Event, 16)
	c.setWatcherActive(true)

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(events)
		defer c.setWatcherActive(false)
		defer watcher.Close()
		return c.watchLoop(ctx, watcher, events)
	}, lifecycle.WithErrorHandler(func(err error) {
		c.config.Logger.Error("watcher stopped", "collection", c.config.Name, "error", err)
		if c.config.ErrorHandler != nil {
			c.config.ErrorHandler(err)
		}
	}))

	return events, nil
}

func (c *Collection) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, events chan<- core.Event) error {
	target := filepath.Clean(c.config.Path)
	gitLocked := false
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			if locked, ok := gitLockEvent(event); ok {
				gitLocked = locked
				if locked {
					c.config.Logger.Debug("git operation in progress, pausing reloads", "collection", c.config.Name)
					continue
				}
				// Writes made during the git operation were skipped.
				c.config.Logger.Debug("git operation finished, checking for changes", "collection", c.config.Name)
			} else {
				if gitLocked || filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				c.config.Logger.Debug("event received", "collection", c.config.Name, "op", event.Op.String())
			}

			changed, err := c.reloadFromDisk()
			if err != nil {
				// A partially written file from a non-atomic writer; the
				// next write event will retry.
				c.config.Logger.Warn("reload failed", "collection", c.config.Name, "error", err)
				if c.config.ErrorHandler != nil {
					c.config.ErrorHandler(err)
				}
				continue
			}
			if !changed {
				continue
			}

			select {
			case events <- core.Event{Type: core.EventReload, Collection: c.config.Name, Timestamp: time.Now().Unix()}:
			case <-ctx.Done():
				return nil
			}

		case wErr, ok := <-watcher.Errors:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			c.config.Logger.Error("fsnotify error", "collection", c.config.Name, "error", wErr)
			if c.config.ErrorHandler != nil {
				c.config.ErrorHandler(wErr)
			}
		}
	}
}

// gitLockEvent recognizes the creation and removal of .git/index.lock, which
// bracket every git command that rewrites the working tree.
func gitLockEvent(event fsnotify.Event) (locked bool, ok bool) {
	if filepath.Base(event.Name) != "index.lock" || filepath.Base(filepath.Dir(event.Name)) != ".git" {
		return false, false
	}
	switch {
	case event.Has(fsnotify.Create):
		return true, true
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return false, true
	}
	return false, false
}

func (c *Collection) reloadFromDisk() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.config.Path)
	if err != nil {
		return false, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		// Truncated by a non-atomic writer; wait for the content.
		return false, nil
	}
	return c.replaceLocked(data)
}

func (c *Collection) setWatcherActive(active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watcherActive = active
}
