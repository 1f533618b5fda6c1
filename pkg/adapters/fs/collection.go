package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/tagvault/pkg/core"
	"github.com/aretw0/tagvault/pkg/git"
)

// Config holds the configuration for a file-backed collection.
type Config struct {
	Path     string // Full path of the backing file, e.g. "data/notes.json".
	Name     string // Defaults to the file name without extension.
	KeyField string // Record field holding the unique key (e.g. "id", "name").
	Logger   *slog.Logger

	// Git, when set, records every flush as a commit in the repository
	// rooted at Git.WorkDir. Versioning is best effort: commit failures are
	// logged and reported to ErrorHandler but never fail the mutation.
	Git          *git.Client
	ErrorHandler func(error)
}

// Collection implements core.Collection on top of a single JSON array file.
//
// Every mutation is applied to a copy of the record list, flushed atomically,
// and only then published in memory. A failed flush therefore leaves both
// the file and the in-memory state at the previous version.
type Collection struct {
	config    Config
	mu        sync.RWMutex
	records   []core.Record
	persisted []byte // bytes of the last successful flush or load

	watcherActive bool
	lastReload    *time.Time
}

var _ core.Collection = (*Collection)(nil)
var _ core.Reloadable = (*Collection)(nil)

// Open loads the collection at config.Path. A missing file is initialized
// with an empty array and written immediately.
func Open(ctx context.Context, config Config) (*Collection, error) {
	if config.Path == "" {
		return nil, errors.New("collection path is empty")
	}
	if config.KeyField == "" {
		return nil, errors.New("collection key field is empty")
	}
	if config.Name == "" {
		base := filepath.Base(config.Path)
		config.Name = base[:len(base)-len(filepath.Ext(base))]
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w: %w", core.ErrIO, err)
	}

	c := &Collection{config: config}
	if err := c.load(ctx); err != nil {
		return nil, err
	}
	c.config.Logger.Info("collection opened", "collection", c.config.Name, "path", c.config.Path, "records", len(c.records))
	return c, nil
}

// Name implements core.Collection.
func (c *Collection) Name() string { return c.config.Name }

// KeyField implements core.Collection.
func (c *Collection) KeyField() string { return c.config.KeyField }

// Path returns the backing file.
func (c *Collection) Path() string { return c.config.Path }

func (c *Collection) load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.config.Path)
	if os.IsNotExist(err) {
		c.config.Logger.Info("data file not found, initializing empty collection", "collection", c.config.Name, "path", c.config.Path)
		return c.flushLocked(ctx, []core.Record{}, "initialize "+c.config.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w: %w", c.config.Path, core.ErrIO, err)
	}

	records, err := c.decode(data)
	if err != nil {
		return err
	}
	c.records = records
	c.persisted = data
	return nil
}

// Reload discards the in-memory state and re-reads the backing file.
func (c *Collection) Reload(ctx context.Context) error {
	c.config.Logger.Debug("reloading collection", "collection", c.config.Name)
	data, err := os.ReadFile(c.config.Path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w: %w", c.config.Path, core.ErrIO, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.replaceLocked(data)
	return err
}

// replaceLocked swaps in the content of data. It reports whether the content
// differed from the last persisted bytes.
func (c *Collection) replaceLocked(data []byte) (bool, error) {
	if string(data) == string(c.persisted) {
		return false, nil
	}
	records, err := c.decode(data)
	if err != nil {
		return false, err
	}
	c.records = records
	c.persisted = data
	now := time.Now()
	c.lastReload = &now
	return true, nil
}

func (c *Collection) decode(data []byte) ([]core.Record, error) {
	records, err := decodeRecords(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", c.config.Path, err)
	}
	seen := make(map[string]bool, len(records))
	for i, r := range records {
		key, ok := c.keyOf(r)
		if !ok {
			return nil, fmt.Errorf("failed to parse %s: entry %d has no %q", c.config.Path, i, c.config.KeyField)
		}
		if seen[key] {
			return nil, fmt.Errorf("failed to parse %s: duplicate %q %q", c.config.Path, c.config.KeyField, key)
		}
		seen[key] = true
	}
	return records, nil
}

// flushLocked persists next and publishes it. Callers hold c.mu for writing.
func (c *Collection) flushLocked(ctx context.Context, next []core.Record, reason string) error {
	data, err := encodeRecords(next)
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", c.config.Name, err)
	}

	c.config.Logger.Debug("persisting collection", "collection", c.config.Name, "path", c.config.Path, "records", len(next))
	if err := writeFileAtomic(c.config.Path, data, 0644); err != nil {
		c.config.Logger.Error("flush failed", "collection", c.config.Name, "error", err)
		return fmt.Errorf("failed to write %s: %w: %w", c.config.Name, core.ErrIO, err)
	}

	c.records = next
	c.persisted = data

	if c.config.Git != nil {
		if val, ok := ctx.Value(core.ChangeReasonKey).(string); ok && val != "" {
			reason = val
		}
		if err := c.commit(reason); err != nil {
			c.config.Logger.Warn("versioning failed", "collection", c.config.Name, "error", err)
			if c.config.ErrorHandler != nil {
				c.config.ErrorHandler(err)
			}
		}
	}
	return nil
}

func (c *Collection) commit(msg string) error {
	rel, err := filepath.Rel(c.config.Git.WorkDir, c.config.Path)
	if err != nil {
		return fmt.Errorf("data file outside repository: %w", err)
	}

	unlock, err := c.config.Git.Lock()
	if err != nil {
		return fmt.Errorf("failed to acquire git lock: %w", err)
	}
	defer unlock()

	status, err := c.config.Git.Status(rel)
	if err != nil {
		return err
	}
	if status == "" {
		return nil
	}
	if err := c.config.Git.Add(rel); err != nil {
		return fmt.Errorf("failed to git add: %w", err)
	}
	if err := c.config.Git.Commit(msg); err != nil {
		return fmt.Errorf("failed to git commit: %w", err)
	}
	return nil
}

func (c *Collection) keyOf(r core.Record) (string, bool) {
	key, ok := r[c.config.KeyField].(string)
	return key, ok && key != ""
}

func (c *Collection) indexOf(key string) int {
	for i, r := range c.records {
		if k, _ := c.keyOf(r); k == key {
			return i
		}
	}
	return -1
}

func (c *Collection) notFound(key string) error {
	return fmt.Errorf("%s %q: %w", c.config.Name, key, core.ErrNotFound)
}

// Get implements core.Collection.
func (c *Collection) Get(ctx context.Context, key string) (core.Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	idx := c.indexOf(key)
	if idx < 0 {
		return nil, c.notFound(key)
	}
	return cloneRecord(c.records[idx]), nil
}

func (c *Collection) filter(match func(core.Record) bool) []core.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := []core.Record{}
	for _, r := range c.records {
		if match(r) {
			out = append(out, cloneRecord(r))
		}
	}
	return out
}

// FindWhereEquals implements core.Collection.
func (c *Collection) FindWhereEquals(ctx context.Context, field string, v any) ([]core.Record, error) {
	want, err := normalize(v)
	if err != nil {
		return nil, fmt.Errorf("invalid query value: %w", err)
	}
	return c.filter(func(r core.Record) bool {
		return valuesEqual(r[field], want)
	}), nil
}

// FindWhereContains implements core.Collection.
func (c *Collection) FindWhereContains(ctx context.Context, field string, v any) ([]core.Record, error) {
	want, err := normalize(v)
	if err != nil {
		return nil, fmt.Errorf("invalid query value: %w", err)
	}
	return c.filter(func(r core.Record) bool {
		items, ok := r[field].([]any)
		if !ok {
			return false
		}
		for _, item := range items {
			if valuesEqual(item, want) {
				return true
			}
		}
		return false
	}), nil
}

// FindWhereMember implements core.Collection.
func (c *Collection) FindWhereMember(ctx context.Context, field string, candidates []any) ([]core.Record, error) {
	set := make([]any, 0, len(candidates))
	for _, cand := range candidates {
		n, err := normalize(cand)
		if err != nil {
			return nil, fmt.Errorf("invalid query value: %w", err)
		}
		set = append(set, n)
	}
	return c.filter(func(r core.Record) bool {
		for _, want := range set {
			if valuesEqual(r[field], want) {
				return true
			}
		}
		return false
	}), nil
}

// All implements core.Collection.
func (c *Collection) All(ctx context.Context) ([]core.Record, error) {
	return c.filter(func(core.Record) bool { return true }), nil
}

// Add implements core.Collection.
func (c *Collection) Add(ctx context.Context, r core.Record) (core.Record, error) {
	rec, err := normalizeRecord(r)
	if err != nil {
		return nil, fmt.Errorf("invalid record: %w", err)
	}
	key, ok := c.keyOf(rec)
	if !ok {
		return nil, fmt.Errorf("record has no %q", c.config.KeyField)
	}
	c.config.Logger.Info("add", "collection", c.config.Name, "key", key)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.indexOf(key) >= 0 {
		c.config.Logger.Warn("attempt to add existing record", "collection", c.config.Name, "key", key)
		return nil, fmt.Errorf("%s %q: %w", c.config.Name, key, core.ErrAlreadyExists)
	}

	next := make([]core.Record, len(c.records), len(c.records)+1)
	copy(next, c.records)
	next = append(next, rec)
	if err := c.flushLocked(ctx, next, fmt.Sprintf("add %s/%s", c.config.Name, key)); err != nil {
		return nil, err
	}
	return cloneRecord(rec), nil
}

// Delete implements core.Collection.
func (c *Collection) Delete(ctx context.Context, key string) (core.Record, error) {
	c.config.Logger.Info("delete", "collection", c.config.Name, "key", key)

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(key)
	if idx < 0 {
		c.config.Logger.Warn("record not found for delete", "collection", c.config.Name, "key", key)
		return nil, c.notFound(key)
	}
	removed := c.records[idx]

	next := make([]core.Record, 0, len(c.records)-1)
	next = append(next, c.records[:idx]...)
	next = append(next, c.records[idx+1:]...)
	if err := c.flushLocked(ctx, next, fmt.Sprintf("delete %s/%s", c.config.Name, key)); err != nil {
		return nil, err
	}
	return cloneRecord(removed), nil
}

// Patch implements core.Collection. The key field is never changed by Patch;
// use Rekey for that.
func (c *Collection) Patch(ctx context.Context, key string, fields core.Record) (core.Record, error) {
	patch, err := normalizeRecord(fields)
	if err != nil {
		return nil, fmt.Errorf("invalid patch: %w", err)
	}
	c.config.Logger.Info("patch", "collection", c.config.Name, "key", key)

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(key)
	if idx < 0 {
		c.config.Logger.Warn("record not found for patch", "collection", c.config.Name, "key", key)
		return nil, c.notFound(key)
	}

	merged := cloneRecord(c.records[idx])
	for k, v := range patch {
		if k == c.config.KeyField {
			continue
		}
		merged[k] = v
	}

	next := make([]core.Record, len(c.records))
	copy(next, c.records)
	next[idx] = merged
	if err := c.flushLocked(ctx, next, fmt.Sprintf("patch %s/%s", c.config.Name, key)); err != nil {
		return nil, err
	}
	return cloneRecord(merged), nil
}

// Rekey implements core.Collection.
func (c *Collection) Rekey(ctx context.Context, oldKey, newKey string) (core.Record, error) {
	if newKey == "" {
		return nil, fmt.Errorf("empty %q", c.config.KeyField)
	}
	c.config.Logger.Info("rekey", "collection", c.config.Name, "from", oldKey, "to", newKey)

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(oldKey)
	if idx < 0 {
		c.config.Logger.Warn("record not found for rekey", "collection", c.config.Name, "key", oldKey)
		return nil, c.notFound(oldKey)
	}
	if oldKey == newKey {
		return cloneRecord(c.records[idx]), nil
	}
	if c.indexOf(newKey) >= 0 {
		return nil, fmt.Errorf("%s %q: %w", c.config.Name, newKey, core.ErrAlreadyExists)
	}

	renamed := cloneRecord(c.records[idx])
	renamed[c.config.KeyField] = newKey

	next := make([]core.Record, len(c.records))
	copy(next, c.records)
	next[idx] = renamed
	if err := c.flushLocked(ctx, next, fmt.Sprintf("rename %s/%s to %s", c.config.Name, oldKey, newKey)); err != nil {
		return nil, err
	}
	return cloneRecord(renamed), nil
}

// Len returns the number of records.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}
