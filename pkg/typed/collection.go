// Package typed provides a type-safe view over a core.Collection.
// Records are converted to and from T through their JSON representation,
// so the json tags of T name the fields used in queries and patches.
package typed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/tagvault/pkg/core"
)

// Collection wraps a core.Collection to provide type-safe access.
type Collection[T any] struct {
	coll core.Collection
}

// NewCollection creates a new type-safe wrapper around an existing collection.
func NewCollection[T any](coll core.Collection) *Collection[T] {
	return &Collection[T]{coll: coll}
}

// Unwrap returns the underlying untyped collection.
func (c *Collection[T]) Unwrap() core.Collection {
	return c.coll
}

// Get retrieves a record by key.
func (c *Collection[T]) Get(ctx context.Context, key string) (T, error) {
	rec, err := c.coll.Get(ctx, key)
	if err != nil {
		var zero T
		return zero, err
	}
	return FromRecord[T](rec)
}

// FindWhereEquals returns the records whose field equals v.
func (c *Collection[T]) FindWhereEquals(ctx context.Context, field string, v any) ([]T, error) {
	return c.many(c.coll.FindWhereEquals(ctx, field, v))
}

// FindWhereContains returns the records whose list field holds v.
func (c *Collection[T]) FindWhereContains(ctx context.Context, field string, v any) ([]T, error) {
	return c.many(c.coll.FindWhereContains(ctx, field, v))
}

// FindWhereMember returns the records whose scalar field is one of candidates.
func (c *Collection[T]) FindWhereMember(ctx context.Context, field string, candidates []any) ([]T, error) {
	return c.many(c.coll.FindWhereMember(ctx, field, candidates))
}

// All returns every record.
func (c *Collection[T]) All(ctx context.Context) ([]T, error) {
	return c.many(c.coll.All(ctx))
}

// Add stores v as a new record.
func (c *Collection[T]) Add(ctx context.Context, v T) (T, error) {
	rec, err := ToRecord(v)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.one(c.coll.Add(ctx, rec))
}

// Delete removes a record and returns it.
func (c *Collection[T]) Delete(ctx context.Context, key string) (T, error) {
	return c.one(c.coll.Delete(ctx, key))
}

// Patch merges fields into an existing record.
func (c *Collection[T]) Patch(ctx context.Context, key string, fields core.Record) (T, error) {
	return c.one(c.coll.Patch(ctx, key, fields))
}

// Replace overwrites every non-key field of the record with the fields of v.
func (c *Collection[T]) Replace(ctx context.Context, key string, v T) (T, error) {
	rec, err := ToRecord(v)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.one(c.coll.Patch(ctx, key, rec))
}

// Rekey renames a record's key in place.
func (c *Collection[T]) Rekey(ctx context.Context, oldKey, newKey string) (T, error) {
	return c.one(c.coll.Rekey(ctx, oldKey, newKey))
}

func (c *Collection[T]) one(rec core.Record, err error) (T, error) {
	if err != nil {
		var zero T
		return zero, err
	}
	return FromRecord[T](rec)
}

func (c *Collection[T]) many(recs []core.Record, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	result := make([]T, 0, len(recs))
	for _, rec := range recs {
		v, err := FromRecord[T](rec)
		if err != nil {
			return nil, fmt.Errorf("failed to process %s record: %w", c.coll.Name(), err)
		}
		result = append(result, v)
	}
	return result, nil
}

// ToRecord converts a value to its record form.
func ToRecord(v any) (core.Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal typed data: %w", err)
	}
	var rec core.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to convert typed data to record: %w", err)
	}
	return rec, nil
}

// FromRecord converts a record to T.
func FromRecord[T any](rec core.Record) (T, error) {
	var out T
	data, err := json.Marshal(rec)
	if err != nil {
		return out, fmt.Errorf("record marshal failed: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("unmarshal to target type failed: %w", err)
	}
	return out, nil
}
