package core

import "context"

// Record is a single stored entry: a JSON object keyed by field name.
type Record map[string]any

// Collection defines the contract for a keyed set of records.
// Adhering to this interface keeps the index independent of the storage
// mechanism. Every returned Record is a copy owned by the caller.
type Collection interface {
	// Name identifies the collection (e.g. "notes").
	Name() string

	// KeyField is the record field holding the unique key.
	KeyField() string

	// Get retrieves a record by its key.
	Get(ctx context.Context, key string) (Record, error)

	// FindWhereEquals returns the records whose field equals v.
	FindWhereEquals(ctx context.Context, field string, v any) ([]Record, error)

	// FindWhereContains returns the records whose list-valued field holds v.
	FindWhereContains(ctx context.Context, field string, v any) ([]Record, error)

	// FindWhereMember returns the records whose scalar field is one of candidates.
	FindWhereMember(ctx context.Context, field string, candidates []any) ([]Record, error)

	// All returns every record in insertion order.
	All(ctx context.Context) ([]Record, error)

	// Add stores a new record. It fails with ErrAlreadyExists on a duplicate key.
	Add(ctx context.Context, r Record) (Record, error)

	// Delete removes a record and returns it.
	Delete(ctx context.Context, key string) (Record, error)

	// Patch merges the non-key fields into an existing record and returns the result.
	Patch(ctx context.Context, key string, fields Record) (Record, error)

	// Rekey renames a record's key in place.
	Rekey(ctx context.Context, oldKey, newKey string) (Record, error)
}

// Reloadable is implemented by collections backed by external storage that
// can be re-read after an out-of-band change or a failed flush.
type Reloadable interface {
	Reload(ctx context.Context) error
}

// Watchable defines an interface for collections that can notify about
// changes made outside the process.
type Watchable interface {
	Watch(ctx context.Context) (<-chan Event, error)
}
