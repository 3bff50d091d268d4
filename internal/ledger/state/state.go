// Package state abstracts the key-value world state the ledger contracts
// execute against. The contracts only assume get/put/delete plus a range scan
// with deterministic lexicographic ordering; durability and replication are
// the backing store's concern.
package state

import "context"

// WorldState is the key-value store holding the current value for each key.
type WorldState interface {
	// GetState returns the value stored under key, or (nil, nil) when the
	// key is absent.
	GetState(ctx context.Context, key string) ([]byte, error)

	// PutState stores value under key, overwriting any existing value.
	PutState(ctx context.Context, key string, value []byte) error

	// DelState removes key. Deleting an absent key is not an error.
	DelState(ctx context.Context, key string) error

	// GetStateByRange returns an iterator over keys in [startKey, endKey)
	// in lexicographic order. An empty startKey means "from the beginning",
	// an empty endKey means "to the end"; both empty is a full scan.
	GetStateByRange(ctx context.Context, startKey, endKey string) (Iterator, error)
}

// Iterator walks range-scan results in key order, in the style of sql.Rows.
type Iterator interface {
	// Next advances to the next entry, reporting false when exhausted.
	Next() bool

	// Entry returns the current key and value. Only valid after a true Next.
	Entry() (key string, value []byte)

	// Err returns the first error encountered while iterating.
	Err() error

	// Close releases resources held by the iterator.
	Close() error
}
