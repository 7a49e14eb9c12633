// Package storage provides the key-value database abstractions the
// singleton store, launcher store, and transaction store are built on.
package storage

// DB is the interface for key-value storage.
type DB interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)
	// ForEach iterates over all keys with the given prefix.
	// The callback receives a copy of the key and value.
	// Return a non-nil error from fn to stop iteration early.
	ForEach(prefix []byte, fn func(key, value []byte) error) error
	Close() error
}

// Batcher is implemented by a DB that can group writes into an atomic
// batch. Not every DB has to support it — PrefixDB falls back to
// individual, non-atomic writes when its inner DB doesn't.
type Batcher interface {
	NewBatch() Batch
}

// Batch groups a sequence of writes so they commit (or fail) together.
// Used by the fork rebaser to delete every stale pending record together.
type Batch interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	Commit() error
}
