// Package storage provides the facade the coordinator uses to read and
// write the local, embedded, ordered key/value engine. Engine is the
// narrow contract the coordinator depends on; PebbleEngine is the only
// production implementation, backed by github.com/cockroachdb/pebble.
//
// TimestampedStore sits on top of Engine and speaks in record.Record: it
// is the only thing in this package that knows about tags, timestamps, and
// tombstones. Engine itself only ever sees opaque byte strings.
package storage

import (
	"bytes"
	"errors"
)

// ErrNotFound is returned by Engine.Get when the key has no value.
var ErrNotFound = errors.New("storage: key not found")

// Iterator walks an ordered range of (key, value) pairs. The caller owns
// it and must call Close when done, even after an error.
type Iterator interface {
	// Next advances the iterator and reports whether a pair is available.
	Next() bool
	Key() []byte
	Value() []byte
	Err() error
	Close() error
}

// Engine is the contract the coordinator needs from the embedded ordered
// key/value store: point get, upsert, delete, ordered range scan, and
// best-effort compaction.
type Engine interface {
	// Get returns the value stored at key, or ErrNotFound.
	Get(key []byte) ([]byte, error)
	// Upsert stores value at key, creating or overwriting it.
	Upsert(key, value []byte) error
	// Remove deletes key. Idempotent: removing a missing key is not an error.
	Remove(key []byte) error
	// Range returns an ordered iterator over [from, to). A nil to means no
	// upper bound.
	Range(from, to []byte) (Iterator, error)
	// Compact performs a best-effort range compaction.
	Compact() error
	// Close releases the engine and any outstanding resources.
	Close() error
}

// upperBound is a key no real key should exceed; PebbleEngine.Compact
// passes it as the end of the compacted range, since pebble's Compact
// requires an explicit upper bound. Range does not use it.
var upperBound = bytes.Repeat([]byte{0xFF}, 128)
