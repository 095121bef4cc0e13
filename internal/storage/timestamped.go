package storage

import (
	"errors"
	"fmt"

	"okkv/internal/record"
)

// TimestampedStore wraps an Engine with the get_ts/put_ts/delete_ts
// operations the coordinator actually uses. Delete is a write: it upserts
// a tombstone rather than calling Remove, so the tombstone survives for
// later merges.
type TimestampedStore struct {
	engine Engine
}

// NewTimestampedStore wraps engine.
func NewTimestampedStore(engine Engine) *TimestampedStore {
	return &TimestampedStore{engine: engine}
}

// GetTS decodes the record stored at key, or returns Absent if the engine
// reports not-found.
func (s *TimestampedStore) GetTS(key []byte) (record.Record, error) {
	raw, err := s.engine.Get(key)
	if errors.Is(err, ErrNotFound) {
		return record.Record{Tag: record.Absent, Timestamp: -1}, nil
	}
	if err != nil {
		return record.Record{}, fmt.Errorf("storage: get_ts: %w", err)
	}
	rec, err := record.Decode(raw)
	if err != nil {
		return record.Record{}, fmt.Errorf("storage: get_ts: decode local record at %q: %w", key, err)
	}
	return rec, nil
}

// PutTS encodes (VALUE, ts, value) and upserts it.
func (s *TimestampedStore) PutTS(key, value []byte, ts int64) error {
	enc := record.Encode(record.Record{Tag: record.Value, Timestamp: ts, Value: value})
	if err := s.engine.Upsert(key, enc); err != nil {
		return fmt.Errorf("storage: put_ts: %w", err)
	}
	return nil
}

// DeleteTS encodes a (DELETED, ts) tombstone and upserts it. It never calls
// Remove: the tombstone must survive so later merges can see it.
func (s *TimestampedStore) DeleteTS(key []byte, ts int64) error {
	enc := record.Encode(record.Record{Tag: record.Deleted, Timestamp: ts})
	if err := s.engine.Upsert(key, enc); err != nil {
		return fmt.Errorf("storage: delete_ts: %w", err)
	}
	return nil
}

// Range returns the engine's raw (key, value) pairs in [from, to) for the
// entities range-scan endpoint. Values are not decoded: each one is the
// stored encoded record, tombstones included.
func (s *TimestampedStore) Range(from, to []byte) (Iterator, error) {
	return s.engine.Range(from, to)
}

// Compact asks the underlying engine to compact. It does not reclaim
// tombstones; they are retained indefinitely.
func (s *TimestampedStore) Compact() error {
	return s.engine.Compact()
}

// Close releases the underlying engine.
func (s *TimestampedStore) Close() error {
	return s.engine.Close()
}
