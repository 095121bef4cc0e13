package storage

import (
	"fmt"

	"github.com/cockroachdb/pebble"
)

// PebbleEngine backs Engine with a cockroachdb/pebble database: an
// LSM-tree ordered key/value store with a memory-mapped read path and a
// write-ahead log for crash durability.
type PebbleEngine struct {
	db *pebble.DB
}

// OpenPebble opens (or creates) a pebble database rooted at dir.
func OpenPebble(dir string) (*PebbleEngine, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("storage: open pebble at %s: %w", dir, err)
	}
	return &PebbleEngine{db: db}, nil
}

func (e *PebbleEngine) Get(key []byte) ([]byte, error) {
	v, closer, err := e.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get: %w", err)
	}
	out := append([]byte(nil), v...)
	if cerr := closer.Close(); cerr != nil {
		return nil, fmt.Errorf("storage: release get handle: %w", cerr)
	}
	return out, nil
}

func (e *PebbleEngine) Upsert(key, value []byte) error {
	if err := e.db.Set(key, value, pebble.Sync); err != nil {
		return fmt.Errorf("storage: upsert: %w", err)
	}
	return nil
}

func (e *PebbleEngine) Remove(key []byte) error {
	if err := e.db.Delete(key, pebble.Sync); err != nil {
		return fmt.Errorf("storage: remove: %w", err)
	}
	return nil
}

func (e *PebbleEngine) Range(from, to []byte) (Iterator, error) {
	opts := &pebble.IterOptions{LowerBound: from}
	if to != nil {
		opts.UpperBound = to
	}
	it, err := e.db.NewIter(opts)
	if err != nil {
		return nil, fmt.Errorf("storage: range: %w", err)
	}
	return &pebbleIterator{it: it, valid: it.First()}, nil
}

func (e *PebbleEngine) Compact() error {
	if err := e.db.Compact(nil, upperBound, false); err != nil {
		return fmt.Errorf("storage: compact: %w", err)
	}
	return nil
}

func (e *PebbleEngine) Close() error {
	if err := e.db.Close(); err != nil {
		return fmt.Errorf("storage: close: %w", err)
	}
	return nil
}

type pebbleIterator struct {
	it       *pebble.Iterator
	valid    bool
	advanced bool
}

func (p *pebbleIterator) Next() bool {
	if !p.advanced {
		p.advanced = true
		return p.valid
	}
	p.valid = p.it.Next()
	return p.valid
}

func (p *pebbleIterator) Key() []byte   { return append([]byte(nil), p.it.Key()...) }
func (p *pebbleIterator) Value() []byte { return append([]byte(nil), p.it.Value()...) }
func (p *pebbleIterator) Err() error    { return p.it.Error() }
func (p *pebbleIterator) Close() error  { return p.it.Close() }
