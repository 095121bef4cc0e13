package storage

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"okkv/internal/record"
)

// memoryEngine is a tiny in-memory Engine used only to exercise
// TimestampedStore without standing up a real pebble database.
type memoryEngine struct {
	data map[string][]byte
}

func newMemoryEngine() *memoryEngine {
	return &memoryEngine{data: make(map[string][]byte)}
}

func (m *memoryEngine) Get(key []byte) ([]byte, error) {
	v, ok := m.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (m *memoryEngine) Upsert(key, value []byte) error {
	m.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (m *memoryEngine) Remove(key []byte) error {
	delete(m.data, string(key))
	return nil
}

func (m *memoryEngine) Range(from, to []byte) (Iterator, error) {
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if k < string(from) {
			continue
		}
		if to != nil && k >= string(to) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &memoryIterator{m: m, keys: keys, idx: -1}, nil
}

func (m *memoryEngine) Compact() error { return nil }
func (m *memoryEngine) Close() error   { return nil }

type memoryIterator struct {
	m    *memoryEngine
	keys []string
	idx  int
}

func (it *memoryIterator) Next() bool {
	it.idx++
	return it.idx < len(it.keys)
}
func (it *memoryIterator) Key() []byte   { return []byte(it.keys[it.idx]) }
func (it *memoryIterator) Value() []byte { return it.m.data[it.keys[it.idx]] }
func (it *memoryIterator) Err() error    { return nil }
func (it *memoryIterator) Close() error  { return nil }

func TestTimestampedStorePutGet(t *testing.T) {
	s := NewTimestampedStore(newMemoryEngine())
	require.NoError(t, s.PutTS([]byte("k"), []byte("v1"), 100))

	got, err := s.GetTS([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, record.Value, got.Tag)
	assert.EqualValues(t, 100, got.Timestamp)
	assert.Equal(t, []byte("v1"), got.Value)
}

func TestTimestampedStoreGetAbsent(t *testing.T) {
	s := NewTimestampedStore(newMemoryEngine())
	got, err := s.GetTS([]byte("missing"))
	require.NoError(t, err)
	assert.Equal(t, record.Absent, got.Tag)
	assert.EqualValues(t, -1, got.Timestamp)
}

func TestTimestampedStoreDeleteIsATombstoneNotARemove(t *testing.T) {
	engine := newMemoryEngine()
	s := NewTimestampedStore(engine)
	require.NoError(t, s.PutTS([]byte("k"), []byte("v"), 1))
	require.NoError(t, s.DeleteTS([]byte("k"), 2))

	// The key must still be physically present (as a tombstone).
	_, ok := engine.data["k"]
	assert.True(t, ok)

	got, err := s.GetTS([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, record.Deleted, got.Tag)
	assert.EqualValues(t, 2, got.Timestamp)
}

func TestTimestampedStoreRangeOrdered(t *testing.T) {
	s := NewTimestampedStore(newMemoryEngine())
	for _, k := range []string{"aa", "ab", "ac", "b", "c", "cc", "a", "d"} {
		require.NoError(t, s.PutTS([]byte(k), []byte(k), 1))
	}

	it, err := s.Range([]byte("aa"), []byte("cc"))
	require.NoError(t, err)
	defer it.Close()

	var got []string
	for it.Next() {
		got = append(got, string(it.Key()))
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"aa", "ab", "ac", "b", "c"}, got)
}
