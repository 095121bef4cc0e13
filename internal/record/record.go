// Package record implements the timestamped record codec and the
// last-writer-wins merge algebra that the coordinator uses to reconcile
// replica answers.
//
// A record is the only thing ever written to the local storage engine: a
// single tag byte, an 8-byte big-endian timestamp, and — for live values —
// the raw client bytes. The engine itself never interprets this layout; it
// just stores and returns opaque byte strings.
package record

import (
	"encoding/binary"
	"errors"
)

// Tag identifies what a record represents.
type Tag int8

const (
	// Deleted marks a tombstone: the key existed and was removed.
	Deleted Tag = -1
	// Absent means "no record" — never persisted, only produced in memory
	// when the engine reports not-found.
	Absent Tag = 0
	// Value marks a live value.
	Value Tag = 1
)

// ErrMalformed is returned by Decode when the input is non-empty but
// shorter than the minimum 9-byte record header.
var ErrMalformed = errors.New("record: malformed encoding")

const headerLen = 9

// Record is the unit persisted locally and exchanged between replicas.
type Record struct {
	Tag       Tag
	Timestamp int64
	Value     []byte // set only when Tag == Value
}

// absent is the canonical in-memory representation of "no record".
func absent() Record {
	return Record{Tag: Absent, Timestamp: -1}
}

// Encode serializes r as tag_byte ∥ int64_be(timestamp) ∥ value_bytes?.
func Encode(r Record) []byte {
	n := headerLen
	if r.Tag == Value {
		n += len(r.Value)
	}
	buf := make([]byte, n)
	buf[0] = byte(r.Tag)
	binary.BigEndian.PutUint64(buf[1:headerLen], uint64(r.Timestamp))
	if r.Tag == Value {
		copy(buf[headerLen:], r.Value)
	}
	return buf
}

// Decode parses the on-disk/on-wire format. A nil or empty input decodes to
// Absent. Any other input shorter than the 9-byte header is malformed.
func Decode(b []byte) (Record, error) {
	if len(b) == 0 {
		return absent(), nil
	}
	if len(b) < headerLen {
		return Record{}, ErrMalformed
	}

	ts := int64(binary.BigEndian.Uint64(b[1:headerLen]))
	switch int8(b[0]) {
	case int8(Value):
		v := append([]byte(nil), b[headerLen:]...)
		return Record{Tag: Value, Timestamp: ts, Value: v}, nil
	case int8(Deleted):
		return Record{Tag: Deleted, Timestamp: ts}, nil
	default:
		return absent(), nil
	}
}

// Merge reduces a list of records drawn from replica answers to the single
// record the coordinator should respond with: highest timestamp wins, ties
// broken in favor of Value over Deleted (Absent never wins a tie since it is
// dropped first).
func Merge(records []Record) Record {
	var best *Record
	for i := range records {
		r := records[i]
		if r.Tag == Absent {
			continue
		}
		if best == nil || outranks(r, *best) {
			best = &r
		}
	}
	if best == nil {
		return absent()
	}
	return *best
}

func outranks(a, b Record) bool {
	if a.Timestamp != b.Timestamp {
		return a.Timestamp > b.Timestamp
	}
	return a.Tag == Value && b.Tag != Value
}
