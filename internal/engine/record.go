package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// kind identifies which command a record carries.
type kind int

const (
	kindSet kind = iota
	kindRemove
)

// record is a single command in the log: either a Set of a key to a value,
// or a Remove of a key. It is the in-memory shape; encoding is externally
// tagged JSON so a stream of records can be read back without any length
// framing (see wireRecord).
type record struct {
	Kind  kind
	Key   string
	Value string
}

func setRecord(key, value string) record {
	return record{Kind: kindSet, Key: key, Value: value}
}

func removeRecord(key string) record {
	return record{Kind: kindRemove, Key: key}
}

// wireRecord is the on-disk shape of a record: an externally-tagged JSON
// object, e.g. {"Set":{"Key":"a","Value":"1"}} or {"Remove":{"Key":"a"}}.
// Exactly one of Set/Remove is non-nil.
type wireRecord struct {
	Set    *setPayload    `json:"Set,omitempty"`
	Remove *removePayload `json:"Remove,omitempty"`
}

type setPayload struct {
	Key   string
	Value string
}

type removePayload struct {
	Key string
}

func (r record) toWire() (wireRecord, error) {
	switch r.Kind {
	case kindSet:
		return wireRecord{Set: &setPayload{Key: r.Key, Value: r.Value}}, nil
	case kindRemove:
		return wireRecord{Remove: &removePayload{Key: r.Key}}, nil
	default:
		return wireRecord{}, fmt.Errorf("engine: unknown record kind %d", r.Kind)
	}
}

func (w wireRecord) toRecord() (record, error) {
	switch {
	case w.Set != nil && w.Remove == nil:
		return record{Kind: kindSet, Key: w.Set.Key, Value: w.Set.Value}, nil
	case w.Remove != nil && w.Set == nil:
		return record{Kind: kindRemove, Key: w.Remove.Key}, nil
	default:
		return record{}, &SerdeError{Op: "decode", Err: fmt.Errorf("record has neither or both of Set/Remove")}
	}
}

// encodeRecord writes r to w as one whitespace-terminated JSON value. The
// trailing newline written by json.Encoder is the "whitespace between
// objects" the wire format allows; the decoder does not require it.
func encodeRecord(w io.Writer, r record) error {
	wire, err := r.toWire()
	if err != nil {
		return &SerdeError{Op: "encode", Err: err}
	}
	if err := json.NewEncoder(w).Encode(wire); err != nil {
		return &SerdeError{Op: "encode", Err: err}
	}
	return nil
}

// decodeOne decodes exactly one record from dec and returns it. It does not
// report how many bytes were consumed: callers read dec.InputOffset(),
// which is cumulative across the decoder's lifetime, so callers wanting an
// absolute file offset combine it with the offset the decoder was seeked to.
func decodeOne(dec *json.Decoder) (record, error) {
	var wire wireRecord
	if err := dec.Decode(&wire); err != nil {
		if err == io.EOF {
			return record{}, io.EOF
		}
		return record{}, &SerdeError{Op: "decode", Err: err}
	}
	return wire.toRecord()
}

// decodeOneAt decodes exactly one record starting at byte offset `at` in
// data, returning the record and the absolute offset of the next record.
// Used by the mmap-accelerated replay path, where the whole segment is
// already resident in memory.
func decodeOneAt(data []byte, at int64) (record, int64, error) {
	dec := json.NewDecoder(bytes.NewReader(data[at:]))
	rec, err := decodeOne(dec)
	if err != nil {
		return record{}, at, err
	}
	return rec, at + dec.InputOffset(), nil
}
