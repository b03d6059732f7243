// Package envelope serializes the (version, payload) record that is sealed
// into a slot.
//
// The wire form is a MessagePack map with exactly two keys:
//
//	{"id": <unsigned int>, "data": <bytes>}
//
// Encoding is deterministic: keys are always written in that order, the
// version uses the most compact integer form and the payload is written as bin.
// Decoding also accepts str-typed keys and payloads so records produced by
// other implementations of the format remain readable.
package envelope

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

const (
	keyVersion = "id"
	keyPayload = "data"
)

// ErrMalformed is returned for truncated or structurally invalid input.
var ErrMalformed = errors.New("malformed envelope")

// Record is the logical value stored in a slot.
// Payload is opaque; it is never interpreted here.
type Record struct {
	Version uint64
	Payload []byte
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	payload := make([]byte, len(r.Payload))
	copy(payload, r.Payload)
	return Record{Version: r.Version, Payload: payload}
}

// Equal reports whether two records carry the same version and payload.
func (r Record) Equal(o Record) bool {
	return r.Version == o.Version && bytes.Equal(r.Payload, o.Payload)
}

// Encode serializes a record.
func Encode(r Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)

	if err := enc.EncodeMapLen(2); err != nil {
		return nil, err
	}
	if err := enc.EncodeString(keyVersion); err != nil {
		return nil, err
	}
	if err := enc.EncodeUint(r.Version); err != nil {
		return nil, err
	}
	if err := enc.EncodeString(keyPayload); err != nil {
		return nil, err
	}
	payload := r.Payload
	if payload == nil {
		payload = []byte{}
	}
	if err := enc.EncodeBytes(payload); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a record produced by Encode.
func Decode(data []byte) (Record, error) {
	var r Record

	rd := bytes.NewReader(data)
	dec := msgpack.NewDecoder(rd)

	code, err := dec.PeekCode()
	if err != nil {
		return r, malformed("empty input")
	}
	if !msgpcode.IsFixedMap(code) && code != msgpcode.Map16 && code != msgpcode.Map32 {
		return r, malformed("not a map")
	}

	n, err := dec.DecodeMapLen()
	if err != nil {
		return r, malformed("bad map header: %v", err)
	}
	if n != 2 {
		return r, malformed("expected 2 fields, got %d", n)
	}

	var haveVersion, havePayload bool
	for i := 0; i < n; i++ {
		key, err := dec.DecodeString()
		if err != nil {
			return r, malformed("bad key: %v", err)
		}

		switch key {
		case keyVersion:
			if haveVersion {
				return r, malformed("duplicate %q", key)
			}
			if r.Version, err = decodeVersion(dec); err != nil {
				return r, err
			}
			haveVersion = true

		case keyPayload:
			if havePayload {
				return r, malformed("duplicate %q", key)
			}
			if r.Payload, err = decodePayload(dec); err != nil {
				return r, err
			}
			havePayload = true

		default:
			return r, malformed("unknown field %q", key)
		}
	}

	if rd.Len() != 0 {
		return r, malformed("%d trailing bytes", rd.Len())
	}

	return r, nil
}

func decodeVersion(dec *msgpack.Decoder) (uint64, error) {
	v, err := dec.DecodeInterfaceLoose()
	if err != nil {
		return 0, malformed("bad version: %v", err)
	}

	switch n := v.(type) {
	case int64:
		if n < 0 {
			return 0, malformed("negative version %d", n)
		}
		return uint64(n), nil
	case uint64:
		return n, nil
	default:
		return 0, malformed("version is %T, not an integer", v)
	}
}

func decodePayload(dec *msgpack.Decoder) ([]byte, error) {
	code, err := dec.PeekCode()
	if err != nil {
		return nil, malformed("truncated payload")
	}
	if code == msgpcode.Nil {
		return nil, malformed("nil payload")
	}

	b, err := dec.DecodeBytes()
	if err != nil {
		return nil, malformed("bad payload: %v", err)
	}
	if b == nil {
		b = []byte{}
	}
	return b, nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}
