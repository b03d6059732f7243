package envelope

import (
	"bytes"
	"errors"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		record Record
	}{
		{"zero version empty payload", Record{Version: 0, Payload: []byte{}}},
		{"nil payload", Record{Version: 0}},
		{"url", Record{Version: 1, Payload: []byte("http://example.com")}},
		{"binary", Record{Version: 255, Payload: []byte{0x00, 0xc1, 0xff, 0x82}}},
		{"large version", Record{Version: 1<<64 - 1, Payload: []byte("x")}},
		{"mid version", Record{Version: 70000, Payload: bytes.Repeat([]byte("z"), 300)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.record)
			if err != nil {
				t.Fatalf("encode failed: %v", err)
			}

			got, err := Decode(data)
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}

			if got.Version != tt.record.Version {
				t.Errorf("version mismatch: got %d, want %d", got.Version, tt.record.Version)
			}
			if !bytes.Equal(got.Payload, tt.record.Payload) {
				t.Errorf("payload mismatch: got %q, want %q", got.Payload, tt.record.Payload)
			}
			if got.Payload == nil {
				t.Error("decoded payload should never be nil")
			}
		})
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	r := Record{Version: 42, Payload: []byte("http://example.org")}

	a, _ := Encode(r)
	b, _ := Encode(r)
	if !bytes.Equal(a, b) {
		t.Error("encoding should be deterministic")
	}
}

func TestEncodeLayout(t *testing.T) {
	data, err := Encode(Record{Version: 0, Payload: []byte("ab")})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	want := []byte{
		0x82,           // fixmap, 2 entries
		0xa2, 'i', 'd', // "id"
		0x00,                     // 0
		0xa4, 'd', 'a', 't', 'a', // "data"
		0xc4, 0x02, 'a', 'b', // bin8 "ab"
	}
	if !bytes.Equal(data, want) {
		t.Errorf("layout mismatch:\n got % x\nwant % x", data, want)
	}
}

func TestDecodeStrPayload(t *testing.T) {
	// Written with str-typed payload, as a string-oriented packer would.
	data := []byte{
		0x82,
		0xa4, 'd', 'a', 't', 'a',
		0xa3, 'u', 'r', 'l',
		0xa2, 'i', 'd',
		0x07,
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Version != 7 || string(got.Payload) != "url" {
		t.Errorf("got %+v", got)
	}
}

func TestDecodeBinKeys(t *testing.T) {
	data := []byte{
		0x82,
		0xc4, 0x02, 'i', 'd',
		0xcd, 0x01, 0x00, // uint16 256
		0xc4, 0x04, 'd', 'a', 't', 'a',
		0xc4, 0x01, 'x',
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Version != 256 || string(got.Payload) != "x" {
		t.Errorf("got %+v", got)
	}
}

func TestDecodeMalformed(t *testing.T) {
	valid, _ := Encode(Record{Version: 3, Payload: []byte("payload")})

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"truncated", valid[:len(valid)-2]},
		{"trailing bytes", append(append([]byte{}, valid...), 0x00)},
		{"not a map", []byte{0x93, 0x01, 0x02, 0x03}},
		{"positive fixint", []byte("QUJD")},
		{"one field", []byte{0x81, 0xa2, 'i', 'd', 0x01}},
		{"three fields", []byte{0x83, 0xa2, 'i', 'd', 0x01, 0xa4, 'd', 'a', 't', 'a', 0xc4, 0x00, 0xa1, 'x', 0x00}},
		{"duplicate key", []byte{0x82, 0xa2, 'i', 'd', 0x01, 0xa2, 'i', 'd', 0x02}},
		{"unknown key", []byte{0x82, 0xa2, 'i', 'd', 0x01, 0xa3, 'u', 'r', 'l', 0xc4, 0x00}},
		{"negative version", []byte{0x82, 0xa2, 'i', 'd', 0xff, 0xa4, 'd', 'a', 't', 'a', 0xc4, 0x00}},
		{"string version", []byte{0x82, 0xa2, 'i', 'd', 0xa1, '1', 0xa4, 'd', 'a', 't', 'a', 0xc4, 0x00}},
		{"float version", []byte{0x82, 0xa2, 'i', 'd', 0xcb, 0, 0, 0, 0, 0, 0, 0, 0, 0xa4, 'd', 'a', 't', 'a', 0xc4, 0x00}},
		{"nil payload", []byte{0x82, 0xa2, 'i', 'd', 0x01, 0xa4, 'd', 'a', 't', 'a', 0xc0}},
		{"int payload", []byte{0x82, 0xa2, 'i', 'd', 0x01, 0xa4, 'd', 'a', 't', 'a', 0x05}},
		{"integer key", []byte{0x82, 0x01, 0x01, 0xa4, 'd', 'a', 't', 'a', 0xc4, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestRecordClone(t *testing.T) {
	r := Record{Version: 9, Payload: []byte("abc")}
	c := r.Clone()
	c.Payload[0] = 'X'

	if string(r.Payload) != "abc" {
		t.Error("clone should not share the payload buffer")
	}
	if !r.Equal(Record{Version: 9, Payload: []byte("abc")}) {
		t.Error("Equal should compare version and payload")
	}
}
