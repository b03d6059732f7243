package dht

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"

	record "github.com/libp2p/go-libp2p-record"
)

const (
	frameHeaderSize = 8
	// MaxBlobSize bounds what a slot value may hold.
	MaxBlobSize = 64 * 1024
)

var ErrInvalidFrame = errors.New("invalid dht value frame")

// A frame is the value actually stored in the DHT:
// [stored-at unix nanos, big endian 8][blob ...]
// The timestamp only orders values for kad-dht; slot blobs stay opaque.
type frame struct {
	StoredAt int64
	Blob     []byte
}

func encodeFrame(storedAt time.Time, blob []byte) []byte {
	out := make([]byte, frameHeaderSize+len(blob))
	binary.BigEndian.PutUint64(out, uint64(storedAt.UnixNano()))
	copy(out[frameHeaderSize:], blob)
	return out
}

func decodeFrame(b []byte) (frame, error) {
	if len(b) < frameHeaderSize || len(b)-frameHeaderSize > MaxBlobSize {
		return frame{}, ErrInvalidFrame
	}
	return frame{
		StoredAt: int64(binary.BigEndian.Uint64(b)),
		Blob:     b[frameHeaderSize:],
	}, nil
}

// frameValidator accepts any well-formed frame and prefers the newest one,
// so kad-dht's read repair pushes the latest write to lagging peers.
// "Newest" is the writer's timestamp; the encrypted version is invisible here.
type frameValidator struct{}

var _ record.Validator = frameValidator{}

func (frameValidator) Validate(_ string, value []byte) error {
	_, err := decodeFrame(value)
	return err
}

func (frameValidator) Select(_ string, values [][]byte) (int, error) {
	best := -1
	var bestFrame frame
	for i, v := range values {
		f, err := decodeFrame(v)
		if err != nil {
			continue
		}
		if best < 0 || f.StoredAt > bestFrame.StoredAt ||
			(f.StoredAt == bestFrame.StoredAt && bytes.Compare(v, values[best]) > 0) {
			best = i
			bestFrame = f
		}
	}
	if best < 0 {
		return 0, ErrInvalidFrame
	}
	return best, nil
}
