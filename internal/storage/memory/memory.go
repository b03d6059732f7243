// Package memory is an in-process multi-value substrate.
package memory

import (
	"context"
	"sync"

	"github.com/amaydixit11/urlshare/internal/slot"
	"github.com/amaydixit11/urlshare/internal/storage"
)

// Store keeps every blob ever put, per key, in insertion order.
type Store struct {
	mu     sync.RWMutex
	values map[string][][]byte
	closed bool
}

// New creates an empty store.
func New() *Store {
	return &Store{values: make(map[string][][]byte)}
}

func (s *Store) Put(ctx context.Context, key slot.Key, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return storage.Wrap("put", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.Wrap("put", storage.ErrClosed)
	}

	k := string(key.Bytes())
	s.values[k] = append(s.values[k], clone(blob))
	return nil
}

func (s *Store) Get(ctx context.Context, key slot.Key) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.Wrap("get", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.Wrap("get", storage.ErrClosed)
	}

	stored := s.values[string(key.Bytes())]
	out := make([][]byte, len(stored))
	for i, b := range stored {
		out[i] = clone(b)
	}
	return out, nil
}

// Len returns how many blobs are held under key.
func (s *Store) Len(key slot.Key) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values[string(key.Bytes())])
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.values = nil
	return nil
}

func clone(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
