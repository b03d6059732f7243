// Package storage defines the key-value substrate a slot lives in.
//
// A substrate is eventually consistent and multi-valued: Get may return
// several blobs for one key, including stale or duplicate ones, in no
// particular order. Nothing here is atomic.
package storage

import (
	"context"
	"errors"

	"github.com/amaydixit11/urlshare/internal/slot"
)

// Store is the substrate interface the share session needs.
type Store interface {
	// Put adds a blob under key. It does not remove older blobs.
	Put(ctx context.Context, key slot.Key, blob []byte) error

	// Get returns every blob currently visible under key.
	// An empty result with a nil error means nothing is stored.
	Get(ctx context.Context, key slot.Key) ([][]byte, error)

	// Close releases all resources
	Close() error
}

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("store closed")

// SubstrateError wraps any failure reported by a store.
type SubstrateError struct {
	Op  string // "put" or "get"
	Err error
}

func (e *SubstrateError) Error() string {
	return "substrate " + e.Op + " failed: " + e.Err.Error()
}

func (e *SubstrateError) Unwrap() error {
	return e.Err
}

// Wrap tags err as a substrate failure. Already wrapped errors pass through.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *SubstrateError
	if errors.As(err, &se) {
		return err
	}
	return &SubstrateError{Op: op, Err: err}
}

// IsSubstrate reports whether err came from a store.
func IsSubstrate(err error) bool {
	var se *SubstrateError
	return errors.As(err, &se)
}
