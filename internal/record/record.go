// Package record turns envelopes into storable blobs and back.
//
// Writes always go through the cipher. Reads try two explicit branches in
// order: the legacy plaintext branch (an unencrypted envelope stored as-is)
// and the encrypted branch. The outcome is a tagged Result rather than an
// error so reconciliation can count and log each kind.
package record

import (
	"errors"

	"github.com/amaydixit11/urlshare/internal/envelope"
	"github.com/amaydixit11/urlshare/pkg/crypto"
)

// ErrUnreadable is returned for a blob that neither branch could read.
// It carries no detail about which check failed.
var ErrUnreadable = errors.New("record unreadable")

// Kind tags how a blob was read.
type Kind uint8

const (
	Unreadable Kind = iota
	Plain
	Encrypted
)

func (k Kind) String() string {
	switch k {
	case Plain:
		return "plain"
	case Encrypted:
		return "encrypted"
	default:
		return "unreadable"
	}
}

// Result is the outcome of reading one blob.
type Result struct {
	Kind   Kind
	Record envelope.Record
	Err    error // ErrUnreadable when Kind == Unreadable
}

// OK reports whether the blob yielded a record.
func (r Result) OK() bool {
	return r.Kind != Unreadable
}

// Transport seals and reads blobs for a single passphrase.
type Transport struct {
	Cipher     crypto.Cipher
	Passphrase []byte

	// RejectPlaintext disables the legacy unencrypted read branch.
	RejectPlaintext bool
}

// Seal encodes and encrypts a record.
func (t Transport) Seal(r envelope.Record) ([]byte, error) {
	plain, err := envelope.Encode(r)
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(plain)

	return t.Cipher.Seal(plain, t.Passphrase)
}

// Read decodes a blob through the plaintext branch, then the encrypted one.
func (t Transport) Read(blob []byte) Result {
	if !t.RejectPlaintext {
		if r, err := envelope.Decode(blob); err == nil {
			return Result{Kind: Plain, Record: r}
		}
	}

	plain, err := t.Cipher.Open(blob, t.Passphrase)
	if err != nil {
		return unreadable()
	}
	defer crypto.ClearBytes(plain)

	r, err := envelope.Decode(plain)
	if err != nil {
		return unreadable()
	}
	return Result{Kind: Encrypted, Record: r.Clone()}
}

// Open is Read for callers that want an error instead of a Result.
func (t Transport) Open(blob []byte) (envelope.Record, error) {
	res := t.Read(blob)
	if !res.OK() {
		return envelope.Record{}, res.Err
	}
	return res.Record, nil
}

func unreadable() Result {
	return Result{Kind: Unreadable, Err: ErrUnreadable}
}
