// Package slot derives the storage address for a credential pair.
package slot

import (
	"errors"
	"fmt"

	"github.com/multiformats/go-multihash"
)

// KeySize is the length of a slot key: multihash code, digest length, digest.
const KeySize = 2 + 32

var ErrEmptyCredential = errors.New("identity and passphrase must both be set")

// Credential is the shared secret two peers agree on out of band.
type Credential struct {
	Identity   string
	Passphrase string
}

// Validate checks that both halves are present.
func (c Credential) Validate() error {
	if c.Identity == "" || c.Passphrase == "" {
		return ErrEmptyCredential
	}
	return nil
}

// Key addresses a slot in the substrate. It is a SHA2-256 multihash.
type Key struct {
	mh multihash.Multihash
}

// Derive hashes identity||passphrase into a slot key.
func Derive(c Credential) (Key, error) {
	if err := c.Validate(); err != nil {
		return Key{}, err
	}

	mh, err := multihash.Sum([]byte(c.Identity+c.Passphrase), multihash.SHA2_256, -1)
	if err != nil {
		return Key{}, fmt.Errorf("failed to hash credential: %w", err)
	}
	return Key{mh: mh}, nil
}

// FromBytes parses a key previously produced by Bytes.
func FromBytes(b []byte) (Key, error) {
	dec, err := multihash.Decode(b)
	if err != nil {
		return Key{}, fmt.Errorf("invalid slot key: %w", err)
	}
	if dec.Code != multihash.SHA2_256 || len(b) != KeySize {
		return Key{}, fmt.Errorf("invalid slot key: unexpected hash %s", dec.Name)
	}
	mh := make(multihash.Multihash, len(b))
	copy(mh, b)
	return Key{mh: mh}, nil
}

// Bytes returns a copy of the raw key.
func (k Key) Bytes() []byte {
	b := make([]byte, len(k.mh))
	copy(b, k.mh)
	return b
}

// IsZero reports whether k was never derived.
func (k Key) IsZero() bool {
	return len(k.mh) == 0
}

// String renders the key in base58.
func (k Key) String() string {
	if k.IsZero() {
		return ""
	}
	return k.mh.B58String()
}

// Short is a log-friendly prefix of String.
func (k Key) Short() string {
	s := k.String()
	if len(s) > 12 {
		return s[:12]
	}
	return s
}
