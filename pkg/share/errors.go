package share

import (
	"errors"

	"github.com/amaydixit11/urlshare/internal/reconcile"
	"github.com/amaydixit11/urlshare/internal/slot"
	"github.com/amaydixit11/urlshare/internal/storage"
	"github.com/amaydixit11/urlshare/pkg/crypto"
)

// ErrNoStore is returned by New when no substrate was configured.
var ErrNoStore = errors.New("share: no store configured")

var (
	ErrEmptyCredential  = slot.ErrEmptyCredential
	ErrInvalidKeyLength = crypto.ErrInvalidKeyLength

	// ErrVersionExhausted is returned by Publish when the current version is
	// the largest representable one.
	ErrVersionExhausted = reconcile.ErrVersionExhausted
)

// SubstrateError reports a failed store operation.
type SubstrateError = storage.SubstrateError

// IsSubstrate reports whether err came from the store.
func IsSubstrate(err error) bool {
	return storage.IsSubstrate(err)
}
