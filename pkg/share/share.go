// Package share publishes and fetches a single encrypted, versioned value
// under a slot shared by everyone who holds the same credential.
//
// Example usage:
//
//	s, err := share.New(share.Config{
//	    Identity:   "alice@example.com",
//	    Passphrase: "correct horse",
//	    Store:      store,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	rec, err := s.Publish(ctx, []byte("https://example.com"))
//	current, ok, err := s.Fetch(ctx)
package share

import (
	"context"
	"fmt"

	"github.com/amaydixit11/urlshare/internal/envelope"
	"github.com/amaydixit11/urlshare/internal/logging"
	"github.com/amaydixit11/urlshare/internal/reconcile"
	"github.com/amaydixit11/urlshare/internal/record"
	"github.com/amaydixit11/urlshare/internal/slot"
	"github.com/amaydixit11/urlshare/internal/storage"
	"github.com/amaydixit11/urlshare/internal/storage/memory"
	"github.com/amaydixit11/urlshare/pkg/crypto"
)

// Record is a versioned payload.
type Record = envelope.Record

// Store is the multi-value key-value substrate slots live in.
type Store = storage.Store

// SlotKey addresses a slot in the Store.
type SlotKey = slot.Key

// Logger receives diagnostics. logging.Logger implements it.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
}

// Config holds everything a Session needs. There is no global state.
type Config struct {
	Identity   string
	Passphrase string

	// KeyLength is the AES key size in bytes: 16, 24 or 32.
	// Default: 32
	KeyLength int

	// KDF overrides the key derivation parameters.
	// Default: crypto.DefaultKDFParams
	KDF crypto.KDFParams

	// RejectPlaintext ignores unencrypted values left by legacy writers.
	RejectPlaintext bool

	// Store is the substrate. Required unless InMemory is set.
	Store Store

	// InMemory uses a private in-process store (for testing).
	InMemory bool

	// Logger (optional)
	Logger Logger
}

// Session is bound to one credential and one store. It holds no decrypted
// state and is safe for concurrent use.
type Session struct {
	key       slot.Key
	transport record.Transport
	store     Store
	logger    Logger
}

// New validates cfg and derives the slot key.
func New(cfg Config) (*Session, error) {
	cred := slot.Credential{Identity: cfg.Identity, Passphrase: cfg.Passphrase}
	key, err := slot.Derive(cred)
	if err != nil {
		return nil, err
	}

	if cfg.KeyLength == 0 {
		cfg.KeyLength = crypto.KeySize
	}
	if !crypto.ValidKeyLength(cfg.KeyLength) {
		return nil, crypto.ErrInvalidKeyLength
	}
	if cfg.KDF.Iterations == 0 {
		cfg.KDF.Iterations = crypto.DefaultKDFParams.Iterations
	}
	if cfg.KDF.Hash == nil {
		cfg.KDF.Hash = crypto.DefaultKDFParams.Hash
	}

	store := cfg.Store
	if store == nil {
		if !cfg.InMemory {
			return nil, ErrNoStore
		}
		store = memory.New()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard
	}

	logger.Debugf("Slot key: %s", key)

	return &Session{
		key: key,
		transport: record.Transport{
			Cipher:          crypto.Cipher{KeyLength: cfg.KeyLength, KDF: cfg.KDF},
			Passphrase:      []byte(cfg.Passphrase),
			RejectPlaintext: cfg.RejectPlaintext,
		},
		store:  store,
		logger: logger,
	}, nil
}

// SlotKey returns the key this session reads and writes.
func (s *Session) SlotKey() SlotKey {
	return s.key
}

// Fetch returns the current record, or ok == false when the slot is empty
// or holds nothing readable. Store failures are returned as
// *storage.SubstrateError, never as an empty result.
func (s *Session) Fetch(ctx context.Context) (Record, bool, error) {
	rec, ok, _, err := s.current(ctx)
	return rec, ok, err
}

// FetchReport is Fetch plus the per-candidate counts.
func (s *Session) FetchReport(ctx context.Context) (Record, bool, reconcile.Report, error) {
	return s.current(ctx)
}

// Publish writes payload with the version after the current one.
// Concurrent publishers that read the same current version race; the
// substrate keeps both and readers break the tie.
func (s *Session) Publish(ctx context.Context, payload []byte) (Record, error) {
	current, ok, _, err := s.current(ctx)
	if err != nil {
		return Record{}, err
	}

	version, err := reconcile.NextVersion(current, ok)
	if err != nil {
		s.logger.Warnf("Slot %s is at version %d and cannot advance", s.key.Short(), current.Version)
		return Record{}, err
	}

	next := Record{
		Version: version,
		Payload: append([]byte(nil), payload...),
	}

	blob, err := s.transport.Seal(next)
	if err != nil {
		return Record{}, fmt.Errorf("failed to seal record: %w", err)
	}

	if err := s.store.Put(ctx, s.key, blob); err != nil {
		return Record{}, storage.Wrap("put", err)
	}

	s.logger.Infof("Published version %d (%d bytes) to %s", next.Version, len(next.Payload), s.key.Short())
	return next, nil
}

// Close closes the underlying store.
func (s *Session) Close() error {
	return s.store.Close()
}

func (s *Session) current(ctx context.Context) (Record, bool, reconcile.Report, error) {
	blobs, err := s.store.Get(ctx, s.key)
	if err != nil {
		return Record{}, false, reconcile.Report{Winner: -1}, storage.Wrap("get", err)
	}

	rec, ok, report := reconcile.SelectCurrent(s.transport, blobs)

	s.logger.Debugf("Slot %s: %d candidates (%d encrypted, %d plain, %d unreadable)",
		s.key.Short(), report.Candidates, report.Encrypted, report.Plain, report.Unreadable)

	switch report.State() {
	case reconcile.Empty:
		s.logger.Infof("Slot %s is empty", s.key.Short())
	case reconcile.Unreadable:
		s.logger.Warnf("Slot %s holds %d values but none could be read (wrong passphrase?)",
			s.key.Short(), report.Candidates)
	default:
		if report.WinnerKind == record.Plain {
			s.logger.Warnf("Current value of slot %s is unencrypted", s.key.Short())
		}
		s.logger.Debugf("Selected version %d", rec.Version)
	}

	return rec, ok, report, nil
}
