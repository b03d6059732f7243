// Package dht stores slot values in a Kademlia DHT built on libp2p.
//
// Nodes speak their own DHT protocol (ProtocolPrefix); public IPFS peers
// reject records in namespaces they do not know. Any long-running
// `urlshare node` can serve as a bootstrap peer.
//
// Each peer keeps one value per key, chosen by the writer's wall clock (see
// frameValidator), not by record version. A writer whose clock runs behind
// can have a higher-versioned record replaced on peers that already hold a
// value stamped later; readers then see only the values Get still surfaces.
package dht

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	kaddht "github.com/libp2p/go-libp2p-kad-dht"
	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/libp2p/go-libp2p/core/routing"
	"github.com/multiformats/go-multiaddr"

	"github.com/amaydixit11/urlshare/internal/slot"
	"github.com/amaydixit11/urlshare/internal/storage"
)

// Namespace is the record namespace slot values live under.
const Namespace = "urlshare"

// DefaultProtocolPrefix keeps urlshare nodes in their own DHT.
const DefaultProtocolPrefix = "/urlshare"

var ErrNoPeers = errors.New("dht has no peers")

// Mode selects whether this node serves records for others.
type Mode string

const (
	ModeClient Mode = "client"
	ModeServer Mode = "server"
	ModeAuto   Mode = "auto"
)

// Config contains configuration for the DHT store
type Config struct {
	// ListenAddrs are the multiaddrs to listen on
	// Default: /ip4/0.0.0.0/tcp/0 (random port)
	ListenAddrs []string

	// BootstrapPeers are full multiaddrs (with /p2p/<id>) of known nodes
	BootstrapPeers []string

	// ProtocolPrefix for the DHT protocol
	// Default: /urlshare
	ProtocolPrefix string

	// Mode is client, server or auto
	// Default: client
	Mode Mode

	// BootstrapTimeout bounds how long Start waits for a first peer
	// Default: 15 seconds
	BootstrapTimeout time.Duration

	// QueryTimeout bounds a single Get or Put
	// Default: 30 seconds
	QueryTimeout time.Duration

	// PrivateKey is the identity key for the host
	// Optional (generated if nil)
	PrivateKey crypto.PrivKey

	// Logger for DHT events (optional)
	Logger Logger
}

// Logger interface for DHT events
type Logger interface {
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}

// DefaultConfig returns the default DHT configuration
func DefaultConfig() Config {
	return Config{
		ListenAddrs:      []string{"/ip4/0.0.0.0/tcp/0"},
		ProtocolPrefix:   DefaultProtocolPrefix,
		Mode:             ModeClient,
		BootstrapTimeout: 15 * time.Second,
		QueryTimeout:     30 * time.Second,
	}
}

func (m Mode) option() (kaddht.ModeOpt, error) {
	switch m {
	case "", ModeClient:
		return kaddht.ModeClient, nil
	case ModeServer:
		return kaddht.ModeServer, nil
	case ModeAuto:
		return kaddht.ModeAutoServer, nil
	default:
		return 0, fmt.Errorf("unknown dht mode %q", m)
	}
}

// Store is a storage.Store backed by a Kademlia DHT.
type Store struct {
	host      host.Host
	dht       *kaddht.IpfsDHT
	bootstrap []peer.AddrInfo
	cfg       Config
	logger    Logger

	ctx    context.Context
	cancel context.CancelFunc
}

var _ storage.Store = (*Store)(nil)

// New creates the libp2p host and DHT. Call Start before Get or Put.
func New(cfg Config) (*Store, error) {
	def := DefaultConfig()
	if len(cfg.ListenAddrs) == 0 {
		cfg.ListenAddrs = def.ListenAddrs
	}
	if cfg.ProtocolPrefix == "" {
		cfg.ProtocolPrefix = def.ProtocolPrefix
	}
	if cfg.BootstrapTimeout == 0 {
		cfg.BootstrapTimeout = def.BootstrapTimeout
	}
	if cfg.QueryTimeout == 0 {
		cfg.QueryTimeout = def.QueryTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = nopLogger{}
	}

	mode, err := cfg.Mode.option()
	if err != nil {
		return nil, err
	}

	bootstrap, err := ParseBootstrapPeers(cfg.BootstrapPeers)
	if err != nil {
		return nil, err
	}

	// Parse listen addresses
	listenAddrs := make([]multiaddr.Multiaddr, len(cfg.ListenAddrs))
	for i, addr := range cfg.ListenAddrs {
		ma, err := multiaddr.NewMultiaddr(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid listen address %s: %w", addr, err)
		}
		listenAddrs[i] = ma
	}

	opts := []libp2p.Option{libp2p.ListenAddrs(listenAddrs...)}
	if cfg.PrivateKey != nil {
		opts = append(opts, libp2p.Identity(cfg.PrivateKey))
	}

	h, err := libp2p.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create libp2p host: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	kadDHT, err := kaddht.New(ctx, h,
		kaddht.Mode(mode),
		kaddht.ProtocolPrefix(protocol.ID(cfg.ProtocolPrefix)),
		kaddht.NamespacedValidator(Namespace, frameValidator{}),
		kaddht.BootstrapPeers(bootstrap...),
	)
	if err != nil {
		cancel()
		h.Close()
		return nil, fmt.Errorf("failed to create DHT: %w", err)
	}

	return &Store{
		host:      h,
		dht:       kadDHT,
		bootstrap: bootstrap,
		cfg:       cfg,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Start connects to bootstrap peers and waits, up to BootstrapTimeout,
// for the routing table to hold at least one peer.
func (s *Store) Start(ctx context.Context) error {
	s.logger.Debugf("DHT: host %s", s.host.ID())

	var connected int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, pi := range s.bootstrap {
		if pi.ID == s.host.ID() {
			continue
		}
		wg.Add(1)
		go func(pi peer.AddrInfo) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, s.cfg.BootstrapTimeout)
			defer cancel()
			if err := s.host.Connect(cctx, pi); err != nil {
				s.logger.Debugf("DHT: bootstrap peer %s unreachable: %v", shortID(pi.ID), err)
				return
			}
			mu.Lock()
			connected++
			mu.Unlock()
		}(pi)
	}
	wg.Wait()

	s.logger.Infof("DHT: bootstrapping (%d of %d peers reachable)...", connected, len(s.bootstrap))
	if err := s.dht.Bootstrap(s.ctx); err != nil {
		return fmt.Errorf("failed to bootstrap DHT: %w", err)
	}

	if len(s.bootstrap) == 0 {
		// first node of a network; peers will find us
		return nil
	}

	wctx, cancel := context.WithTimeout(ctx, s.cfg.BootstrapTimeout)
	defer cancel()
	if err := s.WaitForPeers(wctx, 1); err != nil {
		s.logger.Infof("DHT: bootstrap timeout (0 peers). Lookups will fail until connectivity improves.")
		return nil
	}
	s.logger.Infof("DHT: routing table has %d peers", s.dht.RoutingTable().Size())
	return nil
}

// WaitForPeers blocks until the routing table holds n peers or ctx ends.
func (s *Store) WaitForPeers(ctx context.Context, n int) error {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		if s.dht.RoutingTable().Size() >= n {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.ctx.Done():
			return storage.ErrClosed
		case <-ticker.C:
		}
	}
}

// Put frames blob with the current time and publishes it under the slot.
func (s *Store) Put(ctx context.Context, key slot.Key, blob []byte) error {
	if len(blob) > MaxBlobSize {
		return storage.Wrap("put", fmt.Errorf("blob of %d bytes exceeds %d", len(blob), MaxBlobSize))
	}
	if s.dht.RoutingTable().Size() == 0 {
		return storage.Wrap("put", ErrNoPeers)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	if err := s.dht.PutValue(ctx, dhtKey(key), encodeFrame(time.Now(), blob)); err != nil {
		return storage.Wrap("put", err)
	}
	s.logger.Debugf("DHT: stored %d bytes under %s", len(blob), key.Short())
	return nil
}

// Get returns every distinct blob a value search turned up, oldest first.
func (s *Store) Get(ctx context.Context, key slot.Key) ([][]byte, error) {
	if s.dht.RoutingTable().Size() == 0 {
		return nil, storage.Wrap("get", ErrNoPeers)
	}

	qctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	valCh, err := s.dht.SearchValue(qctx, dhtKey(key))
	if err != nil {
		if errors.Is(err, routing.ErrNotFound) {
			return nil, nil
		}
		return nil, storage.Wrap("get", err)
	}

	seen := make(map[string]struct{})
	var blobs [][]byte
	for v := range valCh {
		f, err := decodeFrame(v)
		if err != nil {
			continue
		}
		if _, dup := seen[string(f.Blob)]; dup {
			continue
		}
		seen[string(f.Blob)] = struct{}{}
		blobs = append(blobs, f.Blob)
	}

	if err := ctx.Err(); err != nil {
		return nil, storage.Wrap("get", err)
	}
	if qctx.Err() != nil {
		s.logger.Debugf("DHT: search for %s timed out with %d values", key.Short(), len(blobs))
	}

	return blobs, nil
}

// ID returns this node's peer ID.
func (s *Store) ID() peer.ID {
	return s.host.ID()
}

// Addrs returns dialable multiaddrs including the /p2p/ component.
func (s *Store) Addrs() []string {
	addrs, err := peer.AddrInfoToP2pAddrs(&peer.AddrInfo{ID: s.host.ID(), Addrs: s.host.Addrs()})
	if err != nil {
		return nil
	}
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.String()
	}
	return out
}

// Peers returns the number of peers in the routing table.
func (s *Store) Peers() int {
	return s.dht.RoutingTable().Size()
}

// Close shuts down the DHT and the host.
func (s *Store) Close() error {
	s.cancel()
	err := s.dht.Close()
	if herr := s.host.Close(); err == nil {
		err = herr
	}
	return err
}

// ParseBootstrapPeers merges multiaddrs into one AddrInfo per peer.
func ParseBootstrapPeers(addrs []string) ([]peer.AddrInfo, error) {
	if len(addrs) == 0 {
		return nil, nil
	}
	maddrs := make([]multiaddr.Multiaddr, 0, len(addrs))
	for _, a := range addrs {
		ma, err := multiaddr.NewMultiaddr(a)
		if err != nil {
			return nil, fmt.Errorf("invalid bootstrap address %s: %w", a, err)
		}
		maddrs = append(maddrs, ma)
	}
	infos, err := peer.AddrInfosFromP2pAddrs(maddrs...)
	if err != nil {
		return nil, fmt.Errorf("invalid bootstrap address: %w", err)
	}
	return infos, nil
}

func dhtKey(k slot.Key) string {
	return "/" + Namespace + "/" + string(k.Bytes())
}

func shortID(id peer.ID) string {
	s := id.String()
	if len(s) > 8 {
		return s[len(s)-8:]
	}
	return s
}
