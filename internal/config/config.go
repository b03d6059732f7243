// Package config loads and saves the urlshare configuration file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/amaydixit11/urlshare/internal/storage/dht"
	"github.com/amaydixit11/urlshare/internal/storage/sqlite"
	"github.com/amaydixit11/urlshare/pkg/crypto"
)

const (
	EnvIdentity   = "URLSHARE_IDENTITY"
	EnvPassphrase = "URLSHARE_PASSPHRASE"
)

const (
	StoreDHT    = "dht"
	StoreSQLite = "sqlite"
)

type Config struct {
	Identity        string       `json:"identity"`
	Passphrase      string       `json:"passphrase,omitempty"`
	KeyLength       int          `json:"key_length"`
	KDF             KDFConfig    `json:"kdf"`
	RejectPlaintext bool         `json:"reject_plaintext"`
	Store           string       `json:"store"`
	SQLite          SQLiteConfig `json:"sqlite"`
	DHT             DHTConfig    `json:"dht"`
}

type KDFConfig struct {
	Iterations int    `json:"iterations"`
	Hash       string `json:"hash"`
}

type SQLiteConfig struct {
	Path      string `json:"path"`
	MaxValues int    `json:"max_values"`
}

type DHTConfig struct {
	ListenAddrs    []string `json:"listen_addrs,omitempty"`
	Bootstrap      []string `json:"bootstrap,omitempty"`
	ProtocolPrefix string   `json:"protocol_prefix"`
	Mode           string   `json:"mode"`
	Timeout        string   `json:"timeout"`
	IdentityFile   string   `json:"identity_file"`
}

// DefaultDir returns ~/.urlshare, or .urlshare if the home directory is unknown.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".urlshare"
	}
	return filepath.Join(home, ".urlshare")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.json")
}

// DefaultConfig returns a config with every field but the credential set.
func DefaultConfig() Config {
	dir := DefaultDir()
	return Config{
		KeyLength: crypto.KeySize,
		KDF: KDFConfig{
			Iterations: crypto.DefaultKDFParams.Iterations,
			Hash:       "sha1",
		},
		Store: StoreDHT,
		SQLite: SQLiteConfig{
			Path:      filepath.Join(dir, "slots.db"),
			MaxValues: 16,
		},
		DHT: DHTConfig{
			ListenAddrs:    dht.DefaultConfig().ListenAddrs,
			ProtocolPrefix: dht.DefaultProtocolPrefix,
			Mode:           string(dht.ModeClient),
			Timeout:        "30s",
			IdentityFile:   filepath.Join(dir, "identity.key"),
		},
	}
}

// Load reads path over the defaults and applies environment overrides.
// A missing file is not an error; the defaults are used.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := validate(data); err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnv()
	cfg.SQLite.Path = expandHome(cfg.SQLite.Path)
	cfg.DHT.IdentityFile = expandHome(cfg.DHT.IdentityFile)
	return cfg, nil
}

// Save writes cfg to path, readable only by the owner since it may hold the
// passphrase.
func Save(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := validate(data); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvIdentity); v != "" {
		c.Identity = v
	}
	if v := os.Getenv(EnvPassphrase); v != "" {
		c.Passphrase = v
	}
}

// KDFParams converts the kdf section for the cipher.
func (c Config) KDFParams() (crypto.KDFParams, error) {
	h, err := crypto.HashByName(c.KDF.Hash)
	if err != nil {
		return crypto.KDFParams{}, err
	}
	return crypto.KDFParams{Iterations: c.KDF.Iterations, Hash: h}, nil
}

// DHTTimeout parses dht.timeout.
func (c Config) DHTTimeout() (time.Duration, error) {
	if c.DHT.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.DHT.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid dht timeout %q: %w", c.DHT.Timeout, err)
	}
	return d, nil
}

// DHTStoreConfig builds the DHT substrate config. The host key is loaded
// separately.
func (c Config) DHTStoreConfig() (dht.Config, error) {
	timeout, err := c.DHTTimeout()
	if err != nil {
		return dht.Config{}, err
	}
	return dht.Config{
		ListenAddrs:    c.DHT.ListenAddrs,
		BootstrapPeers: c.DHT.Bootstrap,
		ProtocolPrefix: c.DHT.ProtocolPrefix,
		Mode:           dht.Mode(c.DHT.Mode),
		QueryTimeout:   timeout,
	}, nil
}

// SQLiteStoreConfig builds the sqlite substrate config.
func (c Config) SQLiteStoreConfig() sqlite.Config {
	return sqlite.Config{
		Path:             c.SQLite.Path,
		MaxValuesPerSlot: c.SQLite.MaxValues,
	}
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
