package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/amaydixit11/urlshare/internal/storage/dht"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvIdentity, "")
	t.Setenv(EnvPassphrase, "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	def := DefaultConfig()
	if cfg.Store != def.Store || cfg.KeyLength != 32 || cfg.KDF.Iterations != 1000 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestSaveAndLoad(t *testing.T) {
	t.Setenv(EnvIdentity, "")
	t.Setenv(EnvPassphrase, "")
	path := filepath.Join(t.TempDir(), "conf", "config.json")

	cfg := DefaultConfig()
	cfg.Identity = "alice@example.com"
	cfg.Passphrase = "s3cret"
	cfg.Store = StoreSQLite
	cfg.DHT.Bootstrap = []string{"/ip4/1.2.3.4/tcp/4001/p2p/12D3KooWGzxzKZYveHXtpG6AsrUJBcWxHBFS2HsEoGTxrMLvKXtf"}

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected mode 0600, got %o", info.Mode().Perm())
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Identity != cfg.Identity || loaded.Passphrase != cfg.Passphrase || loaded.Store != StoreSQLite {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
	if len(loaded.DHT.Bootstrap) != 1 {
		t.Errorf("bootstrap lost: %v", loaded.DHT.Bootstrap)
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	t.Setenv(EnvIdentity, "")
	t.Setenv(EnvPassphrase, "")
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte(`{"identity": "bob", "kdf": {"iterations": 5000}}`), 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Identity != "bob" || cfg.KDF.Iterations != 5000 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.KDF.Hash != "sha1" || cfg.DHT.ProtocolPrefix != dht.DefaultProtocolPrefix {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte(`{"identity": "file-id", "passphrase": "file-pw"}`), 0600)

	t.Setenv(EnvIdentity, "env-id")
	t.Setenv(EnvPassphrase, "env-pw")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Identity != "env-id" || cfg.Passphrase != "env-pw" {
		t.Errorf("env did not override file: %+v", cfg)
	}
}

func TestSchemaRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"unknown field", `{"colour": "blue"}`},
		{"bad key length", `{"key_length": 20}`},
		{"bad store", `{"store": "s3"}`},
		{"bad hash", `{"kdf": {"hash": "md5"}}`},
		{"zero iterations", `{"kdf": {"iterations": 0}}`},
		{"bad mode", `{"dht": {"mode": "relay"}}`},
		{"bootstrap without peer id", `{"dht": {"bootstrap": ["/ip4/1.2.3.4/tcp/4001"]}}`},
		{"bad timeout", `{"dht": {"timeout": "soon"}}`},
		{"wrong type", `{"identity": 42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			os.WriteFile(path, []byte(tt.json), 0600)

			_, err := Load(path)
			var schemaErr *SchemaError
			if !errors.As(err, &schemaErr) || len(schemaErr.Errors) == 0 {
				t.Errorf("expected schema error, got %v", err)
			}
		})
	}
}

func TestMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte(`{"identity": `), 0600)

	if _, err := Load(path); err == nil {
		t.Error("truncated JSON should fail")
	}
}

func TestKDFParams(t *testing.T) {
	cfg := DefaultConfig()
	p, err := cfg.KDFParams()
	if err != nil || p.Iterations != 1000 || p.Hash == nil {
		t.Errorf("unexpected params %+v err=%v", p, err)
	}

	cfg.KDF.Hash = "md5"
	if _, err := cfg.KDFParams(); err == nil {
		t.Error("unknown hash should fail")
	}
}

func TestDHTStoreConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DHT.Timeout = "1500ms"
	cfg.DHT.Mode = "server"

	dc, err := cfg.DHTStoreConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dc.QueryTimeout != 1500*time.Millisecond || dc.Mode != dht.ModeServer {
		t.Errorf("unexpected dht config %+v", dc)
	}

	cfg.DHT.Timeout = "forever"
	if _, err := cfg.DHTStoreConfig(); err == nil {
		t.Error("bad timeout should fail")
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandHome("~/x/y.db"); got != filepath.Join(home, "x", "y.db") {
		t.Errorf("got %s", got)
	}
	if got := expandHome("/abs/path"); got != "/abs/path" {
		t.Errorf("absolute path changed: %s", got)
	}
}
