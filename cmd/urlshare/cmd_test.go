package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/amaydixit11/urlshare/internal/config"
	"github.com/amaydixit11/urlshare/internal/logging"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	getQR, getOpen, storeFlag = false, false, ""

	err := rootCmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()
	t.Setenv(config.EnvIdentity, "")
	t.Setenv(config.EnvPassphrase, "")
	t.Setenv("QUTE_FIFO", "")

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Identity = "alice@example.com"
	cfg.Passphrase = "s3cret"
	cfg.Store = config.StoreSQLite
	cfg.SQLite.Path = filepath.Join(dir, "slots.db")

	path := filepath.Join(dir, "config.json")
	if err := config.Save(path, cfg); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}
	return path
}

func TestShareAndGet(t *testing.T) {
	path := writeConfig(t)

	if _, err := runCmd(t, "--config", path, "get"); !errors.Is(err, errNoURL) {
		t.Fatalf("expected errNoURL on empty slot, got %v", err)
	}

	out, err := runCmd(t, "--config", path, "share", "https://example.com")
	if err != nil {
		t.Fatalf("share failed: %v", err)
	}
	if !strings.Contains(out, "URL shared") {
		t.Errorf("unexpected share output %q", out)
	}

	out, err = runCmd(t, "--config", path, "get")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if out != "https://example.com\n" {
		t.Errorf("unexpected get output %q", out)
	}

	runCmd(t, "--config", path, "share", "https://example.org")
	out, err = runCmd(t, "--config", path, "get", "--qr")
	if err != nil {
		t.Fatalf("get --qr failed: %v", err)
	}
	if !strings.HasPrefix(out, "https://example.org\n") || len(out) < 100 {
		t.Errorf("expected URL followed by a QR code, got %q", out)
	}
}

func TestShareWithoutURLIsNoop(t *testing.T) {
	path := writeConfig(t)

	out, err := runCmd(t, "--config", path, "share")
	if err != nil || out != "" {
		t.Errorf("expected silent no-op, got %q, %v", out, err)
	}
}

func TestSlot(t *testing.T) {
	path := writeConfig(t)

	out, err := runCmd(t, "--config", path, "slot")
	if err != nil {
		t.Fatalf("slot failed: %v", err)
	}
	first := strings.TrimSpace(out)
	if first == "" {
		t.Fatal("empty slot key")
	}

	out, _ = runCmd(t, "--config", path, "slot")
	if strings.TrimSpace(out) != first {
		t.Error("slot key should be deterministic")
	}
}

func TestUnknownStore(t *testing.T) {
	path := writeConfig(t)

	if _, err := runCmd(t, "--config", path, "--store", "carrier-pigeon", "get"); err == nil {
		t.Error("unknown store should fail")
	}
}

func TestGetWithUnsafeURLOnlyMessagesQute(t *testing.T) {
	path := writeConfig(t)
	fifo := filepath.Join(t.TempDir(), "qute-fifo")
	if err := os.WriteFile(fifo, nil, 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := runCmd(t, "--config", path, "share", "https://example.com/a b"); err != nil {
		t.Fatalf("share failed: %v", err)
	}

	t.Setenv("QUTE_FIFO", fifo)
	out, err := runCmd(t, "--config", path, "get")
	if err != nil {
		t.Fatalf("get should succeed even when qutebrowser refuses the url: %v", err)
	}
	if out != "https://example.com/a b\n" {
		t.Errorf("unexpected get output %q", out)
	}

	got, _ := os.ReadFile(fifo)
	if strings.Contains(string(got), ":open") {
		t.Errorf("unsafe url was sent to qutebrowser: %q", got)
	}
	if !strings.Contains(string(got), ":message-info 'urlshare: URL found: https://example.com/a b'") {
		t.Errorf("expected a status message, got %q", got)
	}
}

func TestStartSpinnerVerboseOnlyLogs(t *testing.T) {
	var buf bytes.Buffer
	oldLogger, oldVerbose := Logger, verbose
	defer func() { Logger, verbose = oldLogger, oldVerbose }()

	verbose = true
	Logger = logging.Logger{Verbose: true, Out: &buf}

	stop := startSpinner("Looking up URL...")
	stop()

	if !strings.Contains(buf.String(), "[info] Looking up URL...") {
		t.Errorf("expected the message to be logged, got %q", buf.String())
	}
}
