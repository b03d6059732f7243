package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/amaydixit11/urlshare/internal/slot"
	"github.com/amaydixit11/urlshare/internal/storage"
)

func testKey(t *testing.T, id string) slot.Key {
	t.Helper()
	k, err := slot.Derive(slot.Credential{Identity: id, Passphrase: "pw"})
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	return k
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close()

	k := testKey(t, "a")
	other := testKey(t, "b")

	got, err := s.Get(ctx, k)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty slot, got %d values", len(got))
	}

	for _, v := range []string{"one", "two", "one"} {
		if err := s.Put(ctx, k, []byte(v)); err != nil {
			t.Fatalf("put failed: %v", err)
		}
	}

	got, _ = s.Get(ctx, k)
	if len(got) != 3 || string(got[0]) != "one" || string(got[2]) != "one" {
		t.Errorf("unexpected values %q", got)
	}
	if s.Len(other) != 0 {
		t.Error("other slot should be untouched")
	}
}

func TestValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	s := New()
	k := testKey(t, "a")

	blob := []byte("abc")
	s.Put(ctx, k, blob)
	blob[0] = 'X'

	got, _ := s.Get(ctx, k)
	got[0][1] = 'Y'

	again, _ := s.Get(ctx, k)
	if string(again[0]) != "abc" {
		t.Errorf("store leaked its buffers: %q", again[0])
	}
}

func TestClosed(t *testing.T) {
	ctx := context.Background()
	s := New()
	k := testKey(t, "a")
	s.Close()

	if err := s.Put(ctx, k, []byte("x")); !errors.Is(err, storage.ErrClosed) || !storage.IsSubstrate(err) {
		t.Errorf("put after close: %v", err)
	}
	if _, err := s.Get(ctx, k); !errors.Is(err, storage.ErrClosed) {
		t.Errorf("get after close: %v", err)
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New()
	if _, err := s.Get(ctx, testKey(t, "a")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
