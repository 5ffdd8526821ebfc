package kv_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/haivivi/callbridge/pkg/kv"
)

func newBadgerStore(t *testing.T, opts *kv.Options) kv.Store {
	t.Helper()
	s, err := kv.NewBadger(kv.BadgerOptions{
		Options:  opts,
		InMemory: true,
	})
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBadgerRequiresDir(t *testing.T) {
	if _, err := kv.NewBadger(kv.BadgerOptions{}); err == nil {
		t.Fatal("expected error without Dir")
	}
}

func TestBadgerPersistence(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := kv.NewBadger(kv.BadgerOptions{Dir: dir})
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	if err := s.Set(ctx, kv.Key{"call", "CA1"}, []byte("rec")); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = kv.NewBadger(kv.BadgerOptions{Dir: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.Get(ctx, kv.Key{"call", "CA1"})
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "rec" {
		t.Fatalf("Get = %q", got)
	}
}

func TestBadgerTTL(t *testing.T) {
	s := newBadgerStore(t, &kv.Options{TTL: 3 * time.Second})
	ctx := context.Background()

	if err := s.Set(ctx, kv.Key{"short"}, []byte("v")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, kv.Key{"short"}); err != nil {
		t.Fatalf("Get before expiry: %v", err)
	}
	time.Sleep(4 * time.Second)
	if _, err := s.Get(ctx, kv.Key{"short"}); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after TTL, got %v", err)
	}
}
