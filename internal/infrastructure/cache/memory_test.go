package cache

import (
	"testing"
	"time"
)

func TestMemoryStoreSetGet(t *testing.T) {
	store := NewMemoryStore()

	store.Set("k", "v", time.Minute)
	if got, ok := store.Get("k"); !ok || got != "v" {
		t.Fatalf("expected v got %q ok=%v", got, ok)
	}

	if _, ok := store.Get("missing"); ok {
		t.Fatalf("expected miss for unknown key")
	}
}

func TestMemoryStoreExpiration(t *testing.T) {
	store := NewMemoryStore()

	store.Set("k", "v", -time.Second)
	if _, ok := store.Get("k"); ok {
		t.Fatalf("expected expired key to miss")
	}
	if _, ok := store.Take("k"); ok {
		t.Fatalf("expected expired key not takeable")
	}
}

func TestMemoryStoreTake(t *testing.T) {
	store := NewMemoryStore()

	store.Set("k", "v", time.Minute)
	if got, ok := store.Take("k"); !ok || got != "v" {
		t.Fatalf("expected take to return v, got %q ok=%v", got, ok)
	}
	if _, ok := store.Take("k"); ok {
		t.Fatalf("expected second take to miss")
	}
	if _, ok := store.Get("k"); ok {
		t.Fatalf("expected key gone after take")
	}
}
