package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"twirvo-sync/internal/domain"
	"twirvo-sync/internal/storage"
)

func sampleTx(sig string) *domain.RawTransaction {
	blockTime := int64(1700000000)
	return &domain.RawTransaction{
		Signature:   sig,
		Sender:      "SenderWallet11111111111111111111111111111111",
		BlockTime:   &blockTime,
		AccountKeys: []string{"SenderWallet11111111111111111111111111111111"},
	}
}

func TestTxCache_FlushAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	ctx := context.Background()

	cache, err := NewTxCache(path)
	if err != nil {
		t.Fatalf("NewTxCache failed: %v", err)
	}
	if err := cache.Put(ctx, sampleTx("sig1")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := cache.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	reloaded, err := NewTxCache(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	tx, err := reloaded.Get(ctx, "sig1")
	if err != nil {
		t.Fatalf("Get after reload failed: %v", err)
	}
	if tx.Sender != "SenderWallet11111111111111111111111111111111" {
		t.Errorf("Sender = %q", tx.Sender)
	}
}

func TestTxCache_UnflushedEntriesAreLost(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	ctx := context.Background()

	cache, err := NewTxCache(path)
	if err != nil {
		t.Fatalf("NewTxCache failed: %v", err)
	}
	if err := cache.Put(ctx, sampleTx("sig1")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	reloaded, err := NewTxCache(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if _, err := reloaded.Get(ctx, "sig1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("unflushed entry survived the reload: err = %v", err)
	}
}

func TestTxCache_PutNeverOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	ctx := context.Background()

	cache, err := NewTxCache(path)
	if err != nil {
		t.Fatalf("NewTxCache failed: %v", err)
	}

	first := sampleTx("sig1")
	first.Sender = "original"
	if err := cache.Put(ctx, first); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	second := sampleTx("sig1")
	second.Sender = "imposter"
	if err := cache.Put(ctx, second); err != nil {
		t.Fatalf("Second put must not error: %v", err)
	}

	tx, _ := cache.Get(ctx, "sig1")
	if tx.Sender != "original" {
		t.Errorf("Sender = %q, first write must win", tx.Sender)
	}
}

func TestTxCache_StaleSchemaDropped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	blob := `{"version": "twirvo_cache_v0", "transactions": {"sig1": {"Signature": "sig1"}}}`
	if err := os.WriteFile(path, []byte(blob), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cache, err := NewTxCache(path)
	if err != nil {
		t.Fatalf("NewTxCache failed: %v", err)
	}
	n, _ := cache.Len(context.Background())
	if n != 0 {
		t.Errorf("stale schema must start empty, got %d entries", n)
	}
}

func TestTxCache_CorruptFileDropped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cache, err := NewTxCache(path)
	if err != nil {
		t.Fatalf("corrupt cache must not fail the open: %v", err)
	}
	n, _ := cache.Len(context.Background())
	if n != 0 {
		t.Errorf("corrupt cache must start empty, got %d entries", n)
	}
}

func TestTxCache_FlushCleanIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	ctx := context.Background()

	cache, err := NewTxCache(path)
	if err != nil {
		t.Fatalf("NewTxCache failed: %v", err)
	}
	if err := cache.Flush(ctx); err != nil {
		t.Fatalf("Flush on a clean cache failed: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Error("clean flush must not create the file")
	}
}
