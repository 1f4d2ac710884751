package memory

import (
	"context"
	"errors"
	"testing"

	"twirvo-sync/internal/storage"
)

func record(id string, ts int64) *storage.AuditRecord {
	return &storage.AuditRecord{
		ID:         id,
		Timestamp:  ts,
		Wallet:     "WalletAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA1",
		ActionKind: "post",
		Status:     "successful",
	}
}

func TestAuditLog_InsertAndListRecent(t *testing.T) {
	log := NewAuditLog()
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		if err := log.Insert(ctx, record(id, int64(100+i))); err != nil {
			t.Fatalf("Insert(%s) failed: %v", id, err)
		}
	}

	out, err := log.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 records, got %d", len(out))
	}
	if out[0].ID != "c" || out[2].ID != "a" {
		t.Errorf("order = %s,%s,%s, want newest first", out[0].ID, out[1].ID, out[2].ID)
	}
}

func TestAuditLog_ListRecentLimit(t *testing.T) {
	log := NewAuditLog()
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		if err := log.Insert(ctx, record(id, int64(100+i))); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	out, err := log.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(out) != 2 || out[0].ID != "c" {
		t.Errorf("limited list = %+v", out)
	}
}

func TestAuditLog_DuplicateKey(t *testing.T) {
	log := NewAuditLog()
	ctx := context.Background()

	if err := log.Insert(ctx, record("a", 100)); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := log.Insert(ctx, record("a", 200))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("err = %v, want ErrDuplicateKey", err)
	}
}

func TestAuditLog_InvalidInput(t *testing.T) {
	log := NewAuditLog()
	ctx := context.Background()

	if err := log.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("nil record: err = %v, want ErrInvalidInput", err)
	}
	if err := log.Insert(ctx, &storage.AuditRecord{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("empty id: err = %v, want ErrInvalidInput", err)
	}
}

func TestAuditLog_ListReturnsCopies(t *testing.T) {
	log := NewAuditLog()
	ctx := context.Background()

	if err := log.Insert(ctx, record("a", 100)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	out, _ := log.ListRecent(ctx, 1)
	out[0].Status = "mutated"

	again, _ := log.ListRecent(ctx, 1)
	if again[0].Status == "mutated" {
		t.Error("ListRecent must return copies, internal state was mutated")
	}
}
