package memory

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"twirvo-sync/internal/storage"
)

func TestSignatureLog_AppendAndList(t *testing.T) {
	log := NewSignatureLog()
	ctx := context.Background()

	for _, sig := range []string{"sig1", "sig2", "sig3"} {
		if err := log.Append(ctx, sig); err != nil {
			t.Fatalf("Append(%s) failed: %v", sig, err)
		}
	}

	sigs, err := log.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{"sig1", "sig2", "sig3"}
	if !reflect.DeepEqual(sigs, want) {
		t.Errorf("List = %v, want %v", sigs, want)
	}
}

func TestSignatureLog_DuplicateKey(t *testing.T) {
	log := NewSignatureLog()
	ctx := context.Background()

	if err := log.Append(ctx, "sig1"); err != nil {
		t.Fatalf("First append failed: %v", err)
	}

	err := log.Append(ctx, "sig1")
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("err = %v, want ErrDuplicateKey", err)
	}

	sigs, _ := log.List(ctx)
	if len(sigs) != 1 {
		t.Errorf("duplicate append must not grow the log, got %d entries", len(sigs))
	}
}

func TestSignatureLog_EmptySignature(t *testing.T) {
	log := NewSignatureLog()

	err := log.Append(context.Background(), "")
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestSignatureLog_ListReturnsCopy(t *testing.T) {
	log := NewSignatureLog()
	ctx := context.Background()

	if err := log.Append(ctx, "sig1"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	sigs, _ := log.List(ctx)
	sigs[0] = "mutated"

	again, _ := log.List(ctx)
	if again[0] != "sig1" {
		t.Error("List must return a copy, internal state was mutated")
	}
}
