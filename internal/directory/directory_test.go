package directory

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"twirvo-sync/internal/storage/memory"
)

var longSig = "R" + strings.Repeat("x", 87)

func TestSignaturesMergeOrder(t *testing.T) {
	log := memory.NewSignatureLog()
	ctx := context.Background()

	for _, sig := range []string{"A", "B"} {
		if err := log.Append(ctx, sig); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	d := New(log)
	d.AddPending("C")
	d.SetRouteSignature(longSig)

	sigs, err := d.Signatures(ctx)
	if err != nil {
		t.Fatalf("Signatures failed: %v", err)
	}
	want := []string{"A", "B", "C", longSig}
	if !reflect.DeepEqual(sigs, want) {
		t.Errorf("Signatures = %v, want %v", sigs, want)
	}
}

func TestSignaturesDeduplicate(t *testing.T) {
	log := memory.NewSignatureLog()
	ctx := context.Background()

	if err := log.Append(ctx, "A"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	d := New(log)
	d.AddPending("A")
	d.AddPending("B")
	d.AddPending("B")

	sigs, err := d.Signatures(ctx)
	if err != nil {
		t.Fatalf("Signatures failed: %v", err)
	}
	want := []string{"A", "B"}
	if !reflect.DeepEqual(sigs, want) {
		t.Errorf("Signatures = %v, want %v", sigs, want)
	}
}

func TestCommitMovesPendingIntoLog(t *testing.T) {
	log := memory.NewSignatureLog()
	ctx := context.Background()

	d := New(log)
	d.AddPending("A")

	if err := d.Commit(ctx, "A"); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	logged, err := log.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if !reflect.DeepEqual(logged, []string{"A"}) {
		t.Errorf("log = %v, want [A]", logged)
	}

	// The pending entry must be gone, not merged a second time.
	sigs, err := d.Signatures(ctx)
	if err != nil {
		t.Fatalf("Signatures failed: %v", err)
	}
	if !reflect.DeepEqual(sigs, []string{"A"}) {
		t.Errorf("Signatures = %v, want [A]", sigs)
	}
}

func TestCommitToleratesExistingLogEntry(t *testing.T) {
	log := memory.NewSignatureLog()
	ctx := context.Background()

	if err := log.Append(ctx, "A"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	d := New(log)
	d.AddPending("A")
	if err := d.Commit(ctx, "A"); err != nil {
		t.Fatalf("Commit of an already logged signature failed: %v", err)
	}
}

func TestSetRouteSignatureFilters(t *testing.T) {
	d := New(memory.NewSignatureLog())
	ctx := context.Background()

	d.SetRouteSignature("short")
	sigs, err := d.Signatures(ctx)
	if err != nil {
		t.Fatalf("Signatures failed: %v", err)
	}
	if len(sigs) != 0 {
		t.Errorf("short segment must not become a route signature, got %v", sigs)
	}

	d.SetRouteSignature("sim_" + strings.Repeat("x", 80))
	sigs, _ = d.Signatures(ctx)
	if len(sigs) != 0 {
		t.Errorf("simulated signature must not become a route signature, got %v", sigs)
	}

	d.SetRouteSignature(longSig)
	d.SetRouteSignature("")
	sigs, _ = d.Signatures(ctx)
	if len(sigs) != 0 {
		t.Errorf("clearing the route signature must empty the set, got %v", sigs)
	}
}

func TestAddPendingIgnoresEmpty(t *testing.T) {
	d := New(memory.NewSignatureLog())
	d.AddPending("")

	sigs, err := d.Signatures(context.Background())
	if err != nil {
		t.Fatalf("Signatures failed: %v", err)
	}
	if len(sigs) != 0 {
		t.Errorf("Signatures = %v, want empty", sigs)
	}
}
