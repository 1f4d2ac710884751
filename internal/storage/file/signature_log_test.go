package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"twirvo-sync/internal/storage"
)

func TestSignatureLog_AppendAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.txt")
	ctx := context.Background()

	log, err := NewSignatureLog(path)
	if err != nil {
		t.Fatalf("NewSignatureLog failed: %v", err)
	}
	for _, sig := range []string{"sig1", "sig2"} {
		if err := log.Append(ctx, sig); err != nil {
			t.Fatalf("Append(%s) failed: %v", sig, err)
		}
	}

	// A fresh instance over the same file must see the same log.
	reloaded, err := NewSignatureLog(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	sigs, err := reloaded.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{"sig1", "sig2"}
	if !reflect.DeepEqual(sigs, want) {
		t.Errorf("List = %v, want %v", sigs, want)
	}
}

func TestSignatureLog_DuplicateKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.txt")
	ctx := context.Background()

	log, err := NewSignatureLog(path)
	if err != nil {
		t.Fatalf("NewSignatureLog failed: %v", err)
	}
	if err := log.Append(ctx, "sig1"); err != nil {
		t.Fatalf("First append failed: %v", err)
	}
	if err := log.Append(ctx, "sig1"); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("err = %v, want ErrDuplicateKey", err)
	}
}

func TestSignatureLog_MissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.txt")

	log, err := NewSignatureLog(path)
	if err != nil {
		t.Fatalf("NewSignatureLog failed: %v", err)
	}
	sigs, err := log.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(sigs) != 0 {
		t.Errorf("List = %v, want empty", sigs)
	}
}

func TestSignatureLog_SkipsBlankAndDuplicateLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.txt")
	content := "sig1\n\n  sig2  \nsig1\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	log, err := NewSignatureLog(path)
	if err != nil {
		t.Fatalf("NewSignatureLog failed: %v", err)
	}
	sigs, err := log.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{"sig1", "sig2"}
	if !reflect.DeepEqual(sigs, want) {
		t.Errorf("List = %v, want %v", sigs, want)
	}
}

func TestSignatureLog_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "ledger.txt")

	log, err := NewSignatureLog(path)
	if err != nil {
		t.Fatalf("NewSignatureLog failed: %v", err)
	}
	if err := log.Append(context.Background(), "sig1"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("log file was not created: %v", err)
	}
}
