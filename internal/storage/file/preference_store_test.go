package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"twirvo-sync/internal/storage"
)

func TestPreferenceStore_SetAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	ctx := context.Background()

	store, err := NewPreferenceStore(path)
	if err != nil {
		t.Fatalf("NewPreferenceStore failed: %v", err)
	}
	if err := store.Set(ctx, "theme", "dark"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set(ctx, "filter", "newest"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	reloaded, err := NewPreferenceStore(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	v, err := reloaded.Get(ctx, "theme")
	if err != nil || v != "dark" {
		t.Errorf("Get(theme) = %q, %v, want dark", v, err)
	}
	v, err = reloaded.Get(ctx, "filter")
	if err != nil || v != "newest" {
		t.Errorf("Get(filter) = %q, %v, want newest", v, err)
	}
}

func TestPreferenceStore_GetNotFound(t *testing.T) {
	store, err := NewPreferenceStore(filepath.Join(t.TempDir(), "prefs.json"))
	if err != nil {
		t.Fatalf("NewPreferenceStore failed: %v", err)
	}

	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPreferenceStore_ClearPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	ctx := context.Background()

	store, err := NewPreferenceStore(path)
	if err != nil {
		t.Fatalf("NewPreferenceStore failed: %v", err)
	}
	if err := store.Set(ctx, "theme", "dark"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	reloaded, err := NewPreferenceStore(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if _, err := reloaded.Get(ctx, "theme"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("after Clear, err = %v, want ErrNotFound", err)
	}
}

func TestPreferenceStore_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	store, err := NewPreferenceStore(path)
	if err != nil {
		t.Fatalf("corrupt file must not fail the open: %v", err)
	}
	if _, err := store.Get(context.Background(), "theme"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPreferenceStore_SetEmptyKey(t *testing.T) {
	store, err := NewPreferenceStore(filepath.Join(t.TempDir(), "prefs.json"))
	if err != nil {
		t.Fatalf("NewPreferenceStore failed: %v", err)
	}

	if err := store.Set(context.Background(), "", "v"); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}
