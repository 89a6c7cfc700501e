package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	store, err := NewStore("overlaybox", t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Expected no error for missing file, got %v", err)
	}
	if got != Default() {
		t.Fatalf("Expected defaults, got %+v", got)
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	store, err := NewStore("overlaybox", dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	want := Settings{WidgetX: 640, WidgetY: 42}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got != want {
		t.Fatalf("Expected %+v, got %+v", want, got)
	}
}

func TestLoadCorruptFileFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore("overlaybox", dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if err := os.WriteFile(store.Path(), []byte("{not yaml: ["), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	got, err := store.Load()
	if err == nil {
		t.Fatal("Expected a parse error for corrupt settings")
	}
	if got != Default() {
		t.Fatalf("Expected defaults on corrupt file, got %+v", got)
	}
}
