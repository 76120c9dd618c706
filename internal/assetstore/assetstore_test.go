package assetstore_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"soundframe/internal/assetstore"
	"soundframe/internal/services"
	"soundframe/internal/testsupport"
)

func newStore(t *testing.T) *assetstore.Store {
	t.Helper()
	store, err := assetstore.New(testsupport.NewConfig(t))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestWriteAndOpen(t *testing.T) {
	store := newStore(t)

	if store.Exists("clip.wav") {
		t.Fatal("asset should not exist yet")
	}
	if err := store.WriteBytes("clip.wav", []byte("RIFF")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !store.Exists("clip.wav") {
		t.Fatal("asset should exist after write")
	}

	file, err := store.Open("clip.wav")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()
	data := make([]byte, 4)
	if _, err := file.Read(data); err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "RIFF" {
		t.Fatalf("read %q", data)
	}
}

func TestOpenMissingAsset(t *testing.T) {
	store := newStore(t)
	_, err := store.Open("ghost.wav")
	if !errors.Is(err, services.ErrAssetMissing) {
		t.Fatalf("expected ErrAssetMissing, got %v", err)
	}
}

func TestTraversalRejected(t *testing.T) {
	store := newStore(t)
	for _, ref := range []string{"../escape.wav", "..", "a/../../b.wav", ""} {
		if _, err := store.Path(ref); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("ref %q: expected ErrValidation, got %v", ref, err)
		}
	}
}

func TestCleanedRefStaysInRoot(t *testing.T) {
	store := newStore(t)
	path, err := store.Path("sub/../clip.wav")
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	if filepath.Dir(path) != store.Root() {
		t.Fatalf("resolved outside root: %s", path)
	}
}

func TestResolveAmbient(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := assetstore.New(cfg)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	testsupport.WriteToneWAV(t, filepath.Join(cfg.Paths.AmbientDir, "waves.wav"), 44100, 250, 220)
	testsupport.WriteToneWAV(t, filepath.Join(cfg.Paths.AmbientDir, "city_traffic.wav"), 44100, 250, 220)

	if _, ok := store.ResolveAmbient("waves"); !ok {
		t.Fatal("waves should resolve")
	}
	if path, ok := store.ResolveAmbient("  City Traffic "); !ok || filepath.Base(path) != "city_traffic.wav" {
		t.Fatalf("label normalization failed: %s %v", path, ok)
	}
	if _, ok := store.ResolveAmbient("volcano"); ok {
		t.Fatal("unknown label should not resolve")
	}
}

func TestRemoveMissingIsNoop(t *testing.T) {
	store := newStore(t)
	if err := store.Remove("ghost.wav"); err != nil {
		t.Fatalf("remove missing: %v", err)
	}
	if err := store.WriteBytes("clip.wav", []byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := store.Remove("clip.wav"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if store.Exists("clip.wav") {
		t.Fatal("asset should be gone")
	}
	if _, err := os.Stat(store.Root()); err != nil {
		t.Fatalf("root should remain: %v", err)
	}
}
