package vectorstore

import (
	"encoding/gob"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.gob")
	s := NewStore(path)
	seedDocs(t, s)
	if err := s.CreateCollection("pages", 2); err != nil {
		t.Fatalf("create pages: %v", err)
	}
	if err := s.Upsert("pages", "page-1", []float32{0.5, 0.5}, "a page", map[string]string{"site": "docs"}); err != nil {
		t.Fatalf("upsert page: %v", err)
	}

	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded := NewStore(path)
	if err := loaded.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}

	if got, want := loaded.Collections(), s.Collections(); !reflect.DeepEqual(got, want) {
		t.Errorf("collections differ: got %v, want %v", got, want)
	}
	for _, name := range s.Collections() {
		if loaded.Count(name) != s.Count(name) {
			t.Errorf("collection %q: count %d, want %d", name, loaded.Count(name), s.Count(name))
		}
	}
	entry, ok := loaded.Get("pages", "page-1")
	if !ok {
		t.Fatalf("page-1 missing after load")
	}
	if entry.Document != "a page" || entry.Metadata["site"] != "docs" {
		t.Errorf("entry not preserved: %+v", entry)
	}

	// Re-saving without modification must produce an equivalent snapshot.
	if err := loaded.Save(); err != nil {
		t.Fatalf("re-save: %v", err)
	}
	again := NewStore(path)
	if err := again.Load(); err != nil {
		t.Fatalf("re-load: %v", err)
	}
	if !reflect.DeepEqual(again.Collections(), s.Collections()) {
		t.Errorf("round-trip changed collections")
	}
}

func TestLoadMissingSnapshot(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "missing.gob"))
	if err := s.Load(); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("expected ErrSnapshotNotFound, got %v", err)
	}
}

func TestLoadRejectsDimensionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.gob")

	// Hand-build a snapshot whose entry length disagrees with the declared
	// collection dimension.
	snap := snapshotFile{
		Version: CurrentSnapshotVersion,
		Collections: map[string]snapshotCollection{
			"docs": {
				Dimension: 3,
				Entries: map[string]Entry{
					"bad": {Embedding: []float32{1, 0}},
				},
			},
		},
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := gob.NewEncoder(f).Encode(snap); err != nil {
		t.Fatalf("encode: %v", err)
	}
	f.Close()

	s := NewStore(path)
	if err := s.Load(); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestLoadRejectsUnsupportedVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.gob")

	snap := snapshotFile{Version: 99, Collections: map[string]snapshotCollection{}}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := gob.NewEncoder(f).Encode(snap); err != nil {
		t.Fatalf("encode: %v", err)
	}
	f.Close()

	s := NewStore(path)
	if err := s.Load(); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestSaveDoesNotLeaveTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.gob")
	s := NewStore(path)
	seedDocs(t, s)

	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind after save")
	}
}
