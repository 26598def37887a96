package vectorstore

import (
	"errors"
	"math"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "vectors.gob"))
}

func seedDocs(t *testing.T, s *Store) {
	t.Helper()
	if err := s.CreateCollection("docs", 3); err != nil {
		t.Fatalf("create collection: %v", err)
	}
	entries := map[string][]float32{
		"doc-a": {1, 0, 0},
		"doc-b": {0, 1, 0},
		"doc-c": {0.9, 0.1, 0},
	}
	for id, vec := range entries {
		if err := s.Upsert("docs", id, vec, "text "+id, map[string]string{"platform": "kubernetes"}); err != nil {
			t.Fatalf("upsert %s: %v", id, err)
		}
	}
}

func TestQueryOrdering(t *testing.T) {
	s := newTestStore(t)
	seedDocs(t, s)

	hits, err := s.Query("docs", []float32{1, 0, 0}, 2, nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ID != "doc-a" || hits[1].ID != "doc-c" {
		t.Errorf("expected [doc-a doc-c], got [%s %s]", hits[0].ID, hits[1].ID)
	}
	if math.Abs(hits[0].Similarity-1.0) > 1e-9 {
		t.Errorf("self similarity should be 1.0, got %f", hits[0].Similarity)
	}
	for _, h := range hits {
		if h.ID == "doc-b" {
			t.Errorf("orthogonal doc-b should not rank in top 2")
		}
	}
}

func TestSimilaritySymmetry(t *testing.T) {
	a := []float32{0.3, 0.7, 0.2}
	b := []float32{0.5, 0.1, 0.9}

	ab := similarity(a, norm(a), b)
	ba := similarity(b, norm(b), a)
	if math.Abs(ab-ba) > 1e-9 {
		t.Errorf("similarity not symmetric: %f vs %f", ab, ba)
	}

	self := similarity(a, norm(a), a)
	if math.Abs(self-1.0) > 1e-9 {
		t.Errorf("self similarity should be 1.0, got %f", self)
	}
}

func TestFiltersApplyBeforeRanking(t *testing.T) {
	s := newTestStore(t)
	if err := s.CreateCollection("docs", 2); err != nil {
		t.Fatalf("create collection: %v", err)
	}
	// Two close matches tagged gcp, two weaker ones tagged azure.
	s.Upsert("docs", "gcp-1", []float32{1, 0}, "", map[string]string{"platform": "gcp"})
	s.Upsert("docs", "gcp-2", []float32{0.95, 0.05}, "", map[string]string{"platform": "gcp"})
	s.Upsert("docs", "az-1", []float32{0.7, 0.3}, "", map[string]string{"platform": "azure"})
	s.Upsert("docs", "az-2", []float32{0.6, 0.4}, "", map[string]string{"platform": "azure"})

	hits, err := s.Query("docs", []float32{1, 0}, 2, map[string][]string{"platform": {"azure"}})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	// Filtered-out vectors must not consume top-k slots.
	if len(hits) != 2 {
		t.Fatalf("expected 2 qualifying hits, got %d", len(hits))
	}
	if hits[0].ID != "az-1" || hits[1].ID != "az-2" {
		t.Errorf("expected [az-1 az-2], got [%s %s]", hits[0].ID, hits[1].ID)
	}
}

func TestUpsertDimensionMismatch(t *testing.T) {
	s := newTestStore(t)
	if err := s.CreateCollection("docs", 3); err != nil {
		t.Fatalf("create collection: %v", err)
	}
	err := s.Upsert("docs", "bad", []float32{1, 0}, "", nil)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestQueryUnknownCollection(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Query("missing", []float32{1}, 1, nil)
	if !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("expected ErrCollectionNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	seedDocs(t, s)

	if err := s.Delete("docs", "doc-a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if s.Count("docs") != 2 {
		t.Errorf("expected 2 entries after delete, got %d", s.Count("docs"))
	}
	// Deleting twice is a no-op.
	if err := s.Delete("docs", "doc-a"); err != nil {
		t.Errorf("second delete should be nil, got %v", err)
	}
}

func TestReplaceCollectionSwaps(t *testing.T) {
	s := newTestStore(t)
	seedDocs(t, s)

	replacement := map[string]Entry{
		"doc-z": {Embedding: []float32{0, 0, 1}, Document: "replacement"},
	}
	if err := s.ReplaceCollection("docs", 3, replacement); err != nil {
		t.Fatalf("replace: %v", err)
	}

	hits, err := s.Query("docs", []float32{0, 0, 1}, 5, nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "doc-z" {
		t.Errorf("expected only doc-z after replace, got %+v", hits)
	}
}

func TestReplaceCollectionValidatesDimensions(t *testing.T) {
	s := newTestStore(t)
	bad := map[string]Entry{
		"short": {Embedding: []float32{1, 0}},
	}
	err := s.ReplaceCollection("docs", 3, bad)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}
