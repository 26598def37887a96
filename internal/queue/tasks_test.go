package queue

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/ai"
	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/registry"
	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/search"
	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/vectorstore"
)

type fakeLoader struct {
	docs map[string][]search.Document
}

func (f *fakeLoader) Documents(_ context.Context, collections ...string) ([]search.Document, error) {
	var out []search.Document
	for _, c := range collections {
		out = append(out, f.docs[c]...)
	}
	return out, nil
}

func (f *fakeLoader) Document(_ context.Context, collection, id string) (search.Document, error) {
	for _, d := range f.docs[collection] {
		if d.ID == id {
			return d, nil
		}
	}
	return search.Document{}, registry.ErrNotFound
}

// stubEmbedder hands out a fixed-dimension vector per text and records batch
// sizes so tests can assert on call shape.
type stubEmbedder struct {
	batches []int
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	s.batches = append(s.batches, len(texts))
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (s *stubEmbedder) Dimension() int { return 3 }

func bundleDoc(id string) search.Document {
	return search.Document{
		ID:         id,
		Collection: search.CollectionBundles,
		Text:       "text for " + id,
		Fields:     search.Fields{Name: id},
	}
}

func TestHandleReindexAllReplacesAndPersists(t *testing.T) {
	store := vectorstore.NewStore(filepath.Join(t.TempDir(), "vectors.gob"))
	loader := &fakeLoader{docs: map[string][]search.Document{
		search.CollectionBundles: {bundleDoc("bundle-a"), bundleDoc("bundle-b")},
	}}
	ix := NewIndexer(loader, &stubEmbedder{}, store, nil)

	if err := ix.HandleReindexAll(context.Background(), NewReindexTask()); err != nil {
		t.Fatalf("reindex: %v", err)
	}
	if got := store.Count(search.CollectionBundles); got != 2 {
		t.Errorf("expected 2 indexed bundles, got %d", got)
	}
	// Empty collections are still replaced so stale entries cannot linger.
	if got := store.Count(search.CollectionLibraries); got != 0 {
		t.Errorf("expected empty libraries collection, got %d", got)
	}
	if !store.SnapshotExists() {
		t.Errorf("reindex must persist a snapshot")
	}
}

func TestHandleIndexDocumentUpsertsOne(t *testing.T) {
	store := vectorstore.NewStore(filepath.Join(t.TempDir(), "vectors.gob"))
	loader := &fakeLoader{docs: map[string][]search.Document{
		search.CollectionBundles: {bundleDoc("bundle-a")},
	}}
	ix := NewIndexer(loader, &stubEmbedder{}, store, nil)

	task, err := NewIndexDocumentTask(search.CollectionBundles, "bundle-a")
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if err := ix.HandleIndexDocument(context.Background(), task); err != nil {
		t.Fatalf("index document: %v", err)
	}
	if _, ok := store.Get(search.CollectionBundles, "bundle-a"); !ok {
		t.Errorf("bundle-a must be indexed")
	}
}

func TestHandleIndexDocumentRemovesMissingRecord(t *testing.T) {
	store := vectorstore.NewStore(filepath.Join(t.TempDir(), "vectors.gob"))
	store.CreateCollection(search.CollectionBundles, 3)
	store.Upsert(search.CollectionBundles, "gone", []float32{1, 0, 0}, "stale", nil)

	ix := NewIndexer(&fakeLoader{}, &stubEmbedder{}, store, nil)
	task, _ := NewIndexDocumentTask(search.CollectionBundles, "gone")
	if err := ix.HandleIndexDocument(context.Background(), task); err != nil {
		t.Fatalf("index document: %v", err)
	}
	if _, ok := store.Get(search.CollectionBundles, "gone"); ok {
		t.Errorf("records deleted upstream must leave the index")
	}
}

func TestReindexBatchesLargeCorpora(t *testing.T) {
	store := vectorstore.NewStore(filepath.Join(t.TempDir(), "vectors.gob"))
	var docs []search.Document
	for i := 0; i < 150; i++ {
		docs = append(docs, bundleDoc(fmt.Sprintf("bundle-%03d", i)))
	}
	loader := &fakeLoader{docs: map[string][]search.Document{search.CollectionBundles: docs}}
	emb := &stubEmbedder{}
	ix := NewIndexer(loader, emb, store, nil)

	if err := ix.HandleReindexAll(context.Background(), NewReindexTask()); err != nil {
		t.Fatalf("reindex: %v", err)
	}
	if store.Count(search.CollectionBundles) != 150 {
		t.Fatalf("expected 150 entries, got %d", store.Count(search.CollectionBundles))
	}
	for _, n := range emb.batches {
		if n > ai.MaxBatchSize {
			t.Errorf("batch of %d exceeds upstream limit %d", n, ai.MaxBatchSize)
		}
	}
}
