// Package vectorstore implements the embedding index behind assistant search:
// named collections of (id, vector, document, metadata) with brute-force
// cosine nearest-neighbor queries and a single-file snapshot.
package vectorstore

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
)

// Errors returned by store operations.
var (
	ErrCollectionNotFound = errors.New("vector collection not found")
	ErrDimensionMismatch  = errors.New("embedding dimension mismatch")
	ErrSnapshotNotFound   = errors.New("vector snapshot not found")
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
)

// Entry is one stored vector with the text it was computed from and the
// metadata used for query-time filtering.
type Entry struct {
	Embedding []float32
	Document  string
	Metadata  map[string]string
}

// Hit is one query result. Similarity is 1 - cosine distance, in [0,1] for
// the non-negative embeddings the Gemini models produce.
type Hit struct {
	ID         string
	Similarity float64
	Document   string
	Metadata   map[string]string
}

type collection struct {
	dimension int
	entries   map[string]Entry
}

// state is the immutable snapshot visible to queries. Mutations build a new
// state and swap the pointer; in-flight queries finish against the old one.
type state struct {
	collections map[string]*collection
}

// Store is a multi-collection vector store. Queries are lock-free reads of
// an atomically-swapped state; writers serialize on mu and never block
// readers, so an indexing job cannot stall the request path.
type Store struct {
	mu    sync.Mutex
	path  string
	state atomic.Pointer[state]
}

// NewStore creates an empty store persisting to path.
func NewStore(path string) *Store {
	s := &Store{path: path}
	s.state.Store(&state{collections: map[string]*collection{}})
	return s
}

func (s *state) clone() *state {
	next := &state{collections: make(map[string]*collection, len(s.collections))}
	for name, col := range s.collections {
		next.collections[name] = col
	}
	return next
}

func (c *collection) clone() *collection {
	next := &collection{dimension: c.dimension, entries: make(map[string]Entry, len(c.entries))}
	for id, e := range c.entries {
		next.entries[id] = e
	}
	return next
}

// CreateCollection registers a collection with a fixed embedding dimension.
// Creating an existing collection with the same dimension is a no-op.
func (s *Store) CreateCollection(name string, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("collection %q: dimension must be positive, got %d", name, dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.state.Load()
	if existing, ok := cur.collections[name]; ok {
		if existing.dimension != dimension {
			return fmt.Errorf("%w: collection %q has dimension %d, requested %d",
				ErrDimensionMismatch, name, existing.dimension, dimension)
		}
		return nil
	}

	next := cur.clone()
	next.collections[name] = &collection{dimension: dimension, entries: map[string]Entry{}}
	s.state.Store(next)
	return nil
}

// Upsert inserts or replaces a single entry.
func (s *Store) Upsert(name, id string, vector []float32, document string, metadata map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.state.Load()
	col, ok := cur.collections[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrCollectionNotFound, name)
	}
	if len(vector) != col.dimension {
		return fmt.Errorf("%w: collection %q expects %d, got %d",
			ErrDimensionMismatch, name, col.dimension, len(vector))
	}

	nextCol := col.clone()
	nextCol.entries[id] = Entry{Embedding: vector, Document: document, Metadata: metadata}

	next := cur.clone()
	next.collections[name] = nextCol
	s.state.Store(next)
	return nil
}

// Delete removes an entry. Deleting an unknown id is a no-op.
func (s *Store) Delete(name, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.state.Load()
	col, ok := cur.collections[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrCollectionNotFound, name)
	}
	if _, ok := col.entries[id]; !ok {
		return nil
	}

	nextCol := col.clone()
	delete(nextCol.entries, id)

	next := cur.clone()
	next.collections[name] = nextCol
	s.state.Store(next)
	return nil
}

// ReplaceCollection swaps in a fully rebuilt collection. The replacement is
// validated off to the side, then made visible in one pointer store, so a
// concurrent query observes either the old or the new contents, never a mix.
func (s *Store) ReplaceCollection(name string, dimension int, entries map[string]Entry) error {
	if dimension <= 0 {
		return fmt.Errorf("collection %q: dimension must be positive, got %d", name, dimension)
	}
	replacement := &collection{dimension: dimension, entries: make(map[string]Entry, len(entries))}
	for id, e := range entries {
		if len(e.Embedding) != dimension {
			return fmt.Errorf("%w: entry %q has %d, collection %q expects %d",
				ErrDimensionMismatch, id, len(e.Embedding), name, dimension)
		}
		replacement.entries[id] = e
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.Load().clone()
	next.collections[name] = replacement
	s.state.Store(next)
	return nil
}

// Query returns the k most similar entries, best first. Filters map a
// metadata key to acceptable values and are applied before ranking, so k
// always yields up to k qualifying results. A nil filter matches everything.
func (s *Store) Query(name string, vector []float32, k int, filters map[string][]string) ([]Hit, error) {
	cur := s.state.Load()
	col, ok := cur.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrCollectionNotFound, name)
	}
	if len(vector) != col.dimension {
		return nil, fmt.Errorf("%w: collection %q expects %d, got %d",
			ErrDimensionMismatch, name, col.dimension, len(vector))
	}
	if k <= 0 {
		return nil, nil
	}

	// Normalize the query once; per-entry norms are computed in the scan.
	queryNorm := norm(vector)
	if queryNorm == 0 {
		return nil, nil
	}

	hits := make([]Hit, 0, k)
	for id, e := range col.entries {
		if !matchesFilters(e.Metadata, filters) {
			continue
		}
		sim := similarity(vector, queryNorm, e.Embedding)
		hits = append(hits, Hit{ID: id, Similarity: sim, Document: e.Document, Metadata: e.Metadata})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ID < hits[j].ID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Get returns a single entry by id.
func (s *Store) Get(name, id string) (Entry, bool) {
	col, ok := s.state.Load().collections[name]
	if !ok {
		return Entry{}, false
	}
	e, ok := col.entries[id]
	return e, ok
}

// Collections lists collection names, sorted.
func (s *Store) Collections() []string {
	cur := s.state.Load()
	names := make([]string, 0, len(cur.collections))
	for name := range cur.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of entries in a collection.
func (s *Store) Count(name string) int {
	col, ok := s.state.Load().collections[name]
	if !ok {
		return 0
	}
	return len(col.entries)
}

// Dimension returns a collection's fixed embedding dimension.
func (s *Store) Dimension(name string) (int, error) {
	col, ok := s.state.Load().collections[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrCollectionNotFound, name)
	}
	return col.dimension, nil
}

func matchesFilters(metadata map[string]string, filters map[string][]string) bool {
	for key, accepted := range filters {
		value, ok := metadata[key]
		if !ok {
			return false
		}
		found := false
		for _, want := range accepted {
			if value == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// similarity computes 1 - cosine distance given a precomputed query norm.
func similarity(query []float32, queryNorm float64, candidate []float32) float64 {
	var dot, candSq float64
	for i := range query {
		dot += float64(query[i]) * float64(candidate[i])
		candSq += float64(candidate[i]) * float64(candidate[i])
	}
	denom := queryNorm * math.Sqrt(candSq)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

func norm(v []float32) float64 {
	var sq float64
	for _, x := range v {
		sq += float64(x) * float64(x)
	}
	return math.Sqrt(sq)
}
