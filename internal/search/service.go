package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/config"
	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/logger"
	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/vectorstore"
)

// ErrEmptyQuery rejects empty or whitespace-only questions before any
// search path runs.
var ErrEmptyQuery = errors.New("empty query")

// Embedder is the embedding adapter consumed by the vector path.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// DocumentSource feeds structured records to the keyword path. Restricting
// to specific collections avoids scanning corpora a mode never consults.
type DocumentSource interface {
	Documents(ctx context.Context, collections ...string) ([]Document, error)
}

// VectorIndex is the query surface of the vector store; satisfied by
// *vectorstore.Store and swappable for an approximate-neighbor index later.
type VectorIndex interface {
	Query(collection string, vector []float32, k int, filters map[string][]string) ([]vectorstore.Hit, error)
	Get(collection, id string) (vectorstore.Entry, bool)
}

// Service is the end-to-end search pipeline: classify, run the selected
// search paths, filter and rank. It is stateless between requests.
type Service struct {
	retrieval  config.Retrieval
	source     DocumentSource
	index      VectorIndex
	embedder   Embedder
	classifier *Classifier
}

func NewService(retrieval config.Retrieval, source DocumentSource, index VectorIndex, embedder Embedder, hints HintTable) *Service {
	if hints == nil {
		hints = DefaultHints()
	}
	return &Service{
		retrieval:  retrieval,
		source:     source,
		index:      index,
		embedder:   embedder,
		classifier: NewClassifier(hints),
	}
}

// searchCollections returns the collections a mode consults.
func searchCollections(mode Mode) []string {
	switch mode {
	case ModeMeta:
		return []string{CollectionCollections}
	case ModeLibraryHelp:
		return []string{CollectionLibraries, CollectionDocPages}
	case ModeFresh, ModeFollowUp:
		return []string{CollectionBundles, CollectionCollections, CollectionLibraries, CollectionDocPages}
	default:
		return []string{CollectionBundles, CollectionCollections, CollectionLibraries, CollectionDocPages}
	}
}

// Search is the single entry point combining classification, the selected
// search paths, and ranking. Embedder failures degrade the request to
// keyword-only and set Degraded; they never fail the pipeline.
func (s *Service) Search(ctx context.Context, query string, history []Turn, cap int) (*Response, error) {
	tracer := otel.Tracer("search-service")
	ctx, span := tracer.Start(ctx, "search.search")
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	qctx := s.classifier.Classify(query, history)
	span.SetAttributes(
		attribute.String("search.mode", qctx.Mode.String()),
		attribute.String("search.platform", qctx.DetectedPlatform),
	)

	effective := query
	if qctx.AugmentedQuery != "" {
		effective = qctx.AugmentedQuery
	}
	if qctx.Mode == ModeFollowUp {
		// Seed the search text with the focus entity so both paths rank
		// material about the referenced record first.
		effective = qctx.FocusEntity + " " + effective
	}

	collections := searchCollections(qctx.Mode)

	var (
		mu       sync.Mutex
		hits     []Hit
		degraded bool
		srcErr   error
	)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		keywordHits, err := s.keywordPath(ctx, effective, collections)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			srcErr = err
			return
		}
		hits = append(hits, keywordHits...)
	}()

	// Meta questions are answered from structured records; embedding the
	// question would only surface loosely related prose.
	if qctx.Mode != ModeMeta {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vectorHits, ok := s.vectorPath(ctx, effective, collections)
			mu.Lock()
			defer mu.Unlock()
			if !ok {
				degraded = true
			}
			hits = append(hits, vectorHits...)
		}()
	}
	wg.Wait()

	if srcErr != nil {
		return nil, fmt.Errorf("loading documents: %w", srcErr)
	}

	if qctx.Mode == ModeFollowUp {
		hits = append(hits, s.focusHits(qctx.FocusEntity, collections)...)
	}

	results, noMatch := FilterAndRank(hits, qctx, cap, s.retrieval)
	span.SetAttributes(
		attribute.Int("search.raw_hits", len(hits)),
		attribute.Int("search.results", len(results)),
		attribute.Bool("search.degraded", degraded),
	)

	return &Response{
		Results:  results,
		NoMatch:  noMatch,
		Degraded: degraded,
		Context:  qctx,
	}, nil
}

func (s *Service) keywordPath(ctx context.Context, query string, collections []string) ([]Hit, error) {
	docs, err := s.source.Documents(ctx, collections...)
	if err != nil {
		return nil, err
	}
	hits := KeywordSearch(docs, query, s.retrieval)
	for i := range hits {
		hits[i].Score = NormalizeKeywordScore(hits[i].Score, s.retrieval)
	}
	return hits, nil
}

// vectorPath embeds the query and gathers nearest neighbors from each
// collection in scope. The bool result is false when the path was skipped
// because the embedder was unavailable.
func (s *Service) vectorPath(ctx context.Context, query string, collections []string) ([]Hit, bool) {
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		logger.Warn("vector search skipped", "error", err)
		return nil, false
	}

	// The store query runs unfiltered: hint and platform constraints belong
	// to the ranker, which keeps conflicting hits above the override floor
	// and untagged records.
	// Overfetch per collection; the ranker applies the final cap.
	k := s.retrieval.MaxResults * 3

	var hits []Hit
	for _, name := range collections {
		storeHits, err := s.index.Query(name, vector, k, nil)
		if err != nil {
			if errors.Is(err, vectorstore.ErrCollectionNotFound) {
				// Cold start: the collection has not been indexed yet.
				continue
			}
			logger.Error("vector query failed", "collection", name, "error", err)
			continue
		}
		for _, h := range storeHits {
			hits = append(hits, Hit{
				ID:         h.ID,
				Collection: name,
				Score:      h.Similarity,
				Source:     SourceVector,
				Text:       h.Document,
				Metadata:   h.Metadata,
			})
		}
	}
	return hits, true
}

// focusHits pins the follow-up focus entity to the top of the raw hit list
// so the record the user is asking about always survives ranking.
func (s *Service) focusHits(focus string, collections []string) []Hit {
	for _, name := range collections {
		entry, ok := s.index.Get(name, focus)
		if !ok {
			continue
		}
		return []Hit{{
			ID:         focus,
			Collection: name,
			Score:      1.0,
			Source:     SourceVector,
			Text:       entry.Document,
			Metadata:   entry.Metadata,
		}}
	}
	return nil
}
