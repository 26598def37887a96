package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/ai"
	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/logger"
	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/registry"
	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/search"
	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/telemetry"
	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/vectorstore"
)

const (
	TaskReindexAll    = "registry:reindex"
	TaskIndexDocument = "registry:index_document"
	TaskCrawlDocs     = "registry:crawl_docs"
)

type IndexDocumentPayload struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
}

// NewReindexTask rebuilds every vector collection from Mongo. One full
// rebuild can take minutes on a large registry, hence the generous timeout.
func NewReindexTask() *asynq.Task {
	return asynq.NewTask(
		TaskReindexAll,
		nil,
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Minute),
		asynq.Queue("default"),
	)
}

// NewIndexDocumentTask re-embeds a single record in place.
func NewIndexDocumentTask(collection, id string) (*asynq.Task, error) {
	payload, err := json.Marshal(IndexDocumentPayload{Collection: collection, ID: id})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(
		TaskIndexDocument,
		payload,
		asynq.MaxRetry(5),
		asynq.Timeout(2*time.Minute),
		asynq.Queue("default"),
	), nil
}

// NewCrawlDocsTask refreshes the documentation pages from the configured
// sites. The handler lives in the worker, which owns the crawler.
func NewCrawlDocsTask() *asynq.Task {
	return asynq.NewTask(
		TaskCrawlDocs,
		nil,
		asynq.MaxRetry(2),
		asynq.Timeout(20*time.Minute),
		asynq.Queue("low"),
	)
}

// BatchEmbedder is the slice of the embedding client the indexer needs.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// DocumentLoader feeds registry records to the indexer; satisfied by
// *registry.Source.
type DocumentLoader interface {
	Documents(ctx context.Context, collections ...string) ([]search.Document, error)
	Document(ctx context.Context, collection, id string) (search.Document, error)
}

// Indexer handles the background indexing tasks: it reads registry records,
// embeds their text, and publishes the vectors to the store.
type Indexer struct {
	source   DocumentLoader
	embedder BatchEmbedder
	store    *vectorstore.Store
	metrics  *telemetry.Metrics
}

func NewIndexer(source DocumentLoader, embedder BatchEmbedder, store *vectorstore.Store, metrics *telemetry.Metrics) *Indexer {
	return &Indexer{source: source, embedder: embedder, store: store, metrics: metrics}
}

// Register wires the indexer's handlers into an asynq mux.
func (ix *Indexer) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskReindexAll, ix.HandleReindexAll)
	mux.HandleFunc(TaskIndexDocument, ix.HandleIndexDocument)
}

// HandleReindexAll rebuilds each collection and atomically swaps it in, then
// persists one snapshot covering all of them. A collection with no documents
// is still replaced so deletions in Mongo propagate to search.
func (ix *Indexer) HandleReindexAll(ctx context.Context, _ *asynq.Task) error {
	started := time.Now()
	collections := []string{
		search.CollectionBundles,
		search.CollectionCollections,
		search.CollectionLibraries,
		search.CollectionDocPages,
	}

	for _, name := range collections {
		docs, err := ix.source.Documents(ctx, name)
		if err != nil {
			return fmt.Errorf("loading %s: %w", name, err)
		}
		entries, err := ix.embedDocuments(ctx, docs)
		if err != nil {
			return fmt.Errorf("embedding %s: %w", name, err)
		}
		if err := ix.store.ReplaceCollection(name, ix.embedder.Dimension(), entries); err != nil {
			return fmt.Errorf("replacing %s: %w", name, err)
		}
		ix.metrics.RecordIndexed(ctx, name, len(entries))
		logger.Info("collection reindexed", "collection", name, "documents", len(entries))
	}

	if err := ix.store.Save(); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	logger.Info("full reindex complete", "duration", time.Since(started).String())
	return nil
}

// HandleIndexDocument embeds one record and upserts it. A record that has
// disappeared from Mongo is removed from the index instead.
func (ix *Indexer) HandleIndexDocument(ctx context.Context, t *asynq.Task) error {
	var payload IndexDocumentPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	doc, err := ix.source.Document(ctx, payload.Collection, payload.ID)
	if errors.Is(err, registry.ErrNotFound) {
		if err := ix.store.Delete(payload.Collection, payload.ID); err != nil &&
			!errors.Is(err, vectorstore.ErrCollectionNotFound) {
			return err
		}
		return ix.store.Save()
	}
	if err != nil {
		return err
	}

	vectors, err := ix.embedder.EmbedBatch(ctx, []string{registry.EmbeddingText(doc)})
	if err != nil {
		if errors.Is(err, ai.ErrMalformedInput) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	err = ix.store.Upsert(payload.Collection, payload.ID, vectors[0], doc.Text, doc.Metadata)
	if errors.Is(err, vectorstore.ErrCollectionNotFound) {
		if err := ix.store.CreateCollection(payload.Collection, ix.embedder.Dimension()); err != nil {
			return err
		}
		err = ix.store.Upsert(payload.Collection, payload.ID, vectors[0], doc.Text, doc.Metadata)
	}
	if err != nil {
		return err
	}
	return ix.store.Save()
}

// embedDocuments embeds documents in upstream-sized batches and returns the
// entry set for a collection replacement.
func (ix *Indexer) embedDocuments(ctx context.Context, docs []search.Document) (map[string]vectorstore.Entry, error) {
	entries := make(map[string]vectorstore.Entry, len(docs))
	for start := 0; start < len(docs); start += ai.MaxBatchSize {
		end := start + ai.MaxBatchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		texts := make([]string, len(batch))
		for i, doc := range batch {
			texts[i] = registry.EmbeddingText(doc)
		}
		vectors, err := ix.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, err
		}
		for i, doc := range batch {
			entries[doc.ID] = vectorstore.Entry{
				Embedding: vectors[i],
				Document:  doc.Text,
				Metadata:  doc.Metadata,
			}
		}
	}
	return entries, nil
}
