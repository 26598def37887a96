package main

import (
	"context"
	"errors"
	"log"

	"github.com/hibiken/asynq"

	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/ai"
	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/config"
	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/crawler"
	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/logger"
	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/queue"
	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/registry"
	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/telemetry"
	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/vectorstore"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitTracer("codecollection-registry-worker", cfg.OTLPEndpoint)
		if err != nil {
			log.Fatal("Failed to init tracing:", err)
		}
		defer shutdown()
	}
	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("metrics disabled", "error", err)
	}

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer mongoClient.Disconnect(context.Background())

	embedder, err := ai.NewEmbedder(cfg.GeminiAPIKey, cfg.EmbeddingsModel,
		cfg.EmbeddingDimensions, cfg.EmbeddingTimeout, cfg.GeminiTier)
	if err != nil {
		log.Fatal("Failed to init embedder:", err)
	}
	defer embedder.Close()

	repo := registry.NewRepository(mongoClient.Database(cfg.DBName))
	source := registry.NewSource(repo, cfg.Retrieval)

	// The worker owns the snapshot: it loads the last state so incremental
	// updates do not clobber collections it has not rebuilt yet.
	store := vectorstore.NewStore(cfg.SnapshotPath)
	if err := store.Load(); err != nil && !errors.Is(err, vectorstore.ErrSnapshotNotFound) {
		log.Fatal("Failed to load vector snapshot:", err)
	}

	indexer := queue.NewIndexer(source, embedder, store, metrics)
	docsCrawler := crawler.New(repo)

	crawlDocs := func(ctx context.Context) error {
		var firstErr error
		for _, site := range cfg.DocSites {
			pages, err := docsCrawler.CrawlSite(ctx, crawler.Config{
				Site:    site,
				TextCap: cfg.Retrieval.PageTextCap,
			})
			if err != nil {
				logger.Error("site crawl failed", "site", site, "error", err)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			metrics.RecordPagesCrawled(ctx, site, pages)
		}
		return firstErr
	}

	// Recurring jobs enqueue through asynq so runs are retried, serialized,
	// and visible in the queue like any other task.
	tasks := asynq.NewClient(cfg.AsynqRedisOpt())
	defer tasks.Close()

	scheduler := crawler.NewScheduler()
	if len(cfg.DocSites) > 0 {
		if err := scheduler.ScheduleCron("docs-crawl", cfg.CrawlCron, func() error {
			_, err := tasks.Enqueue(queue.NewCrawlDocsTask())
			return err
		}); err != nil {
			log.Fatal("Failed to schedule crawl:", err)
		}
	}
	if err := scheduler.ScheduleCron("full-reindex", cfg.ReindexCron, func() error {
		_, err := tasks.Enqueue(queue.NewReindexTask())
		return err
	}); err != nil {
		log.Fatal("Failed to schedule reindex:", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	server := asynq.NewServer(
		cfg.AsynqRedisOpt(),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			StrictPriority: true,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	indexer.Register(mux)
	mux.HandleFunc(queue.TaskCrawlDocs, func(ctx context.Context, _ *asynq.Task) error {
		return crawlDocs(ctx)
	})

	logger.Info("worker starting", "queues", "critical,default,low")
	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
