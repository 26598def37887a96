package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/ai"
	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/auth"
	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/config"
	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/logger"
	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/registry"
	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/search"
	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/telemetry"
	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/vectorstore"
	"github.com/runwhen-contrib/codecollection-registry-sub002/middleware"
	"github.com/runwhen-contrib/codecollection-registry-sub002/routes"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitTracer("codecollection-registry", cfg.OTLPEndpoint)
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
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	// Serve from the last snapshot immediately; a missing snapshot just
	// means the worker has not indexed yet.
	store := vectorstore.NewStore(cfg.SnapshotPath)
	if err := store.Load(); err != nil {
		if errors.Is(err, vectorstore.ErrSnapshotNotFound) {
			logger.Warn("no vector snapshot yet", "path", cfg.SnapshotPath)
		} else {
			log.Fatal("Failed to load vector snapshot:", err)
		}
	}

	embedder, err := ai.NewEmbedder(cfg.GeminiAPIKey, cfg.EmbeddingsModel,
		cfg.EmbeddingDimensions, cfg.EmbeddingTimeout, cfg.GeminiTier)
	if err != nil {
		log.Fatal("Failed to init embedder:", err)
	}
	defer embedder.Close()

	gemini, err := ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiTier)
	if err != nil {
		log.Fatal("Failed to init Gemini client:", err)
	}
	defer gemini.Close()

	tokens, err := auth.NewService(cfg.JWTSecret, cfg.JWTExpiresIn, rdb)
	if err != nil {
		log.Fatal("Failed to init auth:", err)
	}

	repo := registry.NewRepository(mongoClient.Database(cfg.DBName))
	source := registry.NewSource(repo, cfg.Retrieval)
	searchSvc := search.NewService(cfg.Retrieval, source, store, embedder, nil)

	tasks := asynq.NewClient(cfg.AsynqRedisOpt())
	defer tasks.Close()

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(cfg.CORSOrigins))
	router.Use(middleware.RateLimit(rdb, cfg.RateLimitReqs, cfg.RateLimitWindow))
	if cfg.TracingEnabled {
		router.Use(otelgin.Middleware("codecollection-registry"))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})
	router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"collections": store.Collections(),
			"snapshot":    store.SnapshotExists(),
		})
	})

	routes.SetupRegistryRoutes(router, repo, source, cfg.Retrieval)
	routes.SetupAssistantRoutes(router, searchSvc, gemini, repo, metrics)
	routes.SetupAdminRoutes(router, cfg, tokens, repo, store, tasks)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}
	logger.Info("server exited")
}
