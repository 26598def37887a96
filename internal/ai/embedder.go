package ai

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"
)

// MaxBatchSize is the upstream limit on texts per embedding call.
const MaxBatchSize = 100

// Embedder wraps the Gemini embedding API behind a circuit breaker and a
// client-side rate limiter. Output dimension is fixed per deployed model;
// responses with a different dimension are rejected.
type Embedder struct {
	client      *genai.Client
	model       string
	dimension   int
	timeout     time.Duration
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
}

// NewEmbedder creates an embedder for the given model and expected
// dimension. Tier selects client-side rate limits matching the API plan.
func NewEmbedder(apiKey, model string, dimension int, timeoutSeconds int, tier string) (*Embedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
	}
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	limits := getRateLimits(tier)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiEmbeddings",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	// RPM limit with some buffer
	rateLimiter := rate.NewLimiter(rate.Limit(float64(limits.RPM)*0.9/60.0), limits.RPM/10)

	return &Embedder{
		client:      client,
		model:       model,
		dimension:   dimension,
		timeout:     time.Duration(timeoutSeconds) * time.Second,
		breaker:     breaker,
		rateLimiter: rateLimiter,
	}, nil
}

// Dimension returns the fixed output dimension of the deployed model.
func (e *Embedder) Dimension() int {
	return e.dimension
}

// Close releases the underlying API client.
func (e *Embedder) Close() error {
	return e.client.Close()
}

// Embed returns the embedding for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds up to MaxBatchSize texts in one upstream call. Empty or
// whitespace-only texts and oversized batches are ErrMalformedInput; every
// transport or breaker failure is ErrUpstreamUnavailable so the search path
// can degrade instead of surfacing a raw error.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	tracer := otel.Tracer("embedder")
	ctx, span := tracer.Start(ctx, "embedder.embed_batch")
	defer span.End()
	span.SetAttributes(
		attribute.Int("embedder.batch_size", len(texts)),
		attribute.String("embedder.model", e.model),
	)

	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrMalformedInput)
	}
	if len(texts) > MaxBatchSize {
		return nil, fmt.Errorf("%w: batch of %d exceeds limit %d", ErrMalformedInput, len(texts), MaxBatchSize)
	}
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w: text %d is empty", ErrMalformedInput, i)
		}
	}

	if err := e.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	result, err := e.breaker.Execute(func() (interface{}, error) {
		model := e.client.EmbeddingModel(e.model)
		batch := model.NewBatch()
		for _, text := range texts {
			batch = batch.AddContent(genai.Text(text))
		}
		return model.BatchEmbedContents(ctx, batch)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("%w: circuit breaker open", ErrUpstreamUnavailable)
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	resp := result.(*genai.BatchEmbedContentsResponse)
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrUpstreamUnavailable, len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at %d", ErrUpstreamUnavailable, i)
		}
		if len(emb.Values) != e.dimension {
			return nil, fmt.Errorf("embedding dimension %d does not match configured %d", len(emb.Values), e.dimension)
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}
