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

// GeminiClient generates assistant answers from ranked search results.
type GeminiClient struct {
	client      *genai.Client
	model       string
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
}

type RateLimits struct {
	RPM int // Requests per minute
	TPM int // Tokens per minute
	RPD int // Requests per day
}

func NewGeminiClient(apiKey, model, tier string) (*GeminiClient, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	limits := getRateLimits(tier)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiAPI",
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

	return &GeminiClient{
		client:      client,
		model:       model,
		breaker:     breaker,
		rateLimiter: rateLimiter,
	}, nil
}

func getRateLimits(tier string) RateLimits {
	switch tier {
	case "free":
		return RateLimits{RPM: 10, TPM: 250000, RPD: 250}
	case "tier1":
		return RateLimits{RPM: 1000, TPM: 1000000, RPD: 10000}
	case "tier2":
		return RateLimits{RPM: 2000, TPM: 4000000, RPD: 50000}
	default:
		return RateLimits{RPM: 10, TPM: 250000, RPD: 250}
	}
}

func (gc *GeminiClient) Close() error {
	return gc.client.Close()
}

// GenerateAnswer summarizes ranked result snippets into a prose answer to
// the user's question. Upstream failures map to ErrUpstreamUnavailable; the
// caller decides whether to fall back to a plain result listing.
func (gc *GeminiClient) GenerateAnswer(ctx context.Context, question string, snippets []string) (string, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.generate_answer")
	defer span.End()
	span.SetAttributes(
		attribute.Int("gemini.context_snippets", len(snippets)),
		attribute.String("gemini.model", gc.model),
	)

	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("%w: empty question", ErrMalformedInput)
	}

	if err := gc.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	prompt := buildAnswerPrompt(question, snippets)

	result, err := gc.breaker.Execute(func() (interface{}, error) {
		model := gc.client.GenerativeModel(gc.model)
		return model.GenerateContent(ctx, genai.Text(prompt))
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return "", fmt.Errorf("%w: circuit breaker open", ErrUpstreamUnavailable)
		}
		return "", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	resp := result.(*genai.GenerateContentResponse)
	answer := extractText(resp)
	if answer == "" {
		return "", fmt.Errorf("%w: empty response", ErrUpstreamUnavailable)
	}
	return answer, nil
}

func buildAnswerPrompt(question string, snippets []string) string {
	var b strings.Builder
	b.WriteString("You are the assistant for a registry of automation bundles. ")
	b.WriteString("Answer the question using only the registry entries below. ")
	b.WriteString("Refer to entries by their slug so the user can look them up.\n\n")
	for i, s := range snippets {
		fmt.Fprintf(&b, "Entry %d:\n%s\n\n", i+1, s)
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}

func extractText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}
	return strings.TrimSpace(b.String())
}
