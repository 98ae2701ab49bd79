package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"docqa-backend/internal/config"
	"docqa-backend/internal/logger"
	"docqa-backend/internal/telemetry"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"
)

// ErrProviderUnavailable is returned while the circuit breaker is open.
var ErrProviderUnavailable = errors.New("gemini provider unavailable")

// quotaLane throttles one class of provider calls against its own quota.
type quotaLane struct {
	limiter *rate.Limiter
	counter *TokenCounter
}

func newQuotaLane(limits RateLimits) *quotaLane {
	// RPM limit with some buffer
	burst := limits.RPM / 10
	if burst < 1 {
		burst = 1
	}
	return &quotaLane{
		limiter: rate.NewLimiter(rate.Limit(float64(limits.RPM)*0.9/60.0), burst),
		counter: NewTokenCounter(limits),
	}
}

// GeminiClient implements embeddings and generation on the Gemini API.
// Generation and embedding calls are throttled on separate lanes and
// share one circuit breaker.
type GeminiClient struct {
	breaker        *gobreaker.CircuitBreaker
	generation     *quotaLane
	embedding      *quotaLane
	client         *genai.Client
	generateModel  string
	embeddingModel string
	tier           string
	metrics        *telemetry.Metrics
}

// NewGeminiClient connects to the Gemini API. The caller must have checked
// that an API key is configured.
func NewGeminiClient(ctx context.Context, cfg *config.Config, metrics *telemetry.Metrics) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	gc := newClient(cfg.GeminiTier, metrics)
	gc.client = client
	gc.generateModel = cfg.GeminiModel
	gc.embeddingModel = cfg.GoogleEmbeddingsModel
	return gc, nil
}

func newClient(tier string, metrics *telemetry.Metrics) *GeminiClient {
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
			logger.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			metrics.RecordCircuitBreakerState(name, to.String())
		},
	})

	return &GeminiClient{
		breaker:    breaker,
		generation: newQuotaLane(limits.Generate),
		embedding:  newQuotaLane(limits.Embed),
		tier:       tier,
		metrics:    metrics,
	}
}

// execute runs one provider request through the lane's token budget and
// rate limiter, then the circuit breaker.
func (gc *GeminiClient) execute(ctx context.Context, lane *quotaLane, estimatedTokens int, fn func() (interface{}, error)) (interface{}, error) {
	if !lane.counter.CanConsume(estimatedTokens, 1) {
		return nil, ErrQuotaExceeded
	}

	if err := lane.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	result, err := gc.breaker.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrProviderUnavailable
		}
		return nil, err
	}
	return result, nil
}

// Generate returns the model's text response for prompt as-is.
func (gc *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.generate_content")
	defer span.End()

	estimatedTokens := estimateTokens(prompt)
	span.SetAttributes(
		attribute.Int("gemini.estimated_tokens", estimatedTokens),
		attribute.String("gemini.model", gc.generateModel),
	)

	result, err := gc.execute(ctx, gc.generation, estimatedTokens, func() (interface{}, error) {
		model := gc.client.GenerativeModel(gc.generateModel)
		return model.GenerateContent(ctx, genai.Text(prompt))
	})
	if err != nil {
		span.SetAttributes(
			attribute.Bool("gemini.error", true),
			attribute.String("gemini.error_message", err.Error()),
		)
		return "", err
	}

	resp := result.(*genai.GenerateContentResponse)
	actualTokens := extractTokenUsage(resp)
	gc.generation.counter.RecordUsage(actualTokens, 1)
	gc.metrics.RecordTokensUsed(int64(actualTokens), gc.generateModel)

	// Returned verbatim, empty included.
	text := responseText(resp)
	span.SetAttributes(
		attribute.Int("gemini.actual_tokens", actualTokens),
		attribute.Bool("gemini.success", true),
	)
	return text, nil
}

// estimateTokens uses the rough 1 token ≈ 4 characters ratio.
func estimateTokens(texts ...string) int {
	total := 0
	for _, t := range texts {
		total += len(t)
	}
	return total/4 + 1
}

// extractTokenUsage prefers the usage metadata and falls back to estimating
// from the response text.
func extractTokenUsage(resp *genai.GenerateContentResponse) int {
	if resp.UsageMetadata != nil && resp.UsageMetadata.TotalTokenCount > 0 {
		return int(resp.UsageMetadata.TotalTokenCount)
	}
	return estimateTokens(responseText(resp))
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}

// Close the client
func (gc *GeminiClient) Close() error {
	if gc.client != nil {
		return gc.client.Close()
	}
	return nil
}
