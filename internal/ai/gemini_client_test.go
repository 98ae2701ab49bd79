package ai

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"docqa-backend/internal/config"
	"docqa-backend/utils"

	genai "github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("Blue"), genai.Text(", per page 2.")}}},
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("ignored")}}},
		},
	}

	assert.Equal(t, "Blue, per page 2.", responseText(resp))
	assert.Empty(t, responseText(&genai.GenerateContentResponse{}))
	assert.Empty(t, responseText(nil))
	assert.Empty(t, responseText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}))
}

func TestExtractTokenUsage(t *testing.T) {
	withUsage := &genai.GenerateContentResponse{UsageMetadata: &genai.UsageMetadata{TotalTokenCount: 321}}
	assert.Equal(t, 321, extractTokenUsage(withUsage))

	estimated := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []genai.Part{genai.Text("12345678")}}}},
	}
	assert.Equal(t, 3, extractTokenUsage(estimated))
}

func TestExecuteOpensBreaker(t *testing.T) {
	gc := newClient("tier2", nil)
	failing := func() (interface{}, error) { return nil, errors.New("503 from upstream") }

	for i := 0; i < 3; i++ {
		_, err := gc.execute(context.Background(), gc.generation, 1, failing)
		require.ErrorContains(t, err, "503")
	}

	called := false
	_, err := gc.execute(context.Background(), gc.embedding, 1, func() (interface{}, error) {
		called = true
		return "ok", nil
	})
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.False(t, called, "open breaker must not reach the provider")
}

func TestExecuteRespectsQuota(t *testing.T) {
	gc := newClient("free", nil)

	_, err := gc.execute(context.Background(), gc.generation, 2000000, func() (interface{}, error) { return nil, nil })

	assert.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestExecuteCanceledContext(t *testing.T) {
	gc := newClient("free", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Drain the burst so Wait has to block.
	for gc.generation.limiter.Allow() {
	}
	_, err := gc.execute(ctx, gc.generation, 1, func() (interface{}, error) { return "ok", nil })

	assert.Error(t, err)
}

func TestExecuteQuestionFitsDeadline(t *testing.T) {
	gc := newClient("free", nil)
	ok := func() (interface{}, error) { return "ok", nil }
	ctx, cancel := utils.WithLongTimeout(context.Background())
	defer cancel()

	// One question: query embedding, batched chunk embedding, generation.
	start := time.Now()
	_, err := gc.execute(ctx, gc.embedding, 10, ok)
	require.NoError(t, err)
	_, err = gc.execute(ctx, gc.embedding, 15000, ok)
	require.NoError(t, err)
	_, err = gc.execute(ctx, gc.generation, 4000, ok)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), time.Second)
}

func TestEmbeddingLaneDoesNotSpendGenerationQuota(t *testing.T) {
	gc := newClient("free", nil)

	for i := 0; i < 20; i++ {
		gc.embedding.counter.RecordUsage(100, 1)
	}

	assert.True(t, gc.generation.counter.CanConsume(100, 1))
	assert.True(t, gc.generation.limiter.Allow(), "generation burst untouched by embeddings")
}

func TestTokenCounterWindows(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tc := NewTokenCounter(RateLimits{RPM: 2, TPM: 100, RPD: 3})
	tc.now = func() time.Time { return now }

	assert.True(t, tc.CanConsume(50, 1))
	tc.RecordUsage(50, 1)
	tc.RecordUsage(40, 1)
	assert.False(t, tc.CanConsume(1, 1), "minute request limit")

	now = now.Add(time.Minute)
	assert.True(t, tc.CanConsume(100, 1), "minute window reset")
	tc.RecordUsage(10, 1)
	assert.False(t, tc.CanConsume(1, 1), "daily request limit")

	now = now.Add(24 * time.Hour)
	assert.True(t, tc.CanConsume(1, 1), "day window reset")
}

func TestGetRateLimits(t *testing.T) {
	assert.Equal(t, 15, getRateLimits("free").Generate.RPM)
	assert.Equal(t, 1500, getRateLimits("free").Embed.RPM)
	assert.Equal(t, 1000, getRateLimits("tier1").Generate.RPM)
	assert.Equal(t, 2000, getRateLimits("tier2").Generate.RPM)
	assert.Equal(t, getRateLimits("free"), getRateLimits("unknown"))
}

func TestGeminiLive(t *testing.T) {
	if os.Getenv("GEMINI_API_KEY") == "" {
		t.Skip("GEMINI_API_KEY not set")
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		t.Skipf("config load failed: %v", err)
	}

	ctx := context.Background()
	gc, err := NewGeminiClient(ctx, cfg, nil)
	require.NoError(t, err)
	defer gc.Close()

	query, err := gc.EmbedQuery(ctx, "hello world")
	require.NoError(t, err)
	assert.NotEmpty(t, query)

	docs, err := gc.EmbedDocuments(ctx, []string{"first passage", "second passage"})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Len(t, docs[0], len(query))
}
