package services

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// TopK is the number of chunks handed to the answer synthesizer.
const TopK = 2

// CosineSimilarity returns (a·b)/(‖a‖·‖b‖). Vectors of different length,
// empty vectors and zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) {
		return 0
	}
	return sim
}

// SelectTopK returns the k chunks with the highest scores, best first.
// Equal scores keep their input order.
func SelectTopK(scores []float64, chunks []string, k int) []string {
	n := len(chunks)
	if len(scores) < n {
		n = len(scores)
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > n {
		k = n
	}
	if k < 0 {
		k = 0
	}
	out := make([]string, k)
	for i := 0; i < k; i++ {
		out[i] = chunks[order[i]]
	}
	return out
}

// Ranker orders candidate chunks by semantic similarity to the question.
type Ranker struct {
	embedder Embedder
	k        int
}

// NewRanker creates a ranker returning the TopK best chunks.
func NewRanker(embedder Embedder) *Ranker {
	return &Ranker{embedder: embedder, k: TopK}
}

// Rank embeds the question and every chunk and returns the best matches.
// Provider failures are returned as-is; there is no lexical fallback.
func (r *Ranker) Rank(ctx context.Context, question string, chunks []string) ([]string, error) {
	ctx, span := otel.Tracer("qa-pipeline").Start(ctx, "ranker.rank")
	defer span.End()
	span.SetAttributes(attribute.Int("ranker.candidates", len(chunks)))

	if len(chunks) == 0 {
		return nil, nil
	}

	queryVec, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	chunkVecs, err := r.embedder.EmbedDocuments(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(chunkVecs) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: got %d vectors for %d chunks", len(chunkVecs), len(chunks))
	}

	scores := make([]float64, len(chunks))
	for i, vec := range chunkVecs {
		scores[i] = CosineSimilarity(queryVec, vec)
	}

	return SelectTopK(scores, chunks, r.k), nil
}
