package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestionTerms(t *testing.T) {
	assert.Equal(t, []string{"what", "the", "refund", "policy"}, QuestionTerms("What is the refund-policy?"))
	assert.Empty(t, QuestionTerms("is it ok?"))
	assert.Equal(t, []string{"2024", "tax"}, QuestionTerms("2024 TAX, by q1"))
}

func TestPrefilterChunksRanksByOverlap(t *testing.T) {
	chunks := []string{
		"Nothing relevant here.",
		"Our refund window is 30 days.",
		"The refund policy covers all products under this policy.",
		"Shipping takes a week.",
	}

	got := PrefilterChunks("What is the refund policy?", chunks, 2)

	assert.Equal(t, []string{chunks[2], chunks[1]}, got)
}

func TestPrefilterChunksTiesKeepOrder(t *testing.T) {
	chunks := []string{"alpha beta", "beta alpha", "gamma", "alpha"}

	got := PrefilterChunks("alpha", chunks, 10)

	assert.Equal(t, []string{"alpha beta", "beta alpha", "alpha", "gamma"}, got)
}

func TestPrefilterChunksFallbacks(t *testing.T) {
	chunks := []string{"one", "two", "three", "four"}

	t.Run("no usable terms", func(t *testing.T) {
		assert.Equal(t, []string{"one", "two"}, PrefilterChunks("is it?", chunks, 2))
	})

	t.Run("no overlap at all", func(t *testing.T) {
		assert.Equal(t, []string{"one", "two", "three"}, PrefilterChunks("zebra xylophone", chunks, 3))
	})

	t.Run("cap larger than input", func(t *testing.T) {
		assert.Equal(t, chunks, PrefilterChunks("zebra", chunks, 100))
	})

	t.Run("empty chunks", func(t *testing.T) {
		assert.Empty(t, PrefilterChunks("anything useful", nil, 5))
	})
}

func TestPrefilterChunksCap(t *testing.T) {
	chunks := make([]string, 200)
	for i := range chunks {
		chunks[i] = fmt.Sprintf("chunk %d about invoices", i)
	}

	assert.Len(t, PrefilterChunks("invoices", chunks, 60), 60)
	assert.Len(t, PrefilterChunks("invoices", chunks, 0), DefaultGenericPrefilterCap)
}

func TestPrefilterChunksIsSubset(t *testing.T) {
	chunks := []string{"apples and pears", "pears only", "plums", "apples"}
	got := PrefilterChunks("apples pears plums", chunks, 3)

	require.Len(t, got, 3)
	seen := map[string]bool{}
	for _, c := range got {
		assert.Contains(t, chunks, c)
		assert.False(t, seen[c], "duplicate %q", c)
		seen[c] = true
	}
	assert.Equal(t, "apples and pears", got[0])
}
