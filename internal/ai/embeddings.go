package ai

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	genai "github.com/google/generative-ai-go/genai"
)

// maxEmbedBatch is the provider's limit on contents per batch request.
const maxEmbedBatch = 100

// EmbedQuery embeds a question for retrieval.
func (gc *GeminiClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	ctx, span := otel.Tracer("gemini-client").Start(ctx, "gemini.embed_query")
	defer span.End()

	result, err := gc.execute(ctx, gc.embedding, estimateTokens(text), func() (interface{}, error) {
		model := gc.client.EmbeddingModel(gc.embeddingModel)
		model.TaskType = genai.TaskTypeRetrievalQuery
		return model.EmbedContent(ctx, genai.Text(text))
	})
	if err != nil {
		span.SetAttributes(attribute.Bool("gemini.error", true))
		return nil, err
	}
	gc.embedding.counter.RecordUsage(estimateTokens(text), 1)
	gc.metrics.RecordEmbeddingCall(ctx, "RETRIEVAL_QUERY", 1)

	resp := result.(*genai.EmbedContentResponse)
	if resp.Embedding == nil {
		return nil, fmt.Errorf("no embedding returned")
	}
	return resp.Embedding.Values, nil
}

// EmbedDocuments embeds passages for retrieval, one vector per input in
// input order. Inputs are sent in provider-sized batches.
func (gc *GeminiClient) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, span := otel.Tracer("gemini-client").Start(ctx, "gemini.embed_documents")
	defer span.End()
	span.SetAttributes(attribute.Int("gemini.inputs", len(texts)))

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxEmbedBatch {
		end := start + maxEmbedBatch
		if end > len(texts) {
			end = len(texts)
		}
		part := texts[start:end]
		tokens := estimateTokens(part...)

		result, err := gc.execute(ctx, gc.embedding, tokens, func() (interface{}, error) {
			model := gc.client.EmbeddingModel(gc.embeddingModel)
			model.TaskType = genai.TaskTypeRetrievalDocument
			batch := model.NewBatch()
			for _, t := range part {
				batch.AddContent(genai.Text(t))
			}
			return model.BatchEmbedContents(ctx, batch)
		})
		if err != nil {
			span.SetAttributes(attribute.Bool("gemini.error", true))
			return nil, err
		}
		gc.embedding.counter.RecordUsage(tokens, 1)
		gc.metrics.RecordEmbeddingCall(ctx, "RETRIEVAL_DOCUMENT", len(part))

		resp := result.(*genai.BatchEmbedContentsResponse)
		if len(resp.Embeddings) != len(part) {
			return nil, fmt.Errorf("expected %d embeddings, got %d", len(part), len(resp.Embeddings))
		}
		for _, e := range resp.Embeddings {
			if e == nil {
				return nil, fmt.Errorf("no embedding returned")
			}
			vectors = append(vectors, e.Values)
		}
	}

	return vectors, nil
}
