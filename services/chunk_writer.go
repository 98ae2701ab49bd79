package services

import (
	"context"
	"fmt"
	"time"

	"docqa-backend/internal/logger"
	"docqa-backend/models"

	"github.com/google/uuid"
)

// DefaultChunkBatchSize stays under the store's per-write item limit.
const DefaultChunkBatchSize = 400

// ChunkWriter persists a document's chunk list as a fresh chunk set.
type ChunkWriter struct {
	store     ChunkStore
	batchSize int
	now       func() time.Time
	newID     func() string
}

// NewChunkWriter creates a writer inserting at most batchSize chunks per call.
func NewChunkWriter(store ChunkStore, batchSize int) *ChunkWriter {
	if batchSize <= 0 {
		batchSize = DefaultChunkBatchSize
	}
	return &ChunkWriter{
		store:     store,
		batchSize: batchSize,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// Write stores chunks under a new generation and makes it the document's
// active set. An empty list activates an empty set, hiding older chunks.
// Writes for all batches must succeed before the switch; cleanup of older
// generations afterwards is best-effort.
func (w *ChunkWriter) Write(ctx context.Context, documentID string, chunks []string) (int, error) {
	generation := w.newID()
	createdAt := w.now().UTC()

	written := 0
	for start := 0; start < len(chunks); start += w.batchSize {
		end := start + w.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		batch := make([]models.Chunk, 0, end-start)
		for i := start; i < end; i++ {
			batch = append(batch, models.Chunk{
				DocumentID: documentID,
				Generation: generation,
				Index:      i,
				Text:       chunks[i],
				CreatedAt:  createdAt,
			})
		}

		if err := w.store.InsertChunks(ctx, batch); err != nil {
			return written, fmt.Errorf("insert chunks %d-%d: %w", start, end-1, err)
		}
		written += len(batch)
	}

	if err := w.store.ActivateGeneration(ctx, documentID, generation); err != nil {
		return written, fmt.Errorf("activate chunk generation: %w", err)
	}

	if err := w.store.DeleteStaleGenerations(ctx, documentID, generation); err != nil {
		logger.Warn("Failed to delete stale chunk generations", "document_id", documentID, "error", err)
	}

	return written, nil
}
