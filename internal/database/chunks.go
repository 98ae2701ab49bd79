package database

import (
	"context"
	"errors"
	"fmt"

	"docqa-backend/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *MongoStore) InsertChunks(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]interface{}, len(chunks))
	for i := range chunks {
		docs[i] = chunks[i]
	}

	if _, err := s.chunks.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		return fmt.Errorf("insert %d chunks: %w", len(chunks), err)
	}
	return nil
}

// ActivateGeneration points the document at a chunk set with a single
// document update, so readers switch sets in one step.
func (s *MongoStore) ActivateGeneration(ctx context.Context, documentID, generation string) error {
	return s.mergeDocument(ctx, documentID, bson.M{"chunk_generation": generation})
}

func (s *MongoStore) DeleteStaleGenerations(ctx context.Context, documentID, keep string) error {
	filter := bson.M{
		"document_id": documentID,
		"generation":  bson.M{"$ne": keep},
	}
	if _, err := s.chunks.DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("delete stale chunks for %s: %w", documentID, err)
	}
	return nil
}

// ListChunks returns the active chunk set ordered by index.
func (s *MongoStore) ListChunks(ctx context.Context, documentID string) ([]models.Chunk, error) {
	var doc struct {
		Generation string `bson:"chunk_generation"`
	}
	err := s.documents.FindOne(ctx, bson.M{"_id": documentID},
		options.FindOne().SetProjection(bson.M{"chunk_generation": 1})).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("find chunk generation for %s: %w", documentID, err)
	}
	if doc.Generation == "" {
		return nil, nil
	}

	filter := bson.M{"document_id": documentID, "generation": doc.Generation}
	opts := options.Find().SetSort(bson.D{{Key: "index", Value: 1}})

	cursor, err := s.chunks.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find chunks for %s: %w", documentID, err)
	}
	defer cursor.Close(ctx)

	var chunks []models.Chunk
	if err := cursor.All(ctx, &chunks); err != nil {
		return nil, fmt.Errorf("decode chunks for %s: %w", documentID, err)
	}
	return chunks, nil
}
