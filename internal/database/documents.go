package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docqa-backend/models"
	"docqa-backend/services"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *MongoStore) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	err := s.documents.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("document %s: %w", id, services.ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("find document %s: %w", id, err)
	}
	return &doc, nil
}

func (s *MongoStore) CreateDocument(ctx context.Context, doc *models.Document) error {
	now := s.now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	if _, err := s.documents.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert document %s: %w", doc.ID, err)
	}
	return nil
}

// mergeDocument sets only the given fields, creating the record if needed.
func (s *MongoStore) mergeDocument(ctx context.Context, id string, fields bson.M) error {
	now := s.now().UTC()
	fields["updatedAt"] = now

	update := bson.M{
		"$set":         fields,
		"$setOnInsert": bson.M{"createdAt": now},
	}
	_, err := s.documents.UpdateOne(ctx, bson.M{"_id": id}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("update document %s: %w", id, err)
	}
	return nil
}

func (s *MongoStore) MarkProcessing(ctx context.Context, id, filePath string) error {
	return s.mergeDocument(ctx, id, bson.M{
		"status":   models.StatusProcessing,
		"filePath": filePath,
	})
}

func (s *MongoStore) SaveExtraction(ctx context.Context, id, text, status string) error {
	return s.mergeDocument(ctx, id, bson.M{
		"extractedText": text,
		"status":        status,
	})
}

// ListStaleUploads returns documents still in uploaded whose last update is
// older than olderThan, oldest first.
func (s *MongoStore) ListStaleUploads(ctx context.Context, olderThan time.Time, limit int) ([]models.Document, error) {
	filter := bson.M{
		"status":    models.StatusUploaded,
		"updatedAt": bson.M{"$lt": olderThan},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "updatedAt", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := s.documents.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find stale uploads: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []models.Document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode stale uploads: %w", err)
	}
	return docs, nil
}
