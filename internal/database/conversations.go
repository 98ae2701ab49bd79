package database

import (
	"context"
	"fmt"

	"docqa-backend/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AppendConversation records one Q&A exchange. Records are never updated.
func (s *MongoStore) AppendConversation(ctx context.Context, conv *models.Conversation) error {
	if conv.ID == "" {
		conv.ID = primitive.NewObjectID().Hex()
	}
	if conv.Timestamp.IsZero() {
		conv.Timestamp = s.now().UTC()
	}

	if _, err := s.conversations.InsertOne(ctx, conv); err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

// ListConversations returns a user's exchanges, newest first, optionally
// restricted to one document.
func (s *MongoStore) ListConversations(ctx context.Context, userID, documentID string, limit int) ([]models.Conversation, error) {
	filter := bson.M{"userId": userID}
	if documentID != "" {
		filter["documentId"] = documentID
	}

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.conversations.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find conversations: %w", err)
	}
	defer cursor.Close(ctx)

	conversations := []models.Conversation{}
	if err := cursor.All(ctx, &conversations); err != nil {
		return nil, fmt.Errorf("decode conversations: %w", err)
	}
	return conversations, nil
}
