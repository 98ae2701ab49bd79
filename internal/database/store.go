package database

import (
	"context"
	"time"

	"docqa-backend/internal/config"
	"docqa-backend/services"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var (
	_ services.DocumentStore     = (*MongoStore)(nil)
	_ services.ChunkStore        = (*MongoStore)(nil)
	_ services.ConversationStore = (*MongoStore)(nil)
)

// MongoStore keeps documents, chunk sets and conversations in MongoDB.
type MongoStore struct {
	db            *mongo.Database
	documents     *mongo.Collection
	chunks        *mongo.Collection
	conversations *mongo.Collection
	now           func() time.Time
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		db:            db,
		documents:     db.Collection(config.DocumentsCollection),
		chunks:        db.Collection(config.ChunksCollection),
		conversations: db.Collection(config.ConversationsCollection),
		now:           time.Now,
	}
}

// Ping checks the primary is reachable.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, readpref.Primary())
}
