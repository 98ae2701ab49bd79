package services

import (
	"context"
	"errors"
	"io"
	"time"

	"docqa-backend/models"
)

// ErrDocumentNotFound is returned by stores when no document has the id.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentStore persists document lifecycle state.
type DocumentStore interface {
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	CreateDocument(ctx context.Context, doc *models.Document) error
	// MarkProcessing upserts the document into processing, recording its storage path.
	MarkProcessing(ctx context.Context, id, filePath string) error
	SaveExtraction(ctx context.Context, id, text, status string) error
	ListStaleUploads(ctx context.Context, olderThan time.Time, limit int) ([]models.Document, error)
}

// ChunkStore persists versioned chunk sets. Only the generation made active
// by ActivateGeneration is returned by ListChunks.
type ChunkStore interface {
	InsertChunks(ctx context.Context, chunks []models.Chunk) error
	ActivateGeneration(ctx context.Context, documentID, generation string) error
	DeleteStaleGenerations(ctx context.Context, documentID, keep string) error
	// ListChunks returns the active chunk set ordered by index.
	ListChunks(ctx context.Context, documentID string) ([]models.Chunk, error)
}

// ConversationStore is the append-only Q&A log.
type ConversationStore interface {
	AppendConversation(ctx context.Context, conv *models.Conversation) error
	ListConversations(ctx context.Context, userID, documentID string, limit int) ([]models.Conversation, error)
}

// Embedder computes retrieval embeddings.
type Embedder interface {
	// EmbedQuery embeds a question with the query task type.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// EmbedDocuments embeds passages with the document task type, one
	// vector per input, in input order.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces a text completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// BlobStore reads uploaded objects.
type BlobStore interface {
	Download(ctx context.Context, bucket, objectPath string, dst io.Writer) error
}
