package models

import "time"

// Chunk is one ordered slice of a document's extracted text.
// Generation identifies the ingestion run that wrote it; only the
// document's active generation is visible to readers.
type Chunk struct {
	DocumentID string    `bson:"document_id" json:"document_id"`
	Generation string    `bson:"generation" json:"-"`
	Index      int       `bson:"index" json:"index"`
	Text       string    `bson:"text" json:"text"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
}
