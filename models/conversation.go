package models

import "time"

// Conversation is an append-only record of one answered question.
// DocumentID is a lookup reference only; the record outlives the document.
type Conversation struct {
	ID         string    `bson:"_id,omitempty" json:"id"`
	Question   string    `bson:"question" json:"question"`
	Answer     string    `bson:"answer" json:"answer"`
	UserID     string    `bson:"userId" json:"userId"`
	DocumentID string    `bson:"documentId" json:"documentId"`
	Timestamp  time.Time `bson:"timestamp" json:"timestamp"`
}

// AskRequest is the body of the question-answering endpoint.
type AskRequest struct {
	Question   string `json:"question"`
	DocumentID string `json:"documentId"`
}

// AskResponse is returned for an answered question.
type AskResponse struct {
	Answer string `json:"answer"`
}
