package models

import (
	"strings"
	"time"
)

// Document is an uploaded file moving through the ingestion lifecycle.
type Document struct {
	ID              string    `bson:"_id" json:"id"`
	OwnerID         string    `bson:"owner_id,omitempty" json:"owner_id,omitempty"`
	OriginalName    string    `bson:"original_name,omitempty" json:"original_name,omitempty"`
	Status          string    `bson:"status" json:"status"`
	FilePath        string    `bson:"filePath" json:"filePath"`
	ExtractedText   string    `bson:"extractedText,omitempty" json:"extractedText,omitempty"`
	ChunkGeneration string    `bson:"chunk_generation,omitempty" json:"-"`
	CreatedAt       time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Document lifecycle states. ready and failed are terminal for one ingestion run.
const (
	StatusUploaded   = "uploaded"
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusFailed     = "failed"
)

// HasText reports whether extraction produced usable text.
func (d *Document) HasText() bool {
	return strings.TrimSpace(d.ExtractedText) != ""
}

// DocumentView is the record shape the UI polls.
type DocumentView struct {
	ID            string    `json:"id"`
	Status        string    `json:"status"`
	FilePath      string    `json:"filePath"`
	ExtractedText string    `json:"extractedText,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// View projects the document onto its public record shape.
func (d *Document) View() DocumentView {
	return DocumentView{
		ID:            d.ID,
		Status:        d.Status,
		FilePath:      d.FilePath,
		ExtractedText: d.ExtractedText,
		UpdatedAt:     d.UpdatedAt,
	}
}

// UploadResponse represents the response after a successful upload
type UploadResponse struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Status   string `json:"status"`
	TaskID   string `json:"task_id,omitempty"`
	Message  string `json:"message"`
}
