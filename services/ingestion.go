package services

import (
	"context"
	"fmt"
	"os"
	"time"

	"docqa-backend/internal/logger"
	"docqa-backend/internal/telemetry"
	"docqa-backend/models"
	"docqa-backend/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// IngestionService drives an uploaded blob to a terminal document status.
type IngestionService struct {
	docs      DocumentStore
	blobs     BlobStore
	extractor *TextExtractor
	writer    *ChunkWriter
	chunkSize int
	tmpDir    string
	metrics   *telemetry.Metrics
}

// IngestionOptions tunes an IngestionService. Zero values use defaults.
type IngestionOptions struct {
	ChunkSize int
	TempDir   string
	Metrics   *telemetry.Metrics
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(docs DocumentStore, blobs BlobStore, extractor *TextExtractor, writer *ChunkWriter, opts IngestionOptions) *IngestionService {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	return &IngestionService{
		docs:      docs,
		blobs:     blobs,
		extractor: extractor,
		writer:    writer,
		chunkSize: opts.ChunkSize,
		tmpDir:    opts.TempDir,
		metrics:   opts.Metrics,
	}
}

// HandleUpload processes one upload event. Parse failures end in the
// failed status without an error. Download and store failures are
// returned so the delivering queue retries the event.
func (s *IngestionService) HandleUpload(ctx context.Context, evt models.UploadEvent) error {
	ctx, span := otel.Tracer("ingestion").Start(ctx, "ingestion.handle_upload")
	defer span.End()

	start := time.Now()
	docID := evt.DocumentID()
	if docID == "" {
		return utils.InvalidArgument("upload event has no object path")
	}
	span.SetAttributes(
		attribute.String("document.id", docID),
		attribute.String("upload.object_path", evt.ObjectPath),
	)

	if err := s.docs.MarkProcessing(ctx, docID, evt.ObjectPath); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("mark document %s processing: %w", docID, err)
	}

	blob, err := s.stage(ctx, evt)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	text := s.extract(ctx, blob, evt.Extension())

	status := models.StatusReady
	if !hasText(text) {
		status = models.StatusFailed
	}

	if err := s.docs.SaveExtraction(ctx, docID, text, status); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("save extraction for %s: %w", docID, err)
	}

	// A failed run still replaces the chunk set so answers cannot come
	// from an earlier upload.
	var chunks []string
	if status == models.StatusReady {
		chunks = ChunkText(text, s.chunkSize)
	}
	written, err := s.writer.Write(ctx, docID, chunks)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("write chunks for %s: %w", docID, err)
	}

	span.SetAttributes(
		attribute.String("document.status", status),
		attribute.Int("document.chunks", written),
	)
	s.metrics.RecordIngestion(ctx, status, written, time.Since(start).Seconds())

	logger.Info("Document ingested",
		"document_id", docID,
		"status", status,
		"chunks", written,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// stage downloads the blob to a temp file and reads it back. The temp
// file is removed on every path.
func (s *IngestionService) stage(ctx context.Context, evt models.UploadEvent) ([]byte, error) {
	tmp, err := os.CreateTemp(s.tmpDir, "upload-*"+evt.Extension())
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := s.blobs.Download(ctx, evt.Bucket, evt.ObjectPath, tmp); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("download %s/%s: %w", evt.Bucket, evt.ObjectPath, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	blob, err := os.ReadFile(tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("read staged blob: %w", err)
	}
	return blob, nil
}

func (s *IngestionService) extract(ctx context.Context, blob []byte, format string) string {
	_, span := otel.Tracer("ingestion").Start(ctx, "ingestion.extract")
	defer span.End()

	text := s.extractor.Extract(blob, format)
	span.SetAttributes(
		attribute.String("extract.format", format),
		attribute.Int("extract.bytes", len(blob)),
		attribute.Int("extract.chars", len(text)),
	)
	return text
}

func hasText(text string) bool {
	doc := models.Document{ExtractedText: text}
	return doc.HasText()
}
