package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docqa-backend/internal/logger"
	"docqa-backend/internal/telemetry"
	"docqa-backend/models"
	"docqa-backend/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultPrefilterCap bounds how many chunks are embedded per question.
const DefaultPrefilterCap = 60

// QAService answers questions about one ingested document.
type QAService struct {
	docs          DocumentStore
	chunks        ChunkStore
	conversations ConversationStore
	embedder      Embedder
	generator     Generator
	chunkSize     int
	prefilterCap  int
	metrics       *telemetry.Metrics
}

// QAOptions tunes a QAService. Zero values use defaults.
type QAOptions struct {
	ChunkSize    int
	PrefilterCap int
	Metrics      *telemetry.Metrics
}

// NewQAService wires the question pipeline. embedder and generator may be
// nil when no provider credential is configured; Ask then reports
// failed-precondition.
func NewQAService(docs DocumentStore, chunks ChunkStore, conversations ConversationStore, embedder Embedder, generator Generator, opts QAOptions) *QAService {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.PrefilterCap <= 0 {
		opts.PrefilterCap = DefaultPrefilterCap
	}
	return &QAService{
		docs:          docs,
		chunks:        chunks,
		conversations: conversations,
		embedder:      embedder,
		generator:     generator,
		chunkSize:     opts.ChunkSize,
		prefilterCap:  opts.PrefilterCap,
		metrics:       opts.Metrics,
	}
}

// Ask answers req for userID. Every returned error is an *utils.AppError;
// unexpected failures are logged and replaced with a generic internal error.
func (s *QAService) Ask(ctx context.Context, userID string, req models.AskRequest) (*models.AskResponse, error) {
	ctx, span := otel.Tracer("qa-pipeline").Start(ctx, "qa.ask")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", req.DocumentID))

	answer, err := s.ask(ctx, userID, req)
	if err != nil {
		var appErr *utils.AppError
		if !errors.As(err, &appErr) {
			logger.Error("Question failed", "document_id", req.DocumentID, "user_id", userID, "error", err)
			appErr = utils.Internal()
		}
		span.SetAttributes(attribute.String("qa.outcome", string(appErr.Kind)))
		s.metrics.RecordQuestion(ctx, string(appErr.Kind))
		return nil, appErr
	}

	s.metrics.RecordQuestion(ctx, "ok")
	return &models.AskResponse{Answer: answer}, nil
}

func (s *QAService) ask(ctx context.Context, userID string, req models.AskRequest) (string, error) {
	if userID == "" {
		return "", utils.Unauthenticated("You must be signed in to ask a question.")
	}

	// Validated trimmed; passed on exactly as asked.
	question := req.Question
	if strings.TrimSpace(question) == "" {
		return "", utils.InvalidArgument("Question is required.")
	}
	documentID := strings.TrimSpace(req.DocumentID)
	if documentID == "" {
		return "", utils.InvalidArgument("documentId is required.")
	}

	if s.embedder == nil || s.generator == nil {
		return "", utils.FailedPrecondition("Gemini API key not configured. Set GEMINI_API_KEY for the service.")
	}

	doc, err := s.docs.GetDocument(ctx, documentID)
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return "", utils.NotFound("Document not found")
		}
		return "", fmt.Errorf("load document: %w", err)
	}
	if !doc.HasText() {
		return "", utils.FailedPrecondition("Document has no extracted text yet. Please try again later.")
	}

	chunks, err := s.loadChunks(ctx, doc)
	if err != nil {
		return "", err
	}

	candidates := PrefilterChunks(question, chunks, s.prefilterCap)

	ranked, err := NewRanker(s.embedder).Rank(ctx, question, candidates)
	if err != nil {
		return "", err
	}

	return NewAnswerSynthesizer(s.generator, s.conversations).Answer(ctx, AnswerInput{
		Question:   question,
		Chunks:     ranked,
		UserID:     userID,
		DocumentID: documentID,
	})
}

// loadChunks returns the stored chunk texts in index order, chunking the
// extracted text on the fly when none are stored.
func (s *QAService) loadChunks(ctx context.Context, doc *models.Document) ([]string, error) {
	stored, err := s.chunks.ListChunks(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}

	if len(stored) == 0 {
		logger.Debug("No stored chunks; chunking extracted text", "document_id", doc.ID)
		return ChunkText(doc.ExtractedText, s.chunkSize), nil
	}

	texts := make([]string, len(stored))
	for i, c := range stored {
		texts[i] = c.Text
	}
	return texts, nil
}
