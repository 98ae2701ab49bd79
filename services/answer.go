package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"docqa-backend/internal/logger"
	"docqa-backend/models"

	"go.opentelemetry.io/otel"
)

// BuildPrompt assembles the grounded prompt sent to the generative model.
func BuildPrompt(question string, chunks []string) string {
	var b strings.Builder
	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nDocument content:\n")
	b.WriteString(strings.Join(chunks, "\n\n"))
	b.WriteString("\n\nPlease answer the question based on the document. Include citations if possible.\n")
	return b.String()
}

// AnswerInput is one question with the chunks it should be grounded in.
type AnswerInput struct {
	Question   string
	Chunks     []string
	UserID     string
	DocumentID string
}

// AnswerSynthesizer generates an answer and records the exchange.
type AnswerSynthesizer struct {
	generator     Generator
	conversations ConversationStore
	now           func() time.Time
}

// NewAnswerSynthesizer creates a new answer synthesizer
func NewAnswerSynthesizer(generator Generator, conversations ConversationStore) *AnswerSynthesizer {
	return &AnswerSynthesizer{
		generator:     generator,
		conversations: conversations,
		now:           time.Now,
	}
}

// Answer returns the model's response verbatim. A failure to record the
// conversation is logged and does not affect the returned answer.
func (s *AnswerSynthesizer) Answer(ctx context.Context, in AnswerInput) (string, error) {
	ctx, span := otel.Tracer("qa-pipeline").Start(ctx, "answer.generate")
	defer span.End()

	answer, err := s.generator.Generate(ctx, BuildPrompt(in.Question, in.Chunks))
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}

	record := &models.Conversation{
		Question:   in.Question,
		Answer:     answer,
		UserID:     in.UserID,
		DocumentID: in.DocumentID,
		Timestamp:  s.now().UTC(),
	}
	if err := s.conversations.AppendConversation(ctx, record); err != nil {
		logger.Error("Failed to save conversation", "document_id", in.DocumentID, "user_id", in.UserID, "error", err)
	}

	return answer, nil
}
