package services

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"docqa-backend/models"
)

type memoryStore struct {
	mu            sync.Mutex
	docs          map[string]*models.Document
	chunks        []models.Chunk
	conversations []models.Conversation

	getCalls    int
	insertSizes []int
	getErr      error
	insertErr   error
	saveErr     error
	appendErr   error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{docs: make(map[string]*models.Document)}
}

func (m *memoryStore) GetDocument(_ context.Context, id string) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	doc, ok := m.docs[id]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	cp := *doc
	return &cp, nil
}

func (m *memoryStore) CreateDocument(_ context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *doc
	m.docs[doc.ID] = &cp
	return nil
}

func (m *memoryStore) upsert(id string) *models.Document {
	doc, ok := m.docs[id]
	if !ok {
		doc = &models.Document{ID: id, CreatedAt: time.Now()}
		m.docs[id] = doc
	}
	doc.UpdatedAt = time.Now()
	return doc
}

func (m *memoryStore) MarkProcessing(_ context.Context, id, filePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc := m.upsert(id)
	doc.Status = models.StatusProcessing
	doc.FilePath = filePath
	return nil
}

func (m *memoryStore) SaveExtraction(_ context.Context, id, text, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	doc := m.upsert(id)
	doc.ExtractedText = text
	doc.Status = status
	return nil
}

func (m *memoryStore) ListStaleUploads(_ context.Context, olderThan time.Time, limit int) ([]models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Document
	for _, d := range m.docs {
		if d.Status == models.StatusUploaded && d.UpdatedAt.Before(olderThan) {
			out = append(out, *d)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryStore) InsertChunks(_ context.Context, chunks []models.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.insertSizes = append(m.insertSizes, len(chunks))
	m.chunks = append(m.chunks, chunks...)
	return nil
}

func (m *memoryStore) ActivateGeneration(_ context.Context, documentID, generation string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsert(documentID).ChunkGeneration = generation
	return nil
}

func (m *memoryStore) DeleteStaleGenerations(_ context.Context, documentID, keep string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.chunks[:0]
	for _, c := range m.chunks {
		if c.DocumentID != documentID || c.Generation == keep {
			kept = append(kept, c)
		}
	}
	m.chunks = kept
	return nil
}

func (m *memoryStore) ListChunks(_ context.Context, documentID string) ([]models.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[documentID]
	if !ok {
		return nil, nil
	}
	var out []models.Chunk
	for _, c := range m.chunks {
		if c.DocumentID == documentID && c.Generation == doc.ChunkGeneration {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func (m *memoryStore) AppendConversation(_ context.Context, conv *models.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.conversations = append(m.conversations, *conv)
	return nil
}

func (m *memoryStore) ListConversations(_ context.Context, userID, documentID string, limit int) ([]models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Conversation
	for i := len(m.conversations) - 1; i >= 0; i-- {
		c := m.conversations[i]
		if c.UserID == userID && (documentID == "" || c.DocumentID == documentID) {
			out = append(out, c)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// keywordEmbedder maps text onto a vector counting each keyword.
type keywordEmbedder struct {
	keywords  []string
	err       error
	short     bool
	docInputs [][]string
}

func (e *keywordEmbedder) vector(text string) []float32 {
	lc := strings.ToLower(text)
	vec := make([]float32, len(e.keywords))
	for i, k := range e.keywords {
		vec[i] = float32(strings.Count(lc, k))
	}
	return vec
}

func (e *keywordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.vector(text), nil
}

func (e *keywordEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.docInputs = append(e.docInputs, texts)
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		out = append(out, e.vector(t))
	}
	if e.short && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

type stubGenerator struct {
	answer  string
	err     error
	prompts []string
}

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

type memoryBlobs struct {
	objects map[string][]byte
	err     error
	dst     []string
}

func (b *memoryBlobs) Download(_ context.Context, bucket, objectPath string, dst io.Writer) error {
	if f, ok := dst.(interface{ Name() string }); ok {
		b.dst = append(b.dst, f.Name())
	}
	if b.err != nil {
		return b.err
	}
	data, ok := b.objects[bucket+"/"+objectPath]
	if !ok {
		return errors.New("object not found")
	}
	_, err := dst.Write(data)
	return err
}
