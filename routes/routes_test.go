package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"docqa-backend/internal/auth"
	"docqa-backend/internal/config"
	"docqa-backend/internal/logger"
	"docqa-backend/internal/storage"
	"docqa-backend/middleware"
	"docqa-backend/models"
	"docqa-backend/services"
	"docqa-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = strings.Repeat("k", 32)

func init() {
	gin.SetMode(gin.TestMode)
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	token, _, err := auth.IssueAccessToken(userID, []byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func testRouter() *gin.Engine {
	cfg := &config.Config{CORSOrigins: []string{"http://localhost:3000"}}
	return NewRouter(cfg, nil, nil)
}

type stubQA struct {
	userID string
	req    models.AskRequest
	resp   *models.AskResponse
	err    error
}

func (s *stubQA) Ask(_ context.Context, userID string, req models.AskRequest) (*models.AskResponse, error) {
	s.userID, s.req = userID, req
	return s.resp, s.err
}

func decodeError(t *testing.T, body *bytes.Buffer) utils.ErrorResponse {
	t.Helper()
	var resp utils.ErrorResponse
	require.NoError(t, json.Unmarshal(body.Bytes(), &resp))
	return resp
}

func TestHandleAsk(t *testing.T) {
	qa := &stubQA{resp: &models.AskResponse{Answer: "Blue."}}
	router := testRouter()
	SetupQARoutes(router, qa, middleware.NewAuthMiddleware(testSecret, nil))

	req := httptest.NewRequest(http.MethodPost, "/api/qa/ask", strings.NewReader(`{"question":"What color?","documentId":"doc-1"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, "user-1"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"answer":"Blue."}`, w.Body.String())
	assert.Equal(t, "user-1", qa.userID)
	assert.Equal(t, models.AskRequest{Question: "What color?", DocumentID: "doc-1"}, qa.req)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestHandleAskLogsMalformedBody(t *testing.T) {
	prev := logger.Logger
	t.Cleanup(func() { logger.Logger = prev })
	var logs bytes.Buffer
	logger.InitLoggerTo(&logs, "debug")

	qa := &stubQA{err: utils.InvalidArgument("Question is required.")}
	router := testRouter()
	SetupQARoutes(router, qa, middleware.NewAuthMiddleware(testSecret, nil))

	req := httptest.NewRequest(http.MethodPost, "/api/qa/ask", strings.NewReader(`{"question":`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, "user-1"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.AskRequest{}, qa.req)
	assert.Contains(t, logs.String(), "Ignoring malformed question body")
	assert.Contains(t, logs.String(), w.Header().Get(middleware.RequestIDHeader))
}

func TestHandleAskErrors(t *testing.T) {
	tests := []struct {
		name       string
		auth       string
		body       string
		err        error
		wantStatus int
		wantCode   string
		wantUser   string
	}{
		{
			name:       "domain error passes through",
			body:       `{"question":"q"}`,
			err:        utils.Unauthenticated("You must be signed in to ask a question."),
			wantStatus: http.StatusUnauthorized,
			wantCode:   "unauthenticated",
		},
		{
			name:       "invalid token treated as anonymous",
			auth:       "Bearer garbage",
			body:       `{"question":"q","documentId":"d"}`,
			err:        utils.Unauthenticated("You must be signed in to ask a question."),
			wantStatus: http.StatusUnauthorized,
			wantCode:   "unauthenticated",
		},
		{
			name:       "not found",
			body:       `{"question":"q","documentId":"missing"}`,
			err:        utils.NotFound("Document not found"),
			wantStatus: http.StatusNotFound,
			wantCode:   "not-found",
		},
		{
			name:       "failed precondition",
			body:       `{"question":"q","documentId":"d"}`,
			err:        utils.FailedPrecondition("Document has no extracted text yet. Please try again later."),
			wantStatus: http.StatusPreconditionFailed,
			wantCode:   "failed-precondition",
		},
		{
			name:       "unexpected error is hidden",
			body:       `{"question":"q","documentId":"d"}`,
			err:        errors.New("mongo: connection reset"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal",
		},
		{
			name:       "malformed body reaches validation",
			body:       `{not json`,
			err:        utils.InvalidArgument("Question is required."),
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid-argument",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qa := &stubQA{err: tt.err}
			router := testRouter()
			SetupQARoutes(router, qa, middleware.NewAuthMiddleware(testSecret, nil))

			req := httptest.NewRequest(http.MethodPost, "/api/qa/ask", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeError(t, w.Body)
			assert.Equal(t, tt.wantCode, resp.ErrorCode)
			assert.NotContains(t, resp.Message, "mongo")
			assert.Equal(t, tt.wantUser, qa.userID)
		})
	}
}

type memoryDocs struct {
	docs      map[string]*models.Document
	createErr error
}

func (m *memoryDocs) GetDocument(_ context.Context, id string) (*models.Document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, services.ErrDocumentNotFound
	}
	return doc, nil
}

func (m *memoryDocs) CreateDocument(_ context.Context, doc *models.Document) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.docs[doc.ID] = doc
	return nil
}

type stubQueue struct {
	events []models.UploadEvent
	err    error
}

func (q *stubQueue) EnqueueUpload(_ context.Context, evt models.UploadEvent) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	q.events = append(q.events, evt)
	return "task-1", nil
}

type documentFixture struct {
	docs   *memoryDocs
	blobs  *storage.LocalBlobStore
	queue  *stubQueue
	router *gin.Engine
}

func newDocumentFixture(t *testing.T) *documentFixture {
	t.Helper()
	blobs, err := storage.NewLocalBlobStore(t.TempDir())
	require.NoError(t, err)

	f := &documentFixture{
		docs:   &memoryDocs{docs: map[string]*models.Document{}},
		blobs:  blobs,
		queue:  &stubQueue{},
		router: testRouter(),
	}
	h := NewDocumentHandler(f.docs, f.blobs, f.queue, "documents", 1024)
	SetupDocumentRoutes(f.router, h, middleware.NewAuthMiddleware(testSecret, nil))
	return f
}

func multipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = io.WriteString(part, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func (f *documentFixture) upload(t *testing.T, userID, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartUpload(t, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	req.Header.Set("Content-Type", contentType)
	if userID != "" {
		req.Header.Set("Authorization", bearer(t, userID))
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestUploadDocument(t *testing.T) {
	f := newDocumentFixture(t)

	w := f.upload(t, "user-1", "Notes.TXT", "hello world")

	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var resp models.UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.StatusUploaded, resp.Status)
	assert.Equal(t, "task-1", resp.TaskID)

	doc := f.docs.docs[resp.ID]
	require.NotNil(t, doc)
	assert.Equal(t, "user-1", doc.OwnerID)
	assert.Equal(t, "uploads/"+resp.ID+".txt", doc.FilePath)

	require.Len(t, f.queue.events, 1)
	evt := f.queue.events[0]
	assert.Equal(t, resp.ID, evt.DocumentID())
	assert.Equal(t, "documents", evt.Bucket)

	var stored bytes.Buffer
	require.NoError(t, f.blobs.Download(context.Background(), "documents", doc.FilePath, &stored))
	assert.Equal(t, "hello world", stored.String())
}

func TestUploadDocumentRejects(t *testing.T) {
	f := newDocumentFixture(t)

	assert.Equal(t, http.StatusUnauthorized, f.upload(t, "", "a.pdf", "%PDF").Code)
	assert.Equal(t, http.StatusBadRequest, f.upload(t, "user-1", "a.exe", "MZ").Code)
	assert.Equal(t, http.StatusBadRequest, f.upload(t, "user-1", "big.txt", strings.Repeat("x", 2048)).Code)
	assert.Equal(t, http.StatusBadRequest, f.upload(t, "user-1", "empty.txt", "").Code)
	assert.Empty(t, f.docs.docs)
	assert.Empty(t, f.queue.events)
}

func TestUploadDocumentEnqueueFailureStillAccepted(t *testing.T) {
	f := newDocumentFixture(t)
	f.queue.err = errors.New("redis down")

	w := f.upload(t, "user-1", "a.docx", "PK fake docx")

	require.Equal(t, http.StatusAccepted, w.Code)
	var resp models.UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.TaskID)
	assert.Equal(t, models.StatusUploaded, f.docs.docs[resp.ID].Status)
}

func TestUploadDocumentRegisterFailureRemovesBlob(t *testing.T) {
	f := newDocumentFixture(t)
	f.docs.createErr = errors.New("duplicate key")

	w := f.upload(t, "user-1", "a.txt", "text")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, f.queue.events)
}

func TestGetDocument(t *testing.T) {
	f := newDocumentFixture(t)
	f.docs.docs["doc-1"] = &models.Document{ID: "doc-1", OwnerID: "user-1", Status: models.StatusReady, FilePath: "uploads/doc-1.pdf", ExtractedText: "text"}

	get := func(userID, id string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/documents/"+id, nil)
		req.Header.Set("Authorization", bearer(t, userID))
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)
		return w
	}

	w := get("user-1", "doc-1")
	require.Equal(t, http.StatusOK, w.Code)
	var view models.DocumentView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, models.StatusReady, view.Status)
	assert.Equal(t, "text", view.ExtractedText)

	assert.Equal(t, http.StatusNotFound, get("user-2", "doc-1").Code)
	assert.Equal(t, http.StatusNotFound, get("user-1", "missing").Code)
}

type stubConversations struct {
	userID, documentID string
	limit              int
	items              []models.Conversation
}

func (s *stubConversations) ListConversations(_ context.Context, userID, documentID string, limit int) ([]models.Conversation, error) {
	s.userID, s.documentID, s.limit = userID, documentID, limit
	return s.items, nil
}

func TestListConversations(t *testing.T) {
	store := &stubConversations{items: []models.Conversation{{Question: "q", Answer: "a", UserID: "user-1", DocumentID: "doc-1"}}}
	router := testRouter()
	SetupConversationRoutes(router, store, middleware.NewAuthMiddleware(testSecret, nil))

	call := func(query string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/conversations"+query, nil)
		req.Header.Set("Authorization", bearer(t, "user-1"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := call("?documentId=doc-1&limit=500")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", store.userID)
	assert.Equal(t, "doc-1", store.documentID)
	assert.Equal(t, maxConversationLimit, store.limit)

	var resp struct {
		Conversations []models.Conversation `json:"conversations"`
		Count         int                   `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)

	assert.Equal(t, http.StatusBadRequest, call("?limit=abc").Code)

	call("")
	assert.Equal(t, defaultConversationLimit, store.limit)
}

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}
