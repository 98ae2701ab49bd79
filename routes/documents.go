package routes

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"docqa-backend/internal/logger"
	"docqa-backend/internal/storage"
	"docqa-backend/middleware"
	"docqa-backend/models"
	"docqa-backend/services"
	"docqa-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var supportedExtensions = map[string]bool{
	services.FormatPDF:  true,
	services.FormatDOCX: true,
	services.FormatTXT:  true,
}

// DocumentRegistry is the document store subset used by the HTTP layer.
type DocumentRegistry interface {
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	CreateDocument(ctx context.Context, doc *models.Document) error
}

// BlobWriter stores uploaded bytes.
type BlobWriter interface {
	Put(ctx context.Context, bucket, objectPath string, r io.Reader, maxBytes int64) (int64, error)
	Remove(bucket, objectPath string) error
}

// UploadQueue schedules background ingestion.
type UploadQueue interface {
	EnqueueUpload(ctx context.Context, evt models.UploadEvent) (string, error)
}

type DocumentHandler struct {
	docs        DocumentRegistry
	blobs       BlobWriter
	queue       UploadQueue
	bucket      string
	maxFileSize int64
}

func NewDocumentHandler(docs DocumentRegistry, blobs BlobWriter, queue UploadQueue, bucket string, maxFileSize int64) *DocumentHandler {
	return &DocumentHandler{
		docs:        docs,
		blobs:       blobs,
		queue:       queue,
		bucket:      bucket,
		maxFileSize: maxFileSize,
	}
}

func SetupDocumentRoutes(router *gin.Engine, h *DocumentHandler, authMiddleware *middleware.AuthMiddleware, limiters ...gin.HandlerFunc) {
	group := router.Group("/api/documents")
	group.Use(authMiddleware.RequireAuth())
	group.Use(limiters...)
	group.POST("", middleware.RequestSizeLimit(h.maxFileSize+1<<20), h.Upload)
	group.GET("/:id", h.Get)
}

// Upload handles POST /api/documents: stores the file, registers the
// document as uploaded and schedules ingestion.
func (h *DocumentHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		utils.RespondWithBadRequest(c, "No file provided", nil)
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !supportedExtensions[ext] {
		utils.RespondWithBadRequest(c, "Only PDF, DOCX and TXT files are supported", gin.H{"extension": ext})
		return
	}
	if header.Size > h.maxFileSize {
		utils.RespondWithBadRequest(c, "File size exceeds maximum limit", gin.H{"max_size": h.maxFileSize})
		return
	}

	file, err := header.Open()
	if err != nil {
		utils.RespondWithBadRequest(c, "Cannot read uploaded file", nil)
		return
	}
	defer file.Close()

	ctx, cancel := utils.WithLongTimeout(c.Request.Context())
	defer cancel()

	docID := uuid.NewString()
	objectPath := "uploads/" + docID + ext

	if _, err := h.blobs.Put(ctx, h.bucket, objectPath, file, h.maxFileSize); err != nil {
		if errors.Is(err, storage.ErrEmptyObject) {
			utils.RespondWithBadRequest(c, "File is empty", nil)
			return
		}
		logger.Error("Failed to store upload", "document_id", docID, "error", err)
		utils.RespondWithInternalError(c, "Failed to store file", nil)
		return
	}

	now := time.Now().UTC()
	doc := &models.Document{
		ID:           docID,
		OwnerID:      middleware.GetUserID(c),
		OriginalName: header.Filename,
		Status:       models.StatusUploaded,
		FilePath:     objectPath,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.docs.CreateDocument(ctx, doc); err != nil {
		logger.Error("Failed to register document", "document_id", docID, "error", err)
		if rmErr := h.blobs.Remove(h.bucket, objectPath); rmErr != nil {
			logger.Warn("Failed to remove orphaned upload", "document_id", docID, "error", rmErr)
		}
		utils.RespondWithInternalError(c, "Failed to register document", nil)
		return
	}

	resp := models.UploadResponse{
		ID:       docID,
		Filename: header.Filename,
		Status:   doc.Status,
		Message:  "Upload accepted for processing",
	}

	// The stale-upload sweeper re-enqueues documents left in uploaded.
	taskID, err := h.queue.EnqueueUpload(ctx, models.UploadEvent{
		Bucket:      h.bucket,
		ObjectPath:  objectPath,
		ContentType: header.Header.Get("Content-Type"),
		Metadata:    map[string]string{"docId": docID},
	})
	if err != nil {
		logger.Warn("Failed to enqueue ingestion; sweeper will retry", "document_id", docID, "error", err)
		resp.Message = "Upload accepted; processing will start shortly"
	}
	resp.TaskID = taskID

	c.JSON(http.StatusAccepted, resp)
}

// Get handles GET /api/documents/:id. Documents owned by someone else are
// reported as not found.
func (h *DocumentHandler) Get(c *gin.Context) {
	ctx, cancel := utils.WithTimeout(c.Request.Context())
	defer cancel()

	doc, err := h.docs.GetDocument(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrDocumentNotFound) {
			utils.RespondWithNotFound(c, "Document not found")
			return
		}
		logger.Error("Failed to load document", "document_id", c.Param("id"), "error", err)
		utils.RespondWithAppError(c, err)
		return
	}
	if doc.OwnerID != "" && doc.OwnerID != middleware.GetUserID(c) {
		utils.RespondWithNotFound(c, "Document not found")
		return
	}

	c.JSON(http.StatusOK, doc.View())
}
