package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"docqa-backend/internal/logger"
	"docqa-backend/models"
	"docqa-backend/utils"

	"github.com/hibiken/asynq"
)

const (
	TaskIngestDocument = "document:ingest"

	QueueCritical = "critical"
	QueueDefault  = "default"
)

// NewIngestTask wraps an upload event as a retryable ingestion task.
func NewIngestTask(evt models.UploadEvent, opts ...asynq.Option) (*asynq.Task, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}

	base := []asynq.Option{
		asynq.MaxRetry(5),
		asynq.Timeout(10 * time.Minute),
		asynq.Queue(QueueCritical),
	}
	return asynq.NewTask(TaskIngestDocument, payload, append(base, opts...)...), nil
}

// Enqueuer is the part of *asynq.Client used to submit tasks.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// IngestQueue submits upload events for background ingestion.
type IngestQueue struct {
	client Enqueuer
}

func NewIngestQueue(client Enqueuer) *IngestQueue {
	return &IngestQueue{client: client}
}

// EnqueueUpload submits evt and returns the task id.
func (q *IngestQueue) EnqueueUpload(ctx context.Context, evt models.UploadEvent) (string, error) {
	return q.enqueue(ctx, evt)
}

func (q *IngestQueue) enqueue(ctx context.Context, evt models.UploadEvent, opts ...asynq.Option) (string, error) {
	task, err := NewIngestTask(evt, opts...)
	if err != nil {
		return "", fmt.Errorf("build ingest task: %w", err)
	}

	info, err := q.client.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("enqueue ingest task: %w", err)
	}

	logger.Info("Ingestion task enqueued",
		"task_id", info.ID,
		"document_id", evt.DocumentID(),
		"queue", info.Queue,
	)
	return info.ID, nil
}

// UploadHandler processes one upload event.
type UploadHandler interface {
	HandleUpload(ctx context.Context, evt models.UploadEvent) error
}

// TaskProcessor adapts ingestion onto asynq handlers.
type TaskProcessor struct {
	ingestion UploadHandler
}

func NewTaskProcessor(ingestion UploadHandler) *TaskProcessor {
	return &TaskProcessor{ingestion: ingestion}
}

// ProcessIngest handles TaskIngestDocument. Malformed events are not
// retried; every other failure is returned so asynq retries it.
func (p *TaskProcessor) ProcessIngest(ctx context.Context, t *asynq.Task) error {
	var evt models.UploadEvent
	if err := json.Unmarshal(t.Payload(), &evt); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	logger.Info("Processing upload", "document_id", evt.DocumentID(), "object_path", evt.ObjectPath)

	if err := p.ingestion.HandleUpload(ctx, evt); err != nil {
		if utils.KindOf(err) == utils.KindInvalidArgument {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}
	return nil
}

// Register installs the ingestion handler on mux.
func (p *TaskProcessor) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskIngestDocument, p.ProcessIngest)
}
