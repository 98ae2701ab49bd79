package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docqa-backend/internal/logger"
	"docqa-backend/models"

	"github.com/go-co-op/gocron"
	"github.com/hibiken/asynq"
)

// Scheduler runs periodic worker jobs.
type Scheduler struct {
	scheduler *gocron.Scheduler
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewScheduler() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()
	s.SingletonModeAll()

	return &Scheduler{
		scheduler: s,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

// Stop stops the scheduler and cancels running jobs' context.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	if s.cancel != nil {
		s.cancel()
	}
}

// ScheduleInterval runs job every duration, starting immediately.
func (s *Scheduler) ScheduleInterval(tag string, duration time.Duration, job func(ctx context.Context) error) error {
	_, err := s.scheduler.Every(duration).Tag(tag).Do(func() {
		if err := job(s.ctx); err != nil {
			logger.Error("Scheduled job failed", "job", tag, "error", err)
		}
	})
	return err
}

// Jobs returns the tags of all scheduled jobs.
func (s *Scheduler) Jobs() []string {
	var tags []string
	for _, j := range s.scheduler.Jobs() {
		tags = append(tags, j.Tags()...)
	}
	return tags
}

// StaleUploadLister finds documents whose ingestion never started.
type StaleUploadLister interface {
	ListStaleUploads(ctx context.Context, olderThan time.Time, limit int) ([]models.Document, error)
}

const sweepBatch = 100

// StaleUploadSweeper re-enqueues documents stuck in uploaded, for example
// after the API failed to enqueue their task.
type StaleUploadSweeper struct {
	docs       StaleUploadLister
	queue      *IngestQueue
	bucket     string
	staleAfter time.Duration
	now        func() time.Time
}

func NewStaleUploadSweeper(docs StaleUploadLister, queue *IngestQueue, bucket string, staleAfter time.Duration) *StaleUploadSweeper {
	return &StaleUploadSweeper{
		docs:       docs,
		queue:      queue,
		bucket:     bucket,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// Sweep enqueues one ingestion task per stale document. Tasks are unique
// for the stale window so overlapping sweeps do not double-enqueue.
func (s *StaleUploadSweeper) Sweep(ctx context.Context) (int, error) {
	docs, err := s.docs.ListStaleUploads(ctx, s.now().Add(-s.staleAfter), sweepBatch)
	if err != nil {
		return 0, fmt.Errorf("list stale uploads: %w", err)
	}

	enqueued := 0
	for _, doc := range docs {
		if doc.FilePath == "" {
			continue
		}
		evt := models.UploadEvent{
			Bucket:     s.bucket,
			ObjectPath: doc.FilePath,
			Metadata:   map[string]string{"docId": doc.ID},
		}
		if _, err := s.queue.enqueue(ctx, evt, asynq.Unique(s.staleAfter)); err != nil {
			if errors.Is(err, asynq.ErrDuplicateTask) {
				continue
			}
			logger.Warn("Failed to re-enqueue stale upload", "document_id", doc.ID, "error", err)
			continue
		}
		enqueued++
	}

	if enqueued > 0 {
		logger.Info("Re-enqueued stale uploads", "count", enqueued)
	}
	return enqueued, nil
}
