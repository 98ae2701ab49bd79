package main

import (
	"context"
	"log"
	"time"

	"docqa-backend/internal/config"
	"docqa-backend/internal/database"
	"docqa-backend/internal/logger"
	"docqa-backend/internal/queue"
	"docqa-backend/internal/storage"
	"docqa-backend/internal/telemetry"
	"docqa-backend/services"

	"github.com/hibiken/asynq"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	if cfg.OTelEnabled {
		shutdown, err := telemetry.InitTracer("docqa-worker", cfg.OTelEndpoint)
		if err != nil {
			logger.Warn("Tracing disabled", "error", err)
		} else {
			defer shutdown()
		}
	}
	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("Metrics disabled", "error", err)
		metrics = nil
	}

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()
	store := database.NewMongoStore(mongoClient.Database(cfg.DBName))

	blobs, err := storage.NewLocalBlobStore(cfg.FileStorageDir)
	if err != nil {
		log.Fatal("Failed to initialize storage:", err)
	}

	ingestion := services.NewIngestionService(
		store,
		blobs,
		services.NewTextExtractor(),
		services.NewChunkWriter(store, cfg.ChunkBatchSize),
		services.IngestionOptions{
			ChunkSize: cfg.ChunkSize,
			TempDir:   blobs.TempDir(),
			Metrics:   metrics,
		},
	)

	redisOpt, err := config.AsynqRedisOpt(cfg)
	if err != nil {
		log.Fatal("Failed to configure task queue:", err)
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
			Queues: map[string]int{
				queue.QueueCritical: 6,
				queue.QueueDefault:  3,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retried, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logger.Error("Task failed",
					"type", task.Type(),
					"retry", retried,
					"max_retry", maxRetry,
					"error", err,
				)
			}),
		},
	)

	mux := asynq.NewServeMux()
	queue.NewTaskProcessor(ingestion).Register(mux)

	// Re-enqueue uploads whose task never ran.
	queueClient := asynq.NewClient(redisOpt)
	defer queueClient.Close()
	sweeper := queue.NewStaleUploadSweeper(store, queue.NewIngestQueue(queueClient), cfg.UploadBucket, cfg.IngestStaleAfter)

	scheduler := queue.NewScheduler()
	err = scheduler.ScheduleInterval("stale-upload-sweep", cfg.IngestSweepInterval, func(ctx context.Context) error {
		_, err := sweeper.Sweep(ctx)
		return err
	})
	if err != nil {
		log.Fatal("Failed to schedule stale upload sweep:", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	logger.Info("Starting ingestion worker",
		"concurrency", cfg.WorkerConcurrency,
		"sweep_interval", cfg.IngestSweepInterval.String(),
	)

	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
