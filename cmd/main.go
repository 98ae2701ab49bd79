package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docqa-backend/internal/ai"
	"docqa-backend/internal/config"
	"docqa-backend/internal/database"
	"docqa-backend/internal/logger"
	"docqa-backend/internal/queue"
	"docqa-backend/internal/storage"
	"docqa-backend/internal/telemetry"
	"docqa-backend/middleware"
	"docqa-backend/routes"
	"docqa-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	if cfg.OTelEnabled {
		shutdown, err := telemetry.InitTracer("docqa-api", cfg.OTelEndpoint)
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

	// Redis backs rate limiting and token revocation; both degrade when it is down.
	var rdb *redis.Client
	if client, err := config.NewRedisClient(cfg); err != nil {
		logger.Warn("Redis unavailable; rate limiting and token revocation disabled", "error", err)
	} else {
		rdb = client
		defer rdb.Close()
	}

	redisOpt, err := config.AsynqRedisOpt(cfg)
	if err != nil {
		log.Fatal("Failed to configure task queue:", err)
	}
	queueClient := asynq.NewClient(redisOpt)
	defer queueClient.Close()

	blobs, err := storage.NewLocalBlobStore(cfg.FileStorageDir)
	if err != nil {
		log.Fatal("Failed to initialize storage:", err)
	}

	// The credential is optional at startup; questions report
	// failed-precondition until it is configured.
	var embedder services.Embedder
	var generator services.Generator
	if cfg.GeminiConfigured() {
		gemini, err := ai.NewGeminiClient(context.Background(), cfg, metrics)
		if err != nil {
			log.Fatal("Failed to initialize Gemini client:", err)
		}
		defer gemini.Close()
		embedder, generator = gemini, gemini
	} else {
		logger.Warn("GEMINI_API_KEY not set; question answering is unavailable")
	}

	qa := services.NewQAService(store, store, store, embedder, generator, services.QAOptions{
		ChunkSize:    cfg.ChunkSize,
		PrefilterCap: cfg.PrefilterCap,
		Metrics:      metrics,
	})

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := routes.NewRouter(cfg, metrics, store)

	authMiddleware := middleware.NewAuthMiddleware(cfg.AccessSecret, rdb)
	limiter := middleware.RateLimitMiddleware(rdb, cfg.RateLimitReqs, time.Duration(cfg.RateLimitWindow)*time.Second)

	routes.SetupQARoutes(router, qa, authMiddleware, limiter)
	routes.SetupDocumentRoutes(router,
		routes.NewDocumentHandler(store, blobs, queue.NewIngestQueue(queueClient), cfg.UploadBucket, cfg.MaxFileSize),
		authMiddleware, limiter)
	routes.SetupConversationRoutes(router, store, authMiddleware)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
