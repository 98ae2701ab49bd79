package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI       string
	DBName         string
	Port           string
	GinMode        string
	CORSOrigins    []string
	MaxFileSize    int64
	FileStorageDir string
	UploadBucket   string

	// Gemini provider. An empty key is allowed at startup; question
	// requests fail with failed-precondition until it is set.
	GeminiAPIKey          string
	GeminiModel           string
	GoogleEmbeddingsModel string
	GeminiTier            string

	// Pipeline tuning
	ChunkSize      int
	ChunkBatchSize int
	PrefilterCap   int

	// Redis Configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// JWT access token secret
	AccessSecret string

	RateLimitReqs   int
	RateLimitWindow int

	// Telemetry
	OTelEnabled  bool
	OTelEndpoint string

	// Worker
	WorkerConcurrency   int
	IngestSweepInterval time.Duration
	IngestStaleAfter    time.Duration
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017/docqa"),
		DBName:         getEnv("DB_NAME", "docqa"),
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		CORSOrigins:    strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173"), ","),
		MaxFileSize:    getEnvInt64("MAX_FILE_SIZE", 52428800), // 50MB
		FileStorageDir: getEnv("FILE_STORAGE_DIR", "./storage"),
		UploadBucket:   getEnv("UPLOAD_BUCKET", "documents"),

		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		GeminiTier:            getEnv("GEMINI_TIER", "free"),

		ChunkSize:      getEnvInt("CHUNK_SIZE", 1000),
		ChunkBatchSize: getEnvInt("CHUNK_BATCH_SIZE", 400),
		PrefilterCap:   getEnvInt("PREFILTER_CAP", 60),

		// Redis Configuration
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		AccessSecret: getEnv("ACCESS_SECRET", ""),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		OTelEnabled:  getEnvBool("OTEL_ENABLED", false),
		OTelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		WorkerConcurrency:   getEnvInt("WORKER_CONCURRENCY", 10),
		IngestSweepInterval: getEnvDuration("INGEST_SWEEP_INTERVAL", 5*time.Minute),
		IngestStaleAfter:    getEnvDuration("INGEST_STALE_AFTER", 15*time.Minute),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	if len(c.AccessSecret) < 32 {
		return fmt.Errorf("ACCESS_SECRET is required and must be at least 32 characters - set it in .env file")
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkBatchSize <= 0 || c.ChunkBatchSize > 500 {
		return fmt.Errorf("CHUNK_BATCH_SIZE must be between 1 and 500, got %d", c.ChunkBatchSize)
	}
	if c.PrefilterCap <= 0 {
		return fmt.Errorf("PREFILTER_CAP must be positive, got %d", c.PrefilterCap)
	}
	return nil
}

// GeminiConfigured reports whether the provider credential is present.
func (c *Config) GeminiConfigured() bool {
	return strings.TrimSpace(c.GeminiAPIKey) != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
