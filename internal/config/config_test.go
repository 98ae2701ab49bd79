package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("ACCESS_SECRET", testSecret)
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 400, cfg.ChunkBatchSize)
	assert.Equal(t, 60, cfg.PrefilterCap)
	assert.Equal(t, "text-embedding-004", cfg.GoogleEmbeddingsModel)
	assert.Equal(t, 5*time.Minute, cfg.IngestSweepInterval)
	assert.False(t, cfg.GeminiConfigured())
}

func TestLoadConfig_MissingGeminiKeyIsNotFatal(t *testing.T) {
	t.Setenv("ACCESS_SECRET", testSecret)
	t.Setenv("GEMINI_API_KEY", "")

	_, err := LoadConfig()
	assert.NoError(t, err)
}

func TestLoadConfig_RequiresAccessSecret(t *testing.T) {
	t.Setenv("ACCESS_SECRET", "short")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("ACCESS_SECRET", testSecret)
	t.Setenv("CHUNK_SIZE", "250")
	t.Setenv("PREFILTER_CAP", "10")
	t.Setenv("INGEST_STALE_AFTER", "2m")
	t.Setenv("GEMINI_API_KEY", "key")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.ChunkSize)
	assert.Equal(t, 10, cfg.PrefilterCap)
	assert.Equal(t, 2*time.Minute, cfg.IngestStaleAfter)
	assert.True(t, cfg.GeminiConfigured())
}

func TestValidate_BatchSizeBounds(t *testing.T) {
	cfg := &Config{AccessSecret: testSecret, ChunkSize: 1000, PrefilterCap: 60}

	cfg.ChunkBatchSize = 0
	assert.Error(t, cfg.Validate())

	cfg.ChunkBatchSize = 501
	assert.Error(t, cfg.Validate())

	cfg.ChunkBatchSize = 400
	assert.NoError(t, cfg.Validate())
}
