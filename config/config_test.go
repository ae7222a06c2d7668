package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, "faiss", cfg.VectorDB.Type)
	assert.Equal(t, "cosine", cfg.VectorDB.Distance)
	assert.Equal(t, 1000, cfg.Document.ChunkSize)
	assert.Equal(t, 200, cfg.Document.ChunkOverlap)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.InDelta(t, 0.5, cfg.Retrieval.MinScore, 1e-6)
	assert.False(t, cfg.Queue.Enable)
	assert.Equal(t, 16, cfg.Embed.BatchSize)
	assert.Equal(t, 30, cfg.Embed.Timeout)
	assert.Equal(t, 60, cfg.LLM.Timeout)
}

func TestLoadWritesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	_, err := Load(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.NoError(t, err, "default config file should have been written")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
  mode: debug
vectordb:
  type: memory
  dim: 3
document:
  chunk_size: 500
  chunk_overlap: 50
queue:
  enable: true
  concurrency: 8
embed:
  batch_size: 4
  timeout: 10
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, "memory", cfg.VectorDB.Type)
	assert.Equal(t, 3, cfg.VectorDB.Dim)
	assert.Equal(t, 500, cfg.Document.ChunkSize)
	assert.True(t, cfg.Queue.Enable)
	assert.Equal(t, 8, cfg.Queue.Concurrency)
	assert.Equal(t, 4, cfg.Embed.BatchSize)
	assert.Equal(t, 10, cfg.Embed.Timeout)

	// Untouched sections keep their defaults.
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 60, cfg.LLM.Timeout)
}

func TestExpandSecrets(t *testing.T) {
	t.Setenv("TEST_LLM_KEY", "sk-from-env")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
llm:
  api_key: ${TEST_LLM_KEY}
embed:
  api_key: plain-key
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-from-env", cfg.LLM.APIKey)
	assert.Equal(t, "plain-key", cfg.Embed.APIKey)
}
