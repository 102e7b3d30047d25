package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
llm:
  base_url: "http://localhost:11434"
  model: "llama3.2"
  embed_model: "nomic-embed-text:latest"
  max_tokens: 1000
  temperature: 0.5

database:
  url: "postgres://localhost:5432/test"
  table_name: "test_docs"
  vector_dim: 768
  batch_size: 50

scraper:
  base_url: "https://www.presidency.ucsb.edu/people/president/george-w-bush"
  output_dir: "out"
  log_file: "scrape.log"
  max_pages: 10
  rate_limit: 0.5

processor:
  chunk_size: 500
  chunk_overlap: 100
  remove_stopwords: true

ingest:
  docs_dir: "presidential_documents"
  workers: 2

ui:
  streaming: false
  theme: "dark"
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:11434", config.LLM.BaseURL)
	assert.Equal(t, "llama3.2", config.LLM.Model)
	assert.Equal(t, "nomic-embed-text:latest", config.LLM.EmbedModel)
	assert.Equal(t, 1000, config.LLM.MaxTokens)
	assert.Equal(t, 0.5, config.LLM.Temperature)
	assert.Equal(t, "postgres://localhost:5432/test", config.Database.URL)
	assert.Equal(t, "out", config.Scraper.OutputDir)
	assert.Equal(t, 10, config.Scraper.MaxPages)
	assert.Equal(t, 500, config.Processor.ChunkSize)
	assert.Equal(t, 2, config.Ingest.Workers)
	assert.False(t, config.UI.Streaming)
}

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	assert.Nil(t, config)

	config, err = getDefaultConfig()
	require.NoError(t, err)
	assert.Equal(t, "llama3.2", config.LLM.Model)
	assert.Equal(t, "presidential_documents", config.Scraper.OutputDir)
	assert.Equal(t, "scraping.log", config.Scraper.LogFile)
	assert.Equal(t, 768, config.Database.VectorDim)
	assert.Equal(t, 500, config.Processor.ChunkSize)
	assert.Equal(t, 100, config.Processor.ChunkOverlap)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name         string
		mutate       func(*Config)
		expectedErrs []string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name: "invalid llm settings",
			mutate: func(c *Config) {
				c.LLM.BaseURL = ""
				c.LLM.MaxTokens = 5000
				c.LLM.Temperature = 3.0
			},
			expectedErrs: []string{
				"llm.base_url: Ollama base URL is required",
				"llm.max_tokens: max_tokens must be between 1 and 4096",
				"llm.temperature: temperature must be between 0 and 2",
			},
		},
		{
			name: "invalid database settings",
			mutate: func(c *Config) {
				c.Database.URL = "not-a-url"
				c.Database.VectorDim = -1
			},
			expectedErrs: []string{
				"database.url: invalid database URL",
				"database.vector_dim: vector_dim must be positive",
			},
		},
		{
			name: "chunk overlap exceeds chunk size",
			mutate: func(c *Config) {
				c.Processor.ChunkSize = 100
				c.Processor.ChunkOverlap = 100
			},
			expectedErrs: []string{
				"processor.chunk_overlap: chunk_overlap must be non-negative and less than chunk_size",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := getDefaultConfig()
			require.NoError(t, err)
			tt.mutate(config)

			errors := config.Validate()
			assert.Len(t, errors, len(tt.expectedErrs))
			for i, msg := range tt.expectedErrs {
				assert.Equal(t, msg, errors[i].Error())
			}
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	os.Setenv("OLLAMA_BASE_URL", "http://env-ollama:11434")
	os.Setenv("DATABASE_URL", "postgres://env-db:5432/test")
	defer func() {
		os.Unsetenv("OLLAMA_BASE_URL")
		os.Unsetenv("DATABASE_URL")
	}()

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "http://env-ollama:11434", config.LLM.BaseURL)
	assert.Equal(t, "postgres://env-db:5432/test", config.Database.URL)
}
