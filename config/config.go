// Package config provides configuration management for the chunkbench
// evaluation harness. It handles configuration loading and persistence with
// support for multiple sources:
//   - Configuration files (JSON)
//   - Environment variables
//   - Programmatic defaults
//
// Settings can be overridden in the following order (highest to lowest
// precedence):
//  1. Environment variables
//  2. Configuration file
//  3. Default values
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Config holds all configuration for the evaluation harness.
type Config struct {
	// Embedding settings configure the embedding provider
	Provider     string            // Embedding provider (e.g., "openai")
	Model        string            // Model identifier for embeddings
	EmbeddingURL string            // Override endpoint for self-hosted embedding servers
	APIKeys      map[string]string // API keys for different providers

	// Generation settings configure the answer LLM. When LLMURL is set, a
	// self-hosted OpenAI-compatible endpoint is used instead of a hosted
	// provider.
	LLMProvider string // Hosted LLM provider (e.g., "openai")
	LLMModel    string // Model identifier for generation
	LLMURL      string // Self-hosted OpenAI-compatible endpoint

	// Corpus settings define where ingested papers live
	DataDir string // Directory for paper metadata and PDFs

	// Ingestion settings control what gets fetched from arXiv
	ArxivQuery string // arXiv search query
	ArxivYear  int    // Publication year filter
	ArxivLimit int    // Maximum number of papers

	// Vector store settings for database configuration
	DBType    string // Vector database backend ("memory", "milvus", "chromem")
	DBAddress string // Database connection address

	// Evaluation settings control retrieval and scoring
	DefaultTopK   int   // Chunks retrieved per query
	NumQueries    int   // Test queries sampled per run, 0 for all papers
	QuerySeed     int64 // Seed for deterministic query sampling
	MinChunkChars int   // Minimum chunk length to index

	// Timeouts and retries for system operations
	Timeout    time.Duration // Operation timeout
	MaxRetries int           // Maximum retry attempts
}

// LoadConfig loads configuration from multiple sources, combining them
// according to the precedence rules.
//
// Configuration file search paths:
//  1. $CHUNKBENCH_CONFIG environment variable
//  2. ~/.chunkbench/config.json
//  3. ~/.config/chunkbench/config.json
//  4. ./chunkbench.json
//
// Environment variable overrides:
//   - CHUNKBENCH_PROVIDER: Embedding provider
//   - CHUNKBENCH_MODEL: Embedding model identifier
//   - CHUNKBENCH_API_KEY: API key for the embedding provider
//   - CHUNKBENCH_EMBEDDING_URL: Self-hosted embedding endpoint
//   - CHUNKBENCH_LLM_URL: Self-hosted generation endpoint
//   - CHUNKBENCH_LLM_MODEL: Generation model identifier
//   - CHUNKBENCH_DB: Vector database backend
//   - CHUNKBENCH_DATA_DIR: Corpus directory
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Provider:      "openai",
		Model:         "text-embedding-3-small",
		LLMProvider:   "openai",
		LLMModel:      "gpt-4o-mini",
		DataDir:       "data",
		ArxivQuery:    "cat:cs.AI OR cat:cs.LG",
		ArxivYear:     time.Now().Year(),
		ArxivLimit:    100,
		DBType:        "memory",
		DefaultTopK:   5,
		NumQueries:    0,
		QuerySeed:     42,
		MinChunkChars: 50,
		Timeout:       30 * time.Second,
		MaxRetries:    3,
		APIKeys:       make(map[string]string),
	}

	// Try to load from config file
	configFile := os.Getenv("CHUNKBENCH_CONFIG")
	if configFile == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			candidates := []string{
				filepath.Join(home, ".chunkbench", "config.json"),
				filepath.Join(home, ".config", "chunkbench", "config.json"),
				"chunkbench.json",
			}

			for _, candidate := range candidates {
				if _, err := os.Stat(candidate); err == nil {
					configFile = candidate
					break
				}
			}
		}
	}

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err == nil {
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		}
	}

	// Override with environment variables
	if provider := os.Getenv("CHUNKBENCH_PROVIDER"); provider != "" {
		cfg.Provider = provider
	}
	if model := os.Getenv("CHUNKBENCH_MODEL"); model != "" {
		cfg.Model = model
	}
	if apiKey := os.Getenv("CHUNKBENCH_API_KEY"); apiKey != "" {
		cfg.APIKeys[cfg.Provider] = apiKey
	}
	if url := os.Getenv("CHUNKBENCH_EMBEDDING_URL"); url != "" {
		cfg.EmbeddingURL = url
	}
	if url := os.Getenv("CHUNKBENCH_LLM_URL"); url != "" {
		cfg.LLMURL = url
	}
	if model := os.Getenv("CHUNKBENCH_LLM_MODEL"); model != "" {
		cfg.LLMModel = model
	}
	if db := os.Getenv("CHUNKBENCH_DB"); db != "" {
		cfg.DBType = db
	}
	if dir := os.Getenv("CHUNKBENCH_DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}

	return cfg, nil
}

// APIKey returns the key configured for the embedding provider, falling back
// to OPENAI_API_KEY for OpenAI-compatible providers.
func (c *Config) APIKey() string {
	if key, ok := c.APIKeys[c.Provider]; ok && key != "" {
		return key
	}
	return os.Getenv("OPENAI_API_KEY")
}

// Save persists the configuration to a JSON file at the specified path.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
