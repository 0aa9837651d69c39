package chunkbench

import (
	"chunkbench/rag"
	"chunkbench/rag/providers"
)

// EmbeddedChunk represents a chunk of text with its embeddings and metadata.
type EmbeddedChunk = rag.EmbeddedChunk

// EmbedderOption is a function type for configuring the Embedder.
// It follows the functional options pattern.
//
// Common options include:
//   - SetEmbedderProvider: Choose the embedding service provider
//   - SetEmbedderModel: Select the specific embedding model
//   - SetEmbedderAPIKey: Configure authentication
//   - SetOption: Set custom provider-specific options
type EmbedderOption = rag.EmbedderOption

// SetEmbedderProvider sets the provider for the Embedder.
//
// Example:
//
//	embedder, err := NewEmbedder(
//	    SetEmbedderProvider("openai"),
//	    SetEmbedderModel("text-embedding-3-small"),
//	)
func SetEmbedderProvider(provider string) EmbedderOption {
	return rag.SetProvider(provider)
}

// SetEmbedderModel sets the specific model to use for embedding.
func SetEmbedderModel(model string) EmbedderOption {
	return rag.SetModel(model)
}

// SetEmbedderAPIKey sets the authentication key for the embedding service.
// Self-hosted OpenAI-compatible endpoints may leave this empty.
func SetEmbedderAPIKey(apiKey string) EmbedderOption {
	return rag.SetAPIKey(apiKey)
}

// SetOption sets a custom option for the Embedder, such as "api_url" for
// self-hosted endpoints or "timeout" for the request timeout.
//
// Example:
//
//	embedder, err := NewEmbedder(
//	    SetEmbedderProvider("openai"),
//	    SetOption("api_url", "http://localhost:8001/v1/embeddings"),
//	)
func SetOption(key string, value interface{}) EmbedderOption {
	return rag.SetOption(key, value)
}

// Embedder interface defines the contract for embedding implementations.
type Embedder = providers.Embedder

// NewEmbedder creates a new Embedder instance based on the provided options.
func NewEmbedder(opts ...EmbedderOption) (Embedder, error) {
	return rag.NewEmbedder(opts...)
}
