package rag

import (
	"context"
	"fmt"
	"math"
	"sync"

	"golang.org/x/time/rate"

	"chunkbench/rag/providers"
)

// EmbedderConfig holds the configuration for creating an Embedder.
type EmbedderConfig struct {
	Provider string
	Options  map[string]interface{}
}

// EmbedderOption configures an EmbedderConfig.
type EmbedderOption func(*EmbedderConfig)

// SetProvider selects the embedding provider, e.g. "openai".
func SetProvider(provider string) EmbedderOption {
	return func(c *EmbedderConfig) {
		c.Provider = provider
	}
}

// SetModel selects the embedding model.
func SetModel(model string) EmbedderOption {
	return func(c *EmbedderConfig) {
		c.Options["model"] = model
	}
}

// SetAPIKey sets the provider API key.
func SetAPIKey(apiKey string) EmbedderOption {
	return func(c *EmbedderConfig) {
		c.Options["api_key"] = apiKey
	}
}

// SetOption sets a provider-specific option, e.g. "api_url" for pointing the
// openai provider at a self-hosted endpoint.
func SetOption(key string, value interface{}) EmbedderOption {
	return func(c *EmbedderConfig) {
		c.Options[key] = value
	}
}

// NewEmbedder creates an Embedder for the configured provider.
func NewEmbedder(opts ...EmbedderOption) (providers.Embedder, error) {
	config := &EmbedderConfig{
		Options: make(map[string]interface{}),
	}
	for _, opt := range opts {
		opt(config)
	}
	if config.Provider == "" {
		return nil, fmt.Errorf("provider must be specified")
	}
	factory, err := providers.GetEmbedderFactory(config.Provider)
	if err != nil {
		return nil, err
	}
	return factory(config.Options)
}

// EmbeddedChunk is a chunk of text with its embedding vectors and metadata.
type EmbeddedChunk struct {
	Text       string                 `json:"text"`
	Embeddings map[string][]float64   `json:"embeddings"`
	Metadata   map[string]interface{} `json:"metadata"`
}

// EmbeddingService embeds chunk batches against an Embedder. Requests run on
// a bounded worker pool and share a rate limiter so benchmark runs do not
// trip provider quotas.
type EmbeddingService struct {
	embedder providers.Embedder
	workers  int
	limiter  *rate.Limiter
	logger   Logger
}

// EmbeddingServiceOption configures an EmbeddingService.
type EmbeddingServiceOption func(*EmbeddingService)

// WithWorkers sets the number of concurrent embedding requests.
func WithWorkers(n int) EmbeddingServiceOption {
	return func(s *EmbeddingService) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithRateLimit caps embedding requests per second.
func WithRateLimit(rps float64, burst int) EmbeddingServiceOption {
	return func(s *EmbeddingService) {
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithServiceLogger sets the logger used for progress reporting.
func WithServiceLogger(logger Logger) EmbeddingServiceOption {
	return func(s *EmbeddingService) {
		s.logger = logger
	}
}

// NewEmbeddingService creates a service with 4 workers and no rate limit.
func NewEmbeddingService(embedder providers.Embedder, opts ...EmbeddingServiceOption) *EmbeddingService {
	s := &EmbeddingService{
		embedder: embedder,
		workers:  4,
		limiter:  rate.NewLimiter(rate.Inf, 1),
		logger:   GlobalLogger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Embed embeds a single text, honoring the rate limit.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.embedder.Embed(ctx, text)
}

// EmbedChunks embeds a slice of chunks, preserving their order. The first
// request error cancels the remaining work.
func (s *EmbeddingService) EmbedChunks(ctx context.Context, chunks []Chunk) ([]EmbeddedChunk, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type job struct {
		index int
		chunk Chunk
	}

	jobs := make(chan job)
	out := make([]EmbeddedChunk, len(chunks))
	errs := make(chan error, s.workers)

	var wg sync.WaitGroup
	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				embedding, err := s.Embed(ctx, j.chunk.Text)
				if err != nil {
					select {
					case errs <- fmt.Errorf("error embedding chunk %d: %w", j.index, err):
					default:
					}
					cancel()
					return
				}
				out[j.index] = EmbeddedChunk{
					Text: j.chunk.Text,
					Embeddings: map[string][]float64{
						"default": embedding,
					},
					Metadata: map[string]interface{}{
						"token_size":     j.chunk.TokenSize,
						"start_sentence": j.chunk.StartSentence,
						"end_sentence":   j.chunk.EndSentence,
						"chunk_index":    j.index,
					},
				}
			}
		}()
	}

feed:
	for i, c := range chunks {
		select {
		case jobs <- job{index: i, chunk: c}:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	select {
	case err := <-errs:
		return nil, err
	default:
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.logger.Debug("embedded chunks", "count", len(chunks))
	return out, nil
}

// Normalize scales a vector to unit length, so inner product search behaves
// as cosine similarity. Zero vectors are returned unchanged.
func Normalize(v []float64) []float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths or zero vectors score 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
