package chunkbench

import (
	"context"
	"fmt"
	"time"

	"chunkbench/rag"
)

// Retriever handles semantic search operations with a reusable configuration.
// It embeds the query, searches one strategy collection and returns ranked
// results. The same Retriever can be pointed at different collections via
// its config, which the evaluator does when comparing strategies.
type Retriever struct {
	config   *RetrieverConfig
	vectorDB rag.VectorDB
	embedder Embedder
	ready    bool
}

// RetrieverConfig holds settings for the retrieval process.
type RetrieverConfig struct {
	// Core settings define the basic search behavior
	Collection string   // Name of the vector collection to search
	TopK       int      // Maximum number of results to return
	MinScore   float64  // Minimum similarity score threshold
	Columns    []string // Columns to retrieve from the database

	// Vector DB settings configure the database connection
	DBType    string // Type of vector database ("memory", "milvus", "chromem")
	DBAddress string // Database connection address
	Dimension int    // Embedding vector dimension

	// Embedding settings configure the embedding service
	Provider string // Embedding provider (e.g., "openai")
	Model    string // Model name for embeddings
	APIKey   string // Authentication key

	// Advanced settings provide additional control
	MetricType   string                 // Distance metric ("COSINE", "IP", "L2")
	Timeout      time.Duration          // Operation timeout
	SearchParams map[string]interface{} // Additional search parameters

	vectorDB rag.VectorDB // Injected database, overrides DBType/DBAddress
	embedder Embedder     // Injected embedder, overrides Provider/Model/APIKey
}

// RetrieverResult represents a single retrieved result with its source
// and relevance information.
type RetrieverResult struct {
	Content    string  `json:"content"`     // Retrieved text content
	Score      float64 `json:"score"`       // Similarity score
	PaperID    string  `json:"paper_id"`    // Source paper identifier
	ChunkIndex int64   `json:"chunk_index"` // Position in source document
}

// RetrieverOption configures the retriever using the functional options pattern.
type RetrieverOption func(*RetrieverConfig)

// NewRetriever creates a new Retriever with the given options.
//
// Example:
//
//	retriever, err := NewRetriever(
//	    WithRetrieveCollection("chunks_fixed_500_50"),
//	    WithTopK(5),
//	    WithRetrieveDB("memory", ""),
//	    WithRetrieveEmbedding("openai", "text-embedding-3-small", os.Getenv("OPENAI_API_KEY")),
//	)
func NewRetriever(opts ...RetrieverOption) (*Retriever, error) {
	cfg := defaultRetrieverConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	r := &Retriever{config: cfg}
	if err := r.initialize(); err != nil {
		return nil, err
	}

	return r, nil
}

// Retrieve finds similar content for the given query using vector similarity
// search. Results come back most similar first.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]RetrieverResult, error) {
	if !r.ready {
		return nil, fmt.Errorf("retriever not properly initialized")
	}

	queryEmbedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to create query embedding: %w", err)
	}

	r.vectorDB.SetColumnNames(r.config.Columns)
	vectors := map[string]rag.Vector{"Embedding": queryEmbedding}

	searchResults, err := r.vectorDB.Search(
		ctx,
		r.config.Collection,
		vectors,
		r.config.TopK,
		r.config.MetricType,
		r.config.SearchParams,
	)
	if err != nil {
		return nil, fmt.Errorf("search failed on %s: %w", r.config.Collection, err)
	}

	results := make([]RetrieverResult, 0, len(searchResults))
	for _, result := range searchResults {
		if r.config.MinScore > 0 && result.Score < r.config.MinScore {
			continue
		}

		content, _ := result.Fields["Text"].(string)
		paperID, _ := result.Fields["PaperID"].(string)
		chunkIndex, _ := result.Fields["ChunkIndex"].(int64)

		results = append(results, RetrieverResult{
			Content:    content,
			Score:      result.Score,
			PaperID:    paperID,
			ChunkIndex: chunkIndex,
		})
	}

	return results, nil
}

// SetCollection repoints the retriever at another collection. Used when the
// same database holds one collection per chunking strategy.
func (r *Retriever) SetCollection(name string) {
	r.config.Collection = name
}

// GetVectorDB returns the underlying vector database instance.
func (r *Retriever) GetVectorDB() rag.VectorDB {
	return r.vectorDB
}

// WithRetrieveCollection sets the collection name for retrieval operations.
func WithRetrieveCollection(name string) RetrieverOption {
	return func(c *RetrieverConfig) {
		c.Collection = name
	}
}

// WithTopK sets the maximum number of results to return.
func WithTopK(k int) RetrieverOption {
	return func(c *RetrieverConfig) {
		c.TopK = k
	}
}

// WithMinScore sets the minimum similarity score threshold. Zero disables
// filtering, which is the default: strategy comparison wants a fixed result
// count per query.
func WithMinScore(score float64) RetrieverOption {
	return func(c *RetrieverConfig) {
		c.MinScore = score
	}
}

// WithRetrieveDB configures the vector database connection.
func WithRetrieveDB(dbType, address string) RetrieverOption {
	return func(c *RetrieverConfig) {
		c.DBType = dbType
		c.DBAddress = address
	}
}

// WithRetrieveVectorDB injects an existing database connection instead of
// creating one from DBType and DBAddress.
func WithRetrieveVectorDB(db rag.VectorDB) RetrieverOption {
	return func(c *RetrieverConfig) {
		c.vectorDB = db
	}
}

// WithRetrieveEmbedding configures the embedding service.
func WithRetrieveEmbedding(provider, model, key string) RetrieverOption {
	return func(c *RetrieverConfig) {
		c.Provider = provider
		c.Model = model
		c.APIKey = key
	}
}

// WithRetrieveEmbedder injects an existing embedder instead of creating one
// from Provider, Model and APIKey.
func WithRetrieveEmbedder(embedder Embedder) RetrieverOption {
	return func(c *RetrieverConfig) {
		c.embedder = embedder
	}
}

// WithRetrieveMetric sets the distance metric used for search.
func WithRetrieveMetric(metricType string) RetrieverOption {
	return func(c *RetrieverConfig) {
		c.MetricType = metricType
	}
}

// WithColumns specifies which columns to retrieve from the database.
func WithColumns(columns ...string) RetrieverOption {
	return func(c *RetrieverConfig) {
		c.Columns = columns
	}
}

// WithRetrieveDimension sets the embedding vector dimension.
func WithRetrieveDimension(dimension int) RetrieverOption {
	return func(c *RetrieverConfig) {
		c.Dimension = dimension
	}
}

func defaultRetrieverConfig() *RetrieverConfig {
	return &RetrieverConfig{
		TopK:       5,
		MinScore:   0,
		Columns:    []string{"Text", "PaperID", "ChunkIndex"},
		DBType:     "memory",
		Dimension:  1536,
		Provider:   "openai",
		Model:      "text-embedding-3-small",
		MetricType: "COSINE",
		Timeout:    30 * time.Second,
		SearchParams: map[string]interface{}{
			"type": "HNSW",
			"ef":   64,
		},
	}
}

func (r *Retriever) initialize() error {
	var err error

	if r.config.vectorDB != nil {
		r.vectorDB = r.config.vectorDB
	} else {
		r.vectorDB, err = rag.NewVectorDB(&rag.Config{
			Type:    r.config.DBType,
			Address: r.config.DBAddress,
			Timeout: r.config.Timeout,
			Parameters: map[string]interface{}{
				"dimension": r.config.Dimension,
			},
		})
		if err != nil {
			return fmt.Errorf("failed to create vector store: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), r.config.Timeout)
		defer cancel()

		if err := r.vectorDB.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect to vector store: %w", err)
		}
	}

	if r.config.embedder != nil {
		r.embedder = r.config.embedder
	} else {
		r.embedder, err = NewEmbedder(
			SetEmbedderProvider(r.config.Provider),
			SetEmbedderModel(r.config.Model),
			SetEmbedderAPIKey(r.config.APIKey),
		)
		if err != nil {
			return fmt.Errorf("failed to create embedder: %w", err)
		}
	}

	r.ready = true
	return nil
}

func (r *Retriever) Close() error {
	if r.vectorDB != nil {
		return r.vectorDB.Close()
	}
	return nil
}
