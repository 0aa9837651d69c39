package chunkbench

import (
	"context"
	"fmt"
	"time"

	"chunkbench/rag"
)

// MetricSummary holds the distribution of one metric across queries.
type MetricSummary = rag.Summary

// MinChunkChars is the default minimum chunk length. Chunks shorter than
// this are noise from PDF extraction (page numbers, stray headers) and are
// dropped before indexing.
const MinChunkChars = 50

// RetrievalResult reports how well one strategy configuration retrieves the
// right paper when its abstract is used as the query.
type RetrievalResult struct {
	Strategy     string  `json:"strategy"`
	ChunkSize    int     `json:"chunk_size"`
	ChunkOverlap int     `json:"chunk_overlap"`
	NumChunks    int     `json:"num_chunks"`
	HitRate      float64 `json:"hit_rate"`
	MRR          float64 `json:"mrr"`
}

// ExperimentResult reports the full RAG evaluation of one strategy
// configuration: retrieval, generation and text metrics aggregated over the
// test queries.
type ExperimentResult struct {
	Strategy     string                   `json:"strategy"`
	ChunkSize    int                      `json:"chunk_size"`
	ChunkOverlap int                      `json:"chunk_overlap"`
	NumChunks    int                      `json:"num_chunks"`
	NumQueries   int                      `json:"num_queries"`
	Metrics      map[string]MetricSummary `json:"metrics"`
	PerQuery     []map[string]float64     `json:"per_query_metrics"`
}

// Evaluator runs chunking strategy experiments. For each strategy it chunks
// the corpus, embeds and indexes the chunks in a dedicated collection, then
// measures retrieval quality and, when a Generator is configured, full RAG
// answer quality.
type Evaluator struct {
	config    *EvaluatorConfig
	corpus    *rag.Corpus
	parser    *rag.ParserManager
	vectorDB  rag.VectorDB
	service   *rag.EmbeddingService
	retriever *Retriever
	scorer    *rag.SemanticScorer
	generator Generator
	ready     bool
}

// EvaluatorConfig holds settings for experiment runs.
type EvaluatorConfig struct {
	CorpusDir     string        // Directory holding the ingested corpus
	TopK          int           // Chunks retrieved per query
	MinChunkChars int           // Minimum chunk length to index
	MetricType    string        // Vector distance metric
	Timeout       time.Duration // Per-operation timeout

	// Vector DB settings
	DBType    string
	DBAddress string

	generator Generator
	embedder  Embedder
	vectorDB  rag.VectorDB
}

// EvaluatorOption configures the evaluator using the functional options pattern.
type EvaluatorOption func(*EvaluatorConfig)

// WithEvalCorpus sets the corpus directory.
func WithEvalCorpus(dir string) EvaluatorOption {
	return func(c *EvaluatorConfig) {
		c.CorpusDir = dir
	}
}

// WithEvalTopK sets how many chunks are retrieved per query.
func WithEvalTopK(k int) EvaluatorOption {
	return func(c *EvaluatorConfig) {
		c.TopK = k
	}
}

// WithMinChunkChars overrides the minimum indexed chunk length.
func WithMinChunkChars(n int) EvaluatorOption {
	return func(c *EvaluatorConfig) {
		c.MinChunkChars = n
	}
}

// WithEvalDB configures the vector database backend.
func WithEvalDB(dbType, address string) EvaluatorOption {
	return func(c *EvaluatorConfig) {
		c.DBType = dbType
		c.DBAddress = address
	}
}

// WithEvalVectorDB injects an existing database connection.
func WithEvalVectorDB(db rag.VectorDB) EvaluatorOption {
	return func(c *EvaluatorConfig) {
		c.vectorDB = db
	}
}

// WithEvalEmbedder sets the embedder used for chunks, queries and semantic
// scoring.
func WithEvalEmbedder(embedder Embedder) EvaluatorOption {
	return func(c *EvaluatorConfig) {
		c.embedder = embedder
	}
}

// WithEvalGenerator sets the answer generator. Without one, only retrieval
// experiments can run.
func WithEvalGenerator(g Generator) EvaluatorOption {
	return func(c *EvaluatorConfig) {
		c.generator = g
	}
}

// WithEvalMetric sets the vector distance metric.
func WithEvalMetric(metricType string) EvaluatorOption {
	return func(c *EvaluatorConfig) {
		c.MetricType = metricType
	}
}

func defaultEvaluatorConfig() *EvaluatorConfig {
	return &EvaluatorConfig{
		CorpusDir:     "data",
		TopK:          5,
		MinChunkChars: MinChunkChars,
		MetricType:    "COSINE",
		Timeout:       30 * time.Second,
		DBType:        "memory",
	}
}

// NewEvaluator creates an Evaluator with the given options. An embedder is
// required.
//
// Example:
//
//	embedder, _ := NewEmbedder(SetEmbedderProvider("openai"))
//	eval, err := NewEvaluator(
//	    WithEvalCorpus("data"),
//	    WithEvalEmbedder(embedder),
//	    WithEvalGenerator(gen),
//	)
func NewEvaluator(opts ...EvaluatorOption) (*Evaluator, error) {
	cfg := defaultEvaluatorConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.embedder == nil {
		return nil, fmt.Errorf("evaluator requires an embedder")
	}

	e := &Evaluator{
		config:    cfg,
		corpus:    rag.NewCorpus(cfg.CorpusDir),
		parser:    rag.NewParserManager(),
		service:   rag.NewEmbeddingService(cfg.embedder),
		scorer:    rag.NewSemanticScorer(cfg.embedder),
		generator: cfg.generator,
	}

	var err error
	if cfg.vectorDB != nil {
		e.vectorDB = cfg.vectorDB
	} else {
		e.vectorDB, err = rag.NewVectorDB(&rag.Config{
			Type:    cfg.DBType,
			Address: cfg.DBAddress,
			Timeout: cfg.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create vector store: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		defer cancel()
		if err := e.vectorDB.Connect(ctx); err != nil {
			return nil, fmt.Errorf("failed to connect to vector store: %w", err)
		}
	}

	e.retriever, err = NewRetriever(
		WithRetrieveVectorDB(e.vectorDB),
		WithRetrieveEmbedder(cfg.embedder),
		WithTopK(cfg.TopK),
		WithRetrieveMetric(cfg.MetricType),
		WithColumns("Text", "PaperID", "ChunkIndex"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create retriever: %w", err)
	}

	e.ready = true
	return e, nil
}

// PrepareStrategy chunks every paper with the strategy, embeds the chunks
// and indexes them in the strategy's collection. Papers without a stored PDF
// are skipped. Returns the number of indexed chunks.
func (e *Evaluator) PrepareStrategy(ctx context.Context, spec StrategySpec, papers []rag.Paper) (int, error) {
	if !e.ready {
		return 0, fmt.Errorf("evaluator not properly initialized")
	}

	chunker, err := NewChunker(spec)
	if err != nil {
		return 0, fmt.Errorf("failed to create chunker for %s: %w", spec.Name, err)
	}

	Info("Preparing strategy", "strategy", spec.Name, "papers", len(papers))

	var allChunks []rag.Chunk
	var paperIDs []string
	for _, paper := range papers {
		pdfData, err := e.corpus.GetPDF(paper.ID)
		if err != nil {
			Warn("Skipping paper without stored PDF", "paper", paper.ID)
			continue
		}

		doc, err := e.parser.ParseBytes(pdfData, ".pdf")
		if err != nil {
			Warn("Skipping paper with unparseable PDF", "paper", paper.ID, "error", err)
			continue
		}

		for _, chunk := range chunker.Chunk(doc.Content) {
			if len([]rune(chunk.Text)) < e.config.MinChunkChars {
				continue
			}
			allChunks = append(allChunks, chunk)
			paperIDs = append(paperIDs, paper.ID)
		}
	}

	if len(allChunks) == 0 {
		return 0, nil
	}

	Info("Embedding chunks", "strategy", spec.Name, "count", len(allChunks))
	embedded, err := e.service.EmbedChunks(ctx, allChunks)
	if err != nil {
		return 0, fmt.Errorf("failed to embed chunks: %w", err)
	}

	collection := spec.CollectionName()
	dimension := len(embedded[0].Embeddings["default"])

	exists, err := e.vectorDB.HasCollection(ctx, collection)
	if err != nil {
		return 0, fmt.Errorf("failed to check collection %s: %w", collection, err)
	}
	if exists {
		if err := e.vectorDB.DropCollection(ctx, collection); err != nil {
			return 0, fmt.Errorf("failed to drop collection %s: %w", collection, err)
		}
	}
	if err := e.vectorDB.CreateCollection(ctx, collection, rag.ChunkSchema(collection, dimension)); err != nil {
		return 0, fmt.Errorf("failed to create collection %s: %w", collection, err)
	}

	records := make([]rag.Record, len(embedded))
	for i, chunk := range embedded {
		records[i] = rag.Record{
			Fields: map[string]interface{}{
				"ID":         int64(i),
				"Embedding":  rag.Vector(chunk.Embeddings["default"]),
				"Text":       chunk.Text,
				"PaperID":    paperIDs[i],
				"ChunkIndex": int64(i),
			},
		}
	}

	if err := e.vectorDB.Insert(ctx, collection, records); err != nil {
		return 0, fmt.Errorf("failed to insert chunks: %w", err)
	}
	if err := e.vectorDB.Flush(ctx, collection); err != nil {
		return 0, fmt.Errorf("failed to flush collection %s: %w", collection, err)
	}

	index := rag.Index{
		Type:   "HNSW",
		Metric: e.config.MetricType,
		Parameters: map[string]interface{}{
			"M":              16,
			"efConstruction": 256,
		},
	}
	if err := e.vectorDB.CreateIndex(ctx, collection, "Embedding", index); err != nil {
		return 0, fmt.Errorf("failed to index collection %s: %w", collection, err)
	}
	if err := e.vectorDB.LoadCollection(ctx, collection); err != nil {
		return 0, fmt.Errorf("failed to load collection %s: %w", collection, err)
	}

	Info("Strategy prepared", "strategy", spec.Name, "chunks", len(records))
	return len(records), nil
}

// RunRetrieval measures retrieval quality for one strategy: each paper's
// abstract is used as a query and the strategy scores a hit when any of the
// top-k retrieved chunks comes from that paper. MRR uses the rank of the
// first such chunk.
func (e *Evaluator) RunRetrieval(ctx context.Context, spec StrategySpec, papers []rag.Paper) (RetrievalResult, error) {
	result := RetrievalResult{
		Strategy:     spec.Name,
		ChunkSize:    spec.ChunkSize,
		ChunkOverlap: spec.ChunkOverlap,
	}

	numChunks, err := e.PrepareStrategy(ctx, spec, papers)
	if err != nil {
		return result, err
	}
	result.NumChunks = numChunks
	if numChunks == 0 {
		return result, nil
	}

	e.retriever.SetCollection(spec.CollectionName())

	var hits int
	var reciprocalRanks float64
	for _, paper := range papers {
		retrieved, err := e.retriever.Retrieve(ctx, paper.Abstract)
		if err != nil {
			return result, fmt.Errorf("retrieval failed for paper %s: %w", paper.ID, err)
		}

		for rank, r := range retrieved {
			if r.PaperID == paper.ID {
				hits++
				reciprocalRanks += 1.0 / float64(rank+1)
				break
			}
		}
	}

	if len(papers) > 0 {
		result.HitRate = float64(hits) / float64(len(papers))
		result.MRR = reciprocalRanks / float64(len(papers))
	}

	Info("Retrieval experiment done", "strategy", spec.Name, "hit_rate", result.HitRate, "mrr", result.MRR)
	return result, nil
}

// RunRAG runs the full pipeline for one strategy: retrieve top-k chunks per
// query, generate an answer and score it against the reference. A failed
// generation is scored as an empty answer rather than aborting the run.
func (e *Evaluator) RunRAG(ctx context.Context, spec StrategySpec, papers []rag.Paper, queries []Query) (ExperimentResult, error) {
	result := ExperimentResult{
		Strategy:     spec.Name,
		ChunkSize:    spec.ChunkSize,
		ChunkOverlap: spec.ChunkOverlap,
		NumQueries:   len(queries),
	}

	if e.generator == nil {
		return result, fmt.Errorf("RAG experiment requires a generator")
	}

	numChunks, err := e.PrepareStrategy(ctx, spec, papers)
	if err != nil {
		return result, err
	}
	result.NumChunks = numChunks
	if numChunks == 0 {
		result.Metrics = map[string]MetricSummary{}
		return result, nil
	}

	e.retriever.SetCollection(spec.CollectionName())

	Info("Evaluating queries", "strategy", spec.Name, "queries", len(queries))
	perQuery := make([]map[string]float64, 0, len(queries))
	for i, query := range queries {
		metrics, err := e.evaluateQuery(ctx, query)
		if err != nil {
			return result, fmt.Errorf("query %d failed: %w", i, err)
		}
		perQuery = append(perQuery, metrics)

		if (i+1)%10 == 0 {
			Info("Query progress", "strategy", spec.Name, "done", i+1, "total", len(queries))
		}
	}

	result.PerQuery = perQuery
	result.Metrics = rag.Aggregate(perQuery)
	return result, nil
}

func (e *Evaluator) evaluateQuery(ctx context.Context, query Query) (map[string]float64, error) {
	retrieved, err := e.retriever.Retrieve(ctx, query.Text)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	chunks := make([]string, len(retrieved))
	retrievedIDs := make([]string, len(retrieved))
	for i, r := range retrieved {
		chunks[i] = r.Content
		retrievedIDs[i] = r.PaperID
	}

	answer, err := e.generator.Generate(ctx, query.Text, chunks)
	if err != nil {
		Warn("Generation failed, scoring empty answer", "paper", query.PaperID, "error", err)
		answer = ""
	}

	metrics := map[string]float64{
		"rouge1": rag.RougeN(answer, query.Reference, 1),
		"rouge2": rag.RougeN(answer, query.Reference, 2),
		"rougeL": rag.RougeL(answer, query.Reference),
		"bleu":   rag.BLEU(answer, query.Reference),
	}

	semantic, err := e.scorer.Score(ctx, answer, query.Reference)
	if err != nil {
		Warn("Semantic scoring failed", "paper", query.PaperID, "error", err)
		semantic = 0
	}
	metrics["semantic_f1"] = semantic

	metrics[fmt.Sprintf("recall@%d", e.config.TopK)] = rag.RecallAtK(retrievedIDs, []string{query.PaperID}, e.config.TopK)

	return metrics, nil
}

// Corpus exposes the evaluator's corpus store.
func (e *Evaluator) Corpus() *rag.Corpus {
	return e.corpus
}

// Parser exposes the document parser so callers can register additional
// formats.
func (e *Evaluator) Parser() *rag.ParserManager {
	return e.parser
}

// Close releases the vector database connection.
func (e *Evaluator) Close() error {
	if e.vectorDB != nil {
		return e.vectorDB.Close()
	}
	return nil
}
