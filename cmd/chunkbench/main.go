// Command chunkbench benchmarks document chunking strategies for RAG. It
// ingests a paper corpus from arXiv, then runs each chunking strategy through
// the full retrieve-generate-score pipeline and writes a comparison report.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lpernett/godotenv"
	"github.com/spf13/cobra"

	"chunkbench"
	"chunkbench/config"
	"chunkbench/rag"
)

var (
	cfg     *config.Config
	verbose bool

	// ingest flags
	ingestQuery string
	ingestYear  int
	ingestLimit int
	dataDir     string

	// run flags
	skipIngestion bool
	outDir        string
	topK          int
	numQueries    int
	retrievalOnly bool
)

var rootCmd = &cobra.Command{
	Use:   "chunkbench",
	Short: "Benchmark chunking strategies for retrieval-augmented generation",
	Long: `chunkbench compares document chunking strategies on a real paper corpus.

It downloads papers from arXiv, splits each one with competing strategies
(fixed window, recursive separators, token window, sentence grouping and
paragraph grouping), indexes the chunks per strategy and measures retrieval
and answer quality so the strategies can be compared side by side.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Missing .env is fine, config falls back to the environment.
		_ = godotenv.Load()

		var err error
		cfg, err = config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if verbose {
			chunkbench.SetLogLevel(chunkbench.LogLevelDebug)
		} else {
			chunkbench.SetLogLevel(chunkbench.LogLevelInfo)
		}

		if dataDir != "" {
			cfg.DataDir = dataDir
		}
		return nil
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Download a paper corpus from arXiv",
	Long: `Fetch paper metadata and PDFs from arXiv and store them locally.

The corpus is written to the data directory as papers.json plus one PDF per
paper, so later runs can reuse it with 'run --skip-ingestion'.`,
	RunE: runIngest,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the chunking strategy experiments",
	Long: `Run every chunking strategy over the stored corpus and write a report.

With a generation model configured (CHUNKBENCH_LLM_URL for a self-hosted
endpoint, or an API key for a hosted provider) the full RAG pipeline runs:
retrieval, answer generation and ROUGE/BLEU/semantic scoring. With
--retrieval-only, or when no generator is configured, only hit rate and MRR
are measured.`,
	RunE: runExperiments,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "corpus directory (default from config)")

	ingestCmd.Flags().StringVar(&ingestQuery, "query", "", "arXiv search query (default from config)")
	ingestCmd.Flags().IntVar(&ingestYear, "year", 0, "publication year filter (default from config)")
	ingestCmd.Flags().IntVar(&ingestLimit, "limit", 0, "maximum number of papers (default from config)")

	runCmd.Flags().BoolVar(&skipIngestion, "skip-ingestion", false, "use the stored corpus without fetching")
	runCmd.Flags().StringVar(&outDir, "out", ".", "directory for report files")
	runCmd.Flags().IntVar(&topK, "top-k", 0, "chunks retrieved per query (default from config)")
	runCmd.Flags().IntVar(&numQueries, "queries", 0, "test queries to sample, 0 for all papers")
	runCmd.Flags().BoolVar(&retrievalOnly, "retrieval-only", false, "skip generation, measure retrieval only")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(runCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestQuery != "" {
		cfg.ArxivQuery = ingestQuery
	}
	if ingestYear != 0 {
		cfg.ArxivYear = ingestYear
	}
	if ingestLimit != 0 {
		cfg.ArxivLimit = ingestLimit
	}

	return ingest(cmd.Context(), cfg)
}

func ingest(ctx context.Context, cfg *config.Config) error {
	client := rag.NewArxivClient()
	corpus := rag.NewCorpus(cfg.DataDir)

	chunkbench.Info("Fetching papers", "query", cfg.ArxivQuery, "year", cfg.ArxivYear, "limit", cfg.ArxivLimit)
	papers, err := client.Search(ctx, cfg.ArxivQuery, cfg.ArxivYear, cfg.ArxivLimit)
	if err != nil {
		return fmt.Errorf("arxiv search failed: %w", err)
	}
	if len(papers) == 0 {
		return fmt.Errorf("no papers found for query %q in %d", cfg.ArxivQuery, cfg.ArxivYear)
	}

	if err := corpus.Save(papers); err != nil {
		return err
	}

	var downloaded int
	for _, paper := range papers {
		if corpus.HasPDF(paper.ID) {
			downloaded++
			continue
		}
		data, err := client.DownloadPDF(ctx, paper)
		if err != nil {
			chunkbench.Warn("PDF download failed", "paper", paper.ID, "error", err)
			continue
		}
		if err := corpus.PutPDF(paper.ID, data); err != nil {
			return err
		}
		downloaded++
	}

	chunkbench.Info("Ingestion complete", "papers", len(papers), "pdfs", downloaded)
	return nil
}

func runExperiments(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Fail on a bad output path before the expensive pipeline runs.
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", outDir, err)
	}

	if !skipIngestion {
		if err := ingest(ctx, cfg); err != nil {
			return err
		}
	}

	corpus := rag.NewCorpus(cfg.DataDir)
	papers, err := corpus.Load()
	if err != nil {
		return err
	}
	chunkbench.Info("Loaded corpus", "papers", len(papers))

	embedderOpts := []chunkbench.EmbedderOption{
		chunkbench.SetEmbedderProvider(cfg.Provider),
		chunkbench.SetEmbedderModel(cfg.Model),
		chunkbench.SetEmbedderAPIKey(cfg.APIKey()),
	}
	if cfg.EmbeddingURL != "" {
		embedderOpts = append(embedderOpts, chunkbench.SetOption("api_url", cfg.EmbeddingURL))
	}
	embedder, err := chunkbench.NewEmbedder(embedderOpts...)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	generator, err := buildGenerator(cfg)
	if err != nil {
		return err
	}

	if topK == 0 {
		topK = cfg.DefaultTopK
	}

	evalOpts := []chunkbench.EvaluatorOption{
		chunkbench.WithEvalCorpus(cfg.DataDir),
		chunkbench.WithEvalEmbedder(embedder),
		chunkbench.WithEvalDB(cfg.DBType, cfg.DBAddress),
		chunkbench.WithEvalTopK(topK),
		chunkbench.WithMinChunkChars(cfg.MinChunkChars),
	}
	if generator != nil {
		evalOpts = append(evalOpts, chunkbench.WithEvalGenerator(generator))
	}

	eval, err := chunkbench.NewEvaluator(evalOpts...)
	if err != nil {
		return err
	}
	defer eval.Close()

	specs := chunkbench.DefaultStrategySpecs()

	if retrievalOnly || generator == nil {
		if generator == nil && !retrievalOnly {
			chunkbench.Warn("No generation model configured, running retrieval-only experiments")
		}
		return runRetrievalExperiments(ctx, eval, specs, papers)
	}

	if numQueries == 0 {
		numQueries = cfg.NumQueries
	}
	queries := chunkbench.GenerateQueries(papers, numQueries, cfg.QuerySeed)
	chunkbench.Info("Generated test queries", "count", len(queries))

	report := chunkbench.NewReport()
	for _, spec := range specs {
		chunkbench.Info("Running RAG experiment", "strategy", spec.Name)
		result, err := eval.RunRAG(ctx, spec, papers, queries)
		if err != nil {
			return fmt.Errorf("experiment %s failed: %w", spec.Name, err)
		}
		report.Add(result)
	}

	mdPath := filepath.Join(outDir, "experiment_results.md")
	jsonPath := filepath.Join(outDir, "experiment_results.json")
	if err := report.SaveMarkdown(mdPath); err != nil {
		return err
	}
	if err := report.SaveJSON(jsonPath); err != nil {
		return err
	}

	fmt.Printf("Run %s complete. Reports written to %s and %s\n", report.RunID, mdPath, jsonPath)
	return nil
}

func runRetrievalExperiments(ctx context.Context, eval *chunkbench.Evaluator, specs []chunkbench.StrategySpec, papers []rag.Paper) error {
	var results []chunkbench.RetrievalResult
	for _, spec := range specs {
		chunkbench.Info("Running retrieval experiment", "strategy", spec.Name)
		result, err := eval.RunRetrieval(ctx, spec, papers)
		if err != nil {
			return fmt.Errorf("experiment %s failed: %w", spec.Name, err)
		}
		results = append(results, result)
	}

	reportPath := filepath.Join(outDir, "retrieval_results.md")
	if err := os.WriteFile(reportPath, []byte(chunkbench.RetrievalReport(results)), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	fmt.Printf("Retrieval experiments complete. Report written to %s\n", reportPath)
	return nil
}

// buildGenerator picks the answer LLM: a self-hosted OpenAI-compatible
// endpoint when LLMURL is set, a hosted provider when an API key is
// available, otherwise nil for retrieval-only runs.
func buildGenerator(cfg *config.Config) (chunkbench.Generator, error) {
	if cfg.LLMURL != "" {
		return chunkbench.NewChatGenerator(cfg.LLMURL, cfg.LLMModel, cfg.APIKey()), nil
	}
	if cfg.APIKey() != "" {
		gen, err := chunkbench.NewLLMGenerator(cfg.LLMProvider, cfg.LLMModel, cfg.APIKey())
		if err != nil {
			return nil, fmt.Errorf("failed to create generator: %w", err)
		}
		return gen, nil
	}
	return nil, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
