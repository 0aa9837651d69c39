package chunkbench

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// reportMetrics are the fixed metric names compared across strategies, in
// report column order. The recall metric is keyed by the configured top-k and
// is resolved from the recorded results instead.
var reportMetrics = []string{"rouge1", "rouge2", "rougeL", "bleu", "semantic_f1"}

// Report collects experiment results across strategies and renders them for
// comparison. Each run gets a unique ID so result files from different runs
// can be told apart.
type Report struct {
	RunID     string             `json:"run_id"`
	CreatedAt time.Time          `json:"created_at"`
	Results   []ExperimentResult `json:"results"`
}

// NewReport creates an empty report with a fresh run ID.
func NewReport() *Report {
	return &Report{
		RunID:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
}

// Add appends one strategy's experiment result.
func (r *Report) Add(result ExperimentResult) {
	r.Results = append(r.Results, result)
}

// SaveJSON writes the full results, including per-query metrics, as JSON.
// Parent directories are created as needed.
func (r *Report) SaveJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return writeReportFile(path, data)
}

// SaveMarkdown renders the report as markdown and writes it to path. Parent
// directories are created as needed.
func (r *Report) SaveMarkdown(path string) error {
	return writeReportFile(path, []byte(r.Markdown()))
}

func writeReportFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// Markdown renders the comparison report: a summary table, per-strategy
// details, the best strategy per metric and overall insights.
func (r *Report) Markdown() string {
	var b strings.Builder

	b.WriteString("# RAG Evaluation Results\n\n")
	b.WriteString("Comparison of different chunking strategies for Retrieval-Augmented Generation.\n\n")

	b.WriteString("## Summary Metrics\n\n")
	b.WriteString(r.summaryTable())
	b.WriteString("\n\n")

	b.WriteString("## Detailed Results by Strategy\n\n")
	for _, result := range r.Results {
		b.WriteString(r.strategySection(result))
		b.WriteString("\n")
	}

	b.WriteString("## Best Performing Strategies\n\n")
	b.WriteString(r.bestStrategies())
	b.WriteString("\n")

	b.WriteString("## Key Insights\n\n")
	b.WriteString(r.insights())
	b.WriteString("\n")

	return b.String()
}

// recallKey resolves the recall metric name from the recorded results, since
// the key carries whatever top-k the run was configured with.
func (r *Report) recallKey() string {
	for _, result := range r.Results {
		for name := range result.Metrics {
			if strings.HasPrefix(name, "recall@") {
				return name
			}
		}
	}
	return "recall@5"
}

// comparedMetrics returns the fixed metrics plus the run's recall key.
func (r *Report) comparedMetrics() []string {
	return append(append([]string{}, reportMetrics...), r.recallKey())
}

func (r *Report) summaryTable() string {
	recall := r.recallKey()
	lines := []string{
		fmt.Sprintf("| Strategy | Chunks | ROUGE-1 | ROUGE-2 | ROUGE-L | BLEU | Semantic F1 | Recall@%s |",
			strings.TrimPrefix(recall, "recall@")),
		"|----------|--------|---------|---------|---------|------|-------------|----------|",
	}

	for _, result := range r.Results {
		lines = append(lines, fmt.Sprintf(
			"| %s | %d | %.4f | %.4f | %.4f | %.2f | %.4f | %.4f |",
			result.Strategy,
			result.NumChunks,
			meanOf(result, "rouge1"),
			meanOf(result, "rouge2"),
			meanOf(result, "rougeL"),
			meanOf(result, "bleu"),
			meanOf(result, "semantic_f1"),
			meanOf(result, recall),
		))
	}

	return strings.Join(lines, "\n")
}

func (r *Report) strategySection(result ExperimentResult) string {
	var lines []string

	lines = append(lines, fmt.Sprintf("### %s", result.Strategy))
	lines = append(lines, "\n**Configuration:**")
	lines = append(lines, fmt.Sprintf("- Chunk Size: %d", result.ChunkSize))
	lines = append(lines, fmt.Sprintf("- Chunk Overlap: %d", result.ChunkOverlap))
	lines = append(lines, fmt.Sprintf("- Total Chunks: %d", result.NumChunks))
	lines = append(lines, fmt.Sprintf("- Queries Evaluated: %d", result.NumQueries))

	lines = append(lines, "\n**Metrics:**")
	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		stats := result.Metrics[name]
		lines = append(lines, fmt.Sprintf("- **%s**: %.4f (±%.4f)", name, stats.Mean, stats.Std))
	}

	return strings.Join(lines, "\n") + "\n"
}

func (r *Report) bestStrategies() string {
	var lines []string

	for _, name := range r.comparedMetrics() {
		bestScore := -1.0
		bestStrategy := ""
		for _, result := range r.Results {
			if stats, ok := result.Metrics[name]; ok && stats.Mean > bestScore {
				bestScore = stats.Mean
				bestStrategy = result.Strategy
			}
		}
		if bestStrategy != "" {
			lines = append(lines, fmt.Sprintf("- **%s**: %s (%.4f)", name, bestStrategy, bestScore))
		}
	}

	return strings.Join(lines, "\n")
}

func (r *Report) insights() string {
	if len(r.Results) == 0 {
		return "- No results recorded."
	}

	var lines []string

	minResult, maxResult := r.Results[0], r.Results[0]
	for _, result := range r.Results[1:] {
		if result.NumChunks < minResult.NumChunks {
			minResult = result
		}
		if result.NumChunks > maxResult.NumChunks {
			maxResult = result
		}
	}
	lines = append(lines, fmt.Sprintf(
		"- **Chunk Count Range**: %s generated %d chunks, while %s generated %d chunks.",
		minResult.Strategy, minResult.NumChunks, maxResult.Strategy, maxResult.NumChunks))

	if best := r.bestOverall(); best != "" {
		lines = append(lines, fmt.Sprintf(
			"- **Best Overall Strategy**: %s (based on average performance across all metrics)", best))
	}

	lines = append(lines, fmt.Sprintf("- **Evaluation Coverage**: Tested %d different chunking strategies", len(r.Results)))

	return strings.Join(lines, "\n")
}

// bestOverall ranks strategies by their average min-max normalized metric
// means, so metrics on different scales weigh equally.
func (r *Report) bestOverall() string {
	type valueRange struct {
		min, max float64
		seen     bool
	}
	compared := r.comparedMetrics()
	ranges := make(map[string]*valueRange)
	for _, name := range compared {
		ranges[name] = &valueRange{}
	}

	for _, result := range r.Results {
		for _, name := range compared {
			stats, ok := result.Metrics[name]
			if !ok {
				continue
			}
			vr := ranges[name]
			if !vr.seen || stats.Mean < vr.min {
				vr.min = stats.Mean
			}
			if !vr.seen || stats.Mean > vr.max {
				vr.max = stats.Mean
			}
			vr.seen = true
		}
	}

	bestStrategy := ""
	bestScore := -1.0
	for _, result := range r.Results {
		var normalized []float64
		for _, name := range compared {
			stats, ok := result.Metrics[name]
			if !ok {
				continue
			}
			vr := ranges[name]
			if vr.max > vr.min {
				normalized = append(normalized, (stats.Mean-vr.min)/(vr.max-vr.min))
			} else {
				normalized = append(normalized, 1.0)
			}
		}
		if len(normalized) == 0 {
			continue
		}

		var sum float64
		for _, v := range normalized {
			sum += v
		}
		if avg := sum / float64(len(normalized)); avg > bestScore {
			bestScore = avg
			bestStrategy = result.Strategy
		}
	}

	return bestStrategy
}

func meanOf(result ExperimentResult, metric string) float64 {
	if stats, ok := result.Metrics[metric]; ok {
		return stats.Mean
	}
	return 0
}

// RetrievalReport renders retrieval-only results as a markdown table. It is
// used when no generator is configured and only hit rate and MRR are
// measured.
func RetrievalReport(results []RetrievalResult) string {
	var b strings.Builder

	b.WriteString("# Retrieval Evaluation Results\n\n")
	b.WriteString("| Strategy | Chunk Size | Overlap | Chunks | Hit Rate | MRR |\n")
	b.WriteString("|----------|------------|---------|--------|----------|-----|\n")
	for _, result := range results {
		b.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %.4f | %.4f |\n",
			result.Strategy, result.ChunkSize, result.ChunkOverlap,
			result.NumChunks, result.HitRate, result.MRR))
	}

	return b.String()
}
