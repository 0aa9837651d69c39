package chunkbench

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func summaries(values map[string]float64) map[string]MetricSummary {
	out := make(map[string]MetricSummary, len(values))
	for name, v := range values {
		out[name] = MetricSummary{Mean: v, Median: v, Min: v, Max: v}
	}
	return out
}

func reportFixture() *Report {
	report := NewReport()
	report.Add(ExperimentResult{
		Strategy:     "Fixed-500",
		ChunkSize:    500,
		ChunkOverlap: 50,
		NumChunks:    120,
		NumQueries:   10,
		Metrics: summaries(map[string]float64{
			"rouge1": 0.40, "rouge2": 0.20, "rougeL": 0.35,
			"bleu": 12.0, "semantic_f1": 0.70, "recall@5": 0.80,
		}),
	})
	report.Add(ExperimentResult{
		Strategy:     "Sentence-500",
		ChunkSize:    500,
		ChunkOverlap: 100,
		NumChunks:    90,
		NumQueries:   10,
		Metrics: summaries(map[string]float64{
			"rouge1": 0.50, "rouge2": 0.30, "rougeL": 0.45,
			"bleu": 18.0, "semantic_f1": 0.80, "recall@5": 0.90,
		}),
	})
	return report
}

func TestReportMarkdownSections(t *testing.T) {
	md := reportFixture().Markdown()

	assert.Contains(t, md, "# RAG Evaluation Results")
	assert.Contains(t, md, "## Summary Metrics")
	assert.Contains(t, md, "## Detailed Results by Strategy")
	assert.Contains(t, md, "## Best Performing Strategies")
	assert.Contains(t, md, "## Key Insights")
}

func TestReportSummaryTable(t *testing.T) {
	md := reportFixture().Markdown()

	assert.Contains(t, md, "| Strategy | Chunks | ROUGE-1 | ROUGE-2 | ROUGE-L | BLEU | Semantic F1 | Recall@5 |")
	assert.Contains(t, md, "| Fixed-500 | 120 | 0.4000 | 0.2000 | 0.3500 | 12.00 | 0.7000 | 0.8000 |")
	assert.Contains(t, md, "| Sentence-500 | 90 | 0.5000 | 0.3000 | 0.4500 | 18.00 | 0.8000 | 0.9000 |")
}

func TestReportBestStrategies(t *testing.T) {
	md := reportFixture().Markdown()

	// Sentence-500 wins every metric in the fixture.
	assert.Contains(t, md, "- **rouge1**: Sentence-500 (0.5000)")
	assert.Contains(t, md, "- **recall@5**: Sentence-500 (0.9000)")
	assert.NotContains(t, md, "**rouge1**: Fixed-500")
}

func TestReportInsights(t *testing.T) {
	md := reportFixture().Markdown()

	assert.Contains(t, md, "Sentence-500 generated 90 chunks, while Fixed-500 generated 120 chunks")
	assert.Contains(t, md, "- **Best Overall Strategy**: Sentence-500")
	assert.Contains(t, md, "Tested 2 different chunking strategies")
}

func TestReportRecallKeyFollowsTopK(t *testing.T) {
	report := NewReport()
	report.Add(ExperimentResult{
		Strategy:  "Fixed-500",
		NumChunks: 120,
		Metrics: summaries(map[string]float64{
			"rouge1": 0.40, "rouge2": 0.20, "rougeL": 0.35,
			"bleu": 12.0, "semantic_f1": 0.70, "recall@10": 0.85,
		}),
	})
	report.Add(ExperimentResult{
		Strategy:  "Sentence-500",
		NumChunks: 90,
		Metrics: summaries(map[string]float64{
			"rouge1": 0.50, "rouge2": 0.30, "rougeL": 0.45,
			"bleu": 18.0, "semantic_f1": 0.80, "recall@10": 0.95,
		}),
	})

	md := report.Markdown()

	// The recall column and rankings track the run's configured top-k.
	assert.Contains(t, md, "| Recall@10 |")
	assert.Contains(t, md, "| Fixed-500 | 120 | 0.4000 | 0.2000 | 0.3500 | 12.00 | 0.7000 | 0.8500 |")
	assert.Contains(t, md, "| Sentence-500 | 90 | 0.5000 | 0.3000 | 0.4500 | 18.00 | 0.8000 | 0.9500 |")
	assert.Contains(t, md, "- **recall@10**: Sentence-500 (0.9500)")
	assert.NotContains(t, md, "recall@5")
}

func TestReportEmpty(t *testing.T) {
	md := NewReport().Markdown()

	assert.Contains(t, md, "- No results recorded.")
}

func TestReportSaveJSONRoundtrip(t *testing.T) {
	report := reportFixture()
	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, report.SaveJSON(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var loaded Report
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, report.RunID, loaded.RunID)
	require.Len(t, loaded.Results, 2)
	assert.Equal(t, "Fixed-500", loaded.Results[0].Strategy)
	assert.InDelta(t, 0.40, loaded.Results[0].Metrics["rouge1"].Mean, 1e-9)
}

func TestReportSaveMarkdown(t *testing.T) {
	report := reportFixture()
	path := filepath.Join(t.TempDir(), "results.md")
	require.NoError(t, report.SaveMarkdown(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, report.Markdown(), string(data))
}

func TestReportSaveCreatesDirectories(t *testing.T) {
	report := reportFixture()
	dir := filepath.Join(t.TempDir(), "results", "nested")

	mdPath := filepath.Join(dir, "results.md")
	require.NoError(t, report.SaveMarkdown(mdPath))
	assert.FileExists(t, mdPath)

	jsonPath := filepath.Join(dir, "results.json")
	require.NoError(t, report.SaveJSON(jsonPath))
	assert.FileExists(t, jsonPath)
}

func TestRetrievalReport(t *testing.T) {
	md := RetrievalReport([]RetrievalResult{
		{Strategy: "Fixed-500", ChunkSize: 500, ChunkOverlap: 50, NumChunks: 120, HitRate: 0.9, MRR: 0.75},
	})

	assert.True(t, strings.HasPrefix(md, "# Retrieval Evaluation Results"))
	assert.Contains(t, md, "| Strategy | Chunk Size | Overlap | Chunks | Hit Rate | MRR |")
	assert.Contains(t, md, "| Fixed-500 | 500 | 50 | 120 | 0.9000 | 0.7500 |")
}
