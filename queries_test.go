package chunkbench

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chunkbench/rag"
)

func queryTestPapers(n int) []rag.Paper {
	papers := make([]rag.Paper, n)
	for i := range papers {
		papers[i] = rag.Paper{
			ID:       fmt.Sprintf("paper%d", i),
			Title:    fmt.Sprintf("Paper %d", i),
			Abstract: fmt.Sprintf("Abstract of paper %d.", i),
		}
	}
	return papers
}

func TestGenerateQueriesAllPapers(t *testing.T) {
	papers := queryTestPapers(3)

	queries := GenerateQueries(papers, 0, 42)
	require.Len(t, queries, 3)

	for i, q := range queries {
		assert.Equal(t, papers[i].Abstract, q.Text)
		assert.Equal(t, papers[i].Abstract, q.Reference)
		assert.Equal(t, papers[i].ID, q.PaperID)
		assert.Equal(t, papers[i].Title, q.Title)
		assert.Equal(t, QueryKindAbstract, q.Kind)
	}
}

func TestGenerateQueriesSampling(t *testing.T) {
	papers := queryTestPapers(10)

	queries := GenerateQueries(papers, 4, 42)
	require.Len(t, queries, 4)

	seen := make(map[string]bool)
	for _, q := range queries {
		assert.False(t, seen[q.PaperID], "paper %s sampled twice", q.PaperID)
		seen[q.PaperID] = true
	}
}

func TestGenerateQueriesDeterministic(t *testing.T) {
	papers := queryTestPapers(10)

	first := GenerateQueries(papers, 5, 7)
	second := GenerateQueries(papers, 5, 7)
	assert.Equal(t, first, second)
}

func TestGenerateQueriesNLargerThanCorpus(t *testing.T) {
	papers := queryTestPapers(2)

	queries := GenerateQueries(papers, 10, 42)
	assert.Len(t, queries, 2)
}

func TestGenerateQueriesSkipsEmptyAbstracts(t *testing.T) {
	papers := queryTestPapers(3)
	papers[1].Abstract = ""

	queries := GenerateQueries(papers, 0, 42)
	require.Len(t, queries, 2)
	for _, q := range queries {
		assert.NotEqual(t, "paper1", q.PaperID)
	}
}
