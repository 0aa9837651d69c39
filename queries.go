package chunkbench

import (
	"math/rand"

	"chunkbench/rag"
)

// QueryKindAbstract marks queries that ask the system to reconstruct a
// paper's abstract from its indexed chunks. The abstract serves as both the
// query and the reference answer, so generation quality is measured as how
// faithfully the answer recovers it.
const QueryKindAbstract = "abstract_reconstruction"

// Query is one test case: the question to ask, the reference answer to score
// against and the paper whose chunks count as relevant.
type Query struct {
	Text      string `json:"query"`
	Reference string `json:"reference"`
	PaperID   string `json:"paper_id"`
	Title     string `json:"title"`
	Kind      string `json:"type"`
}

// GenerateQueries samples up to n papers and turns each into an abstract
// reconstruction query. Sampling is without replacement and deterministic for
// a given seed, so repeated runs compare strategies on the same queries.
// n <= 0 uses every paper, in corpus order.
func GenerateQueries(papers []rag.Paper, n int, seed int64) []Query {
	selected := papers
	if n > 0 && n < len(papers) {
		rng := rand.New(rand.NewSource(seed))
		perm := rng.Perm(len(papers))
		selected = make([]rag.Paper, n)
		for i := 0; i < n; i++ {
			selected[i] = papers[perm[i]]
		}
	}

	queries := make([]Query, 0, len(selected))
	for _, paper := range selected {
		if paper.Abstract == "" {
			continue
		}
		queries = append(queries, Query{
			Text:      paper.Abstract,
			Reference: paper.Abstract,
			PaperID:   paper.ID,
			Title:     paper.Title,
			Kind:      QueryKindAbstract,
		})
	}
	return queries
}
