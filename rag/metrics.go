package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"chunkbench/rag/providers"
)

// Text generation metrics. Predictions are scored against a single reference.
// All scores are deterministic given their inputs and never NaN: empty
// prediction or reference yields 0.

// tokenize lowercases and splits on non-alphanumeric runes.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func ngrams(tokens []string, n int) map[string]int {
	counts := make(map[string]int)
	for i := 0; i+n <= len(tokens); i++ {
		counts[strings.Join(tokens[i:i+n], " ")]++
	}
	return counts
}

// RougeN computes the n-gram overlap F1 between a prediction and a reference.
func RougeN(prediction, reference string, n int) float64 {
	predGrams := ngrams(tokenize(prediction), n)
	refGrams := ngrams(tokenize(reference), n)

	var predTotal, refTotal, overlap int
	for _, count := range predGrams {
		predTotal += count
	}
	for _, count := range refGrams {
		refTotal += count
	}
	if predTotal == 0 || refTotal == 0 {
		return 0
	}

	for gram, count := range predGrams {
		if refCount, ok := refGrams[gram]; ok {
			overlap += min(count, refCount)
		}
	}

	precision := float64(overlap) / float64(predTotal)
	recall := float64(overlap) / float64(refTotal)
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

// RougeL computes the longest-common-subsequence F1 between a prediction and
// a reference.
func RougeL(prediction, reference string) float64 {
	pred := tokenize(prediction)
	ref := tokenize(reference)
	if len(pred) == 0 || len(ref) == 0 {
		return 0
	}

	lcs := lcsLength(pred, ref)
	precision := float64(lcs) / float64(len(pred))
	recall := float64(lcs) / float64(len(ref))
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

func lcsLength(a, b []string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// BLEU computes a sentence-level BLEU-4 score on a 0-100 scale, with add-one
// smoothing on the higher-order precisions and the standard brevity penalty.
func BLEU(prediction, reference string) float64 {
	pred := tokenize(prediction)
	ref := tokenize(reference)
	if len(pred) == 0 || len(ref) == 0 {
		return 0
	}

	const maxOrder = 4
	logSum := 0.0
	for n := 1; n <= maxOrder; n++ {
		predGrams := ngrams(pred, n)
		refGrams := ngrams(ref, n)

		var total, matched int
		for gram, count := range predGrams {
			total += count
			if refCount, ok := refGrams[gram]; ok {
				matched += min(count, refCount)
			}
		}

		var precision float64
		switch {
		case total == 0:
			return 0
		case n == 1:
			if matched == 0 {
				return 0
			}
			precision = float64(matched) / float64(total)
		default:
			precision = float64(matched+1) / float64(total+1)
		}
		logSum += math.Log(precision)
	}

	brevity := 1.0
	if len(pred) < len(ref) {
		brevity = math.Exp(1 - float64(len(ref))/float64(len(pred)))
	}

	return 100 * brevity * math.Exp(logSum/maxOrder)
}

// RecallAtK is the fraction of relevant IDs found in the top k retrieved IDs.
func RecallAtK(retrievedIDs, relevantIDs []string, k int) float64 {
	if len(relevantIDs) == 0 {
		return 0
	}
	if k > len(retrievedIDs) {
		k = len(retrievedIDs)
	}

	topK := make(map[string]bool, k)
	for _, id := range retrievedIDs[:k] {
		topK[id] = true
	}

	var found int
	for _, id := range relevantIDs {
		if topK[id] {
			found++
		}
	}
	return float64(found) / float64(len(relevantIDs))
}

// SemanticScorer measures semantic overlap between a prediction and a
// reference by greedily matching their sentence embeddings with cosine
// similarity, producing a precision/recall/F1 triple in the BERTScore style.
type SemanticScorer struct {
	embedder providers.Embedder
	splitter func(string) []string
}

func NewSemanticScorer(embedder providers.Embedder) *SemanticScorer {
	return &SemanticScorer{
		embedder: embedder,
		splitter: DefaultSentenceSplitter,
	}
}

// Score returns the semantic F1 between prediction and reference.
func (s *SemanticScorer) Score(ctx context.Context, prediction, reference string) (float64, error) {
	predSents := s.splitter(prediction)
	refSents := s.splitter(reference)
	if len(predSents) == 0 || len(refSents) == 0 {
		return 0, nil
	}

	predVecs, err := s.embedSentences(ctx, predSents)
	if err != nil {
		return 0, err
	}
	refVecs, err := s.embedSentences(ctx, refSents)
	if err != nil {
		return 0, err
	}

	precision := greedyMatch(predVecs, refVecs)
	recall := greedyMatch(refVecs, predVecs)
	if precision+recall == 0 {
		return 0, nil
	}
	return 2 * precision * recall / (precision + recall), nil
}

func (s *SemanticScorer) embedSentences(ctx context.Context, sentences []string) ([][]float64, error) {
	vecs := make([][]float64, len(sentences))
	for i, sentence := range sentences {
		vec, err := s.embedder.Embed(ctx, sentence)
		if err != nil {
			return nil, fmt.Errorf("failed to embed sentence %d: %w", i, err)
		}
		vecs[i] = vec
	}
	return vecs, nil
}

// greedyMatch averages, over each vector in from, its best cosine similarity
// against any vector in to.
func greedyMatch(from, to [][]float64) float64 {
	var sum float64
	for _, f := range from {
		best := 0.0
		for _, t := range to {
			if sim := CosineSimilarity(f, t); sim > best {
				best = sim
			}
		}
		sum += best
	}
	return sum / float64(len(from))
}

// Summary holds the distribution of one metric across queries.
type Summary struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Aggregate collapses per-query metric maps into a Summary per metric name.
func Aggregate(allMetrics []map[string]float64) map[string]Summary {
	if len(allMetrics) == 0 {
		return map[string]Summary{}
	}

	values := make(map[string][]float64)
	for _, metrics := range allMetrics {
		for name, value := range metrics {
			values[name] = append(values[name], value)
		}
	}

	aggregated := make(map[string]Summary, len(values))
	for name, vals := range values {
		aggregated[name] = summarize(vals)
	}
	return aggregated
}

func summarize(vals []float64) Summary {
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(len(vals))

	var variance float64
	for _, v := range vals {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(vals))

	var median float64
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		median = sorted[mid]
	}

	return Summary{
		Mean:   mean,
		Median: median,
		Std:    math.Sqrt(variance),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
	}
}
