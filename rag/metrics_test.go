package rag

import (
	"context"
	"math"
	"testing"
)

func TestRougeNIdentical(t *testing.T) {
	text := "the quick brown fox jumps over the lazy dog"
	if got := RougeN(text, text, 1); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("RougeN identical texts = %f, want 1.0", got)
	}
	if got := RougeN(text, text, 2); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("RougeN bigrams identical texts = %f, want 1.0", got)
	}
}

func TestRougeNDisjoint(t *testing.T) {
	if got := RougeN("alpha beta gamma", "one two three", 1); got != 0 {
		t.Errorf("RougeN disjoint texts = %f, want 0", got)
	}
}

func TestRougeNPartialOverlap(t *testing.T) {
	// prediction unigrams: {the, cat}, reference: {the, dog}
	// overlap 1, precision 1/2, recall 1/2, F1 = 1/2
	got := RougeN("the cat", "the dog", 1)
	if math.Abs(got-0.5) > 1e-9 {
		t.Errorf("RougeN = %f, want 0.5", got)
	}
}

func TestRougeNEmpty(t *testing.T) {
	if got := RougeN("", "reference text", 1); got != 0 {
		t.Errorf("RougeN empty prediction = %f, want 0", got)
	}
	if got := RougeN("prediction", "", 1); got != 0 {
		t.Errorf("RougeN empty reference = %f, want 0", got)
	}
}

func TestRougeNCaseAndPunctuation(t *testing.T) {
	got := RougeN("The Cat!", "the cat", 1)
	if math.Abs(got-1.0) > 1e-9 {
		t.Errorf("RougeN should normalize case and punctuation, got %f", got)
	}
}

func TestRougeL(t *testing.T) {
	// LCS("a b c d", "a c d") = 3
	// precision 3/4, recall 3/3, F1 = 2*0.75*1/1.75
	got := RougeL("a b c d", "a c d")
	want := 2.0 * 0.75 * 1.0 / 1.75
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("RougeL = %f, want %f", got, want)
	}
}

func TestRougeLIdentical(t *testing.T) {
	text := "exactly the same sentence"
	if got := RougeL(text, text); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("RougeL identical = %f, want 1.0", got)
	}
}

func TestBLEUIdentical(t *testing.T) {
	text := "the quick brown fox jumps over the lazy dog today"
	got := BLEU(text, text)
	// Add-one smoothing on higher orders keeps identical text slightly
	// under a perfect 100.
	if got < 90 || got > 100 {
		t.Errorf("BLEU identical texts = %f, want near 100", got)
	}
}

func TestBLEUDisjoint(t *testing.T) {
	if got := BLEU("alpha beta gamma delta", "one two three four"); got != 0 {
		t.Errorf("BLEU disjoint texts = %f, want 0", got)
	}
}

func TestBLEUEmpty(t *testing.T) {
	if got := BLEU("", "reference"); got != 0 {
		t.Errorf("BLEU empty prediction = %f, want 0", got)
	}
}

func TestBLEUBrevityPenalty(t *testing.T) {
	reference := "one two three four five six seven eight"
	full := BLEU(reference, reference)
	truncated := BLEU("one two three four", reference)
	if truncated >= full {
		t.Errorf("short prediction should be penalized: truncated=%f full=%f", truncated, full)
	}
}

func TestRecallAtK(t *testing.T) {
	tests := []struct {
		name      string
		retrieved []string
		relevant  []string
		k         int
		want      float64
	}{
		{"hit at first", []string{"a", "b", "c"}, []string{"a"}, 3, 1.0},
		{"hit beyond k", []string{"a", "b", "c"}, []string{"c"}, 2, 0.0},
		{"partial", []string{"a", "b", "c", "d"}, []string{"a", "x"}, 4, 0.5},
		{"no relevant", []string{"a"}, nil, 1, 0.0},
		{"k beyond retrieved", []string{"a"}, []string{"a"}, 5, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RecallAtK(tt.retrieved, tt.relevant, tt.k)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("RecallAtK = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestAggregate(t *testing.T) {
	metrics := []map[string]float64{
		{"rouge1": 0.2, "bleu": 10},
		{"rouge1": 0.4, "bleu": 20},
		{"rouge1": 0.6, "bleu": 30},
	}

	agg := Aggregate(metrics)

	r1, ok := agg["rouge1"]
	if !ok {
		t.Fatal("missing rouge1 summary")
	}
	if math.Abs(r1.Mean-0.4) > 1e-9 {
		t.Errorf("mean = %f, want 0.4", r1.Mean)
	}
	if math.Abs(r1.Median-0.4) > 1e-9 {
		t.Errorf("median = %f, want 0.4", r1.Median)
	}
	if math.Abs(r1.Min-0.2) > 1e-9 || math.Abs(r1.Max-0.6) > 1e-9 {
		t.Errorf("min/max = %f/%f, want 0.2/0.6", r1.Min, r1.Max)
	}
	wantStd := math.Sqrt((0.04 + 0 + 0.04) / 3)
	if math.Abs(r1.Std-wantStd) > 1e-9 {
		t.Errorf("std = %f, want %f", r1.Std, wantStd)
	}
}

func TestAggregateEvenCount(t *testing.T) {
	agg := Aggregate([]map[string]float64{
		{"m": 1}, {"m": 2}, {"m": 3}, {"m": 4},
	})
	if got := agg["m"].Median; math.Abs(got-2.5) > 1e-9 {
		t.Errorf("median = %f, want 2.5", got)
	}
}

func TestAggregateEmpty(t *testing.T) {
	agg := Aggregate(nil)
	if len(agg) != 0 {
		t.Errorf("expected empty aggregation, got %v", agg)
	}
}

// wordEmbedder embeds sentences as fixed vectors keyed by their first word,
// so sentences sharing a first word are identical and others are orthogonal.
type wordEmbedder struct {
	vectors map[string][]float64
}

func (e *wordEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	words := tokenize(text)
	if len(words) == 0 {
		return []float64{0, 0, 0}, nil
	}
	if v, ok := e.vectors[words[0]]; ok {
		return v, nil
	}
	return []float64{0, 0, 1}, nil
}

func TestSemanticScorerIdentical(t *testing.T) {
	embedder := &wordEmbedder{vectors: map[string][]float64{
		"cats": {1, 0, 0},
	}}
	scorer := NewSemanticScorer(embedder)

	got, err := scorer.Score(context.Background(), "cats are great.", "cats are great.")
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-1.0) > 1e-9 {
		t.Errorf("semantic score identical = %f, want 1.0", got)
	}
}

func TestSemanticScorerOrthogonal(t *testing.T) {
	embedder := &wordEmbedder{vectors: map[string][]float64{
		"cats": {1, 0, 0},
		"dogs": {0, 1, 0},
	}}
	scorer := NewSemanticScorer(embedder)

	got, err := scorer.Score(context.Background(), "cats here.", "dogs there.")
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("semantic score orthogonal = %f, want 0", got)
	}
}

func TestSemanticScorerEmpty(t *testing.T) {
	scorer := NewSemanticScorer(&wordEmbedder{})
	got, err := scorer.Score(context.Background(), "", "some reference.")
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("semantic score empty prediction = %f, want 0", got)
	}
}
