package rag

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync/atomic"
	"testing"
)

// indexEmbedder returns a vector encoding the numeric suffix of the text, so
// tests can check that results line up with their inputs.
type indexEmbedder struct {
	calls int64
}

func (e *indexEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	atomic.AddInt64(&e.calls, 1)
	n, err := strconv.Atoi(text)
	if err != nil {
		return nil, fmt.Errorf("unexpected text %q", text)
	}
	return []float64{float64(n)}, nil
}

type errorEmbedder struct{}

func (errorEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	return nil, fmt.Errorf("provider unavailable")
}

func TestEmbedChunksPreservesOrder(t *testing.T) {
	embedder := &indexEmbedder{}
	service := NewEmbeddingService(embedder, WithWorkers(3))

	chunks := make([]Chunk, 20)
	for i := range chunks {
		chunks[i] = Chunk{Text: strconv.Itoa(i), TokenSize: i}
	}

	embedded, err := service.EmbedChunks(context.Background(), chunks)
	if err != nil {
		t.Fatalf("EmbedChunks() error: %v", err)
	}
	if len(embedded) != len(chunks) {
		t.Fatalf("got %d embedded chunks, want %d", len(embedded), len(chunks))
	}

	for i, ec := range embedded {
		if ec.Text != strconv.Itoa(i) {
			t.Errorf("chunk %d: Text = %q", i, ec.Text)
		}
		vec := ec.Embeddings["default"]
		if len(vec) != 1 || vec[0] != float64(i) {
			t.Errorf("chunk %d: embedding = %v", i, vec)
		}
		if ec.Metadata["chunk_index"] != i {
			t.Errorf("chunk %d: chunk_index = %v", i, ec.Metadata["chunk_index"])
		}
	}

	if got := atomic.LoadInt64(&embedder.calls); got != int64(len(chunks)) {
		t.Errorf("embedder called %d times, want %d", got, len(chunks))
	}
}

func TestEmbedChunksEmpty(t *testing.T) {
	service := NewEmbeddingService(&indexEmbedder{})

	embedded, err := service.EmbedChunks(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedChunks() error: %v", err)
	}
	if embedded != nil {
		t.Errorf("got %v, want nil", embedded)
	}
}

func TestEmbedChunksPropagatesError(t *testing.T) {
	service := NewEmbeddingService(errorEmbedder{}, WithWorkers(2))

	chunks := make([]Chunk, 10)
	for i := range chunks {
		chunks[i] = Chunk{Text: strconv.Itoa(i)}
	}

	if _, err := service.EmbedChunks(context.Background(), chunks); err == nil {
		t.Fatal("expected error from failing embedder")
	}
}

func TestEmbedChunksCancelledContext(t *testing.T) {
	service := NewEmbeddingService(&indexEmbedder{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A cancelled context surfaces as an error from the rate limiter wait.
	if _, err := service.EmbedChunks(ctx, []Chunk{{Text: "0"}}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float64{3, 4})
	if math.Abs(v[0]-0.6) > 1e-9 || math.Abs(v[1]-0.8) > 1e-9 {
		t.Errorf("Normalize() = %v", v)
	}

	zero := Normalize([]float64{0, 0})
	if zero[0] != 0 || zero[1] != 0 {
		t.Errorf("Normalize(zero) = %v", zero)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1},
		{"mismatched lengths", []float64{1}, []float64{1, 2}, 0},
		{"zero vector", []float64{0, 0}, []float64{1, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CosineSimilarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}
