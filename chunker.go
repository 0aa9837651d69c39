// Package chunkbench benchmarks document chunking strategies for
// retrieval-augmented generation. It ingests a corpus of papers, splits each
// document with several competing strategies, indexes the chunks per strategy
// and scores retrieval and generation quality so the strategies can be
// compared on equal footing.
package chunkbench

import (
	"chunkbench/rag"
)

// Chunk represents a piece of text with associated metadata including its
// content, token count, and position within the original document.
type Chunk = rag.Chunk

// Chunker defines the interface for text chunking implementations.
// Implementations of this interface provide strategies for splitting text
// into chunks while preserving context.
type Chunker interface {
	// Chunk splits the input text into a slice of Chunks according to the
	// implementation's strategy.
	Chunk(text string) []Chunk
}

// Strategy identifies a chunking algorithm.
type Strategy = rag.Strategy

// Supported chunking strategies.
const (
	StrategyFixed     = rag.StrategyFixed
	StrategyRecursive = rag.StrategyRecursive
	StrategyToken     = rag.StrategyToken
	StrategySentence  = rag.StrategySentence
	StrategyParagraph = rag.StrategyParagraph
)

// ParseStrategy converts a strategy name into a Strategy, or errors on an
// unknown name.
func ParseStrategy(name string) (Strategy, error) {
	return rag.ParseStrategy(name)
}

// StrategySpec is a named strategy configuration: the algorithm plus its
// chunk size and overlap. Each spec maps to one vector collection.
type StrategySpec = rag.StrategySpec

// DefaultStrategySpecs returns the standard set of strategy configurations
// the experiments compare:
//
//	Fixed-500/50, Recursive-500/50, Token-256/32,
//	Sentence-500/100, Paragraph-0/100
func DefaultStrategySpecs() []StrategySpec {
	return rag.DefaultStrategySpecs()
}

// NewChunker creates the Chunker for the given StrategySpec.
//
// Example:
//
//	chunker, err := NewChunker(StrategySpec{
//	    Name:         "Fixed-500",
//	    Strategy:     StrategyFixed,
//	    ChunkSize:    500,
//	    ChunkOverlap: 50,
//	})
func NewChunker(spec StrategySpec) (Chunker, error) {
	return rag.NewStrategyChunker(spec)
}

// TokenCounter defines the interface for counting tokens in text.
type TokenCounter interface {
	// Count returns the number of tokens in the given text according to
	// the implementation's tokenization strategy.
	Count(text string) int
}

// NewDefaultTokenCounter creates a simple word-based token counter that
// splits text on whitespace.
func NewDefaultTokenCounter() TokenCounter {
	return &rag.DefaultTokenCounter{}
}

// NewTikTokenCounter creates a token counter using the tiktoken library,
// which implements the same tokenization used by OpenAI models. The encoding
// parameter specifies which tokenization model to use (e.g., "cl100k_base").
func NewTikTokenCounter(encoding string) (TokenCounter, error) {
	return rag.NewTikTokenCounter(encoding)
}
