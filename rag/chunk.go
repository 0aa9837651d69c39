package rag

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Chunk is a piece of document text together with bookkeeping for where it
// came from and how large it is.
type Chunk struct {
	// Text contains the actual content of the chunk
	Text string
	// TokenSize is the number of tokens in this chunk, as measured by the
	// chunker's TokenCounter
	TokenSize int
	// StartSentence is the index of the first sentence in this chunk
	StartSentence int
	// EndSentence is the index of the last sentence in this chunk (exclusive)
	EndSentence int
}

// Chunker splits text into chunks. Implementations must be deterministic:
// the same input and configuration always produce the same partition.
type Chunker interface {
	Chunk(text string) []Chunk
}

// TokenCounter counts tokens in a string. Implementations range from plain
// word counting to model-specific subword tokenization.
type TokenCounter interface {
	Count(text string) int
}

// DefaultSentenceSplitter splits text on common terminal punctuation.
// Suitable for simple English prose.
func DefaultSentenceSplitter(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
}

// SmartSentenceSplitter handles quoted sentences and keeps terminal
// punctuation attached to the sentence it closes.
func SmartSentenceSplitter(text string) []string {
	var sentences []string
	var current strings.Builder
	inQuote := false

	for _, r := range text {
		current.WriteRune(r)

		if r == '"' {
			inQuote = !inQuote
		}

		if (r == '.' || r == '!' || r == '?') && !inQuote {
			if len(sentences) > 0 || current.Len() > 1 {
				s := strings.TrimSpace(current.String())
				if s != "" {
					sentences = append(sentences, s)
				}
				current.Reset()
			}
		}
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}

// DefaultTokenCounter approximates token counts by splitting on whitespace.
type DefaultTokenCounter struct{}

// Count returns the number of whitespace-separated words in the text.
func (dtc *DefaultTokenCounter) Count(text string) int {
	return len(strings.Fields(text))
}

// TikTokenCounter counts tokens with the tiktoken library, matching the
// tokenization used by OpenAI models.
type TikTokenCounter struct {
	tke *tiktoken.Tiktoken
}

// NewTikTokenCounter creates a TikTokenCounter for the given encoding,
// e.g. "cl100k_base" for GPT-4 class models.
func NewTikTokenCounter(encoding string) (*TikTokenCounter, error) {
	tke, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to get encoding: %w", err)
	}
	return &TikTokenCounter{tke: tke}, nil
}

// Count returns the exact token count under the configured encoding.
func (ttc *TikTokenCounter) Count(text string) int {
	return len(ttc.tke.Encode(text, nil, nil))
}
