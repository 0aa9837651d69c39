package rag

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Strategy names a chunking policy under evaluation.
type Strategy string

const (
	// StrategyFixed slides a fixed character window over the text.
	StrategyFixed Strategy = "fixed"
	// StrategyRecursive splits on hierarchical separators and merges the
	// pieces back up to the size budget.
	StrategyRecursive Strategy = "recursive"
	// StrategyToken slides a fixed token window using a subword tokenizer.
	StrategyToken Strategy = "token"
	// StrategySentence groups whole sentences up to a character budget.
	StrategySentence Strategy = "sentence"
	// StrategyParagraph keeps paragraphs intact, optionally prefixing each
	// with a tail of its predecessor.
	StrategyParagraph Strategy = "paragraph"
)

// ParseStrategy converts a strategy name from config or CLI flags.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(s)) {
	case StrategyFixed, StrategyRecursive, StrategyToken, StrategySentence, StrategyParagraph:
		return Strategy(strings.ToLower(s)), nil
	}
	return "", fmt.Errorf("unknown chunking strategy: %q", s)
}

// StrategySpec is one strategy configuration to benchmark. ChunkSize is in
// characters for every strategy except token, where it is in tokens.
type StrategySpec struct {
	Name         string   `json:"name"`
	Strategy     Strategy `json:"strategy"`
	ChunkSize    int      `json:"chunk_size"`
	ChunkOverlap int      `json:"chunk_overlap"`
}

// CollectionName derives a vector collection name unique to this strategy
// configuration, so each run indexes and retrieves in isolation.
func (s StrategySpec) CollectionName() string {
	return fmt.Sprintf("chunks_%s_%d_%d", s.Strategy, s.ChunkSize, s.ChunkOverlap)
}

// DefaultStrategySpecs returns the standard benchmark roster.
func DefaultStrategySpecs() []StrategySpec {
	return []StrategySpec{
		{Name: "Fixed-500", Strategy: StrategyFixed, ChunkSize: 500, ChunkOverlap: 50},
		{Name: "Recursive-500", Strategy: StrategyRecursive, ChunkSize: 500, ChunkOverlap: 50},
		{Name: "Token-256", Strategy: StrategyToken, ChunkSize: 256, ChunkOverlap: 32},
		{Name: "Sentence-500", Strategy: StrategySentence, ChunkSize: 500, ChunkOverlap: 100},
		{Name: "Paragraph-Overlap", Strategy: StrategyParagraph, ChunkSize: 0, ChunkOverlap: 100},
	}
}

// NewStrategyChunker builds the Chunker for a spec. The token strategy needs
// the cl100k_base encoding; if it cannot be loaded the chunker degrades to a
// character window at four characters per token.
func NewStrategyChunker(spec StrategySpec) (Chunker, error) {
	switch spec.Strategy {
	case StrategyFixed:
		return NewFixedChunker(spec.ChunkSize, spec.ChunkOverlap), nil
	case StrategyRecursive:
		return NewRecursiveChunker(spec.ChunkSize, spec.ChunkOverlap), nil
	case StrategyToken:
		return NewTokenChunker(spec.ChunkSize, spec.ChunkOverlap), nil
	case StrategySentence:
		return NewSentenceChunker(spec.ChunkSize, spec.ChunkOverlap), nil
	case StrategyParagraph:
		return NewParagraphChunker(spec.ChunkOverlap), nil
	default:
		return nil, fmt.Errorf("unknown chunking strategy: %q", spec.Strategy)
	}
}

// FixedChunker slides a character window of Size runes, advancing by
// Size - Overlap each step.
type FixedChunker struct {
	Size         int
	Overlap      int
	TokenCounter TokenCounter
}

// NewFixedChunker creates a fixed-window chunker.
func NewFixedChunker(size, overlap int) *FixedChunker {
	return &FixedChunker{Size: size, Overlap: overlap, TokenCounter: &DefaultTokenCounter{}}
}

// Chunk splits text into overlapping character windows. Whitespace-only
// windows are dropped. When Size <= Overlap only the first window is
// produced, so a misconfiguration cannot loop forever.
func (fc *FixedChunker) Chunk(text string) []Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	var chunks []Chunk
	for start := 0; start < len(runes); {
		end := start + fc.Size
		if end > len(runes) {
			end = len(runes)
		}
		window := string(runes[start:end])
		if strings.TrimSpace(window) != "" {
			chunks = append(chunks, Chunk{Text: window, TokenSize: fc.TokenCounter.Count(window)})
		}
		if fc.Size <= fc.Overlap {
			break
		}
		start += fc.Size - fc.Overlap
	}
	return chunks
}

// RecursiveChunker splits on the first separator present in the text, from
// coarsest to finest, then merges the splits back into chunks of up to Size
// runes. The tail of each emitted chunk seeds the next one as overlap.
type RecursiveChunker struct {
	Size         int
	Overlap      int
	Separators   []string
	TokenCounter TokenCounter
}

// NewRecursiveChunker creates a separator-hierarchy chunker with the usual
// paragraph, line, sentence, word, character separator ladder.
func NewRecursiveChunker(size, overlap int) *RecursiveChunker {
	return &RecursiveChunker{
		Size:         size,
		Overlap:      overlap,
		Separators:   []string{"\n\n", "\n", ". ", " ", ""},
		TokenCounter: &DefaultTokenCounter{},
	}
}

func (rc *RecursiveChunker) Chunk(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	separator := rc.Separators[len(rc.Separators)-1]
	for _, sep := range rc.Separators {
		if sep == "" {
			separator = ""
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			break
		}
	}

	var splits []string
	if separator != "" {
		splits = strings.Split(text, separator)
	} else {
		splits = strings.Split(text, "")
	}

	var chunks []Chunk
	var current, previous string

	for _, s := range splits {
		potential := len([]rune(current)) + len([]rune(s)) + len([]rune(separator))
		if potential <= rc.Size {
			current += s + separator
			continue
		}

		if strings.TrimSpace(current) != "" {
			trimmed := strings.TrimSpace(current)
			chunks = append(chunks, Chunk{Text: trimmed, TokenSize: rc.TokenCounter.Count(trimmed)})
			previous = current
		}

		if rc.Overlap > 0 && previous != "" {
			current = tailRunes(previous, rc.Overlap) + s + separator
		} else {
			current = s + separator
		}
	}

	if trimmed := strings.TrimSpace(current); trimmed != "" {
		chunks = append(chunks, Chunk{Text: trimmed, TokenSize: rc.TokenCounter.Count(trimmed)})
	}

	return chunks
}

// TokenCodec encodes text to token IDs and back. It exists so the token
// chunker can be exercised without the tiktoken vocabulary files.
type TokenCodec interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

type tiktokenCodec struct {
	tke *tiktoken.Tiktoken
}

func (c *tiktokenCodec) Encode(text string) []int {
	return c.tke.Encode(text, nil, nil)
}

func (c *tiktokenCodec) Decode(tokens []int) string {
	return c.tke.Decode(tokens)
}

// TokenChunker slides a window of Size tokens, advancing by Size - Overlap,
// and decodes each window back to text.
type TokenChunker struct {
	Size    int
	Overlap int
	Codec   TokenCodec

	// fallback is used when no codec could be constructed. It approximates
	// one token as four characters.
	fallback *FixedChunker
}

// NewTokenChunker creates a token-window chunker on the cl100k_base
// encoding. If the encoding cannot be loaded (for example with no network
// access to fetch the vocabulary), it degrades to a character window.
func NewTokenChunker(size, overlap int) *TokenChunker {
	tc := &TokenChunker{Size: size, Overlap: overlap}
	tke, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		GlobalLogger.Warn("could not load tiktoken encoding, falling back to character windows", "error", err)
		tc.fallback = NewFixedChunker(size*4, overlap*4)
		return tc
	}
	tc.Codec = &tiktokenCodec{tke: tke}
	return tc
}

// NewTokenChunkerWithCodec creates a token-window chunker over a caller
// supplied codec.
func NewTokenChunkerWithCodec(size, overlap int, codec TokenCodec) *TokenChunker {
	return &TokenChunker{Size: size, Overlap: overlap, Codec: codec}
}

func (tc *TokenChunker) Chunk(text string) []Chunk {
	if tc.Codec == nil {
		if tc.fallback != nil {
			return tc.fallback.Chunk(text)
		}
		return nil
	}

	tokens := tc.Codec.Encode(text)
	if len(tokens) == 0 {
		return nil
	}

	var chunks []Chunk
	for start := 0; start < len(tokens); {
		end := start + tc.Size
		if end > len(tokens) {
			end = len(tokens)
		}
		window := tc.Codec.Decode(tokens[start:end])
		if strings.TrimSpace(window) != "" {
			chunks = append(chunks, Chunk{Text: window, TokenSize: end - start})
		}
		if tc.Size <= tc.Overlap {
			break
		}
		start += tc.Size - tc.Overlap
	}
	return chunks
}

// SentenceChunker groups whole sentences until adding another would exceed
// the Size budget in characters. Overlap carries trailing sentences whose
// combined length fits in Overlap characters into the next chunk.
type SentenceChunker struct {
	Size             int
	Overlap          int
	SentenceSplitter func(string) []string
	TokenCounter     TokenCounter
}

// NewSentenceChunker creates a sentence-grouping chunker using the smart
// sentence splitter.
func NewSentenceChunker(size, overlap int) *SentenceChunker {
	return &SentenceChunker{
		Size:             size,
		Overlap:          overlap,
		SentenceSplitter: SmartSentenceSplitter,
		TokenCounter:     &DefaultTokenCounter{},
	}
}

func (sc *SentenceChunker) Chunk(text string) []Chunk {
	sentences := sc.SentenceSplitter(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []Chunk
	var current []string
	currentSize := 0
	startIdx := 0

	flush := func(end int) {
		joined := strings.Join(current, " ")
		chunks = append(chunks, Chunk{
			Text:          joined,
			TokenSize:     sc.TokenCounter.Count(joined),
			StartSentence: startIdx,
			EndSentence:   end,
		})
	}

	for i, sentence := range sentences {
		sentenceLen := len([]rune(sentence))

		if currentSize+sentenceLen > sc.Size && len(current) > 0 {
			flush(i)

			if sc.Overlap > 0 {
				var overlapSentences []string
				overlapLen := 0
				for j := len(current) - 1; j >= 0; j-- {
					l := len([]rune(current[j]))
					if overlapLen+l > sc.Overlap {
						break
					}
					overlapSentences = append([]string{current[j]}, overlapSentences...)
					overlapLen = len([]rune(strings.Join(overlapSentences, " ")))
				}
				startIdx = i - len(overlapSentences)
				current = overlapSentences
				currentSize = overlapLen
			} else {
				startIdx = i
				current = nil
				currentSize = 0
			}
		}

		current = append(current, sentence)
		currentSize += sentenceLen + 1
	}

	if len(current) > 0 {
		flush(len(sentences))
	}

	return chunks
}

// ParagraphChunker splits on blank lines. With Overlap > 0 every paragraph
// after the first is prefixed with the last Overlap runes of its
// predecessor.
type ParagraphChunker struct {
	Overlap      int
	TokenCounter TokenCounter
}

// NewParagraphChunker creates a paragraph chunker.
func NewParagraphChunker(overlap int) *ParagraphChunker {
	return &ParagraphChunker{Overlap: overlap, TokenCounter: &DefaultTokenCounter{}}
}

func (pc *ParagraphChunker) Chunk(text string) []Chunk {
	var paragraphs []string
	for _, p := range strings.Split(text, "\n\n") {
		if t := strings.TrimSpace(p); t != "" {
			paragraphs = append(paragraphs, t)
		}
	}
	if len(paragraphs) == 0 {
		return nil
	}

	chunks := make([]Chunk, 0, len(paragraphs))
	for i, para := range paragraphs {
		out := para
		if pc.Overlap > 0 && i > 0 {
			out = tailRunes(paragraphs[i-1], pc.Overlap) + "\n\n" + para
		}
		chunks = append(chunks, Chunk{Text: out, TokenSize: pc.TokenCounter.Count(out)})
	}
	return chunks
}

// tailRunes returns the last n runes of s, or all of s when it is shorter.
func tailRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
