package chunkbench

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/teilomillet/gollm"

	"chunkbench/rag"
)

// Generator produces an answer to a query from retrieved context chunks.
// Two implementations exist: a gollm-backed one for hosted providers and a
// ChatClient-backed one for self-hosted OpenAI-compatible endpoints.
type Generator interface {
	Generate(ctx context.Context, query string, chunks []string) (string, error)
}

// LLMGenerator answers queries through a hosted provider via gollm.
type LLMGenerator struct {
	llm gollm.LLM
}

// NewLLMGenerator creates a Generator for the given provider and model.
//
// Example:
//
//	gen, err := NewLLMGenerator("openai", "gpt-4o-mini", os.Getenv("OPENAI_API_KEY"))
func NewLLMGenerator(provider, model, apiKey string) (*LLMGenerator, error) {
	llm, err := gollm.NewLLM(
		gollm.SetProvider(provider),
		gollm.SetModel(model),
		gollm.SetAPIKey(apiKey),
		gollm.SetMaxTokens(512),
		gollm.SetMaxRetries(3),
		gollm.SetRetryDelay(time.Second*2),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	return &LLMGenerator{llm: llm}, nil
}

func (g *LLMGenerator) Generate(ctx context.Context, query string, chunks []string) (string, error) {
	var contextParts []string
	for i, chunk := range chunks {
		contextParts = append(contextParts, fmt.Sprintf("[%d] %s", i+1, chunk))
	}

	prompt := gollm.NewPrompt(
		fmt.Sprintf(`Context information is below:
---
%s
---

Given the context information above, please answer the following query:
%s

Answer:`, strings.Join(contextParts, "\n\n"), query),
		gollm.WithSystemPrompt("You are a helpful assistant that answers questions based on the provided context. Use only the information from the context to answer.", gollm.CacheTypeEphemeral),
	)

	response, err := g.llm.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}
	return strings.TrimSpace(response), nil
}

// ChatGenerator answers queries through a self-hosted OpenAI-compatible
// endpoint, such as a vLLM server.
type ChatGenerator struct {
	client *rag.ChatClient
}

// NewChatGenerator creates a Generator for the endpoint at baseURL.
//
// Example:
//
//	gen := NewChatGenerator("http://localhost:8000/v1", "TinyLlama/TinyLlama-1.1B-Chat-v1.0", "")
func NewChatGenerator(baseURL, model, apiKey string) *ChatGenerator {
	return &ChatGenerator{
		client: rag.NewChatClient(baseURL, model, rag.WithChatAPIKey(apiKey)),
	}
}

func (g *ChatGenerator) Generate(ctx context.Context, query string, chunks []string) (string, error) {
	return g.client.GenerateAnswer(ctx, query, chunks)
}
