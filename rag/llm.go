package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const ragSystemPrompt = "You are a helpful assistant that answers questions based on the provided context. Use only the information from the context to answer."

// ChatClient talks to an OpenAI-compatible chat completions endpoint. It
// covers self-hosted inference servers such as vLLM, where the hosted
// provider SDKs do not apply.
type ChatClient struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

type ChatOption func(*ChatClient)

func WithChatAPIKey(key string) ChatOption {
	return func(c *ChatClient) {
		c.apiKey = key
	}
}

func WithChatTemperature(t float64) ChatOption {
	return func(c *ChatClient) {
		c.temperature = t
	}
}

func WithChatMaxTokens(n int) ChatOption {
	return func(c *ChatClient) {
		c.maxTokens = n
	}
}

func WithChatTimeout(d time.Duration) ChatOption {
	return func(c *ChatClient) {
		c.httpClient.Timeout = d
	}
}

// NewChatClient creates a client for the given endpoint and model. baseURL is
// the server root or /v1 prefix, e.g. http://localhost:8000/v1.
func NewChatClient(baseURL, model string, opts ...ChatOption) *ChatClient {
	c := &ChatClient{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		model:       model,
		temperature: 0.7,
		maxTokens:   512,
		httpClient:  &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Chat sends the messages and returns the first choice, trimmed.
func (c *ChatClient) Chat(ctx context.Context, messages []chatMessage) (string, error) {
	reqBody := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	if !strings.HasSuffix(c.baseURL, "/v1") {
		url = c.baseURL + "/v1/chat/completions"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read chat response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to unmarshal chat response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("chat response contained no choices")
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

// GenerateAnswer answers a query from retrieved chunks. Chunks are numbered
// into the context block so the model can ground its answer.
func (c *ChatClient) GenerateAnswer(ctx context.Context, query string, chunks []string) (string, error) {
	var contextParts []string
	for i, chunk := range chunks {
		contextParts = append(contextParts, fmt.Sprintf("[%d] %s", i+1, chunk))
	}

	prompt := fmt.Sprintf(`Context information is below:
---
%s
---

Given the context information above, please answer the following query:
%s

Answer:`, strings.Join(contextParts, "\n\n"), query)

	return c.Chat(ctx, []chatMessage{
		{Role: "system", Content: ragSystemPrompt},
		{Role: "user", Content: prompt},
	})
}
