package rag

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func chatServer(t *testing.T, handle func(req chatRequest) string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}

		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": handle(req)}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestChatClientChat(t *testing.T) {
	server := chatServer(t, func(req chatRequest) string {
		if req.Model != "test-model" {
			t.Errorf("model = %q, want test-model", req.Model)
		}
		if req.MaxTokens != 512 {
			t.Errorf("max_tokens = %d, want 512", req.MaxTokens)
		}
		return "  the answer  "
	})
	defer server.Close()

	client := NewChatClient(server.URL, "test-model")
	got, err := client.Chat(context.Background(), []chatMessage{
		{Role: "user", Content: "hi"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != "the answer" {
		t.Errorf("Chat = %q, want trimmed answer", got)
	}
}

func TestChatClientV1Suffix(t *testing.T) {
	server := chatServer(t, func(chatRequest) string { return "ok" })
	defer server.Close()

	// A base URL already ending in /v1 must not get a second /v1.
	client := NewChatClient(server.URL+"/v1", "m")
	if _, err := client.Chat(context.Background(), []chatMessage{{Role: "user", Content: "x"}}); err != nil {
		t.Fatal(err)
	}
}

func TestGenerateAnswerNumbersChunks(t *testing.T) {
	var captured chatRequest
	server := chatServer(t, func(req chatRequest) string {
		captured = req
		return "generated"
	})
	defer server.Close()

	client := NewChatClient(server.URL, "m")
	answer, err := client.GenerateAnswer(context.Background(), "what is love?",
		[]string{"first chunk", "second chunk"})
	if err != nil {
		t.Fatal(err)
	}
	if answer != "generated" {
		t.Errorf("answer = %q", answer)
	}

	if len(captured.Messages) != 2 {
		t.Fatalf("expected system + user messages, got %d", len(captured.Messages))
	}
	if captured.Messages[0].Role != "system" {
		t.Errorf("first message role = %q, want system", captured.Messages[0].Role)
	}

	user := captured.Messages[1].Content
	if !strings.Contains(user, "[1] first chunk") || !strings.Contains(user, "[2] second chunk") {
		t.Errorf("user prompt missing numbered chunks:\n%s", user)
	}
	if !strings.Contains(user, "what is love?") {
		t.Errorf("user prompt missing query:\n%s", user)
	}
}

func TestChatClientServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewChatClient(server.URL, "m")
	if _, err := client.Chat(context.Background(), []chatMessage{{Role: "user", Content: "x"}}); err == nil {
		t.Fatal("expected error on 500 response")
	}
}

func TestChatClientNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	client := NewChatClient(server.URL, "m")
	if _, err := client.Chat(context.Background(), []chatMessage{{Role: "user", Content: "x"}}); err == nil {
		t.Fatal("expected error on empty choices")
	}
}
