package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/zaprelay/zaprelay/llm"
)

func TestGenerateMapsRolesAndSystem(t *testing.T) {
	t.Parallel()

	var got generateContentRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "models/gemini-2.0-flash:generateContent") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "key-123" {
			t.Errorf("missing api key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"role": "model", "parts": []map[string]any{{"text": "Olá! "}}}},
			},
			"usageMetadata": map[string]any{"promptTokenCount": 12, "candidatesTokenCount": 3, "totalTokenCount": 15},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "key-123", "gemini-2.0-flash", time.Second)
	res, err := c.Generate(context.Background(), llm.Request{
		System: "persona",
		History: []llm.Message{
			{Role: llm.RoleUser, Content: "oi"},
			{Role: llm.RoleAssistant, Content: "olá"},
		},
		Prompt: "quanto custa?",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if res.Text != "Olá!" {
		t.Fatalf("Generate() text = %q, want %q", res.Text, "Olá!")
	}
	if res.Usage.TotalTokens != 15 {
		t.Fatalf("Generate() total tokens = %d, want 15", res.Usage.TotalTokens)
	}

	if got.SystemInstruction == nil || got.SystemInstruction.Parts[0].Text != "persona" {
		t.Fatalf("request system instruction = %+v, want persona", got.SystemInstruction)
	}
	if len(got.Contents) != 3 {
		t.Fatalf("request contents len = %d, want 3", len(got.Contents))
	}
	if got.Contents[1].Role != "model" {
		t.Fatalf("assistant history role = %q, want model", got.Contents[1].Role)
	}
	if got.Contents[2].Role != "user" || got.Contents[2].Parts[0].Text != "quanto custa?" {
		t.Fatalf("prompt content = %+v, want trailing user prompt", got.Contents[2])
	}
}

func TestGenerateEmptyCandidates(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer srv.Close()

	c := New(srv.URL, "key", "gemini-2.0-flash", time.Second)
	_, err := c.Generate(context.Background(), llm.Request{Prompt: "oi"})
	if err == nil {
		t.Fatalf("Generate() expected error for empty candidates")
	}
}

func TestGenerateRetriesTransient(t *testing.T) {
	t.Parallel()

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "pronto"}}}},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "key", "gemini-2.0-flash", time.Second)
	c.backoff = time.Millisecond
	res, err := c.Generate(context.Background(), llm.Request{Prompt: "oi"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if res.Text != "pronto" {
		t.Fatalf("Generate() text = %q, want %q", res.Text, "pronto")
	}
	if calls != 2 {
		t.Fatalf("Generate() calls = %d, want 2", calls)
	}
}

func TestGenerateAPIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 400, "message": "API key not valid", "status": "INVALID_ARGUMENT"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "bad", "gemini-2.0-flash", time.Second)
	_, err := c.Generate(context.Background(), llm.Request{Prompt: "oi"})
	if err == nil || !strings.Contains(err.Error(), "API key not valid") {
		t.Fatalf("Generate() error = %v, want api error message", err)
	}
}
