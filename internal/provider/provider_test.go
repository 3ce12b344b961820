package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGeminiGenerateExtractsTextAndTokens(t *testing.T) {
	var gotPath, gotKey string
	var gotBody geminiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"parts": [{"text": "generated body"}]}}],
			"usageMetadata": {"promptTokenCount": 10, "candidatesTokenCount": 30, "totalTokenCount": 40}
		}`))
	}))
	defer server.Close()

	client := NewGeminiClient(GeminiConfig{APIKey: "test-key", BaseURL: server.URL})
	result, errGenerate := client.Generate(context.Background(), "gemini-2.0-flash", "hello", Options{Temperature: 0.5, MaxOutputTokens: 300})
	if errGenerate != nil {
		t.Fatalf("generate: %v", errGenerate)
	}
	if result.Text != "generated body" {
		t.Fatalf("unexpected text: %q", result.Text)
	}
	if result.TokensUsed != 40 {
		t.Fatalf("expected 40 tokens, got %d", result.TokensUsed)
	}
	if gotPath != "/v1beta/models/gemini-2.0-flash:generateContent" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotKey != "test-key" {
		t.Fatalf("expected api key header, got %q", gotKey)
	}
	if gotBody.GenerationConfig.MaxOutputTokens != 300 {
		t.Fatalf("expected maxOutputTokens 300, got %d", gotBody.GenerationConfig.MaxOutputTokens)
	}
}

func TestGeminiGenerateSumsTokensWhenTotalMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"parts": [{"text": "x"}]}}],
			"usageMetadata": {"promptTokenCount": 7, "candidatesTokenCount": 5}
		}`))
	}))
	defer server.Close()

	client := NewGeminiClient(GeminiConfig{APIKey: "k", BaseURL: server.URL})
	result, errGenerate := client.Generate(context.Background(), "m", "hello", Options{})
	if errGenerate != nil {
		t.Fatalf("generate: %v", errGenerate)
	}
	if result.TokensUsed != 12 {
		t.Fatalf("expected 12 tokens, got %d", result.TokensUsed)
	}
}

func TestGeminiQuotaErrorNormalizedTo429(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"code": 400, "message": "Quota exceeded for model", "status": "RESOURCE_EXHAUSTED"}}`))
	}))
	defer server.Close()

	client := NewGeminiClient(GeminiConfig{APIKey: "k", BaseURL: server.URL})
	_, errGenerate := client.Generate(context.Background(), "m", "hello", Options{})
	var provErr *Error
	if !errors.As(errGenerate, &provErr) {
		t.Fatalf("expected *Error, got %v", errGenerate)
	}
	if provErr.Status != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", provErr.Status)
	}
}

func TestGeminiMissingKeyUnavailable(t *testing.T) {
	client := NewGeminiClient(GeminiConfig{})
	_, errGenerate := client.Generate(context.Background(), "m", "hello", Options{})
	if !errors.Is(errGenerate, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", errGenerate)
	}
}

func TestGeminiEmptyCandidatesNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates": []}`))
	}))
	defer server.Close()

	client := NewGeminiClient(GeminiConfig{APIKey: "k", BaseURL: server.URL})
	result, errGenerate := client.Generate(context.Background(), "m", "hello", Options{})
	if errGenerate != nil {
		t.Fatalf("generate: %v", errGenerate)
	}
	if result.Text != "" || result.TokensUsed != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestOpenRouterGenerateExtractsTextAndTokens(t *testing.T) {
	var gotAuth string
	var gotBody chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "answer text"}}],
			"usage": {"prompt_tokens": 4, "completion_tokens": 6, "total_tokens": 10}
		}`))
	}))
	defer server.Close()

	client := NewOpenRouterClient(OpenRouterConfig{APIKey: "or-key", URL: server.URL})
	result, errGenerate := client.Generate(context.Background(), "meta/llama", "hello", Options{MaxOutputTokens: 600})
	if errGenerate != nil {
		t.Fatalf("generate: %v", errGenerate)
	}
	if result.Text != "answer text" || result.TokensUsed != 10 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if gotAuth != "Bearer or-key" {
		t.Fatalf("expected bearer auth, got %q", gotAuth)
	}
	if gotBody.Model != "meta/llama" || gotBody.MaxTokens != 600 {
		t.Fatalf("unexpected request body: %+v", gotBody)
	}
}

func TestOpenRouterLegacyTextShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices": [{"text": "legacy completion"}]}`))
	}))
	defer server.Close()

	client := NewOpenRouterClient(OpenRouterConfig{APIKey: "k", URL: server.URL})
	result, errGenerate := client.Generate(context.Background(), "m", "hello", Options{})
	if errGenerate != nil {
		t.Fatalf("generate: %v", errGenerate)
	}
	if result.Text != "legacy completion" {
		t.Fatalf("unexpected text: %q", result.Text)
	}
}

func TestOpenRouterRateLimitMessageNormalizedTo429(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limit reached, slow down", "code": 503}}`))
	}))
	defer server.Close()

	client := NewOpenRouterClient(OpenRouterConfig{APIKey: "k", URL: server.URL})
	_, errGenerate := client.Generate(context.Background(), "m", "hello", Options{})
	var provErr *Error
	if !errors.As(errGenerate, &provErr) {
		t.Fatalf("expected *Error, got %v", errGenerate)
	}
	if provErr.Status != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", provErr.Status)
	}
}

func TestOpenRouterMissingKeyUnavailable(t *testing.T) {
	client := NewOpenRouterClient(OpenRouterConfig{})
	_, errGenerate := client.Generate(context.Background(), "m", "hello", Options{})
	if !errors.Is(errGenerate, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", errGenerate)
	}
}

func TestNormalizeStatus(t *testing.T) {
	if got := normalizeStatus(400, "Quota exceeded"); got != http.StatusTooManyRequests {
		t.Fatalf("quota message: expected 429, got %d", got)
	}
	if got := normalizeStatus(0, "connection reset"); got != http.StatusBadGateway {
		t.Fatalf("zero status: expected 502, got %d", got)
	}
	if got := normalizeStatus(500, "internal"); got != 500 {
		t.Fatalf("passthrough: expected 500, got %d", got)
	}
}
