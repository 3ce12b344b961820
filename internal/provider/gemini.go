package provider

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

// geminiDefaultBaseURL is the default Gemini API endpoint.
const geminiDefaultBaseURL = "https://generativelanguage.googleapis.com"

// geminiAPIVersion is the Gemini API version in use.
const geminiAPIVersion = "v1beta"

// GeminiClient calls the Gemini generateContent API over raw HTTP.
type GeminiClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// GeminiConfig configures a GeminiClient.
type GeminiConfig struct {
	APIKey  string        // Required.
	BaseURL string        // Optional, defaults to the public endpoint.
	Timeout time.Duration // Optional, defaults to DefaultTimeout.
}

// NewGeminiClient constructs a Gemini client. A missing API key is not an
// error at construction time; calls will fail with ErrUnavailable so the
// facade can fall back to the other provider.
func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = geminiDefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &GeminiClient{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Name returns the provider name used in usage records.
func (g *GeminiClient) Name() string { return "gemini" }

// geminiRequest is the generateContent request body.
type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

// geminiResponse covers the response shapes the client recognizes.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		Output string `json:"output"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int64 `json:"promptTokenCount"`
		CandidatesTokenCount int64 `json:"candidatesTokenCount"`
		TotalTokenCount      int64 `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// geminiErrorResponse is the upstream error envelope.
type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate runs one generateContent call.
func (g *GeminiClient) Generate(ctx context.Context, model, content string, opts Options) (Result, error) {
	if g == nil || g.apiKey == "" {
		return Result{}, ErrUnavailable
	}

	body := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: content}}},
		},
		GenerationConfig: geminiGenConfig{
			Temperature:     opts.Temperature,
			MaxOutputTokens: opts.MaxOutputTokens,
		},
	}
	payload, errMarshal := json.Marshal(body)
	if errMarshal != nil {
		return Result{}, fmt.Errorf("gemini: marshal request: %w", errMarshal)
	}

	url := fmt.Sprintf("%s/%s/models/%s:generateContent", g.baseURL, geminiAPIVersion, model)
	httpReq, errReq := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if errReq != nil {
		return Result{}, fmt.Errorf("gemini: build request: %w", errReq)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, errDo := g.client.Do(httpReq)
	if errDo != nil {
		if timeoutErr := timeoutError(g.Name(), errDo); timeoutErr != nil {
			return Result{}, timeoutErr
		}
		return Result{}, &Error{Provider: g.Name(), Status: http.StatusBadGateway, Message: errDo.Error()}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return Result{}, g.parseAPIError(resp.StatusCode, raw)
	}

	var apiResp geminiResponse
	if errDecode := json.NewDecoder(resp.Body).Decode(&apiResp); errDecode != nil {
		return Result{}, fmt.Errorf("gemini: decode response: %w", errDecode)
	}

	// Tries known response shapes in order; an unrecognized shape yields an
	// empty string rather than an error.
	text := ""
	if len(apiResp.Candidates) > 0 {
		candidate := apiResp.Candidates[0]
		if len(candidate.Content.Parts) > 0 {
			text = candidate.Content.Parts[0].Text
		} else if candidate.Output != "" {
			text = candidate.Output
		}
	}

	var tokens int64
	if apiResp.UsageMetadata != nil {
		tokens = apiResp.UsageMetadata.TotalTokenCount
		if tokens == 0 {
			tokens = apiResp.UsageMetadata.PromptTokenCount + apiResp.UsageMetadata.CandidatesTokenCount
		}
	}

	return Result{Text: text, TokensUsed: tokens}, nil
}

// parseAPIError normalizes an upstream error response.
func (g *GeminiClient) parseAPIError(statusCode int, body []byte) error {
	var errResp geminiErrorResponse
	message := strings.TrimSpace(string(body))
	if errUnmarshal := json.Unmarshal(body, &errResp); errUnmarshal == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
		if errResp.Error.Status != "" {
			message = errResp.Error.Status + ": " + message
		}
	}
	return &Error{
		Provider: g.Name(),
		Status:   normalizeStatus(statusCode, message),
		Message:  message,
	}
}
