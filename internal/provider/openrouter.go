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

// openRouterDefaultURL is the OpenRouter chat-completions endpoint.
const openRouterDefaultURL = "https://openrouter.ai/api/v1/chat/completions"

// OpenRouterClient calls an OpenAI-compatible chat-completions API.
type OpenRouterClient struct {
	apiKey string
	url    string
	client *http.Client
}

// OpenRouterConfig configures an OpenRouterClient.
type OpenRouterConfig struct {
	APIKey  string        // Required.
	URL     string        // Optional, defaults to the OpenRouter endpoint.
	Timeout time.Duration // Optional, defaults to DefaultTimeout.
}

// NewOpenRouterClient constructs an OpenRouter client.
func NewOpenRouterClient(cfg OpenRouterConfig) *OpenRouterClient {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		url = openRouterDefaultURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &OpenRouterClient{
		apiKey: strings.TrimSpace(cfg.APIKey),
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Name returns the provider name used in usage records.
func (o *OpenRouterClient) Name() string { return "openrouter" }

// chatMessage is one chat-completions message.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the chat-completions request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// chatResponse covers the response shapes the client recognizes.
type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
		Text    string      `json:"text"`
	} `json:"choices"`
	Output []struct {
		Content string `json:"content"`
	} `json:"output"`
	Usage *struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// Generate runs one chat-completions call.
func (o *OpenRouterClient) Generate(ctx context.Context, model, content string, opts Options) (Result, error) {
	if o == nil || o.apiKey == "" {
		return Result{}, ErrUnavailable
	}

	body := chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: content}},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxOutputTokens,
	}
	payload, errMarshal := json.Marshal(body)
	if errMarshal != nil {
		return Result{}, fmt.Errorf("openrouter: marshal request: %w", errMarshal)
	}

	httpReq, errReq := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(payload))
	if errReq != nil {
		return Result{}, fmt.Errorf("openrouter: build request: %w", errReq)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, errDo := o.client.Do(httpReq)
	if errDo != nil {
		if timeoutErr := timeoutError(o.Name(), errDo); timeoutErr != nil {
			return Result{}, timeoutErr
		}
		return Result{}, &Error{Provider: o.Name(), Status: http.StatusBadGateway, Message: errDo.Error()}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, errRead := io.ReadAll(resp.Body)
	if errRead != nil {
		return Result{}, fmt.Errorf("openrouter: read response: %w", errRead)
	}

	var apiResp chatResponse
	if errDecode := json.Unmarshal(raw, &apiResp); errDecode != nil {
		if resp.StatusCode != http.StatusOK {
			return Result{}, &Error{
				Provider: o.Name(),
				Status:   normalizeStatus(resp.StatusCode, string(raw)),
				Message:  strings.TrimSpace(string(raw)),
			}
		}
		return Result{}, fmt.Errorf("openrouter: decode response: %w", errDecode)
	}

	if resp.StatusCode != http.StatusOK || apiResp.Error != nil {
		message := strings.TrimSpace(string(raw))
		if apiResp.Error != nil && apiResp.Error.Message != "" {
			message = apiResp.Error.Message
		}
		return Result{}, &Error{
			Provider: o.Name(),
			Status:   normalizeStatus(resp.StatusCode, message),
			Message:  message,
		}
	}

	// Tries known response shapes in order; an unrecognized shape yields an
	// empty string rather than an error.
	text := ""
	if len(apiResp.Choices) > 0 {
		if apiResp.Choices[0].Message.Content != "" {
			text = apiResp.Choices[0].Message.Content
		} else if apiResp.Choices[0].Text != "" {
			text = apiResp.Choices[0].Text
		}
	}
	if text == "" && len(apiResp.Output) > 0 {
		text = apiResp.Output[0].Content
	}

	var tokens int64
	if apiResp.Usage != nil {
		tokens = apiResp.Usage.TotalTokens
		if tokens == 0 {
			tokens = apiResp.Usage.PromptTokens + apiResp.Usage.CompletionTokens
		}
	}

	return Result{Text: text, TokensUsed: tokens}, nil
}
