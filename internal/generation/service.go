// Package generation orchestrates prompt construction, primary/fallback
// provider dispatch, and result shaping for the AI writing features.
package generation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rohit-patil-code/AI-Blog-Editor/internal/apperrors"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/provider"
	log "github.com/sirupsen/logrus"
)

// Input bounds enforced before any provider call.
const (
	minPromptChars  = 10
	maxPromptChars  = 2000
	minTextChars    = 1
	maxTextChars    = 5000
	minContentChars = 10
	maxContentChars = 10000
	minTitleCount   = 1
	maxTitleCount   = 10
)

// Fixed generation constants.
const (
	// defaultCreativity is the temperature used when the caller omits one.
	defaultCreativity = 0.7
	// enhanceTemperature is the fixed temperature for enhancement calls.
	enhanceTemperature = 0.7
	// enhanceMaxTokens is the fixed output ceiling for enhancement calls.
	enhanceMaxTokens = 900
	// grammarMinTokens / grammarMaxTokens clamp the grammar output ceiling
	// derived from input length (half the character count).
	grammarMinTokens = 300
	grammarMaxTokens = 1200
	// titleMaxTokens bounds title list output.
	titleMaxTokens = 300
	// titleTemperature keeps title suggestions varied.
	titleTemperature = 0.8
)

// Target pairs a provider client with the model it should serve.
type Target struct {
	Client provider.Client
	Model  string
}

// configured reports whether the target can serve calls.
func (t Target) configured() bool {
	return t.Client != nil && strings.TrimSpace(t.Model) != ""
}

// Output is the result of a single-text generation operation.
type Output struct {
	Text       string    // Generated text.
	TokensUsed int64     // Token cost, 0 when unreported.
	Provider   string    // Serving provider name.
	Model      string    // Serving model.
	Timestamp  time.Time // Completion time, UTC.
}

// TitlesOutput is the result of a title-suggestion operation.
type TitlesOutput struct {
	Titles     []string
	TokensUsed int64
	Provider   string
	Model      string
	Timestamp  time.Time
}

// ContentParams carries optional parameters for GenerateContent.
type ContentParams struct {
	Tone       string   // professional/casual/technical/creative; default professional.
	Length     string   // short/medium/long; default medium.
	Creativity *float64 // Temperature in [0,1]; default 0.7.
}

// Service is the generation facade. Calls go to the primary target first
// and are retried exactly once against the fallback target on any failure.
type Service struct {
	primary  Target
	fallback Target
	timeout  time.Duration
}

// NewService constructs a Service. The per-attempt timeout defaults to the
// provider package default when zero.
func NewService(primary, fallback Target, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = provider.DefaultTimeout
	}
	return &Service{primary: primary, fallback: fallback, timeout: timeout}
}

// GenerateContent writes a blog post from a prompt.
func (s *Service) GenerateContent(ctx context.Context, prompt string, params ContentParams) (*Output, error) {
	prompt = strings.TrimSpace(prompt)
	if len(prompt) < minPromptChars || len(prompt) > maxPromptChars {
		return nil, apperrors.Validation("prompt must be between 10 and 2000 characters")
	}

	tone := params.Tone
	if tone == "" {
		tone = ToneProfessional
	}
	if _, ok := toneDirectives[tone]; !ok {
		return nil, apperrors.Validation("unknown tone: " + tone)
	}

	length := params.Length
	if length == "" {
		length = LengthMedium
	}
	spec, ok := lengthSpecs[length]
	if !ok {
		return nil, apperrors.Validation("unknown length: " + length)
	}

	creativity := defaultCreativity
	if params.Creativity != nil {
		if *params.Creativity < 0 || *params.Creativity > 1 {
			return nil, apperrors.Validation("creativity must be between 0 and 1")
		}
		creativity = *params.Creativity
	}

	content := buildContentPrompt(prompt, tone, length)
	opts := provider.Options{Temperature: creativity, MaxOutputTokens: spec.maxTokens}

	result, target, err := s.invoke(ctx, content, opts)
	if err != nil {
		return nil, err
	}
	return outputFrom(result, target), nil
}

// CorrectGrammar returns the corrected text verbatim. Empty or
// whitespace-only input short-circuits with a zero-cost empty result and no
// provider call.
func (s *Service) CorrectGrammar(ctx context.Context, text string) (*Output, error) {
	if len(text) > maxTextChars {
		return nil, apperrors.Validation("text must be at most 5000 characters")
	}
	if strings.TrimSpace(text) == "" {
		return &Output{Text: "", TokensUsed: 0, Timestamp: time.Now().UTC()}, nil
	}

	maxTokens := len(text) / 2
	if maxTokens < grammarMinTokens {
		maxTokens = grammarMinTokens
	}
	if maxTokens > grammarMaxTokens {
		maxTokens = grammarMaxTokens
	}

	opts := provider.Options{Temperature: 0, MaxOutputTokens: maxTokens}
	result, target, err := s.invoke(ctx, buildGrammarPrompt(text), opts)
	if err != nil {
		return nil, err
	}
	return outputFrom(result, target), nil
}

// EnhanceContent rewrites text per the given enhancement subtype.
func (s *Service) EnhanceContent(ctx context.Context, text, enhanceType string) (*Output, error) {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < minTextChars || len(text) > maxTextChars {
		return nil, apperrors.Validation("text must be between 1 and 5000 characters")
	}
	if _, ok := enhanceInstructions[enhanceType]; !ok {
		return nil, apperrors.Validation("unknown enhancement type: " + enhanceType)
	}

	opts := provider.Options{Temperature: enhanceTemperature, MaxOutputTokens: enhanceMaxTokens}
	result, target, err := s.invoke(ctx, buildEnhancePrompt(text, enhanceType), opts)
	if err != nil {
		return nil, err
	}
	return outputFrom(result, target), nil
}

// GenerateTitles suggests count titles for the given content. The provider
// response is split on newlines, trimmed, emptied lines dropped, and the
// list truncated to count.
func (s *Service) GenerateTitles(ctx context.Context, content string, count int) (*TitlesOutput, error) {
	content = strings.TrimSpace(content)
	if len(content) < minContentChars || len(content) > maxContentChars {
		return nil, apperrors.Validation("content must be between 10 and 10000 characters")
	}
	if count < minTitleCount || count > maxTitleCount {
		return nil, apperrors.Validation("count must be between 1 and 10")
	}

	opts := provider.Options{Temperature: titleTemperature, MaxOutputTokens: titleMaxTokens}
	result, target, err := s.invoke(ctx, buildTitlesPrompt(content, count), opts)
	if err != nil {
		return nil, err
	}

	titles := splitTitles(result.Text, count)
	return &TitlesOutput{
		Titles:     titles,
		TokensUsed: result.TokensUsed,
		Provider:   target.Client.Name(),
		Model:      target.Model,
		Timestamp:  time.Now().UTC(),
	}, nil
}

// invoke dispatches to the primary target, then once to the fallback with
// identical parameters on any failure. Exactly one error surfaces when both
// fail. Attempts are strictly sequential.
func (s *Service) invoke(ctx context.Context, content string, opts provider.Options) (provider.Result, Target, error) {
	primaryResult, errPrimary := s.call(ctx, s.primary, content, opts)
	if errPrimary == nil {
		return primaryResult, s.primary, nil
	}

	log.WithError(errPrimary).WithFields(log.Fields{
		"model":    s.primary.Model,
		"fallback": s.fallback.Model,
	}).Warn("primary generation attempt failed")

	fallbackResult, errFallback := s.call(ctx, s.fallback, content, opts)
	if errFallback == nil {
		return fallbackResult, s.fallback, nil
	}

	if errors.Is(errPrimary, provider.ErrUnavailable) && errors.Is(errFallback, provider.ErrUnavailable) {
		return provider.Result{}, Target{}, apperrors.ProviderUnavailable(errFallback)
	}
	return provider.Result{}, Target{}, apperrors.GenerationFailed(errFallback)
}

// call runs one attempt against a target under the per-attempt timeout.
func (s *Service) call(ctx context.Context, target Target, content string, opts provider.Options) (provider.Result, error) {
	if !target.configured() {
		return provider.Result{}, provider.ErrUnavailable
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return target.Client.Generate(callCtx, target.Model, content, opts)
}

// outputFrom shapes a provider result into the facade output.
func outputFrom(result provider.Result, target Target) *Output {
	return &Output{
		Text:       result.Text,
		TokensUsed: result.TokensUsed,
		Provider:   target.Client.Name(),
		Model:      target.Model,
		Timestamp:  time.Now().UTC(),
	}
}

// splitTitles normalizes a newline-delimited title list.
func splitTitles(raw string, count int) []string {
	lines := strings.Split(raw, "\n")
	titles := make([]string, 0, count)
	for _, line := range lines {
		title := strings.TrimSpace(line)
		if title == "" {
			continue
		}
		titles = append(titles, title)
		if len(titles) == count {
			break
		}
	}
	return titles
}
