package completion

import (
	"fmt"
	"net/http"
	"time"

	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/YoshitsuguKoike/llmhelper/internal/application/port/output"
)

// Supported provider names
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Options holds what a provider needs to be constructed
type Options struct {
	APIKey  string
	Model   string
	BaseURL string        // optional, for compatible endpoints
	Timeout time.Duration // whole-request timeout, zero means none
}

// NewGateway creates a completion gateway for the named provider
// Supported providers: openai (default), anthropic
func NewGateway(provider string, opts Options) (output.CompletionGateway, error) {
	if provider == "" {
		provider = ProviderOpenAI
	}
	httpClient := &http.Client{Timeout: opts.Timeout}

	switch provider {
	case ProviderOpenAI:
		if opts.APIKey == "" {
			return nil, fmt.Errorf("OPENAI_KEY environment variable not set for openai")
		}
		llmOpts := []openai.Option{
			openai.WithToken(opts.APIKey),
			openai.WithHTTPClient(httpClient),
		}
		if opts.Model != "" {
			llmOpts = append(llmOpts, openai.WithModel(opts.Model))
		}
		if opts.BaseURL != "" {
			llmOpts = append(llmOpts, openai.WithBaseURL(opts.BaseURL))
		}
		model, err := openai.New(llmOpts...)
		if err != nil {
			return nil, fmt.Errorf("initialize openai client: %w", err)
		}
		return NewLLMGateway(model, provider), nil

	case ProviderAnthropic:
		if opts.APIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set for anthropic")
		}
		llmOpts := []anthropic.Option{
			anthropic.WithToken(opts.APIKey),
			anthropic.WithHTTPClient(httpClient),
		}
		if opts.Model != "" {
			llmOpts = append(llmOpts, anthropic.WithModel(opts.Model))
		}
		if opts.BaseURL != "" {
			llmOpts = append(llmOpts, anthropic.WithBaseURL(opts.BaseURL))
		}
		model, err := anthropic.New(llmOpts...)
		if err != nil {
			return nil, fmt.Errorf("initialize anthropic client: %w", err)
		}
		return NewLLMGateway(model, provider), nil

	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: openai, anthropic)", provider)
	}
}

// SupportedProviders returns the provider names accepted by NewGateway
func SupportedProviders() []string {
	return []string{ProviderOpenAI, ProviderAnthropic}
}
