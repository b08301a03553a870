package oracle

import (
	"context"
	"fmt"
)

// Image is one page image attached to a request.
type Image struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Request describes one model call. JSONMode asks the provider to constrain
// output to a JSON object; the caller still never assumes the result parses.
type Request struct {
	System      string
	Prompt      string
	Images      []Image
	JSONMode    bool
	Temperature float32
	MaxTokens   int
	Tier        Tier
}

// Response carries the raw model text plus token usage where the provider
// reports it (zero otherwise). Callers use CompletionTokens to warn when a
// response ran close to its budget and is likely truncated.
type Response struct {
	Text             string
	CompletionTokens int
}

// Client is an abstraction over model providers
type Client interface {
	// Complete performs one blocking model call and returns the raw text.
	Complete(ctx context.Context, req Request) (Response, error)
	// Close releases any resources held by the client
	Close() error
}

// NewClient creates a new model client based on configuration
func NewClient(ctx context.Context, config *Config, apiKey string) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Provider {
	case ProviderOpenAI:
		return NewOpenAIClient(config, apiKey)
	case ProviderGemini:
		return NewGeminiClient(ctx, config, apiKey)
	default:
		return nil, fmt.Errorf("unknown provider %q", config.Provider)
	}
}

// nearBudgetRatio is the completion-token fraction above which a response is
// treated as possibly truncated.
const nearBudgetRatio = 0.99

// NearTokenBudget reports whether a response consumed almost all of the
// request's token budget.
func NearTokenBudget(req Request, resp Response) bool {
	if req.MaxTokens <= 0 || resp.CompletionTokens <= 0 {
		return false
	}
	return float64(resp.CompletionTokens) >= float64(req.MaxTokens)*nearBudgetRatio
}
