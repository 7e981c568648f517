// CLAUDE:SUMMARY Clause severity classification: provider clients (openai, anthropic, gemini, huggingface, keyword) behind a bounded, retrying, circuit-broken Client.
// Package classify assigns a severity tier to each clause by asking a
// hosted language model.
//
// A provider is wrapped by a Client that owns the process-wide limits:
//
//	c, err := classify.New(classify.Config{Provider: "anthropic", APIKey: key})
//	res, err := c.Classify(ctx, clause)
//	// errors.Is(err, classify.ErrUnrecognizedClassification): model answer unusable
//	// errors.Is(err, classify.ErrClassificationFailed): retries exhausted
//
// Build one Client at startup and share it; it is safe for concurrent use.
package classify

import (
	"context"
	"fmt"

	"github.com/hazyhaar/clarity/horosafe"
	"github.com/hazyhaar/clarity/segment"
)

// Classifier assigns a severity to one clause.
type Classifier interface {
	Classify(ctx context.Context, c segment.Clause) (Result, error)
	Name() string
}

// NewProvider builds the bare provider named by cfg.Provider, without
// retries or limits.
func NewProvider(cfg Config) (Classifier, error) {
	cfg.defaults()
	if cfg.Provider == ProviderKeyword {
		return Keyword{}, nil
	}
	if _, ok := defaultEndpoints[cfg.Provider]; !ok {
		return nil, fmt.Errorf("classify: unknown provider %q", cfg.Provider)
	}
	if err := horosafe.ValidateEndpoint(cfg.Endpoint, cfg.AllowPrivateEndpoint); err != nil {
		return nil, fmt.Errorf("classify: %s endpoint: %w", cfg.Provider, err)
	}
	if cfg.APIKey == "" && cfg.Endpoint == defaultEndpoints[cfg.Provider] {
		return nil, fmt.Errorf("classify: %s requires an API key", cfg.Provider)
	}

	switch cfg.Provider {
	case ProviderOpenAI:
		return NewLLM(NewOpenAI(cfg)), nil
	case ProviderAnthropic:
		return NewLLM(NewAnthropic(cfg)), nil
	case ProviderGemini:
		return NewLLM(NewGemini(cfg)), nil
	default:
		return NewLLM(NewHuggingFace(cfg)), nil
	}
}

// New builds the configured provider and wraps it in a Client.
func New(cfg Config) (*Client, error) {
	cfg.defaults()
	p, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return Wrap(p, cfg), nil
}
