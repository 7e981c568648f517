package classify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// OpenAI talks to an OpenAI-compatible /v1/chat/completions endpoint:
// OpenAI itself, vLLM, Ollama or any gateway speaking the same format.
type OpenAI struct {
	cfg Config
	url string
}

// NewOpenAI returns an OpenAI-compatible completer. cfg is expected to
// have gone through defaults (see NewProvider).
func NewOpenAI(cfg Config) *OpenAI {
	return &OpenAI{cfg: cfg, url: strings.TrimRight(cfg.Endpoint, "/") + "/v1/chat/completions"}
}

func (o *OpenAI) Name() string { return ProviderOpenAI }

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
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends the system and user prompts and returns the first choice.
func (o *OpenAI) Complete(ctx context.Context, system, prompt string) (string, error) {
	header := http.Header{}
	if o.cfg.APIKey != "" {
		header.Set("Authorization", "Bearer "+o.cfg.APIKey)
	}
	var resp chatResponse
	err := postJSON(ctx, o.cfg.HTTPClient, o.Name(), o.url, header, chatRequest{
		Model: o.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Temperature: o.cfg.Temperature,
		MaxTokens:   o.cfg.MaxTokens,
	}, &resp)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: no choices returned", o.Name())
	}
	return resp.Choices[0].Message.Content, nil
}
