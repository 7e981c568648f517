package classify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const anthropicVersion = "2023-06-01"

// Anthropic talks to the Messages API.
type Anthropic struct {
	cfg Config
	url string
}

func NewAnthropic(cfg Config) *Anthropic {
	return &Anthropic{cfg: cfg, url: strings.TrimRight(cfg.Endpoint, "/") + "/v1/messages"}
}

func (a *Anthropic) Name() string { return ProviderAnthropic }

type messagesRequest struct {
	Model       string        `json:"model"`
	System      string        `json:"system,omitempty"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (a *Anthropic) Complete(ctx context.Context, system, prompt string) (string, error) {
	header := http.Header{}
	header.Set("x-api-key", a.cfg.APIKey)
	header.Set("anthropic-version", anthropicVersion)

	var resp messagesResponse
	err := postJSON(ctx, a.cfg.HTTPClient, a.Name(), a.url, header, messagesRequest{
		Model:       a.cfg.Model,
		System:      system,
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: a.cfg.Temperature,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
	}, &resp)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" {
			sb.WriteString(c.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%s: empty response", a.Name())
	}
	return sb.String(), nil
}
