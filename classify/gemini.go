package classify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Gemini talks to the generateContent endpoint of the Generative Language
// API. The key travels in the x-goog-api-key header, never in the URL.
type Gemini struct {
	cfg Config
	url string
}

func NewGemini(cfg Config) *Gemini {
	return &Gemini{
		cfg: cfg,
		url: fmt.Sprintf("%s/v1beta/models/%s:generateContent",
			strings.TrimRight(cfg.Endpoint, "/"), url.PathEscape(cfg.Model)),
	}
}

func (g *Gemini) Name() string { return ProviderGemini }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (g *Gemini) Complete(ctx context.Context, system, prompt string) (string, error) {
	header := http.Header{}
	header.Set("x-goog-api-key", g.cfg.APIKey)

	req := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: system}}},
		Contents:          []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	}
	req.GenerationConfig.Temperature = g.cfg.Temperature
	req.GenerationConfig.MaxOutputTokens = g.cfg.MaxTokens

	var resp geminiResponse
	if err := postJSON(ctx, g.cfg.HTTPClient, g.Name(), g.url, header, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%s: no candidates returned", g.Name())
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}
