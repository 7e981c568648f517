package classify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// HuggingFace calls the hosted inference API text-generation task with an
// instruction-formatted prompt ([INST] ... [/INST]).
type HuggingFace struct {
	cfg Config
	url string
}

func NewHuggingFace(cfg Config) *HuggingFace {
	return &HuggingFace{cfg: cfg, url: strings.TrimRight(cfg.Endpoint, "/") + "/models/" + cfg.Model}
}

func (h *HuggingFace) Name() string { return ProviderHuggingFace }

type hfRequest struct {
	Inputs     string `json:"inputs"`
	Parameters struct {
		MaxNewTokens   int     `json:"max_new_tokens"`
		Temperature    float64 `json:"temperature"`
		TopP           float64 `json:"top_p"`
		ReturnFullText bool    `json:"return_full_text"`
	} `json:"parameters"`
}

type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}

func (h *HuggingFace) Complete(ctx context.Context, system, prompt string) (string, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+h.cfg.APIKey)

	req := hfRequest{Inputs: "[INST]\n" + system + "\n\n" + prompt + "\n[/INST]"}
	req.Parameters.MaxNewTokens = h.cfg.MaxTokens
	req.Parameters.Temperature = h.cfg.Temperature
	req.Parameters.TopP = 0.9

	var resp []hfGeneration
	if err := postJSON(ctx, h.cfg.HTTPClient, h.Name(), h.url, header, req, &resp); err != nil {
		return "", err
	}
	if len(resp) == 0 {
		return "", fmt.Errorf("%s: no generation returned", h.Name())
	}
	return resp[0].GeneratedText, nil
}
