package classify

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hazyhaar/clarity/observability"
)

// Provider names accepted in Config.Provider.
const (
	ProviderOpenAI      = "openai"
	ProviderAnthropic   = "anthropic"
	ProviderGemini      = "gemini"
	ProviderHuggingFace = "huggingface"
	ProviderKeyword     = "keyword"
)

// Config configures a provider and the Client wrapping it.
type Config struct {
	// Provider selects the backend: openai, anthropic, gemini, huggingface
	// or keyword. Default: anthropic.
	Provider string `json:"provider" yaml:"provider"`

	// Model is the model identifier sent to the provider. Each provider has
	// its own default.
	Model string `json:"model" yaml:"model"`

	// Endpoint is the provider base URL. Each provider has its own default;
	// set it to target a compatible server (vLLM, Ollama, a proxy).
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// APIKey is the provider credential.
	APIKey string `json:"-" yaml:"api_key"`

	// AllowPrivateEndpoint permits loopback and private Endpoint addresses.
	AllowPrivateEndpoint bool `json:"allow_private_endpoint" yaml:"allow_private_endpoint"`

	Temperature float64 `json:"temperature" yaml:"temperature"` // default 0.2
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`   // default 512

	// Timeout bounds a single provider call. Default: 60s.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// MaxInFlight bounds outstanding provider calls across all requests
	// sharing the Client. Default: 8.
	MaxInFlight int `json:"max_in_flight" yaml:"max_in_flight"`

	// MaxAttempts is the total number of tries per clause, first call
	// included. Default: 3.
	MaxAttempts int           `json:"max_attempts" yaml:"max_attempts"`
	BaseDelay   time.Duration `json:"base_delay" yaml:"base_delay"` // default 500ms
	MaxDelay    time.Duration `json:"max_delay" yaml:"max_delay"`   // default 8s

	// BreakerThreshold consecutive failures open the circuit for
	// BreakerReset, after which BreakerHalfOpenMax trial calls are let
	// through. Defaults: 5, 30s and 1.
	BreakerThreshold   int           `json:"breaker_threshold" yaml:"breaker_threshold"`
	BreakerReset       time.Duration `json:"breaker_reset" yaml:"breaker_reset"`
	BreakerHalfOpenMax int           `json:"breaker_half_open_max" yaml:"breaker_half_open_max"`

	HTTPClient *http.Client           `json:"-" yaml:"-"`
	Recorder   observability.Recorder `json:"-" yaml:"-"`
	Logger     *slog.Logger           `json:"-" yaml:"-"`
}

var defaultModels = map[string]string{
	ProviderOpenAI:      "gpt-4o-mini",
	ProviderAnthropic:   "claude-sonnet-4-20250514",
	ProviderGemini:      "gemini-1.5-flash",
	ProviderHuggingFace: "mistralai/Mistral-7B-Instruct-v0.2",
}

var defaultEndpoints = map[string]string{
	ProviderOpenAI:      "https://api.openai.com",
	ProviderAnthropic:   "https://api.anthropic.com",
	ProviderGemini:      "https://generativelanguage.googleapis.com",
	ProviderHuggingFace: "https://api-inference.huggingface.co",
}

func (c *Config) defaults() {
	if c.Provider == "" {
		c.Provider = ProviderAnthropic
	}
	if c.Model == "" {
		c.Model = defaultModels[c.Provider]
	}
	if c.Endpoint == "" {
		c.Endpoint = defaultEndpoints[c.Provider]
	}
	if c.Temperature <= 0 {
		c.Temperature = 0.2
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 512
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = 8
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 500 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 8 * time.Second
	}
	if c.BreakerThreshold <= 0 {
		c.BreakerThreshold = 5
	}
	if c.BreakerReset <= 0 {
		c.BreakerReset = 30 * time.Second
	}
	if c.BreakerHalfOpenMax <= 0 {
		c.BreakerHalfOpenMax = 1
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	if c.Recorder == nil {
		c.Recorder = observability.Nop{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
