package engine

import (
	"fmt"
	"net/http"
	"time"

	"github.com/kalambet/docqa/internal/openai"
)

// Supported providers.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// DetectConfig holds parameters for backend selection.
type DetectConfig struct {
	Provider        string
	OllamaBaseURL   string
	OpenAIBaseURL   string
	OpenAIAPIKey    string
	EmbedDimensions int
	RateLimit       float64
	RequestTimeout  time.Duration
}

// Detect builds the engine for the configured provider.
func Detect(cfg DetectConfig) (Engine, error) {
	switch cfg.Provider {
	case ProviderOpenAI, "":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("provider %s requires an API key", ProviderOpenAI)
		}
		opts := []openai.Option{
			openai.WithBaseURL(cfg.OpenAIBaseURL),
			openai.WithDimensions(cfg.EmbedDimensions),
			openai.WithRateLimit(cfg.RateLimit, 1),
		}
		if cfg.RequestTimeout > 0 {
			opts = append(opts, openai.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}))
		}
		return NewOpenAIEngine(openai.New(cfg.OpenAIAPIKey, opts...)), nil
	case ProviderOllama:
		return NewOllamaEngine(cfg.OllamaBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown engine provider %q", cfg.Provider)
	}
}
