package llm

import (
	"fmt"
	"strings"
	"time"
)

// Config describes one backend instance.
type Config struct {
	// Name is the logical model id used throughout artifacts ("claude",
	// "gpt", "granite", ...).
	Name string

	// Provider selects the adapter: "ollama", "anthropic", or "openai".
	Provider string

	// Model is the provider-side model identifier.
	Model string

	// BaseURL overrides the provider endpoint (required for ollama).
	BaseURL string

	// APIKeyEnv names the environment variable holding the API key.
	// Defaults per provider when empty.
	APIKeyEnv string

	// Timeout bounds a single request. Defaults to 60s.
	Timeout time.Duration

	// Params are the sampling parameters applied to every query.
	Params GenerationParams
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 60 * time.Second
	}
	return c.Timeout
}

// New selects and constructs the adapter for cfg.Provider.
func New(cfg Config) (Backend, error) {
	switch strings.ToLower(cfg.Provider) {
	case "ollama":
		return NewOllamaBackend(cfg)
	case "anthropic":
		return NewAnthropicBackend(cfg)
	case "openai":
		return NewOpenAIBackend(cfg)
	default:
		return nil, fmt.Errorf("no backend adapter for provider %q", cfg.Provider)
	}
}
