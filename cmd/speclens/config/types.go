// Package config loads and validates the speclens configuration file.
package config

import (
	"time"

	"github.com/speclens/speclens/services/llm"
)

// Config is the top-level config.yaml shape.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`

	// LogDir enables file logging when set.
	LogDir string `yaml:"log_dir"`

	// LogJSON switches file logs to JSON lines.
	LogJSON bool `yaml:"log_json"`

	// CacheDir enables the local response cache when set.
	CacheDir string `yaml:"cache_dir"`

	// Judge names the model (from Models) the judge strategy uses. The
	// judge should not be one of the models under test.
	Judge string `yaml:"judge"`

	// Models are the backends queried during a run.
	Models []ModelConfig `yaml:"models" validate:"required,min=2,dive"`
}

// ModelConfig configures one backend.
type ModelConfig struct {
	Name           string   `yaml:"name" validate:"required"`
	Provider       string   `yaml:"provider" validate:"required,oneof=ollama anthropic openai"`
	Model          string   `yaml:"model"`
	BaseURL        string   `yaml:"base_url" validate:"omitempty,url"`
	APIKeyEnv      string   `yaml:"api_key_env"`
	TimeoutSeconds int      `yaml:"timeout_seconds" validate:"omitempty,min=1"`
	Temperature    *float32 `yaml:"temperature" validate:"omitempty"`
	TopK           *int     `yaml:"top_k"`
	TopP           *float32 `yaml:"top_p"`
	MaxTokens      *int     `yaml:"max_tokens"`
}

// Backend converts the YAML shape into the adapter config.
func (m ModelConfig) Backend() llm.Config {
	return llm.Config{
		Name:      m.Name,
		Provider:  m.Provider,
		Model:     m.Model,
		BaseURL:   m.BaseURL,
		APIKeyEnv: m.APIKeyEnv,
		Timeout:   time.Duration(m.TimeoutSeconds) * time.Second,
		Params: llm.GenerationParams{
			Temperature: m.Temperature,
			TopK:        m.TopK,
			TopP:        m.TopP,
			MaxTokens:   m.MaxTokens,
		},
	}
}
