package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speclens/speclens/cmd/speclens/config"
	"github.com/speclens/speclens/services/detect"
)

// keylessConfig names models whose API keys are not present in the
// environment.
func keylessConfig() *config.Config {
	return &config.Config{
		LogLevel: "info",
		Models: []config.ModelConfig{
			{Name: "claude", Provider: "anthropic", Model: "claude-3-5-sonnet-20240620",
				APIKeyEnv: "SPECLENS_TEST_UNSET_KEY"},
			{Name: "gpt", Provider: "openai", Model: "gpt-4o",
				APIKeyEnv: "SPECLENS_TEST_UNSET_KEY"},
		},
	}
}

func TestBuildStrategy_KeywordNeedsNoCredentials(t *testing.T) {
	cfg = keylessConfig()

	strategy, err := buildStrategy("keyword")
	require.NoError(t, err, "keyword detection over persisted results must not construct adapters")
	assert.IsType(t, detect.KeywordStrategy{}, strategy)
}

func TestBuildStrategy_JudgeSurfacesMissingKey(t *testing.T) {
	cfg = keylessConfig()

	_, err := buildStrategy("judge")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SPECLENS_TEST_UNSET_KEY")
}

func TestBuildStrategy_UnknownName(t *testing.T) {
	cfg = keylessConfig()

	_, err := buildStrategy("vibes")
	assert.Error(t, err)
}
