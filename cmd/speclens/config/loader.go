package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// defaultYAML is written on first run so a new user has a working file
// to edit instead of an error.
const defaultYAML = `# speclens configuration
log_level: info
# log_dir: ~/.speclens/logs
# cache_dir: ~/.speclens/cache

# Models queried during a run. At least two are needed for comparison.
models:
  - name: granite
    provider: ollama
    base_url: http://localhost:11434
    model: granite3.3:8b
  - name: qwen
    provider: ollama
    base_url: http://localhost:11434
    model: qwen3:8b

# Judge model for --strategy judge. Leave empty to reuse the first model.
judge: ""
`

var validate = validator.New()

// Load reads, parses, and validates the config at path. A missing file
// is created with defaults first, then loaded.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if werr := os.WriteFile(path, []byte(defaultYAML), 0644); werr != nil {
			return nil, fmt.Errorf("writing default config %s: %w", path, werr)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	names := make(map[string]struct{}, len(cfg.Models))
	for _, m := range cfg.Models {
		if _, dup := names[m.Name]; dup {
			return nil, fmt.Errorf("invalid config %s: duplicate model name %q", path, m.Name)
		}
		names[m.Name] = struct{}{}
	}
	if cfg.Judge != "" {
		if _, ok := names[cfg.Judge]; !ok {
			return nil, fmt.Errorf("invalid config %s: judge %q is not a configured model", path, cfg.Judge)
		}
	}

	return &cfg, nil
}
