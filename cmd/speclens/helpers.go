package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/speclens/speclens/services/artifact"
	"github.com/speclens/speclens/services/detect"
	"github.com/speclens/speclens/services/document"
	"github.com/speclens/speclens/services/llm"
	"github.com/speclens/speclens/services/runner"
)

// buildBackends constructs the adapters for every configured model.
func buildBackends() ([]llm.Backend, error) {
	backends := make([]llm.Backend, 0, len(cfg.Models))
	for _, m := range cfg.Models {
		b, err := llm.New(m.Backend())
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", m.Name, err)
		}
		backends = append(backends, b)
	}
	return backends, nil
}

// buildStrategy resolves --strategy. Only the judge strategy constructs
// a model adapter; keyword detection over persisted results must work
// with no credentials at all.
func buildStrategy(name string) (detect.Strategy, error) {
	switch name {
	case "keyword":
		return detect.KeywordStrategy{}, nil
	case "judge":
		judgeName := cfg.Judge
		if judgeName == "" && len(cfg.Models) > 0 {
			judgeName = cfg.Models[0].Name
		}
		for _, m := range cfg.Models {
			if m.Name != judgeName {
				continue
			}
			judge, err := llm.New(m.Backend())
			if err != nil {
				return nil, fmt.Errorf("judge model %s: %w", judgeName, err)
			}
			return detect.JudgeStrategy{Judge: judge}, nil
		}
		return nil, fmt.Errorf("judge model %q not found among configured models", judgeName)
	default:
		return nil, fmt.Errorf("unknown strategy %q (want keyword or judge)", name)
	}
}

// openCache opens the response cache when configured. Returns nil (cache
// disabled) when cache_dir is unset.
func openCache() (*runner.Cache, error) {
	dir := cfg.CacheDir
	if dir == "" {
		return nil, nil
	}
	if strings.HasPrefix(dir, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("expanding cache_dir: %w", err)
		}
		dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
	}
	return runner.OpenCache(dir)
}

// loadSections reads and validates the sections artifact from a run
// directory.
func loadSections(dir string) ([]document.Section, *artifact.Envelope, error) {
	store := artifact.NewStore(dir)
	var sections []document.Section
	env, err := store.Read(artifact.StageSections, &sections)
	if err != nil {
		return nil, nil, fmt.Errorf("loading sections from %s: %w", dir, err)
	}
	return sections, env, nil
}

// sessionSeedFromSections rebuilds the session seed when only the
// sections artifact is available.
func sessionSeedFromSections(sections []document.Section) string {
	var doc strings.Builder
	for _, sec := range sections {
		doc.WriteString(sec.RawText)
		doc.WriteString("\n\n")
	}
	return runner.SessionSeed(doc.String())
}
