package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/adaptive-rag/internal/core/domain"
)

// LoadAdaptiveSeed reads an optional YAML file with initial adaptive
// parameters. The seed is only consulted when the config store is empty, so
// operators can ship tuned starting values without touching the database.
// An empty path means no seed.
func LoadAdaptiveSeed(path string) (*domain.AdaptiveConfig, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read adaptive seed: %w", err)
	}

	seed := domain.DefaultAdaptiveConfig()
	if err := yaml.Unmarshal(data, seed); err != nil {
		return nil, fmt.Errorf("parse adaptive seed: %w", err)
	}
	seed.Clamp()
	return seed, nil
}
