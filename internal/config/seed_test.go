package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAdaptiveSeedEmptyPath(t *testing.T) {
	seed, err := LoadAdaptiveSeed("")
	if err != nil || seed != nil {
		t.Fatalf("LoadAdaptiveSeed(\"\") = %v, %v", seed, err)
	}
}

func TestLoadAdaptiveSeedOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	content := `
web_search_threshold: 0.8
judge_floor: 6
learning_rate: 0.05
confidence_weights:
  retrieval_eval: 0.6
  answer_quality: 0.4
judge_weights:
  relevance: 0.5
  factuality: 0.3
  completeness: 0.2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	seed, err := LoadAdaptiveSeed(path)
	if err != nil {
		t.Fatalf("LoadAdaptiveSeed: %v", err)
	}
	if seed.WebSearchThreshold != 0.8 || seed.JudgeFloor != 6 || seed.LearningRate != 0.05 {
		t.Fatalf("seed = %+v", seed)
	}
	if seed.ConfidenceWeights.RetrievalEval != 0.6 {
		t.Fatalf("confidence weights = %+v", seed.ConfidenceWeights)
	}
	if seed.JudgeWeights.Relevance != 0.5 {
		t.Fatalf("judge weights = %+v", seed.JudgeWeights)
	}
	// Fields absent from the file keep their defaults.
	if seed.BatchSize != 5 || seed.MinSamples != 5 {
		t.Fatalf("defaults lost: %+v", seed)
	}
}

func TestLoadAdaptiveSeedClampsOutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte("web_search_threshold: 0.99\njudge_floor: 15\n"), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	seed, err := LoadAdaptiveSeed(path)
	if err != nil {
		t.Fatalf("LoadAdaptiveSeed: %v", err)
	}
	if seed.WebSearchThreshold != 0.9 {
		t.Fatalf("threshold = %g, want clamped to 0.9", seed.WebSearchThreshold)
	}
	if seed.JudgeFloor != 10 {
		t.Fatalf("judge floor = %d, want clamped to 10", seed.JudgeFloor)
	}
}

func TestLoadAdaptiveSeedMissingFile(t *testing.T) {
	if _, err := LoadAdaptiveSeed(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing seed file")
	}
}
