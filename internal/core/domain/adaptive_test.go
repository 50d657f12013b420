package domain

import (
	"math"
	"testing"
)

func TestConfidenceWeightsNormalizeSumsToOne(t *testing.T) {
	w := ConfidenceWeights{RetrievalEval: 0.9, AnswerQuality: 0.3}.Normalize()
	if math.Abs(w.Sum()-1.0) > WeightTolerance {
		t.Fatalf("expected sum 1.0, got %g", w.Sum())
	}
}

func TestConfidenceWeightsNormalizeDegeneratePairFallsBackToEvenSplit(t *testing.T) {
	w := ConfidenceWeights{RetrievalEval: -1, AnswerQuality: 0}.Normalize()
	if w.RetrievalEval != 0.5 || w.AnswerQuality != 0.5 {
		t.Fatalf("expected even split, got %+v", w)
	}
}

func TestJudgeWeightsNormalizeDegenerateTripleFallsBackToThirds(t *testing.T) {
	w := JudgeWeights{}.Normalize()
	if math.Abs(w.Sum()-1.0) > WeightTolerance {
		t.Fatalf("expected sum 1.0, got %g", w.Sum())
	}
	if math.Abs(w.Relevance-1.0/3.0) > WeightTolerance {
		t.Fatalf("expected 1/3 relevance, got %g", w.Relevance)
	}
}

func TestAdaptiveConfigClampRestoresBounds(t *testing.T) {
	cfg := DefaultAdaptiveConfig()
	cfg.WebSearchThreshold = 1.4
	cfg.JudgeFloor = 14
	cfg.BatchSize = 0
	cfg.MinSamples = -3
	cfg.ConfidenceWeights = ConfidenceWeights{RetrievalEval: 2, AnswerQuality: 2}
	cfg.Clamp()

	if cfg.WebSearchThreshold != MaxWebSearchThreshold {
		t.Fatalf("expected threshold clamped to %g, got %g", float64(MaxWebSearchThreshold), cfg.WebSearchThreshold)
	}
	if cfg.JudgeFloor != MaxJudgeFloor {
		t.Fatalf("expected judge floor clamped to %d, got %d", MaxJudgeFloor, cfg.JudgeFloor)
	}
	if cfg.BatchSize != 1 || cfg.MinSamples != 1 {
		t.Fatalf("expected batch_size/min_samples floored at 1, got %d/%d", cfg.BatchSize, cfg.MinSamples)
	}
	if math.Abs(cfg.ConfidenceWeights.Sum()-1.0) > WeightTolerance {
		t.Fatalf("expected confidence weights renormalized, got sum %g", cfg.ConfidenceWeights.Sum())
	}
}

func TestAdaptiveConfigCloneIsDeep(t *testing.T) {
	cfg := DefaultAdaptiveConfig()
	cfg.History = append(cfg.History, PerformanceSnapshot{TotalFeedback: 5, PositiveRate: 0.8})

	clone := cfg.Clone()
	clone.History[0].PositiveRate = 0.1
	clone.WebSearchThreshold = 0.5

	if cfg.History[0].PositiveRate != 0.8 {
		t.Fatalf("clone mutated original history")
	}
	if cfg.WebSearchThreshold != 0.7 {
		t.Fatalf("clone mutated original threshold")
	}
}

func TestFeedbackEventValidate(t *testing.T) {
	valid := FeedbackEvent{
		ResponseID:   "resp-1",
		FeedbackType: FeedbackPositive,
		Confidence:   0.8,
		JudgeScore:   JudgeScore{Relevance: 9, Factuality: 8, Completeness: 7},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	cases := map[string]FeedbackEvent{
		"missing response id": {FeedbackType: FeedbackPositive, Confidence: 0.5},
		"unknown type":        {ResponseID: "r", FeedbackType: "meh", Confidence: 0.5},
		"confidence too high": {ResponseID: "r", FeedbackType: FeedbackNegative, Confidence: 1.5},
		"judge out of range": {
			ResponseID: "r", FeedbackType: FeedbackNegative, Confidence: 0.5,
			JudgeScore: JudgeScore{Relevance: 11},
		},
	}
	for name, ev := range cases {
		if err := ev.Validate(); !IsKind(err, ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", name, err)
		}
	}
}
