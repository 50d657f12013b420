package domain

import "time"

// WeightTolerance is the accepted deviation from 1.0 for a weight group sum.
const WeightTolerance = 1e-9

// Bounds for the adaptive scalars. Computed values outside a bound are
// clamped, never rejected.
const (
	MinWebSearchThreshold = 0.5
	MaxWebSearchThreshold = 0.9
	MinJudgeFloor         = 0
	MaxJudgeFloor         = 10
)

// ConfidenceWeights splits final confidence between retrieval adequacy and
// answer quality. Invariant: the pair sums to 1.0 within WeightTolerance.
type ConfidenceWeights struct {
	RetrievalEval float64 `json:"retrieval_eval" yaml:"retrieval_eval"`
	AnswerQuality float64 `json:"answer_quality" yaml:"answer_quality"`
}

func (w ConfidenceWeights) Sum() float64 {
	return w.RetrievalEval + w.AnswerQuality
}

// Normalize clamps each weight into [0,1] and rescales the pair to sum to 1.
// A degenerate pair falls back to an even split.
func (w ConfidenceWeights) Normalize() ConfidenceWeights {
	out := ConfidenceWeights{
		RetrievalEval: clampFloat(w.RetrievalEval, 0, 1),
		AnswerQuality: clampFloat(w.AnswerQuality, 0, 1),
	}
	total := out.Sum()
	if total <= 0 {
		return ConfidenceWeights{RetrievalEval: 0.5, AnswerQuality: 0.5}
	}
	out.RetrievalEval /= total
	out.AnswerQuality /= total
	return out
}

// JudgeWeights weighs the three judge dimensions into one overall score.
// Invariant: the triple sums to 1.0 within WeightTolerance.
type JudgeWeights struct {
	Relevance    float64 `json:"relevance" yaml:"relevance"`
	Factuality   float64 `json:"factuality" yaml:"factuality"`
	Completeness float64 `json:"completeness" yaml:"completeness"`
}

func (w JudgeWeights) Sum() float64 {
	return w.Relevance + w.Factuality + w.Completeness
}

func (w JudgeWeights) Normalize() JudgeWeights {
	out := JudgeWeights{
		Relevance:    clampFloat(w.Relevance, 0, 1),
		Factuality:   clampFloat(w.Factuality, 0, 1),
		Completeness: clampFloat(w.Completeness, 0, 1),
	}
	total := out.Sum()
	if total <= 0 {
		third := 1.0 / 3.0
		return JudgeWeights{Relevance: third, Factuality: third, Completeness: third}
	}
	out.Relevance /= total
	out.Factuality /= total
	out.Completeness /= total
	return out
}

// PerformanceSnapshot is appended by the learner after each applied update.
// Snapshots are never edited afterwards.
type PerformanceSnapshot struct {
	Timestamp         time.Time `json:"timestamp"`
	TotalFeedback     int       `json:"total_feedback"`
	PositiveRate      float64   `json:"positive_rate"`
	AverageConfidence float64   `json:"average_confidence"`
	WebSearchUsage    float64   `json:"web_search_usage"`
}

// AdaptiveConfig is the versioned, bounded set of thresholds and weights
// consumed by the adequacy gate and the aggregators, updated only by the
// online learner. Readers always see a complete, internally consistent
// version published via atomic pointer swap.
type AdaptiveConfig struct {
	Version            int64                 `json:"version"`
	UpdatedAt          time.Time             `json:"updated_at"`
	WebSearchThreshold float64               `json:"web_search_threshold" yaml:"web_search_threshold"`
	JudgeFloor         int                   `json:"judge_floor" yaml:"judge_floor"`
	ConfidenceWeights  ConfidenceWeights     `json:"confidence_weights" yaml:"confidence_weights"`
	JudgeWeights       JudgeWeights          `json:"judge_weights" yaml:"judge_weights"`
	LearningRate       float64               `json:"learning_rate" yaml:"learning_rate"`
	BatchSize          int                   `json:"batch_size" yaml:"batch_size"`
	MinSamples         int                   `json:"min_samples" yaml:"min_samples"`
	History            []PerformanceSnapshot `json:"history"`
}

func DefaultAdaptiveConfig() *AdaptiveConfig {
	return &AdaptiveConfig{
		Version:            1,
		WebSearchThreshold: 0.7,
		JudgeFloor:         5,
		ConfidenceWeights:  ConfidenceWeights{RetrievalEval: 0.5, AnswerQuality: 0.5},
		JudgeWeights:       JudgeWeights{Relevance: 0.4, Factuality: 0.4, Completeness: 0.2},
		LearningRate:       0.1,
		BatchSize:          5,
		MinSamples:         5,
		History:            []PerformanceSnapshot{},
	}
}

// Clone deep-copies the config so a writer can mutate a working copy while
// readers keep the published snapshot.
func (c *AdaptiveConfig) Clone() *AdaptiveConfig {
	out := *c
	out.History = make([]PerformanceSnapshot, len(c.History))
	copy(out.History, c.History)
	return &out
}

// Clamp restores every declared bound and weight-group invariant after a
// mutation. Out-of-range values are silently pulled back in range.
func (c *AdaptiveConfig) Clamp() {
	c.WebSearchThreshold = clampFloat(c.WebSearchThreshold, MinWebSearchThreshold, MaxWebSearchThreshold)
	c.JudgeFloor = clampInt(c.JudgeFloor, MinJudgeFloor, MaxJudgeFloor)
	c.LearningRate = clampFloat(c.LearningRate, 1e-6, 1)
	if c.BatchSize < 1 {
		c.BatchSize = 1
	}
	if c.MinSamples < 1 {
		c.MinSamples = 1
	}
	c.ConfidenceWeights = c.ConfidenceWeights.Normalize()
	c.JudgeWeights = c.JudgeWeights.Normalize()
	if c.History == nil {
		c.History = []PerformanceSnapshot{}
	}
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
