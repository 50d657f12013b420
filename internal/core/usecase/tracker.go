package usecase

import (
	"github.com/kirillkom/adaptive-rag/internal/core/domain"
)

const (
	defaultTrendWindow = 5
	// trendDeadBand is the positive-rate delta below which two windows are
	// reported as stable rather than improving or declining.
	trendDeadBand = 0.02
)

type TrendStatus string

const (
	TrendImproving        TrendStatus = "improving"
	TrendDeclining        TrendStatus = "declining"
	TrendStable           TrendStatus = "stable"
	TrendInsufficientData TrendStatus = "insufficient_data"
)

// TrendReport compares the positive rate of the most recent window of
// performance snapshots against the window before it.
type TrendReport struct {
	Status             TrendStatus `json:"status"`
	WindowSize         int         `json:"window_size"`
	RecentPositiveRate float64     `json:"recent_positive_rate,omitempty"`
	PriorPositiveRate  float64     `json:"prior_positive_rate,omitempty"`
	Delta              float64     `json:"delta,omitempty"`
	PercentImprovement float64     `json:"percent_improvement,omitempty"`
	SnapshotsAvailable int         `json:"snapshots_available"`
}

// PerformanceTracker reads trend signals out of the adaptive config's
// performance history. It never mutates the config.
type PerformanceTracker struct {
	params *ParameterStore
}

func NewPerformanceTracker(params *ParameterStore) *PerformanceTracker {
	return &PerformanceTracker{params: params}
}

// Trend reports whether answer quality is improving over the last windowSize
// learning passes compared with the windowSize passes before them. Fewer
// than two full windows of history yields insufficient_data.
func (t *PerformanceTracker) Trend(windowSize int) TrendReport {
	if windowSize <= 0 {
		windowSize = defaultTrendWindow
	}

	history := t.params.Snapshot().History
	report := TrendReport{
		Status:             TrendInsufficientData,
		WindowSize:         windowSize,
		SnapshotsAvailable: len(history),
	}
	if len(history) < 2*windowSize {
		return report
	}

	recent := history[len(history)-windowSize:]
	prior := history[len(history)-2*windowSize : len(history)-windowSize]

	report.RecentPositiveRate = meanPositiveRate(recent)
	report.PriorPositiveRate = meanPositiveRate(prior)
	report.Delta = report.RecentPositiveRate - report.PriorPositiveRate
	report.PercentImprovement = report.Delta * 100

	switch {
	case report.Delta > trendDeadBand:
		report.Status = TrendImproving
	case report.Delta < -trendDeadBand:
		report.Status = TrendDeclining
	default:
		report.Status = TrendStable
	}
	return report
}

func meanPositiveRate(snapshots []domain.PerformanceSnapshot) float64 {
	if len(snapshots) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range snapshots {
		sum += s.PositiveRate
	}
	return sum / float64(len(snapshots))
}
