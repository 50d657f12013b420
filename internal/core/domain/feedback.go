package domain

import (
	"errors"
	"fmt"
	"time"
)

type FeedbackType string

const (
	FeedbackPositive FeedbackType = "positive"
	FeedbackNegative FeedbackType = "negative"
)

// JudgeScore holds the three 0-10 answer-quality dimensions produced by the
// judge service.
type JudgeScore struct {
	Relevance    int `json:"relevance"`
	Factuality   int `json:"factuality"`
	Completeness int `json:"completeness"`
}

func (s JudgeScore) Validate() error {
	for _, dim := range []struct {
		name  string
		value int
	}{
		{"relevance", s.Relevance},
		{"factuality", s.Factuality},
		{"completeness", s.Completeness},
	} {
		if dim.value < 0 || dim.value > 10 {
			return WrapError(ErrInvalidInput, "validate judge score",
				fmt.Errorf("%s must be in [0,10], got %d", dim.name, dim.value))
		}
	}
	return nil
}

// FeedbackEvent is one immutable user-feedback record. Once appended to the
// feedback log it is never mutated or deleted.
type FeedbackEvent struct {
	ID                 string       `json:"id"`
	ResponseID         string       `json:"response_id"`
	Query              string       `json:"query"`
	FeedbackType       FeedbackType `json:"feedback_type"`
	Confidence         float64      `json:"confidence"`
	JudgeScore         JudgeScore   `json:"judge_score"`
	RetrievalMethod    string       `json:"retrieval_method"`
	WebSearchTriggered bool         `json:"web_search_triggered"`
	CreatedAt          time.Time    `json:"created_at"`
}

func (e FeedbackEvent) Validate() error {
	if e.ResponseID == "" {
		return WrapError(ErrInvalidInput, "validate feedback", errors.New("response_id is required"))
	}
	if e.FeedbackType != FeedbackPositive && e.FeedbackType != FeedbackNegative {
		return WrapError(ErrInvalidInput, "validate feedback",
			fmt.Errorf("feedback_type must be %q or %q, got %q", FeedbackPositive, FeedbackNegative, e.FeedbackType))
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return WrapError(ErrInvalidInput, "validate feedback",
			fmt.Errorf("confidence must be in [0,1], got %g", e.Confidence))
	}
	return e.JudgeScore.Validate()
}

func (e FeedbackEvent) Positive() bool {
	return e.FeedbackType == FeedbackPositive
}

type PathStats struct {
	Total        int     `json:"total"`
	Positive     int     `json:"positive"`
	PositiveRate float64 `json:"positive_rate"`
}

type ConfidenceBucketStats struct {
	Bucket       string  `json:"bucket"`
	Total        int     `json:"total"`
	Positive     int     `json:"positive"`
	PositiveRate float64 `json:"positive_rate"`
}

type FeedbackStats struct {
	Total             int                     `json:"total"`
	Positive          int                     `json:"positive"`
	Negative          int                     `json:"negative"`
	PositiveRate      float64                 `json:"positive_rate"`
	WebSearch         PathStats               `json:"web_search"`
	Internal          PathStats               `json:"internal"`
	ConfidenceBuckets []ConfidenceBucketStats `json:"confidence_buckets"`
}
