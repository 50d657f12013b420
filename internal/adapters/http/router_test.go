package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kirillkom/adaptive-rag/internal/config"
	"github.com/kirillkom/adaptive-rag/internal/core/domain"
	"github.com/kirillkom/adaptive-rag/internal/core/usecase"
)

type ingestFake struct {
	err error
}

func (f ingestFake) Upload(_ context.Context, filename, _ string, body io.Reader) (*domain.CorpusUploadReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", io.EOF)
	}
	return &domain.CorpusUploadReport{StorageKey: "key_" + filename, Total: 2, ArticleIDs: []string{"a1", "a2"}}, nil
}

type queryFake struct {
	err error
}

func (f queryFake) Answer(context.Context, string, int, domain.SearchFilter) (*domain.QueryResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.QueryResult{ResponseID: "resp-1", Answer: "ok", Confidence: 0.8, ConfigVersion: 3}, nil
}

type articlesFake struct {
	err error
}

func (f articlesFake) GetByID(context.Context, string) (*domain.Article, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Article{ID: "a1", Title: "t", Status: domain.StatusReady}, nil
}

type feedbackFake struct {
	recordErr error
	outcome   *usecase.FeedbackOutcome
	stats     *domain.FeedbackStats
}

func (f feedbackFake) Record(_ context.Context, event domain.FeedbackEvent) (*usecase.FeedbackOutcome, error) {
	if f.recordErr != nil {
		return nil, f.recordErr
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}
	if f.outcome != nil {
		return f.outcome, nil
	}
	return &usecase.FeedbackOutcome{FeedbackID: "fb-1", ConfigVersion: 1}, nil
}

func (f feedbackFake) Stats(context.Context) (*domain.FeedbackStats, error) {
	if f.stats != nil {
		return f.stats, nil
	}
	return &domain.FeedbackStats{Total: 4, Positive: 3, PositiveRate: 0.75}, nil
}

type adaptiveFake struct{}

func (adaptiveFake) Snapshot() *domain.AdaptiveConfig {
	return domain.DefaultAdaptiveConfig()
}

type trendFake struct {
	report usecase.TrendReport
}

func (f trendFake) Trend(int) usecase.TrendReport {
	return f.report
}

func newTestRouter(overrides ...func(*Router)) http.Handler {
	rt := NewRouter(
		config.Config{RAGTopK: 5},
		ingestFake{},
		queryFake{},
		articlesFake{},
		feedbackFake{},
		adaptiveFake{},
		trendFake{},
		nil,
	)
	for _, override := range overrides {
		override(rt)
	}
	return rt.Handler()
}

func TestHealthzEndpoint(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	newTestRouter().ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header on response")
	}
}

func TestUploadCorpusSuccess(t *testing.T) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "news.csv")
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write([]byte("title,article_content\na,b\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/corpus", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	res := httptest.NewRecorder()
	newTestRouter().ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", res.Code)
	}

	var report map[string]any
	if err := json.NewDecoder(res.Body).Decode(&report); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if report["total"] != float64(2) {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestUploadCorpusMissingMultipartField(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/corpus", bytes.NewBufferString("plain-text"))
	req.Header.Set("Content-Type", "text/plain")
	res := httptest.NewRecorder()
	newTestRouter().ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestQueryMapsDomainInvalidInputTo400(t *testing.T) {
	handler := newTestRouter(func(rt *Router) {
		rt.query = queryFake{err: domain.WrapError(domain.ErrInvalidInput, "answer", errors.New("bad query"))}
	})

	payload, _ := json.Marshal(map[string]any{"question": "test"})
	req := httptest.NewRequest(http.MethodPost, "/v1/query", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestQueryRejectsBlankQuestion(t *testing.T) {
	payload, _ := json.Marshal(map[string]any{"question": "   "})
	req := httptest.NewRequest(http.MethodPost, "/v1/query", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	newTestRouter().ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestQuerySuccess(t *testing.T) {
	payload, _ := json.Marshal(map[string]any{"question": "what moved oil prices", "sentiment": "negative"})
	req := httptest.NewRequest(http.MethodPost, "/v1/query", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	newTestRouter().ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var result map[string]any
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result["response_id"] != "resp-1" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestGetArticleByIDReturns404ForNotFound(t *testing.T) {
	handler := newTestRouter(func(rt *Router) {
		rt.articles = articlesFake{err: domain.WrapError(domain.ErrArticleNotFound, "get", errors.New("id=missing"))}
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/articles/missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestSubmitFeedbackAccepted(t *testing.T) {
	payload, _ := json.Marshal(map[string]any{
		"response_id":   "resp-1",
		"feedback_type": "positive",
		"confidence":    0.8,
		"judge_score":   map[string]int{"relevance": 8, "factuality": 7, "completeness": 6},
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/feedback", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	newTestRouter().ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", res.Code)
	}
}

func TestSubmitFeedbackRejectsInvalidType(t *testing.T) {
	payload, _ := json.Marshal(map[string]any{
		"response_id":   "resp-1",
		"feedback_type": "meh",
		"confidence":    0.8,
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/feedback", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	newTestRouter().ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestFeedbackStatsEndpoint(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/feedback/stats", nil)
	res := httptest.NewRecorder()
	newTestRouter().ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var stats map[string]any
	if err := json.NewDecoder(res.Body).Decode(&stats); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if stats["positive_rate"] != 0.75 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestAdaptiveConfigEndpoint(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/adaptive/config", nil)
	res := httptest.NewRecorder()
	newTestRouter().ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var cfg map[string]any
	if err := json.NewDecoder(res.Body).Decode(&cfg); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if cfg["web_search_threshold"] != 0.7 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestAdaptiveTrendRejectsBadWindow(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/adaptive/trend?window=abc", nil)
	res := httptest.NewRecorder()
	newTestRouter().ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestAdaptiveTrendEndpoint(t *testing.T) {
	handler := newTestRouter(func(rt *Router) {
		rt.trend = trendFake{report: usecase.TrendReport{Status: usecase.TrendImproving, WindowSize: 5, Delta: 0.2}}
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/adaptive/trend?window=5", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var report map[string]any
	if err := json.NewDecoder(res.Body).Decode(&report); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if report["status"] != string(usecase.TrendImproving) {
		t.Fatalf("unexpected report: %+v", report)
	}
}
