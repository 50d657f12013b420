package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/adaptive-rag/internal/config"
	"github.com/kirillkom/adaptive-rag/internal/core/domain"
	"github.com/kirillkom/adaptive-rag/internal/core/ports"
	"github.com/kirillkom/adaptive-rag/internal/core/usecase"
)

type feedbackService interface {
	Record(ctx context.Context, event domain.FeedbackEvent) (*usecase.FeedbackOutcome, error)
	Stats(ctx context.Context) (*domain.FeedbackStats, error)
}

type adaptiveService interface {
	Snapshot() *domain.AdaptiveConfig
}

type trendService interface {
	Trend(windowSize int) usecase.TrendReport
}

type Router struct {
	cfg      config.Config
	ingest   ports.CorpusIngestor
	query    ports.QueryService
	articles ports.ArticleReader
	feedback feedbackService
	adaptive adaptiveService
	trend    trendService
	metrics  http.Handler
}

func NewRouter(
	cfg config.Config,
	ingest ports.CorpusIngestor,
	query ports.QueryService,
	articles ports.ArticleReader,
	feedback feedbackService,
	adaptive adaptiveService,
	trend trendService,
	metrics http.Handler,
) *Router {
	return &Router{
		cfg:      cfg,
		ingest:   ingest,
		query:    query,
		articles: articles,
		feedback: feedback,
		adaptive: adaptive,
		trend:    trend,
		metrics:  metrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/corpus", rt.uploadCorpus)
	mux.HandleFunc("/v1/articles/", rt.getArticleByID)
	mux.HandleFunc("/v1/query", rt.answerQuery)
	mux.HandleFunc("/v1/feedback", rt.submitFeedback)
	mux.HandleFunc("/v1/feedback/stats", rt.feedbackStats)
	mux.HandleFunc("/v1/adaptive/config", rt.adaptiveConfig)
	mux.HandleFunc("/v1/adaptive/trend", rt.adaptiveTrend)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics)
	}

	var handler http.Handler = mux
	if rt.cfg.APIMaxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, 50*time.Millisecond)
	}
	if rt.cfg.APIRateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadCorpus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	report, err := rt.ingest.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, report)
}

func (rt *Router) getArticleByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/articles/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "article id is required"})
		return
	}

	article, err := rt.articles.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

func (rt *Router) answerQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Question  string `json:"question"`
		Limit     int    `json:"limit"`
		Sentiment string `json:"sentiment"`
		Author    string `json:"author"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = rt.cfg.RAGTopK
	}

	result, err := rt.query.Answer(r.Context(), req.Question, limit, domain.SearchFilter{
		Sentiment: req.Sentiment,
		Author:    req.Author,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) submitFeedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var event domain.FeedbackEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	outcome, err := rt.feedback.Record(r.Context(), event)
	if err != nil {
		// A learning failure after a durable append still returns the stored
		// event's ID so the client does not resubmit.
		if outcome != nil {
			writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{
				"error":       err.Error(),
				"feedback_id": outcome.FeedbackID,
			})
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, outcome)
}

func (rt *Router) feedbackStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	stats, err := rt.feedback.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (rt *Router) adaptiveConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, rt.adaptive.Snapshot())
}

func (rt *Router) adaptiveTrend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	window := 0
	if raw := r.URL.Query().Get("window"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "window must be a non-negative integer"})
			return
		}
		window = n
	}

	writeJSON(w, http.StatusOK, rt.trend.Trend(window))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
