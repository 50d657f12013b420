package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/kirillkom/adaptive-rag/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeConfigStore struct {
	mu        sync.Mutex
	saved     *domain.AdaptiveConfig
	saveCalls int
	failSaves int
}

func (s *fakeConfigStore) Load(_ context.Context) (*domain.AdaptiveConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved == nil {
		return nil, domain.WrapError(domain.ErrConfigNotFound, "load adaptive config", errors.New("no rows"))
	}
	return s.saved.Clone(), nil
}

func (s *fakeConfigStore) Save(_ context.Context, cfg *domain.AdaptiveConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveCalls++
	if s.failSaves > 0 {
		s.failSaves--
		return errors.New("storage down")
	}
	s.saved = cfg.Clone()
	return nil
}

type fakeFeedbackLog struct {
	mu     sync.Mutex
	events []domain.FeedbackEvent
}

func (l *fakeFeedbackLog) Append(_ context.Context, event domain.FeedbackEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

func (l *fakeFeedbackLog) ReadAll(_ context.Context) ([]domain.FeedbackEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.FeedbackEvent, len(l.events))
	copy(out, l.events)
	return out, nil
}

func (l *fakeFeedbackLog) ReadRecent(_ context.Context, limit int) ([]domain.FeedbackEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limit <= 0 || limit > len(l.events) {
		limit = len(l.events)
	}
	out := make([]domain.FeedbackEvent, limit)
	copy(out, l.events[len(l.events)-limit:])
	return out, nil
}

func (l *fakeFeedbackLog) Count(_ context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events), nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

type fakeVectorStore struct {
	semantic []domain.RetrievedArticle
	lexical  []domain.RetrievedArticle
	indexed  []string
}

func (v *fakeVectorStore) IndexArticle(_ context.Context, article *domain.Article, _ []string, _ [][]float32) error {
	v.indexed = append(v.indexed, article.ID)
	return nil
}

func (v *fakeVectorStore) Search(_ context.Context, _ []float32, _ int, _ domain.SearchFilter) ([]domain.RetrievedArticle, error) {
	return v.semantic, nil
}

func (v *fakeVectorStore) SearchLexical(_ context.Context, _ string, _ int, _ domain.SearchFilter) ([]domain.RetrievedArticle, error) {
	return v.lexical, nil
}

type fakeReranker struct {
	scores []float64
	err    error
}

func (r *fakeReranker) Score(_ context.Context, _ string, passages []string) ([]float64, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.scores != nil {
		return r.scores, nil
	}
	out := make([]float64, len(passages))
	for i := range passages {
		out[i] = float64(len(passages) - i)
	}
	return out, nil
}

type fakeJudge struct {
	adequacy    float64
	answerScore domain.JudgeScore
	retrieveErr error
}

func (j *fakeJudge) JudgeRetrieval(_ context.Context, _ string, _ []string) (domain.RetrievalJudgement, error) {
	if j.retrieveErr != nil {
		return domain.RetrievalJudgement{}, j.retrieveErr
	}
	return domain.RetrievalJudgement{Adequacy: j.adequacy, Reasoning: "test"}, nil
}

func (j *fakeJudge) JudgeAnswer(_ context.Context, _, _ string) (domain.JudgeScore, error) {
	return j.answerScore, nil
}

type fakeWebSearcher struct {
	results []domain.WebResult
	calls   int
}

func (w *fakeWebSearcher) Search(_ context.Context, _ string, _ int) ([]domain.WebResult, error) {
	w.calls++
	return w.results, nil
}

type fakeGenerator struct{}

func (fakeGenerator) GenerateAnswer(_ context.Context, question string, articles []domain.RetrievedArticle, web []domain.WebResult) (string, error) {
	parts := []string{"answer to: " + question}
	for _, a := range articles {
		parts = append(parts, a.Title)
	}
	for _, w := range web {
		parts = append(parts, w.Title)
	}
	return strings.Join(parts, "; "), nil
}

func newTestParams(t interface {
	Helper()
	Fatalf(string, ...any)
}, store *fakeConfigStore) *ParameterStore {
	t.Helper()
	params, err := NewParameterStore(context.Background(), store, nil, testLogger())
	if err != nil {
		t.Fatalf("NewParameterStore: %v", err)
	}
	return params
}
