package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/kirillkom/adaptive-rag/internal/core/domain"
	"github.com/kirillkom/adaptive-rag/internal/core/ports"
)

const (
	retrievalMethodHybrid = "hybrid_rrf_rerank"

	defaultSearchLimit = 5
	maxSearchLimit     = 20
	// candidateMultiplier widens the per-source candidate pool before fusion
	// so RRF has more than the final top-k to merge.
	candidateMultiplier = 3

	defaultWebResultLimit = 3
)

var errEmptyQuestion = errors.New("question is required")

// QueryMetrics receives counters from the query path.
type QueryMetrics interface {
	QueryServed(method string, webSearch bool)
	GateEscalation()
	ConfidenceObserved(confidence float64)
}

// QueryUseCase runs the full adaptive RAG pipeline: hybrid retrieval with
// RRF fusion, reranking, adequacy judging, the escalation gate, optional web
// search, answer generation and answer judging. Every request reads one
// immutable config snapshot so a learning pass mid-request cannot mix
// parameter versions.
type QueryUseCase struct {
	embedder  ports.Embedder
	vectors   ports.VectorStore
	reranker  ports.Reranker
	judge     ports.Judge
	web       ports.WebSearcher
	generator ports.AnswerGenerator
	params    *ParameterStore
	metrics   QueryMetrics
	logger    *slog.Logger

	rrfK     int
	webLimit int
}

func NewQueryUseCase(
	embedder ports.Embedder,
	vectors ports.VectorStore,
	reranker ports.Reranker,
	judge ports.Judge,
	web ports.WebSearcher,
	generator ports.AnswerGenerator,
	params *ParameterStore,
	metrics QueryMetrics,
	rrfK int,
	webLimit int,
	logger *slog.Logger,
) *QueryUseCase {
	if rrfK <= 0 {
		rrfK = defaultRRFK
	}
	if webLimit <= 0 {
		webLimit = defaultWebResultLimit
	}
	return &QueryUseCase{
		embedder:  embedder,
		vectors:   vectors,
		reranker:  reranker,
		judge:     judge,
		web:       web,
		generator: generator,
		params:    params,
		metrics:   metrics,
		rrfK:      rrfK,
		webLimit:  webLimit,
		logger:    logger,
	}
}

func (q *QueryUseCase) Answer(ctx context.Context, question string, limit int, filter domain.SearchFilter) (*domain.QueryResult, error) {
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer query", errEmptyQuestion)
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	cfg := q.params.Snapshot()

	articles, err := q.retrieve(ctx, question, limit, filter)
	if err != nil {
		return nil, err
	}

	judgement := q.judgeRetrieval(ctx, question, articles)
	retrievalScore := judgement.Adequacy / 10

	var webResults []domain.WebResult
	escalate := shouldEscalate(retrievalScore, judgement.Adequacy, cfg)
	if escalate {
		if q.metrics != nil {
			q.metrics.GateEscalation()
		}
		webResults = q.searchWeb(ctx, question)
	}
	webTriggered := len(webResults) > 0

	answer, err := q.generator.GenerateAnswer(ctx, question, articles, webResults)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "generate answer", err)
	}

	answerScore, answerQuality := q.judgeAnswer(ctx, question, answer, cfg)
	confidence := aggregateConfidence(retrievalScore, answerQuality, cfg.ConfidenceWeights)

	if q.metrics != nil {
		q.metrics.QueryServed(retrievalMethodHybrid, webTriggered)
		q.metrics.ConfidenceObserved(confidence)
	}
	q.logger.Info("query_answered",
		"internal_sources", len(articles),
		"web_sources", len(webResults),
		"adequacy", judgement.Adequacy,
		"confidence", confidence,
		"escalated", escalate,
		"config_version", cfg.Version)

	return &domain.QueryResult{
		ResponseID:         uuid.NewString(),
		Answer:             answer,
		Sources:            buildSources(articles, webResults),
		Confidence:         confidence,
		JudgeScore:         answerScore,
		RetrievalMethod:    retrievalMethodHybrid,
		WebSearchTriggered: webTriggered,
		ConfigVersion:      cfg.Version,
	}, nil
}

// retrieve runs the two independent searches, fuses them with RRF, reranks
// the fused pool and returns the top limit articles with scores normalized
// to [0,1].
func (q *QueryUseCase) retrieve(ctx context.Context, question string, limit int, filter domain.SearchFilter) ([]domain.RetrievedArticle, error) {
	queryVector, err := q.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "embed query", err)
	}

	candidateLimit := limit * candidateMultiplier
	semantic, err := q.vectors.Search(ctx, queryVector, candidateLimit, filter)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "semantic search", err)
	}
	lexical, err := q.vectors.SearchLexical(ctx, question, candidateLimit, filter)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "lexical search", err)
	}

	fused := fuseRetrieved(semantic, lexical, q.rrfK)
	if len(fused) == 0 {
		return nil, nil
	}

	scores := q.rerankScores(ctx, question, fused)
	for i := range fused {
		fused[i].Score = scores[i]
	}
	sortByScoreDesc(fused)
	if len(fused) > limit {
		fused = fused[:limit]
	}

	normalized := normalizeScores(collectScores(fused))
	for i := range fused {
		fused[i].Score = normalized[i]
	}
	return fused, nil
}

// rerankScores prefers the cross-encoder; on any failure (or when no
// reranker is wired) it degrades to the token-overlap heuristic rather than
// failing the query.
func (q *QueryUseCase) rerankScores(ctx context.Context, question string, articles []domain.RetrievedArticle) []float64 {
	passages := passageTexts(articles)
	if q.reranker != nil {
		scores, err := q.reranker.Score(ctx, question, passages)
		if err == nil && len(scores) == len(articles) {
			return scores
		}
		if err != nil {
			q.logger.Warn("reranker_fallback", "error", err)
		}
	}
	return heuristicRerankScores(question, passages)
}

// judgeRetrieval tolerates judge failures: an unavailable judge reports zero
// adequacy, which routes the query through web-search escalation instead of
// failing it.
func (q *QueryUseCase) judgeRetrieval(ctx context.Context, question string, articles []domain.RetrievedArticle) domain.RetrievalJudgement {
	if len(articles) == 0 {
		return domain.RetrievalJudgement{Adequacy: 0, Reasoning: "no internal candidates retrieved"}
	}
	judgement, err := q.judge.JudgeRetrieval(ctx, question, passageTexts(articles))
	if err != nil {
		q.logger.Warn("retrieval_judge_unavailable", "error", err)
		return domain.RetrievalJudgement{Adequacy: 0, Reasoning: "judge unavailable"}
	}
	return judgement
}

func (q *QueryUseCase) judgeAnswer(ctx context.Context, question, answer string, cfg *domain.AdaptiveConfig) (domain.JudgeScore, float64) {
	score, err := q.judge.JudgeAnswer(ctx, question, answer)
	if err != nil {
		q.logger.Warn("answer_judge_unavailable", "error", err)
		return domain.JudgeScore{}, 0
	}
	return score, aggregateJudgeScore(score, cfg.JudgeWeights) / 10
}

// searchWeb is best-effort: a failed external search logs a warning and the
// pipeline proceeds on internal evidence only.
func (q *QueryUseCase) searchWeb(ctx context.Context, question string) []domain.WebResult {
	if q.web == nil {
		return nil
	}
	results, err := q.web.Search(ctx, question, q.webLimit)
	if err != nil {
		q.logger.Warn("web_search_failed", "error", err)
		return nil
	}
	return results
}

func buildSources(articles []domain.RetrievedArticle, web []domain.WebResult) []domain.Source {
	out := make([]domain.Source, 0, len(articles)+len(web))
	for _, a := range articles {
		out = append(out, domain.Source{
			Type:      domain.SourceInternal,
			Title:     a.Title,
			Author:    a.Author,
			URL:       a.URL,
			Sentiment: a.Sentiment,
			Relevance: a.Score,
		})
	}
	for _, w := range web {
		out = append(out, domain.Source{
			Type:      domain.SourceWeb,
			Title:     w.Title,
			URL:       w.URL,
			Relevance: w.Score,
		})
	}
	return out
}

func collectScores(articles []domain.RetrievedArticle) []float64 {
	out := make([]float64, len(articles))
	for i, a := range articles {
		out[i] = a.Score
	}
	return out
}

func sortByScoreDesc(articles []domain.RetrievedArticle) {
	sort.SliceStable(articles, func(i, j int) bool {
		if articles[i].Score != articles[j].Score {
			return articles[i].Score > articles[j].Score
		}
		return articles[i].ArticleID < articles[j].ArticleID
	})
}
