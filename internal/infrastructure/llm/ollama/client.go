package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/adaptive-rag/internal/core/domain"
	"github.com/kirillkom/adaptive-rag/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, genModel, embedModel string) *Client {
	return NewWithOptions(baseURL, genModel, embedModel, Options{})
}

type Options struct {
	RequestTimeout     time.Duration
	ResilienceExecutor *resilience.Executor
}

func NewWithOptions(baseURL, genModel, embedModel string, options Options) *Client {
	timeout := options.RequestTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.postJSON(ctx, "/api/embed", request, &response, "embed"); err != nil {
		return nil, err
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) GenerateAnswer(ctx context.Context, question string, articles []domain.RetrievedArticle, web []domain.WebResult) (string, error) {
	return g.client.generateText(ctx, buildAnswerPrompt(question, articles, web))
}

// Judge implements LLM-as-a-judge over the generation model: one call for
// retrieval adequacy, one for answer quality, both returning strict JSON.
type Judge struct {
	client *Client
}

func NewJudge(client *Client) *Judge {
	return &Judge{client: client}
}

func (j *Judge) JudgeRetrieval(ctx context.Context, query string, contexts []string) (domain.RetrievalJudgement, error) {
	respText, err := j.client.generateJSON(ctx, buildRetrievalJudgePrompt(query, contexts))
	if err != nil {
		return domain.RetrievalJudgement{}, err
	}

	var result struct {
		Adequacy  float64 `json:"adequacy"`
		Reasoning string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &result); err != nil {
		return domain.RetrievalJudgement{}, fmt.Errorf("parse retrieval judgement json: %w", err)
	}
	return domain.RetrievalJudgement{
		Adequacy:  clampScale(result.Adequacy),
		Reasoning: result.Reasoning,
	}, nil
}

func (j *Judge) JudgeAnswer(ctx context.Context, query, answer string) (domain.JudgeScore, error) {
	respText, err := j.client.generateJSON(ctx, buildAnswerJudgePrompt(query, answer))
	if err != nil {
		return domain.JudgeScore{}, err
	}

	var result struct {
		Relevance    float64 `json:"relevance"`
		Factuality   float64 `json:"factuality"`
		Completeness float64 `json:"completeness"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &result); err != nil {
		return domain.JudgeScore{}, fmt.Errorf("parse answer judgement json: %w", err)
	}
	return domain.JudgeScore{
		Relevance:    int(clampScale(result.Relevance)),
		Factuality:   int(clampScale(result.Factuality)),
		Completeness: int(clampScale(result.Completeness)),
	}, nil
}

// clampScale pulls model output back onto the 0-10 judging scale; LLMs
// occasionally return 10.5 or -1 despite the prompt.
func clampScale(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

func (c *Client) generateJSON(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}
	return c.generate(ctx, reqBody)
}

func (c *Client) generateText(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
	}
	return c.generate(ctx, reqBody)
}

func (c *Client) generate(ctx context.Context, reqBody map[string]any) (string, error) {
	var response struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
