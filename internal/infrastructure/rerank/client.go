package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client calls an external cross-encoder reranking service (TEI-style HTTP
// API): POST /rerank with the query and candidate texts, raw relevance
// scores back. The query pipeline treats this adapter as optional and falls
// back to a lexical heuristic when it is absent or failing.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return nil, nil
	}

	reqBody := map[string]any{
		"query": query,
		"texts": passages,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal rerank body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(respBody)); msg != "" {
			return nil, fmt.Errorf("rerank status: %s: %s", resp.Status, msg)
		}
		return nil, fmt.Errorf("rerank status: %s", resp.Status)
	}

	// Results arrive sorted by score; map them back to input order.
	var results []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}

	scores := make([]float64, len(passages))
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(passages) {
			return nil, fmt.Errorf("rerank result index %d out of range", r.Index)
		}
		scores[r.Index] = r.Score
	}
	return scores, nil
}
