package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/adaptive-rag/internal/core/domain"
)

// Client queries a SearxNG instance for external evidence. It is only
// consulted when the adequacy gate escalates a query beyond the internal
// corpus, so failures here degrade the answer but never fail the request.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type searxResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.WebResult, error) {
	if limit <= 0 {
		limit = 3
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(body)); msg != "" {
			return nil, fmt.Errorf("web search status: %s: %s", resp.Status, msg)
		}
		return nil, fmt.Errorf("web search status: %s", resp.Status)
	}

	var parsed searxResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode web search response: %w", err)
	}

	results := make([]domain.WebResult, 0, limit)
	for _, r := range parsed.Results {
		if r.URL == "" {
			continue
		}
		results = append(results, domain.WebResult{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Content,
			Score:   r.Score,
		})
		if len(results) == limit {
			break
		}
	}
	return results, nil
}
