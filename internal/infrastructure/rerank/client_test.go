package rerank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestScoreMapsResultsToInputOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rerank" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var body struct {
			Query string   `json:"query"`
			Texts []string `json:"texts"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body.Query != "q" || len(body.Texts) != 3 {
			t.Errorf("unexpected request: %+v", body)
		}
		// Sorted by score, not input order.
		_, _ = w.Write([]byte(`[
			{"index":2,"score":0.9},
			{"index":0,"score":0.5},
			{"index":1,"score":0.1}
		]`))
	}))
	defer server.Close()

	client := New(server.URL)
	scores, err := client.Score(context.Background(), "q", []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	want := []float64{0.5, 0.1, 0.9}
	for i := range want {
		if scores[i] != want[i] {
			t.Fatalf("scores = %v, want %v", scores, want)
		}
	}
}

func TestScoreRejectsOutOfRangeIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"index":5,"score":0.9}]`))
	}))
	defer server.Close()

	client := New(server.URL)
	if _, err := client.Score(context.Background(), "q", []string{"a"}); err == nil {
		t.Fatal("expected error for out-of-range index")
	}
}

func TestScoreIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(server.URL)
	_, err := client.Score(context.Background(), "q", []string{"a"})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestScoreEmptyPassages(t *testing.T) {
	client := New("http://unused.invalid")
	scores, err := client.Score(context.Background(), "q", nil)
	if err != nil || scores != nil {
		t.Fatalf("Score = %v, %v", scores, err)
	}
}
