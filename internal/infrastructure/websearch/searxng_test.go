package websearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearchMapsResultsAndAppliesLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("q"); got != "oil prices" {
			t.Errorf("q = %q", got)
		}
		if got := r.URL.Query().Get("format"); got != "json" {
			t.Errorf("format = %q", got)
		}
		_, _ = w.Write([]byte(`{"results":[
			{"title":"A","url":"https://a.example","content":"first","score":1.2},
			{"title":"no url skipped","url":"","content":"x","score":9},
			{"title":"B","url":"https://b.example","content":"second","score":0.8},
			{"title":"C","url":"https://c.example","content":"third","score":0.5}
		]}`))
	}))
	defer server.Close()

	client := New(server.URL)
	results, err := client.Search(context.Background(), "oil prices", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].URL != "https://a.example" || results[0].Snippet != "first" {
		t.Fatalf("first result = %+v", results[0])
	}
	if results[1].Title != "B" {
		t.Fatalf("second result = %+v", results[1])
	}
}

func TestSearchDefaultsLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[
			{"title":"1","url":"u1"},{"title":"2","url":"u2"},
			{"title":"3","url":"u3"},{"title":"4","url":"u4"}
		]}`))
	}))
	defer server.Close()

	results, err := New(server.URL).Search(context.Background(), "q", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want default limit 3", len(results))
	}
}

func TestSearchHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	if _, err := New(server.URL).Search(context.Background(), "q", 3); err == nil {
		t.Fatal("expected error")
	}
}
