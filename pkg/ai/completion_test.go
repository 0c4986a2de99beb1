package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/salescoach-team/coaching-engine/pkg/config"
)

func completionResponse(content string) map[string]interface{} {
	return map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"content": content}},
		},
	}
}

func newTestClient(baseURL string) *CompletionClient {
	return NewCompletionClient(&config.AIConfig{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Model:   "test-model",
	})
}

func TestGenerateSuggestion_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openai/v1/chat/completions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("unexpected auth header %q", got)
		}
		json.NewEncoder(w).Encode(completionResponse(
			`{"no_suggestion": false, "type": "question", "content": "Ask about timeline.", "reasoning": "No timeline discussed.", "confidence": 0.8, "priority": "medium"}`,
		))
	}))
	defer ts.Close()

	result, err := newTestClient(ts.URL).GenerateSuggestion(context.Background(), "[00:10 Rep]: hello\n", "")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if result.Type != "question" || result.Confidence != 0.8 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestGenerateSuggestion_CodeFencedJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(completionResponse(
			"```json\n{\"no_suggestion\": true}\n```",
		))
	}))
	defer ts.Close()

	result, err := newTestClient(ts.URL).GenerateSuggestion(context.Background(), "conversation", "")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if !result.NoSuggestion {
		t.Fatalf("expected declined suggestion, got %+v", result)
	}
}

func TestClassifySentiment_ScoreOutOfRange(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(completionResponse(
			`{"score": 3.5, "label": "positive", "confidence": 0.9, "emotions": []}`,
		))
	}))
	defer ts.Close()

	if _, err := newTestClient(ts.URL).ClassifySentiment(context.Background(), "great stuff"); err == nil {
		t.Fatalf("expected out-of-range score rejected")
	}
}

func TestComplete_RetriesTransientFailure(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(completionResponse(
			`{"score": 0.2, "label": "positive", "confidence": 0.7, "emotions": []}`,
		))
	}))
	defer ts.Close()

	result, err := newTestClient(ts.URL).ClassifySentiment(context.Background(), "sounds good")
	if err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if result.Score != 0.2 {
		t.Fatalf("unexpected score %f", result.Score)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected 2 calls got %d", calls)
	}
}

func TestComplete_ClientErrorIsPermanent(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	if _, err := newTestClient(ts.URL).ClassifySentiment(context.Background(), "text"); err == nil {
		t.Fatalf("expected error on 400")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("400 must not be retried, got %d calls", calls)
	}
}
