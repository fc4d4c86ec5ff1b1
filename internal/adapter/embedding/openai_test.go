package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"docqa/internal/domain"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	t.Setenv("TEST_EMBED_KEY", "test-key")

	client, err := NewClient(Config{
		APIKeyEnv:   "TEST_EMBED_KEY",
		Model:       "text-embedding-3-small",
		BaseURL:     baseURL,
		BatchSize:   2,
		MaxAttempts: 3,
		BackoffBase: time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	return client
}

func embeddingHandler(fn func(n int, texts []string) (int, any)) (http.HandlerFunc, *int) {
	var mu sync.Mutex
	calls := 0
	handler := func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()

		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		status, body := fn(n, req.Input)
		w.WriteHeader(status)
		if body != nil {
			json.NewEncoder(w).Encode(body)
		}
	}
	return handler, &calls
}

func okResponse(texts []string) embeddingResponse {
	resp := embeddingResponse{}
	for i := range texts {
		resp.Data = append(resp.Data, embeddingData{
			Index:     i,
			Embedding: []float32{float32(i), float32(len(texts[i]))},
		})
	}
	return resp
}

func TestEmbedBatchOrderAndBatching(t *testing.T) {
	var batchSizes []int
	var mu sync.Mutex

	handler, _ := embeddingHandler(func(n int, texts []string) (int, any) {
		mu.Lock()
		batchSizes = append(batchSizes, len(texts))
		mu.Unlock()
		return http.StatusOK, okResponse(texts)
	})
	srv := httptest.NewServer(handler)
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	chunks := make([]domain.TextChunk, 5)
	for i := range chunks {
		chunks[i] = domain.TextChunk{
			ID:   fmt.Sprintf("doc-chunk-%d", i),
			Text: fmt.Sprintf("text %d", i),
		}
	}

	results, err := client.EmbedBatch(context.Background(), chunks)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != len(chunks) {
		t.Fatalf("expected %d results, got %d", len(chunks), len(results))
	}
	for i, res := range results {
		if res.ChunkID != chunks[i].ID {
			t.Errorf("result %d: expected chunk id %s, got %s", i, chunks[i].ID, res.ChunkID)
		}
	}

	// Batch size 2 over 5 chunks: 2 + 2 + 1.
	if len(batchSizes) != 3 || batchSizes[0] != 2 || batchSizes[1] != 2 || batchSizes[2] != 1 {
		t.Errorf("unexpected batch sizes: %v", batchSizes)
	}
}

func TestEmbedBatchOutOfOrderResponse(t *testing.T) {
	handler, _ := embeddingHandler(func(n int, texts []string) (int, any) {
		resp := okResponse(texts)
		for i, j := 0, len(resp.Data)-1; i < j; i, j = i+1, j-1 {
			resp.Data[i], resp.Data[j] = resp.Data[j], resp.Data[i]
		}
		return http.StatusOK, resp
	})
	srv := httptest.NewServer(handler)
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	chunks := []domain.TextChunk{
		{ID: "doc-chunk-0", Text: "a"},
		{ID: "doc-chunk-1", Text: "bb"},
	}
	results, err := client.EmbedBatch(context.Background(), chunks)
	if err != nil {
		t.Fatal(err)
	}
	// Index 0 was text "a": the vector encodes the original position.
	if results[0].Vector[0] != 0 {
		t.Errorf("vectors not reassembled by index: %v", results[0].Vector)
	}
}

func TestEmbedRetriesRateLimited(t *testing.T) {
	handler, calls := embeddingHandler(func(n int, texts []string) (int, any) {
		if n < 3 {
			return http.StatusTooManyRequests, nil
		}
		return http.StatusOK, okResponse(texts)
	})
	srv := httptest.NewServer(handler)
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	vector, err := client.EmbedQuery(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if len(vector) == 0 {
		t.Fatal("expected a vector")
	}
	if *calls != 3 {
		t.Errorf("expected 3 attempts, got %d", *calls)
	}
}

func TestEmbedRateLimitedExhaustsAttempts(t *testing.T) {
	handler, calls := embeddingHandler(func(n int, texts []string) (int, any) {
		return http.StatusTooManyRequests, nil
	})
	srv := httptest.NewServer(handler)
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.EmbedQuery(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected terminal error after exhausting attempts")
	}
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Errorf("expected rate-limited error chain, got %v", err)
	}
	if *calls != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", *calls)
	}
}

func TestEmbedDoesNotRetryTerminalErrors(t *testing.T) {
	handler, calls := embeddingHandler(func(n int, texts []string) (int, any) {
		return http.StatusInternalServerError, nil
	})
	srv := httptest.NewServer(handler)
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.EmbedQuery(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error")
	}
	if *calls != 1 {
		t.Errorf("terminal error retried: %d attempts", *calls)
	}
}

func TestEmbedCountMismatchIsFatal(t *testing.T) {
	handler, calls := embeddingHandler(func(n int, texts []string) (int, any) {
		resp := okResponse(texts)
		resp.Data = resp.Data[:len(resp.Data)-1]
		return http.StatusOK, resp
	})
	srv := httptest.NewServer(handler)
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	chunks := []domain.TextChunk{
		{ID: "doc-chunk-0", Text: "a"},
		{ID: "doc-chunk-1", Text: "b"},
	}
	_, err := client.EmbedBatch(context.Background(), chunks)
	if err == nil {
		t.Fatal("expected count mismatch error")
	}
	var mismatch *domain.CountMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected CountMismatchError, got %v", err)
	}
	if mismatch.Sent != 2 || mismatch.Got != 1 {
		t.Errorf("unexpected mismatch detail: %+v", mismatch)
	}
	if *calls != 1 {
		t.Errorf("count mismatch retried: %d attempts", *calls)
	}
}

func TestEmbedCancellationAbortsRetries(t *testing.T) {
	handler, calls := embeddingHandler(func(n int, texts []string) (int, any) {
		return http.StatusTooManyRequests, nil
	})
	srv := httptest.NewServer(handler)
	defer srv.Close()

	t.Setenv("TEST_EMBED_KEY", "test-key")
	client, err := NewClient(Config{
		APIKeyEnv:   "TEST_EMBED_KEY",
		BaseURL:     srv.URL,
		MaxAttempts: 3,
		BackoffBase: 5 * time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = client.EmbedQuery(ctx, "hello")
	if err == nil {
		t.Fatal("expected error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("retry loop did not abort promptly: %v", elapsed)
	}
	if *calls > 1 {
		t.Errorf("expected no further attempts after cancellation, got %d", *calls)
	}
}

func TestEmbedBatchEmptyInput(t *testing.T) {
	client := newTestClient(t, "http://unused.invalid")
	results, err := client.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if results != nil {
		t.Errorf("expected nil results, got %v", results)
	}
}
