package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"docqa/internal/domain"
)

// fakeQdrant implements just enough of the REST surface for the client.
type fakeQdrant struct {
	collections map[string][]map[string]any
}

func (f *fakeQdrant) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

		switch {
		case r.Method == http.MethodPut && len(parts) == 2:
			// create collection
			if f.collections == nil {
				f.collections = make(map[string][]map[string]any)
			}
			if _, ok := f.collections[parts[1]]; !ok {
				f.collections[parts[1]] = nil
			}
			json.NewEncoder(w).Encode(map[string]any{"result": true})

		case r.Method == http.MethodPut && len(parts) == 3 && parts[2] == "points":
			var req struct {
				Points []map[string]any `json:"points"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			f.collections[parts[1]] = append(f.collections[parts[1]], req.Points...)
			json.NewEncoder(w).Encode(map[string]any{"result": true})

		case r.Method == http.MethodPost && len(parts) == 4 && parts[3] == "search":
			points, ok := f.collections[parts[1]]
			if !ok {
				http.NotFound(w, r)
				return
			}
			var results []map[string]any
			for _, p := range points {
				results = append(results, map[string]any{
					"score":   0.9,
					"payload": p["payload"],
					"vector":  p["vector"],
				})
			}
			json.NewEncoder(w).Encode(map[string]any{"result": results})

		case r.Method == http.MethodPost && len(parts) == 4 && parts[3] == "count":
			points, ok := f.collections[parts[1]]
			if !ok {
				http.NotFound(w, r)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"result": map[string]any{"count": len(points)},
			})

		case r.Method == http.MethodGet && len(parts) == 1 && parts[0] == "collections":
			var cols []map[string]any
			for name := range f.collections {
				cols = append(cols, map[string]any{"name": name})
			}
			json.NewEncoder(w).Encode(map[string]any{
				"result": map[string]any{"collections": cols},
			})

		default:
			http.NotFound(w, r)
		}
	}
}

func TestQdrantUpsertAndQuery(t *testing.T) {
	fake := &fakeQdrant{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	s := NewQdrantStore(QdrantConfig{URL: srv.URL, CollectionPrefix: "test-"})
	ctx := context.Background()

	items := []domain.StoredChunk{
		{ID: "doc-chunk-0", Text: "Paris is the capital of France.", Source: "doc", Vector: []float32{1, 0}},
	}
	if err := s.UpsertMany(ctx, "ns", items); err != nil {
		t.Fatal(err)
	}

	results, err := s.Query(ctx, "ns", []float32{1, 0}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Chunk.ID != "doc-chunk-0" {
		t.Errorf("payload id lost: %+v", results[0].Chunk)
	}
	if results[0].Chunk.Source != "doc" {
		t.Errorf("payload source lost: %+v", results[0].Chunk)
	}

	count, err := s.Count(ctx, "ns")
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}
}

func TestQdrantUnknownNamespace(t *testing.T) {
	fake := &fakeQdrant{collections: map[string][]map[string]any{}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	s := NewQdrantStore(QdrantConfig{URL: srv.URL})
	ctx := context.Background()

	results, err := s.Query(ctx, "missing", []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("unknown namespace must not error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty results, got %d", len(results))
	}

	count, err := s.Count(ctx, "missing")
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("expected 0, got %d", count)
	}
}

func TestQdrantNamespacesStripPrefix(t *testing.T) {
	fake := &fakeQdrant{collections: map[string][]map[string]any{
		"docqa-report-1a2b3c4d": nil,
		"unrelated":             nil,
	}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	s := NewQdrantStore(QdrantConfig{URL: srv.URL})

	names, err := s.Namespaces(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || names[0] != "report-1a2b3c4d" {
		t.Errorf("unexpected namespaces: %v", names)
	}
}

func TestPointIDDeterministic(t *testing.T) {
	if pointID("doc-chunk-0") != pointID("doc-chunk-0") {
		t.Error("point id not deterministic")
	}
	if pointID("doc-chunk-0") == pointID("doc-chunk-1") {
		t.Error("distinct chunk ids collide")
	}
}
