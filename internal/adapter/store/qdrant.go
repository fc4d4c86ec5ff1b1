package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net/http"
	"strings"
	"time"

	"docqa/internal/domain"
)

// QdrantStore is the managed-service vector store: one Qdrant collection
// per namespace, created on first upsert with cosine distance. Batching,
// persistence and similarity ranking are the service's concern; this
// client only maps the namespace contract onto the REST API.
type QdrantStore struct {
	url    string
	apiKey string
	prefix string
	client *http.Client
}

// QdrantConfig configures the Qdrant REST client.
type QdrantConfig struct {
	URL              string
	APIKey           string
	CollectionPrefix string
	Timeout          time.Duration
}

func NewQdrantStore(cfg QdrantConfig) *QdrantStore {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	prefix := cfg.CollectionPrefix
	if prefix == "" {
		prefix = "docqa-"
	}
	return &QdrantStore{
		url:    strings.TrimRight(cfg.URL, "/"),
		apiKey: cfg.APIKey,
		prefix: prefix,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *QdrantStore) UpsertMany(ctx context.Context, namespace string, items []domain.StoredChunk) error {
	if len(items) == 0 {
		return nil
	}

	collection := s.collectionName(namespace)
	if err := s.ensureCollection(ctx, collection, len(items[0].Vector)); err != nil {
		return err
	}

	points := make([]map[string]any, len(items))
	for i, item := range items {
		points[i] = map[string]any{
			// Qdrant point ids must be integers or UUIDs; the chunk id
			// itself travels in the payload.
			"id":     pointID(item.ID),
			"vector": item.Vector,
			"payload": map[string]any{
				"id":     item.ID,
				"text":   item.Text,
				"source": item.Source,
			},
		}
	}

	body := map[string]any{"points": points}
	return s.putJSON(ctx, fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, collection), body, nil)
}

func (s *QdrantStore) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]domain.ScoredChunk, error) {
	collection := s.collectionName(namespace)

	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
		"with_vector":  true,
	}
	var resp struct {
		Result []struct {
			Score   float64         `json:"score"`
			Vector  []float32       `json:"vector"`
			Payload map[string]any  `json:"payload"`
		} `json:"result"`
	}

	status, err := s.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/search", s.url, collection), req, &resp)
	if status == http.StatusNotFound {
		// Namespace never written: empty result, not an error.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	results := make([]domain.ScoredChunk, 0, len(resp.Result))
	for _, r := range resp.Result {
		chunk := domain.StoredChunk{Vector: r.Vector}
		if v, ok := r.Payload["id"].(string); ok {
			chunk.ID = v
		}
		if v, ok := r.Payload["text"].(string); ok {
			chunk.Text = v
		}
		if v, ok := r.Payload["source"].(string); ok {
			chunk.Source = v
		}
		results = append(results, domain.ScoredChunk{Chunk: chunk, Score: r.Score})
	}
	return results, nil
}

func (s *QdrantStore) Count(ctx context.Context, namespace string) (int, error) {
	collection := s.collectionName(namespace)

	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	status, err := s.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/count", s.url, collection),
		map[string]any{"exact": true}, &resp)
	if status == http.StatusNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

func (s *QdrantStore) Namespaces(ctx context.Context) ([]string, error) {
	var resp struct {
		Result struct {
			Collections []struct {
				Name string `json:"name"`
			} `json:"collections"`
		} `json:"result"`
	}
	if _, err := s.getJSON(ctx, s.url+"/collections", &resp); err != nil {
		return nil, err
	}

	var names []string
	for _, c := range resp.Result.Collections {
		if strings.HasPrefix(c.Name, s.prefix) {
			names = append(names, strings.TrimPrefix(c.Name, s.prefix))
		}
	}
	return names, nil
}

func (s *QdrantStore) collectionName(namespace string) string {
	return s.prefix + namespace
}

func (s *QdrantStore) ensureCollection(ctx context.Context, collection string, dimension int) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	// Returns 200 when the collection already exists with the same schema.
	return s.putJSON(ctx, fmt.Sprintf("%s/collections/%s", s.url, collection), body, nil)
}

// pointID maps a chunk id onto the integer id space Qdrant accepts.
func pointID(id string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(id))
	return h.Sum64()
}

func (s *QdrantStore) putJSON(ctx context.Context, url string, body, out any) error {
	_, err := s.doJSON(ctx, http.MethodPut, url, body, out)
	return err
}

func (s *QdrantStore) postJSON(ctx context.Context, url string, body, out any) (int, error) {
	return s.doJSON(ctx, http.MethodPost, url, body, out)
}

func (s *QdrantStore) getJSON(ctx context.Context, url string, out any) (int, error) {
	return s.doJSON(ctx, http.MethodGet, url, nil, out)
}

func (s *QdrantStore) doJSON(ctx context.Context, method, url string, body, out any) (int, error) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return resp.StatusCode, fmt.Errorf("qdrant %s %s: %s", method, url, resp.Status)
	}
	if resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("qdrant response decode failed: %w", err)
		}
	}
	return resp.StatusCode, nil
}
