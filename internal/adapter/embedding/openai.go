package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/sethvargo/go-retry"

	"docqa/internal/domain"
)

const (
	defaultBatchSize   = 100
	defaultMaxAttempts = 3
	defaultBackoffBase = 1 * time.Second
)

// Client is an OpenAI-compatible embeddings client. Chunks are embedded
// in batches; each batch is retried with exponential backoff when the
// provider reports rate limiting, and fails fast on anything else.
type Client struct {
	apiKey      string
	model       string
	baseURL     string
	dimension   int
	batchSize   int
	maxAttempts int
	backoffBase time.Duration
	client      *http.Client
}

// Config configures the embeddings client.
type Config struct {
	APIKeyEnv   string
	Model       string
	BaseURL     string
	Dimension   int
	BatchSize   int
	MaxAttempts int
	BackoffBase time.Duration
	Timeout     time.Duration
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Error *apiError       `json:"error,omitempty"`
}

type embeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func NewClient(cfg Config) (*Client, error) {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", cfg.APIKeyEnv)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}

	dimension := cfg.Dimension
	if dimension == 0 {
		switch cfg.Model {
		case "text-embedding-3-small":
			dimension = 1536
		case "text-embedding-3-large":
			dimension = 3072
		case "text-embedding-ada-002":
			dimension = 1536
		default:
			dimension = 1536
		}
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	backoffBase := cfg.BackoffBase
	if backoffBase <= 0 {
		backoffBase = defaultBackoffBase
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		apiKey:      apiKey,
		model:       cfg.Model,
		baseURL:     cfg.BaseURL,
		dimension:   dimension,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
		client:      &http.Client{Timeout: timeout},
	}, nil
}

// EmbedBatch embeds chunks in provider-sized batches, sequentially,
// concatenating results in input order.
func (c *Client) EmbedBatch(ctx context.Context, chunks []domain.TextChunk) ([]domain.EmbeddingResult, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	results := make([]domain.EmbeddingResult, 0, len(chunks))

	for i := 0; i < len(chunks); i += c.batchSize {
		end := i + c.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[i:end]

		texts := make([]string, len(batch))
		for j, chunk := range batch {
			texts[j] = chunk.Text
		}

		vectors, err := c.embedWithRetry(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d-%d failed: %w", i, end, err)
		}

		for j, chunk := range batch {
			results = append(results, domain.EmbeddingResult{
				ChunkID: chunk.ID,
				Vector:  vectors[j],
			})
		}
	}

	return results, nil
}

// EmbedQuery embeds a single string: a batch of one under the same
// retry policy.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.embedWithRetry(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}
	return vectors[0], nil
}

func (c *Client) Dimension() int {
	return c.dimension
}

func (c *Client) ModelName() string {
	return c.model
}

// embedWithRetry retries rate-limited calls with exponential backoff
// (base delay doubling per attempt) up to the attempt ceiling. Any
// other failure is returned immediately.
func (c *Client) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32

	backoff := retry.WithMaxRetries(uint64(c.maxAttempts-1), retry.NewExponential(c.backoffBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		v, err := c.embedOnce(ctx, texts)
		if err != nil {
			if errors.Is(err, domain.ErrRateLimited) {
				return retry.RetryableError(err)
			}
			return err
		}
		vectors = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

func (c *Client) embedOnce(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := embeddingRequest{
		Input: texts,
		Model: c.model,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("embeddings API returned 429: %w", domain.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embeddings API returned status %d: %s", resp.StatusCode, string(body))
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if embResp.Error != nil {
		return nil, fmt.Errorf("embeddings API error: %s", embResp.Error.Message)
	}

	if len(embResp.Data) != len(texts) {
		return nil, &domain.CountMismatchError{Sent: len(texts), Got: len(embResp.Data)}
	}

	// The provider may return entries out of order; reassemble by index
	// and reject anything that does not line up one-to-one.
	vectors := make([][]float32, len(texts))
	for _, data := range embResp.Data {
		if data.Index < 0 || data.Index >= len(vectors) || vectors[data.Index] != nil {
			return nil, &domain.CountMismatchError{Sent: len(texts), Got: len(embResp.Data)}
		}
		vectors[data.Index] = data.Embedding
	}
	for _, v := range vectors {
		if v == nil {
			return nil, &domain.CountMismatchError{Sent: len(texts), Got: len(embResp.Data)}
		}
	}

	return vectors, nil
}

// MockEmbedder produces deterministic vectors without network access.
type MockEmbedder struct {
	dimension int
}

func NewMockEmbedder(dimension int) *MockEmbedder {
	if dimension <= 0 {
		dimension = 1536
	}
	return &MockEmbedder{dimension: dimension}
}

func (e *MockEmbedder) EmbedBatch(ctx context.Context, chunks []domain.TextChunk) ([]domain.EmbeddingResult, error) {
	results := make([]domain.EmbeddingResult, len(chunks))
	for i, chunk := range chunks {
		results[i] = domain.EmbeddingResult{
			ChunkID: chunk.ID,
			Vector:  e.vectorFor(chunk.Text),
		}
	}
	return results, nil
}

func (e *MockEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.vectorFor(text), nil
}

func (e *MockEmbedder) vectorFor(text string) []float32 {
	vector := make([]float32, e.dimension)
	for i, r := range text {
		if i >= e.dimension {
			break
		}
		vector[i] = float32(r) / 1000.0
	}
	return vector
}

func (e *MockEmbedder) Dimension() int {
	return e.dimension
}

func (e *MockEmbedder) ModelName() string {
	return "mock"
}
