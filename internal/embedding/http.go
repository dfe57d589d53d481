package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// HTTPEmbedder calls an OpenAI-compatible POST {base}/embeddings endpoint.
type HTTPEmbedder struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	retry      RetryConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// HTTPOption configures an HTTPEmbedder.
type HTTPOption func(*HTTPEmbedder)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(e *HTTPEmbedder) { e.httpClient = c }
}

// WithRetry replaces the default retry policy.
func WithRetry(r RetryConfig) HTTPOption {
	return func(e *HTTPEmbedder) { e.retry = r }
}

// WithHTTPLogger sets the logger.
func WithHTTPLogger(l *zap.Logger) HTTPOption {
	return func(e *HTTPEmbedder) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewHTTPEmbedder creates an embedder for the given endpoint. dimensions is sent with
// every request and enforced on every response.
func NewHTTPEmbedder(baseURL, apiKey, model string, dimensions int, timeout time.Duration, opts ...HTTPOption) (*HTTPEmbedder, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("embedding base url is required")
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	e := &HTTPEmbedder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		dimensions: dimensions,
		retry:      DefaultRetryConfig(),
		httpClient: &http.Client{Timeout: timeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Embed returns the embedding for a single text.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds texts in one request, retrying transient failures.
func (e *HTTPEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	start := time.Now()
	out, err := retryWithBackoff(ctx, e.retry, func() ([][]float32, error) {
		return e.callAPI(ctx, texts)
	})
	if err != nil {
		e.logger.Debug("embedding request failed", zap.Int("texts", len(texts)), zap.Error(err))
		return nil, err
	}
	e.logger.Debug("embedding request",
		zap.Int("texts", len(texts)),
		zap.Duration("took", time.Since(start)))
	return out, nil
}

type embeddingRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model,omitempty"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

func (e *HTTPEmbedder) callAPI(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embeddingRequest{Input: texts, Model: e.model, Dimensions: e.dimensions})
	if err != nil {
		return nil, permanent(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := fmt.Errorf("api error %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, permanent(apiErr)
		}
		return nil, apiErr
	}

	var apiResp embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(apiResp.Data) != len(texts) {
		return nil, permanent(fmt.Errorf("expected %d embeddings, got %d", len(texts), len(apiResp.Data)))
	}

	sort.SliceStable(apiResp.Data, func(i, j int) bool { return apiResp.Data[i].Index < apiResp.Data[j].Index })
	out := make([][]float32, len(apiResp.Data))
	for i, d := range apiResp.Data {
		if err := checkVector(d.Embedding, e.dimensions); err != nil {
			return nil, permanent(err)
		}
		out[i] = d.Embedding
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (e *HTTPEmbedder) Dimensions() int {
	return e.dimensions
}

// Close releases idle connections.
func (e *HTTPEmbedder) Close() error {
	e.httpClient.CloseIdleConnections()
	return nil
}
