package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// OpenAIClient talks to an OpenAI-compatible /embeddings endpoint.
// Any hosted or local service exposing that contract is interchangeable.
type OpenAIClient struct {
	httpClient *http.Client
	config     *Config
}

// NewOpenAIClient creates an embedding client for an OpenAI-compatible
// service.
func NewOpenAIClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)
	if cfg.APIKey == "" {
		return nil, newServiceError("openai", ErrUnauthorized, errors.New("API key is required"))
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 16
	}
	return &OpenAIClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
	}, nil
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string { return "openai" }

// Dimensions returns the configured vector dimensionality.
func (c *OpenAIClient) Dimensions() int { return c.config.Dimensions }

// Embed generates the vector for a single text.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, newServiceError(c.Name(), ErrEmptyInput, nil)
	}
	vectors, err := c.request(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates vectors for up to BatchSize texts in one call.
func (c *OpenAIClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if len(texts) > c.config.BatchSize {
		return nil, newServiceError(c.Name(), ErrInvalidInput,
			fmt.Errorf("batch of %d exceeds limit %d", len(texts), c.config.BatchSize))
	}
	for _, text := range texts {
		if text == "" {
			return nil, newServiceError(c.Name(), ErrEmptyInput, nil)
		}
	}
	return c.request(ctx, texts)
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// request performs one embeddings call and maps failures onto the
// package's error kinds. Retry is deliberately left to the caller.
func (c *OpenAIClient) request(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embeddingRequest{Input: texts, Model: c.config.Model})
	if err != nil {
		return nil, newServiceError(c.Name(), ErrInvalidInput, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, newServiceError(c.Name(), ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, newServiceError(c.Name(), ErrTimeout, err)
		}
		return nil, newServiceError(c.Name(), ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newServiceError(c.Name(), ErrTransport, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, newServiceError(c.Name(), ErrRateLimited, apiError(data))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, newServiceError(c.Name(), ErrUnauthorized, apiError(data))
	case resp.StatusCode >= 400:
		return nil, newServiceError(c.Name(), ErrTransport,
			fmt.Errorf("status %d: %v", resp.StatusCode, apiError(data)))
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, newServiceError(c.Name(), ErrTransport, err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, newServiceError(c.Name(), ErrTransport,
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(parsed.Data)))
	}

	// The service may reorder results; index restores input order.
	vectors := make([][]float32, len(texts))
	for _, item := range parsed.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, newServiceError(c.Name(), ErrTransport,
				fmt.Errorf("embedding index %d out of range", item.Index))
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}

func apiError(body []byte) error {
	var parsed embeddingResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil {
		return fmt.Errorf("%s: %s", parsed.Error.Type, parsed.Error.Message)
	}
	return fmt.Errorf("%s", bytes.TrimSpace(body))
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

func init() {
	RegisterClient("openai", NewOpenAIClient)
}
