package embedding

import (
	"context"
	"fmt"
	"time"
)

// Client turns text into fixed-length vectors via an external
// embedding service.
type Client interface {
	// Embed generates the vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates vectors for up to BatchSize texts in one
	// service call. Result order matches input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Name returns the client's provider name.
	Name() string

	// Dimensions returns the configured vector dimensionality.
	Dimensions() int
}

// Config holds embedding client settings.
type Config struct {
	APIKey     string        // service API key
	BaseURL    string        // service base URL
	Model      string        // embedding model name
	Timeout    time.Duration // per-request timeout
	Dimensions int           // vector dimensionality
	BatchSize  int           // maximum texts per batch request
}

// DefaultConfig returns the defaults for an OpenAI-compatible service.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "https://api.openai.com/v1",
		Model:      "text-embedding-3-small",
		Timeout:    30 * time.Second,
		Dimensions: 1536,
		BatchSize:  16,
	}
}

// Option mutates a Config.
type Option func(*Config)

// WithAPIKey sets the service API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithBaseURL sets the service base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithModel sets the embedding model name.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) { c.Timeout = timeout }
}

// WithDimensions sets the vector dimensionality.
func WithDimensions(dim int) Option {
	return func(c *Config) { c.Dimensions = dim }
}

// WithBatchSize sets the maximum number of texts per batch request.
func WithBatchSize(size int) Option {
	return func(c *Config) { c.BatchSize = size }
}

// NewConfig applies options over the defaults.
func NewConfig(opts ...Option) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Factory constructs a Client from options.
type Factory func(opts ...Option) (Client, error)

var clientFactories = make(map[string]Factory)

// RegisterClient registers a client factory under a provider name.
func RegisterClient(name string, factory Factory) {
	clientFactories[name] = factory
}

// NewClient creates a client by registered provider name.
func NewClient(name string, opts ...Option) (Client, error) {
	factory, ok := clientFactories[name]
	if !ok {
		return nil, fmt.Errorf("embedding client type not registered: %s", name)
	}
	return factory(opts...)
}
