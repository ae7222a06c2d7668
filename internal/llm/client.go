package llm

import (
	"context"
	"fmt"
	"time"
)

// Client generates natural-language completions from an external
// language-model service.
type Client interface {
	// Generate produces a completion for the prompt.
	Generate(ctx context.Context, prompt string, opts ...GenerateOption) (*Response, error)

	// Name returns the client's provider name.
	Name() string
}

// Response is a completion result.
type Response struct {
	Text         string // generated text
	Model        string // model that produced it
	PromptTokens int    // tokens consumed by the prompt, if reported
	OutputTokens int    // tokens generated, if reported
}

// Config holds completion client settings.
type Config struct {
	APIKey      string        // service API key
	BaseURL     string        // service base URL
	Model       string        // model name
	Timeout     time.Duration // per-request timeout
	MaxTokens   int           // maximum tokens to generate
	Temperature float32       // sampling temperature
}

// DefaultConfig returns the defaults for an OpenAI-compatible service.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     "https://api.openai.com/v1",
		Model:       "gpt-4o-mini",
		Timeout:     60 * time.Second,
		MaxTokens:   1024,
		Temperature: 0.7,
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

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) { c.Timeout = timeout }
}

// WithMaxTokens sets the generation token limit.
func WithMaxTokens(tokens int) Option {
	return func(c *Config) { c.MaxTokens = tokens }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temp float32) Option {
	return func(c *Config) { c.Temperature = temp }
}

// NewConfig applies options over the defaults.
func NewConfig(opts ...Option) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// GenerateOptions are per-request overrides.
type GenerateOptions struct {
	MaxTokens   *int
	Temperature *float32
}

// GenerateOption mutates per-request options.
type GenerateOption func(*GenerateOptions)

// WithGenerateMaxTokens overrides the token limit for one request.
func WithGenerateMaxTokens(tokens int) GenerateOption {
	return func(o *GenerateOptions) { o.MaxTokens = &tokens }
}

// WithGenerateTemperature overrides the temperature for one request.
func WithGenerateTemperature(temp float32) GenerateOption {
	return func(o *GenerateOptions) { o.Temperature = &temp }
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
		return nil, fmt.Errorf("llm client type not registered: %s", name)
	}
	return factory(opts...)
}
