package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// OpenAIClient talks to an OpenAI-compatible /chat/completions
// endpoint.
type OpenAIClient struct {
	httpClient *http.Client
	config     *Config
}

// NewOpenAIClient creates a completion client for an OpenAI-compatible
// service.
func NewOpenAIClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)
	if cfg.APIKey == "" {
		return nil, newServiceError("openai", ErrUnauthorized, errors.New("API key is required"))
	}
	return &OpenAIClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
	}, nil
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string { return "openai" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Generate produces a completion for the prompt.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, opts ...GenerateOption) (*Response, error) {
	if prompt == "" {
		return nil, newServiceError(c.Name(), ErrEmptyPrompt, nil)
	}

	var genOpts GenerateOptions
	for _, opt := range opts {
		opt(&genOpts)
	}

	reqBody := chatRequest{
		Model:       c.config.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
	}
	if genOpts.MaxTokens != nil {
		reqBody.MaxTokens = *genOpts.MaxTokens
	}
	if genOpts.Temperature != nil {
		reqBody.Temperature = *genOpts.Temperature
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, newServiceError(c.Name(), ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/chat/completions", bytes.NewReader(body))
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

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, newServiceError(c.Name(), ErrTransport, err)
	}
	if len(parsed.Choices) == 0 {
		return nil, newServiceError(c.Name(), ErrTransport, errors.New("no choices in response"))
	}

	return &Response{
		Text:         parsed.Choices[0].Message.Content,
		Model:        parsed.Model,
		PromptTokens: parsed.Usage.PromptTokens,
		OutputTokens: parsed.Usage.CompletionTokens,
	}, nil
}

func apiError(body []byte) error {
	var parsed chatResponse
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
