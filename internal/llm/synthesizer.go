package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DefaultSynthesisTemplate is the prompt used to condition the
// completion on retrieved passages. Variables:
// {{.Context}} - numbered retrieved passages
// {{.Question}} - the user question
const DefaultSynthesisTemplate = `You are a research assistant. Answer the question using only the reference passages below.
If the passages do not contain enough information, say so plainly instead of guessing.

Reference passages:
{{.Context}}

Question: {{.Question}}

Answer directly without restating the question.`

// Passage is a retrieved chunk handed to the synthesizer.
type Passage struct {
	ChunkID string  // id of the source chunk
	Source  string  // originating document source
	Text    string  // passage text
	Score   float32 // retrieval similarity score
}

// Citation points an answer back at a source passage.
type Citation struct {
	ChunkID string  `json:"chunk_id"`
	Source  string  `json:"source"`
	Score   float32 `json:"score"`
}

// Answer is a synthesized response with citations for exactly the
// passages that were part of the prompt context.
type Answer struct {
	Text      string     `json:"text"`
	Citations []Citation `json:"citations"`
}

// SynthesizerConfig controls prompt construction and generation.
type SynthesizerConfig struct {
	Template      string        // prompt template
	ContextBudget int           // maximum runes of passage text in the prompt
	MaxTokens     int           // generation token limit
	Temperature   float32       // sampling temperature
	Timeout       time.Duration // per-synthesis timeout
	Fallback      string        // answer to return when no context retrieved; empty means fail
}

// DefaultSynthesizerConfig returns the synthesis defaults.
func DefaultSynthesizerConfig() *SynthesizerConfig {
	return &SynthesizerConfig{
		Template:      DefaultSynthesisTemplate,
		ContextBudget: 6000,
		MaxTokens:     1024,
		Temperature:   0.7,
		Timeout:       60 * time.Second,
	}
}

// SynthesizerOption mutates a SynthesizerConfig.
type SynthesizerOption func(*SynthesizerConfig)

// WithTemplate sets the prompt template.
func WithTemplate(template string) SynthesizerOption {
	return func(c *SynthesizerConfig) { c.Template = template }
}

// WithContextBudget sets the passage-text budget in runes.
func WithContextBudget(budget int) SynthesizerOption {
	return func(c *SynthesizerConfig) { c.ContextBudget = budget }
}

// WithSynthesisMaxTokens sets the generation token limit.
func WithSynthesisMaxTokens(tokens int) SynthesizerOption {
	return func(c *SynthesizerConfig) { c.MaxTokens = tokens }
}

// WithSynthesisTemperature sets the sampling temperature.
func WithSynthesisTemperature(temp float32) SynthesizerOption {
	return func(c *SynthesizerConfig) { c.Temperature = temp }
}

// WithSynthesisTimeout sets the per-synthesis timeout.
func WithSynthesisTimeout(timeout time.Duration) SynthesizerOption {
	return func(c *SynthesizerConfig) { c.Timeout = timeout }
}

// WithFallback sets an answer to return instead of ErrNoContext when
// retrieval produced nothing.
func WithFallback(answer string) SynthesizerOption {
	return func(c *SynthesizerConfig) { c.Fallback = answer }
}

// Synthesizer turns a question plus retrieved passages into a cited
// answer via a completion service.
type Synthesizer struct {
	client Client
	config *SynthesizerConfig
}

// NewSynthesizer creates a synthesizer around a completion client.
func NewSynthesizer(client Client, opts ...SynthesizerOption) *Synthesizer {
	cfg := DefaultSynthesizerConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Synthesizer{client: client, config: cfg}
}

// Synthesize answers the question from the passages. Passages are
// admitted whole in rank order until the context budget is exhausted;
// a passage that does not fit entirely is dropped, never cut mid-text.
// Citations list exactly the passages that made it into the prompt.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, passages []Passage) (*Answer, error) {
	if question == "" {
		return nil, newServiceError(s.client.Name(), ErrEmptyPrompt, nil)
	}

	if len(passages) == 0 {
		if s.config.Fallback != "" {
			return &Answer{Text: s.config.Fallback, Citations: []Citation{}}, nil
		}
		return nil, ErrNoContext
	}

	included := s.fitToBudget(passages)
	if len(included) == 0 {
		if s.config.Fallback != "" {
			return &Answer{Text: s.config.Fallback, Citations: []Citation{}}, nil
		}
		return nil, ErrNoContext
	}

	prompt := s.buildPrompt(question, included)

	synthCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	resp, err := s.client.Generate(synthCtx, prompt,
		WithGenerateMaxTokens(s.config.MaxTokens),
		WithGenerateTemperature(s.config.Temperature),
	)
	if err != nil {
		return nil, err
	}

	citations := make([]Citation, len(included))
	for i, p := range included {
		citations[i] = Citation{ChunkID: p.ChunkID, Source: p.Source, Score: p.Score}
	}

	return &Answer{Text: resp.Text, Citations: citations}, nil
}

// fitToBudget keeps passages whole, in rank order, while their
// combined rune count stays within the context budget.
func (s *Synthesizer) fitToBudget(passages []Passage) []Passage {
	budget := s.config.ContextBudget
	if budget <= 0 {
		return passages
	}

	var included []Passage
	used := 0
	for _, p := range passages {
		cost := len([]rune(p.Text))
		if used+cost > budget {
			break
		}
		included = append(included, p)
		used += cost
	}
	return included
}

func (s *Synthesizer) buildPrompt(question string, passages []Passage) string {
	var sb strings.Builder
	for i, p := range passages {
		fmt.Fprintf(&sb, "[%d] %s\n\n", i+1, p.Text)
	}

	prompt := s.config.Template
	prompt = strings.ReplaceAll(prompt, "{{.Context}}", strings.TrimSpace(sb.String()))
	prompt = strings.ReplaceAll(prompt, "{{.Question}}", question)
	return prompt
}
