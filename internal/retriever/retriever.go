package retriever

import (
	"context"
	"errors"
	"fmt"

	"github.com/mattvess/research-rag/internal/embedding"
	"github.com/mattvess/research-rag/internal/llm"
	"github.com/mattvess/research-rag/internal/vectordb"
)

var ErrEmptyQuery = errors.New("empty query")

// Config controls how many passages come back and how weak a match is
// still worth keeping.
type Config struct {
	TopK     int     // maximum passages per query
	MinScore float32 // similarity floor; weaker matches are dropped
}

// DefaultConfig returns the standard retrieval settings.
func DefaultConfig() Config {
	return Config{
		TopK:     5,
		MinScore: 0.5,
	}
}

// Retriever embeds a query and finds the most similar indexed chunks.
type Retriever struct {
	embedder embedding.Client
	repo     vectordb.Repository
	config   Config
}

// New creates a retriever over an embedding client and a vector index.
func New(embedder embedding.Client, repo vectordb.Repository, config Config) *Retriever {
	if config.TopK <= 0 {
		config.TopK = DefaultConfig().TopK
	}
	return &Retriever{embedder: embedder, repo: repo, config: config}
}

// Retrieve embeds the query and returns the nearest passages, best
// first. Fewer than TopK results come back when the index is small or
// the score floor filters matches out; an empty result is not an
// error. Querying an empty index is: vectordb.ErrEmptyIndex surfaces
// unwrapped so callers can map it to their not-ready state.
func (r *Retriever) Retrieve(ctx context.Context, query string, docIDs ...string) ([]llm.Passage, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := r.repo.Search(vector, vectordb.SearchFilter{
		DocIDs:     docIDs,
		MinScore:   r.config.MinScore,
		MaxResults: r.config.TopK,
	})
	if err != nil {
		if errors.Is(err, vectordb.ErrEmptyIndex) {
			return nil, err
		}
		return nil, fmt.Errorf("searching index: %w", err)
	}

	passages := make([]llm.Passage, len(results))
	for i, res := range results {
		passages[i] = llm.Passage{
			ChunkID: res.Entry.ChunkID,
			Source:  res.Entry.Source,
			Text:    res.Entry.Text,
			Score:   res.Score,
		}
	}
	return passages, nil
}
