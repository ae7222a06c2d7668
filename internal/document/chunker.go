package document

import (
	"errors"
	"fmt"
)

// ErrInvalidChunking reports a chunker configuration that violates
// 0 <= overlap < chunk size.
var ErrInvalidChunking = errors.New("document: invalid chunker configuration")

// ChunkerConfig controls how document text is split into passages.
type ChunkerConfig struct {
	ChunkSize int // maximum runes per chunk
	Overlap   int // runes shared between consecutive chunks
}

// DefaultChunkerConfig returns the defaults used across the system.
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{
		ChunkSize: 1000,
		Overlap:   200,
	}
}

// Chunker splits document text into overlapping fixed-size passages.
// Splitting is deterministic: the same document and configuration
// always produce the same chunk sequence, including chunk ids, so
// re-ingestion replaces index entries instead of duplicating them.
type Chunker struct {
	config ChunkerConfig
}

// NewChunker validates the configuration and creates a chunker.
func NewChunker(config ChunkerConfig) (*Chunker, error) {
	if config.ChunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d must be positive", ErrInvalidChunking, config.ChunkSize)
	}
	if config.Overlap < 0 || config.Overlap >= config.ChunkSize {
		return nil, fmt.Errorf("%w: overlap %d must satisfy 0 <= overlap < chunk size %d",
			ErrInvalidChunking, config.Overlap, config.ChunkSize)
	}
	return &Chunker{config: config}, nil
}

// Config returns the chunker's configuration.
func (c *Chunker) Config() ChunkerConfig { return c.config }

// Chunk splits the document into passages. Windows advance by
// (ChunkSize - Overlap) runes; every chunk after the first shares
// exactly Overlap runes with its predecessor, except that the final
// chunk may be shorter than ChunkSize. No chunk is ever empty.
func (c *Chunker) Chunk(doc *Document) []Chunk {
	runes := []rune(doc.Text())
	if len(runes) == 0 {
		return nil
	}

	stride := c.config.ChunkSize - c.config.Overlap
	var chunks []Chunk
	for start := 0; start < len(runes); start += stride {
		end := start + c.config.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		seq := len(chunks)
		chunks = append(chunks, Chunk{
			ID:    ChunkID(doc.ID, seq),
			DocID: doc.ID,
			Seq:   seq,
			Text:  string(runes[start:end]),
			Start: start,
			End:   end,
		})
		if end == len(runes) {
			break
		}
	}

	// Wire up overlap adjacency.
	for i := range chunks {
		if i > 0 {
			chunks[i].PrevID = chunks[i-1].ID
		}
		if i < len(chunks)-1 {
			chunks[i].NextID = chunks[i+1].ID
		}
	}

	return chunks
}
