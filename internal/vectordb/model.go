package vectordb

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyIndex       = errors.New("vector index is empty")
	ErrEntryNotFound    = errors.New("entry not found")
	ErrEmptyVector      = errors.New("empty vector")
	ErrInvalidDimension = errors.New("vector dimension mismatch")
)

// Entry is one indexed chunk: its vector plus enough metadata to cite
// the source without going back to the loader.
type Entry struct {
	ChunkID string    `json:"chunk_id"` // unique chunk identifier
	DocID   string    `json:"doc_id"`   // owning document
	Seq     int       `json:"seq"`      // chunk position within the document
	Source  string    `json:"source"`   // originating file path or URL
	Text    string    `json:"text"`     // chunk text
	Vector  []float32 `json:"vector"`   // embedding vector
}

// DistanceType selects the similarity metric.
type DistanceType string

const (
	Cosine     DistanceType = "cosine"
	DotProduct DistanceType = "dot"
	Euclidean  DistanceType = "l2"
)

// SearchResult pairs an entry with its similarity score.
type SearchResult struct {
	Entry    Entry
	Score    float32 // normalized similarity, higher is better
	Distance float32 // raw metric distance
}

// SearchFilter narrows a similarity search.
type SearchFilter struct {
	DocIDs     []string // restrict to these documents; empty means all
	MinScore   float32  // drop results scoring below this
	MaxResults int      // cap on returned results; <=0 means no cap
}

// DefaultSearchFilter returns the standard retrieval filter.
func DefaultSearchFilter() SearchFilter {
	return SearchFilter{
		MinScore:   0.0,
		MaxResults: 5,
	}
}

// Repository stores chunk embeddings and answers nearest-neighbour
// queries over them. Adding an entry whose ChunkID already exists
// replaces the stored entry, so re-indexing a document is idempotent.
type Repository interface {
	// Add stores or replaces a single entry.
	Add(entry Entry) error

	// AddBatch stores or replaces entries in one locked pass.
	AddBatch(entries []Entry) error

	// Get returns a stored entry by chunk ID.
	Get(chunkID string) (Entry, error)

	// Delete removes a single entry.
	Delete(chunkID string) error

	// DeleteByDocID removes every entry of a document.
	DeleteByDocID(docID string) error

	// Search returns entries nearest to the query vector, best first.
	// Searching an empty index returns ErrEmptyIndex.
	Search(vector []float32, filter SearchFilter) ([]SearchResult, error)

	// Count returns the number of stored entries.
	Count() (int, error)

	// Dimension returns the vector dimension the index accepts.
	Dimension() int

	// Close flushes and releases the index.
	Close() error
}

// Config selects and configures a repository backend.
type Config struct {
	Type              string       // backend name, "memory" or "faiss"
	Path              string       // index file path for persistent backends
	Dimension         int          // vector dimension
	DistanceType      DistanceType // similarity metric
	CreateIfNotExists bool         // create a fresh index when the file is absent
	InMemory          bool         // skip persistence even when Path is set
}

// Factory constructs a Repository from a config.
type Factory func(config Config) (Repository, error)

var repositoryRegistry = map[string]Factory{}

// RegisterRepository registers a backend factory under a name.
func RegisterRepository(name string, factory Factory) {
	repositoryRegistry[name] = factory
}

// NewRepository creates a repository by configured backend name.
// An unknown or empty type falls back to the memory backend.
func NewRepository(config Config) (Repository, error) {
	factory, ok := repositoryRegistry[config.Type]
	if !ok {
		factory = NewMemoryRepository
	}
	return factory(config)
}

// ValidateVector checks a vector against the expected dimension.
func ValidateVector(vector []float32, expectedDim int) error {
	if len(vector) == 0 {
		return ErrEmptyVector
	}
	if expectedDim > 0 && len(vector) != expectedDim {
		return fmt.Errorf("%w: expected %d, got %d", ErrInvalidDimension, expectedDim, len(vector))
	}
	return nil
}
