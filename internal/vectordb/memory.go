package vectordb

import (
	"fmt"
	"sync"
)

// MemoryRepository keeps the whole index in process memory. It is the
// default backend for single-node deployments and tests.
type MemoryRepository struct {
	mu        sync.RWMutex
	dimension int
	distType  DistanceType
	entries   map[string]Entry
	order     []string            // chunk IDs in first-insertion order
	docToIDs  map[string][]string // document ID -> its chunk IDs
}

// NewMemoryRepository creates an in-memory vector repository.
func NewMemoryRepository(config Config) (Repository, error) {
	if config.Dimension <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive")
	}

	distType := config.DistanceType
	if distType != Cosine && distType != DotProduct && distType != Euclidean {
		distType = Cosine
	}

	return &MemoryRepository{
		dimension: config.Dimension,
		distType:  distType,
		entries:   make(map[string]Entry),
		docToIDs:  make(map[string][]string),
	}, nil
}

// Add stores or replaces a single entry.
func (r *MemoryRepository) Add(entry Entry) error {
	if err := ValidateVector(entry.Vector, r.dimension); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.put(entry)
	return nil
}

// AddBatch stores or replaces entries under one lock. Vectors are
// validated up front so a bad entry leaves the index untouched.
func (r *MemoryRepository) AddBatch(entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	for i := range entries {
		if err := ValidateVector(entries[i].Vector, r.dimension); err != nil {
			return fmt.Errorf("invalid vector for chunk %s: %w", entries[i].ChunkID, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range entries {
		r.put(entries[i])
	}
	return nil
}

// put assumes the write lock is held and the vector is valid.
// Replacing an existing chunk ID keeps its slot in the insertion
// order, so re-indexing a document never grows the index.
func (r *MemoryRepository) put(entry Entry) {
	if r.distType == Cosine {
		entry.Vector = normalizeVector(entry.Vector)
	}

	_, exists := r.entries[entry.ChunkID]
	r.entries[entry.ChunkID] = entry
	if exists {
		return
	}
	r.order = append(r.order, entry.ChunkID)
	r.docToIDs[entry.DocID] = append(r.docToIDs[entry.DocID], entry.ChunkID)
}

// Get returns a stored entry by chunk ID.
func (r *MemoryRepository) Get(chunkID string) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[chunkID]
	if !exists {
		return Entry{}, ErrEntryNotFound
	}
	return entry, nil
}

// Delete removes a single entry.
func (r *MemoryRepository) Delete(chunkID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.entries[chunkID]
	if !exists {
		return ErrEntryNotFound
	}
	delete(r.entries, chunkID)
	r.dropFromOrder(chunkID)
	r.dropFromDoc(entry.DocID, chunkID)
	return nil
}

// DeleteByDocID removes every entry of a document. Removing an
// unknown document is a no-op.
func (r *MemoryRepository) DeleteByDocID(docID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	chunkIDs, exists := r.docToIDs[docID]
	if !exists {
		return nil
	}
	for _, id := range chunkIDs {
		delete(r.entries, id)
		r.dropFromOrder(id)
	}
	delete(r.docToIDs, docID)
	return nil
}

func (r *MemoryRepository) dropFromOrder(chunkID string) {
	for i, id := range r.order {
		if id == chunkID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

func (r *MemoryRepository) dropFromDoc(docID, chunkID string) {
	ids, ok := r.docToIDs[docID]
	if !ok {
		return
	}
	kept := make([]string, 0, len(ids)-1)
	for _, id := range ids {
		if id != chunkID {
			kept = append(kept, id)
		}
	}
	if len(kept) == 0 {
		delete(r.docToIDs, docID)
	} else {
		r.docToIDs[docID] = kept
	}
}

// Search scans the index linearly and returns the nearest entries,
// best first. Ties are broken by insertion order, which follows
// document order for sequentially indexed chunks.
func (r *MemoryRepository) Search(vector []float32, filter SearchFilter) ([]SearchResult, error) {
	if err := ValidateVector(vector, r.dimension); err != nil {
		return nil, err
	}
	if r.distType == Cosine {
		vector = normalizeVector(vector)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.entries) == 0 {
		return nil, ErrEmptyIndex
	}

	results := make([]SearchResult, 0, len(r.entries))
	for _, chunkID := range r.order {
		entry := r.entries[chunkID]
		if !matchDocIDs(entry.DocID, filter.DocIDs) {
			continue
		}

		dist, err := ComputeDistance(vector, entry.Vector, r.distType)
		if err != nil {
			return nil, fmt.Errorf("computing distance for chunk %s: %w", chunkID, err)
		}
		score := DistanceToScore(dist, r.distType)
		if score < filter.MinScore {
			continue
		}
		results = append(results, SearchResult{Entry: entry, Score: score, Distance: dist})
	}

	sortSearchResults(results)
	if filter.MaxResults > 0 && len(results) > filter.MaxResults {
		results = results[:filter.MaxResults]
	}
	return results, nil
}

// Count returns the number of stored entries.
func (r *MemoryRepository) Count() (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries), nil
}

// Dimension returns the accepted vector dimension.
func (r *MemoryRepository) Dimension() int {
	return r.dimension
}

// Close is a no-op for the memory backend.
func (r *MemoryRepository) Close() error {
	return nil
}

func init() {
	RegisterRepository("memory", NewMemoryRepository)
}
