//go:build cgo

package vectordb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/DataIntelligenceCrew/go-faiss"
)

// FaissRepository backs the index with a flat Faiss index plus a JSON
// metadata sidecar. A flat index cannot remove vectors in place, so
// deleting or replacing an entry tombstones its old position; stale
// positions are skipped during search and dropped on the next save.
type FaissRepository struct {
	mu             sync.RWMutex
	index          faiss.Index
	entries        map[string]Entry
	idToPos        map[string]int
	posToID        map[int]string
	docToIDs       map[string][]string
	indexPath      string
	metaPath       string
	dimension      int
	distType       DistanceType
	saveOnClose    bool
	autoSaveCount  int
	operationCount int
}

// NewFaissRepository opens or creates a Faiss-backed repository.
func NewFaissRepository(config Config) (Repository, error) {
	if config.Dimension <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive")
	}

	if config.Path != "" && !config.InMemory {
		if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
			return nil, fmt.Errorf("creating index directory: %w", err)
		}
	}

	distType := config.DistanceType
	if distType == "" {
		distType = Cosine
	}

	indexPath := config.Path
	metaPath := ""
	if indexPath != "" {
		metaPath = indexPath + ".meta.json"
	}

	repo := &FaissRepository{
		entries:       make(map[string]Entry),
		idToPos:       make(map[string]int),
		posToID:       make(map[int]string),
		docToIDs:      make(map[string][]string),
		indexPath:     indexPath,
		metaPath:      metaPath,
		dimension:     config.Dimension,
		distType:      distType,
		saveOnClose:   true,
		autoSaveCount: 100,
	}

	var index faiss.Index
	var err error

	if indexPath != "" && !config.InMemory && fileExists(indexPath) {
		index, err = faiss.ReadIndex(indexPath, 0)
		if err != nil {
			if !config.CreateIfNotExists {
				return nil, fmt.Errorf("reading index file: %w", err)
			}
			index, err = newFlatIndex(config.Dimension, distType)
			if err != nil {
				return nil, err
			}
		} else if err := repo.loadMetadata(); err != nil {
			return nil, fmt.Errorf("loading index metadata: %w", err)
		}
	} else {
		index, err = newFlatIndex(config.Dimension, distType)
		if err != nil {
			return nil, err
		}
	}

	repo.index = index
	return repo, nil
}

func newFlatIndex(dimension int, distType DistanceType) (faiss.Index, error) {
	var metric int
	switch distType {
	case Cosine, DotProduct:
		metric = faiss.MetricInnerProduct
	default:
		metric = faiss.MetricL2
	}
	index, err := faiss.NewIndexFlat(dimension, metric)
	if err != nil {
		return nil, fmt.Errorf("creating faiss index: %w", err)
	}
	return index, nil
}

// Add stores or replaces a single entry.
func (r *FaissRepository) Add(entry Entry) error {
	return r.AddBatch([]Entry{entry})
}

// AddBatch stores or replaces entries under one lock. Vectors are
// validated up front so a bad entry leaves the index untouched.
func (r *FaissRepository) AddBatch(entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	for i := range entries {
		if err := ValidateVector(entries[i].Vector, r.dimension); err != nil {
			return fmt.Errorf("invalid vector for chunk %s: %w", entries[i].ChunkID, err)
		}
		if r.distType == Cosine {
			entries[i].Vector = normalizeVector(entries[i].Vector)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range entries {
		entry := entries[i]
		nextPos := int(r.index.Ntotal())
		if err := r.index.Add(entry.Vector); err != nil {
			return fmt.Errorf("adding vector to index: %w", err)
		}

		if oldPos, exists := r.idToPos[entry.ChunkID]; exists {
			// tombstone the superseded position
			delete(r.posToID, oldPos)
		} else {
			r.docToIDs[entry.DocID] = append(r.docToIDs[entry.DocID], entry.ChunkID)
		}
		r.entries[entry.ChunkID] = entry
		r.idToPos[entry.ChunkID] = nextPos
		r.posToID[nextPos] = entry.ChunkID
	}

	r.operationCount += len(entries)
	return r.maybeSave()
}

// Get returns a stored entry by chunk ID.
func (r *FaissRepository) Get(chunkID string) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[chunkID]
	if !exists {
		return Entry{}, ErrEntryNotFound
	}
	return entry, nil
}

// Delete removes a single entry.
func (r *FaissRepository) Delete(chunkID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.entries[chunkID]
	if !exists {
		return ErrEntryNotFound
	}
	r.remove(chunkID)
	r.dropFromDoc(entry.DocID, chunkID)
	r.operationCount++
	return nil
}

// DeleteByDocID removes every entry of a document. Removing an
// unknown document is a no-op.
func (r *FaissRepository) DeleteByDocID(docID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	chunkIDs, exists := r.docToIDs[docID]
	if !exists {
		return nil
	}
	for _, id := range chunkIDs {
		r.remove(id)
	}
	delete(r.docToIDs, docID)
	r.operationCount += len(chunkIDs)
	return nil
}

// remove assumes the write lock is held.
func (r *FaissRepository) remove(chunkID string) {
	if pos, ok := r.idToPos[chunkID]; ok {
		delete(r.posToID, pos)
	}
	delete(r.idToPos, chunkID)
	delete(r.entries, chunkID)
}

func (r *FaissRepository) dropFromDoc(docID, chunkID string) {
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

// Search queries the Faiss index and maps hit positions back to
// entries, skipping tombstoned positions.
func (r *FaissRepository) Search(vector []float32, filter SearchFilter) ([]SearchResult, error) {
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

	// Query every stored position. A flat index scans linearly
	// anyway, and tombstones make a tight k unreliable.
	total := r.index.Ntotal()
	distances, indices, err := r.index.Search(vector, total)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	k := filter.MaxResults
	var results []SearchResult
	for i := 0; i < len(indices); i++ {
		pos := indices[i]
		if pos < 0 {
			continue
		}
		chunkID, live := r.posToID[int(pos)]
		if !live {
			continue
		}
		entry := r.entries[chunkID]
		if !matchDocIDs(entry.DocID, filter.DocIDs) {
			continue
		}

		var dist float32
		if r.distType == Euclidean {
			// faiss reports squared L2 for flat indexes
			dist = euclideanDistance(vector, entry.Vector)
		} else {
			dist = distances[i]
		}
		score := DistanceToScore(faissDistance(dist, r.distType), r.distType)
		if score < filter.MinScore {
			continue
		}
		results = append(results, SearchResult{Entry: entry, Score: score, Distance: dist})
		if k > 0 && len(results) >= k {
			break
		}
	}

	sortSearchResults(results)
	return results, nil
}

// faissDistance converts an inner-product hit back to the package's
// distance convention. Cosine over normalized vectors means the inner
// product equals similarity, and cosine distance is its complement.
func faissDistance(dist float32, distType DistanceType) float32 {
	if distType == Cosine {
		if dist > 1.0 {
			dist = 1.0
		}
		return 1.0 - dist
	}
	return dist
}

// Count returns the number of live entries.
func (r *FaissRepository) Count() (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries), nil
}

// Dimension returns the accepted vector dimension.
func (r *FaissRepository) Dimension() int {
	return r.dimension
}

// Close persists the index when a path is configured.
func (r *FaissRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.saveOnClose && r.indexPath != "" {
		if err := r.saveIndex(); err != nil {
			return fmt.Errorf("saving index on close: %w", err)
		}
	}
	return nil
}

// maybeSave assumes the write lock is held.
func (r *FaissRepository) maybeSave() error {
	if r.indexPath == "" || r.operationCount < r.autoSaveCount {
		return nil
	}
	if err := r.saveIndex(); err != nil {
		return fmt.Errorf("auto-save failed: %w", err)
	}
	r.operationCount = 0
	return nil
}

type faissMetadata struct {
	Entries  map[string]Entry    `json:"entries"`
	IDToPos  map[string]int      `json:"id_to_pos"`
	DocToIDs map[string][]string `json:"doc_to_ids"`
}

// saveIndex assumes the write lock is held.
func (r *FaissRepository) saveIndex() error {
	if err := os.MkdirAll(filepath.Dir(r.indexPath), 0755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}
	if err := faiss.WriteIndex(r.index, r.indexPath); err != nil {
		return fmt.Errorf("writing index file: %w", err)
	}

	meta := faissMetadata{
		Entries:  r.entries,
		IDToPos:  r.idToPos,
		DocToIDs: r.docToIDs,
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	if err := os.WriteFile(r.metaPath, data, 0644); err != nil {
		return fmt.Errorf("writing metadata file: %w", err)
	}
	return nil
}

func (r *FaissRepository) loadMetadata() error {
	if r.metaPath == "" || !fileExists(r.metaPath) {
		return nil
	}
	data, err := os.ReadFile(r.metaPath)
	if err != nil {
		return fmt.Errorf("reading metadata file: %w", err)
	}
	var meta faissMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("unmarshaling metadata: %w", err)
	}
	r.entries = meta.Entries
	r.idToPos = meta.IDToPos
	r.docToIDs = meta.DocToIDs
	r.posToID = make(map[int]string, len(meta.IDToPos))
	for id, pos := range meta.IDToPos {
		r.posToID[pos] = id
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

func init() {
	RegisterRepository("faiss", NewFaissRepository)
}
