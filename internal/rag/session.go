package rag

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/mattvess/research-rag/internal/cache"
	"github.com/mattvess/research-rag/internal/document"
	"github.com/mattvess/research-rag/internal/embedding"
	"github.com/mattvess/research-rag/internal/llm"
	"github.com/mattvess/research-rag/internal/models"
	"github.com/mattvess/research-rag/internal/repository"
	"github.com/mattvess/research-rag/internal/retriever"
	"github.com/mattvess/research-rag/internal/vectordb"
)

// State is a session's position in its lifecycle.
type State string

const (
	// StateEmpty means nothing has been ingested; queries fail.
	StateEmpty State = "empty"
	// StateIndexing means an ingest is rebuilding part of the index.
	StateIndexing State = "indexing"
	// StateReady means at least one chunk is indexed and queries run.
	StateReady State = "ready"
)

// Session ties one document corpus to one vector index and answers
// questions against it. Ingestion is all-or-nothing per document: a
// failure at any stage leaves the index and the session state exactly
// as they were.
type Session struct {
	ID   string
	Name string

	chunker      *document.Chunker
	batcher      *embedding.Batcher
	embedBatch   int
	index        vectordb.Repository
	retriever    *retriever.Retriever
	retrievalCfg *retriever.Config
	synthesizer  *llm.Synthesizer
	answers      *cache.AnswerCache
	store        repository.Store
	logger       *logrus.Logger

	mu    sync.RWMutex
	state State
	docs  map[string]int // document ID -> indexed chunk count
}

// SessionOption customizes a session at construction.
type SessionOption func(*Session)

// WithChunker overrides the default chunking configuration.
func WithChunker(chunker *document.Chunker) SessionOption {
	return func(s *Session) { s.chunker = chunker }
}

// WithRetriever overrides the default retriever.
func WithRetriever(r *retriever.Retriever) SessionOption {
	return func(s *Session) { s.retriever = r }
}

// WithEmbedBatchSize caps how many chunk texts go to the embedding
// service per request during ingest.
func WithEmbedBatchSize(size int) SessionOption {
	return func(s *Session) { s.embedBatch = size }
}

// WithRetrievalConfig tunes the default retriever without replacing
// it, for when the index is not known to the caller yet.
func WithRetrievalConfig(cfg retriever.Config) SessionOption {
	return func(s *Session) { s.retrievalCfg = &cfg }
}

// WithSynthesizer overrides the default synthesizer.
func WithSynthesizer(synth *llm.Synthesizer) SessionOption {
	return func(s *Session) { s.synthesizer = synth }
}

// WithAnswerCache memoizes answers per question.
func WithAnswerCache(answers *cache.AnswerCache) SessionOption {
	return func(s *Session) { s.answers = answers }
}

// WithStore persists documents and chunk embeddings, so the session
// can be rebuilt after a restart without re-embedding.
func WithStore(store repository.Store) SessionOption {
	return func(s *Session) { s.store = store }
}

// WithLogger sets the session's logger.
func WithLogger(logger *logrus.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// NewSession builds a session around external service clients and a
// vector index. The defaults cover chunking, retrieval, and synthesis;
// options override them.
func NewSession(id string, embedder embedding.Client, completer llm.Client, index vectordb.Repository, opts ...SessionOption) (*Session, error) {
	chunker, err := document.NewChunker(document.DefaultChunkerConfig())
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:      id,
		chunker: chunker,
		index:   index,
		logger:  logrus.StandardLogger(),
		state:   StateEmpty,
		docs:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.batcher = embedding.NewBatcher(embedder, s.embedBatch)
	if s.retriever == nil {
		cfg := retriever.DefaultConfig()
		if s.retrievalCfg != nil {
			cfg = *s.retrievalCfg
		}
		s.retriever = retriever.New(embedder, index, cfg)
	}
	if s.synthesizer == nil {
		s.synthesizer = llm.NewSynthesizer(completer)
	}
	return s, nil
}

// Ingest loads a file, chunks it, embeds the chunks, and indexes the
// result. Returns the number of chunks indexed.
func (s *Session) Ingest(ctx context.Context, path string) (int, error) {
	doc, err := document.Load(path)
	if err != nil {
		return 0, err
	}
	return s.IngestDocument(ctx, doc)
}

// IngestDocument indexes an already-loaded document. Web-extracted
// content arrives here wrapped via document.NewTextDocument.
func (s *Session) IngestDocument(ctx context.Context, doc *document.Document) (int, error) {
	chunks := s.chunker.Chunk(doc)

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	// Embed everything before touching the index: a mid-batch
	// failure must not leave a half-indexed document.
	vectors, err := s.batcher.EmbedAll(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding document %s: %w", doc.ID, err)
	}

	entries := make([]vectordb.Entry, len(chunks))
	for i, chunk := range chunks {
		entries[i] = vectordb.Entry{
			ChunkID: chunk.ID,
			DocID:   chunk.DocID,
			Seq:     chunk.Seq,
			Source:  doc.Source,
			Text:    chunk.Text,
			Vector:  vectors[i],
		}
	}

	s.mu.Lock()
	prior := s.state
	s.state = StateIndexing
	if err := s.index.AddBatch(entries); err != nil {
		s.state = prior
		s.mu.Unlock()
		return 0, fmt.Errorf("indexing document %s: %w", doc.ID, err)
	}
	s.docs[doc.ID] = len(entries)
	s.state = StateReady
	s.mu.Unlock()

	if s.store != nil {
		if err := s.persistChunks(doc, entries); err != nil {
			// The live index is already consistent; log and move on.
			s.logger.WithError(err).WithField("document_id", doc.ID).
				Warn("failed to persist chunk embeddings")
		}
	}
	if s.answers != nil {
		// Answers synthesized before this ingest may cite replaced
		// chunks.
		if err := s.answers.Invalidate(s.ID); err != nil {
			s.logger.WithError(err).Warn("failed to invalidate answer cache")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"session_id":  s.ID,
		"document_id": doc.ID,
		"chunks":      len(entries),
	}).Info("document indexed")
	return len(entries), nil
}

func (s *Session) persistChunks(doc *document.Document, entries []vectordb.Entry) error {
	records := make([]*models.ChunkRecord, len(entries))
	for i, entry := range entries {
		vector, err := repository.EncodeVector(entry.Vector)
		if err != nil {
			return err
		}
		records[i] = &models.ChunkRecord{
			DocumentID: entry.DocID,
			ChunkID:    entry.ChunkID,
			Seq:        entry.Seq,
			Text:       entry.Text,
			Vector:     vector,
		}
	}
	if err := s.store.ReplaceChunks(doc.ID, records); err != nil {
		return err
	}
	return s.store.UpdateDocumentStatus(doc.ID, models.DocStatusIndexed, "")
}

// Query retrieves relevant passages and synthesizes a cited answer.
// Passing document IDs restricts retrieval to those documents.
// Queries are read-only: session state never changes here.
func (s *Session) Query(ctx context.Context, question string, docIDs ...string) (*llm.Answer, error) {
	s.mu.RLock()
	ready := s.state == StateReady
	s.mu.RUnlock()
	if !ready {
		return nil, ErrNotReady
	}

	// Filtered queries bypass the cache; the key only covers the
	// question.
	cacheable := s.answers != nil && len(docIDs) == 0
	if cacheable {
		if answer, found := s.answers.Get(s.ID, question); found {
			return answer, nil
		}
	}

	passages, err := s.retriever.Retrieve(ctx, question, docIDs...)
	if err != nil {
		return nil, err
	}

	answer, err := s.synthesizer.Synthesize(ctx, question, passages)
	if err != nil {
		return nil, err
	}

	if cacheable {
		if err := s.answers.Put(s.ID, question, answer); err != nil {
			s.logger.WithError(err).Warn("failed to cache answer")
		}
	}
	return answer, nil
}

// Status returns the session's current lifecycle state.
func (s *Session) Status() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Documents returns the IDs of indexed documents with their chunk
// counts.
func (s *Session) Documents() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.docs))
	for id, count := range s.docs {
		out[id] = count
	}
	return out
}

// Remove drops a document from the live index and, when persistence
// is configured, from storage. A session whose last document is
// removed returns to empty.
func (s *Session) Remove(docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[docID]; !ok {
		return fmt.Errorf("document %s not in session %s", docID, s.ID)
	}
	if err := s.index.DeleteByDocID(docID); err != nil {
		return fmt.Errorf("removing document %s from index: %w", docID, err)
	}
	delete(s.docs, docID)
	if len(s.docs) == 0 {
		s.state = StateEmpty
	}

	if s.store != nil {
		if err := s.store.DeleteDocument(docID); err != nil {
			s.logger.WithError(err).WithField("document_id", docID).
				Warn("failed to delete persisted document")
		}
	}
	return nil
}

// Index exposes the session's vector index, used when rebuilding it
// from persisted vectors at startup.
func (s *Session) Index() vectordb.Repository {
	return s.index
}

// Restore marks a document as indexed without embedding, used when
// the index was rebuilt from persisted vectors.
func (s *Session) Restore(docID string, chunkCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[docID] = chunkCount
	if chunkCount > 0 {
		s.state = StateReady
	}
}
