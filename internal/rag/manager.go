package rag

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mattvess/research-rag/internal/embedding"
	"github.com/mattvess/research-rag/internal/llm"
	"github.com/mattvess/research-rag/internal/vectordb"
)

// Manager owns the live sessions of one process. Sessions share the
// external service clients but each gets its own vector index, so
// corpora never bleed into each other.
type Manager struct {
	embedder    embedding.Client
	completer   llm.Client
	indexConfig vectordb.Config
	options     []SessionOption
	logger      *logrus.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager. The index config acts as a
// template; each session's index gets its own path derived from the
// session ID when the backend persists to disk.
func NewManager(embedder embedding.Client, completer llm.Client, indexConfig vectordb.Config, logger *logrus.Logger, opts ...SessionOption) *Manager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Manager{
		embedder:    embedder,
		completer:   completer,
		indexConfig: indexConfig,
		options:     opts,
		logger:      logger,
		sessions:    make(map[string]*Session),
	}
}

// Create makes a new session with a generated ID.
func (m *Manager) Create(name string) (*Session, error) {
	return m.CreateWithID(uuid.New().String(), name)
}

// CreateWithID makes a new session under a caller-chosen ID, used
// when restoring persisted sessions.
func (m *Manager) CreateWithID(id, name string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrSessionExists, id)
	}

	indexConfig := m.indexConfig
	if indexConfig.Path != "" {
		indexConfig.Path = fmt.Sprintf("%s-%s", indexConfig.Path, id)
	}
	index, err := vectordb.NewRepository(indexConfig)
	if err != nil {
		return nil, fmt.Errorf("creating index for session %s: %w", id, err)
	}

	opts := append([]SessionOption{WithLogger(m.logger)}, m.options...)
	session, err := NewSession(id, m.embedder, m.completer, index, opts...)
	if err != nil {
		return nil, err
	}
	session.Name = name

	m.sessions[id] = session
	m.logger.WithFields(logrus.Fields{
		"session_id": id,
		"name":       name,
	}).Info("session created")
	return session, nil
}

// Get returns a session by ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return session, nil
}

// List returns all live sessions.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		out = append(out, session)
	}
	return out
}

// Delete disposes a session and closes its index.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(m.sessions, id)

	if err := session.index.Close(); err != nil {
		return fmt.Errorf("closing index for session %s: %w", id, err)
	}
	m.logger.WithField("session_id", id).Info("session deleted")
	return nil
}
