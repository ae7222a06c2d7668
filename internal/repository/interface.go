package repository

import (
	"errors"

	"github.com/mattvess/research-rag/internal/models"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrDocumentNotFound = errors.New("document not found")
)

// Store persists sessions, document metadata, and chunk embeddings.
type Store interface {
	// CreateSession persists a new session record.
	CreateSession(session *models.SessionRecord) error

	// GetSession returns a session by ID.
	GetSession(id string) (*models.SessionRecord, error)

	// ListSessions returns all sessions, newest first.
	ListSessions() ([]*models.SessionRecord, error)

	// DeleteSession removes a session with its documents and chunks.
	DeleteSession(id string) error

	// CreateDocument persists a new document record.
	CreateDocument(doc *models.DocumentRecord) error

	// GetDocument returns a document by ID.
	GetDocument(id string) (*models.DocumentRecord, error)

	// ListDocuments returns a session's documents, newest first.
	ListDocuments(sessionID string) ([]*models.DocumentRecord, error)

	// DeleteDocument removes a document and its chunks.
	DeleteDocument(id string) error

	// UpdateDocumentStatus records a status transition. A non-empty
	// errorMsg is stored alongside failed status.
	UpdateDocumentStatus(id string, status models.DocumentStatus, errorMsg string) error

	// ReplaceChunks atomically swaps a document's stored chunks for a
	// new set and updates its chunk count.
	ReplaceChunks(docID string, chunks []*models.ChunkRecord) error

	// GetChunks returns a document's chunks in sequence order.
	GetChunks(docID string) ([]*models.ChunkRecord, error)

	// CountChunks returns the number of stored chunks for a document.
	CountChunks(docID string) (int, error)
}
