package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/mattvess/research-rag/internal/database"
	"github.com/mattvess/research-rag/internal/models"
)

type store struct {
	db *gorm.DB
}

// NewStore creates a store over the global database handle.
func NewStore() Store {
	return &store{db: database.MustDB()}
}

// NewStoreWithDB creates a store over a specific database handle.
func NewStoreWithDB(db *gorm.DB) Store {
	if db == nil {
		db = database.MustDB()
	}
	return &store{db: db}
}

func (s *store) CreateSession(session *models.SessionRecord) error {
	if session.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	return s.db.Create(session).Error
}

func (s *store) GetSession(id string) (*models.SessionRecord, error) {
	var session models.SessionRecord
	err := s.db.Where("id = ?", id).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return nil, err
	}
	return &session, nil
}

func (s *store) ListSessions() ([]*models.SessionRecord, error) {
	var sessions []*models.SessionRecord
	err := s.db.Order("created_at DESC").Find(&sessions).Error
	return sessions, err
}

func (s *store) DeleteSession(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var docIDs []string
		if err := tx.Model(&models.DocumentRecord{}).
			Where("session_id = ?", id).
			Pluck("id", &docIDs).Error; err != nil {
			return err
		}
		if len(docIDs) > 0 {
			if err := tx.Where("document_id IN ?", docIDs).
				Delete(&models.ChunkRecord{}).Error; err != nil {
				return err
			}
			if err := tx.Where("session_id = ?", id).
				Delete(&models.DocumentRecord{}).Error; err != nil {
				return err
			}
		}
		return tx.Where("id = ?", id).Delete(&models.SessionRecord{}).Error
	})
}

func (s *store) CreateDocument(doc *models.DocumentRecord) error {
	if doc.ID == "" {
		return errors.New("document ID cannot be empty")
	}
	return s.db.Create(doc).Error
}

func (s *store) GetDocument(id string) (*models.DocumentRecord, error) {
	var doc models.DocumentRecord
	err := s.db.Where("id = ?", id).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
		}
		return nil, err
	}
	return &doc, nil
}

func (s *store) ListDocuments(sessionID string) ([]*models.DocumentRecord, error) {
	var docs []*models.DocumentRecord
	err := s.db.Where("session_id = ?", sessionID).
		Order("uploaded_at DESC").
		Find(&docs).Error
	return docs, err
}

func (s *store) DeleteDocument(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).
			Delete(&models.ChunkRecord{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.DocumentRecord{}).Error
	})
}

func (s *store) UpdateDocumentStatus(id string, status models.DocumentStatus, errorMsg string) error {
	updates := map[string]interface{}{
		"status":     status,
		"error":      errorMsg,
		"updated_at": time.Now(),
	}
	if status == models.DocStatusIndexed {
		now := time.Now()
		updates["indexed_at"] = &now
	}
	return s.db.Model(&models.DocumentRecord{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (s *store) ReplaceChunks(docID string, chunks []*models.ChunkRecord) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", docID).
			Delete(&models.ChunkRecord{}).Error; err != nil {
			return err
		}
		if len(chunks) > 0 {
			if err := tx.CreateInBatches(chunks, 100).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.DocumentRecord{}).
			Where("id = ?", docID).
			Updates(map[string]interface{}{
				"chunk_count": len(chunks),
				"updated_at":  time.Now(),
			}).Error
	})
}

func (s *store) GetChunks(docID string) ([]*models.ChunkRecord, error) {
	var chunks []*models.ChunkRecord
	err := s.db.Where("document_id = ?", docID).
		Order("seq ASC").
		Find(&chunks).Error
	return chunks, err
}

func (s *store) CountChunks(docID string) (int, error) {
	var count int64
	err := s.db.Model(&models.ChunkRecord{}).
		Where("document_id = ?", docID).
		Count(&count).Error
	return int(count), err
}

// EncodeVector serializes an embedding for chunk storage.
func EncodeVector(vector []float32) (datatypes.JSON, error) {
	data, err := json.Marshal(vector)
	if err != nil {
		return nil, fmt.Errorf("encoding vector: %w", err)
	}
	return data, nil
}

// DecodeVector restores an embedding from chunk storage.
func DecodeVector(data datatypes.JSON) ([]float32, error) {
	var vector []float32
	if err := json.Unmarshal(data, &vector); err != nil {
		return nil, fmt.Errorf("decoding vector: %w", err)
	}
	return vector, nil
}
