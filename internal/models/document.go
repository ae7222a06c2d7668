package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DocumentStatus tracks a document through the indexing pipeline.
type DocumentStatus string

const (
	// DocStatusUploaded means the file is stored but not yet indexed.
	DocStatusUploaded DocumentStatus = "uploaded"
	// DocStatusProcessing means chunking or embedding is in flight.
	DocStatusProcessing DocumentStatus = "processing"
	// DocStatusIndexed means every chunk is embedded and searchable.
	DocStatusIndexed DocumentStatus = "indexed"
	// DocStatusFailed means indexing aborted; Error holds the cause.
	DocStatusFailed DocumentStatus = "failed"
)

// SessionRecord persists a question-answering session so its index
// can be rebuilt after a restart.
type SessionRecord struct {
	ID        string    `gorm:"primaryKey"`
	Name      string    `gorm:"size:255"`
	ChunkSize int       `gorm:"not null"`
	Overlap   int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null;index"`
}

func (s *SessionRecord) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	return nil
}

func (s *SessionRecord) BeforeUpdate(tx *gorm.DB) error {
	s.UpdatedAt = time.Now()
	return nil
}

func (SessionRecord) TableName() string {
	return "sessions"
}

// DocumentRecord stores document metadata and indexing state.
type DocumentRecord struct {
	ID         string         `gorm:"primaryKey"`
	SessionID  string         `gorm:"not null;index"`
	Source     string         `gorm:"not null"` // original file path or URL
	Format     string         `gorm:"size:20"`
	Size       int64          `gorm:"not null;default:0"` // bytes on disk
	Status     DocumentStatus `gorm:"not null;index"`
	Error      string         `gorm:"type:text"`
	ChunkCount int            `gorm:"not null;default:0"`
	UploadedAt time.Time      `gorm:"not null;index"`
	IndexedAt  *time.Time     `gorm:"index"`
	UpdatedAt  time.Time      `gorm:"not null"`
}

func (d *DocumentRecord) BeforeCreate(tx *gorm.DB) error {
	if d.UploadedAt.IsZero() {
		d.UploadedAt = time.Now()
	}
	d.UpdatedAt = time.Now()
	return nil
}

func (d *DocumentRecord) BeforeUpdate(tx *gorm.DB) error {
	d.UpdatedAt = time.Now()
	return nil
}

func (DocumentRecord) TableName() string {
	return "documents"
}

// ChunkRecord stores a chunk's text together with its embedding, so a
// session index can be rebuilt from the database without calling the
// embedding service again.
type ChunkRecord struct {
	ID         uint           `gorm:"primaryKey;autoIncrement"`
	DocumentID string         `gorm:"not null;index"`
	ChunkID    string         `gorm:"not null;uniqueIndex"`
	Seq        int            `gorm:"not null"`
	Text       string         `gorm:"type:text;not null"`
	Vector     datatypes.JSON `gorm:"type:json"` // embedding as a JSON float array
	CreatedAt  time.Time      `gorm:"not null"`
	UpdatedAt  time.Time      `gorm:"not null"`
}

func (c *ChunkRecord) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

func (c *ChunkRecord) BeforeUpdate(tx *gorm.DB) error {
	c.UpdatedAt = time.Now()
	return nil
}

func (ChunkRecord) TableName() string {
	return "chunks"
}
