package model

import "mime/multipart"

// SessionCreateRequest creates a research session.
type SessionCreateRequest struct {
	Name string `json:"name" binding:"omitempty,max=200"`
}

// SessionURI addresses one session by path parameter.
type SessionURI struct {
	ID string `uri:"id" binding:"required"`
}

// DocumentURI addresses one document within a session.
type DocumentURI struct {
	ID    string `uri:"id" binding:"required"`
	DocID string `uri:"doc_id" binding:"required"`
}

// DocumentUploadRequest uploads one file into a session.
type DocumentUploadRequest struct {
	File *multipart.FileHeader `form:"file" binding:"required"`
}

// QueryRequest asks a question against a session's corpus.
type QueryRequest struct {
	Question string   `json:"question" binding:"required"`
	DocIDs   []string `json:"doc_ids" binding:"omitempty"` // restrict retrieval to these documents
}

// TaskURI addresses one background task.
type TaskURI struct {
	ID string `uri:"id" binding:"required"`
}
