package repository

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mattvess/research-rag/internal/models"
	"github.com/mattvess/research-rag/internal/vectordb"
)

// ReloadSession rebuilds a session's vector index from stored chunk
// embeddings. No embedding calls are made; vectors come straight from
// the database, so restarts cost disk reads instead of API spend.
// Returns the number of entries restored.
func ReloadSession(store Store, index vectordb.Repository, sessionID string, log *logrus.Logger) (int, error) {
	docs, err := store.ListDocuments(sessionID)
	if err != nil {
		return 0, fmt.Errorf("listing documents for session %s: %w", sessionID, err)
	}

	restored := 0
	for _, doc := range docs {
		if doc.Status != models.DocStatusIndexed {
			continue
		}

		chunks, err := store.GetChunks(doc.ID)
		if err != nil {
			return restored, fmt.Errorf("loading chunks for document %s: %w", doc.ID, err)
		}

		entries := make([]vectordb.Entry, 0, len(chunks))
		for _, chunk := range chunks {
			vector, err := DecodeVector(chunk.Vector)
			if err != nil {
				return restored, fmt.Errorf("chunk %s: %w", chunk.ChunkID, err)
			}
			entries = append(entries, vectordb.Entry{
				ChunkID: chunk.ChunkID,
				DocID:   doc.ID,
				Seq:     chunk.Seq,
				Source:  doc.Source,
				Text:    chunk.Text,
				Vector:  vector,
			})
		}

		if err := index.AddBatch(entries); err != nil {
			return restored, fmt.Errorf("restoring document %s: %w", doc.ID, err)
		}
		restored += len(entries)
	}

	if log != nil {
		log.WithFields(logrus.Fields{
			"session_id": sessionID,
			"entries":    restored,
		}).Info("session index restored from storage")
	}
	return restored, nil
}
