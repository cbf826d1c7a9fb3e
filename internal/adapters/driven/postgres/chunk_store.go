package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/custodia-labs/sercha-core/internal/core/domain"
	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore implements driven.ChunkStore using PostgreSQL.
// Vectors live in the indexer backends, not here.
type ChunkStore struct {
	db *DB
}

// NewChunkStore creates a new ChunkStore
func NewChunkStore(db *DB) *ChunkStore {
	return &ChunkStore{db: db}
}

const chunkColumns = `id, document_id, content, content_hash, chunk_index, start_char, end_char, embedding_model, vector_id, text_id, metadata, created_at`

// Save creates or updates a chunk
func (s *ChunkStore) Save(ctx context.Context, chunk *domain.Chunk) error {
	metadataJSON, err := json.Marshal(chunk.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO chunks (` + chunkColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			content_hash = EXCLUDED.content_hash,
			chunk_index = EXCLUDED.chunk_index,
			start_char = EXCLUDED.start_char,
			end_char = EXCLUDED.end_char,
			embedding_model = EXCLUDED.embedding_model,
			vector_id = EXCLUDED.vector_id,
			text_id = EXCLUDED.text_id,
			metadata = EXCLUDED.metadata
	`

	_, err = s.db.ExecContext(ctx, query,
		chunk.ID, chunk.DocumentID, chunk.Content, chunk.ContentHash, chunk.Index,
		chunk.StartChar, chunk.EndChar, chunk.EmbeddingModel, chunk.VectorID, chunk.TextID,
		metadataJSON, chunk.CreatedAt,
	)
	return err
}

// SaveBatch saves multiple chunks in a transaction
func (s *ChunkStore) SaveBatch(ctx context.Context, chunks []*domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO chunks (` + chunkColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (id) DO UPDATE SET
				content = EXCLUDED.content,
				content_hash = EXCLUDED.content_hash,
				chunk_index = EXCLUDED.chunk_index,
				start_char = EXCLUDED.start_char,
				end_char = EXCLUDED.end_char,
				embedding_model = EXCLUDED.embedding_model,
				vector_id = EXCLUDED.vector_id,
				text_id = EXCLUDED.text_id,
				metadata = EXCLUDED.metadata
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, chunk := range chunks {
			metadataJSON, err := json.Marshal(chunk.Metadata)
			if err != nil {
				return err
			}
			_, err = stmt.ExecContext(ctx,
				chunk.ID, chunk.DocumentID, chunk.Content, chunk.ContentHash, chunk.Index,
				chunk.StartChar, chunk.EndChar, chunk.EmbeddingModel, chunk.VectorID, chunk.TextID,
				metadataJSON, chunk.CreatedAt,
			)
			if err != nil {
				return err
			}
		}

		return nil
	})
}

// GetByDocument retrieves all chunks for a document, ordered by index
func (s *ChunkStore) GetByDocument(ctx context.Context, documentID string) ([]*domain.Chunk, error) {
	query := `
		SELECT ` + chunkColumns + ` FROM chunks
		WHERE document_id = $1
		ORDER BY chunk_index ASC
	`

	rows, err := s.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*domain.Chunk
	for rows.Next() {
		var chunk domain.Chunk
		var metadataJSON []byte
		err := rows.Scan(
			&chunk.ID, &chunk.DocumentID, &chunk.Content, &chunk.ContentHash, &chunk.Index,
			&chunk.StartChar, &chunk.EndChar, &chunk.EmbeddingModel, &chunk.VectorID, &chunk.TextID,
			&metadataJSON, &chunk.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &chunk.Metadata); err != nil {
				return nil, err
			}
		}
		if chunk.Metadata == nil {
			chunk.Metadata = make(map[string]string)
		}
		chunks = append(chunks, &chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return chunks, nil
}

// Delete deletes a chunk
func (s *ChunkStore) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM chunks WHERE id = $1`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// DeleteByDocument deletes all chunks for a document
func (s *ChunkStore) DeleteByDocument(ctx context.Context, documentID string) error {
	query := `DELETE FROM chunks WHERE document_id = $1`
	_, err := s.db.ExecContext(ctx, query, documentID)
	return err
}

// CountByDocument returns the live chunk count for a document
func (s *ChunkStore) CountByDocument(ctx context.Context, documentID string) (int, error) {
	query := `SELECT COUNT(*) FROM chunks WHERE document_id = $1`
	var count int
	err := s.db.QueryRowContext(ctx, query, documentID).Scan(&count)
	return count, err
}
