package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/custodia-labs/sercha-core/internal/core/domain"
	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore implements driven.DocumentStore using PostgreSQL. Vector
// and text payloads live in the indexer backends; this table is the
// system-of-record for document metadata and lifecycle state.
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

const documentColumns = `id, kb_id, tenant_id, filename, file_type, size, storage_uri, source_type, status, version, previous_version, checksum, chunk_count, error, metadata, created_at, updated_at, processed_at`

// Save creates or updates a document
func (s *DocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO UPDATE SET
			filename = EXCLUDED.filename,
			file_type = EXCLUDED.file_type,
			size = EXCLUDED.size,
			storage_uri = EXCLUDED.storage_uri,
			source_type = EXCLUDED.source_type,
			status = EXCLUDED.status,
			version = EXCLUDED.version,
			previous_version = EXCLUDED.previous_version,
			checksum = EXCLUDED.checksum,
			chunk_count = EXCLUDED.chunk_count,
			error = EXCLUDED.error,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at,
			processed_at = EXCLUDED.processed_at
	`

	_, err = s.db.ExecContext(ctx, query,
		doc.ID, doc.KBID, doc.TenantID, doc.Filename, doc.FileType, doc.Size, doc.StorageURI,
		doc.SourceType, doc.Status, doc.Version, doc.PreviousVersion, doc.Checksum, doc.ChunkCount,
		doc.Error, metadataJSON, doc.CreatedAt, doc.UpdatedAt, NullTime(doc.ProcessedAt),
	)
	return err
}

// SaveBatch saves multiple documents in a transaction
func (s *DocumentStore) SaveBatch(ctx context.Context, docs []*domain.Document) error {
	if len(docs) == 0 {
		return nil
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO documents (` + documentColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
			ON CONFLICT (id) DO UPDATE SET
				filename = EXCLUDED.filename,
				file_type = EXCLUDED.file_type,
				size = EXCLUDED.size,
				storage_uri = EXCLUDED.storage_uri,
				source_type = EXCLUDED.source_type,
				status = EXCLUDED.status,
				version = EXCLUDED.version,
				previous_version = EXCLUDED.previous_version,
				checksum = EXCLUDED.checksum,
				chunk_count = EXCLUDED.chunk_count,
				error = EXCLUDED.error,
				metadata = EXCLUDED.metadata,
				updated_at = EXCLUDED.updated_at,
				processed_at = EXCLUDED.processed_at
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, doc := range docs {
			metadataJSON, err := json.Marshal(doc.Metadata)
			if err != nil {
				return err
			}
			_, err = stmt.ExecContext(ctx,
				doc.ID, doc.KBID, doc.TenantID, doc.Filename, doc.FileType, doc.Size, doc.StorageURI,
				doc.SourceType, doc.Status, doc.Version, doc.PreviousVersion, doc.Checksum, doc.ChunkCount,
				doc.Error, metadataJSON, doc.CreatedAt, doc.UpdatedAt, NullTime(doc.ProcessedAt),
			)
			if err != nil {
				return err
			}
		}

		return nil
	})
}

// Get retrieves a document by ID
func (s *DocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return s.scanDocument(s.db.QueryRowContext(ctx, query, id))
}

// GetByChecksum retrieves the live document with the given checksum within
// a KB, honoring invariant I1 (tombstoned documents don't count).
func (s *DocumentStore) GetByChecksum(ctx context.Context, kbID, checksum string) (*domain.Document, error) {
	query := `
		SELECT ` + documentColumns + ` FROM documents
		WHERE kb_id = $1 AND checksum = $2 AND (metadata->>'tombstoned') IS DISTINCT FROM 'true'
		ORDER BY version DESC
		LIMIT 1
	`
	return s.scanDocument(s.db.QueryRowContext(ctx, query, kbID, checksum))
}

func (s *DocumentStore) scanDocument(row *sql.Row) (*domain.Document, error) {
	var doc domain.Document
	var metadataJSON []byte
	var processedAt sql.NullTime

	err := row.Scan(
		&doc.ID, &doc.KBID, &doc.TenantID, &doc.Filename, &doc.FileType, &doc.Size, &doc.StorageURI,
		&doc.SourceType, &doc.Status, &doc.Version, &doc.PreviousVersion, &doc.Checksum, &doc.ChunkCount,
		&doc.Error, &metadataJSON, &doc.CreatedAt, &doc.UpdatedAt, &processedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	doc.ProcessedAt = TimePtr(processedAt)
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
			return nil, err
		}
	}
	if doc.Metadata == nil {
		doc.Metadata = make(map[string]string)
	}

	return &doc, nil
}

// GetByKB retrieves all documents for a KB with pagination
func (s *DocumentStore) GetByKB(ctx context.Context, kbID string, limit, offset int) ([]*domain.Document, error) {
	query := `
		SELECT ` + documentColumns + ` FROM documents
		WHERE kb_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, query, kbID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.scanDocuments(rows)
}

// ListSSOTDocuments returns every ssot-sourced document under a KB,
// including tombstoned ones, for the sync reconciliation diff.
func (s *DocumentStore) ListSSOTDocuments(ctx context.Context, kbID string) ([]*domain.Document, error) {
	query := `
		SELECT ` + documentColumns + ` FROM documents
		WHERE kb_id = $1 AND source_type = $2
		ORDER BY storage_uri ASC
	`

	rows, err := s.db.QueryContext(ctx, query, kbID, domain.SourceTypeSSOT)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.scanDocuments(rows)
}

func (s *DocumentStore) scanDocuments(rows *sql.Rows) ([]*domain.Document, error) {
	var docs []*domain.Document
	for rows.Next() {
		var doc domain.Document
		var metadataJSON []byte
		var processedAt sql.NullTime

		err := rows.Scan(
			&doc.ID, &doc.KBID, &doc.TenantID, &doc.Filename, &doc.FileType, &doc.Size, &doc.StorageURI,
			&doc.SourceType, &doc.Status, &doc.Version, &doc.PreviousVersion, &doc.Checksum, &doc.ChunkCount,
			&doc.Error, &metadataJSON, &doc.CreatedAt, &doc.UpdatedAt, &processedAt,
		)
		if err != nil {
			return nil, err
		}

		doc.ProcessedAt = TimePtr(processedAt)
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
				return nil, err
			}
		}
		if doc.Metadata == nil {
			doc.Metadata = make(map[string]string)
		}

		docs = append(docs, &doc)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return docs, nil
}

// Delete deletes a document
func (s *DocumentStore) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM documents WHERE id = $1`
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

// DeleteByKB deletes all documents for a KB
func (s *DocumentStore) DeleteByKB(ctx context.Context, kbID string) error {
	query := `DELETE FROM documents WHERE kb_id = $1`
	_, err := s.db.ExecContext(ctx, query, kbID)
	return err
}

// DeleteBatch deletes multiple documents by ID
func (s *DocumentStore) DeleteBatch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = id
	}

	query := `DELETE FROM documents WHERE id IN (` + strings.Join(placeholders, ",") + `)`
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

// Count returns total document count
func (s *DocumentStore) Count(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM documents`
	var count int
	err := s.db.QueryRowContext(ctx, query).Scan(&count)
	return count, err
}

// CountByKB returns document count for a KB
func (s *DocumentStore) CountByKB(ctx context.Context, kbID string) (int, error) {
	query := `SELECT COUNT(*) FROM documents WHERE kb_id = $1`
	var count int
	err := s.db.QueryRowContext(ctx, query, kbID).Scan(&count)
	return count, err
}
