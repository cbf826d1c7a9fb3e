package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/custodia-labs/sercha-core/internal/core/domain"
	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
)

var _ driven.KBStore = (*KBStore)(nil)

// KBStore implements driven.KBStore using PostgreSQL.
type KBStore struct {
	db *DB
}

// NewKBStore creates a new KBStore
func NewKBStore(db *DB) *KBStore {
	return &KBStore{db: db}
}

// Save creates or updates a knowledge base
func (s *KBStore) Save(ctx context.Context, kb *domain.KnowledgeBase) error {
	defaultsJSON, err := json.Marshal(kb.Defaults)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO knowledge_bases (id, tenant_id, name, defaults, doc_count, chunk_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			defaults = EXCLUDED.defaults,
			doc_count = EXCLUDED.doc_count,
			chunk_count = EXCLUDED.chunk_count,
			updated_at = EXCLUDED.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		kb.ID, kb.TenantID, kb.Name, defaultsJSON, kb.DocCount, kb.ChunkCount, kb.CreatedAt, kb.UpdatedAt,
	)
	return err
}

// Get retrieves a knowledge base by ID
func (s *KBStore) Get(ctx context.Context, id string) (*domain.KnowledgeBase, error) {
	query := `
		SELECT id, tenant_id, name, defaults, doc_count, chunk_count, created_at, updated_at
		FROM knowledge_bases WHERE id = $1
	`
	return s.scan(s.db.QueryRowContext(ctx, query, id))
}

func (s *KBStore) scan(row *sql.Row) (*domain.KnowledgeBase, error) {
	var kb domain.KnowledgeBase
	var defaultsJSON []byte

	err := row.Scan(&kb.ID, &kb.TenantID, &kb.Name, &defaultsJSON, &kb.DocCount, &kb.ChunkCount, &kb.CreatedAt, &kb.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if len(defaultsJSON) > 0 {
		if err := json.Unmarshal(defaultsJSON, &kb.Defaults); err != nil {
			return nil, err
		}
	}

	return &kb, nil
}

// GetByTenant retrieves all knowledge bases owned by a tenant
func (s *KBStore) GetByTenant(ctx context.Context, tenantID string) ([]*domain.KnowledgeBase, error) {
	query := `
		SELECT id, tenant_id, name, defaults, doc_count, chunk_count, created_at, updated_at
		FROM knowledge_bases WHERE tenant_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var kbs []*domain.KnowledgeBase
	for rows.Next() {
		var kb domain.KnowledgeBase
		var defaultsJSON []byte
		if err := rows.Scan(&kb.ID, &kb.TenantID, &kb.Name, &defaultsJSON, &kb.DocCount, &kb.ChunkCount, &kb.CreatedAt, &kb.UpdatedAt); err != nil {
			return nil, err
		}
		if len(defaultsJSON) > 0 {
			if err := json.Unmarshal(defaultsJSON, &kb.Defaults); err != nil {
				return nil, err
			}
		}
		kbs = append(kbs, &kb)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return kbs, nil
}

// Delete deletes a knowledge base
func (s *KBStore) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM knowledge_bases WHERE id = $1`
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
