package indexers

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
)

// PostgresText indexes chunk text into a Postgres tsvector column for
// lexical (BM25-ish, ts_rank_cd based) search, scoped per
// tenant-namespaced collection via a discriminator column rather than one
// table per collection, since Postgres text search needs no per-tenant
// schema the way the vector store's per-collection tables do.
type PostgresText struct {
	db *sql.DB
}

var _ driven.Indexer = (*PostgresText)(nil)

// NewPostgresText wraps an already-open *sql.DB as a text indexer. It is
// constructed directly by the composition root rather than through the
// registry, since it shares a connection pool with the document store
// rather than opening its own.
func NewPostgresText(db *sql.DB) *PostgresText {
	return &PostgresText{db: db}
}

func (p *PostgresText) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO text_index_collections (collection_name)
		VALUES ($1)
		ON CONFLICT (collection_name) DO NOTHING
	`, collection)
	if err != nil {
		return fmt.Errorf("indexers: ensure text collection: %w", err)
	}
	return nil
}

func (p *PostgresText) IndexBatch(ctx context.Context, collection string, chunks []driven.IndexedChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("indexers: begin text index tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO text_index_entries (collection_name, chunk_id, content, metadata, tsv)
		VALUES ($1, $2, $3, $4, to_tsvector('english', $3))
		ON CONFLICT (collection_name, chunk_id) DO UPDATE SET
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata,
			tsv = EXCLUDED.tsv
	`)
	if err != nil {
		return fmt.Errorf("indexers: prepare text index insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		metaJSON, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("indexers: marshal chunk metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, collection, c.ID, c.Content, metaJSON); err != nil {
			return fmt.Errorf("indexers: insert text entry %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

func (p *PostgresText) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := p.db.ExecContext(ctx, `
		DELETE FROM text_index_entries WHERE collection_name = $1 AND chunk_id = ANY($2)
	`, collection, pqStringArray(ids))
	if err != nil {
		return fmt.Errorf("indexers: delete text entries: %w", err)
	}
	return nil
}

func (p *PostgresText) Search(ctx context.Context, collection string, queryVector []float32, queryText string, topK int) ([]driven.VectorMatch, error) {
	if topK <= 0 {
		topK = 10
	}
	if queryText == "" {
		return nil, nil
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT chunk_id, content, metadata, ts_rank_cd(tsv, plainto_tsquery('english', $2)) AS rank
		FROM text_index_entries
		WHERE collection_name = $1 AND tsv @@ plainto_tsquery('english', $2)
		ORDER BY rank DESC
		LIMIT $3
	`, collection, queryText, topK)
	if err != nil {
		return nil, fmt.Errorf("indexers: text search: %w", err)
	}
	defer rows.Close()

	var matches []driven.VectorMatch
	for rows.Next() {
		var id, content string
		var metaJSON []byte
		var rank float64
		if err := rows.Scan(&id, &content, &metaJSON, &rank); err != nil {
			return nil, fmt.Errorf("indexers: scan text search row: %w", err)
		}
		metadata := map[string]string{}
		_ = json.Unmarshal(metaJSON, &metadata)
		metadata["content"] = content
		matches = append(matches, driven.VectorMatch{ID: id, Score: rank, Metadata: metadata})
	}
	return matches, rows.Err()
}

// pqStringArray renders a Go string slice as a Postgres array literal,
// suitable for ANY($1) comparisons via lib/pq's simple query protocol.
func pqStringArray(ss []string) string {
	out := "{"
	for i, s := range ss {
		if i > 0 {
			out += ","
		}
		out += `"` + escapePQElement(s) + `"`
	}
	return out + "}"
}

func escapePQElement(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
