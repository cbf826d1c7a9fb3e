package indexers

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
)

func init() {
	sqlite_vec.Auto()
}

// SQLiteVecConfig configures a sqlite-vec-backed indexer, suitable for
// single-node or development deployments that don't warrant a standalone
// vector database.
type SQLiteVecConfig struct {
	Path string `json:"path,omitempty"`
}

// SQLiteVecSchema is the JSON-Schema for SQLiteVecConfig.
const SQLiteVecSchema = `{
  "type": "object",
  "properties": {
    "path": {"type": "string", "default": ":memory:"}
  }
}`

// SQLiteVec indexes embeddings in per-collection vec0 virtual tables inside
// a single SQLite database file. Each collection name becomes its own
// vec0 table, sanitized to a safe SQL identifier.
type SQLiteVec struct {
	db *sql.DB
}

var _ driven.Indexer = (*SQLiteVec)(nil)

// NewSQLiteVec constructs a SQLiteVec indexer.
func NewSQLiteVec(rawParams json.RawMessage) (interface{}, error) {
	cfg := SQLiteVecConfig{Path: ":memory:"}
	if len(rawParams) > 0 {
		if err := json.Unmarshal(rawParams, &cfg); err != nil {
			return nil, fmt.Errorf("indexers: invalid sqlite-vec config: %w", err)
		}
	}
	if cfg.Path == "" {
		cfg.Path = ":memory:"
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("indexers: open sqlite-vec database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("indexers: ping sqlite-vec database: %w", err)
	}

	return &SQLiteVec{db: db}, nil
}

func tableName(collection string) string {
	var sb strings.Builder
	sb.WriteString("vec_")
	for _, r := range collection {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	return sb.String()
}

func (s *SQLiteVec) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("indexers: sqlite-vec collection requires dimension > 0")
	}
	table := tableName(collection)
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec0(chunk_id TEXT PRIMARY KEY, embedding float[%d])`,
		table, dimension,
	))
	if err != nil {
		return fmt.Errorf("indexers: create vec0 table %s: %w", table, err)
	}

	metaTable := table + "_meta"
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (chunk_id TEXT PRIMARY KEY, content TEXT, metadata TEXT)`,
		metaTable,
	))
	if err != nil {
		return fmt.Errorf("indexers: create metadata table %s: %w", metaTable, err)
	}
	return nil
}

func (s *SQLiteVec) IndexBatch(ctx context.Context, collection string, chunks []driven.IndexedChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	table := tableName(collection)
	metaTable := table + "_meta"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("indexers: begin sqlite-vec tx: %w", err)
	}
	defer tx.Rollback()

	vecStmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT OR REPLACE INTO %s (chunk_id, embedding) VALUES (?, ?)`, table))
	if err != nil {
		return fmt.Errorf("indexers: prepare vec insert: %w", err)
	}
	defer vecStmt.Close()

	metaStmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT OR REPLACE INTO %s (chunk_id, content, metadata) VALUES (?, ?, ?)`, metaTable))
	if err != nil {
		return fmt.Errorf("indexers: prepare meta insert: %w", err)
	}
	defer metaStmt.Close()

	for _, c := range chunks {
		metaJSON, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("indexers: marshal chunk metadata: %w", err)
		}
		if _, err := vecStmt.ExecContext(ctx, c.ID, serializeFloat32(c.Embedding)); err != nil {
			return fmt.Errorf("indexers: insert embedding: %w", err)
		}
		if _, err := metaStmt.ExecContext(ctx, c.ID, c.Content, string(metaJSON)); err != nil {
			return fmt.Errorf("indexers: insert chunk metadata: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteVec) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	table := tableName(collection)
	metaTable := table + "_meta"
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE chunk_id = ?`, table), id); err != nil {
			return fmt.Errorf("indexers: delete embedding %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE chunk_id = ?`, metaTable), id); err != nil {
			return fmt.Errorf("indexers: delete chunk metadata %s: %w", id, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteVec) Search(ctx context.Context, collection string, queryVector []float32, queryText string, topK int) ([]driven.VectorMatch, error) {
	if topK <= 0 {
		topK = 10
	}
	table := tableName(collection)
	metaTable := table + "_meta"

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT v.chunk_id, v.distance, m.content, m.metadata
		FROM %s v
		LEFT JOIN %s m ON m.chunk_id = v.chunk_id
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance
	`, table, metaTable), serializeFloat32(queryVector), topK)
	if err != nil {
		return nil, fmt.Errorf("indexers: sqlite-vec search: %w", err)
	}
	defer rows.Close()

	var matches []driven.VectorMatch
	for rows.Next() {
		var id, content string
		var metaJSON sql.NullString
		var distance float64
		if err := rows.Scan(&id, &distance, &content, &metaJSON); err != nil {
			return nil, fmt.Errorf("indexers: scan sqlite-vec row: %w", err)
		}
		metadata := map[string]string{}
		if metaJSON.Valid && metaJSON.String != "" {
			_ = json.Unmarshal([]byte(metaJSON.String), &metadata)
		}
		metadata["content"] = content
		matches = append(matches, driven.VectorMatch{
			ID:       id,
			Score:    1.0 - distance,
			Metadata: metadata,
		})
	}
	return matches, rows.Err()
}

// serializeFloat32 converts a float32 slice to little-endian bytes, the
// wire format vec0 columns expect.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
