package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/custodia-labs/sercha-core/internal/core/domain"
)

func newMockChunkStore(t *testing.T) (*ChunkStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewChunkStore(&DB{DB: db}), mock
}

func TestChunkStore_Save(t *testing.T) {
	store, mock := newMockChunkStore(t)
	chunk := &domain.Chunk{
		ID:         "chunk-1",
		DocumentID: "doc-1",
		Content:    "hello world",
		Index:      0,
		Metadata:   map[string]string{},
		CreatedAt:  time.Now(),
	}

	mock.ExpectExec("INSERT INTO chunks").WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Save(context.Background(), chunk); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestChunkStore_GetByDocument_OrderedByIndex(t *testing.T) {
	store, mock := newMockChunkStore(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "document_id", "content", "content_hash", "chunk_index", "start_char", "end_char",
		"embedding_model", "vector_id", "text_id", "metadata", "created_at",
	}).
		AddRow("chunk-1", "doc-1", "first", "h1", 0, nil, nil, "", "", "", []byte(`{}`), now).
		AddRow("chunk-2", "doc-1", "second", "h2", 1, nil, nil, "", "", "", []byte(`{}`), now)

	mock.ExpectQuery("SELECT (.+) FROM chunks").
		WithArgs("doc-1").
		WillReturnRows(rows)

	chunks, err := store.GetByDocument(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 || chunks[0].Index != 0 || chunks[1].Index != 1 {
		t.Errorf("expected chunks ordered by index, got %+v", chunks)
	}
}

func TestChunkStore_SaveBatch_EmptyIsNoOp(t *testing.T) {
	store, mock := newMockChunkStore(t)

	if err := store.SaveBatch(context.Background(), nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expected no queries for an empty batch: %v", err)
	}
}

func TestChunkStore_Delete_NotFound(t *testing.T) {
	store, mock := newMockChunkStore(t)

	mock.ExpectExec("DELETE FROM chunks WHERE id = \\$1").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Delete(context.Background(), "missing"); err != domain.ErrNotFound {
		t.Fatalf("expected domain.ErrNotFound, got %v", err)
	}
}

func TestChunkStore_CountByDocument(t *testing.T) {
	store, mock := newMockChunkStore(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM chunks WHERE document_id = \\$1").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := store.CountByDocument(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 7 {
		t.Errorf("expected count 7, got %d", count)
	}
}
