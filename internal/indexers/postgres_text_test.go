package indexers

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
)

func newMockPostgresText(t *testing.T) (*PostgresText, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresText(db), mock
}

func TestPostgresText_EnsureCollection(t *testing.T) {
	p, mock := newMockPostgresText(t)

	mock.ExpectExec("INSERT INTO text_index_collections").
		WithArgs("docs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := p.EnsureCollection(context.Background(), "docs", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPostgresText_IndexBatch(t *testing.T) {
	p, mock := newMockPostgresText(t)

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO text_index_entries")
	mock.ExpectExec("INSERT INTO text_index_entries").
		WithArgs("docs", "c1", "hello world", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := p.IndexBatch(context.Background(), "docs", []driven.IndexedChunk{
		{ID: "c1", Content: "hello world", Metadata: map[string]string{}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresText_IndexBatch_EmptyIsNoOp(t *testing.T) {
	p, mock := newMockPostgresText(t)

	if err := p.IndexBatch(context.Background(), "docs", nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expected no queries for an empty batch: %v", err)
	}
}

func TestPostgresText_Search_EmptyQueryTextReturnsNil(t *testing.T) {
	p, _ := newMockPostgresText(t)

	matches, err := p.Search(context.Background(), "docs", nil, "", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if matches != nil {
		t.Errorf("expected nil matches for an empty query text, got %+v", matches)
	}
}

func TestPostgresText_Search(t *testing.T) {
	p, mock := newMockPostgresText(t)

	rows := sqlmock.NewRows([]string{"chunk_id", "content", "metadata", "rank"}).
		AddRow("c1", "hello world", []byte(`{}`), 0.8)
	mock.ExpectQuery("SELECT (.+) FROM text_index_entries").
		WithArgs("docs", "hello", 5).
		WillReturnRows(rows)

	matches, err := p.Search(context.Background(), "docs", nil, "hello", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "c1" {
		t.Errorf("expected 1 match for c1, got %+v", matches)
	}
}

func TestPostgresText_Delete_EmptyIsNoOp(t *testing.T) {
	p, mock := newMockPostgresText(t)

	if err := p.Delete(context.Background(), "docs", nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expected no queries for an empty id list: %v", err)
	}
}
