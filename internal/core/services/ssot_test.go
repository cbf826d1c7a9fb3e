package services

import (
	"context"
	"testing"

	"github.com/custodia-labs/sercha-core/internal/core/domain"
)

func newTestKB(id, tenantID string) *domain.KnowledgeBase {
	return &domain.KnowledgeBase{
		ID:       id,
		TenantID: tenantID,
		Defaults: domain.KnowledgeBaseDefaults{
			Ingestion: &domain.IngestionConfig{
				Parser:   domain.ParserConfig{Type: "auto"},
				Chunker:  domain.ChunkerConfig{Type: "fixed"},
				Embedder: domain.EmbedderConfig{Type: "local"},
				Indexer:  domain.IndexerConfig{Type: "sqlitevec"},
			},
		},
	}
}

func TestSSOTSyncService_Sync_NewAndUnchanged(t *testing.T) {
	embedder := &fakeEmbedder{dims: 8}
	indexer := newFakeIndexer()
	reg := newTestRegistry(t, embedder, indexer, fakeParser{})

	blobStore := newFakeBlobStore()
	blobStore.put("bucket", "prefix/a.txt", []byte("first document content"), "etag-a")
	blobStore.put("bucket", "prefix/b.txt", []byte("second document content"), "etag-b")

	documentStore := newFakeDocumentStore()
	chunkStore := newFakeChunkStore()
	runStore := newFakeRunStore()
	kbStore := newFakeKBStore()
	_ = kbStore.Save(context.Background(), newTestKB("kb-1", "tenant-1"))

	svc := NewSSOTSyncService(reg, blobStore, documentStore, chunkStore, runStore, kbStore)

	result, err := svc.Sync(context.Background(), "tenant-1", "kb-1", "bucket", "prefix/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.NewCount != 2 {
		t.Errorf("expected 2 new documents, got %d", result.NewCount)
	}
	if result.ModifiedCount != 0 || result.DeletedCount != 0 {
		t.Errorf("expected no modifications or deletions on first sync, got %+v", result)
	}

	// second sync against identical remote state: everything is unchanged.
	result2, err := svc.Sync(context.Background(), "tenant-1", "kb-1", "bucket", "prefix/")
	if err != nil {
		t.Fatalf("unexpected error on second sync: %v", err)
	}
	if result2.UnchangedCount != 2 {
		t.Errorf("expected 2 unchanged documents on repeat sync, got %d", result2.UnchangedCount)
	}
	if result2.NewCount != 0 {
		t.Errorf("expected no new documents on repeat sync, got %d", result2.NewCount)
	}
}

func TestSSOTSyncService_Sync_ModifiedAndDeleted(t *testing.T) {
	embedder := &fakeEmbedder{dims: 8}
	indexer := newFakeIndexer()
	reg := newTestRegistry(t, embedder, indexer, fakeParser{})

	blobStore := newFakeBlobStore()
	blobStore.put("bucket", "prefix/a.txt", []byte("original content"), "etag-1")

	documentStore := newFakeDocumentStore()
	chunkStore := newFakeChunkStore()
	runStore := newFakeRunStore()
	kbStore := newFakeKBStore()
	_ = kbStore.Save(context.Background(), newTestKB("kb-1", "tenant-1"))

	svc := NewSSOTSyncService(reg, blobStore, documentStore, chunkStore, runStore, kbStore)

	if _, err := svc.Sync(context.Background(), "tenant-1", "kb-1", "bucket", "prefix/"); err != nil {
		t.Fatalf("unexpected error on initial sync: %v", err)
	}

	// Changed content under the same key bumps the version.
	blobStore.put("bucket", "prefix/a.txt", []byte("rewritten content body"), "etag-2")
	result, err := svc.Sync(context.Background(), "tenant-1", "kb-1", "bucket", "prefix/")
	if err != nil {
		t.Fatalf("unexpected error on modify sync: %v", err)
	}
	if result.ModifiedCount != 1 {
		t.Errorf("expected 1 modified document, got %d", result.ModifiedCount)
	}

	docs, err := documentStore.GetByKB(context.Background(), "kb-1", 100, 0)
	if err != nil {
		t.Fatalf("unexpected error listing documents: %v", err)
	}
	var live int
	for _, d := range docs {
		if !d.Tombstoned() {
			live++
		}
	}
	if live != 1 {
		t.Errorf("expected exactly 1 live document after modification, got %d", live)
	}

	// Key disappears entirely: the surviving document is tombstoned.
	if err := blobStore.Delete(context.Background(), "bucket", "prefix/a.txt"); err != nil {
		t.Fatalf("unexpected error deleting blob: %v", err)
	}
	result, err = svc.Sync(context.Background(), "tenant-1", "kb-1", "bucket", "prefix/")
	if err != nil {
		t.Fatalf("unexpected error on delete sync: %v", err)
	}
	if result.DeletedCount != 1 {
		t.Errorf("expected 1 tombstoned document, got %d", result.DeletedCount)
	}
}

func TestSSOTSyncService_Sync_ModifiedUpdatesInPlace(t *testing.T) {
	embedder := &fakeEmbedder{dims: 8}
	indexer := newFakeIndexer()
	reg := newTestRegistry(t, embedder, indexer, fakeParser{})

	blobStore := newFakeBlobStore()
	blobStore.put("bucket", "prefix/a.txt", []byte("original content"), "etag-1")

	documentStore := newFakeDocumentStore()
	chunkStore := newFakeChunkStore()
	runStore := newFakeRunStore()
	kbStore := newFakeKBStore()
	_ = kbStore.Save(context.Background(), newTestKB("kb-1", "tenant-1"))

	svc := NewSSOTSyncService(reg, blobStore, documentStore, chunkStore, runStore, kbStore)

	if _, err := svc.Sync(context.Background(), "tenant-1", "kb-1", "bucket", "prefix/"); err != nil {
		t.Fatalf("unexpected error on initial sync: %v", err)
	}
	docsBefore, _ := documentStore.GetByKB(context.Background(), "kb-1", 100, 0)
	if len(docsBefore) != 1 {
		t.Fatalf("expected exactly 1 document after initial sync, got %d", len(docsBefore))
	}
	originalID := docsBefore[0].ID
	if docsBefore[0].Version != 1 {
		t.Fatalf("expected initial version 1, got %d", docsBefore[0].Version)
	}

	blobStore.put("bucket", "prefix/a.txt", []byte("rewritten content body"), "etag-2")
	if _, err := svc.Sync(context.Background(), "tenant-1", "kb-1", "bucket", "prefix/"); err != nil {
		t.Fatalf("unexpected error on modify sync: %v", err)
	}

	docsAfter, err := documentStore.GetByKB(context.Background(), "kb-1", 100, 0)
	if err != nil {
		t.Fatalf("unexpected error listing documents: %v", err)
	}
	if len(docsAfter) != 1 {
		t.Fatalf("expected the modified document to update in place rather than mint a new row, got %d documents", len(docsAfter))
	}
	updated := docsAfter[0]
	if updated.ID != originalID {
		t.Errorf("expected the same document id to survive a content update, got %q want %q", updated.ID, originalID)
	}
	if updated.Version != 2 {
		t.Errorf("expected version to bump to 2, got %d", updated.Version)
	}
	if updated.PreviousVersion != 1 {
		t.Errorf("expected PreviousVersion to record the superseded version, got %d", updated.PreviousVersion)
	}
	if updated.StorageURI == docsBefore[0].StorageURI {
		t.Errorf("expected a distinct versioned storage key for the new content, got %q for both", updated.StorageURI)
	}
}

func TestSSOTSyncService_Sync_EtagOnlyChangeStaysAtSameVersion(t *testing.T) {
	embedder := &fakeEmbedder{dims: 8}
	indexer := newFakeIndexer()
	reg := newTestRegistry(t, embedder, indexer, fakeParser{})

	blobStore := newFakeBlobStore()
	blobStore.put("bucket", "prefix/a.txt", []byte("stable content"), "etag-1")

	documentStore := newFakeDocumentStore()
	chunkStore := newFakeChunkStore()
	runStore := newFakeRunStore()
	kbStore := newFakeKBStore()
	_ = kbStore.Save(context.Background(), newTestKB("kb-1", "tenant-1"))

	svc := NewSSOTSyncService(reg, blobStore, documentStore, chunkStore, runStore, kbStore)

	if _, err := svc.Sync(context.Background(), "tenant-1", "kb-1", "bucket", "prefix/"); err != nil {
		t.Fatalf("unexpected error on initial sync: %v", err)
	}

	// A metadata-only rewrite changes the object's ETag but not its bytes.
	blobStore.put("bucket", "prefix/a.txt", []byte("stable content"), "etag-2")
	result, err := svc.Sync(context.Background(), "tenant-1", "kb-1", "bucket", "prefix/")
	if err != nil {
		t.Fatalf("unexpected error on etag-only sync: %v", err)
	}
	if result.UnchangedCount != 1 {
		t.Errorf("expected the etag-only change to count as unchanged, got %+v", result)
	}

	docs, err := documentStore.GetByKB(context.Background(), "kb-1", 100, 0)
	if err != nil || len(docs) != 1 {
		t.Fatalf("expected exactly 1 document, got %d, err=%v", len(docs), err)
	}
	if docs[0].Version != 1 {
		t.Errorf("expected version to stay at 1 for an etag-only change, got %d", docs[0].Version)
	}
}

func TestSSOTSyncService_Sync_UnknownKB(t *testing.T) {
	embedder := &fakeEmbedder{dims: 8}
	indexer := newFakeIndexer()
	reg := newTestRegistry(t, embedder, indexer, fakeParser{})

	svc := NewSSOTSyncService(reg, newFakeBlobStore(), newFakeDocumentStore(), newFakeChunkStore(), newFakeRunStore(), newFakeKBStore())

	if _, err := svc.Sync(context.Background(), "tenant-1", "missing-kb", "bucket", "prefix/"); err == nil {
		t.Fatal("expected error for an unknown knowledge base")
	}
}
