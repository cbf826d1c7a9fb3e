package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/custodia-labs/sercha-core/internal/core/domain"
	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-core/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-core/internal/registry"
)

var errParseBoom = errors.New("boom")

func newTestRegistry(t *testing.T, embedder *fakeEmbedder, indexer *fakeIndexer, parser driven.Parser) *registry.Registry {
	t.Helper()
	reg := registry.New()
	mustRegisterTest(t, reg, registry.CategoryParser, "auto", func(json.RawMessage) (interface{}, error) {
		return parser, nil
	})
	mustRegisterTest(t, reg, registry.CategoryChunker, "fixed", func(json.RawMessage) (interface{}, error) {
		return fakeChunker{wordsPerChunk: 3}, nil
	})
	mustRegisterTest(t, reg, registry.CategoryEmbedder, "local", func(json.RawMessage) (interface{}, error) {
		return embedder, nil
	})
	mustRegisterTest(t, reg, registry.CategoryIndexer, "sqlitevec", func(json.RawMessage) (interface{}, error) {
		return indexer, nil
	})
	return reg
}

func mustRegisterTest(t *testing.T, reg *registry.Registry, category registry.Category, name string, ctor registry.Constructor) {
	t.Helper()
	if err := reg.Register(category, name, ctor, nil, registry.RegisterOptions{}); err != nil {
		t.Fatalf("register %s/%s: %v", category, name, err)
	}
}

func testIngestionConfig() domain.IngestionConfig {
	return domain.IngestionConfig{
		Parser:   domain.ParserConfig{Type: "auto"},
		Chunker:  domain.ChunkerConfig{Type: "fixed"},
		Embedder: domain.EmbedderConfig{Type: "local"},
		Indexer:  domain.IndexerConfig{Type: "sqlitevec"},
	}
}

func TestIngestionService_Ingest_Success(t *testing.T) {
	embedder := &fakeEmbedder{dims: 8}
	indexer := newFakeIndexer()
	reg := newTestRegistry(t, embedder, indexer, fakeParser{})

	blobStore := newFakeBlobStore()
	blobStore.put("docs", "a.txt", []byte("the quick brown fox jumps over"), "")
	blobStore.put("docs", "b.txt", []byte("a second unrelated document body"), "")

	documentStore := newFakeDocumentStore()
	chunkStore := newFakeChunkStore()
	runStore := newFakeRunStore()
	kbStore := newFakeKBStore()

	svc := NewIngestionService(reg, blobStore, documentStore, chunkStore, runStore, kbStore, "docs")

	inputs := []driving.DocumentInput{
		{StorageURI: "a.txt", Filename: "a.txt"},
		{StorageURI: "b.txt", Filename: "b.txt"},
	}

	run, err := svc.Ingest(context.Background(), "tenant-1", "kb-1", inputs, testIngestionConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Status != domain.RunStatusCompleted {
		t.Errorf("expected completed run, got %s", run.Status)
	}
	if run.Metrics.Counters["ingested"] != 2 {
		t.Errorf("expected 2 ingested, got %d", run.Metrics.Counters["ingested"])
	}
	if run.Metrics.Counters["skipped"] != 0 || run.Metrics.Counters["failed"] != 0 {
		t.Errorf("expected no skips or failures, got %+v", run.Metrics.Counters)
	}

	count, _ := documentStore.Count(context.Background())
	if count != 2 {
		t.Errorf("expected 2 saved documents, got %d", count)
	}

	docs, _ := documentStore.GetByKB(context.Background(), "kb-1", 10, 0)
	for _, doc := range docs {
		if doc.StorageURI == "" {
			t.Errorf("expected a storage URI to be recorded for document %s", doc.ID)
		}
		wantPrefix := "tenant-tenant-1/kb-kb-1/" + doc.ID + "/v1/"
		if !strings.HasPrefix(doc.StorageURI, wantPrefix) {
			t.Errorf("expected versioned storage key with prefix %q, got %q", wantPrefix, doc.StorageURI)
		}
	}
}

func TestIngestionService_Ingest_DuplicateSkipped(t *testing.T) {
	embedder := &fakeEmbedder{dims: 8}
	indexer := newFakeIndexer()
	reg := newTestRegistry(t, embedder, indexer, fakeParser{})

	blobStore := newFakeBlobStore()
	blobStore.put("docs", "a.txt", []byte("same content every time"), "")

	documentStore := newFakeDocumentStore()
	chunkStore := newFakeChunkStore()
	runStore := newFakeRunStore()
	kbStore := newFakeKBStore()

	svc := NewIngestionService(reg, blobStore, documentStore, chunkStore, runStore, kbStore, "docs")

	inputs := []driving.DocumentInput{{StorageURI: "a.txt", Filename: "a.txt"}}
	cfg := testIngestionConfig()

	if _, err := svc.Ingest(context.Background(), "tenant-1", "kb-1", inputs, cfg); err != nil {
		t.Fatalf("unexpected error on first ingest: %v", err)
	}

	run, err := svc.Ingest(context.Background(), "tenant-1", "kb-1", inputs, cfg)
	if err != nil {
		t.Fatalf("unexpected error on second ingest: %v", err)
	}
	if run.Metrics.Counters["skipped"] != 1 {
		t.Errorf("expected 1 skip on re-ingest of identical content, got %+v", run.Metrics.Counters)
	}
	if run.Metrics.Counters["ingested"] != 0 {
		t.Errorf("expected 0 new ingests, got %d", run.Metrics.Counters["ingested"])
	}

	count, _ := documentStore.Count(context.Background())
	if count != 1 {
		t.Errorf("expected dedup to keep a single stored document, got %d", count)
	}

	if len(run.Metrics.Documents) != 1 {
		t.Fatalf("expected 1 per-document result, got %d", len(run.Metrics.Documents))
	}
	dup := run.Metrics.Documents[0]
	if dup.Status != "duplicate" {
		t.Errorf("expected duplicate status, got %q", dup.Status)
	}
	if dup.ExistingID == "" {
		t.Error("expected the duplicate result to reference the existing document's id")
	}
	if dup.Error == "" {
		t.Error("expected the duplicate result to carry an error message")
	}
}

func TestIngestionService_Ingest_BuildPipelineFailure(t *testing.T) {
	embedder := &fakeEmbedder{dims: 8}
	indexer := newFakeIndexer()
	reg := newTestRegistry(t, embedder, indexer, fakeParser{})

	documentStore := newFakeDocumentStore()
	chunkStore := newFakeChunkStore()
	runStore := newFakeRunStore()
	kbStore := newFakeKBStore()

	svc := NewIngestionService(reg, newFakeBlobStore(), documentStore, chunkStore, runStore, kbStore, "docs")

	cfg := testIngestionConfig()
	cfg.Chunker.Type = "does-not-exist"

	run, err := svc.Ingest(context.Background(), "tenant-1", "kb-1", nil, cfg)
	if err == nil {
		t.Fatal("expected error building an unregistered chunker")
	}
	if run.Status != domain.RunStatusFailed {
		t.Errorf("expected failed run, got %s", run.Status)
	}
	stored, getErr := runStore.Get(context.Background(), run.ID)
	if getErr != nil {
		t.Fatalf("unexpected error fetching run: %v", getErr)
	}
	if stored.Status != domain.RunStatusFailed {
		t.Errorf("expected run persisted as failed, got %s", stored.Status)
	}
}

func TestIngestionService_Ingest_PartialFailure(t *testing.T) {
	embedder := &fakeEmbedder{dims: 8}
	indexer := newFakeIndexer()
	reg := newTestRegistry(t, embedder, indexer, fakeParser{})

	blobStore := newFakeBlobStore()
	blobStore.put("docs", "good.txt", []byte("this one exists and parses fine"), "")
	// "missing.txt" is never put into the blob store, so fetching it fails.

	documentStore := newFakeDocumentStore()
	chunkStore := newFakeChunkStore()
	runStore := newFakeRunStore()
	kbStore := newFakeKBStore()

	svc := NewIngestionService(reg, blobStore, documentStore, chunkStore, runStore, kbStore, "docs")

	inputs := []driving.DocumentInput{
		{StorageURI: "good.txt", Filename: "good.txt"},
		{StorageURI: "missing.txt", Filename: "missing.txt"},
	}

	run, err := svc.Ingest(context.Background(), "tenant-1", "kb-1", inputs, testIngestionConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Status != domain.RunStatusCompleted {
		t.Errorf("expected completed run since at least one document ingested, got %s", run.Status)
	}
	if run.Metrics.Counters["ingested"] != 1 {
		t.Errorf("expected 1 ingested, got %d", run.Metrics.Counters["ingested"])
	}
	if run.Metrics.Counters["failed"] != 1 {
		t.Errorf("expected 1 failed, got %d", run.Metrics.Counters["failed"])
	}
}

func TestIngestionService_Ingest_ParseFailure(t *testing.T) {
	embedder := &fakeEmbedder{dims: 8}
	indexer := newFakeIndexer()
	reg := newTestRegistry(t, embedder, indexer, failingParser{err: &driven.ParseError{FileType: "txt", Cause: errParseBoom}})

	blobStore := newFakeBlobStore()
	blobStore.put("docs", "a.txt", []byte("content that will fail to parse"), "")

	documentStore := newFakeDocumentStore()
	chunkStore := newFakeChunkStore()
	runStore := newFakeRunStore()
	kbStore := newFakeKBStore()

	svc := NewIngestionService(reg, blobStore, documentStore, chunkStore, runStore, kbStore, "docs")

	inputs := []driving.DocumentInput{{StorageURI: "a.txt", Filename: "a.txt"}}
	run, err := svc.Ingest(context.Background(), "tenant-1", "kb-1", inputs, testIngestionConfig())
	if err != nil {
		t.Fatalf("unexpected top-level error: %v", err)
	}
	if run.Metrics.Counters["failed"] != 1 {
		t.Errorf("expected 1 failed document for a parse error, got %d", run.Metrics.Counters["failed"])
	}
	if run.Status != domain.RunStatusFailed {
		t.Errorf("expected failed run since every document failed, got %s", run.Status)
	}

	if len(run.Metrics.Documents) != 1 || run.Metrics.Documents[0].Status != "failed" {
		t.Fatalf("expected 1 failed per-document result, got %+v", run.Metrics.Documents)
	}
	docID := run.Metrics.Documents[0].DocumentID
	if docID == "" {
		t.Fatal("expected a document id to be reported even for a parse failure")
	}
	stored, getErr := documentStore.Get(context.Background(), docID)
	if getErr != nil {
		t.Fatalf("expected a persisted document row for the failed document: %v", getErr)
	}
	if stored.Status != domain.DocumentStatusFailed {
		t.Errorf("expected the persisted document to be marked failed, got %s", stored.Status)
	}
	if stored.Metadata["ingest_error"] == "" {
		t.Error("expected the persisted document to carry the failure reason")
	}
}
